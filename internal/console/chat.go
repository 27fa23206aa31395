package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/clinic-portal/internal/intake"
	"github.com/wolfman30/clinic-portal/internal/notify"
)

const chatWriteTimeout = 10 * time.Second

// ChatInbound is what the chat front end sends.
type ChatInbound struct {
	Type       string             `json:"type"` // "message", "attach", "ping"
	Text       string             `json:"text,omitempty"`
	Attachment *intake.Attachment `json:"attachment,omitempty"`
}

// ChatOutbound is what the console sends back.
type ChatOutbound struct {
	Type      string         `json:"type"` // "session", "message", "typing", "result", "error", "pong"
	Role      string         `json:"role,omitempty"`
	Text      string         `json:"text,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	State     intake.State   `json:"state,omitempty"`
	Result    *intake.Result `json:"result,omitempty"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin admits same-host pages and the CORS allowlist.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// IntakeSocket runs one intake conversation per connection.
func (h *Handler) IntakeSocket(w http.ResponseWriter, r *http.Request) {
	user, _ := h.session.User()
	if h.submitter == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "symptom checker unavailable"})
		return
	}
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("intake: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	chat := &chatConn{conn: conn}
	sessionID := uuid.NewString()
	flow, opening := intake.NewFlow(user)
	_ = chat.send(ChatOutbound{Type: "session", SessionID: sessionID, State: flow.State()})
	for _, text := range opening {
		_ = chat.send(assistant(text, flow.State()))
	}
	h.logger.Info("intake: conversation opened", "session_id", sessionID, "role", user.Role)

	for {
		var msg ChatInbound
		if err := conn.ReadJSON(&msg); err != nil {
			h.logger.Debug("intake: connection closed", "session_id", sessionID, "error", err)
			return
		}
		if err := h.handleChat(r.Context(), chat, flow, sessionID, msg); err != nil {
			h.logger.Debug("intake: write failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *Handler) handleChat(ctx context.Context, chat *chatConn, flow *intake.Flow, sessionID string, msg ChatInbound) error {
	switch msg.Type {
	case "ping":
		return chat.send(ChatOutbound{Type: "pong"})

	case "attach":
		if msg.Attachment == nil || strings.TrimSpace(msg.Attachment.Name) == "" {
			return chat.send(ChatOutbound{Type: "error", Text: "attachment name is required"})
		}
		reply := flow.Attach(*msg.Attachment)
		if reply == "" {
			reply = fmt.Sprintf("File attached: %s", msg.Attachment.Name)
		}
		return chat.send(assistant(reply, flow.State()))

	case "message":
		reply, ready, err := flow.Step(msg.Text)
		switch {
		case errors.Is(err, intake.ErrEmptyInput):
			return nil
		case errors.Is(err, intake.ErrFinished):
			return chat.send(ChatOutbound{Type: "error", Text: "This conversation is complete. Start a new one to check other symptoms."})
		case err != nil:
			h.logger.Error("intake: step failed", "session_id", sessionID, "error", err)
			return chat.send(ChatOutbound{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		}
		if reply != "" {
			if err := chat.send(assistant(reply, flow.State())); err != nil {
				return err
			}
		}
		if !ready {
			return nil
		}
		return h.finishChat(ctx, chat, flow, sessionID)
	}
	return nil
}

func (h *Handler) finishChat(ctx context.Context, chat *chatConn, flow *intake.Flow, sessionID string) error {
	if err := chat.send(ChatOutbound{Type: "typing"}); err != nil {
		return err
	}
	res, err := h.submitter.Submit(ctx, flow)
	if err != nil {
		h.logger.Error("intake: submit failed", "session_id", sessionID, "error", err)
		return chat.send(ChatOutbound{Type: "error", Text: "Sorry, something went wrong. Please try again."})
	}

	note := notify.Notification{
		Key:     "intake-" + sessionID,
		Title:   "Analysis Complete",
		Message: fmt.Sprintf("%s (%s)", res.Disease, res.Severity),
		Type:    notify.TypeSuccess,
	}
	if !res.Saved {
		note.Title = "Analysis Not Saved"
		note.Type = notify.TypeWarning
	}
	if _, err := h.notes().Add(ctx, note); err != nil {
		h.logger.Warn("intake: failed to record notification", "error", err)
	}
	return chat.send(ChatOutbound{Type: "result", State: flow.State(), Result: res})
}

func assistant(text string, state intake.State) ChatOutbound {
	return ChatOutbound{Type: "message", Role: "assistant", Text: text, State: state}
}

type chatConn struct {
	conn *websocket.Conn
}

func (c *chatConn) send(msg ChatOutbound) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(chatWriteTimeout))
	return c.conn.WriteJSON(msg)
}
