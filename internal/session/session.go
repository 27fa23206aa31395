// Package session holds the signed-in identity. It is the only writer of the
// token and user keys in the backing store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/storage"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// ErrSignedOut is returned by operations that need a user.
var ErrSignedOut = errors.New("session: signed out")

// Session is safe for concurrent use.
type Session struct {
	store  storage.Store
	logger *logging.Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *apiclient.User
}

// New builds an empty session over store. Call Bootstrap to load persisted
// state.
func New(store storage.Store, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{store: store, logger: logger, now: time.Now}
}

// Bootstrap loads token and user from the store. A stored user that fails to
// decode is treated as absent.
func (s *Session) Bootstrap(ctx context.Context) error {
	tok, _, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("session: load token: %w", err)
	}
	raw, ok, err := s.store.Get(ctx, storage.KeyUser)
	if err != nil {
		return fmt.Errorf("session: load user: %w", err)
	}

	var user *apiclient.User
	if ok && raw != "" {
		var u apiclient.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("discarding unreadable stored user", "error", err)
		} else {
			user = &u
		}
	}

	s.mu.Lock()
	s.token = tok
	s.user = user
	s.mu.Unlock()
	return nil
}

// Login persists a fresh token and user.
func (s *Session) Login(ctx context.Context, token string, user apiclient.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyToken, token); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyUser, string(payload)); err != nil {
		return fmt.Errorf("session: save user: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	s.logger.Info("signed in", "role", user.Role, "user_id", user.ID.String())
	return nil
}

// Clear removes token and user from memory and the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	var errs []error
	if err := s.store.Delete(ctx, storage.KeyToken); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Delete(ctx, storage.KeyUser); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// HandleUnauthorized is wired as the API client's 401 hook.
func (s *Session) HandleUnauthorized(ctx context.Context) {
	s.logger.Warn("credentials rejected by clinic API; signing out")
	if err := s.Clear(ctx); err != nil {
		s.logger.Error("failed to clear session", "error", err)
	}
}

// Token returns the held token, or "" when none is held or the token is a
// JWT whose exp has passed.
func (s *Session) Token() string {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()
	if tok == "" || s.expired(tok) {
		return ""
	}
	return tok
}

func (s *Session) expired(tok string) bool {
	if strings.Count(tok, ".") != 2 {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// User returns a copy of the signed-in user.
func (s *Session) User() (apiclient.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return apiclient.User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether a usable token and a user are both held.
func (s *Session) Authenticated() bool {
	if s.Token() == "" {
		return false
	}
	_, ok := s.User()
	return ok
}

// Role returns the user's role or "".
func (s *Session) Role() string {
	u, _ := s.User()
	return u.Role
}

// UserID returns the user's id, falling back to the token for sessions whose
// login response carried no id.
func (s *Session) UserID() string {
	u, ok := s.User()
	if ok && u.ID != "" {
		return u.ID.String()
	}
	return s.Token()
}

// UpdateUser overlays patch onto the stored user and persists the result.
// Keys in patch use the API's JSON field names.
func (s *Session) UpdateUser(ctx context.Context, patch map[string]interface{}) (apiclient.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return apiclient.User{}, ErrSignedOut
	}

	base, err := json.Marshal(s.user)
	if err != nil {
		return apiclient.User{}, fmt.Errorf("session: encode user: %w", err)
	}
	merged := map[string]interface{}{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return apiclient.User{}, fmt.Errorf("session: decode user: %w", err)
	}
	for k, v := range patch {
		merged[k] = v
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return apiclient.User{}, fmt.Errorf("session: encode patch: %w", err)
	}
	var next apiclient.User
	if err := json.Unmarshal(payload, &next); err != nil {
		return apiclient.User{}, fmt.Errorf("session: apply patch: %w", err)
	}
	canonical, err := json.Marshal(next)
	if err != nil {
		return apiclient.User{}, fmt.Errorf("session: encode user: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyUser, string(canonical)); err != nil {
		return apiclient.User{}, fmt.Errorf("session: save user: %w", err)
	}
	s.user = &next
	return next, nil
}
