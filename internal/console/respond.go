package console

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-portal/internal/account"
	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/bookings"
	"github.com/wolfman30/clinic-portal/internal/doctors"
	"github.com/wolfman30/clinic-portal/internal/exports"
	"github.com/wolfman30/clinic-portal/internal/session"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// confirmed reads the ?confirm=true step required by destructive routes.
func confirmed(r *http.Request) func(string) bool {
	ok := strings.EqualFold(r.URL.Query().Get("confirm"), "true")
	return func(string) bool { return ok }
}

// writeError renders err as the toast payload with a status by class:
// validation 400, missing 404, auth 401, API rejection 422, upstream 502.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		rejected *apiclient.RejectedError
		apiErr   *apiclient.APIError
	)
	switch {
	case errors.Is(err, bookings.ErrValidation),
		errors.Is(err, doctors.ErrValidation),
		errors.Is(err, account.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: detail(err)})
	case errors.Is(err, bookings.ErrNotFound), errors.Is(err, doctors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	case errors.Is(err, exports.ErrNoUser),
		errors.Is(err, bookings.ErrSignedOut),
		errors.Is(err, account.ErrSignedOut),
		errors.Is(err, session.ErrSignedOut),
		errors.Is(err, apiclient.ErrUnauthorized),
		errors.Is(err, apiclient.ErrNoToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: apiclient.Message(err)})
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: apiclient.Message(err)})
	case errors.As(err, &apiErr), errors.Is(err, apiclient.ErrTransport):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: apiclient.Message(err)})
	default:
		h.logger.Error("console request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: apiclient.Message(err)})
	}
}

// detail is the text after the last "validation failed: " prefix.
func detail(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "validation failed: "); i >= 0 {
		return msg[i+len("validation failed: "):]
	}
	return msg
}
