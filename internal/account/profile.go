// Package account covers the profile page: viewing and editing account
// fields, per-role quick stats, and password changes.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/bookings"
	"github.com/wolfman30/clinic-portal/internal/dashboard"
	"github.com/wolfman30/clinic-portal/internal/view"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrValidation is returned before any call when input is incomplete.
	ErrValidation = errors.New("account: validation failed")
	// ErrSignedOut is returned when no user is held.
	ErrSignedOut = errors.New("account: signed out")
)

// Session is the slice of the session the account pages use.
type Session interface {
	User() (apiclient.User, bool)
	Token() string
	UpdateUser(ctx context.Context, patch map[string]interface{}) (apiclient.User, error)
}

// ProfileAPI is the slice of the clinic API used by the profile page.
type ProfileAPI interface {
	UpdateProfile(ctx context.Context, fields map[string]string) (map[string]interface{}, error)
	GetPredictions(ctx context.Context, userID string) (*apiclient.PredictionList, error)
	ListBookings(ctx context.Context, doctorName string) ([]apiclient.Booking, error)
	ListDoctors(ctx context.Context) ([]apiclient.Doctor, error)
	ListAllDoctors(ctx context.Context) ([]apiclient.Doctor, error)
}

// editable lists the profile fields a user may change.
var editable = map[string]bool{
	"name":           true,
	"phone":          true,
	"address":        true,
	"specialization": true,
	"experience":     true,
	"qualification":  true,
}

// Profile is the profile page.
type Profile struct {
	api     ProfileAPI
	session Session
	logger  *logging.Logger

	mu     sync.RWMutex
	stats  QuickStats
	loaded bool
}

func NewProfile(api ProfileAPI, session Session, logger *logging.Logger) *Profile {
	if logger == nil {
		logger = logging.Default()
	}
	return &Profile{api: api, session: session, logger: logger}
}

// RoleLabel is the display name of a role.
func RoleLabel(role string) string {
	switch role {
	case apiclient.RoleAdmin:
		return "Administrator"
	case apiclient.RoleDoctor:
		return "Doctor"
	case apiclient.RolePatient:
		return "Patient"
	}
	return "User"
}

// Initials of a display name, "U" when empty.
func Initials(name string) string {
	return bookings.Initials(name, "U")
}

// Update sends profile edits and merges the stored result into the session.
// Name and phone may not be blanked; unknown keys are rejected.
func (p *Profile) Update(ctx context.Context, fields map[string]string) (apiclient.User, error) {
	if _, ok := p.session.User(); !ok {
		return apiclient.User{}, ErrSignedOut
	}
	clean := make(map[string]string, len(fields))
	for k, v := range fields {
		if !editable[k] {
			return apiclient.User{}, fmt.Errorf("%w: %s cannot be edited", ErrValidation, k)
		}
		clean[k] = strings.TrimSpace(v)
	}
	for _, required := range []string{"name", "phone"} {
		if v, ok := clean[required]; ok && v == "" {
			return apiclient.User{}, fmt.Errorf("%w: %s is required", ErrValidation, required)
		}
	}

	stored, err := p.api.UpdateProfile(ctx, clean)
	if err != nil {
		return apiclient.User{}, fmt.Errorf("account: update profile: %w", err)
	}
	patch := make(map[string]interface{}, len(clean)+len(stored))
	for k, v := range clean {
		patch[k] = v
	}
	for k, v := range stored {
		patch[k] = v
	}
	user, err := p.session.UpdateUser(ctx, patch)
	if err != nil {
		return apiclient.User{}, err
	}
	p.logger.Info("profile updated", "user_id", user.ID.String())
	return user, nil
}

// QuickStats is the per-role summary on the profile page. Only the fields
// relevant to the role are filled.
type QuickStats struct {
	Role           string `json:"role"`
	Predictions    int    `json:"predictions"`
	Appointments   int    `json:"appointments,omitempty"`
	Patients       int    `json:"patients,omitempty"`
	Consultations  int    `json:"consultations,omitempty"`
	LicenceNo      string `json:"licence_no,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Experience     string `json:"experience,omitempty"`
	Qualification  string `json:"qualification,omitempty"`
	Doctors        int    `json:"doctors,omitempty"`
}

// LoadStats fetches the figures for the signed-in role and commits them
// through scope. Each fetch fails independently and contributes zero.
func (p *Profile) LoadStats(ctx context.Context, scope *view.Scope) error {
	user, ok := p.session.User()
	if !ok {
		return ErrSignedOut
	}
	scope.Track(func() {
		qs := p.quickStats(ctx, user)
		scope.Commit(func() {
			p.mu.Lock()
			p.stats = qs
			p.loaded = true
			p.mu.Unlock()
		})
	})
	return nil
}

// Stats returns the committed figures and whether a load has committed.
func (p *Profile) Stats() (QuickStats, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats, p.loaded
}

func (p *Profile) quickStats(ctx context.Context, user apiclient.User) QuickStats {
	qs := QuickStats{Role: user.Role}
	switch user.Role {
	case apiclient.RolePatient:
		if list, err := p.api.GetPredictions(ctx, user.ID.String()); err != nil {
			p.logger.Warn("quick stats prediction fetch failed", "error", err)
		} else {
			qs.Predictions = list.Total()
		}
		if all, err := p.api.ListBookings(ctx, ""); err != nil {
			p.logger.Warn("quick stats booking fetch failed", "error", err)
		} else {
			for _, b := range all {
				if b.Name == user.Name {
					qs.Appointments++
				}
			}
		}

	case apiclient.RoleDoctor:
		if docs, err := p.api.ListDoctors(ctx); err != nil {
			p.logger.Warn("quick stats doctor fetch failed", "error", err)
		} else {
			for _, d := range docs {
				if d.ID == user.ID {
					qs.LicenceNo = d.LicenceNo
					qs.Specialization = d.Specialization
					qs.Experience = d.Experience.String()
					qs.Qualification = d.Qualification
					break
				}
			}
		}
		if all, err := p.api.ListBookings(ctx, ""); err != nil {
			p.logger.Warn("quick stats booking fetch failed", "error", err)
		} else {
			patients := map[string]struct{}{}
			for _, b := range all {
				if b.Doctor != user.Name {
					continue
				}
				patients[b.Name] = struct{}{}
				if b.NormalizedStatus() == apiclient.StatusCompleted {
					qs.Consultations++
				}
			}
			qs.Patients = len(patients)
		}

	case apiclient.RoleAdmin:
		var ids []string
		if docs, err := p.api.ListAllDoctors(ctx); err != nil {
			p.logger.Warn("quick stats doctor fetch failed", "error", err)
		} else {
			qs.Doctors = len(docs)
			for _, d := range docs {
				ids = append(ids, d.ID.String())
			}
		}
		qs.Predictions = dashboard.ScopedPredictionCount(ctx, p.api, p.logger, p.session.Token(), ids)
	}
	return qs
}
