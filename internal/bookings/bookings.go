// Package bookings is the appointment list of the signed-in user: load,
// filter, reschedule, cancel, and the contact-doctor booking request.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/view"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrValidation is returned before any call when required input is
	// missing.
	ErrValidation = errors.New("bookings: validation failed")
	// ErrNotFound is returned for an id not in the loaded list.
	ErrNotFound = errors.New("bookings: booking not loaded")
	// ErrSignedOut is returned when no user is signed in.
	ErrSignedOut = errors.New("bookings: signed out")
)

// FilterAll matches every status.
const FilterAll = "all"

// API is the slice of the clinic API used here.
type API interface {
	ListBookings(ctx context.Context, doctorName string) ([]apiclient.Booking, error)
	UpdateAppointment(ctx context.Context, id, date, clock string) error
	UpdateBookingStatus(ctx context.Context, id, status string) error
	CreateBooking(ctx context.Context, req apiclient.BookingRequest) (string, error)
}

// Identity supplies the signed-in user.
type Identity interface {
	User() (apiclient.User, bool)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer func(prompt string) bool

// Appointment is a booking formatted for display.
type Appointment struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Doctor     string `json:"doctor"`
	Department string `json:"department"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Status     string `json:"status"`
	Avatar     string `json:"avatar"`
}

// Manager holds the loaded appointments. Local patches are provisional and
// replaced by the next Load.
type Manager struct {
	api    API
	ident  Identity
	logger *logging.Logger

	mu    sync.RWMutex
	items []Appointment
}

func NewManager(api API, ident Identity, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{api: api, ident: ident, logger: logger}
}

// Load fetches every booking and keeps the signed-in user's: by patient name
// for patients, by doctor name for doctors, all of them for admins. A failed
// fetch leaves the list unchanged.
func (m *Manager) Load(ctx context.Context, scope *view.Scope) {
	user, ok := m.ident.User()
	if !ok {
		return
	}
	scope.Track(func() {
		all, err := m.api.ListBookings(ctx, "")
		if err != nil {
			m.logger.Warn("booking list fetch failed", "error", err)
			return
		}
		items := make([]Appointment, 0, len(all))
		for _, b := range all {
			if !ownedBy(b, user) {
				continue
			}
			items = append(items, format(b))
		}
		scope.Commit(func() {
			m.mu.Lock()
			m.items = items
			m.mu.Unlock()
		})
	})
}

func ownedBy(b apiclient.Booking, user apiclient.User) bool {
	switch user.Role {
	case apiclient.RoleAdmin:
		return true
	case apiclient.RoleDoctor:
		return b.Doctor == user.Name
	default:
		return b.Name == user.Name
	}
}

func format(b apiclient.Booking) Appointment {
	a := Appointment{
		ID:         b.ID.String(),
		Name:       b.Name,
		Doctor:     b.Doctor,
		Department: b.Department,
		Date:       "-",
		Time:       "-",
		Status:     b.NormalizedStatus(),
		Avatar:     Initials(b.Doctor, "DR"),
	}
	if t, ok := b.AppointmentTime(); ok {
		a.Date = t.Format("2006-01-02")
		a.Time = t.Format("15:04")
	}
	return a
}

// Initials joins the upper-cased first letter of each word of name, or
// returns fallback when name is blank.
func Initials(name, fallback string) string {
	var sb strings.Builder
	for _, part := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(part)
		sb.WriteRune(unicode.ToUpper(r))
	}
	if sb.Len() == 0 {
		return fallback
	}
	return sb.String()
}

// Filter returns loaded appointments with the given status, or all of them
// for FilterAll or "".
func (m *Manager) Filter(status string) []Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status = strings.ToLower(strings.TrimSpace(status))
	out := make([]Appointment, 0, len(m.items))
	for _, a := range m.items {
		if status == "" || status == FilterAll || a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// Reschedule moves a booking. Both date and time are required; on success
// the local copy is patched to the new slot with status pending.
func (m *Manager) Reschedule(ctx context.Context, id, date, clock string) error {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return fmt.Errorf("%w: date and time are required", ErrValidation)
	}
	if !m.has(id) {
		return ErrNotFound
	}
	if err := m.api.UpdateAppointment(ctx, id, date, clock); err != nil {
		return fmt.Errorf("bookings: reschedule %s: %w", id, err)
	}
	m.patch(id, func(a *Appointment) {
		a.Date = date
		a.Time = clock
		a.Status = apiclient.StatusPending
	})
	return nil
}

// Cancel cancels a booking after confirmation. It reports whether the
// cancellation was issued; a declined confirmation is not an error.
func (m *Manager) Cancel(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if !m.has(id) {
		return false, ErrNotFound
	}
	if confirm == nil || !confirm("Are you sure you want to cancel this appointment?") {
		return false, nil
	}
	if err := m.api.UpdateBookingStatus(ctx, id, apiclient.StatusCancelled); err != nil {
		return false, fmt.Errorf("bookings: cancel %s: %w", id, err)
	}
	m.patch(id, func(a *Appointment) { a.Status = apiclient.StatusCancelled })
	return true, nil
}

func (m *Manager) has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.items {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (m *Manager) patch(id string, fn func(*Appointment)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			fn(&m.items[i])
		}
	}
}

// Request is a contact-doctor booking form.
type Request struct {
	Doctor apiclient.Doctor
	Date   string
	Time   string
}

// Create books an appointment with the chosen doctor for the signed-in user
// and returns the new booking id.
func (m *Manager) Create(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Doctor.Name) == "" || strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		return "", fmt.Errorf("%w: please select doctor, date, and time", ErrValidation)
	}
	user, ok := m.ident.User()
	if !ok {
		return "", ErrSignedOut
	}
	patient := user.DisplayName()
	if patient == "" {
		patient = "Patient"
	}
	department := firstNonEmpty(req.Doctor.Department, req.Doctor.Specialization, "General")

	id, err := m.api.CreateBooking(ctx, apiclient.BookingRequest{
		PatientName: patient,
		DoctorName:  req.Doctor.Name,
		Department:  department,
		Date:        strings.TrimSpace(req.Date),
		Time:        strings.TrimSpace(req.Time),
	})
	if err != nil {
		return "", fmt.Errorf("bookings: create: %w", err)
	}
	m.logger.Info("booking created", "booking_id", id, "doctor", req.Doctor.Name)
	return id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
