// Package doctors manages the admin doctor directory and the public
// contact-doctor list.
package doctors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/view"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrValidation is returned before any call when the form is incomplete.
	ErrValidation = errors.New("doctors: validation failed")
	// ErrNotFound is returned for ids not in the loaded directory.
	ErrNotFound = errors.New("doctors: doctor not loaded")
)

// FilterAllDepartments disables the department filter.
const FilterAllDepartments = "all"

// Departments offered by the registration form.
var Departments = []string{
	"Cardiology",
	"Neurology",
	"Pediatrics",
	"Orthopedics",
	"Dermatology",
	"Oncology",
	"Psychiatry",
	"General Medicine",
	"Surgery",
}

// API is the slice of the clinic API used by the directory.
type API interface {
	ListAllDoctors(ctx context.Context) ([]apiclient.Doctor, error)
	RegisterDoctor(ctx context.Context, form apiclient.DoctorForm) error
	UpdateDoctor(ctx context.Context, id string, form apiclient.DoctorForm) error
	DeleteDoctor(ctx context.Context, id string) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer func(prompt string) bool

// Form is the registration/edit form as entered.
type Form struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	Password        string `json:"password"`
	Department      string `json:"department"`
	Specialization  string `json:"specialization"`
	Qualification   string `json:"qualification"`
	Experience      string `json:"experience"`
	License         string `json:"license"`
	ConsultationFee string `json:"consultationFee"`
	// Status is "Active" or "On Leave" as displayed.
	Status string `json:"status"`
}

func (f Form) missing(requirePassword bool) []string {
	fields := []struct{ name, value string }{
		{"name", f.Name},
		{"email", f.Email},
		{"phone", f.Phone},
		{"department", f.Department},
		{"specialization", f.Specialization},
		{"qualification", f.Qualification},
		{"experience", f.Experience},
		{"license", f.License},
		{"consultation fee", f.ConsultationFee},
		{"status", f.Status},
	}
	if requirePassword {
		fields = append(fields, struct{ name, value string }{"password", f.Password})
	}
	var out []string
	for _, fl := range fields {
		if strings.TrimSpace(fl.value) == "" {
			out = append(out, fl.name)
		}
	}
	return out
}

func (f Form) toAPI() apiclient.DoctorForm {
	address := strings.TrimSpace(f.Address)
	if address == "" {
		address = "N/A"
	}
	return apiclient.DoctorForm{
		Name:            strings.TrimSpace(f.Name),
		Email:           strings.TrimSpace(f.Email),
		Password:        f.Password,
		Phone:           strings.TrimSpace(f.Phone),
		Address:         address,
		Department:      f.Department,
		Specialization:  f.Specialization,
		Qualification:   f.Qualification,
		Experience:      strings.TrimSpace(f.Experience),
		LicenceNo:       strings.TrimSpace(f.License),
		ConsultationFee: strings.TrimSpace(f.ConsultationFee),
		Status:          apiStatus(f.Status),
	}
}

// apiStatus maps the displayed status onto the API's: "Active" is active,
// anything else is on leave.
func apiStatus(display string) string {
	if strings.EqualFold(strings.TrimSpace(display), "active") {
		return apiclient.DoctorActive
	}
	return apiclient.DoctorOnLeave
}

// normalizeStatus folds whatever the API returned onto active or on_leave.
func normalizeStatus(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == apiclient.DoctorOnLeave {
		return apiclient.DoctorOnLeave
	}
	return apiclient.DoctorActive
}

// Directory is the admin doctor list.
type Directory struct {
	api    API
	logger *logging.Logger

	mu      sync.RWMutex
	doctors []apiclient.Doctor
}

func NewDirectory(api API, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{api: api, logger: logger}
}

// Load fetches every doctor. A failed fetch leaves the list unchanged.
func (d *Directory) Load(ctx context.Context, scope *view.Scope) {
	scope.Track(func() {
		docs, err := d.api.ListAllDoctors(ctx)
		if err != nil {
			d.logger.Warn("doctor directory fetch failed", "error", err)
			return
		}
		for i := range docs {
			docs[i].Status = normalizeStatus(docs[i].Status)
		}
		scope.Commit(func() {
			d.mu.Lock()
			d.doctors = docs
			d.mu.Unlock()
		})
	})
}

// All returns the loaded doctors.
func (d *Directory) All() []apiclient.Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]apiclient.Doctor(nil), d.doctors...)
}

// Filter matches search case-insensitively against name, email, department
// and id, and department exactly unless it is empty or "all".
func (d *Directory) Filter(search, department string) []apiclient.Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]apiclient.Doctor, 0, len(d.doctors))
	for _, doc := range d.doctors {
		if department != "" && department != FilterAllDepartments && doc.Department != department {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(doc.Name), search) &&
			!strings.Contains(strings.ToLower(doc.Email), search) &&
			!strings.Contains(strings.ToLower(doc.Department), search) &&
			!strings.Contains(strings.ToLower(doc.ID.String()), search) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// Stats is the directory header.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	OnLeave     int `json:"onLeave"`
	Departments int `json:"departments"`
}

// Stats counts loaded doctors by status and distinct department.
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := Stats{Total: len(d.doctors)}
	depts := map[string]struct{}{}
	for _, doc := range d.doctors {
		if doc.Status == apiclient.DoctorOnLeave {
			s.OnLeave++
		} else {
			s.Active++
		}
		if doc.Department != "" {
			depts[doc.Department] = struct{}{}
		}
	}
	s.Departments = len(depts)
	return s
}

// Create registers a doctor and reloads the directory.
func (d *Directory) Create(ctx context.Context, scope *view.Scope, form Form) error {
	if missing := form.missing(true); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if err := d.api.RegisterDoctor(ctx, form.toAPI()); err != nil {
		return fmt.Errorf("doctors: register: %w", err)
	}
	d.logger.Info("doctor registered", "email", form.Email)
	d.Load(ctx, scope)
	return nil
}

// Update edits doctor id and reloads the directory. The password is only
// sent when entered.
func (d *Directory) Update(ctx context.Context, scope *view.Scope, id string, form Form) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing doctor id", ErrValidation)
	}
	if missing := form.missing(false); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if err := d.api.UpdateDoctor(ctx, id, form.toAPI()); err != nil {
		return fmt.Errorf("doctors: update %s: %w", id, err)
	}
	d.logger.Info("doctor updated", "doctor_id", id)
	d.Load(ctx, scope)
	return nil
}

// Delete removes a doctor after confirmation. The local list changes only
// once the API accepts the delete. It reports whether a delete was issued.
func (d *Directory) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if !d.has(id) {
		return false, ErrNotFound
	}
	if confirm == nil || !confirm("Are you sure you want to delete this doctor? This action cannot be undone.") {
		return false, nil
	}
	if err := d.api.DeleteDoctor(ctx, id); err != nil {
		return false, fmt.Errorf("doctors: delete %s: %w", id, err)
	}
	d.mu.Lock()
	kept := d.doctors[:0:0]
	for _, doc := range d.doctors {
		if doc.ID.String() != id {
			kept = append(kept, doc)
		}
	}
	d.doctors = kept
	d.mu.Unlock()
	d.logger.Info("doctor deleted", "doctor_id", id)
	return true, nil
}

func (d *Directory) has(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.doctors {
		if doc.ID.String() == id {
			return true
		}
	}
	return false
}

// FormFor pre-fills the edit form from a loaded doctor. The password stays
// empty.
func FormFor(doc apiclient.Doctor) Form {
	status := "Active"
	if normalizeStatus(doc.Status) == apiclient.DoctorOnLeave {
		status = "On Leave"
	}
	return Form{
		Name:            doc.Name,
		Email:           doc.Email,
		Phone:           doc.Phone.String(),
		Address:         doc.Address,
		Department:      doc.Department,
		Specialization:  doc.Specialization,
		Qualification:   doc.Qualification,
		Experience:      doc.Experience.String(),
		License:         doc.LicenceNo,
		ConsultationFee: doc.ConsultationFee.String(),
		Status:          status,
	}
}
