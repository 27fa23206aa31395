package dashboard

import (
	"context"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/view"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// DoctorAPI is what the doctor dashboard fetches.
type DoctorAPI interface {
	PredictionFetcher
	ListBookings(ctx context.Context, doctorName string) ([]apiclient.Booking, error)
}

const doctorPatientRows = 10

// PatientRow is one line of the doctor's patient list.
type PatientRow struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// DoctorSummary is the committed state of the doctor dashboard.
type DoctorSummary struct {
	TotalPredictions int           `json:"totalPredictions"`
	TotalPatients    int           `json:"totalPatients"`
	WeeklyReports    int           `json:"latestReports"`
	Patients         []PatientRow  `json:"patients"`
	Percentages      Percentages   `json:"bookingPercentages"`
	Months           []MonthBucket `json:"monthly"`
}

// DoctorDashboard aggregates a doctor's predictions and bookings.
type DoctorDashboard struct {
	api    DoctorAPI
	ident  Identity
	logger *logging.Logger
	now    func() time.Time

	mu      sync.RWMutex
	summary DoctorSummary
}

func NewDoctorDashboard(api DoctorAPI, ident Identity, logger *logging.Logger) *DoctorDashboard {
	if logger == nil {
		logger = logging.Default()
	}
	return &DoctorDashboard{api: api, ident: ident, logger: logger, now: time.Now}
}

// Load fetches and aggregates. Either fetch may fail independently.
func (d *DoctorDashboard) Load(ctx context.Context, scope *view.Scope) {
	user, ok := d.ident.User()
	if !ok || user.ID == "" {
		return
	}
	scope.Track(func() {
		var preds []apiclient.Prediction
		if list, err := d.api.GetPredictions(ctx, user.ID.String()); err != nil {
			d.logger.Warn("doctor prediction fetch failed", "error", err)
		} else {
			preds = list.Predictions
		}

		bookings, err := d.api.ListBookings(ctx, user.Name)
		if err != nil {
			d.logger.Warn("doctor booking fetch failed", "error", err)
			bookings = nil
		}

		summary := summarizeDoctor(d.now(), user.Name, preds, bookings)
		scope.Commit(func() {
			d.mu.Lock()
			d.summary = summary
			d.mu.Unlock()
		})
	})
}

// Summary returns the last committed summary.
func (d *DoctorDashboard) Summary() DoctorSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary
}

func summarizeDoctor(now time.Time, doctorName string, preds []apiclient.Prediction, bookings []apiclient.Booking) DoctorSummary {
	patients := map[string]struct{}{}
	for _, p := range preds {
		if p.Doctor != "" && p.Doctor != doctorName {
			patients[p.Doctor] = struct{}{}
		}
	}
	for _, b := range bookings {
		patients[b.Name] = struct{}{}
	}

	limit := len(bookings)
	if limit > doctorPatientRows {
		limit = doctorPatientRows
	}
	rows := make([]PatientRow, 0, limit)
	for _, b := range bookings[:limit] {
		date := "-"
		if t, ok := b.AppointmentTime(); ok {
			date = t.Format("2006-01-02")
		}
		rows = append(rows, PatientRow{Name: b.Name, Date: date, Status: capitalize(b.Status)})
	}

	return DoctorSummary{
		TotalPredictions: len(preds),
		TotalPatients:    len(patients),
		WeeklyReports:    WeeklyReports(now, preds),
		Patients:         rows,
		Percentages:      StatusPercentages(bookings),
		Months:           MonthlyBuckets(now, preds, bookings),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
