package dashboard

import (
	"context"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/view"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// AdminAPI is what the admin dashboard fetches.
type AdminAPI interface {
	PredictionFetcher
	AdminOverview(ctx context.Context) (*apiclient.Overview, error)
	ListAllDoctors(ctx context.Context) ([]apiclient.Doctor, error)
	AdminPatients(ctx context.Context) ([]apiclient.Patient, error)
	AdminBookings(ctx context.Context) ([]apiclient.Booking, error)
	AdminAnalytics(ctx context.Context) (*apiclient.Chart, error)
}

// ChartMonth merges the booking and prediction series by position.
type ChartMonth struct {
	Month       string `json:"month"`
	Bookings    int    `json:"bookings"`
	Predictions int    `json:"predictions"`
}

// AdminSummary is the committed state of the admin dashboard.
type AdminSummary struct {
	Overview          apiclient.Overview  `json:"overview"`
	Doctors           []apiclient.Doctor  `json:"doctors"`
	Patients          []apiclient.Patient `json:"patients"`
	Bookings          []apiclient.Booking `json:"bookings"`
	Chart             []ChartMonth        `json:"chart"`
	ScopedPredictions int                 `json:"scopedPredictions"`
	Percentages       Percentages         `json:"bookingPercentages"`
	PendingDelta      int                 `json:"pendingDelta"`
}

// AdminDashboard aggregates everything under the signed-in admin.
type AdminDashboard struct {
	api    AdminAPI
	ident  Identity
	logger *logging.Logger

	mu      sync.RWMutex
	summary AdminSummary
}

func NewAdminDashboard(api AdminAPI, ident Identity, logger *logging.Logger) *AdminDashboard {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboard{api: api, ident: ident, logger: logger}
}

// Load fetches each list independently; a failed list stays empty.
func (d *AdminDashboard) Load(ctx context.Context, scope *view.Scope) {
	scope.Track(func() {
		var s AdminSummary

		if ov, err := d.api.AdminOverview(ctx); err != nil {
			d.logger.Warn("admin overview fetch failed", "error", err)
		} else {
			s.Overview = *ov
		}
		if docs, err := d.api.ListAllDoctors(ctx); err != nil {
			d.logger.Warn("admin doctor fetch failed", "error", err)
		} else {
			s.Doctors = docs
		}
		if pats, err := d.api.AdminPatients(ctx); err != nil {
			d.logger.Warn("admin patient fetch failed", "error", err)
		} else {
			s.Patients = pats
		}
		if bookings, err := d.api.AdminBookings(ctx); err != nil {
			d.logger.Warn("admin booking fetch failed", "error", err)
		} else {
			s.Bookings = bookings
		}
		if chart, err := d.api.AdminAnalytics(ctx); err != nil {
			d.logger.Warn("admin analytics fetch failed", "error", err)
		} else {
			s.Chart = mergeChart(chart)
			s.PendingDelta = PendingDelta(chart.Bookings)
		}

		doctorIDs := make([]string, 0, len(s.Doctors))
		for _, doc := range s.Doctors {
			doctorIDs = append(doctorIDs, doc.ID.String())
		}
		s.ScopedPredictions = ScopedPredictionCount(ctx, d.api, d.logger, d.ident.Token(), doctorIDs)
		s.Percentages = StatusPercentages(s.Bookings)

		scope.Commit(func() {
			d.mu.Lock()
			d.summary = s
			d.mu.Unlock()
		})
	})
}

// Summary returns the last committed summary.
func (d *AdminDashboard) Summary() AdminSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary
}

func mergeChart(chart *apiclient.Chart) []ChartMonth {
	out := make([]ChartMonth, 0, len(chart.Bookings))
	for i, b := range chart.Bookings {
		m := ChartMonth{Month: b.Month, Bookings: b.Bookings}
		if i < len(chart.Predictions) {
			m.Predictions = chart.Predictions[i].Predictions
		}
		out = append(out, m)
	}
	return out
}
