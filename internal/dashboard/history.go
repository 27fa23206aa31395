package dashboard

import (
	"context"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/view"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Identity is the slice of the session the dashboards read.
type Identity interface {
	User() (apiclient.User, bool)
	Token() string
}

// notificationBatch is how many of the newest predictions raise a
// notification on load.
const notificationBatch = 5

// History is the signed-in user's prediction history. The patient dashboard
// renders the same records without stats or export.
type History struct {
	api    PredictionFetcher
	ident  Identity
	notes  *notify.Log
	logger *logging.Logger

	mu      sync.RWMutex
	records []Record
	loaded  bool
}

// NewHistory builds the history view. notes may be nil.
func NewHistory(api PredictionFetcher, ident Identity, notes *notify.Log, logger *logging.Logger) *History {
	if logger == nil {
		logger = logging.Default()
	}
	return &History{api: api, ident: ident, notes: notes, logger: logger}
}

// NewPatientDashboard builds the patient dashboard.
func NewPatientDashboard(api PredictionFetcher, ident Identity, notes *notify.Log, logger *logging.Logger) *History {
	return NewHistory(api, ident, notes, logger)
}

// Load fetches the user's predictions and commits them through scope. A
// failed fetch leaves an empty list.
func (h *History) Load(ctx context.Context, scope *view.Scope) {
	scope.Track(func() {
		owner := h.ident.Token()
		var records []Record
		var preds []apiclient.Prediction
		if owner != "" {
			list, err := h.api.GetPredictions(ctx, owner)
			if err != nil {
				h.logger.Warn("prediction history fetch failed", "error", err)
			} else {
				preds = list.Predictions
				records = FormatRecords(preds)
			}
		}

		committed := scope.Commit(func() {
			h.mu.Lock()
			h.records = records
			h.loaded = true
			h.mu.Unlock()
		})
		if !committed || h.notes == nil || len(preds) == 0 {
			return
		}
		if _, err := h.notes.AddAll(ctx, notify.FromPredictions(preds, notificationBatch)); err != nil {
			h.logger.Warn("failed to record prediction notifications", "error", err)
		}
	})
}

// Records returns the committed records matching q.
func (h *History) Records(q Query) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Apply(h.records, q)
}

// Total is the unfiltered record count.
func (h *History) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Stats summarises every committed record, ignoring filters.
func (h *History) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return ComputeStats(h.records)
}

// Loaded reports whether a load has committed.
func (h *History) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loaded
}

// ExportDates lists the dates of the records matching q, for PDF export.
func (h *History) ExportDates(q Query) []string {
	return ExportDates(h.Records(q))
}
