// Package notify keeps a local, per-owner notification log. Entries never
// leave the machine.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/storage"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// DefaultCapacity bounds the log; the oldest entries are evicted first.
const DefaultCapacity = 500

// Notification types.
const (
	TypePrimary = "primary"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeDanger  = "danger"
)

// Notification is one log entry.
type Notification struct {
	ID      string    `json:"id"`
	Key     string    `json:"key,omitempty"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	Read    bool      `json:"read"`
	Time    time.Time `json:"time"`
}

// Log is the notification log for one owner.
type Log struct {
	store    storage.Store
	key      string
	capacity int
	logger   *logging.Logger
	metrics  *metrics.PortalMetrics
	now      func() time.Time

	mu sync.Mutex
}

// NewLog opens the log for owner. capacity <= 0 uses DefaultCapacity.
func NewLog(store storage.Store, owner string, capacity int, logger *logging.Logger, m *metrics.PortalMetrics) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Log{
		store:    store,
		key:      storage.NotificationsKey(owner),
		capacity: capacity,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Add prepends n unless an entry with the same non-empty key exists. It
// reports whether n was added.
func (l *Log) Add(ctx context.Context, n Notification) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	if n.Key != "" {
		for _, e := range entries {
			if e.Key == n.Key {
				return false, nil
			}
		}
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Time.IsZero() {
		n.Time = l.now()
	}
	if n.Type == "" {
		n.Type = TypePrimary
	}
	n.Read = false

	entries = append([]Notification{n}, entries...)
	if over := len(entries) - l.capacity; over > 0 {
		entries = entries[:l.capacity]
		l.metrics.ObserveNotificationsEvicted(over)
	}
	if err := l.save(ctx, entries); err != nil {
		return false, err
	}
	return true, nil
}

// AddAll adds each notification in order and returns how many were new.
func (l *Log) AddAll(ctx context.Context, ns []Notification) (int, error) {
	added := 0
	for _, n := range ns {
		ok, err := l.Add(ctx, n)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// List returns entries newest first.
func (l *Log) List(ctx context.Context) ([]Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// MarkAllRead flags every entry as read.
func (l *Log) MarkAllRead(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		entries[i].Read = true
	}
	return l.save(ctx, entries)
}

// UnreadCount counts entries not yet read.
func (l *Log) UnreadCount(ctx context.Context) (int, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.Read {
			n++
		}
	}
	return n, nil
}

func (l *Log) load(ctx context.Context) ([]Notification, error) {
	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("notify: load: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var entries []Notification
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		l.logger.Warn("resetting unreadable notification log", "key", l.key, "error", err)
		return nil, nil
	}
	return entries, nil
}

func (l *Log) save(ctx context.Context, entries []Notification) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	if err := l.store.Set(ctx, l.key, string(payload)); err != nil {
		return fmt.Errorf("notify: save: %w", err)
	}
	return nil
}

// FromPredictions builds "Prediction Completed" entries for the first limit
// predictions. Keys are stable so repeated loads do not duplicate entries.
func FromPredictions(preds []apiclient.Prediction, limit int) []Notification {
	if limit > len(preds) {
		limit = len(preds)
	}
	out := make([]Notification, 0, limit)
	for _, p := range preds[:limit] {
		when, _ := p.DateTime()
		out = append(out, Notification{
			Key:     fmt.Sprintf("pred-%s-%s-%s", p.ID, p.Date, p.Prediction),
			Title:   "Prediction Completed",
			Message: fmt.Sprintf("%s (%s)", p.Prediction, p.Severity),
			Type:    TypePrimary,
			Time:    when,
		})
	}
	return out
}
