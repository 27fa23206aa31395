package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/storage"
)

func TestAdd_PrependsAndDedupes(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryStore(), "u1", 0, nil, nil)

	added, err := log.Add(ctx, Notification{Key: "a", Title: "First"})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = log.Add(ctx, Notification{Key: "b", Title: "Second"})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = log.Add(ctx, Notification{Key: "a", Title: "Again"})
	require.NoError(t, err)
	assert.False(t, added)

	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Second", entries[0].Title)
	assert.Equal(t, "First", entries[1].Title)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, TypePrimary, entries[0].Type)
	assert.False(t, entries[0].Time.IsZero())
}

func TestAdd_EmptyKeyNeverDedupes(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryStore(), "u1", 0, nil, nil)
	_, _ = log.Add(ctx, Notification{Title: "x"})
	_, _ = log.Add(ctx, Notification{Title: "x"})

	entries, err := log.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAdd_EvictsOldestBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	log := NewLog(storage.NewMemoryStore(), "u1", 3, nil, metrics.NewPortalMetrics(reg))

	for i := 0; i < 5; i++ {
		_, err := log.Add(ctx, Notification{Key: fmt.Sprintf("k%d", i)})
		require.NoError(t, err)
	}

	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "k4", entries[0].Key)
	assert.Equal(t, "k2", entries[2].Key)

	// Evicted keys may be re-added.
	added, err := log.Add(ctx, Notification{Key: "k0"})
	require.NoError(t, err)
	assert.True(t, added)
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryStore(), "u1", 0, nil, nil)
	_, _ = log.AddAll(ctx, []Notification{{Key: "a"}, {Key: "b"}})

	n, err := log.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, log.MarkAllRead(ctx))
	n, err = log.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogsAreScopedPerOwner(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	a := NewLog(store, "a", 0, nil, nil)
	b := NewLog(store, "b", 0, nil, nil)
	_, _ = a.Add(ctx, Notification{Key: "x"})

	entries, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFromPredictions(t *testing.T) {
	preds := make([]apiclient.Prediction, 7)
	for i := range preds {
		preds[i] = apiclient.Prediction{
			ID:         apiclient.Text(fmt.Sprint(i)),
			Date:       "2026-02-01",
			Prediction: "Flu",
			Severity:   "Mild",
		}
	}

	got := FromPredictions(preds, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "pred-0-2026-02-01-Flu", got[0].Key)
	assert.Equal(t, "Prediction Completed", got[0].Title)
	assert.Equal(t, "Flu (Mild)", got[0].Message)

	ctx := context.Background()
	log := NewLog(storage.NewMemoryStore(), "u1", 0, nil, nil)
	added, err := log.AddAll(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, 5, added)
	added, err = log.AddAll(ctx, FromPredictions(preds, 5))
	require.NoError(t, err)
	assert.Zero(t, added)

	assert.Empty(t, FromPredictions(nil, 5))
}
