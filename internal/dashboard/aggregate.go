// Package dashboard derives the role dashboards and the prediction history
// from API lists. Every figure is recomputed on each load.
package dashboard

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// PredictionFetcher lists predictions for one owner id.
type PredictionFetcher interface {
	GetPredictions(ctx context.Context, userID string) (*apiclient.PredictionList, error)
}

// Percentages is the booking status split, each value in whole percent.
type Percentages struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
}

// StatusPercentages computes round(count/N*100) per status. An empty list
// yields all zeros.
func StatusPercentages(bookings []apiclient.Booking) Percentages {
	total := len(bookings)
	if total == 0 {
		return Percentages{}
	}
	var completed, pending, cancelled int
	for _, b := range bookings {
		switch strings.ToLower(strings.TrimSpace(b.Status)) {
		case apiclient.StatusCompleted:
			completed++
		case apiclient.StatusPending:
			pending++
		case apiclient.StatusCancelled:
			cancelled++
		}
	}
	pct := func(n int) int {
		return roundInt(float64(n) / float64(total) * 100)
	}
	return Percentages{
		Completed: pct(completed),
		Pending:   pct(pending),
		Cancelled: pct(cancelled),
	}
}

// MonthBucket counts records falling in one calendar month.
type MonthBucket struct {
	Month       string `json:"month"`
	Year        int    `json:"year"`
	Predictions int    `json:"predictions"`
	Bookings    int    `json:"bookings"`
}

const trailingMonths = 6

// MonthlyBuckets returns the six calendar months ending with now's month,
// oldest first. Records match by exact (month, year); undated records are
// ignored.
func MonthlyBuckets(now time.Time, predictions []apiclient.Prediction, bookings []apiclient.Booking) []MonthBucket {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	buckets := make([]MonthBucket, trailingMonths)
	index := make(map[[2]int]int, trailingMonths)
	for i := 0; i < trailingMonths; i++ {
		m := first.AddDate(0, i-(trailingMonths-1), 0)
		buckets[i] = MonthBucket{Month: m.Format("Jan"), Year: m.Year()}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}

	for _, p := range predictions {
		t, ok := p.DateTime()
		if !ok {
			continue
		}
		if i, hit := index[[2]int{t.Year(), int(t.Month())}]; hit {
			buckets[i].Predictions++
		}
	}
	for _, b := range bookings {
		t, ok := b.AppointmentTime()
		if !ok {
			continue
		}
		if i, hit := index[[2]int{t.Year(), int(t.Month())}]; hit {
			buckets[i].Bookings++
		}
	}
	return buckets
}

// WeeklyReports counts predictions dated within the seven days up to now.
func WeeklyReports(now time.Time, predictions []apiclient.Prediction) int {
	weekAgo := now.AddDate(0, 0, -7)
	n := 0
	for _, p := range predictions {
		t, ok := p.DateTime()
		if !ok {
			continue
		}
		if !t.Before(weekAgo) && !t.After(now) {
			n++
		}
	}
	return n
}

// ScopedPredictionCount sums the admin's own prediction count and that of
// every doctor id. Sub-fetches run concurrently; a failed one is logged and
// contributes zero.
func ScopedPredictionCount(ctx context.Context, fetcher PredictionFetcher, logger *logging.Logger, adminID string, doctorIDs []string) int {
	if logger == nil {
		logger = logging.Default()
	}
	owners := make([]string, 0, len(doctorIDs)+1)
	owners = append(owners, adminID)
	owners = append(owners, doctorIDs...)

	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, owner := range owners {
		owner := owner
		if owner == "" {
			continue
		}
		g.Go(func() error {
			list, err := fetcher.GetPredictions(gctx, owner)
			if err != nil {
				logger.Warn("scoped prediction fetch failed", "owner", owner, "error", err)
				return nil
			}
			mu.Lock()
			total += list.Total()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return total
}

// PendingDelta compares the last two months of the booking chart: +2 when
// bookings held steady or grew, -2 when they fell, 0 without two months.
func PendingDelta(months []apiclient.MonthBookings) int {
	if len(months) < 2 {
		return 0
	}
	if months[len(months)-1].Bookings-months[len(months)-2].Bookings >= 0 {
		return 2
	}
	return -2
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
