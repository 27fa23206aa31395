// Package exports writes prediction report PDFs to a sink.
package exports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// ErrNoUser is returned when the fetch id or the owner name is missing.
var ErrNoUser = errors.New("exports: user id required")

// PDFFetcher downloads the report for one prediction date.
type PDFFetcher interface {
	PredictionPDF(ctx context.Context, userID, date string) ([]byte, error)
}

// Sink stores one exported report and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Exporter fetches reports and hands them to a sink.
type Exporter struct {
	fetcher PDFFetcher
	sink    Sink
	logger  *logging.Logger
}

func NewExporter(fetcher PDFFetcher, sink Sink, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Exporter{fetcher: fetcher, sink: sink, logger: logger}
}

// ExportAll exports one report per distinct date, in first-seen order.
// fetchID is sent to the fetcher; owner only names the stored objects.
// A date that fails to fetch or store is logged and skipped.
func (e *Exporter) ExportAll(ctx context.Context, fetchID, owner string, dates []string) ([]string, error) {
	if strings.TrimSpace(fetchID) == "" || strings.TrimSpace(owner) == "" {
		return nil, ErrNoUser
	}
	seen := make(map[string]struct{}, len(dates))
	var written []string
	for _, date := range dates {
		if date == "" {
			continue
		}
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}

		if err := ctx.Err(); err != nil {
			return written, err
		}
		data, err := e.fetcher.PredictionPDF(ctx, fetchID, date)
		if err != nil {
			e.logger.Warn("report download failed", "date", date, "error", err)
			continue
		}
		loc, err := e.sink.Put(ctx, ObjectName(owner, date), data)
		if err != nil {
			e.logger.Warn("report store failed", "date", date, "error", err)
			continue
		}
		written = append(written, loc)
	}
	e.logger.Info("reports exported", "requested", len(seen), "written", len(written))
	return written, nil
}

// ObjectName is the relative name of a report: predictions/<user>/<date>.pdf,
// with path-unsafe characters in either part replaced by '-'.
func ObjectName(userID, date string) string {
	return fmt.Sprintf("predictions/%s/%s.pdf", safe(userID), safe(date))
}

func safe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, strings.TrimSpace(s))
}
