package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
)

// Filters for prediction records.
const (
	FilterAll       = "all"
	FilterCompleted = "completed"
	FilterReview    = "review"
	FilterHigh      = "high"
	FilterModerate  = "moderate"
)

// Sort orders for prediction records.
const (
	SortDate       = "date"
	SortConfidence = "confidence"
	SortPrediction = "prediction"
)

const highConfidence = 80

// Record is a prediction formatted for display.
type Record struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	When       time.Time `json:"-"`
	Symptoms   []string  `json:"symptoms"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	Severity   string    `json:"severity"`
	Status     string    `json:"status"`
	Doctor     string    `json:"doctor"`
}

// FormatRecords converts API predictions into records attributed to "Self".
func FormatRecords(preds []apiclient.Prediction) []Record {
	out := make([]Record, 0, len(preds))
	for _, p := range preds {
		when, _ := p.DateTime()
		symptoms := []string(p.Symptoms)
		if symptoms == nil {
			symptoms = []string{}
		}
		out = append(out, Record{
			ID:         p.ID.String(),
			Date:       p.Date,
			When:       when,
			Symptoms:   symptoms,
			Prediction: p.Prediction,
			Confidence: p.Confidence,
			Severity:   p.Severity,
			Status:     p.Status,
			Doctor:     "Self",
		})
	}
	return out
}

// Query selects and orders records.
type Query struct {
	Search string
	Filter string
	Sort   string
}

// Apply returns the records matching q, ordered by q.Sort. The input slice
// is not modified.
func Apply(records []Record, q Query) []Record {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matchesSearch(r, search) && matchesFilter(r, q.Filter) {
			out = append(out, r)
		}
	}

	switch q.Sort {
	case SortDate, "":
		sort.SliceStable(out, func(i, j int) bool { return out[i].When.After(out[j].When) })
	case SortConfidence:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	case SortPrediction:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Prediction) < strings.ToLower(out[j].Prediction)
		})
	}
	return out
}

func matchesSearch(r Record, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Prediction), search) {
		return true
	}
	for _, s := range r.Symptoms {
		if strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

func matchesFilter(r Record, filter string) bool {
	status := strings.ToLower(strings.TrimSpace(r.Status))
	switch filter {
	case FilterAll, "":
		return true
	case FilterCompleted:
		return status == "completed"
	case FilterReview:
		return status == "under review" || status == "review"
	case FilterHigh:
		return r.Confidence >= highConfidence
	case FilterModerate:
		return strings.EqualFold(r.Severity, "moderate")
	}
	return false
}

// Stats summarises a record set.
type Stats struct {
	Total             int `json:"totalPredictions"`
	AverageConfidence int `json:"averageConfidence"`
	Completed         int `json:"completedPredictions"`
	UnderReview       int `json:"underReview"`
}

// ComputeStats totals records and rounds the mean confidence.
func ComputeStats(records []Record) Stats {
	s := Stats{Total: len(records)}
	if s.Total == 0 {
		return s
	}
	var sum float64
	for _, r := range records {
		sum += r.Confidence
		switch strings.ToLower(strings.TrimSpace(r.Status)) {
		case "completed":
			s.Completed++
		case "under review", "under_review":
			s.UnderReview++
		}
	}
	s.AverageConfidence = roundInt(sum / float64(s.Total))
	return s
}

// ExportDates returns the YYYY-MM-DD date of each record in order, skipping
// records without a parseable date.
func ExportDates(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if r.When.IsZero() {
			continue
		}
		out = append(out, r.When.Format("2006-01-02"))
	}
	return out
}
