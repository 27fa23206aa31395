package intake

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

const defaultSeverity = 5

// Heuristic derives a result locally when the remote model is unavailable.
// Its only nondeterminism is the patient confidence, drawn from the seeded
// source.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic seeds the confidence source.
func NewHeuristic(seed int64) *Heuristic {
	return &Heuristic{rng: rand.New(rand.NewSource(seed))}
}

// Condition picks a condition label from the primary concern.
func Condition(concern string) string {
	c := strings.ToLower(concern)
	switch {
	case strings.Contains(c, "fever") || strings.Contains(c, "temperature"):
		return "Acute Febrile Illness"
	case strings.Contains(c, "cough") || strings.Contains(c, "breathing"):
		return "Upper Respiratory Tract Infection"
	case strings.Contains(c, "pain") && strings.Contains(c, "head"):
		return "Tension-Type Headache"
	case strings.Contains(c, "stomach") || strings.Contains(c, "abdominal"):
		return "Gastroenteritis"
	}
	return "Common Viral Infection"
}

// SeverityScore reads the leading integer of a 1-10 answer, defaulting to 5.
func SeverityScore(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && (raw[end] >= '0' && raw[end] <= '9' || end == 0 && (raw[0] == '-' || raw[0] == '+')) {
		end++
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil || n == 0 {
		return defaultSeverity
	}
	return n
}

// SeverityLabel buckets a score: above 7 High, above 4 Moderate, else Mild.
func SeverityLabel(score int) string {
	switch {
	case score > 7:
		return "High"
	case score > 4:
		return "Moderate"
	}
	return "Mild"
}

// Recommendations returns the generic advice for a severity score.
func Recommendations(score int) []string {
	out := []string{
		"Get adequate rest (7-9 hours of sleep)",
		"Stay well hydrated (8-10 glasses of water daily)",
		"Monitor your symptoms closely",
	}
	if score > 6 {
		return append(out,
			"Seek medical attention within 24 hours",
			"Avoid strenuous activities",
			"Keep a symptom diary",
		)
	}
	return append(out,
		"Use over-the-counter medications as needed",
		"Maintain a balanced diet",
		"Consult a doctor if symptoms worsen or persist beyond 5-7 days",
	)
}

// NextSteps is the follow-up advice for a severity score.
func NextSteps(score int) string {
	if score > 7 {
		return "Seek immediate medical attention. Visit an emergency room or urgent care facility."
	}
	return "Schedule an appointment with a healthcare provider within 24-48 hours for proper diagnosis and treatment."
}

func (h *Heuristic) confidence() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := 85 + h.rng.Intn(10)
	if c > 95 {
		c = 95
	}
	return float64(c)
}

// Patient builds a self-assessment result from the answers.
func (h *Heuristic) Patient(answers map[State]string) Result {
	score := SeverityScore(answers[StateSeverity])
	concern := answers[StateInitialConcern]
	condition := Condition(concern)
	symptoms := concern
	if symptoms == "" {
		symptoms = "Based on provided information"
	}
	return Result{
		Disease:    condition,
		Confidence: h.confidence(),
		Severity:   SeverityLabel(score),
		Description: fmt.Sprintf(
			"Based on your reported symptoms and the information you've provided, your condition appears consistent with %s. This assessment is based on the symptom pattern, duration (%s), and severity level you described.",
			strings.ToLower(condition), answers[StateDuration]),
		Recommendations: Recommendations(score),
		Symptoms:        []string{symptoms},
		NextSteps:       NextSteps(score),
		WhenToSeekHelp:  whenToSeekHelp,
		Answers:         answers,
		Source:          SourceFallback,
	}
}

// Clinician builds a case-review result. Confidence is fixed at 85.
func (h *Heuristic) Clinician(answers map[State]string, files []Attachment) Result {
	concern := answers[StateInitialConcern]
	desc := "Based on the clinical presentation, a comprehensive assessment has been generated."
	if len(files) > 0 {
		desc = "Based on the clinical presentation and uploaded lab reports, a comprehensive assessment has been generated."
	}
	findings := clinicalFindings(answers, files, false)
	return Result{
		Disease:     Condition(concern),
		Confidence:  85,
		Severity:    "Moderate",
		Description: desc,
		Recommendations: []string{
			"Review all clinical findings carefully",
			"Consider further diagnostic tests if needed",
			"Monitor patient response to treatment",
			"Schedule follow-up as appropriate",
		},
		Symptoms:         []string{symptomsText(answers)},
		ClinicalFindings: findings,
		Answers:          answers,
		Source:           SourceFallback,
	}
}

func symptomsText(answers map[State]string) string {
	if s := answers[StateInitialConcern]; s != "" {
		return s
	}
	return "Clinical assessment"
}

// clinicalFindings lists symptoms, history when given, and lab reports when
// files were attached. withNames appends the file names.
func clinicalFindings(answers map[State]string, files []Attachment, withNames bool) []Finding {
	concern := answers[StateInitialConcern]
	if concern == "" {
		concern = "Not specified"
	}
	out := []Finding{{Category: "Patient Symptoms", Findings: concern}}
	if h := answers[StateMedicalHistoryAllergy]; h != "" {
		out = append(out, Finding{Category: "Medical History / Allergies", Findings: h})
	}
	if n := len(files); n > 0 {
		noun := "files"
		if n == 1 {
			noun = "file"
		}
		text := fmt.Sprintf("%d %s analyzed", n, noun)
		if withNames {
			names := make([]string, 0, n)
			for _, f := range files {
				names = append(names, f.Name)
			}
			text = fmt.Sprintf("%d %s uploaded and analyzed (%s)", n, noun, strings.Join(names, ", "))
		}
		out = append(out, Finding{Category: "Lab Report Analysis", Findings: text})
	}
	return out
}
