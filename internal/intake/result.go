package intake

// Sources of a result.
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// Finding is one category of the clinician report.
type Finding struct {
	Category string `json:"category"`
	Findings string `json:"findings"`
}

// Result is what the conversation produced.
type Result struct {
	Disease          string           `json:"disease"`
	Confidence       float64          `json:"confidence"`
	Severity         string           `json:"severity"`
	Description      string           `json:"description"`
	Recommendations  []string         `json:"recommendations"`
	Symptoms         []string         `json:"symptoms,omitempty"`
	Precautions      []string         `json:"precautions,omitempty"`
	NextSteps        string           `json:"nextSteps,omitempty"`
	WhenToSeekHelp   []string         `json:"whenToSeekHelp,omitempty"`
	ClinicalFindings []Finding        `json:"clinicalFindings,omitempty"`
	Answers          map[State]string `json:"collectedData"`
	Source           string           `json:"source"`
	Saved            bool             `json:"saved"`
}

var whenToSeekHelp = []string{
	"Fever above 103°F (39.4°C)",
	"Difficulty breathing or chest pain",
	"Symptoms rapidly worsening",
	"Severe pain or discomfort",
	"Signs of dehydration (dark urine, dizziness)",
}
