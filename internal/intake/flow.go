package intake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
)

var (
	// ErrFinished is returned by Step once the flow has reached submit.
	ErrFinished = errors.New("intake: conversation finished")
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("intake: empty input")
)

const unsupportedReply = "I'm here to help. Please describe your concern."

// Attachment describes an uploaded file. Only metadata is kept.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size"`
}

// Flow is one conversation. It is not safe for concurrent use.
type Flow struct {
	user        apiclient.User
	table       Table
	state       State
	answers     map[State]string
	trail       []State
	attachments []Attachment
}

// NewFlow starts a conversation for user and returns the opening messages.
func NewFlow(user apiclient.User) (*Flow, []string) {
	f := &Flow{user: user, state: StateGreeting, answers: map[State]string{}}
	messages := []string{greeting(user)}

	table, ok := TableFor(user.Role)
	if !ok {
		return f, messages
	}
	f.table = table
	if tr, ok := table.next(StateGreeting, f.answers, ""); ok {
		f.state = tr.To
		f.trail = append(f.trail, tr.To)
		if tr.Prompt != "" {
			messages = append(messages, tr.Prompt)
		}
	}
	return f, messages
}

// State is the stage awaiting input.
func (f *Flow) State() State { return f.state }

// Done reports whether the flow reached submit.
func (f *Flow) Done() bool { return f.state == StateSubmit }

// Trail lists every state entered, starting at the first question.
func (f *Flow) Trail() []State { return append([]State(nil), f.trail...) }

// User is the user the flow was started for.
func (f *Flow) User() apiclient.User { return f.user }

// Step feeds one answer and returns the assistant's reply and whether the
// flow is now ready to submit. The raw answer is recorded under the current
// state.
func (f *Flow) Step(input string) (string, bool, error) {
	if f.Done() {
		return "", true, ErrFinished
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false, ErrEmptyInput
	}
	if f.table == nil {
		return unsupportedReply, false, nil
	}

	from := f.state
	f.answers[from] = input
	tr, ok := f.table.next(from, f.answers, input)
	if !ok {
		return "", false, fmt.Errorf("intake: no transition out of %s", from)
	}
	if tr.To != from {
		f.trail = append(f.trail, tr.To)
	}
	f.state = tr.To
	return tr.Prompt, f.Done(), nil
}

// Attach records an uploaded file. Clinicians are reminded to ask for
// analysis.
func (f *Flow) Attach(a Attachment) string {
	f.attachments = append(f.attachments, a)
	if IsClinician(f.user.Role) {
		return fmt.Sprintf("File received (%s). Please type 'analyze' to generate the report.", a.Name)
	}
	return ""
}

// Attachments lists uploaded files in order.
func (f *Flow) Attachments() []Attachment {
	return append([]Attachment(nil), f.attachments...)
}

// Answers returns a copy of the raw answers keyed by state.
func (f *Flow) Answers() map[State]string {
	out := make(map[State]string, len(f.answers))
	for k, v := range f.answers {
		out[k] = v
	}
	return out
}

// Answer returns the raw answer given at state.
func (f *Flow) Answer(s State) string { return f.answers[s] }

// patientFields names each patient answer in the prediction payload.
var patientFields = map[State]string{
	StateInitialConcern:     "primaryConcern",
	StateDuration:           "duration",
	StateSeverity:           "severity",
	StateFeverDetails:       "fever_details",
	StatePainDetails:        "pain_details",
	StateRespiratoryDetails: "respiratory_details",
	StateAdditionalSymptoms: "additionalSymptoms",
	StateHistory:            "history",
	StateMedications:        "medications",
	StateMedicalHistory:     "medicalHistory",
}

// Record is the payload sent to the prediction endpoint.
func (f *Flow) Record() map[string]interface{} {
	if IsClinician(f.user.Role) {
		return map[string]interface{}{
			"primaryConcern": f.answers[StateInitialConcern],
			"medicalHistory": f.answers[StateMedicalHistoryAllergy],
			"allergies":      f.answers[StateMedicalHistoryAllergy],
			"hasLabReport":   len(f.attachments) > 0,
			"fileCount":      len(f.attachments),
		}
	}
	rec := map[string]interface{}{}
	for state, field := range patientFields {
		if v, ok := f.answers[state]; ok {
			rec[field] = v
		}
	}
	return rec
}
