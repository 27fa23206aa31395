// Package intake runs the guided symptom conversation and turns its answers
// into a prediction, remote when possible and heuristic otherwise.
package intake

import (
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
)

// State is a stage of the conversation.
type State string

const (
	StateGreeting              State = "greeting"
	StateInitialConcern        State = "initial_concern"
	StateDuration              State = "duration"
	StateSeverity              State = "severity"
	StateFeverDetails          State = "fever_details"
	StatePainDetails           State = "pain_details"
	StateRespiratoryDetails    State = "respiratory_details"
	StateAdditionalSymptoms    State = "additional_symptoms"
	StateHistory               State = "history"
	StateMedications           State = "medications"
	StateMedicalHistory        State = "medical_history"
	StateMedicalHistoryAllergy State = "medical_history_allergy"
	StateUploadOrAnalyze       State = "upload_or_analyze"
	StateSubmit                State = "submit"
)

// Guard decides whether a transition applies. answers already include the
// input for the current state.
type Guard func(answers map[State]string, input string) bool

// Transition is one row of a conversation table. Rows for a state are tried
// in order; the first whose guard passes (or has no guard) is taken.
type Transition struct {
	From   State
	Guard  Guard
	To     State
	Prompt string
}

// Table is an ordered transition list for one kind of user.
type Table []Transition

// next returns the first applicable transition out of from.
func (t Table) next(from State, answers map[State]string, input string) (Transition, bool) {
	for _, tr := range t {
		if tr.From != from {
			continue
		}
		if tr.Guard == nil || tr.Guard(answers, input) {
			return tr, true
		}
	}
	return Transition{}, false
}

// Targets lists the states reachable from from, in table order.
func (t Table) Targets(from State) []State {
	var out []State
	for _, tr := range t {
		if tr.From == from {
			out = append(out, tr.To)
		}
	}
	return out
}

func concernHas(words ...string) Guard {
	return func(answers map[State]string, _ string) bool {
		concern := strings.ToLower(answers[StateInitialConcern])
		for _, w := range words {
			if strings.Contains(concern, w) {
				return true
			}
		}
		return false
	}
}

func inputHas(word string) Guard {
	return func(_ map[State]string, input string) bool {
		return strings.Contains(strings.ToLower(strings.TrimSpace(input)), word)
	}
}

const (
	promptPatientStart = "Let's start: What is your main health concern or symptom today?"
	promptMedications  = "Are you currently taking any medications for this?"
	promptAnalyzing    = "Thank you for providing all this information. Let me analyze your symptoms using AI..."
	promptNeedAnalyze  = "File received. Please type 'analyze' to generate the report."
)

// PatientTable is the self-assessment conversation.
var PatientTable = Table{
	{From: StateGreeting, To: StateInitialConcern, Prompt: promptPatientStart},
	{From: StateInitialConcern, To: StateDuration, Prompt: "I understand. How long have you been experiencing this?"},
	{From: StateDuration, To: StateSeverity, Prompt: "On a scale of 1-10, how severe would you rate your symptoms? (1 = very mild, 10 = unbearable)"},
	{From: StateSeverity, Guard: concernHas("fever", "temperature"), To: StateFeverDetails, Prompt: "Have you measured your temperature? If yes, what was it?"},
	{From: StateSeverity, Guard: concernHas("pain"), To: StatePainDetails, Prompt: "Can you describe the type of pain? (e.g., sharp, dull, throbbing, constant)"},
	{From: StateSeverity, Guard: concernHas("cough", "breathing"), To: StateRespiratoryDetails, Prompt: "Are you experiencing any difficulty breathing or shortness of breath?"},
	{From: StateSeverity, To: StateAdditionalSymptoms, Prompt: "Are you experiencing any other symptoms along with this? (e.g., fever, fatigue, nausea)"},
	{From: StateFeverDetails, To: StateMedications, Prompt: promptMedications},
	{From: StatePainDetails, To: StateMedications, Prompt: promptMedications},
	{From: StateRespiratoryDetails, To: StateMedications, Prompt: promptMedications},
	{From: StateAdditionalSymptoms, To: StateHistory, Prompt: "Have you experienced this before, or is this the first time?"},
	{From: StateHistory, To: StateMedications, Prompt: "Are you currently taking any medications?"},
	{From: StateMedications, To: StateMedicalHistory, Prompt: "Do you have any chronic medical conditions or allergies I should know about?"},
	{From: StateMedicalHistory, To: StateSubmit, Prompt: promptAnalyzing},
}

// ClinicianTable is the doctor/admin case-review conversation. The last
// stage loops until the input asks to analyze.
var ClinicianTable = Table{
	{From: StateGreeting, To: StateInitialConcern},
	{From: StateInitialConcern, To: StateMedicalHistoryAllergy, Prompt: "Is there anything else like allergy or medical history of patient that I should be aware of?"},
	{From: StateMedicalHistoryAllergy, To: StateUploadOrAnalyze, Prompt: "Please upload a PDF or image of Lab report of patient or type 'analyze' to generate report."},
	{From: StateUploadOrAnalyze, Guard: inputHas("analyze"), To: StateSubmit, Prompt: "Analyzing the patient information and generating report..."},
	{From: StateUploadOrAnalyze, To: StateUploadOrAnalyze, Prompt: promptNeedAnalyze},
}

// IsClinician reports whether role uses the clinician conversation.
func IsClinician(role string) bool {
	return role == apiclient.RoleDoctor || role == apiclient.RoleAdmin
}

// TableFor picks the conversation for role. Roles other than patient,
// doctor and admin have none.
func TableFor(role string) (Table, bool) {
	switch {
	case role == apiclient.RolePatient:
		return PatientTable, true
	case IsClinician(role):
		return ClinicianTable, true
	}
	return nil, false
}

// greeting is the opening message for user.
func greeting(user apiclient.User) string {
	name := user.DisplayName()
	const clinician = "I'm your clinical AI assistant. I can help you analyze patient symptoms, review medical images/reports, and provide differential diagnoses. Please describe the patient's presenting symptoms or health concern."
	switch user.Role {
	case apiclient.RolePatient:
		return fmt.Sprintf("Hello %s! I'm your AI Health Assistant. I'll ask you some questions to better understand your health concerns and provide personalized recommendations.", name)
	case apiclient.RoleDoctor:
		return fmt.Sprintf("Welcome, Dr. %s! %s", name, clinician)
	case apiclient.RoleAdmin:
		return fmt.Sprintf("Welcome, %s! %s", name, clinician)
	}
	return "Welcome! How can I help you today?"
}
