package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// ErrNotReady is returned when Submit is called before the flow finished.
var ErrNotReady = errors.New("intake: conversation not finished")

// Predictor calls the remote model.
type Predictor interface {
	Predict(ctx context.Context, record map[string]interface{}) (*apiclient.ModelPrediction, error)
}

// Saver persists a result.
type Saver interface {
	SavePrediction(ctx context.Context, req apiclient.SavePredictionRequest) error
}

// TokenSource yields the owner key predictions are saved under.
type TokenSource interface {
	Token() string
}

// Submitter turns a finished flow into a saved result.
type Submitter struct {
	predictor Predictor
	saver     Saver
	tokens    TokenSource
	heuristic *Heuristic
	metrics   *metrics.PortalMetrics
	logger    *logging.Logger
}

func NewSubmitter(predictor Predictor, saver Saver, tokens TokenSource, heuristic *Heuristic, m *metrics.PortalMetrics, logger *logging.Logger) *Submitter {
	if logger == nil {
		logger = logging.Default()
	}
	if heuristic == nil {
		heuristic = NewHeuristic(1)
	}
	return &Submitter{
		predictor: predictor,
		saver:     saver,
		tokens:    tokens,
		heuristic: heuristic,
		metrics:   m,
		logger:    logger,
	}
}

// Submit asks the remote model and falls back to the heuristic on any
// failure, then saves the result. Save failures are logged and reflected in
// Result.Saved only.
func (s *Submitter) Submit(ctx context.Context, flow *Flow) (*Result, error) {
	if !flow.Done() {
		return nil, ErrNotReady
	}
	user := flow.User()
	answers := flow.Answers()
	files := flow.Attachments()
	clinician := IsClinician(user.Role)

	var res Result
	pred, err := s.predictor.Predict(ctx, flow.Record())
	switch {
	case err != nil:
		s.logger.Warn("remote prediction failed; using heuristic", "error", err)
		res = s.fallback(clinician, answers, files)
	case clinician:
		res = fromModelClinician(pred, answers, files)
	default:
		res = fromModelPatient(pred, answers)
	}
	s.metrics.ObserveIntakeResult(res.Source)

	doctor := ""
	if user.Role == apiclient.RoleDoctor {
		doctor = user.DisplayName()
	}
	res.Saved = s.save(ctx, apiclient.SavePredictionRequest{
		Disease:    res.Disease,
		Symptoms:   strings.Join(res.Symptoms, ", "),
		Severity:   res.Severity,
		DoctorName: doctor,
		Confidence: res.Confidence,
	})
	return &res, nil
}

func (s *Submitter) fallback(clinician bool, answers map[State]string, files []Attachment) Result {
	if clinician {
		return s.heuristic.Clinician(answers, files)
	}
	return s.heuristic.Patient(answers)
}

func (s *Submitter) save(ctx context.Context, req apiclient.SavePredictionRequest) bool {
	owner := ""
	if s.tokens != nil {
		owner = s.tokens.Token()
	}
	if owner == "" {
		s.logger.Warn("skipping prediction save: not signed in")
		return false
	}
	req.UserID = owner
	if err := s.saver.SavePrediction(ctx, req); err != nil {
		s.logger.Error("failed to save prediction", "error", err, "disease", req.Disease)
		return false
	}
	return true
}

func fromModelPatient(p *apiclient.ModelPrediction, answers map[State]string) Result {
	score := SeverityScore(answers[StateSeverity])
	res := Result{
		Disease:         orDefault(p.Label(), "Unable to determine"),
		Confidence:      p.Confidence,
		Severity:        orDefault(p.Severity, SeverityLabel(score)),
		Description:     orDefault(p.Description, "Based on the symptoms provided, a professional evaluation is recommended."),
		Recommendations: p.Recommendations,
		Symptoms:        p.Symptoms,
		Precautions:     p.Precautions,
		NextSteps:       orDefault(p.NextSteps, NextSteps(score)),
		WhenToSeekHelp:  whenToSeekHelp,
		Answers:         answers,
		Source:          SourceRemote,
	}
	if res.Confidence == 0 {
		res.Confidence = 70
	}
	if len(res.Recommendations) == 0 {
		res.Recommendations = Recommendations(score)
	}
	if len(res.Symptoms) == 0 {
		res.Symptoms = []string{orDefault(answers[StateInitialConcern], "Based on provided information")}
	}
	if len(res.Precautions) == 0 {
		res.Precautions = []string{"Follow general health guidelines"}
	}
	return res
}

func fromModelClinician(p *apiclient.ModelPrediction, answers map[State]string, files []Attachment) Result {
	basis := "symptom evaluation"
	if len(files) > 0 {
		basis = "lab report analysis"
	}
	res := Result{
		Disease:          orDefault(p.Label(), "Clinical Assessment Required"),
		Confidence:       p.Confidence,
		Severity:         orDefault(p.Severity, "Moderate"),
		Description:      orDefault(p.Description, fmt.Sprintf("Based on the clinical presentation and %s, a professional assessment has been generated.", basis)),
		Recommendations:  p.Recommendations,
		Symptoms:         []string{symptomsText(answers)},
		Precautions:      p.Precautions,
		NextSteps:        p.NextSteps,
		ClinicalFindings: clinicalFindings(answers, files, true),
		Answers:          answers,
		Source:           SourceRemote,
	}
	if res.Confidence == 0 {
		res.Confidence = 85
	}
	if len(res.Recommendations) == 0 {
		res.Recommendations = Recommendations(defaultSeverity)
	}
	return res
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
