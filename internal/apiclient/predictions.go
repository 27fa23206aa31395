package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Predict sends an intake record to the remote model. A response without a
// prediction is reported as a rejection.
func (c *Client) Predict(ctx context.Context, record map[string]interface{}) (*ModelPrediction, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("predict: marshal record: %w", err)
	}
	q := url.Values{}
	q.Set("qna", string(payload))
	var out struct {
		Prediction *ModelPrediction `json:"prediction"`
	}
	if err := c.get(ctx, "predict", "/predict", q, &out); err != nil {
		return nil, err
	}
	if out.Prediction == nil {
		return nil, fmt.Errorf("predict: %w", &RejectedError{Message: "empty prediction"})
	}
	return out.Prediction, nil
}

// SavePrediction persists a computed result.
func (c *Client) SavePrediction(ctx context.Context, req SavePredictionRequest) error {
	q := url.Values{}
	q.Set("user_id", req.UserID)
	q.Set("predicted_disease", req.Disease)
	q.Set("symptoms", req.Symptoms)
	q.Set("severity", req.Severity)
	q.Set("doctor_name", req.DoctorName)
	q.Set("confidence", strconv.FormatFloat(req.Confidence, 'f', -1, 64))
	return c.get(ctx, "save_prediction", "/predictions/save", q, nil)
}

// GetPredictions lists the predictions recorded for userID.
func (c *Client) GetPredictions(ctx context.Context, userID string) (*PredictionList, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	var out PredictionList
	if err := c.get(ctx, "get_predictions", "/predictions/get", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictionPDF downloads the report for userID on date (YYYY-MM-DD).
func (c *Client) PredictionPDF(ctx context.Context, userID, date string) ([]byte, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("date", date)
	return c.do(ctx, "prediction_pdf", http.MethodGet, "/predictions/pdf?"+q.Encode(), nil, nil)
}
