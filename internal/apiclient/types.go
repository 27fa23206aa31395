// Package apiclient is the HTTP client for the remote clinic API. The API is
// the source of truth for every entity; this package only moves them.
package apiclient

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Roles.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Doctor statuses.
const (
	DoctorActive  = "active"
	DoctorOnLeave = "on_leave"
)

// Text accepts JSON strings, numbers or null. The API is loose about the
// types of fee, experience and id columns.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(string(data))
	return nil
}

func (t Text) String() string { return string(t) }

// StringList accepts either a JSON array of strings or a single string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var s Text
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = StringList{string(s)}
	return nil
}

// User is the signed-in identity as returned by login.
type User struct {
	ID             Text   `json:"id"`
	Name           string `json:"name"`
	FullName       string `json:"full_name,omitempty"`
	Email          string `json:"email"`
	Phone          Text   `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	Role           string `json:"role"`
	LicenceNo      string `json:"licence_no,omitempty"`
	Department     string `json:"department,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Qualification  string `json:"qualification,omitempty"`
	Experience     Text   `json:"experience,omitempty"`
}

// DisplayName prefers name and falls back to full_name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.FullName
}

// Booking is an appointment request between a patient and a doctor.
type Booking struct {
	ID          Text   `json:"booking_id"`
	Name        string `json:"name"`
	Doctor      string `json:"doctor"`
	Department  string `json:"department"`
	Appointment string `json:"appointment"`
	Status      string `json:"status"`
}

var appointmentLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// AppointmentTime parses the appointment timestamp. Naive timestamps are
// read as UTC.
func (b Booking) AppointmentTime() (time.Time, bool) {
	return parseTimestamp(b.Appointment)
}

// NormalizedStatus lowercases the status, defaulting to pending.
func (b Booking) NormalizedStatus() string {
	s := strings.ToLower(strings.TrimSpace(b.Status))
	if s == "" {
		return StatusPending
	}
	return s
}

// Doctor is a doctor record as listed by the API.
type Doctor struct {
	ID              Text   `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Phone           Text   `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	Department      string `json:"department"`
	Specialization  string `json:"specialization"`
	Qualification   string `json:"qualification"`
	Experience      Text   `json:"experience"`
	ConsultationFee Text   `json:"consultation_fee"`
	Status          string `json:"status"`
	LicenceNo       string `json:"licence_no"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// Prediction is a persisted intake result.
type Prediction struct {
	ID         Text       `json:"id"`
	Date       string     `json:"date"`
	Prediction string     `json:"prediction"`
	Symptoms   StringList `json:"symptoms"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	Doctor     string     `json:"doctor"`
	Confidence float64    `json:"confidence"`
}

// DateTime parses the prediction date.
func (p Prediction) DateTime() (time.Time, bool) {
	return parseTimestamp(p.Date)
}

// PredictionList is the response of /predictions/get.
type PredictionList struct {
	Predictions []Prediction `json:"predictions"`
	Count       int          `json:"count"`
}

// Total prefers the server count and falls back to the list length.
func (l PredictionList) Total() int {
	if l.Count > 0 {
		return l.Count
	}
	return len(l.Predictions)
}

// ModelPrediction is the structured output of the remote prediction model.
type ModelPrediction struct {
	Disease          string     `json:"disease"`
	PredictedDisease string     `json:"predicted_disease,omitempty"`
	Confidence       float64    `json:"confidence"`
	Severity         string     `json:"severity"`
	Description      string     `json:"description"`
	Recommendations  StringList `json:"recommendations"`
	Symptoms         StringList `json:"symptoms"`
	Precautions      StringList `json:"precautions"`
	NextSteps        string     `json:"nextSteps"`
}

// Label returns the disease label under either key the model uses.
func (p ModelPrediction) Label() string {
	if p.Disease != "" {
		return p.Disease
	}
	return p.PredictedDisease
}

// SavePredictionRequest persists an intake result.
type SavePredictionRequest struct {
	UserID     string
	Disease    string
	Symptoms   string
	Severity   string
	DoctorName string
	Confidence float64
}

// DoctorForm carries create/update fields for a doctor record.
type DoctorForm struct {
	Name            string
	Email           string
	Password        string
	Phone           string
	Address         string
	Department      string
	Specialization  string
	Qualification   string
	Experience      string
	LicenceNo       string
	ConsultationFee string
	Status          string
}

// BookingRequest creates a booking.
type BookingRequest struct {
	PatientName string
	DoctorName  string
	Department  string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
}

// RegisterRequest creates a patient or generic account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Address  string
	Phone    string
	Role     string
}

// Overview is the admin headline counts.
type Overview struct {
	RegisteredPatients int `json:"registeredPatients"`
	Doctors            int `json:"doctors"`
	TotalBookings      int `json:"totalBookings"`
	Predictions        int `json:"predictions"`
}

// Patient is a patient row in the admin patient list.
type Patient struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   Text   `json:"phone"`
	Address string `json:"address"`
}

// MonthBookings is one month of the admin analytics chart.
type MonthBookings struct {
	Month    string `json:"month"`
	Bookings int    `json:"bookings"`
}

// MonthPredictions is one month of the admin analytics chart.
type MonthPredictions struct {
	Month       string `json:"month"`
	Predictions int    `json:"predictions"`
}

// Chart is the admin analytics payload.
type Chart struct {
	Bookings    []MonthBookings    `json:"bookings"`
	Predictions []MonthPredictions `json:"predictions"`
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range appointmentLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	// RFC1123 dates come back from some endpoints.
	if t, err := time.Parse(time.RFC1123, raw); err == nil {
		return t, true
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), true
	}
	return time.Time{}, false
}
