package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/api", logging.Default(), opts...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestLogin_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "ann@example.com", r.URL.Query().Get("identifier"))
		assert.Equal(t, "secret", r.URL.Query().Get("password"))
		assert.Equal(t, "patient", r.URL.Query().Get("role"))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"token":"tok-1","user":{"id":7,"name":"Ann","email":"ann@example.com","role":"patient"}}`)
	})

	res, err := client.Login(context.Background(), "ann@example.com", "secret", RolePatient)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, Text("7"), res.User.ID)
	assert.Equal(t, "Ann", res.User.DisplayName())
}

func TestBearerTokenAttached(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"bookings":[]}`)
	}, WithTokenSource(staticToken("tok-9")))

	_, err := client.ListBookings(context.Background(), "")
	require.NoError(t, err)
}

func TestUnauthorized_RunsHookAndClassifies(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"error":"token expired"}`)
	}, WithTokenSource(staticToken("tok")), WithUnauthorizedHandler(func(context.Context) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := client.AdminOverview(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPError_UsesBodyMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"success":false,"error":"Doctor already exists"}`)
	}, WithTokenSource(staticToken("admin")))

	err := client.RegisterDoctor(context.Background(), DoctorForm{Name: "Dr. X"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Doctor already exists", Message(err))
}

func TestHTTPError_NonJSONFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failed", http.StatusBadGateway)
	})

	_, err := client.ListDoctors(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Something went wrong", Message(err))
}

func TestRejectedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"message":"Invalid credentials"}`)
	})

	_, err := client.Login(context.Background(), "x", "y", RoleAdmin)
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Invalid credentials", Message(err))
	assert.False(t, IsAuthError(err))
}

func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(ts.Close)
	client := New(ts.URL, nil, WithTimeout(20*time.Millisecond))

	_, err := client.ListDoctors(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "Something went wrong", Message(err))
}

func TestAdminCallsWithoutToken(t *testing.T) {
	var hit int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hit, 1)
	})

	_, err := client.ListAllDoctors(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Zero(t, atomic.LoadInt32(&hit))
}

func TestListAllDoctors_LooseTypes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/get-all-doctors", r.URL.Path)
		assert.Equal(t, "adm", r.URL.Query().Get("admin_token"))
		writeJSON(w, http.StatusOK, `{"success":true,"doctors":[{"id":3,"name":"Dr. Lee","department":"Cardiology","experience":12,"consultation_fee":"500","status":"Active","licence_no":"L-1"}]}`)
	}, WithTokenSource(staticToken("adm")))

	doctors, err := client.ListAllDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, Text("3"), doctors[0].ID)
	assert.Equal(t, Text("12"), doctors[0].Experience)
	assert.Equal(t, Text("500"), doctors[0].ConsultationFee)
}

func TestUpdateDoctor_OmitsEmptyPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/auth/update-doctor", r.URL.Path)
		assert.Equal(t, "d-1", q.Get("doctor_id"))
		assert.False(t, q.Has("password"))
		assert.Equal(t, "on_leave", q.Get("status"))
		writeJSON(w, http.StatusOK, `{"success":true}`)
	}, WithTokenSource(staticToken("adm")))

	err := client.UpdateDoctor(context.Background(), "d-1", DoctorForm{Name: "Dr. Lee", Status: DoctorOnLeave})
	require.NoError(t, err)
}

func TestBookingEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/bookings":
			assert.Equal(t, "Dr. Lee", q.Get("doctor_name"))
			writeJSON(w, http.StatusOK, `{"success":true,"bookings":[{"booking_id":11,"name":"Ann","doctor":"Dr. Lee","department":"Cardiology","appointment":"2026-03-01T10:30:00","status":"Confirmed"}]}`)
		case "/api/bookings/create":
			assert.Equal(t, "2026-03-02", q.Get("date"))
			assert.Equal(t, "09:15", q.Get("time"))
			writeJSON(w, http.StatusOK, `{"success":true,"booking_id":12}`)
		case "/api/bookings/update-status", "/api/bookings/update-appointment", "/api/bookings/delete":
			assert.Equal(t, "11", q.Get("booking_id"))
			writeJSON(w, http.StatusOK, `{"success":true}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	bookings, err := client.ListBookings(ctx, "Dr. Lee")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "confirmed", bookings[0].NormalizedStatus())
	at, ok := bookings[0].AppointmentTime()
	require.True(t, ok)
	assert.Equal(t, 10, at.Hour())

	id, err := client.CreateBooking(ctx, BookingRequest{PatientName: "Ann", DoctorName: "Dr. Lee", Date: "2026-03-02", Time: "09:15"})
	require.NoError(t, err)
	assert.Equal(t, "12", id)

	require.NoError(t, client.UpdateBookingStatus(ctx, "11", StatusCancelled))
	require.NoError(t, client.UpdateAppointment(ctx, "11", "2026-03-05", "11:00"))
	require.NoError(t, client.DeleteBooking(ctx, "11"))
}

func TestPredict_SendsRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var record map[string]interface{}
		assert.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("qna")), &record))
		assert.Equal(t, "headache", record["initial_concern"])
		writeJSON(w, http.StatusOK, `{"success":true,"prediction":{"disease":"Migraine","confidence":91,"severity":"Moderate","recommendations":"Rest","precautions":["Dark room"]}}`)
	})

	pred, err := client.Predict(context.Background(), map[string]interface{}{"initial_concern": "headache"})
	require.NoError(t, err)
	assert.Equal(t, "Migraine", pred.Label())
	assert.Equal(t, 91.0, pred.Confidence)
	assert.Equal(t, StringList{"Rest"}, pred.Recommendations)
	assert.Equal(t, StringList{"Dark room"}, pred.Precautions)
}

func TestPredict_EmptyPredictionRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	_, err := client.Predict(context.Background(), map[string]interface{}{})
	var rejected *RejectedError
	assert.True(t, errors.As(err, &rejected))
}

func TestGetPredictionsAndPDF(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/predictions/get":
			assert.Equal(t, "u-1", r.URL.Query().Get("user_id"))
			writeJSON(w, http.StatusOK, `{"success":true,"predictions":[{"id":1,"date":"2026-01-05","prediction":"Flu","symptoms":"fever, cough","severity":"Mild","confidence":88.5}],"count":0}`)
		case "/api/predictions/pdf":
			assert.Equal(t, "2026-01-05", r.URL.Query().Get("date"))
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		}
	})
	ctx := context.Background()

	list, err := client.GetPredictions(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total())
	assert.Equal(t, StringList{"fever, cough"}, list.Predictions[0].Symptoms)

	pdf, err := client.PredictionPDF(ctx, "u-1", "2026-01-05")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
}

func TestPasswordEndpointsUseJSONBodies(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/auth/change-password":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "old", body["currentPassword"])
			assert.Equal(t, "new", body["newPassword"])
		case "/api/auth/send-otp":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "ann@example.com", body["email"])
		case "/api/auth/reset-password-otp":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "123456", body["otp"])
		}
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	ctx := context.Background()

	require.NoError(t, client.ChangePassword(ctx, "old", "new"))
	require.NoError(t, client.SendOTP(ctx, "ann@example.com"))
	require.NoError(t, client.ResetPasswordWithOTP(ctx, "ann@example.com", "123456", "new"))
}

func TestAdminAnalytics(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "adm", r.URL.Query().Get("admin_token"))
		writeJSON(w, http.StatusOK, `{"success":true,"chart":{"bookings":[{"month":"Jan","bookings":4}],"predictions":[{"month":"Jan","predictions":9}]}}`)
	}, WithTokenSource(staticToken("adm")))

	chart, err := client.AdminAnalytics(context.Background())
	require.NoError(t, err)
	require.Len(t, chart.Bookings, 1)
	assert.Equal(t, 9, chart.Predictions[0].Predictions)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPortalMetrics(reg)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"error":"nope"}`)
	}, WithMetrics(m))

	_, _ = client.ListDoctors(context.Background())

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, fam := range families {
		if fam.GetName() != "clinic_portal_api_requests_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["endpoint"] == "doctors" && labels["outcome"] == "rejected" {
				found = true
				assert.Equal(t, 1.0, metric.GetCounter().GetValue())
			}
		}
	}
	assert.True(t, found)
}
