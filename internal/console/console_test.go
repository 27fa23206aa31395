package console

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/exports"
	"github.com/wolfman30/clinic-portal/internal/intake"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/storage"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// fakeClinic is an in-process stand-in for the remote clinic API.
type fakeClinic struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeClinic) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.URL.Path+"?"+r.URL.RawQuery)
}

func (f *fakeClinic) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func reply(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newFakeClinic(t *testing.T) (*httptest.Server, *fakeClinic) {
	t.Helper()
	f := &fakeClinic{}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("role") {
		case "admin":
			reply(w, `{"success":true,"token":"tok-admin","user":{"id":"a1","name":"Root","email":"root@clinic.test","role":"admin"}}`)
		case "patient":
			if r.URL.Query().Get("password") != "secret" {
				reply(w, `{"success":false,"error":"Invalid credentials"}`)
				return
			}
			reply(w, `{"success":true,"token":"tok-patient","user":{"id":"p1","name":"Ann","email":"ann@clinic.test","role":"patient"}}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"bookings":[
			{"booking_id":"b1","name":"Ann","doctor":"Dr. Ray","department":"Cardiology","appointment":"2025-03-01T10:00:00","status":"pending"},
			{"booking_id":"b2","name":"Bob","doctor":"Dr. Ray","department":"Cardiology","appointment":"2025-03-02T11:00:00","status":"confirmed"}
		]}`)
	})
	doctorsBody := `{"doctors":[{"id":"d1","name":"Dr. Ray","department":"Cardiology","specialization":"Cardiology","status":"active"}]}`
	mux.HandleFunc("/doctors", func(w http.ResponseWriter, r *http.Request) { reply(w, doctorsBody) })
	mux.HandleFunc("/auth/get-all-doctors", func(w http.ResponseWriter, r *http.Request) { reply(w, doctorsBody) })
	mux.HandleFunc("/bookings/create", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"success":true,"booking_id":77}`)
	})
	mux.HandleFunc("/predictions/get", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"predictions":[{"id":5,"date":"2025-03-01T10:00:00","prediction":"Flu","severity":"Mild","confidence":80,"status":"completed"}],"count":1}`)
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"prediction":{"disease":"Common Cold","confidence":82,"severity":"Mild"}}`)
	})
	mux.HandleFunc("/predictions/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-" + r.URL.Query().Get("date")))
	})
	for _, path := range []string{"/bookings/update-status", "/bookings/update-appointment", "/doctors/delete", "/predictions/save"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) { reply(w, `{"success":true}`) })
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, f
}

func newConsole(t *testing.T, remoteURL string) (http.Handler, *session.Session) {
	t.Helper()
	return newConsoleWithExportDir(t, remoteURL, "")
}

func newConsoleWithExportDir(t *testing.T, remoteURL, exportDir string) (http.Handler, *session.Session) {
	t.Helper()
	logger := logging.New("error")
	store := storage.NewMemoryStore()
	sess := session.New(store, logger)
	client := apiclient.New(remoteURL, logger,
		apiclient.WithTokenSource(sess),
		apiclient.WithUnauthorizedHandler(sess.HandleUnauthorized),
	)
	cfg := &Config{
		Logger:    logger,
		API:       client,
		Session:   sess,
		Store:     store,
		Submitter: intake.NewSubmitter(client, client, sess, intake.NewHeuristic(1), nil, logger),
	}
	if exportDir != "" {
		cfg.Exporter = exports.NewExporter(client, exports.NewDirSink(exportDir), logger)
	}
	router := New(cfg)
	return router, sess
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func login(t *testing.T, h http.Handler, role string) {
	t.Helper()
	w := do(t, h, http.MethodPost, "/session/login", `{"identifier":"x@clinic.test","password":"secret","role":"`+role+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthAndAuthGate(t *testing.T) {
	srv, _ := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/bookings", "").Code)

	info := decode(t, do(t, h, http.MethodGet, "/session", ""))
	assert.Equal(t, false, info["authenticated"])
}

func TestLoginValidationAndRejection(t *testing.T) {
	srv, _ := newFakeClinic(t)
	h, sess := newConsole(t, srv.URL)

	w := do(t, h, http.MethodPost, "/session/login", `{"identifier":"","password":"x","role":"patient"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/session/login", `{"identifier":"ann","password":"wrong","role":"patient"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["error"])
	assert.False(t, sess.Authenticated())
}

func TestLoginAndLogout(t *testing.T) {
	srv, _ := newFakeClinic(t)
	h, sess := newConsole(t, srv.URL)

	login(t, h, "patient")
	assert.True(t, sess.Authenticated())
	info := decode(t, do(t, h, http.MethodGet, "/session", ""))
	assert.Equal(t, true, info["authenticated"])
	assert.Equal(t, "patient", info["role"])

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/session/logout", "").Code)
	assert.False(t, sess.Authenticated())
}

func TestPatientBookingsAreOwnOnly(t *testing.T) {
	srv, _ := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)
	login(t, h, "patient")

	w := do(t, h, http.MethodGet, "/bookings", "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["appointments"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "b1", first["id"])
	assert.Equal(t, "Pending", first["badge"].(map[string]any)["label"])
}

func TestCancelRequiresConfirmation(t *testing.T) {
	srv, clinic := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)
	login(t, h, "patient")

	w := do(t, h, http.MethodPost, "/bookings/b1/cancel", "")
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.False(t, clinic.called("/bookings/update-status"))

	w = do(t, h, http.MethodPost, "/bookings/b1/cancel?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, clinic.called("/bookings/update-status?booking_id=b1&status=cancelled"))
	first := decode(t, w)["appointments"].([]any)[0].(map[string]any)
	assert.Equal(t, "cancelled", first["status"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/bookings/b2/cancel?confirm=true", "").Code)
}

func TestRescheduleValidation(t *testing.T) {
	srv, clinic := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)
	login(t, h, "patient")

	w := do(t, h, http.MethodPost, "/bookings/b1/reschedule", `{"date":"2025-04-01","time":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date and time are required", decode(t, w)["error"])
	assert.False(t, clinic.called("/bookings/update-appointment"))

	w = do(t, h, http.MethodPost, "/bookings/b1/reschedule", `{"date":"2025-04-01","time":"09:30"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, clinic.called("/bookings/update-appointment"))
}

func TestCreateBookingFromContactList(t *testing.T) {
	srv, clinic := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)
	login(t, h, "patient")

	w := do(t, h, http.MethodPost, "/bookings", `{"doctorId":"d1","date":"2025-04-01","time":"09:30"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "77", decode(t, w)["booking_id"])
	assert.True(t, clinic.called("/bookings/create"))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/bookings", `{"doctorId":"zz","date":"2025-04-01","time":"09:30"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/bookings", `{"date":"2025-04-01","time":"09:30"}`).Code)
}

func TestDoctorDirectoryIsAdminOnly(t *testing.T) {
	srv, clinic := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)

	login(t, h, "patient")
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/doctors", "").Code)

	login(t, h, "admin")
	w := do(t, h, http.MethodGet, "/doctors", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["doctors"], 1)

	assert.Equal(t, http.StatusPreconditionRequired, do(t, h, http.MethodDelete, "/doctors/d1", "").Code)
	w = do(t, h, http.MethodDelete, "/doctors/d1?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, clinic.called("/doctors/delete?admin_token=tok-admin&doctor_id=d1"))
	assert.Empty(t, decode(t, w)["doctors"])
}

func TestHistoryRaisesNotifications(t *testing.T) {
	srv, _ := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)
	login(t, h, "patient")

	w := do(t, h, http.MethodGet, "/history?sort=confidence", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	// A second load must not duplicate entries.
	do(t, h, http.MethodGet, "/history", "")
	notes := decode(t, do(t, h, http.MethodGet, "/notifications", ""))
	assert.Len(t, notes["notifications"], 1)
	assert.Equal(t, float64(1), notes["unread"])

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/notifications/read", "").Code)
	notes = decode(t, do(t, h, http.MethodGet, "/notifications", ""))
	assert.Equal(t, float64(0), notes["unread"])
}

func TestExportWithoutSinkIsUnavailable(t *testing.T) {
	srv, _ := newFakeClinic(t)
	h, _ := newConsole(t, srv.URL)
	login(t, h, "patient")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/history/export", "").Code)
}

func TestExportNamesFilesByUserID(t *testing.T) {
	srv, clinic := newFakeClinic(t)
	dir := t.TempDir()
	h, _ := newConsoleWithExportDir(t, srv.URL, dir)
	login(t, h, "patient")

	w := do(t, h, http.MethodPost, "/history/export", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, clinic.called("/predictions/pdf?date=2025-03-01&user_id=tok-patient"))

	var out struct {
		Written []string `json:"written"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Written, 1)
	assert.Equal(t, filepath.Join(dir, "predictions", "p1", "2025-03-01.pdf"), out.Written[0])
	assert.NotContains(t, w.Body.String(), "tok-patient")

	err := filepath.WalkDir(dir, func(path string, _ fs.DirEntry, err error) error {
		require.NoError(t, err)
		assert.NotContains(t, path, "tok-patient")
		return nil
	})
	require.NoError(t, err)
}

func TestRemote401SignsOut(t *testing.T) {
	srv, _ := newFakeClinic(t)
	h, sess := newConsole(t, srv.URL)
	require.NoError(t, sess.Login(context.Background(), "tok-x", apiclient.User{ID: "x", Role: "doctor", Name: "Dr. X"}))

	w := do(t, h, http.MethodPost, "/session/login", `{"identifier":"x","password":"y","role":"doctor"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, sess.Authenticated())
}

func TestIntakeSocketPatientFlow(t *testing.T) {
	clinicSrv, clinic := newFakeClinic(t)
	h, _ := newConsole(t, clinicSrv.URL)
	login(t, h, "patient")

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/intake/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first ChatOutbound
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "session", first.Type)
	assert.NotEmpty(t, first.SessionID)

	for i := 0; i < 10; i++ {
		require.NoError(t, conn.WriteJSON(ChatInbound{Type: "message", Text: "none"}))
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var result *intake.Result
	for result == nil {
		var msg ChatOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "result" {
			result = msg.Result
		}
	}
	assert.Equal(t, "Common Cold", result.Disease)
	assert.Equal(t, intake.SourceRemote, result.Source)
	assert.True(t, result.Saved)
	assert.True(t, clinic.called("/predictions/save?"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(time.Hour)
	assert.Equal(t, 2, rl.Sweep(time.Minute))
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewRateLimiter(0.001, 1))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/bookings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
