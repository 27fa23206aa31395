// Package console serves the portal views to a local front end as JSON over
// HTTP, with a websocket for the intake chat.
package console

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-portal/internal/account"
	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/bookings"
	"github.com/wolfman30/clinic-portal/internal/dashboard"
	"github.com/wolfman30/clinic-portal/internal/doctors"
	"github.com/wolfman30/clinic-portal/internal/exports"
	"github.com/wolfman30/clinic-portal/internal/intake"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/storage"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// API is every remote call the console drives.
type API interface {
	Login(ctx context.Context, identifier, password, role string) (*apiclient.LoginResult, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) error
	dashboard.AdminAPI
	dashboard.DoctorAPI
	bookings.API
	doctors.API
	doctors.PublicLister
	account.ProfileAPI
	account.PasswordAPI
	exports.PDFFetcher
}

// Config holds router configuration
type Config struct {
	Logger    *logging.Logger
	API       API
	Session   *session.Session
	Store     storage.Store
	Submitter *intake.Submitter
	// Exporter is optional; without it /history/export answers 503.
	Exporter *exports.Exporter
	Metrics  *metrics.PortalMetrics

	MetricsHandler       http.Handler
	NotificationCapacity int
	CORSAllowedOrigins   []string
	RateLimiter          *RateLimiter
}

// Handler serves the console routes.
type Handler struct {
	api       API
	session   *session.Session
	store     storage.Store
	submitter *intake.Submitter
	exporter  *exports.Exporter
	metrics   *metrics.PortalMetrics
	capacity  int
	origins   []string
	logger    *logging.Logger

	pwMu     sync.Mutex
	password *account.PasswordChange
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		api:       cfg.API,
		session:   cfg.Session,
		store:     cfg.Store,
		submitter: cfg.Submitter,
		exporter:  cfg.Exporter,
		metrics:   cfg.Metrics,
		capacity:  cfg.NotificationCapacity,
		origins:   cfg.CORSAllowedOrigins,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimiter != nil {
		r.Use(RateLimit(cfg.RateLimiter))
	}

	r.Get("/health", h.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Post("/session/login", h.Login)
	r.Post("/session/register", h.Register)
	r.Get("/session", h.SessionInfo)

	r.Group(func(authed chi.Router) {
		authed.Use(h.requireSession)
		authed.Post("/session/logout", h.Logout)

		authed.Get("/dashboard", h.Dashboard)
		authed.Get("/history", h.History)
		authed.Post("/history/export", h.ExportHistory)

		authed.Get("/bookings", h.ListBookings)
		authed.Post("/bookings", h.CreateBooking)
		authed.Post("/bookings/{id}/reschedule", h.RescheduleBooking)
		authed.Post("/bookings/{id}/cancel", h.CancelBooking)

		authed.Get("/doctors/contact", h.ContactDoctors)
		authed.Group(func(admin chi.Router) {
			admin.Use(h.requireRole(apiclient.RoleAdmin))
			admin.Get("/doctors", h.ListDoctors)
			admin.Post("/doctors", h.CreateDoctor)
			admin.Put("/doctors/{id}", h.UpdateDoctor)
			admin.Delete("/doctors/{id}", h.DeleteDoctor)
		})

		authed.Get("/notifications", h.ListNotifications)
		authed.Post("/notifications/read", h.MarkNotificationsRead)

		authed.Get("/profile", h.Profile)
		authed.Put("/profile", h.UpdateProfile)
		authed.Post("/password/otp", h.RequestOTP)
		authed.Post("/password", h.ChangePassword)

		authed.Get("/intake/ws", h.IntakeSocket)
	})

	return r
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.session.Authenticated() {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Please sign in first."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.session.Role() != role {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "You do not have access to this page."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
