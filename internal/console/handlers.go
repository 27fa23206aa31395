package console

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-portal/internal/account"
	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/bookings"
	"github.com/wolfman30/clinic-portal/internal/dashboard"
	"github.com/wolfman30/clinic-portal/internal/doctors"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/view"
)

const confirmationRequired = "Confirmation required"

func (h *Handler) notes() *notify.Log {
	return notify.NewLog(h.store, h.session.UserID(), h.capacity, h.logger, h.metrics)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Role       string `json:"role"`
}

// Login exchanges credentials for a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "identifier, password and role are required"})
		return
	}
	res, err := h.api.Login(r.Context(), strings.TrimSpace(req.Identifier), req.Password, req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.session.Login(r.Context(), res.Token, res.User); err != nil {
		h.writeError(w, err)
		return
	}
	h.resetPassword()
	writeJSON(w, http.StatusOK, map[string]any{"user": res.User})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// Register creates an account. The user signs in afterwards.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name, email and password are required"})
		return
	}
	if req.Role == "" {
		req.Role = apiclient.RolePatient
	}
	err := h.api.Register(r.Context(), apiclient.RegisterRequest{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Address:  req.Address,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// Logout clears the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.resetPassword()
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// SessionInfo reports who is signed in.
func (h *Handler) SessionInfo(w http.ResponseWriter, _ *http.Request) {
	user, ok := h.session.User()
	if !ok || !h.session.Authenticated() {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"role":          user.Role,
		"user":          user,
	})
}

// Dashboard renders the signed-in role's dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	scope := view.Mount(r.Context())
	defer scope.Unmount()
	ctx := scope.Context()

	role := h.session.Role()
	var summary any
	switch role {
	case apiclient.RoleAdmin:
		d := dashboard.NewAdminDashboard(h.api, h.session, h.logger)
		d.Load(ctx, scope)
		summary = d.Summary()
	case apiclient.RoleDoctor:
		d := dashboard.NewDoctorDashboard(h.api, h.session, h.logger)
		d.Load(ctx, scope)
		summary = d.Summary()
	default:
		d := dashboard.NewPatientDashboard(h.api, h.session, h.notes(), h.logger)
		d.Load(ctx, scope)
		summary = map[string]any{
			"totalPredictions": d.Total(),
			"records":          d.Records(dashboard.Query{}),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"role": role, "summary": summary})
}

func historyQuery(r *http.Request) dashboard.Query {
	q := r.URL.Query()
	return dashboard.Query{Search: q.Get("search"), Filter: q.Get("filter"), Sort: q.Get("sort")}
}

func (h *Handler) loadHistory(r *http.Request) (*dashboard.History, func()) {
	scope := view.Mount(r.Context())
	hist := dashboard.NewHistory(h.api, h.session, h.notes(), h.logger)
	hist.Load(scope.Context(), scope)
	return hist, scope.Unmount
}

// History lists the user's predictions with search, filter and sort.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	hist, done := h.loadHistory(r)
	defer done()
	q := historyQuery(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"records": hist.Records(q),
		"total":   hist.Total(),
		"stats":   hist.Stats(),
	})
}

// ExportHistory writes the report of every distinct date in the filtered
// history to the export sink.
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "exports are not configured"})
		return
	}
	user, _ := h.session.User()
	hist, done := h.loadHistory(r)
	defer done()
	written, err := h.exporter.ExportAll(r.Context(), h.session.Token(), user.ID.String(), hist.ExportDates(historyQuery(r)))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"written": written})
}

type appointmentView struct {
	bookings.Appointment
	Badge bookings.Badge `json:"badge"`
}

func appointmentViews(items []bookings.Appointment) []appointmentView {
	out := make([]appointmentView, 0, len(items))
	for _, a := range items {
		out = append(out, appointmentView{Appointment: a, Badge: bookings.BadgeFor(a.Status)})
	}
	return out
}

func (h *Handler) loadBookings(r *http.Request) (*bookings.Manager, func()) {
	scope := view.Mount(r.Context())
	m := bookings.NewManager(h.api, h.session, h.logger)
	m.Load(scope.Context(), scope)
	return m, scope.Unmount
}

// ListBookings lists the user's appointments, optionally by ?status=.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	m, done := h.loadBookings(r)
	defer done()
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appointmentViews(m.Filter(r.URL.Query().Get("status"))),
	})
}

type createBookingRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// CreateBooking books the chosen doctor from the contact list.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	scope := view.Mount(r.Context())
	defer scope.Unmount()

	var doc apiclient.Doctor
	if req.DoctorID != "" {
		contact := doctors.NewContact(h.api, h.logger)
		contact.Load(scope.Context(), scope)
		found, ok := contact.Find(req.DoctorID)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Doctor not found"})
			return
		}
		doc = found
	}
	m := bookings.NewManager(h.api, h.session, h.logger)
	id, err := m.Create(scope.Context(), bookings.Request{Doctor: doc, Date: req.Date, Time: req.Time})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"booking_id": id})
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// RescheduleBooking moves a booking to a new slot.
func (h *Handler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	m, done := h.loadBookings(r)
	defer done()
	if err := m.Reschedule(r.Context(), chi.URLParam(r, "id"), req.Date, req.Time); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointmentViews(m.Filter(bookings.FilterAll))})
}

// CancelBooking cancels a booking. Requires ?confirm=true.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	m, done := h.loadBookings(r)
	defer done()
	issued, err := m.Cancel(r.Context(), chi.URLParam(r, "id"), confirmed(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !issued {
		writeJSON(w, http.StatusPreconditionRequired, errorBody{Error: confirmationRequired})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointmentViews(m.Filter(bookings.FilterAll))})
}

// ContactDoctors searches the public doctor list.
func (h *Handler) ContactDoctors(w http.ResponseWriter, r *http.Request) {
	scope := view.Mount(r.Context())
	defer scope.Unmount()
	c := doctors.NewContact(h.api, h.logger)
	c.Load(scope.Context(), scope)
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]any{
		"doctors":     c.Search(q.Get("q"), q.Get("specialty")),
		"specialties": c.Specialties(),
	})
}

func (h *Handler) loadDirectory(r *http.Request) (*doctors.Directory, *view.Scope) {
	scope := view.Mount(r.Context())
	d := doctors.NewDirectory(h.api, h.logger)
	d.Load(scope.Context(), scope)
	return d, scope
}

func directoryView(d *doctors.Directory, search, department string) map[string]any {
	return map[string]any{
		"doctors":     d.Filter(search, department),
		"stats":       d.Stats(),
		"departments": doctors.Departments,
	}
}

// ListDoctors is the admin doctor directory.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	d, scope := h.loadDirectory(r)
	defer scope.Unmount()
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, directoryView(d, q.Get("search"), q.Get("department")))
}

// CreateDoctor registers a doctor.
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var form doctors.Form
	if err := decodeJSON(r, &form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	scope := view.Mount(r.Context())
	defer scope.Unmount()
	d := doctors.NewDirectory(h.api, h.logger)
	if err := d.Create(scope.Context(), scope, form); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, directoryView(d, "", ""))
}

// UpdateDoctor edits a doctor.
func (h *Handler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	var form doctors.Form
	if err := decodeJSON(r, &form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	scope := view.Mount(r.Context())
	defer scope.Unmount()
	d := doctors.NewDirectory(h.api, h.logger)
	if err := d.Update(scope.Context(), scope, chi.URLParam(r, "id"), form); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, directoryView(d, "", ""))
}

// DeleteDoctor removes a doctor. Requires ?confirm=true.
func (h *Handler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	d, scope := h.loadDirectory(r)
	defer scope.Unmount()
	issued, err := d.Delete(r.Context(), chi.URLParam(r, "id"), confirmed(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !issued {
		writeJSON(w, http.StatusPreconditionRequired, errorBody{Error: confirmationRequired})
		return
	}
	writeJSON(w, http.StatusOK, directoryView(d, "", ""))
}

// ListNotifications returns the log, newest first, with the unread count.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.notes().List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items, "unread": unread})
}

// MarkNotificationsRead marks every entry read.
func (h *Handler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notes().MarkAllRead(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": 0})
}

// Profile renders the profile page with role quick stats.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, _ := h.session.User()
	scope := view.Mount(r.Context())
	defer scope.Unmount()
	profile := account.NewProfile(h.api, h.session, h.logger)
	if err := profile.LoadStats(scope.Context(), scope); err != nil {
		h.writeError(w, err)
		return
	}
	stats, _ := profile.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"roleLabel": account.RoleLabel(user.Role),
		"initials":  account.Initials(user.DisplayName()),
		"stats":     stats,
	})
}

// UpdateProfile edits the profile fields.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := decodeJSON(r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	user, err := account.NewProfile(h.api, h.session, h.logger).Update(r.Context(), fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// passwordChange is the open change-password dialog. It outlives one request
// so a requested OTP unlocks the following submit.
func (h *Handler) passwordChange() *account.PasswordChange {
	h.pwMu.Lock()
	defer h.pwMu.Unlock()
	if h.password == nil {
		h.password = account.NewPasswordChange(h.api, h.session, h.logger)
	}
	return h.password
}

func (h *Handler) resetPassword() {
	h.pwMu.Lock()
	h.password = nil
	h.pwMu.Unlock()
}

// RequestOTP mails a verification code for the OTP password flow.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	pc := h.passwordChange()
	if err := pc.SetMode(account.ModeOTP); err != nil {
		h.writeError(w, err)
		return
	}
	if err := pc.RequestOTP(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"otpSent": true})
}

type passwordRequest struct {
	Mode string `json:"mode"`
	account.PasswordForm
}

// ChangePassword submits the password form in the requested mode.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	pc := h.passwordChange()
	if req.Mode != "" {
		if err := pc.SetMode(req.Mode); err != nil {
			h.writeError(w, err)
			return
		}
	}
	pc.Fill(req.PasswordForm)
	if err := pc.Submit(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}
