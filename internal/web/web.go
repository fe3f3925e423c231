package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"time"

	"surgcal/internal/calgrid"
	"surgcal/internal/config"
	appLog "surgcal/internal/log"
)

// EventLister supplies the current immutable event snapshot.
type EventLister interface {
	Events() []calgrid.CalendarEvent
}

// Server serves the month calendar as JSON and as a server-rendered page.
// It holds no calendar state of its own: the displayed month and selected
// date travel in the query string and the grid is rebuilt per request.
type Server struct {
	cfg    *config.Config
	events EventLister
	now    func() time.Time
	loc    *time.Location
	mux    *http.ServeMux
	page   *template.Template
}

//go:embed templates/calendar.html
var templateFS embed.FS

// NewServer constructs a Server. now is the clock used for "today"; nil
// means time.Now.
func NewServer(cfg *config.Config, events EventLister, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{
		cfg:    cfg,
		events: events,
		now:    now,
		loc:    resolveLocationOrLocal(cfg.Timezone),
		mux:    http.NewServeMux(),
		page: template.Must(template.New("calendar.html").
			Funcs(template.FuncMap{"longDate": longDate, "statusCount": statusCount}).
			ParseFS(templateFS, "templates/calendar.html")),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe binds cfg.Listen and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/calendar", s.handleCalendarAPI)
	s.mux.HandleFunc("/api/events", s.handleEventsAPI)
	s.mux.HandleFunc("/calendar", s.handleCalendarPage)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured with both
// a username and a password.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every route except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="surgcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// monthView is everything one rendering of the calendar needs.
type monthView struct {
	Grid           calgrid.Grid
	WeekStart      time.Weekday
	Today          calgrid.Date
	Selected       calgrid.Date
	SelectedEvents []calgrid.CalendarEvent
	Summary        calgrid.Summary
}

// Weeks and Headers are used by the page template.
func (v monthView) Weeks() [][]*calgrid.DayCell { return v.Grid.Weeks(v.WeekStart) }
func (v monthView) Headers() []string          { return calgrid.WeekdayHeaders(v.WeekStart) }

// buildView resolves ?month=YYYY-MM and ?selected=YYYY-MM-DD. Selected
// defaults to today; month defaults to the selected date's month.
func (s *Server) buildView(q url.Values) (monthView, error) {
	today := calgrid.DateOf(s.now().In(s.loc))

	selected := today
	if v := q.Get("selected"); v != "" {
		d, err := calgrid.ParseDate(v)
		if err != nil {
			return monthView{}, err
		}
		selected = d
	}

	cursor := selected.Cursor()
	if v := q.Get("month"); v != "" {
		c, err := calgrid.ParseCursor(v)
		if err != nil {
			return monthView{}, err
		}
		cursor = c
	}

	events := s.events.Events()
	grid, err := calgrid.BuildGrid(cursor, events, today, selected)
	if err != nil {
		return monthView{}, err
	}

	return monthView{
		Grid:           grid,
		WeekStart:      s.cfg.FirstWeekday(),
		Today:          today,
		Selected:       selected,
		SelectedEvents: calgrid.EventsOnDate(events, selected),
		Summary:        calgrid.Summarize(calgrid.EventsInMonth(events, cursor)),
	}, nil
}

// handleCalendarAPI returns the grid model for one month.
//
// GET /api/calendar?month=2024-02&selected=2024-02-14
func (s *Server) handleCalendarAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	view, err := s.buildView(r.URL.Query())
	if err != nil {
		s.writeInvalid(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCalendarResponse(view, s.cfg.WeekStart))
}

// handleEventsAPI lists the events on one date.
//
// GET /api/events?date=2024-02-14
func (s *Server) handleEventsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := r.URL.Query().Get("date")
	if raw == "" {
		raw = calgrid.DateOf(s.now().In(s.loc)).String()
	}
	date, err := calgrid.ParseDate(raw)
	if err != nil {
		s.writeInvalid(w, err)
		return
	}
	events := calgrid.EventsOnDate(s.events.Events(), date)
	writeJSON(w, http.StatusOK, eventsResponse{
		Date:   date.String(),
		Count:  len(events),
		Events: toEventDTOs(events),
	})
}

// handleCalendarPage renders the month as HTML. The root element carries
// data-ready="true" for the snapshot capture to wait on.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.buildView(r.URL.Query())
	if err != nil {
		appLog.Debug("calendar page: bad query", "query", r.URL.RawQuery, "cause", err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, view); err != nil {
		appLog.Error("calendar page render failed", err)
	}
}

// writeInvalid reports an invalid request with an empty grid so clients
// can fall back to a blank calendar.
func (s *Server) writeInvalid(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, calgrid.ErrInvalidArgument) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, invalidResponse{Error: err.Error(), Cells: []cellDTO{}})
}

func longDate(d calgrid.Date) string {
	if d.IsZero() {
		return ""
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Format("Monday, January 2")
}

func statusCount(s calgrid.Summary, status string) int {
	return s.ByStatus[calgrid.Status(status)]
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
