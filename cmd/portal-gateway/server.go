package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Sternrassler/alumni-portal-client/pkg/client"
	"github.com/Sternrassler/alumni-portal-client/pkg/gallery"
	"github.com/Sternrassler/alumni-portal-client/pkg/mentorship"
	"github.com/Sternrassler/alumni-portal-client/pkg/metrics"
	"github.com/Sternrassler/alumni-portal-client/pkg/portal"
	"github.com/Sternrassler/alumni-portal-client/pkg/session"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type sessionKey struct{}

// backend is what readiness needs from the request client.
type backend interface {
	BreakerState() gobreaker.State
}

type server struct {
	pages   *portal.Pages
	backend backend
	redis   *redis.Client
	logger  zerolog.Logger
}

func newServer(pages *portal.Pages, b backend, redisClient *redis.Client, logger zerolog.Logger) *server {
	return &server{
		pages:   pages,
		backend: b,
		redis:   redisClient,
		logger:  logger,
	}
}

func (s *server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/pages", func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/mentorship", s.mentorshipHub)
		r.Get("/mentors", s.mentorDirectory)
		r.Get("/mentors/{id}", s.mentorDetail)
		r.Post("/mentors/by-user/{userID}/requests", s.requestMentorship)
		r.Get("/apply-mentor", s.applyMentorForm)
		r.Post("/apply-mentor", s.applyMentor)
		r.Get("/my-mentorships", s.myMentorships)
		r.Put("/my-mentorships/{id}", s.updateMentorship)
		r.Get("/gallery", s.gallery)
		r.Get("/eligibility", s.eligibility)
		r.Get("/rooms", s.rooms)
		r.Get("/administration", s.administration)
		r.Post("/{page}/retry", s.retry)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// readyHandler fails while Redis is unreachable or the backend breaker is open.
func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	if s.backend != nil && s.backend.BreakerState() == gobreaker.StateOpen {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status_code", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Gateway request")
	})
}

// withSession turns the inbound Authorization header into the explicit
// session. A malformed header is rejected; no header means anonymous.
func (s *server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid authorization")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

func (s *server) mentorshipHub(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.MentorshipHub())
}

func (s *server) mentorDirectory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := mentorship.MentorFilter{
		Expertise: q.Get("expertise"),
		Company:   q.Get("company"),
	}
	writeJSON(w, http.StatusOK, s.pages.MentorDirectory(r.Context(), sessionFrom(r.Context()), filter, q.Get("search")))
}

func (s *server) mentorDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view := s.pages.MentorDetail(r.Context(), sessionFrom(r.Context()), id)
	status := http.StatusOK
	if view.RequiresLogin {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, view)
}

func (s *server) requestMentorship(w http.ResponseWriter, r *http.Request) {
	mentorUserID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	notice := s.pages.RequestMentorship(r.Context(), sessionFrom(r.Context()), mentorUserID)
	writeJSON(w, statusFor(notice.Err(), http.StatusCreated), notice)
}

func (s *server) applyMentorForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.ApplyMentorForm(sessionFrom(r.Context())))
}

func (s *server) applyMentor(w http.ResponseWriter, r *http.Request) {
	var app mentorship.MentorApplication
	if !decodeBody(w, r, &app) {
		return
	}
	view := s.pages.ApplyMentor(r.Context(), sessionFrom(r.Context()), app)
	writeJSON(w, statusFor(view.Notice.Err(), http.StatusCreated), view)
}

func (s *server) myMentorships(w http.ResponseWriter, r *http.Request) {
	view := s.pages.MyMentorships(r.Context(), sessionFrom(r.Context()), r.URL.Query().Get("tab"))
	status := http.StatusOK
	if view.RequiresLogin {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, view)
}

func (s *server) updateMentorship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in mentorship.UpdateRequestInput
	if !decodeBody(w, r, &in) {
		return
	}

	req, notice := s.pages.UpdateMentorship(r.Context(), sessionFrom(r.Context()), id, in)
	resp := struct {
		Request *mentorship.MentorshipRequest `json:"request,omitempty"`
		Notice  *portal.Notice                `json:"notice"`
		Fields  map[string]string             `json:"field_errors,omitempty"`
	}{Request: req, Notice: notice}

	var verr *mentorship.ValidationError
	if errors.As(notice.Err(), &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, statusFor(notice.Err(), http.StatusOK), resp)
}

func (s *server) gallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := gallery.Filter{
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Search:   q.Get("search"),
	}
	writeJSON(w, http.StatusOK, s.pages.Gallery(r.Context(), filter))
}

func (s *server) eligibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.pages.Eligibility(q.Get("search"), portal.ParseExpanded(q.Get("expanded"))))
}

func (s *server) rooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.RoomsFacilities(portal.ParseExpanded(r.URL.Query().Get("expanded"))))
}

func (s *server) administration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pages.Administration())
}

func (s *server) retry(w http.ResponseWriter, r *http.Request) {
	page := portal.PageID(chi.URLParam(r, "page"))
	n, err := s.pages.Retry(r.Context(), sessionFrom(r.Context()), page)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page, "invalidated": n})
}

// statusFor maps a failed action to a response status; ok is used when
// err is nil.
func statusFor(err error, ok int) int {
	if err == nil {
		return ok
	}

	var verr *mentorship.ValidationError
	var apiErr *client.APIError
	var netErr *client.NetworkError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400:
		return apiErr.StatusCode
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
