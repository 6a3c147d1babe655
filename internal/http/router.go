package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"symptom-insights/internal/auth"
	"symptom-insights/internal/core"
	"symptom-insights/internal/db"
	"symptom-insights/internal/observability"
	"symptom-insights/internal/records"
	"symptom-insights/pkg"
)

const (
	// maxBodyBytes limits every request body.
	maxBodyBytes = 1 << 20
	// statusClientClosedRequest is the non-standard status used when the
	// caller cancelled the request.
	statusClientClosedRequest = 499
)

// InsightHistory is the read side of the insight store.
type InsightHistory interface {
	ListInsights(ctx context.Context, limit int) ([]pkg.InsightRecord, error)
	GetInsight(ctx context.Context, id string) (*pkg.InsightRecord, error)
	Ping(ctx context.Context) error
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.Server.  History and
// Auth may be nil; a nil Auth leaves every route open.
type Server struct {
	Insights *core.InsightService
	History  InsightHistory
	Auth     *auth.Authenticator
	Metrics  *observability.Metrics
	Log      *logrus.Logger

	router chi.Router
}

// NewServer constructs a Server and its routes.
func NewServer(insights *core.InsightService, history InsightHistory, authn *auth.Authenticator, metrics *observability.Metrics, log *logrus.Logger) *Server {
	if log == nil {
		log = observability.DiscardLogger()
	}
	s := &Server{
		Insights: insights,
		History:  history,
		Auth:     authn,
		Metrics:  metrics,
		Log:      log,
	}
	s.router = s.routes()
	return s
}

// ServeHTTP dispatches to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.Log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(limitBody)
	r.Use(cors)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	if s.Auth != nil {
		r.Post("/token", s.handleLogin)
	}

	r.Group(func(api chi.Router) {
		if s.Auth != nil {
			api.Use(s.Auth.Middleware(s.respondError))
		}
		api.Post("/getPrompts", s.handleGetPrompts)
		api.Post("/getDiseasePrompts", s.handleGetDiseasePrompts)
		api.Post("/getAIinsights", s.handleGetAIInsights)
		api.Post("/convertToJson", s.handleConvert)
		api.Post("/convertToJson/batch", s.handleConvertBatch)
		api.Post("/insights", s.handleAnalyze)
		api.Post("/aiResponse", s.handleAnalyzeRemote)
		api.Get("/insights", s.handleListInsights)
		api.Get("/insights/{id}", s.handleGetInsight)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Detail: "no route for " + r.Method + " " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Detail: r.Method + " is not allowed on " + r.URL.Path})
	})
	return r
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// statusFor maps an error kind to its HTTP status and error code.  Context
// errors are checked first so a timed out assistant call is a 504 rather
// than a 502.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "client_closed_request"
	case errors.Is(err, core.ErrMalformedInput):
		return http.StatusBadRequest, "malformed_input"
	case errors.Is(err, core.ErrUnknownTemplate):
		return http.StatusBadRequest, "unknown_template"
	case errors.Is(err, core.ErrEmptyReply):
		return http.StatusBadRequest, "empty_reply"
	case errors.Is(err, core.ErrInvalidReplyFormat):
		return http.StatusUnprocessableEntity, "invalid_reply_format"
	case errors.Is(err, core.ErrAssistantCall):
		return http.StatusBadGateway, "assistant_error"
	case errors.Is(err, core.ErrRunFailed):
		return http.StatusBadGateway, "run_failed"
	case errors.Is(err, records.ErrInvalidTarget):
		return http.StatusBadRequest, "invalid_records_target"
	case errors.Is(err, core.ErrRecordsDisabled):
		return http.StatusServiceUnavailable, "records_disabled"
	case errors.Is(err, records.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	entry := s.Log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
		"status":     status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	respondJSON(w, status, errorBody{Error: code, Detail: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
