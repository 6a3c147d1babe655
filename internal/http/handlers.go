package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"symptom-insights/internal/auth"
	"symptom-insights/internal/core"
	"symptom-insights/pkg"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"server": "running"})
}

// handleHealth reports liveness and the cached assistant threads.  When a
// store is configured it also reports whether the store answers a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := map[string]any{
		"status":         "ok",
		"active_threads": s.Insights.Sessions.ActiveThreads(),
		"threads":        s.Insights.Sessions.Snapshot(),
		"store_enabled":  s.History != nil,
	}
	if s.History != nil {
		if err := s.History.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			resp["status"] = "degraded"
			resp["store_error"] = err.Error()
		}
	}
	respondJSON(w, status, resp)
}

// handleLogin exchanges the configured credentials for a bearer token.  Both
// a JSON body and an OAuth2 password form are accepted.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req pkg.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid form: %v", core.ErrMalformedInput, err))
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	token, err := s.Auth.Login(req.Username, req.Password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pkg.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleGetPrompts(w http.ResponseWriter, r *http.Request) {
	rec, err := readRecord(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"prompt": s.Insights.Prompt(rec)})
}

func (s *Server) handleGetDiseasePrompts(w http.ResponseWriter, r *http.Request) {
	rec, err := readRecord(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"prompts": s.Insights.DiseasePrompts(rec)})
}

func (s *Server) handleGetAIInsights(w http.ResponseWriter, r *http.Request) {
	var payload pkg.AIPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.respondError(w, r, err)
		return
	}
	reply, err := s.Insights.Ask(r.Context(), payload)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pkg.AIInsightsResponse{AIInsights: reply})
}

// handleConvert structures a reply.  ?mode=regex|json overrides the
// configured extraction mode.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req pkg.ConvertRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	insight, err := s.Insights.Convert(req.AIInsights, r.URL.Query().Get("mode"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, insight)
}

func (s *Server) handleConvertBatch(w http.ResponseWriter, r *http.Request) {
	var req pkg.ConvertRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	insights, err := s.Insights.ConvertBatch(req.AIInsights)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req pkg.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.Insights.Analyze(r.Context(), req, auth.SubjectFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleAnalyzeRemote loads the patient's record from the records API with
// the caller's token and runs the pipeline on it.
func (s *Server) handleAnalyzeRemote(w http.ResponseWriter, r *http.Request) {
	var req pkg.RemoteAnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.Insights.AnalyzeRemote(r.Context(), req, auth.SubjectFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store_disabled", Detail: "insight history is not configured"})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", core.ErrMalformedInput))
			return
		}
		limit = n
	}
	items, err := s.History.ListInsights(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store_disabled", Detail: "insight history is not configured"})
		return
	}
	rec, err := s.History.GetInsight(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// decodeJSON decodes the request body into v.  Decode failures are
// ErrMalformedInput; an oversized body keeps its *http.MaxBytesError.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("%w: request body is empty", core.ErrMalformedInput)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformedInput, err)
	}
	return nil
}

// readRecord decodes a MedicalRecord body.  A record wrapped as
// {"jsonResponse": {...}} is unwrapped first.
func readRecord(r *http.Request) (pkg.MedicalRecord, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkg.MedicalRecord{}, err
	}
	var wrapper struct {
		JSONResponse json.RawMessage `json:"jsonResponse"`
	}
	if json.Unmarshal(body, &wrapper) == nil && len(wrapper.JSONResponse) > 0 {
		body = wrapper.JSONResponse
	}
	return core.DecodeRecord(body)
}
