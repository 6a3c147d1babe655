package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"symptom-insights/internal/auth"
	"symptom-insights/internal/core"
	"symptom-insights/internal/db"
	"symptom-insights/internal/llm"
	"symptom-insights/internal/observability"
	"symptom-insights/internal/records"
	"symptom-insights/pkg"
)

type stubAssistant struct {
	mu     sync.Mutex
	reply  string
	status llm.RunStatus
	runs   int
}

func (s *stubAssistant) CreateThreadAndRun(ctx context.Context, req llm.ThreadRun) (llm.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	return llm.Run{ThreadID: "thread_1", RunID: fmt.Sprintf("run_%d", s.runs)}, nil
}

func (s *stubAssistant) CreateRun(ctx context.Context, threadID, assistantID, prompt string) (llm.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	return llm.Run{ThreadID: threadID, RunID: fmt.Sprintf("run_%d", s.runs)}, nil
}

func (s *stubAssistant) RunStatus(ctx context.Context, threadID, runID string) (llm.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == "" {
		return llm.RunStatusCompleted, nil
	}
	return s.status, nil
}

func (s *stubAssistant) LatestMessages(ctx context.Context, threadID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []string{s.reply}, nil
}

type memoryHistory struct {
	items   []pkg.InsightRecord
	pingErr error
}

func (m *memoryHistory) SaveInsight(ctx context.Context, rec *pkg.InsightRecord) error {
	rec.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", len(m.items)+1)
	rec.CreatedAt = time.Now().UTC()
	m.items = append(m.items, *rec)
	return nil
}

func (m *memoryHistory) ListInsights(ctx context.Context, limit int) ([]pkg.InsightRecord, error) {
	if limit <= 0 || limit > len(m.items) {
		limit = len(m.items)
	}
	return m.items[:limit], nil
}

func (m *memoryHistory) GetInsight(ctx context.Context, id string) (*pkg.InsightRecord, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			return &m.items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", db.ErrNotFound, id)
}

func (m *memoryHistory) Ping(ctx context.Context) error { return m.pingErr }

type testEnv struct {
	server    *Server
	assistant *stubAssistant
	history   *memoryHistory
	auth      *auth.Authenticator
}

func setupServer(t *testing.T, withAuth, withHistory bool) *testEnv {
	t.Helper()
	assistant := &stubAssistant{reply: "Summary: Resting helps.\nSuggested Medications: Paracetamol, Fluids\nRisk Profile: Low Risk\nImmediate Consultation Needed: No"}
	sessions := core.NewSessionManager(assistant, core.WithPolling(2, 0))
	metrics := observability.NewMetrics("test")
	extractor := core.NewExtractor(core.ModeRegex, "")
	extractor.Metrics = metrics
	service := core.NewInsightService(core.NewBuilder(0), sessions, extractor, core.DefaultTemplates(), core.Defaults{AssistantID: "asst_default"})

	env := &testEnv{assistant: assistant}
	var history InsightHistory
	if withHistory {
		env.history = &memoryHistory{}
		service.Store = env.history
		history = env.history
	}
	if withAuth {
		a, err := auth.New(auth.Options{Username: "admin", Password: "secret", Secret: "k"})
		if err != nil {
			t.Fatalf("auth.New: %v", err)
		}
		env.auth = a
	}
	env.server = NewServer(service, history, env.auth, metrics, nil)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.server.ServeHTTP(resp, req)
	return resp
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return v
}

func loginToken(t *testing.T, env *testEnv) string {
	t.Helper()
	tok, err := env.auth.Login("admin", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return tok
}

func recentRecord() pkg.MedicalRecord {
	age := 70
	return pkg.MedicalRecord{
		Resident: pkg.Resident{Name: "Jane", Age: &age, Gender: "Female"},
		Diseases: []pkg.Disease{{
			Name: "Flu",
			Records: []pkg.SymptomRecord{{
				UpdatedAt: time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC3339),
				Symptoms:  []pkg.Symptom{{Title: "fever", Value: 7.2}, {Title: "cough", Value: 0}},
			}},
			Symptoms: []pkg.Symptom{{Title: "fever", Value: 7.2}},
		}},
	}
}

func TestRootAndHealth(t *testing.T) {
	env := setupServer(t, true, true)

	resp := env.do(t, http.MethodGet, "/", nil, "")
	if resp.Code != http.StatusOK || decodeBody[map[string]string](t, resp)["server"] != "running" {
		t.Fatalf("root: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/healthz", nil, "")
	health := decodeBody[map[string]any](t, resp)
	if resp.Code != http.StatusOK || health["status"] != "ok" || health["store_enabled"] != true {
		t.Fatalf("healthz: %d %v", resp.Code, health)
	}

	env.do(t, http.MethodPost, "/getAIinsights", pkg.AIPayload{Prompt: "hello"}, loginToken(t, env))
	resp = env.do(t, http.MethodGet, "/healthz", nil, "")
	threads := decodeBody[struct {
		Threads []core.SessionSnapshot `json:"threads"`
	}](t, resp).Threads
	if len(threads) != 1 || threads[0].AssistantID != "asst_default" || threads[0].ThreadID != "thread_1" {
		t.Fatalf("threads not reported: %s", resp.Body.String())
	}

	env.history.pingErr = errors.New("connection refused")
	resp = env.do(t, http.MethodGet, "/healthz", nil, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the store is down, got %d", resp.Code)
	}
}

func TestRequestLogsUseServiceLogger(t *testing.T) {
	env := setupServer(t, false, false)
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	srv := NewServer(env.server.Insights, nil, nil, nil, logger)

	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("healthz: %d", resp.Code)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("request log is not a logrus json line: %q", buf.String())
	}
	if msg, _ := line["msg"].(string); !strings.Contains(msg, "GET http://example.com/healthz") {
		t.Fatalf("unexpected request log %v", line)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t, false, false)
	env.do(t, http.MethodPost, "/convertToJson", pkg.ConvertRequest{AIInsights: "Summary: ok"}, "")

	resp := env.do(t, http.MethodGet, "/metrics", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `test_reply_extractions_total{mode="regex",outcome="ok"} 1`) {
		t.Fatalf("extraction counter missing:\n%s", resp.Body.String())
	}
}

func TestLoginFlow(t *testing.T) {
	env := setupServer(t, true, false)

	resp := env.do(t, http.MethodPost, "/getPrompts", recentRecord(), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", resp.Code)
	}
	if body := decodeBody[errorBody](t, resp); body.Error != "unauthorized" {
		t.Fatalf("unexpected error body %+v", body)
	}

	resp = env.do(t, http.MethodPost, "/token", pkg.LoginRequest{Username: "admin", Password: "wrong"}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodPost, "/token", pkg.LoginRequest{Username: "admin", Password: "secret"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login: %d %s", resp.Code, resp.Body.String())
	}
	token := decodeBody[pkg.TokenResponse](t, resp)
	if token.TokenType != "bearer" || token.AccessToken == "" {
		t.Fatalf("unexpected token response %+v", token)
	}

	resp = env.do(t, http.MethodPost, "/getPrompts/", recentRecord(), token.AccessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("authorized request with trailing slash: %d %s", resp.Code, resp.Body.String())
	}
}

func TestLoginForm(t *testing.T) {
	env := setupServer(t, true, false)
	form := url.Values{"username": {"admin"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	env.server.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("form login: %d %s", resp.Code, resp.Body.String())
	}
}

func TestGetPrompts(t *testing.T) {
	env := setupServer(t, false, false)

	resp := env.do(t, http.MethodPost, "/getPrompts", recentRecord(), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("getPrompts: %d %s", resp.Code, resp.Body.String())
	}
	prompt := decodeBody[map[string]string](t, resp)["prompt"]
	if !strings.Contains(prompt, "fever: 7.2/10") || strings.Contains(prompt, "cough") {
		t.Fatalf("unexpected prompt %q", prompt)
	}

	wrapped := map[string]any{"jsonResponse": recentRecord()}
	resp = env.do(t, http.MethodPost, "/getPrompts", wrapped, "")
	if resp.Code != http.StatusOK || !strings.Contains(decodeBody[map[string]string](t, resp)["prompt"], "Jane") {
		t.Fatalf("wrapped record not accepted: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodPost, "/getPrompts", "not json", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed record, got %d", resp.Code)
	}
	if body := decodeBody[errorBody](t, resp); body.Error != "malformed_input" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestGetDiseasePrompts(t *testing.T) {
	env := setupServer(t, false, false)
	resp := env.do(t, http.MethodPost, "/getDiseasePrompts", recentRecord(), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("getDiseasePrompts: %d %s", resp.Code, resp.Body.String())
	}
	prompts := decodeBody[map[string][]string](t, resp)["prompts"]
	if len(prompts) != 1 || !strings.HasPrefix(prompts[0], "I am suffering from Flu disease with these symptoms: fever score 7.2.") {
		t.Fatalf("unexpected prompts %q", prompts)
	}
}

func TestGetAIInsights(t *testing.T) {
	env := setupServer(t, false, false)

	resp := env.do(t, http.MethodPost, "/getAIinsights", pkg.AIPayload{Prompt: "hello", AssistantID: "asst_1", VectorStoreIDs: []string{"vs_1"}}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("getAIinsights: %d %s", resp.Code, resp.Body.String())
	}
	if got := decodeBody[pkg.AIInsightsResponse](t, resp).AIInsights; got != env.assistant.reply {
		t.Fatalf("unexpected reply %q", got)
	}

	resp = env.do(t, http.MethodPost, "/getAIinsights", pkg.AIPayload{Prompt: "hello", InstructionTemplate: "missing"}, "")
	if resp.Code != http.StatusBadRequest || decodeBody[errorBody](t, resp).Error != "unknown_template" {
		t.Fatalf("expected unknown_template 400, got %d %s", resp.Code, resp.Body.String())
	}

	env.assistant.mu.Lock()
	env.assistant.status = llm.RunStatusFailed
	env.assistant.mu.Unlock()
	resp = env.do(t, http.MethodPost, "/getAIinsights", pkg.AIPayload{Prompt: "hello", AssistantID: "asst_2"}, "")
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for a failed run, got %d", resp.Code)
	}
}

func TestGetAIInsightsTimeout(t *testing.T) {
	env := setupServer(t, false, false)
	env.assistant.status = llm.RunStatusInProgress

	resp := env.do(t, http.MethodPost, "/getAIinsights", pkg.AIPayload{Prompt: "hello"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("timeout is reported in the body, got %d", resp.Code)
	}
	if got := decodeBody[pkg.AIInsightsResponse](t, resp).AIInsights; got != core.TimeoutReply {
		t.Fatalf("expected the timeout sentinel, got %q", got)
	}
}

func TestConvertToJSON(t *testing.T) {
	env := setupServer(t, false, false)

	resp := env.do(t, http.MethodPost, "/convertToJson", pkg.ConvertRequest{AIInsights: env.assistant.reply}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("convertToJson: %d %s", resp.Code, resp.Body.String())
	}
	insight := decodeBody[pkg.StructuredInsight](t, resp)
	if insight.Summary != "Resting helps" || len(insight.Medications) != 2 || insight.RiskProfile != pkg.RiskLow || insight.ConsultationNeeded != pkg.ConsultationNo {
		t.Fatalf("unexpected insight %+v", insight)
	}

	resp = env.do(t, http.MethodPost, "/convertToJson?mode=json", pkg.ConvertRequest{AIInsights: `{"Summary":"S","AI-Recommended Next Steps":["a","b"]}`}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("json mode: %d %s", resp.Code, resp.Body.String())
	}
	if insight := decodeBody[pkg.StructuredInsight](t, resp); insight.Summary != "S" || len(insight.Medications) != 2 {
		t.Fatalf("unexpected insight %+v", insight)
	}

	resp = env.do(t, http.MethodPost, "/convertToJson?mode=json", pkg.ConvertRequest{AIInsights: "plain text"}, "")
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a non-JSON reply, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodPost, "/convertToJson", pkg.ConvertRequest{AIInsights: "   "}, "")
	if resp.Code != http.StatusBadRequest || decodeBody[errorBody](t, resp).Error != "empty_reply" {
		t.Fatalf("expected empty_reply 400, got %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodPost, "/convertToJson", pkg.ConvertRequest{AIInsights: "Summary: ok"}, "")
	if !strings.Contains(resp.Body.String(), `"medications":[]`) {
		t.Fatalf("medications must encode as an empty array: %s", resp.Body.String())
	}
}

func TestConvertBatch(t *testing.T) {
	env := setupServer(t, false, false)
	reply := "Summary: one\nRisk Profile: High\n---\nSummary: two\nRisk Profile: Low"
	resp := env.do(t, http.MethodPost, "/convertToJson/batch", pkg.ConvertRequest{AIInsights: reply}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("batch: %d %s", resp.Code, resp.Body.String())
	}
	insights := decodeBody[[]pkg.StructuredInsight](t, resp)
	if len(insights) != 2 || insights[0].RiskProfile != pkg.RiskHigh || insights[1].RiskProfile != pkg.RiskLow {
		t.Fatalf("unexpected insights %+v", insights)
	}
}

func TestAnalyzeAndHistory(t *testing.T) {
	env := setupServer(t, true, true)
	token, err := env.auth.Login("admin", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/insights", pkg.AnalyzeRequest{Record: recentRecord()}, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("insights: %d %s", resp.Code, resp.Body.String())
	}
	analyzed := decodeBody[pkg.AnalyzeResponse](t, resp)
	if analyzed.ID == "" || analyzed.Insight == nil || analyzed.Insight.RiskProfile != pkg.RiskLow {
		t.Fatalf("unexpected response %+v", analyzed)
	}
	if env.history.items[0].Subject != "admin" {
		t.Fatalf("subject not recorded: %+v", env.history.items[0])
	}

	resp = env.do(t, http.MethodGet, "/insights?limit=5", nil, token)
	if resp.Code != http.StatusOK || len(decodeBody[[]pkg.InsightRecord](t, resp)) != 1 {
		t.Fatalf("list: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/insights/"+analyzed.ID, nil, token)
	if resp.Code != http.StatusOK || decodeBody[pkg.InsightRecord](t, resp).ID != analyzed.ID {
		t.Fatalf("get: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/insights/unknown", nil, token)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/insights?limit=abc", nil, token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", resp.Code)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupServer(t, false, false)
	resp := env.do(t, http.MethodGet, "/insights", nil, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a store, got %d", resp.Code)
	}
}

func TestAnalyzeRemote(t *testing.T) {
	var foreignHits atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits.Add(1)
		_ = json.NewEncoder(w).Encode(recentRecord())
	}))
	defer foreign.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/get-patient-ds" || r.URL.Query().Get("patientId") != "p-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("token") != "patient-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(recentRecord())
	}))
	defer upstream.Close()

	env := setupServer(t, false, true)

	resp := env.do(t, http.MethodPost, "/aiResponse", pkg.RemoteAnalyzeRequest{PatientID: "p-1", Token: "patient-token"}, "")
	if resp.Code != http.StatusServiceUnavailable || decodeBody[errorBody](t, resp).Error != "records_disabled" {
		t.Fatalf("expected records_disabled 503, got %d %s", resp.Code, resp.Body.String())
	}

	env.server.Insights.Records = records.NewClient(upstream.URL+"/api/v2/get-patient-ds", 5*time.Second)

	resp = env.do(t, http.MethodPost, "/aiResponse", pkg.RemoteAnalyzeRequest{PatientID: "p-1", Token: "patient-token", LoginID: "nurse-7"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("aiResponse: %d %s", resp.Code, resp.Body.String())
	}
	if got := decodeBody[pkg.AnalyzeResponse](t, resp); !strings.Contains(got.Prompt, "Flu") || got.Insight == nil {
		t.Fatalf("unexpected response %+v", got)
	}
	if subject := env.history.items[0].Subject; subject != "nurse-7" {
		t.Fatalf("subject = %q, want the login id", subject)
	}

	resp = env.do(t, http.MethodPost, "/aiResponse", pkg.RemoteAnalyzeRequest{PatientID: "p-1", Token: "wrong"}, "")
	if resp.Code != http.StatusBadGateway || decodeBody[errorBody](t, resp).Error != "upstream_error" {
		t.Fatalf("expected upstream_error 502, got %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodPost, "/aiResponse", pkg.RemoteAnalyzeRequest{PatientID: "p-1", Token: "patient-token", RecordsURL: foreign.URL + "/api/v2/get-patient-ds?patientId=p-1"}, "")
	if resp.Code != http.StatusBadRequest || decodeBody[errorBody](t, resp).Error != "invalid_records_target" {
		t.Fatalf("expected invalid_records_target 400, got %d %s", resp.Code, resp.Body.String())
	}
	if n := foreignHits.Load(); n != 0 {
		t.Fatalf("foreign host was called %d times", n)
	}

	resp = env.do(t, http.MethodPost, "/aiResponse", pkg.RemoteAnalyzeRequest{Token: "patient-token"}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a patient id, got %d", resp.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: create thread: %w", core.ErrAssistantCall, context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{fmt.Errorf("thread status: %w", context.Canceled), statusClientClosedRequest, "client_closed_request"},
		{fmt.Errorf("%w: create thread: boom", core.ErrAssistantCall), http.StatusBadGateway, "assistant_error"},
		{fmt.Errorf("%w: host", records.ErrInvalidTarget), http.StatusBadRequest, "invalid_records_target"},
		{core.ErrRecordsDisabled, http.StatusServiceUnavailable, "records_disabled"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := statusFor(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("statusFor(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	env := setupServer(t, false, false)
	big := `{"ai_insights":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	resp := env.do(t, http.MethodPost, "/convertToJson", big, "")
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := setupServer(t, false, false)
	resp := env.do(t, http.MethodGet, "/nope", nil, "")
	if resp.Code != http.StatusNotFound || decodeBody[errorBody](t, resp).Error != "not_found" {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}
