package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"symptom-insights/internal/observability"
	"symptom-insights/pkg"
)

// InsightStore persists finished pipeline runs.  SaveInsight fills in the
// record's ID and CreatedAt.
type InsightStore interface {
	SaveInsight(ctx context.Context, rec *pkg.InsightRecord) error
}

// RecordFetcher loads a patient's medical record from the upstream records
// API.  override is an optional caller supplied URL the fetcher may refuse.
type RecordFetcher interface {
	FetchPatient(ctx context.Context, patientID, override, token string) (pkg.MedicalRecord, error)
}

// Defaults are applied when a request leaves the assistant, vector stores
// or instruction template unset.
type Defaults struct {
	AssistantID    string
	VectorStoreIDs []string
	Template       string
}

// InsightService runs the record → prompt → reply → insight pipeline.
// Store and Records are optional.
type InsightService struct {
	Builder   *Builder
	Sessions  *SessionManager
	Extractor *Extractor
	Templates Templates
	Defaults  Defaults
	Store     InsightStore
	Records   RecordFetcher
	Log       *logrus.Logger
}

// NewInsightService wires a service from its parts.
func NewInsightService(builder *Builder, sessions *SessionManager, extractor *Extractor, templates Templates, defaults Defaults) *InsightService {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if defaults.Template == "" {
		defaults.Template = TemplateJSONInsights
	}
	return &InsightService{
		Builder:   builder,
		Sessions:  sessions,
		Extractor: extractor,
		Templates: templates,
		Defaults:  defaults,
		Log:       observability.DiscardLogger(),
	}
}

// Prompt renders the full prompt for a record.
func (s *InsightService) Prompt(rec pkg.MedicalRecord) string {
	return s.Builder.Build(rec)
}

// DiseasePrompts renders one short prompt per disease.
func (s *InsightService) DiseasePrompts(rec pkg.MedicalRecord) []string {
	return s.Builder.DiseasePrompts(rec)
}

// Ask sends a prebuilt prompt to the assistant and returns its raw reply.
func (s *InsightService) Ask(ctx context.Context, payload pkg.AIPayload) (string, error) {
	if strings.TrimSpace(payload.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrMalformedInput)
	}
	req, err := s.replyRequest(payload)
	if err != nil {
		return "", err
	}
	return s.Sessions.Reply(ctx, req)
}

// Convert structures a raw reply.  An empty mode uses the configured one.
func (s *InsightService) Convert(reply, mode string) (pkg.StructuredInsight, error) {
	m, err := ParseMode(mode, s.Extractor.Mode)
	if err != nil {
		return pkg.StructuredInsight{}, err
	}
	return s.Extractor.ExtractMode(reply, m)
}

// ConvertBatch structures a reply holding several separated blocks.
func (s *InsightService) ConvertBatch(reply string) ([]pkg.StructuredInsight, error) {
	return s.Extractor.ExtractBatch(reply)
}

// Analyze runs the whole pipeline for a record.  A reply that arrives but
// cannot be structured is not an error: the response carries the raw reply
// and an explanation instead of an insight.
func (s *InsightService) Analyze(ctx context.Context, req pkg.AnalyzeRequest, subject string) (pkg.AnalyzeResponse, error) {
	mode, err := ParseMode(req.Mode, s.Extractor.Mode)
	if err != nil {
		return pkg.AnalyzeResponse{}, err
	}
	prompt := s.Builder.Build(req.Record)
	payload := pkg.AIPayload{
		Prompt:              prompt,
		AssistantID:         req.AssistantID,
		VectorStoreIDs:      req.VectorStoreIDs,
		InstructionTemplate: req.InstructionTemplate,
	}
	replyReq, err := s.replyRequest(payload)
	if err != nil {
		return pkg.AnalyzeResponse{}, err
	}
	reply, err := s.Sessions.Reply(ctx, replyReq)
	if err != nil {
		return pkg.AnalyzeResponse{}, err
	}

	resp := pkg.AnalyzeResponse{Prompt: prompt, AIInsights: reply}
	if IsTimeout(reply) {
		resp.Error = "assistant did not respond in time"
	} else {
		insight, err := s.Extractor.ExtractMode(reply, mode)
		switch {
		case err == nil:
			resp.Insight = &insight
		case errors.Is(err, ErrInvalidReplyFormat), errors.Is(err, ErrEmptyReply):
			resp.Error = err.Error()
		default:
			return pkg.AnalyzeResponse{}, err
		}
	}

	resp.ID = s.persist(ctx, &pkg.InsightRecord{
		Subject:     subject,
		AssistantID: replyReq.AssistantID,
		Prompt:      prompt,
		Reply:       reply,
		Insight:     resp.Insight,
	})
	return resp, nil
}

// AnalyzeRemote fetches the patient's record from the records API and
// analyzes it.  Without an authenticated subject the run is attributed to
// the login id, then to the patient.
func (s *InsightService) AnalyzeRemote(ctx context.Context, req pkg.RemoteAnalyzeRequest, subject string) (pkg.AnalyzeResponse, error) {
	if s.Records == nil {
		return pkg.AnalyzeResponse{}, ErrRecordsDisabled
	}
	if strings.TrimSpace(req.PatientID) == "" {
		return pkg.AnalyzeResponse{}, fmt.Errorf("%w: patientID is required", ErrMalformedInput)
	}
	rec, err := s.Records.FetchPatient(ctx, req.PatientID, req.RecordsURL, req.Token)
	if err != nil {
		return pkg.AnalyzeResponse{}, err
	}
	for _, candidate := range []string{subject, req.LoginID, req.PatientID} {
		if strings.TrimSpace(candidate) != "" {
			subject = strings.TrimSpace(candidate)
			break
		}
	}
	return s.Analyze(ctx, pkg.AnalyzeRequest{
		Record:         rec,
		AssistantID:    req.AssistantID,
		VectorStoreIDs: req.VectorStoreIDs,
	}, subject)
}

func (s *InsightService) replyRequest(payload pkg.AIPayload) (ReplyRequest, error) {
	assistantID := strings.TrimSpace(payload.AssistantID)
	if assistantID == "" {
		assistantID = s.Defaults.AssistantID
	}
	if assistantID == "" {
		return ReplyRequest{}, fmt.Errorf("%w: AssistantID is required", ErrMalformedInput)
	}
	stores := payload.VectorStoreIDs
	if len(stores) == 0 {
		stores = s.Defaults.VectorStoreIDs
	}
	name := payload.InstructionTemplate
	if strings.TrimSpace(name) == "" {
		name = s.Defaults.Template
	}
	instructions, err := s.Templates.Lookup(name)
	if err != nil {
		return ReplyRequest{}, err
	}
	return ReplyRequest{
		Prompt:         payload.Prompt,
		AssistantID:    assistantID,
		Instructions:   instructions,
		VectorStoreIDs: stores,
	}, nil
}

// persist saves rec when a store is configured and returns its id.  Failures
// are logged and otherwise ignored.
func (s *InsightService) persist(ctx context.Context, rec *pkg.InsightRecord) string {
	if s.Store == nil {
		return ""
	}
	if err := s.Store.SaveInsight(ctx, rec); err != nil {
		s.Log.WithError(err).WithField("assistant_id", rec.AssistantID).Error("failed to save insight")
		return ""
	}
	return rec.ID
}
