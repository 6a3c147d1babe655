package pkg

import "time"

// MedicalRecord is the inbound description of a resident and their recent
// disease history.  It mirrors the payload produced by the records API; the
// optional Message field is carried through untouched.
type MedicalRecord struct {
	Message  string    `json:"message,omitempty"`
	Resident Resident  `json:"resident"`
	Diseases []Disease `json:"diseases"`
}

// Resident holds the demographic header rendered at the top of every prompt.
type Resident struct {
	Name   string `json:"name"`
	Age    *int   `json:"age,omitempty"`
	Gender string `json:"gender"`
}

// Disease groups the symptom logs recorded against one diagnosis.  Symptoms
// is the older flat shape where scores are attached to the disease directly.
type Disease struct {
	ID        string          `json:"disease_id,omitempty"`
	Name      string          `json:"ds_name"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	Records   []SymptomRecord `json:"records"`
	Symptoms  []Symptom       `json:"symptoms,omitempty"`
}

// SymptomRecord is a single time-stamped symptom log.  UpdatedAt is kept as
// the raw ISO-8601 string so unparseable values can be skipped rather than
// rejected at decode time.
type SymptomRecord struct {
	RecordName string    `json:"recordName,omitempty"`
	ID         string    `json:"_id,omitempty"`
	UpdatedAt  string    `json:"updatedAt"`
	Symptoms   []Symptom `json:"symptoms"`
	Status     string    `json:"status,omitempty"`
}

// Symptom is one titled severity score on a 0-10 scale.
type Symptom struct {
	Title string  `json:"title"`
	Value float64 `json:"value"`
}

// RiskProfile is the risk tier extracted from an assistant reply.
type RiskProfile string

const (
	RiskLow     RiskProfile = "Low"
	RiskMedium  RiskProfile = "Medium"
	RiskHigh    RiskProfile = "High"
	RiskUnknown RiskProfile = "Unknown"
)

// Consultation records whether the assistant asked for an immediate visit.
type Consultation string

const (
	ConsultationYes     Consultation = "Yes"
	ConsultationNo      Consultation = "No"
	ConsultationUnknown Consultation = "Unknown"
)

// StructuredInsight is the fixed-shape result parsed from an assistant reply.
type StructuredInsight struct {
	Summary            string       `json:"summary"`
	Medications        []string     `json:"medications"`
	RiskProfile        RiskProfile  `json:"risk_profile"`
	ConsultationNeeded Consultation `json:"consultation_needed"`
}

// InsightRecord is one persisted pipeline run.
type InsightRecord struct {
	ID          string             `json:"id"`
	Subject     string             `json:"subject,omitempty"`
	AssistantID string             `json:"assistant_id"`
	Prompt      string             `json:"prompt"`
	Reply       string             `json:"reply"`
	Insight     *StructuredInsight `json:"insight,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// LoginRequest exchanges configured credentials for a bearer token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by the login endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AIPayload asks the assistant about a prompt that was already built.
type AIPayload struct {
	Prompt              string   `json:"prompt"`
	VectorStoreIDs      []string `json:"vectorStoreID"`
	AssistantID         string   `json:"AssistantID"`
	InstructionTemplate string   `json:"instructionTemplate,omitempty"`
}

// AIInsightsResponse carries the raw assistant reply.
type AIInsightsResponse struct {
	AIInsights string `json:"ai_insights"`
}

// ConvertRequest carries a raw assistant reply to be structured.
type ConvertRequest struct {
	AIInsights string `json:"ai_insights"`
}

// AnalyzeRequest runs the whole pipeline for a record.
type AnalyzeRequest struct {
	Record              MedicalRecord `json:"record"`
	AssistantID         string        `json:"AssistantID,omitempty"`
	VectorStoreIDs      []string      `json:"vectorStoreID,omitempty"`
	InstructionTemplate string        `json:"instructionTemplate,omitempty"`
	Mode                string        `json:"mode,omitempty"`
}

// RemoteAnalyzeRequest runs the pipeline for a record fetched from the
// records API on behalf of a patient.  RecordsURL is optional and must point
// at the configured records API; LoginID names the caller when the request
// is not authenticated.
type RemoteAnalyzeRequest struct {
	PatientID      string   `json:"patientID"`
	Token          string   `json:"token"`
	RecordsURL     string   `json:"mdhtApiUrl"`
	LoginID        string   `json:"loginID,omitempty"`
	VectorStoreIDs []string `json:"vectorStoreID,omitempty"`
	AssistantID    string   `json:"AssistantID,omitempty"`
}

// AnalyzeResponse is the result of a full pipeline run.  Insight is nil when
// the reply could not be structured; Error then explains why.
type AnalyzeResponse struct {
	ID         string             `json:"id,omitempty"`
	Prompt     string             `json:"prompt"`
	AIInsights string             `json:"ai_insights"`
	Insight    *StructuredInsight `json:"insight,omitempty"`
	Error      string             `json:"error,omitempty"`
}
