package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"symptom-insights/internal/observability"
	"symptom-insights/pkg"
)

// ExtractionMode selects how an assistant reply is turned into a
// StructuredInsight.
type ExtractionMode string

const (
	// ModeRegex scrapes labelled sections out of free text.
	ModeRegex ExtractionMode = "regex"
	// ModeJSON reads the fields of a JSON document directly.
	ModeJSON ExtractionMode = "json"

	// DefaultBatchSeparator delimits per-disease blocks in a batch reply.
	DefaultBatchSeparator = "---"
)

// ParseMode validates a mode name.  The empty string yields fallback.
func ParseMode(name string, fallback ExtractionMode) (ExtractionMode, error) {
	switch ExtractionMode(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return fallback, nil
	case ModeRegex:
		return ModeRegex, nil
	case ModeJSON:
		return ModeJSON, nil
	}
	return "", fmt.Errorf("%w: unknown extraction mode %q", ErrMalformedInput, name)
}

var (
	summaryPattern      = regexp.MustCompile(`(?i)summary[:\-\s*#]*([^*#\n]*)`)
	medicationsPattern  = regexp.MustCompile(`(?is)suggested\s+medications[:\-\s*#]*(.*)`)
	medicationsStop     = regexp.MustCompile(`(?i)###|risk|immediate`)
	riskPattern         = regexp.MustCompile(`(?i)(?:risk\s+profile|risk)[:\-\s*#]*([^*#\n]*)`)
	consultationPattern = regexp.MustCompile(`(?i)immediate\s+consultation\s+needed[:\-\s*#]*([^*#\n]*)`)
	medicationSplit     = regexp.MustCompile(`\s*\d+\.\s*|\n|,\s*`)
	disallowedChars     = regexp.MustCompile(`[^A-Za-z0-9\s]`)
	codeFence           = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// FieldMapping lists the accepted JSON keys for each insight field.  The
// first key present in a reply wins; keys also match case-insensitively.
type FieldMapping struct {
	Summary      []string
	Medications  []string
	Risk         []string
	Consultation []string
}

// DefaultFieldMapping covers the key names the instruction templates ask for.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		Summary:      []string{"Summary"},
		Medications:  []string{"Suggested Medications", "AI-Recommended Next Steps"},
		Risk:         []string{"Risk Profile"},
		Consultation: []string{"Immediate Consultation Needed"},
	}
}

// Extractor parses assistant replies.
type Extractor struct {
	Mode      ExtractionMode
	Fields    FieldMapping
	Separator string
	Metrics   *observability.Metrics
}

// NewExtractor builds an Extractor with the default field mapping.
func NewExtractor(mode ExtractionMode, separator string) *Extractor {
	if mode == "" {
		mode = ModeRegex
	}
	if strings.TrimSpace(separator) == "" {
		separator = DefaultBatchSeparator
	}
	return &Extractor{Mode: mode, Fields: DefaultFieldMapping(), Separator: separator}
}

// Extract parses reply with the configured mode.
func (e *Extractor) Extract(reply string) (pkg.StructuredInsight, error) {
	return e.ExtractMode(reply, e.Mode)
}

// ExtractMode parses reply with the given mode.  In json mode a reply that
// does not decode is an ErrInvalidReplyFormat; there is no fallback to regex.
func (e *Extractor) ExtractMode(reply string, mode ExtractionMode) (pkg.StructuredInsight, error) {
	if strings.TrimSpace(reply) == "" {
		e.Metrics.Extraction(string(mode), "empty")
		return pkg.StructuredInsight{}, ErrEmptyReply
	}
	switch mode {
	case ModeJSON:
		insight, err := DecodeStructured(reply, e.Fields)
		if err != nil {
			e.Metrics.Extraction(string(mode), "invalid")
			return pkg.StructuredInsight{}, err
		}
		e.Metrics.Extraction(string(mode), "ok")
		return insight, nil
	case ModeRegex, "":
		e.Metrics.Extraction(string(ModeRegex), "ok")
		return ScrapeSections(reply), nil
	}
	return pkg.StructuredInsight{}, fmt.Errorf("%w: unknown extraction mode %q", ErrMalformedInput, mode)
}

// ExtractBatch splits reply into blocks on separator lines and scrapes each
// non-empty block independently.
func (e *Extractor) ExtractBatch(reply string) ([]pkg.StructuredInsight, error) {
	blocks := splitBlocks(reply, e.separator())
	if len(blocks) == 0 {
		e.Metrics.Extraction("batch", "empty")
		return nil, ErrEmptyReply
	}
	out := make([]pkg.StructuredInsight, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, ScrapeSections(block))
	}
	e.Metrics.Extraction("batch", "ok")
	return out, nil
}

func (e *Extractor) separator() string {
	if strings.TrimSpace(e.Separator) == "" {
		return DefaultBatchSeparator
	}
	return strings.TrimSpace(e.Separator)
}

// ScrapeSections pulls the summary, medications, risk and consultation
// sections out of free text.  Sections that are not found keep their zero
// value: empty summary, no medications, Unknown risk and consultation.
func ScrapeSections(reply string) pkg.StructuredInsight {
	insight := emptyInsight()

	if m := summaryPattern.FindStringSubmatch(reply); m != nil {
		insight.Summary = cleanText(m[1])
	}

	if m := medicationsPattern.FindStringSubmatch(reply); m != nil {
		section := m[1]
		if loc := medicationsStop.FindStringIndex(section); loc != nil {
			section = section[:loc[0]]
		}
		insight.Medications = splitMedications(strings.TrimSpace(section))
	}

	if m := riskPattern.FindStringSubmatch(reply); m != nil {
		insight.RiskProfile = ClassifyRisk(cleanText(m[1]))
	}

	if m := consultationPattern.FindStringSubmatch(reply); m != nil {
		insight.ConsultationNeeded = ClassifyConsultation(cleanText(m[1]))
	}
	return insight
}

// DecodeStructured reads a JSON reply through the field mapping.  Code
// fences and text around the outermost object are ignored.
func DecodeStructured(reply string, fields FieldMapping) (pkg.StructuredInsight, error) {
	doc := jsonDocument(reply)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return pkg.StructuredInsight{}, fmt.Errorf("%w: %v", ErrInvalidReplyFormat, err)
	}
	if raw == nil {
		return pkg.StructuredInsight{}, fmt.Errorf("%w: reply is not a JSON object", ErrInvalidReplyFormat)
	}

	insight := emptyInsight()
	if v, ok := lookupField(raw, fields.Summary); ok {
		insight.Summary = strings.TrimSpace(stringValue(v))
	}
	if v, ok := lookupField(raw, fields.Medications); ok {
		insight.Medications = listValue(v)
	}
	if v, ok := lookupField(raw, fields.Risk); ok {
		insight.RiskProfile = ClassifyRisk(stringValue(v))
	}
	if v, ok := lookupField(raw, fields.Consultation); ok {
		insight.ConsultationNeeded = ClassifyConsultation(stringValue(v))
	}
	return insight, nil
}

// ClassifyRisk maps risk text to a tier by substring, checking low,
// moderate, high and medium in that order.  Moderate counts as Medium, so
// text naming both moderate and high is Medium.
func ClassifyRisk(text string) pkg.RiskProfile {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "low"):
		return pkg.RiskLow
	case strings.Contains(lower, "moderate"):
		return pkg.RiskMedium
	case strings.Contains(lower, "high"):
		return pkg.RiskHigh
	case strings.Contains(lower, "medium"):
		return pkg.RiskMedium
	}
	return pkg.RiskUnknown
}

// ClassifyConsultation maps consultation text to Yes, No or Unknown by
// substring, checking yes before no.
func ClassifyConsultation(text string) pkg.Consultation {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "yes"):
		return pkg.ConsultationYes
	case strings.Contains(lower, "no"):
		return pkg.ConsultationNo
	}
	return pkg.ConsultationUnknown
}

func emptyInsight() pkg.StructuredInsight {
	return pkg.StructuredInsight{
		Medications:        []string{},
		RiskProfile:        pkg.RiskUnknown,
		ConsultationNeeded: pkg.ConsultationUnknown,
	}
}

func cleanText(s string) string {
	return strings.TrimSpace(disallowedChars.ReplaceAllString(s, ""))
}

func splitMedications(section string) []string {
	meds := []string{}
	for _, part := range medicationSplit.Split(section, -1) {
		if med := cleanText(part); med != "" {
			meds = append(meds, med)
		}
	}
	return meds
}

func splitBlocks(reply, separator string) []string {
	var blocks []string
	var current []string
	flush := func() {
		if block := strings.TrimSpace(strings.Join(current, "\n")); block != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(reply, "\n") {
		if strings.TrimSpace(line) == separator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func jsonDocument(reply string) string {
	doc := strings.TrimSpace(reply)
	if m := codeFence.FindStringSubmatch(doc); m != nil {
		doc = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(doc, "{") {
		return doc
	}
	start, end := strings.Index(doc, "{"), strings.LastIndex(doc, "}")
	if start >= 0 && end > start {
		return doc[start : end+1]
	}
	return doc
}

func lookupField(raw map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v, true
		}
	}
	for _, k := range keys {
		for name, v := range raw {
			if strings.EqualFold(strings.TrimSpace(name), k) {
				return v, true
			}
		}
	}
	return nil, false
}

func stringValue(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if string(v) == "null" {
		return ""
	}
	return strings.TrimSpace(string(v))
}

func listValue(v json.RawMessage) []string {
	var items []any
	if err := json.Unmarshal(v, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return splitMedications(s)
	}
	return []string{}
}
