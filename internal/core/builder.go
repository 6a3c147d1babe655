package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"symptom-insights/pkg"
)

// DefaultRecencyWindow is how far back symptom logs are considered.
const DefaultRecencyWindow = 15 * 24 * time.Hour

const (
	logDateLayout = "02 January 2006"
	logTimeLayout = "03:04 PM"
)

// timestampLayouts are the ISO-8601 shapes accepted for updatedAt.  Layouts
// without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Builder renders medical records into assistant prompts.  It holds no state
// between calls; Now is only overridable so tests can pin the clock.
type Builder struct {
	Window time.Duration
	Now    func() time.Time
}

// NewBuilder constructs a Builder.  A non-positive window falls back to
// DefaultRecencyWindow.
func NewBuilder(window time.Duration) *Builder {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	return &Builder{Window: window, Now: time.Now}
}

// DecodeRecord parses a raw JSON payload into a MedicalRecord.  Anything that
// is not a JSON object of the expected shape is reported as ErrMalformedInput.
func DecodeRecord(raw []byte) (pkg.MedicalRecord, error) {
	var rec pkg.MedicalRecord
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rec, fmt.Errorf("%w: record body is empty", ErrMalformedInput)
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return rec, nil
}

type scoredSymptom struct {
	title string
	value float64
}

type symptomLog struct {
	date     string
	clock    string
	symptoms []scoredSymptom
}

type occurrence struct {
	date  string
	clock string
	value float64
}

// Build renders rec against the current time.
func (b *Builder) Build(rec pkg.MedicalRecord) string {
	return b.BuildAt(rec, b.now())
}

// BuildAt renders rec as if the current time were now.  Logs older than the
// recency window, logs with missing or unparseable timestamps and symptoms
// scored zero or below are left out.  When nothing remains the fixed no-data
// message is returned.
func (b *Builder) BuildAt(rec pkg.MedicalRecord, now time.Time) string {
	header := demographicHeader(rec.Resident)
	cutoff := now.UTC().Add(-b.window())

	type diseaseLogs struct {
		name string
		logs []symptomLog
	}
	var kept []diseaseLogs
	var titles []string
	common := make(map[string][]occurrence)

	for _, d := range rec.Diseases {
		logs := recentLogs(d.Records, cutoff)
		if len(logs) == 0 {
			continue
		}
		for _, l := range logs {
			for _, s := range l.symptoms {
				if _, seen := common[s.title]; !seen {
					titles = append(titles, s.title)
				}
				common[s.title] = append(common[s.title], occurrence{date: l.date, clock: l.clock, value: s.value})
			}
		}
		kept = append(kept, diseaseLogs{name: orUnknown(d.Name), logs: logs})
	}

	if len(kept) == 0 {
		return fmt.Sprintf("%s\nThere is no disease or symptom added recently within the past %d days.", header, b.windowDays())
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\nMedical History and Symptoms:")
	for i, d := range kept {
		first := d.logs[0]
		fmt.Fprintf(&sb, "\n%d. %s, Date of Diagnosis: %s at %s with multiple symptom logs.", i+1, d.name, first.date, first.clock)
		for _, l := range d.logs {
			pairs := make([]string, 0, len(l.symptoms))
			for _, s := range l.symptoms {
				pairs = append(pairs, fmt.Sprintf("%s: %s/10", s.title, formatScore(s.value)))
			}
			fmt.Fprintf(&sb, "\nSymptom Log at %s, %s: %s.", l.date, l.clock, strings.Join(pairs, ", "))
		}
	}

	sb.WriteString("\n\nCommon Symptoms Logged Over Time:")
	for _, title := range titles {
		for _, o := range common[title] {
			fmt.Fprintf(&sb, "\n%s, %s: %s: %s/10.", o.date, o.clock, title, formatScore(o.value))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(medicationRequest)
	return sb.String()
}

// DiseasePrompts renders one first-person prompt per disease.  Disease-level
// symptoms are used when present; otherwise the latest score of each symptom
// in the recent logs is used.  Diseases without a name or symptoms are skipped.
func (b *Builder) DiseasePrompts(rec pkg.MedicalRecord) []string {
	cutoff := b.now().UTC().Add(-b.window())
	prompts := []string{}
	for _, d := range rec.Diseases {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		var parts []string
		if len(d.Symptoms) > 0 {
			for _, s := range d.Symptoms {
				if strings.TrimSpace(s.Title) == "" {
					continue
				}
				parts = append(parts, fmt.Sprintf("%s score %s", s.Title, formatScore(s.Value)))
			}
		} else {
			for _, s := range latestScores(recentLogs(d.Records, cutoff)) {
				parts = append(parts, fmt.Sprintf("%s score %s", s.title, formatScore(s.value)))
			}
		}
		if len(parts) == 0 {
			continue
		}
		prompts = append(prompts, fmt.Sprintf(
			"I am suffering from %s disease with these symptoms: %s. Please provide me with the proper medication and advice on this condition.",
			name, joinWithAnd(parts)))
	}
	return prompts
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b *Builder) window() time.Duration {
	if b.Window <= 0 {
		return DefaultRecencyWindow
	}
	return b.Window
}

func (b *Builder) windowDays() int {
	return int(b.window() / (24 * time.Hour))
}

func demographicHeader(r pkg.Resident) string {
	age := "Unknown"
	if r.Age != nil {
		age = strconv.Itoa(*r.Age)
	}
	return fmt.Sprintf("Personal Information: Name: %s, Age: %s, Gender: %s.", orUnknown(r.Name), age, orUnknown(r.Gender))
}

// recentLogs keeps records at or after cutoff that still have a positive
// symptom, in their original order.
func recentLogs(records []pkg.SymptomRecord, cutoff time.Time) []symptomLog {
	var logs []symptomLog
	for _, r := range records {
		ts, ok := parseTimestamp(r.UpdatedAt)
		if !ok || ts.Before(cutoff) {
			continue
		}
		symptoms := positiveSymptoms(r.Symptoms)
		if len(symptoms) == 0 {
			continue
		}
		logs = append(logs, symptomLog{
			date:     ts.Format(logDateLayout),
			clock:    ts.Format(logTimeLayout),
			symptoms: symptoms,
		})
	}
	return logs
}

// positiveSymptoms drops scores <= 0 and rounds the rest to two decimals.  A
// repeated title keeps its first position and its last score.
func positiveSymptoms(in []pkg.Symptom) []scoredSymptom {
	var out []scoredSymptom
	index := make(map[string]int)
	for _, s := range in {
		title := strings.TrimSpace(s.Title)
		if title == "" || s.Value <= 0 {
			continue
		}
		v := math.Round(s.Value*100) / 100
		if i, ok := index[title]; ok {
			out[i].value = v
			continue
		}
		index[title] = len(out)
		out = append(out, scoredSymptom{title: title, value: v})
	}
	return out
}

func latestScores(logs []symptomLog) []scoredSymptom {
	var out []scoredSymptom
	index := make(map[string]int)
	for _, l := range logs {
		for _, s := range l.symptoms {
			if i, ok := index[s.title]; ok {
				out[i].value = s.value
				continue
			}
			index[s.title] = len(out)
			out = append(out, s)
		}
	}
	return out
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinWithAnd(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
