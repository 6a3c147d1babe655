package core

// prompts.go holds the fixed texts sent to the assistant.  Keeping them in one
// file makes them easy to tweak without touching the pipeline code.

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// TemplateJSONInsights asks for the strict JSON document read by the json
	// extraction mode.
	TemplateJSONInsights = "json-insights"
	// TemplateBrief asks for short labelled sections read by the regex mode.
	TemplateBrief = "brief"

	// TimeoutReply is returned instead of an error when a run does not
	// complete within the polling budget.
	TimeoutReply = "The assistant did not respond in time for this prompt. Please try again."

	// medicationRequest closes every record prompt.
	medicationRequest = "Request: Provide guidance or recommendations for medication based on the above symptoms and conditions."
)

const jsonInsightsInstructions = `Response Format Restriction: Always provide insights in the exact JSON format as shown below, and do not include any additional information or explanation.
{
    "Summary": "overview of current condition in 50 words",
    "Suggested Medications": ["medication1", "medication2", "medication3"],
    "Risk Profile": "High Risk/Medium Risk/Low Risk",
    "Immediate Consultation Needed": "Yes/No/May be"
}
Data Analysis Rules:
Summary: Generate an overview of the patient's condition in no more than 50 words by analyzing the progression and timeline of recorded symptoms and disease diagnosis.
Suggested Medications: Recommend up to 3-5 medications based on the analyzed disease and symptoms. Prioritize common and effective treatments for the condition.
Risk Profile: Determine the patient's health risk as either "High Risk," "Medium Risk," or "Low Risk" based on the historical progression of symptoms and diagnosis date.
Immediate Consultation: Indicate whether the patient needs an immediate consultation based on symptom severity and risk profile using "Yes," "No," or "May be."
Strict Adherence: Do not deviate from the JSON format. Exclude extra commentary, footnotes, or references.
Input Expectation: Assume the input will include a dataset with the following structure:
Diseases: Name and diagnosis date.
Symptoms: Name, severity, and time of recording.
Medications (optional): If included, review previous medications to avoid redundancy.
Example Response:{
    "Summary": "The patient shows a progressive trend in symptom severity, indicating moderate deterioration over 6 months.",
    "Suggested Medications": ["Medication A", "Medication B", "Medication C"],
    "Risk Profile": "Medium Risk",
    "Immediate Consultation Needed": "May be"
}
Failure Scenario: If the input data is insufficient or unclear, respond with:{
    "Summary": "Insufficient data to provide an accurate overview.",
    "Suggested Medications": [],
    "Risk Profile": "Low Risk",
    "Immediate Consultation Needed": "No"
}`

const briefInstructions = "Strictly give me a response in the following format:" +
	"\n- Summary: summary of my health condition in 30 words." +
	"\n- Suggested medications: (top 3)." +
	"\n- Risk Profile: High Risk, Medium Risk, or Low Risk." +
	"\n- Immediate consultation needed: Yes or No."

// Templates maps instruction template names to the instructions attached to
// a new assistant thread.
type Templates map[string]string

// DefaultTemplates returns the built-in instruction templates.
func DefaultTemplates() Templates {
	return Templates{
		TemplateJSONInsights: jsonInsightsInstructions,
		TemplateBrief:        briefInstructions,
	}
}

// Lookup returns the instructions registered under name.
func (t Templates) Lookup(name string) (string, error) {
	text, ok := t[strings.TrimSpace(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownTemplate, name, strings.Join(t.Names(), ", "))
	}
	return text, nil
}

// Names lists the registered template names in sorted order.
func (t Templates) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
