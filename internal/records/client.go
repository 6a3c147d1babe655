package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"symptom-insights/pkg"
)

// ErrUpstream reports a records API call that failed or returned an
// unusable body.
var ErrUpstream = errors.New("records upstream error")

// ErrInvalidTarget reports a records URL the client refuses to call: one
// outside the configured records API, or a request without a patient id.
var ErrInvalidTarget = errors.New("invalid records target")

// maxBody caps how much of an upstream response is read.
const maxBody = 4 << 20

// Client fetches medical records from the patient records API.  BaseURL is
// the patient endpoint, for example
// https://records.example/api/v2/get-patient-ds.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// NewClient returns a Client for the records API at baseURL whose requests
// time out after timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}, BaseURL: strings.TrimSpace(baseURL)}
}

// FetchPatient loads the record of patientID.  The URL is built from
// BaseURL; a caller supplied override is only used when it points at the
// same scheme, host and path and names the same patient.
func (c *Client) FetchPatient(ctx context.Context, patientID, override, token string) (pkg.MedicalRecord, error) {
	target, err := c.PatientURL(patientID, override)
	if err != nil {
		return pkg.MedicalRecord{}, err
	}
	return c.Fetch(ctx, target, token)
}

// PatientURL returns the records URL for patientID.
func (c *Client) PatientURL(patientID, override string) (string, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return "", fmt.Errorf("%w: patient id is required", ErrInvalidTarget)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("%w: records base url %q is not usable", ErrInvalidTarget, c.BaseURL)
	}

	if strings.TrimSpace(override) != "" {
		u, err := url.Parse(strings.TrimSpace(override))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) || u.User != nil {
			return "", fmt.Errorf("%w: host %q is not the records api", ErrInvalidTarget, u.Host)
		}
		if strings.TrimSuffix(u.Path, "/") != strings.TrimSuffix(base.Path, "/") {
			return "", fmt.Errorf("%w: path %q is not the patient endpoint", ErrInvalidTarget, u.Path)
		}
		if id := u.Query().Get("patientId"); id != patientID {
			return "", fmt.Errorf("%w: url names patient %q, request names %q", ErrInvalidTarget, id, patientID)
		}
		return u.String(), nil
	}

	u := *base
	q := u.Query()
	q.Set("patientId", patientID)
	if q.Get("recordType") == "" {
		q.Set("recordType", "0")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch GETs url with the caller's token in the "token" header and decodes
// the body as a MedicalRecord.
func (c *Client) Fetch(ctx context.Context, url, token string) (pkg.MedicalRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pkg.MedicalRecord{}, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("token", token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return pkg.MedicalRecord{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return pkg.MedicalRecord{}, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkg.MedicalRecord{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	var rec pkg.MedicalRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return pkg.MedicalRecord{}, fmt.Errorf("%w: decode record: %v", ErrUpstream, err)
	}
	return rec, nil
}
