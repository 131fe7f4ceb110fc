// Package insurance is the HTTP client for the third-party insurance
// eligibility API.
package insurance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Eligibility statuses returned by the API or synthesised locally.
const (
	StatusEligible           = "ELIGIBLE"
	StatusIneligible         = "INELIGIBLE"
	StatusVerificationFailed = "VERIFICATION_FAILED"
)

// ErrUnexpectedStatus is wrapped by errors for non-2xx API answers.
var ErrUnexpectedStatus = errors.New("insurance: unexpected status")

// VerifyRequest is the POST /verify body.
type VerifyRequest struct {
	PatientID             string `json:"patientId"`
	InsurancePolicyNumber string `json:"insurancePolicyNumber"`
}

// Result is the eligibility answer.
type Result struct {
	Verified          bool    `json:"verified"`
	EligibilityStatus string  `json:"eligibilityStatus"`
	CoverageDetails   *string `json:"coverageDetails,omitempty"`
}

// Client calls {baseURL}/verify with the configured API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client. httpClient carries the transport and timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

// Verify asks the API whether the policy is eligible. Transport failures,
// non-2xx answers and undecodable bodies are returned as errors.
func (c *Client) Verify(ctx context.Context, patientID, policyNumber string) (*Result, error) {
	body, err := json.Marshal(VerifyRequest{
		PatientID:             patientID,
		InsurancePolicyNumber: policyNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("insurance: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("insurance: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("insurance: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("insurance: decode response: %w", err)
	}
	return &result, nil
}
