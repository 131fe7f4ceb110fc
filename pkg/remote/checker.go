package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrNotFound means the remote service answered 404 for the entity.
	ErrNotFound = errors.New("remote: entity not found")
	// ErrUnavailable covers transport failures and any other non-2xx answer.
	ErrUnavailable = errors.New("remote: service unavailable")
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// StatusError carries the HTTP status of a failed lookup.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: GET %s returned %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUnavailable
}

// Envelope is the response body shape shared by the platform services.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Checker performs single-attempt entity lookups against a service base URL.
// It never retries; callers decide what a failure means.
type Checker struct {
	client *http.Client
}

// NewChecker wraps client. A nil client gets a direct client with DefaultTimeout.
func NewChecker(client *http.Client) *Checker {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Checker{client: client}
}

// Exists issues GET {serviceBaseURL}/{entityID} and reports any non-2xx answer
// or transport error as a failure.
func (c *Checker) Exists(ctx context.Context, serviceBaseURL, entityID string) error {
	resp, err := c.get(ctx, serviceBaseURL, entityID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Fetch is Exists plus decoding of the {success, data} envelope into out.
func (c *Checker) Fetch(ctx context.Context, serviceBaseURL, entityID string, out any) error {
	resp, err := c.get(ctx, serviceBaseURL, entityID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("remote: empty data for %s: %w", entityID, ErrNotFound)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("remote: decode data: %w", err)
	}
	return nil
}

func (c *Checker) get(ctx context.Context, serviceBaseURL, entityID string) (*http.Response, error) {
	if entityID == "" {
		return nil, fmt.Errorf("remote: empty entity id: %w", ErrNotFound)
	}
	endpoint := strings.TrimSuffix(serviceBaseURL, "/") + "/" + url.PathEscape(entityID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: GET %s: %v: %w", endpoint, err, ErrUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}
