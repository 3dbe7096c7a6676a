// Package scoring talks to the external resume scoring oracle.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout is returned when the oracle does not answer within the budget.
var ErrTimeout = errors.New("scoring oracle timed out")

// Request is what the oracle scores.
type Request struct {
	CandidateID    uuid.UUID `json:"candidate_id"`
	JobID          uuid.UUID `json:"job_id"`
	JobTitle       string    `json:"job_title"`
	JobDescription string    `json:"job_description"`
	CoverLetter    string    `json:"cover_letter,omitempty"`
}

// Result is the oracle's answer.
type Result struct {
	Match   float64 `json:"match"`
	Summary string  `json:"summary"`
}

// Client calls an HTTP scoring endpoint.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a Client. Every call is bounded by timeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		url:        url,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Score posts req to the oracle. A missed deadline yields ErrTimeout.
func (c *Client) Score(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode score request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, ErrTimeout
		}
		return Result{}, fmt.Errorf("call scoring oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("scoring oracle returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, ErrTimeout
		}
		return Result{}, fmt.Errorf("decode score: %w", err)
	}
	if result.Match < 0 || result.Match > 100 {
		return Result{}, fmt.Errorf("score %v out of range", result.Match)
	}
	return result, nil
}
