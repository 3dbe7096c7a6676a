package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestScoreReturnsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.JobTitle != "Backend Engineer" {
			t.Errorf("unexpected title %q", req.JobTitle)
		}
		_ = json.NewEncoder(w).Encode(Result{Match: 82.5, Summary: "strong Go background"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	res, err := c.Score(context.Background(), Request{CandidateID: uuid.New(), JobID: uuid.New(), JobTitle: "Backend Engineer"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Match != 82.5 || res.Summary == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestScoreTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 30*time.Millisecond)
	_, err := c.Score(context.Background(), Request{})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestScoreRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Score(context.Background(), Request{})
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("expected non-timeout error, got %v", err)
	}
}
