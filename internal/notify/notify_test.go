package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
)

func TestWebhookDeliversEvent(t *testing.T) {
	var (
		mu  sync.Mutex
		got []domain.Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev domain.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	wh.Notify(ctx, domain.Event{Type: domain.EventInterviewScheduled, EntityID: id})
	cancel()
	wh.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].EntityID != id || got[0].Type != domain.EventInterviewScheduled {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
}

func TestWebhookFailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, time.Second)
	wh.Notify(context.Background(), domain.Event{Type: domain.EventDecisionMade})
	wh.Wait()
}
