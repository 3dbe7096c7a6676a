package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of pipeline event sent to the notifier.
type EventType string

const (
	EventJobSubmitted         EventType = "job_submitted"
	EventJobApproved          EventType = "job_approved"
	EventJobRejected          EventType = "job_rejected"
	EventJobStatusChanged     EventType = "job_status_changed"
	EventApplicationCreated   EventType = "application_created"
	EventApplicationStatus    EventType = "application_status_changed"
	EventApplicationWithdrawn EventType = "application_withdrawn"
	EventInterviewScheduled   EventType = "interview_scheduled"
	EventInterviewRescheduled EventType = "interview_rescheduled"
	EventInterviewResponded   EventType = "interview_responded"
	EventInterviewCancelled   EventType = "interview_cancelled"
	EventInterviewStatus      EventType = "interview_status_changed"
	EventFeedbackSubmitted    EventType = "feedback_submitted"
	EventDecisionMade         EventType = "decision_made"
)

// Event is a fire-and-forget notification about a committed transition.
type Event struct {
	Type       EventType         `json:"type"`
	EntityID   uuid.UUID         `json:"entity_id"`
	ActorID    uuid.UUID         `json:"actor_id"`
	Recipients []uuid.UUID       `json:"recipients,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
