package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a requisition.
type JobStatus string

const (
	JobStatusDraft           JobStatus = "draft"
	JobStatusPendingApproval JobStatus = "pending_approval"
	JobStatusOpen            JobStatus = "open"
	JobStatusPaused          JobStatus = "paused"
	JobStatusClosed          JobStatus = "closed"
	JobStatusFilled          JobStatus = "filled"
	JobStatusCancelled       JobStatus = "cancelled"
)

// JobAction is a requisition lifecycle command.
type JobAction string

const (
	JobActionSubmit  JobAction = "submit"
	JobActionApprove JobAction = "approve"
	JobActionReject  JobAction = "reject"
	JobActionPause   JobAction = "pause"
	JobActionResume  JobAction = "resume"
	JobActionClose   JobAction = "close"
	JobActionFill    JobAction = "fill"
	JobActionCancel  JobAction = "cancel"
)

type jobEdge struct {
	from   JobStatus
	action JobAction
}

// jobTransitions is the requisition state graph. Submit with approval
// disabled is resolved by the caller to JobStatusOpen.
var jobTransitions = map[jobEdge]JobStatus{
	{JobStatusDraft, JobActionSubmit}:            JobStatusPendingApproval,
	{JobStatusPendingApproval, JobActionApprove}: JobStatusOpen,
	{JobStatusPendingApproval, JobActionReject}:  JobStatusCancelled,
	{JobStatusOpen, JobActionPause}:              JobStatusPaused,
	{JobStatusPaused, JobActionResume}:           JobStatusOpen,
	{JobStatusOpen, JobActionClose}:              JobStatusClosed,
	{JobStatusOpen, JobActionFill}:               JobStatusFilled,
	{JobStatusDraft, JobActionCancel}:            JobStatusCancelled,
	{JobStatusPendingApproval, JobActionCancel}:  JobStatusCancelled,
	{JobStatusOpen, JobActionCancel}:             JobStatusCancelled,
	{JobStatusPaused, JobActionCancel}:           JobStatusCancelled,
}

// NextJobStatus returns the status reached by applying action to current.
func NextJobStatus(current JobStatus, action JobAction) (JobStatus, error) {
	next, ok := jobTransitions[jobEdge{current, action}]
	if !ok {
		return current, &TransitionError{
			Entity: "job",
			From:   string(current),
			To:     string(action),
			Reason: "action not allowed in current status",
		}
	}
	return next, nil
}

// AllowedNext lists the statuses reachable from s in one step.
func (s JobStatus) AllowedNext() []JobStatus {
	seen := make(map[JobStatus]bool)
	var next []JobStatus
	for edge, to := range jobTransitions {
		if edge.from == s && !seen[to] {
			seen[to] = true
			next = append(next, to)
		}
	}
	if s == JobStatusDraft && !seen[JobStatusOpen] {
		next = append(next, JobStatusOpen)
	}
	return next
}

// Terminal reports whether no further lifecycle actions apply.
func (s JobStatus) Terminal() bool {
	return s == JobStatusClosed || s == JobStatusFilled || s == JobStatusCancelled
}

// ApprovalInfo records who moved a requisition through approval and when.
type ApprovalInfo struct {
	SubmittedBy     *uuid.UUID `json:"submitted_by,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      *uuid.UUID `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	AutoApproved    bool       `json:"auto_approved"`
}

// Job is a requisition.
type Job struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	CompanyID       uuid.UUID    `json:"company_id" db:"company_id"`
	Title           string       `json:"title" db:"title"`
	Description     string       `json:"description" db:"description"`
	Location        string       `json:"location" db:"location"`
	Department      string       `json:"department" db:"department"`
	HiringManagerID uuid.UUID    `json:"hiring_manager_id" db:"hiring_manager_id"`
	Positions       int          `json:"positions" db:"positions"`
	InternalOnly    bool         `json:"internal_only" db:"internal_only"`
	Status          JobStatus    `json:"status" db:"status"`
	Approval        ApprovalInfo `json:"approval" db:"-"`
	CreatedBy       uuid.UUID    `json:"created_by" db:"created_by"`
	Version         int          `json:"version" db:"version"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// AcceptsApplications reports whether candidates can currently apply.
func (j Job) AcceptsApplications() bool {
	return j.Status == JobStatusOpen
}
