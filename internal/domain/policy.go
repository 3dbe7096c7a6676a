package domain

// Action names a command an actor can be authorized for.
type Action string

const (
	ActionJobCreate  Action = "job.create"
	ActionJobSubmit  Action = "job.submit"
	ActionJobApprove Action = "job.approve"
	ActionJobReject  Action = "job.reject"
	ActionJobPause   Action = "job.pause"
	ActionJobResume  Action = "job.resume"
	ActionJobClose   Action = "job.close"
	ActionJobFill    Action = "job.fill"
	ActionJobCancel  Action = "job.cancel"
	ActionJobRead    Action = "job.read"

	ActionApply              Action = "application.apply"
	ActionUpdateStatus       Action = "application.update_status"
	ActionWithdraw           Action = "application.withdraw"
	ActionOverride           Action = "application.override"
	ActionApplicationReadAll Action = "application.read_all"

	ActionSchedule         Action = "interview.schedule"
	ActionReschedule       Action = "interview.reschedule"
	ActionRespond          Action = "interview.respond"
	ActionCancelInterview  Action = "interview.cancel"
	ActionStartInterview   Action = "interview.start"
	ActionNoShow           Action = "interview.no_show"
	ActionSubmitFeedback   Action = "interview.feedback"
	ActionFeedbackOverride Action = "interview.feedback_override"
	ActionDecide           Action = "interview.decide"
	ActionInterviewReadAll Action = "interview.read_all"
)

// CompanyPolicy is the per-company requisition policy.
type CompanyPolicy struct {
	RequireJobApproval bool   `json:"require_job_approval" yaml:"require_job_approval"`
	ApprovalRoles      []Role `json:"approval_roles" yaml:"approval_roles"`
}

// CanApprove reports whether role is listed as an approval role.
func (p CompanyPolicy) CanApprove(role Role) bool {
	for _, r := range p.ApprovalRoles {
		if r == role {
			return true
		}
	}
	return false
}
