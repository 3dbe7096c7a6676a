// Package policy supplies the role permission table and per-company
// requisition policy consumed by the pipeline services.
package policy

import (
	"github.com/sumire/hiring/internal/domain"
)

// RoleTable maps each role to the actions it may perform.
type RoleTable map[domain.Role]map[domain.Action]bool

// CanPerform reports whether role is allowed action.
func (t RoleTable) CanPerform(role domain.Role, action domain.Action) bool {
	return t[role][action]
}

// DefaultRoleTable returns the built-in permissions. Each tier includes the
// permissions of the tier below it.
func DefaultRoleTable() RoleTable {
	candidate := []domain.Action{
		domain.ActionJobRead,
		domain.ActionApply,
		domain.ActionWithdraw,
		domain.ActionRespond,
	}
	recruiter := []domain.Action{
		domain.ActionJobRead,
		domain.ActionJobCreate,
		domain.ActionJobSubmit,
		domain.ActionJobPause,
		domain.ActionJobResume,
		domain.ActionJobClose,
		domain.ActionJobFill,
		domain.ActionUpdateStatus,
		domain.ActionApplicationReadAll,
		domain.ActionSchedule,
		domain.ActionReschedule,
		domain.ActionCancelInterview,
		domain.ActionStartInterview,
		domain.ActionNoShow,
		domain.ActionSubmitFeedback,
		domain.ActionInterviewReadAll,
	}
	hiringManager := append(clone(recruiter),
		domain.ActionJobApprove,
		domain.ActionJobReject,
		domain.ActionDecide,
	)
	hr := append(clone(hiringManager),
		domain.ActionJobCancel,
		domain.ActionFeedbackOverride,
	)
	admin := append(clone(hr), domain.ActionOverride)

	return RoleTable{
		domain.RoleCandidate:     set(candidate),
		domain.RoleRecruiter:     set(recruiter),
		domain.RoleHiringManager: set(hiringManager),
		domain.RoleHR:            set(hr),
		domain.RoleAdmin:         set(admin),
	}
}

func set(actions []domain.Action) map[domain.Action]bool {
	m := make(map[domain.Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

func clone(actions []domain.Action) []domain.Action {
	return append([]domain.Action(nil), actions...)
}
