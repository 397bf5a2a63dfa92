package workflow

import (
	"fmt"

	"github.com/garyjia/expenseflow/internal/domain/entity"
)

// TargetKind distinguishes the two ways a step can name its approver
type TargetKind string

const (
	TargetRole TargetKind = "ROLE"
	TargetUser TargetKind = "USER"
)

// StepTarget is the approver requirement of a resolved step.
// Role is set for TargetRole, UserID for TargetUser.
type StepTarget struct {
	Kind     TargetKind  `json:"kind"`
	Sequence int         `json:"sequence"`
	Role     entity.Role `json:"role,omitempty"`
	UserID   int64       `json:"user_id,omitempty"`
}

// RoleMatch builds a target satisfied by any company user holding role
func RoleMatch(sequence int, role entity.Role) StepTarget {
	return StepTarget{Kind: TargetRole, Sequence: sequence, Role: role}
}

// SpecificUser builds a target satisfied only by the given user
func SpecificUser(sequence int, userID int64) StepTarget {
	return StepTarget{Kind: TargetUser, Sequence: sequence, UserID: userID}
}

// Permits reports whether user may decide the step inside companyID
func (t StepTarget) Permits(user *entity.User, companyID int64) bool {
	if user == nil {
		return false
	}
	switch t.Kind {
	case TargetUser:
		return user.ID == t.UserID
	case TargetRole:
		return user.CompanyID == companyID && user.Role == t.Role
	default:
		return false
	}
}

// String returns a short description of the target
func (t StepTarget) String() string {
	if t.Kind == TargetUser {
		return fmt.Sprintf("step %d: user %d", t.Sequence, t.UserID)
	}
	return fmt.Sprintf("step %d: role %s", t.Sequence, t.Role)
}

// ResolveApprover returns the approver requirement for the lowest step whose
// sequence is >= stepSequence. A Manager step resolves to the submitter's
// direct manager when the submitter is flagged as manager-approver.
func ResolveApprover(wf *entity.WorkflowDefinition, stepSequence int, submitter *entity.User) (StepTarget, error) {
	if wf == nil {
		return StepTarget{}, fmt.Errorf("%w: no workflow bound", ErrStepNotFound)
	}

	step, ok := wf.StepAtOrAfter(stepSequence)
	if !ok {
		return StepTarget{}, fmt.Errorf("%w: no step at or after %d in workflow %d", ErrStepNotFound, stepSequence, wf.ID)
	}

	if step.ApproverSpecificID != nil {
		return SpecificUser(step.Sequence, *step.ApproverSpecificID), nil
	}
	if step.ApproverRole == nil {
		return StepTarget{}, fmt.Errorf("%w: step %d has no approver", ErrStepNotFound, step.Sequence)
	}

	role := *step.ApproverRole
	if role == entity.RoleManager && submitter != nil && submitter.IsManagerApprover {
		if !submitter.HasManager() {
			return StepTarget{}, fmt.Errorf("%w: submitter %d has no manager for step %d", ErrNotAuthorized, submitter.ID, step.Sequence)
		}
		return SpecificUser(step.Sequence, *submitter.ManagerID), nil
	}

	return RoleMatch(step.Sequence, role), nil
}

// EligibleApprovers filters a company roster down to the users the target permits
func EligibleApprovers(target StepTarget, companyID int64, roster []*entity.User) []*entity.User {
	eligible := make([]*entity.User, 0)
	for _, user := range roster {
		if target.Permits(user, companyID) {
			eligible = append(eligible, user)
		}
	}
	return eligible
}
