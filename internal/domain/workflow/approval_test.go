package workflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expenseflow/internal/domain/entity"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func submitted(t *testing.T, amount string) (*entity.Expense, *entity.WorkflowDefinition) {
	t.Helper()
	expense := draftExpense(amount)
	wf := managerAdminAdmin()
	require.NoError(t, Submit(expense, wf, testNow))
	return expense, wf
}

// decider applies decisions and accumulates the transaction history
type decider struct {
	t         *testing.T
	expense   *entity.Expense
	wf        *entity.WorkflowDefinition
	rules     []*entity.ConditionalRule
	submitter *entity.User
	history   []*entity.ApprovalTransaction
}

func (d *decider) decide(approver *entity.User, decision entity.DecisionStatus, override bool) (*Outcome, error) {
	out, err := Decide(DecisionInput{
		Expense:      d.expense,
		Workflow:     d.wf,
		Rules:        d.rules,
		Submitter:    d.submitter,
		Approver:     approver,
		Transactions: d.history,
		Decision:     decision,
		Override:     override,
		Now:          testNow,
	})
	if err == nil {
		d.history = append(d.history, out.Transaction)
	}
	return out, err
}

func TestSubmit(t *testing.T) {
	t.Run("draft becomes pending at first step", func(t *testing.T) {
		expense, wf := submitted(t, "120.00")
		assert.Equal(t, entity.ExpenseStatusPending, expense.Status)
		assert.Equal(t, 1, expense.CurrentApprovalStep)
		require.NotNil(t, expense.WorkflowID)
		assert.Equal(t, wf.ID, *expense.WorkflowID)
		require.NotNil(t, expense.SubmittedAt)
		assert.Equal(t, testNow, *expense.SubmittedAt)
	})

	t.Run("pointer starts at 1 and resolves to the lowest sequence", func(t *testing.T) {
		expense := draftExpense("10")
		wf := &entity.WorkflowDefinition{ID: 3, IsActive: true, Steps: []entity.WorkflowStep{
			{Sequence: 7, ApproverRole: rolePtr(entity.RoleAdmin)},
			{Sequence: 4, ApproverRole: rolePtr(entity.RoleManager)},
		}}
		require.NoError(t, Submit(expense, wf, testNow))
		assert.Equal(t, 1, expense.CurrentApprovalStep)

		target, err := ResolveApprover(wf, expense.CurrentApprovalStep, nil)
		require.NoError(t, err)
		assert.Equal(t, RoleMatch(4, entity.RoleManager), target)
	})

	t.Run("cannot submit twice", func(t *testing.T) {
		expense, wf := submitted(t, "120.00")
		assert.ErrorIs(t, Submit(expense, wf, testNow), ErrInvalidState)
	})

	t.Run("workflow without steps", func(t *testing.T) {
		expense := draftExpense("10")
		err := Submit(expense, &entity.WorkflowDefinition{ID: 3, IsActive: true}, testNow)
		assert.ErrorIs(t, err, ErrStepNotFound)
		assert.Equal(t, entity.ExpenseStatusDraft, expense.Status)
	})

	t.Run("inactive workflow", func(t *testing.T) {
		wf := managerAdminAdmin()
		wf.IsActive = false
		assert.ErrorIs(t, Submit(draftExpense("10"), wf, testNow), ErrStepNotFound)
	})
}

func TestDecide_FullChainApproves(t *testing.T) {
	admin, manager, _, employee := team()
	expense, wf := submitted(t, "300.00")
	d := &decider{t: t, expense: expense, wf: wf, submitter: employee}

	out, err := d.decide(manager, entity.DecisionApproved, false)
	require.NoError(t, err)
	assert.Equal(t, TriggerAdvance, out.Trigger)
	assert.Equal(t, 1, out.PreviousStep)
	assert.Equal(t, 2, out.NewStep)
	assert.False(t, out.Terminal)
	assert.Equal(t, entity.RoleManager, out.Transaction.ApproverRole)

	out, err = d.decide(admin, entity.DecisionApproved, false)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NewStep)
	assert.Equal(t, entity.ExpenseStatusPending, expense.Status)

	out, err = d.decide(admin, entity.DecisionApproved, false)
	require.NoError(t, err)
	assert.True(t, out.Terminal)
	assert.Nil(t, out.FiredRule)
	assert.Equal(t, entity.ExpenseStatusApproved, expense.Status)
	assert.Equal(t, 3, expense.CurrentApprovalStep)
	require.NotNil(t, expense.CompletedAt)

	_, err = d.decide(admin, entity.DecisionRejected, false)
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestDecide_ManagerApproverMustBeDirectManager(t *testing.T) {
	_, manager, otherManager, employee := team()
	expense, wf := submitted(t, "80.00")
	d := &decider{t: t, expense: expense, wf: wf, submitter: employee}

	_, err := d.decide(otherManager, entity.DecisionApproved, false)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, 1, expense.CurrentApprovalStep)
	assert.Empty(t, d.history)

	_, err = d.decide(manager, entity.DecisionApproved, false)
	assert.NoError(t, err)
}

func TestDecide_RejectionAlwaysWins(t *testing.T) {
	admin, manager, _, employee := team()
	expense, wf := submitted(t, "9000.00")
	rules := []*entity.ConditionalRule{
		{ID: 1, Type: entity.RuleTypePercentage, PercentageRequired: intPtr(1), IsActive: true},
		{ID: 2, Type: entity.RuleTypeSpecificApprover, ApproverRole: rolePtr(entity.RoleManager), IsActive: true},
	}
	d := &decider{t: t, expense: expense, wf: wf, rules: rules, submitter: employee}

	out, err := d.decide(manager, entity.DecisionApproved, false)
	require.NoError(t, err)
	require.True(t, out.Terminal, "specific approver rule fires on the manager's approval")

	expense2, wf2 := submitted(t, "9000.00")
	d2 := &decider{t: t, expense: expense2, wf: wf2, rules: rules, submitter: employee}
	out, err = d2.decide(manager, entity.DecisionRejected, false)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusRejected, out.NewStatus)
	assert.Nil(t, out.FiredRule)
	assert.Equal(t, TriggerReject, out.Trigger)

	_, err = d2.decide(admin, entity.DecisionApproved, false)
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestDecide_PercentageRuleFiresBeforeLastStep(t *testing.T) {
	admin, manager, _, employee := team()
	expense, wf := submitted(t, "500.00")
	rules := []*entity.ConditionalRule{
		{ID: 1, Type: entity.RuleTypePercentage, PercentageRequired: intPtr(60), TargetWorkflowStep: intPtr(2), IsActive: true},
	}
	d := &decider{t: t, expense: expense, wf: wf, rules: rules, submitter: employee}

	out, err := d.decide(manager, entity.DecisionApproved, false)
	require.NoError(t, err)
	assert.False(t, out.Terminal, "rule targets step 2 only")

	out, err = d.decide(admin, entity.DecisionApproved, false)
	require.NoError(t, err)
	assert.True(t, out.Terminal)
	require.NotNil(t, out.FiredRule)
	assert.Equal(t, int64(1), out.FiredRule.ID)
	assert.Equal(t, entity.ExpenseStatusApproved, expense.Status)
	assert.Equal(t, 2, expense.CurrentApprovalStep)
}

func TestDecide_ThresholdRule(t *testing.T) {
	admin, manager, _, employee := team()
	threshold := decimal.NewFromInt(5000)
	rules := []*entity.ConditionalRule{
		{ID: 1, Type: entity.RuleTypeThreshold, ThresholdAmount: &threshold, TargetWorkflowStep: intPtr(1), IsActive: true},
	}

	t.Run("small expense walks the whole chain", func(t *testing.T) {
		expense, wf := submitted(t, "1250.00")
		d := &decider{t: t, expense: expense, wf: wf, rules: rules, submitter: employee}
		for _, approver := range []*entity.User{manager, admin} {
			out, err := d.decide(approver, entity.DecisionApproved, false)
			require.NoError(t, err)
			assert.Nil(t, out.FiredRule)
			assert.False(t, out.Terminal)
		}
	})

	t.Run("large expense approves on the targeted step", func(t *testing.T) {
		expense, wf := submitted(t, "6000.00")
		d := &decider{t: t, expense: expense, wf: wf, rules: rules, submitter: employee}
		out, err := d.decide(manager, entity.DecisionApproved, false)
		require.NoError(t, err)
		assert.True(t, out.Terminal)
		assert.Equal(t, entity.ExpenseStatusApproved, expense.Status)
	})
}

func TestDecide_DuplicateDecision(t *testing.T) {
	_, manager, _, employee := team()
	expense, wf := submitted(t, "40.00")
	d := &decider{t: t, expense: expense, wf: wf, submitter: employee}

	// another writer already recorded step 1
	d.history = []*entity.ApprovalTransaction{
		{ExpenseID: expense.ID, ApproverID: manager.ID, StepSequence: 1, Status: entity.DecisionApproved},
	}
	_, err := d.decide(manager, entity.DecisionApproved, false)
	assert.ErrorIs(t, err, ErrDuplicateDecision)
	assert.Equal(t, 1, expense.CurrentApprovalStep)
}

func TestDecide_AdminOverride(t *testing.T) {
	admin, manager, _, employee := team()
	foreignAdmin := &entity.User{ID: 90, CompanyID: 2, Role: entity.RoleAdmin}

	t.Run("admin may decide a manager step", func(t *testing.T) {
		expense, wf := submitted(t, "40.00")
		d := &decider{t: t, expense: expense, wf: wf, submitter: employee}
		out, err := d.decide(admin, entity.DecisionApproved, true)
		require.NoError(t, err)
		assert.True(t, out.Transaction.IsOverride)
		assert.Equal(t, 1, out.Transaction.StepSequence)
		assert.Equal(t, 2, expense.CurrentApprovalStep)
	})

	t.Run("non admin cannot override", func(t *testing.T) {
		expense, wf := submitted(t, "40.00")
		d := &decider{t: t, expense: expense, wf: wf, submitter: employee}
		_, err := d.decide(manager, entity.DecisionApproved, true)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("admin of another company cannot override", func(t *testing.T) {
		expense, wf := submitted(t, "40.00")
		d := &decider{t: t, expense: expense, wf: wf, submitter: employee}
		_, err := d.decide(foreignAdmin, entity.DecisionRejected, true)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("override works when the submitter has no manager", func(t *testing.T) {
		orphan := *employee
		orphan.ManagerID = nil
		expense, wf := submitted(t, "40.00")
		d := &decider{t: t, expense: expense, wf: wf, submitter: &orphan}

		_, err := d.decide(manager, entity.DecisionApproved, false)
		assert.ErrorIs(t, err, ErrNotAuthorized)

		out, err := d.decide(admin, entity.DecisionRejected, true)
		require.NoError(t, err)
		assert.Equal(t, entity.ExpenseStatusRejected, out.NewStatus)
	})
}

func TestDecide_InvalidInput(t *testing.T) {
	admin, _, _, employee := team()

	t.Run("unknown decision", func(t *testing.T) {
		expense, wf := submitted(t, "40.00")
		d := &decider{t: t, expense: expense, wf: wf, submitter: employee}
		_, err := d.decide(admin, entity.DecisionWaiting, true)
		assert.ErrorIs(t, err, ErrInvalidDecision)
	})

	t.Run("closed expense reports terminal state before the decision value", func(t *testing.T) {
		expense, wf := submitted(t, "40.00")
		expense.Status = entity.ExpenseStatusApproved
		d := &decider{t: t, expense: expense, wf: wf, submitter: employee}
		_, err := d.decide(admin, entity.DecisionWaiting, true)
		assert.ErrorIs(t, err, ErrTerminalState)
		assert.NotErrorIs(t, err, ErrInvalidDecision)
	})

	t.Run("draft expense", func(t *testing.T) {
		d := &decider{t: t, expense: draftExpense("40.00"), wf: managerAdminAdmin(), submitter: employee}
		_, err := d.decide(admin, entity.DecisionApproved, true)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("pointer past the end", func(t *testing.T) {
		expense, wf := submitted(t, "40.00")
		expense.CurrentApprovalStep = 9
		d := &decider{t: t, expense: expense, wf: wf, submitter: employee}
		_, err := d.decide(admin, entity.DecisionApproved, true)
		assert.ErrorIs(t, err, ErrStepNotFound)
	})
}
