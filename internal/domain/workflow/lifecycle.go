package workflow

// NewExpenseLifecycle creates a state machine configured for the expense lifecycle
//
//	DRAFT --SUBMIT--> PENDING --ADVANCE--> PENDING
//	                  PENDING --APPROVE--> APPROVED
//	                  PENDING --REJECT---> REJECTED
func NewExpenseLifecycle(initialState State) StateMachine {
	builder := NewBuilder()

	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StatePending)

	builder.Configure(StatePending).
		Permit(TriggerAdvance, StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	// APPROVED and REJECTED are terminal states - no outgoing transitions
	builder.Configure(StateApproved)
	builder.Configure(StateRejected)

	return builder.Build(initialState)
}
