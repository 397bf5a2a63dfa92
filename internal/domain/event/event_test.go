package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"submitted", TypeExpenseSubmitted, true},
		{"step advanced", TypeExpenseStepAdvanced, true},
		{"approved", TypeExpenseApproved, true},
		{"rejected", TypeExpenseRejected, true},
		{"unknown", Type("expense.deleted"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_IsTerminal(t *testing.T) {
	assert.True(t, TypeExpenseApproved.IsTerminal())
	assert.True(t, TypeExpenseRejected.IsTerminal())
	assert.False(t, TypeExpenseSubmitted.IsTerminal())
	assert.False(t, TypeExpenseStepAdvanced.IsTerminal())
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeExpenseSubmitted, 42, 1, 7, map[string]interface{}{KeyNewStep: 1})

	require.NotEmpty(t, evt.ID)
	assert.Len(t, evt.ID, 36)
	assert.NotEmpty(t, evt.CorrelationID)
	assert.NotEqual(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, int64(42), evt.ExpenseID)
	assert.Equal(t, int64(1), evt.CompanyID)
	assert.Equal(t, int64(7), evt.ActorID)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Equal(t, int64(1), evt.GetPayloadInt(KeyNewStep))

	other := NewEvent(TypeExpenseSubmitted, 42, 1, 7, nil)
	assert.NotEqual(t, evt.ID, other.ID)
	assert.NotNil(t, other.Payload)
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeExpenseApproved, 1, 1, 1, nil, "chain-1")
	assert.Equal(t, "chain-1", evt.CorrelationID)
}

func TestEvent_WithPayloadDoesNotMutateOriginal(t *testing.T) {
	original := NewEvent(TypeExpenseApproved, 1, 1, 1, map[string]interface{}{KeyNewStatus: "Approved"})
	updated := original.WithPayload(KeyRuleName, "big spend")

	assert.Equal(t, "", original.GetPayloadString(KeyRuleName))
	assert.Equal(t, "big spend", updated.GetPayloadString(KeyRuleName))
	assert.Equal(t, "Approved", updated.GetPayloadString(KeyNewStatus))
	assert.Equal(t, original.ID, updated.ID)
}

func TestEvent_PayloadAccessors(t *testing.T) {
	evt := NewEvent(TypeExpenseStepAdvanced, 1, 1, 1, map[string]interface{}{
		"int":     3,
		"float":   float64(4),
		"bool":    true,
		"wrong":   "x",
		"decided": stringer("Approved"),
	})

	assert.Equal(t, int64(3), evt.GetPayloadInt("int"))
	assert.Equal(t, int64(4), evt.GetPayloadInt("float"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("wrong"))
	assert.True(t, evt.GetPayloadBool("bool"))
	assert.False(t, evt.GetPayloadBool("missing"))
	assert.Equal(t, "Approved", evt.GetPayloadString("decided"))
}

type stringer string

func (s stringer) String() string { return string(s) }
