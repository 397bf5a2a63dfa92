package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/domain/event"
)

// AuditService keeps the append-only status history of expenses
type AuditService interface {
	// HandleEvent records one status change; it is subscribed to every expense event
	HandleEvent(ctx context.Context, evt *event.Event) error

	// History returns the expense's status changes, oldest first
	History(ctx context.Context, expenseID int64) ([]*entity.AuditEntry, error)
}

type auditServiceImpl struct {
	auditRepo port.AuditRepository
	logger    Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo port.AuditRepository, logger Logger) AuditService {
	return &auditServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *auditServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	entry := &entity.AuditEntry{
		ExpenseID:      evt.ExpenseID,
		ActorID:        evt.ActorID,
		PreviousStatus: evt.GetPayloadString(event.KeyPreviousStatus),
		NewStatus:      evt.GetPayloadString(event.KeyNewStatus),
		PreviousStep:   int(evt.GetPayloadInt(event.KeyPreviousStep)),
		NewStep:        int(evt.GetPayloadInt(event.KeyNewStep)),
		ActionType:     evt.Type.String(),
		ActionData:     string(data),
		Timestamp:      evt.Timestamp,
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit entry", "error", err, "expense_id", evt.ExpenseID, "event_id", evt.ID)
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

func (s *auditServiceImpl) History(ctx context.Context, expenseID int64) ([]*entity.AuditEntry, error) {
	return s.auditRepo.ListByExpense(ctx, expenseID)
}
