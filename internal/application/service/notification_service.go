package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/internal/domain/event"
	domainwf "github.com/garyjia/expenseflow/internal/domain/workflow"
)

// NotificationService tells approvers what awaits them and submitters how their claim ended
type NotificationService interface {
	// HandleEvent reacts to expense events
	HandleEvent(ctx context.Context, evt *event.Event) error

	// RemindStale re-notifies the approvers of pending expenses untouched for longer than staleAfter.
	// It returns the number of expenses reminded about.
	RemindStale(ctx context.Context, staleAfter time.Duration) (int, error)
}

type notificationServiceImpl struct {
	expenses  port.ExpenseRepository
	users     port.UserRepository
	workflows port.WorkflowRepository
	notifier  port.Notifier
	logger    Logger
	now       func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	expenses port.ExpenseRepository,
	users port.UserRepository,
	workflows port.WorkflowRepository,
	notifier port.Notifier,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		expenses:  expenses,
		users:     users,
		workflows: workflows,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	expense, err := s.expenses.GetByID(ctx, evt.ExpenseID)
	if err != nil {
		return fmt.Errorf("get expense %d: %w", evt.ExpenseID, err)
	}

	switch evt.Type {
	case event.TypeExpenseSubmitted, event.TypeExpenseStepAdvanced:
		// the expense may have moved on since the event was raised
		if expense.Status != entity.ExpenseStatusPending ||
			int64(expense.CurrentApprovalStep) != evt.GetPayloadInt(event.KeyNewStep) {
			s.logger.Info("Skipping stale approver notification",
				"expense_id", expense.ID, "event_step", evt.GetPayloadInt(event.KeyNewStep),
				"current_step", expense.CurrentApprovalStep, "status", expense.Status.String())
			return nil
		}
		return s.notifyApprovers(ctx, expense, "Expense awaiting your approval")

	case event.TypeExpenseApproved, event.TypeExpenseRejected:
		submitter, err := s.users.GetByID(ctx, expense.SubmitterID)
		if err != nil {
			return fmt.Errorf("get submitter %d: %w", expense.SubmitterID, err)
		}
		body := fmt.Sprintf("Your expense #%d (%s %s) was %s.",
			expense.ID, expense.SubmittedAmount.StringFixed(2), expense.SubmittedCurrency, expense.Status)
		if rule := evt.GetPayloadString(event.KeyRuleName); rule != "" {
			body += fmt.Sprintf(" Approved early by rule %q.", rule)
		}
		if comments := evt.GetPayloadString(event.KeyComments); comments != "" {
			body += " Comment: " + comments
		}
		return s.send(ctx, port.Notification{
			Recipient: submitter,
			ExpenseID: expense.ID,
			Title:     fmt.Sprintf("Expense %s", expense.Status),
			Body:      body,
			Fields:    expenseFields(expense),
		})
	}
	return nil
}

func (s *notificationServiceImpl) RemindStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	stale, err := s.expenses.List(ctx, port.ExpenseFilter{
		Status:        entity.ExpenseStatusPending,
		UpdatedBefore: s.now().Add(-staleAfter),
	})
	if err != nil {
		return 0, fmt.Errorf("list stale expenses: %w", err)
	}

	reminded := 0
	for _, expense := range stale {
		if err := s.notifyApprovers(ctx, expense, "Reminder: expense still awaiting approval"); err != nil {
			s.logger.Error("Failed to send reminder", "error", err, "expense_id", expense.ID)
			continue
		}
		reminded++
	}

	if reminded > 0 {
		s.logger.Info("Stale expense reminders sent", "count", reminded, "stale_after", staleAfter.String())
	}
	return reminded, nil
}

func (s *notificationServiceImpl) notifyApprovers(ctx context.Context, expense *entity.Expense, title string) error {
	target, err := newTargetResolver(s.users, s.workflows).resolve(ctx, expense)
	if err != nil {
		return fmt.Errorf("resolve approver: %w", err)
	}
	roster, err := s.users.ListByCompany(ctx, expense.CompanyID)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	approvers := domainwf.EligibleApprovers(target, expense.CompanyID, roster)
	if len(approvers) == 0 {
		s.logger.Error("No eligible approver for step", "expense_id", expense.ID, "target", target.String())
		return nil
	}

	body := fmt.Sprintf("Expense #%d for %s %s (%s) is waiting on step %d.",
		expense.ID, expense.SubmittedAmount.StringFixed(2), expense.SubmittedCurrency, expense.Description, target.Sequence)

	var errs []error
	for _, approver := range approvers {
		if err := s.send(ctx, port.Notification{
			Recipient: approver,
			ExpenseID: expense.ID,
			Title:     title,
			Body:      body,
			Fields:    expenseFields(expense),
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *notificationServiceImpl) send(ctx context.Context, n port.Notification) error {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error("Failed to send notification", "error", err, "expense_id", n.ExpenseID, "user_id", n.Recipient.ID)
		return fmt.Errorf("notify user %d: %w", n.Recipient.ID, err)
	}
	s.logger.Info("Notification sent", "expense_id", n.ExpenseID, "user_id", n.Recipient.ID, "title", n.Title)
	return nil
}

func expenseFields(e *entity.Expense) map[string]string {
	return map[string]string{
		"Category":  e.Category,
		"Date":      e.ExpenseDate.Format("2006-01-02"),
		"Amount":    e.SubmittedAmount.StringFixed(2) + " " + e.SubmittedCurrency,
		"Converted": e.ConvertedAmount.StringFixed(2),
		"Status":    e.Status.String(),
	}
}
