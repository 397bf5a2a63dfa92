package lark

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
)

// LogNotifier writes notifications to the log; used when Lark is not configured
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements port.Notifier
func (n *LogNotifier) Notify(ctx context.Context, msg port.Notification) error {
	var userID int64
	if msg.Recipient != nil {
		userID = msg.Recipient.ID
	}
	n.logger.Info("Notification",
		zap.Int64("expense_id", msg.ExpenseID),
		zap.Int64("user_id", userID),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body))
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
