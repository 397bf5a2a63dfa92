package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
)

// Users are addressed by their work email
const (
	receiveIDType = "email"
	msgTypeCard   = "interactive"
)

// messageCreator is the slice of the IM API the notifier needs
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Notifier delivers expense notifications as Lark interactive cards
type Notifier struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewNotifier creates a notifier on top of the SDK client
func NewNotifier(sdk *SDKClient, logger *zap.Logger) *Notifier {
	return newNotifier(sdk.GetClient().Im.Message, logger)
}

func newNotifier(messages messageCreator, logger *zap.Logger) *Notifier {
	return &Notifier{
		messages: messages,
		logger:   logger,
	}
}

// Notify implements port.Notifier
func (n *Notifier) Notify(ctx context.Context, msg port.Notification) error {
	if msg.Recipient == nil {
		return fmt.Errorf("recipient cannot be nil")
	}
	receiveID := msg.Recipient.Email
	if receiveID == "" {
		return fmt.Errorf("user %d has no email", msg.Recipient.ID)
	}

	content, err := json.Marshal(buildCard(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgTypeCard).
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.messages.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.Int64("expense_id", msg.ExpenseID),
			zap.Int64("user_id", msg.Recipient.ID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("Lark API returned error",
			zap.Int64("expense_id", msg.ExpenseID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	n.logger.Info("Message sent",
		zap.Int64("expense_id", msg.ExpenseID),
		zap.Int64("user_id", msg.Recipient.ID),
		zap.String("message_id", messageID))

	return nil
}

// buildCard renders the notification as a card with a header, a body
// paragraph and one short field per entry, sorted by label
func buildCard(msg port.Notification) map[string]interface{} {
	labels := make([]string, 0, len(msg.Fields))
	for label := range msg.Fields {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fields := make([]map[string]interface{}, 0, len(labels))
	for _, label := range labels {
		fields = append(fields, map[string]interface{}{
			"is_short": true,
			"text": map[string]interface{}{
				"tag":     "lark_md",
				"content": fmt.Sprintf("**%s**\n%s", label, msg.Fields[label]),
			},
		})
	}

	elements := []map[string]interface{}{
		{
			"tag": "div",
			"text": map[string]interface{}{
				"tag":     "lark_md",
				"content": msg.Body,
			},
		},
	}
	if len(fields) > 0 {
		elements = append(elements, map[string]interface{}{
			"tag":    "div",
			"fields": fields,
		})
	}

	return map[string]interface{}{
		"config": map[string]interface{}{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": msg.Title,
			},
		},
		"elements": elements,
	}
}

var _ port.Notifier = (*Notifier)(nil)
