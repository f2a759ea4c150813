package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
)

const receiveIDTypeOpenID = "open_id"

// messageCreator is the part of the IM message API used for delivery
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger delivers notification text to Lark users by open_id
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewMessenger creates a messenger backed by the SDK client's IM API
func NewMessenger(client *lark.Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: client.Im.Message,
		logger:   logger,
	}
}

// SendText sends a plain text message to the user identified by openID
func (m *Messenger) SendText(ctx context.Context, openID, text string) error {
	req, _, err := buildRequest(openID, text)
	if err != nil {
		return err
	}

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send Lark message", zap.String("open_id", openID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("Lark API returned failure",
			zap.String("open_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark api error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Debug("Lark message sent",
		zap.String("message_id", messageID),
		zap.String("open_id", openID))
	return nil
}

// buildRequest returns the create request together with its body, which the
// built request no longer exposes.
func buildRequest(openID, text string) (*larkim.CreateMessageReq, *larkim.CreateMessageReqBody, error) {
	if openID == "" {
		return nil, nil, errors.New("open_id cannot be empty")
	}
	if text == "" {
		return nil, nil, errors.New("message text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode message: %w", err)
	}

	body := larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(openID).
		MsgType(larkim.MsgTypeText).
		Content(string(content)).
		Build()
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeOpenID).
		Body(body).
		Build()
	return req, body, nil
}

var _ port.InstantMessenger = (*Messenger)(nil)
