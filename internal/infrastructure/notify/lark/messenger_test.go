package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessages struct {
	requests []*larkim.CreateMessageReq
	resp     *larkim.CreateMessageResp
	err      error
}

func (f *fakeMessages) Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func newTestMessenger(f *fakeMessages) *Messenger {
	return &Messenger{messages: f, logger: zap.NewNop()}
}

func TestMessenger_SendText(t *testing.T) {
	f := &fakeMessages{resp: &larkim.CreateMessageResp{}}
	m := newTestMessenger(f)

	require.NoError(t, m.SendText(context.Background(), "ou_sam", "Final Score: 95.0%"))
	require.Len(t, f.requests, 1)
	assert.NotNil(t, f.requests[0])
}

func TestBuildRequest(t *testing.T) {
	text := "Your task 'Ship \"v2\"' has been evaluated.\nFinal Score: 95.0%"
	req, body, err := buildRequest("ou_sam", text)
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, "ou_sam", *body.ReceiveId)
	assert.Equal(t, larkim.MsgTypeText, *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, text, content["text"])
}

func TestMessenger_SendTextErrors(t *testing.T) {
	tests := []struct {
		name   string
		openID string
		text   string
		fake   *fakeMessages
	}{
		{"empty open id", "", "hello", &fakeMessages{}},
		{"empty text", "ou_sam", "", &fakeMessages{}},
		{"transport error", "ou_sam", "hello", &fakeMessages{err: errors.New("dial tcp: timeout")}},
		{"api failure", "ou_sam", "hello", &fakeMessages{resp: &larkim.CreateMessageResp{
			CodeError: larkcore.CodeError{Code: 230002, Msg: "bot is not in the chat"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestMessenger(tt.fake).SendText(context.Background(), tt.openID, tt.text)
			assert.Error(t, err)
		})
	}
}
