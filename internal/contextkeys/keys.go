package contextkeys

import (
	"context"

	"github.com/pertamax98/bot-vpn/types"
)

type messageTypeKey struct{}
type callbackDataKey struct{}
type sessionKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeCommand     MessageType = "command"
	MessageTypeClickButton MessageType = "clickButton"
	MessageTypeUnknown     MessageType = "unknown"
)

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v := ctx.Value(messageTypeKey{})
	if v == nil {
		return MessageTypeUnknown, false
	}
	return v.(MessageType), true
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey{}, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	v := ctx.Value(callbackDataKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}

func WithSession(ctx context.Context, s *types.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func GetSession(ctx context.Context) (*types.Session, bool) {
	v := ctx.Value(sessionKey{})
	if v == nil {
		return nil, false
	}
	return v.(*types.Session), true
}
