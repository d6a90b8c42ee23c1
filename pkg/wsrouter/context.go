package wsrouter

import "context"

type ctxKey int

const messageTypeCtxKey ctxKey = iota

func setMessageTypeToCtx(ctx context.Context, messageType string) context.Context {
	return context.WithValue(ctx, messageTypeCtxKey, messageType)
}

func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, ok := ctx.Value(messageTypeCtxKey).(string)
	if !ok {
		return ""
	}

	return messageType
}
