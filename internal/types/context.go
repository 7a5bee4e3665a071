package types

import "context"

// ContextKey is the type for values the broker stashes in a context.Context.
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxChatID    ContextKey = "ctx_chat_id"
	CtxIsAdmin   ContextKey = "ctx_is_admin"
)

// RequestContext is the explicit replacement for the source's kwargs bags
// that flowed through aiogram middleware and handler signatures. Middleware
// enriches it; handlers and services read it. It is carried inside a
// context.Context rather than passed as an extra parameter so that service
// methods keep a conventional (ctx, args...) signature.
type RequestContext struct {
	RequestID string
	ChatID    int64
	IsAdmin   bool
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the RequestContext stored in ctx, or the zero value.
func FromContext(ctx context.Context) RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(RequestContext)
	return rc
}

func GetRequestID(ctx context.Context) string {
	return FromContext(ctx).RequestID
}

func GetChatID(ctx context.Context) int64 {
	return FromContext(ctx).ChatID
}
