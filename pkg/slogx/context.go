package slogx

import (
	"context"
	"log/slog"
)

// scope is what one request carries through a context: the logger its
// handlers write to and the id that ties the server's access log to the
// client's outbound log.
type scope struct {
	logger *slog.Logger
	reqID  string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithContext installs logger for everything downstream of ctx. The server
// middleware calls it once per request; background jobs call it with the
// process logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	s := scopeOf(ctx)
	s.logger = logger
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext is how handlers and services log. It falls back to
// slog.Default outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	if l := scopeOf(ctx).logger; l != nil {
		return l
	}
	return slog.Default()
}

// WithRequestID records reqID on ctx and adds it as req_id to the contextual
// logger. On the server it holds the inbound X-Request-ID; on the client
// Transport forwards it instead of minting a new one.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	s := scopeOf(ctx)
	s.reqID = reqID
	s.logger = FromContext(ctx).With("req_id", reqID)
	return context.WithValue(ctx, scopeKey{}, s)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string { return scopeOf(ctx).reqID }
