package common

import (
	"context"
	"strings"
)

type callerKey struct{}

// Caller is the verified principal behind a request.
type Caller struct {
	UserID string
}

// WithCaller attaches c to ctx. A caller without a user id is not stored.
func WithCaller(ctx context.Context, c Caller) context.Context {
	c.UserID = strings.TrimSpace(c.UserID)
	if c.UserID == "" {
		return ctx
	}
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller set by the auth middleware.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// UserID is shorthand for the caller's user id.
func UserID(ctx context.Context) (string, bool) {
	c, ok := CallerFrom(ctx)
	return c.UserID, ok
}
