package authctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Caller identifies the authenticated user for the current request.
type Caller struct {
	UserID snowflake.ID
	Email  string
	Role   string
}

// HasRole reports whether the caller holds the named role,
// compared case-insensitively.
func (c Caller) HasRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Role), strings.TrimSpace(role))
}

// CallerContextKey is the request context key for the authenticated caller.
type CallerContextKey struct{}

// WithCaller stores the caller in the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, CallerContextKey{}, caller)
}

// CallerFromContext returns the caller from context, if set.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}

	caller, ok := ctx.Value(CallerContextKey{}).(Caller)
	if !ok || caller.UserID == 0 {
		return Caller{}, false
	}
	return caller, true
}
