// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, requestcontext.Principal{Email: "dean@x.edu"})
package requestcontext

import (
	"context"
	"slices"
	"strings"
	"time"
)

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Principal is the authenticated staff member acting on a request.
type Principal struct {
	Email string
	Roles []string
}

// HasRole reports whether the principal carries role (case-insensitive).
func (p Principal) HasRole(role string) bool {
	return slices.ContainsFunc(p.Roles, func(r string) bool {
		return strings.EqualFold(r, role)
	})
}

// IsZero reports whether no principal was set.
func (p Principal) IsZero() bool {
	return p.Email == "" && len(p.Roles) == 0
}

// -----------------------------------------------------------------------------
// Actor
// -----------------------------------------------------------------------------

// Actor retrieves the authenticated principal. Returns the zero value if not set.
func Actor(ctx context.Context) Principal {
	if p, ok := ctx.Value(ContextKeyActor).(Principal); ok {
		return p
	}
	return Principal{}
}

// WithActor injects the authenticated principal into the context.
func WithActor(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ContextKeyActor, p)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, relays, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
