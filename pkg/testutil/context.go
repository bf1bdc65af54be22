package testutil

import (
	"context"
	"net/http"
	"time"

	"acadmin/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithPrincipal(req *http.Request, email string, roles ...string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.Principal{Email: email, Roles: roles})
	return req.WithContext(ctx)
}

// ActorContext returns a context carrying a principal, a fixed request time
// and a request id, the state every service call expects.
func ActorContext(email string, now time.Time, roles ...string) context.Context {
	ctx := requestcontext.WithActor(context.Background(), requestcontext.Principal{Email: email, Roles: roles})
	ctx = requestcontext.WithTime(ctx, now)
	return requestcontext.WithRequestID(ctx, "test-request")
}
