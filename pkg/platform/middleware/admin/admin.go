package admin

import (
	"log/slog"
	"net/http"

	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/platform/httputil"
	request "acadmin/pkg/platform/middleware/request"
	"acadmin/pkg/requestcontext"
)

// RequireRole admits principals holding any of roles. It must run after
// auth.RequireAuth.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if actor.IsZero() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			for _, role := range roles {
				if actor.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.WarnContext(ctx, "forbidden - missing role",
				"request_id", request.GetRequestID(ctx),
				"email", actor.Email,
				"required", roles,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator role required"))
		})
	}
}
