package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"acadmin/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

type stubRevocation struct{ revoked bool }

func (s stubRevocation) IsTokenRevoked(context.Context, string) (bool, error) {
	return s.revoked, nil
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid := stubValidator{claims: &JWTClaims{Email: " Dean@X.edu ", Roles: []string{" Principal", "principal", ""}, JTI: "j1"}}

	serve := func(v JWTValidator, rc TokenRevocationChecker, header string) (*httptest.ResponseRecorder, requestcontext.Principal) {
		var actor requestcontext.Principal
		h := RequireAuth(v, rc, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = requestcontext.Actor(r.Context())
		}))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w, actor
	}

	t.Run("valid token sets the principal", func(t *testing.T) {
		w, actor := serve(valid, nil, "Bearer tok")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dean@x.edu", actor.Email)
		assert.True(t, actor.HasRole("PRINCIPAL"))
		assert.Equal(t, []string{"principal"}, actor.Roles)
	})

	t.Run("missing header", func(t *testing.T) {
		w, actor := serve(valid, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, actor.IsZero())
	})

	t.Run("invalid token", func(t *testing.T) {
		w, _ := serve(stubValidator{err: errors.New("bad signature")}, nil, "Bearer tok")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		w, _ := serve(valid, stubRevocation{revoked: true}, "Bearer tok")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "revoked")
	})
}
