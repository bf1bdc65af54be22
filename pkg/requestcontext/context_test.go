package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActor(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Actor(ctx).IsZero())

	p := Principal{Email: "dean@x.edu", Roles: []string{"Principal"}}
	got := Actor(WithActor(ctx, p))
	assert.Equal(t, "dean@x.edu", got.Email)
	assert.True(t, got.HasRole("principal"))
	assert.False(t, got.HasRole("superadmin"))
}

func TestNowFallsBackToWallClock(t *testing.T) {
	fixed := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))

	before := time.Now()
	assert.False(t, Now(context.Background()).Before(before))
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "req-1", RequestID(WithRequestID(context.Background(), "req-1")))
}
