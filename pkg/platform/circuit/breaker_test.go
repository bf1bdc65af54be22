package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(opts ...Option) (*Breaker, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", opts...)
	b.now = c.now
	return b, c
}

func TestBreaker_InitialState(t *testing.T) {
	b := New("rule-cache")
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	assert.Equal(t, "rule-cache", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(WithThreshold(3))

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure())
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())

	// already open
	assert.False(t, b.RecordFailure())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(WithThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b, c := newTestBreaker(WithThreshold(2), WithCooldown(time.Minute))
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.Allow())

	c.t = c.t.Add(time.Minute)
	assert.True(t, b.Allow())
	assert.False(t, b.IsOpen())

	t.Run("one failure reopens", func(t *testing.T) {
		assert.True(t, b.RecordFailure())
		assert.False(t, b.Allow())
	})

	t.Run("success closes", func(t *testing.T) {
		c.t = c.t.Add(time.Minute)
		assert.True(t, b.Allow())
		b.RecordSuccess()
		assert.False(t, b.RecordFailure())
		assert.True(t, b.Allow())
	})
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(WithThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
