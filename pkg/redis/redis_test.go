package redis

import (
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitResult_UnderLimit(t *testing.T) {
	now := time.Now()

	res := rateLimitResult(7, nil, 10, time.Minute, now)

	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Zero(t, res.RetryAfter)
}

func TestRateLimitResult_LastSlot(t *testing.T) {
	res := rateLimitResult(9, nil, 10, time.Minute, time.Now())

	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestRateLimitResult_RetryAfterFromOldest(t *testing.T) {
	now := time.Now()
	oldest := []goredis.Z{{Score: float64(now.Add(-40 * time.Second).UnixNano()), Member: "a"}}

	res := rateLimitResult(10, oldest, 10, time.Minute, now)

	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.InDelta(t, float64(20*time.Second), float64(res.RetryAfter), float64(time.Millisecond))
}

func TestRateLimitResult_RetryAfterFallsBackToWindow(t *testing.T) {
	res := rateLimitResult(12, nil, 10, time.Minute, time.Now())

	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.RetryAfter)
}
