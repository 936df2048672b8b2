package staticpress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewLoginLimiter(2, 200*time.Millisecond)
	t.Cleanup(limiter.Stop)
	ip := "203.0.113.10"

	assert.True(t, limiter.Allow(ip), "first attempt")
	assert.True(t, limiter.Allow(ip), "second attempt")
	assert.False(t, limiter.Allow(ip), "third attempt should be blocked")
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewLoginLimiter(1, 150*time.Millisecond)
	t.Cleanup(limiter.Stop)
	ip := "203.0.113.20"

	assert.True(t, limiter.Allow(ip))
	assert.False(t, limiter.Allow(ip))

	time.Sleep(200 * time.Millisecond)
	assert.True(t, limiter.Allow(ip), "attempt after window should be allowed")
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter := NewLoginLimiter(1, 200*time.Millisecond)
	t.Cleanup(limiter.Stop)

	assert.True(t, limiter.Allow("203.0.113.30"))
	assert.True(t, limiter.Allow("203.0.113.31"), "second ip is independent")
	assert.False(t, limiter.Allow("203.0.113.30"))
}

func TestLoginLimiterCheckDoesNotRecord(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Minute)
	t.Cleanup(limiter.Stop)
	ip := "203.0.113.40"

	assert.True(t, limiter.Check(ip))
	assert.True(t, limiter.Check(ip))
	limiter.Record(ip)
	assert.False(t, limiter.Check(ip))
}
