package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiter_AllowsUpToLimitThenBlocks(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow("1.2.3.4"), "6th request should be rate limited")
}

func TestMemoryLimiter_WindowExpiryAllowsAgain(t *testing.T) {
	fakeNow := time.Now()
	l := NewMemoryLimiter(1, time.Minute)
	l.now = func() time.Time { return fakeNow }

	assert.True(t, l.Allow("5.6.7.8"))
	assert.False(t, l.Allow("5.6.7.8"))

	fakeNow = fakeNow.Add(61 * time.Second)
	assert.True(t, l.Allow("5.6.7.8"), "request after window should succeed")
}

func TestMemoryLimiter_TracksPerIPIndependently(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))
	assert.False(t, l.Allow("1.1.1.1"))
}

func TestMemoryLimiter_Reset(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	l.Reset()
	assert.True(t, l.Allow("1.1.1.1"))
}
