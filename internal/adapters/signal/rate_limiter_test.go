package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewMessageRateLimiter(3, time.Minute)

	require.True(t, rl.Allow("s1"))
	require.True(t, rl.Allow("s1"))
	require.True(t, rl.Allow("s1"))
	require.False(t, rl.Allow("s1"))

	// other sessions keep their own window
	require.True(t, rl.Allow("s2"))
}

func TestMessageRateLimiter_WindowExpires(t *testing.T) {
	rl := NewMessageRateLimiter(1, 10*time.Millisecond)

	require.True(t, rl.Allow("s1"))
	require.False(t, rl.Allow("s1"))

	time.Sleep(20 * time.Millisecond)
	require.True(t, rl.Allow("s1"))
}

func TestMessageRateLimiter_Disabled(t *testing.T) {
	rl := NewMessageRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("s1"))
	}
}

func TestMessageRateLimiter_Forget(t *testing.T) {
	rl := NewMessageRateLimiter(1, time.Hour)

	require.True(t, rl.Allow("s1"))
	require.False(t, rl.Allow("s1"))

	rl.Forget("s1")
	require.True(t, rl.Allow("s1"))
}
