package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	l := NewLocalLock()
	l.now = func() time.Time { return now }

	ok, err := l.Acquire(ctx, "broadcast:0x01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(ctx, "broadcast:0x01", time.Minute)
	assert.False(t, ok, "second acquire must fail while held")

	// 过期之后可以重新获取
	now = now.Add(2 * time.Minute)
	ok, _ = l.Acquire(ctx, "broadcast:0x01", time.Minute)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "broadcast:0x01"))
	ok, _ = l.Acquire(ctx, "broadcast:0x01", time.Minute)
	assert.True(t, ok)
}
