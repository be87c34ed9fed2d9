package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker(t *testing.T) {
	b := NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, b.Publish(ctx, "t", "k1", []byte("one")))
	require.NoError(t, b.Publish(ctx, "t", "k2", []byte("two")))

	got := make(chan *Message, 2)
	done := make(chan error, 1)
	go func() {
		done <- b.Subscribe(ctx, "t", func(msg *Message) error {
			got <- msg
			return errors.New("ignored")
		})
	}()

	first := <-got
	second := <-got
	assert.Equal(t, "one", string(first.Payload))
	assert.Equal(t, "k1", first.Key)
	assert.Equal(t, "two", string(second.Payload))
	assert.NotEqual(t, first.ID, second.ID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not stop")
	}
}
