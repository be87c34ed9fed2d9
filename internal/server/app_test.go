package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestAppRunStopsOnCancel(t *testing.T) {
	app := New(Config{}, nil)

	started := make(chan struct{})
	app.Go(RunFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}))

	var order []string
	app.OnClose(closerFunc(func() error { order = append(order, "first"); return nil }))
	app.OnClose(closerFunc(func() error { order = append(order, "second"); return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-started
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestAppRunCollectsErrors(t *testing.T) {
	app := New(Config{}, nil)

	runErr := errors.New("relay failed")
	closeErr := errors.New("close failed")
	app.Go(RunFunc(func(ctx context.Context) error { return runErr }))
	app.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))
	app.OnClose(closerFunc(func() error { return closeErr }))

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, runErr)
	assert.ErrorIs(t, err, closeErr)
}
