package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-send/internal/registry"
	"wallet-send/pkg/errno"
)

func TestManager_CreateGet(t *testing.T) {
	f := newFixture(t)
	m := NewManager(Options{Registry: registry.Static(f.snap)}, nil)

	s, err := m.Create(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, errno.ErrSessionNotFound)
	assert.Equal(t, 1, m.Len())
}

func TestManager_GatePerSession(t *testing.T) {
	f := newFixture(t)
	var gates []*ManualGate
	m := NewManager(Options{Registry: registry.Static(f.snap)}, func() SendGate {
		g := &ManualGate{}
		gates = append(gates, g)
		return g
	})

	_, err := m.Create(context.Background(), nil)
	require.NoError(t, err)
	_, err = m.Create(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, gates, 2)
	assert.NotSame(t, gates[0], gates[1])
}

func TestManager_Sweep(t *testing.T) {
	f := newFixture(t)
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	gate := &ManualGate{}
	m := NewManager(Options{
		Registry:   registry.Static(f.snap),
		Dispatcher: &fakeDispatcher{},
		Now:        clock,
	}, func() SendGate { return gate })

	idle, err := m.Create(context.Background(), nil)
	require.NoError(t, err)
	waiting, err := m.Create(context.Background(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, waiting.Act(ctx, StepForm, f.form(f.sender)))
	require.NoError(t, waiting.Act(ctx, StepSign, f.sign(t, waiting.State().Draft)))
	require.NoError(t, waiting.Act(ctx, StepConfirmAfterSign, nil))
	require.True(t, waiting.GatePending())

	now = now.Add(10 * time.Minute)
	assert.Zero(t, m.Sweep(30*time.Minute))

	now = now.Add(time.Hour)
	assert.Equal(t, 1, m.Sweep(30*time.Minute))

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, errno.ErrSessionNotFound)
	_, err = m.Get(waiting.ID)
	assert.NoError(t, err, "sessions waiting at the gate are kept")
}
