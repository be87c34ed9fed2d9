package cmd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-send/internal/registry"
	"wallet-send/internal/signer"
	"wallet-send/internal/workflow"
)

type blockingDispatcher struct {
	mu      sync.Mutex
	calls   int
	err     error
	entered chan struct{}
	release chan struct{}
}

func newBlockingDispatcher() *blockingDispatcher {
	return &blockingDispatcher{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (d *blockingDispatcher) Send(_ context.Context, _ *registry.Network, a workflow.SignedArtifact) (workflow.TxReceipt, error) {
	d.mu.Lock()
	d.calls++
	err := d.err
	d.mu.Unlock()

	d.entered <- struct{}{}
	<-d.release
	if err != nil {
		return workflow.TxReceipt{}, err
	}
	return workflow.TxReceipt{Hash: a.Hash, Status: workflow.TxStatusPending}, nil
}

func (d *blockingDispatcher) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type sendResult struct {
	receipt *workflow.TxReceipt
	err     error
}

// newDraftedSession 表单已提交、停在 SIGN 的本地签名会话
func newDraftedSession(t *testing.T, d workflow.BroadcastDispatcher, gate workflow.SendGate) (*workflow.Session, workflow.Signer) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	snap := &registry.Snapshot{
		Networks: []registry.Network{{ID: "sepolia", Name: "Sepolia", ChainID: 11155111, BaseAssetID: "sepolia-eth"}},
		Assets:   []registry.Asset{{ID: "sepolia-eth", Symbol: "ETH", NetworkID: "sepolia", Decimals: 18}},
		Accounts: []registry.Account{{Address: from, NetworkID: "sepolia", WalletType: registry.WalletLocal}},
	}
	ctx := context.Background()
	s, err := workflow.NewSession(ctx, "cli-test", nil, workflow.Options{
		Registry:   registry.Static(snap),
		Dispatcher: d,
		Gate:       gate,
	})
	require.NoError(t, err)
	require.NoError(t, s.Act(ctx, workflow.StepForm, workflow.FormValues{
		From:     from.Hex(),
		Network:  "sepolia",
		To:       common.HexToAddress("0x00000000000000000000000000000000000000bb").Hex(),
		Value:    "0.1",
		GasPrice: "10",
		GasLimit: "21000",
		Nonce:    "5",
	}))
	require.Equal(t, workflow.StepSign, s.ActiveStep())
	return s, signer.NewKeySigner(key)
}

func startSend(ctx context.Context, s *workflow.Session, sgn workflow.Signer) <-chan sendResult {
	done := make(chan sendResult, 1)
	go func() {
		receipt, err := runSend(ctx, s, sgn, func() bool { return true }, 5*time.Millisecond)
		done <- sendResult{receipt: receipt, err: err}
	}()
	return done
}

func TestRunSendWaitsForGatedBroadcast(t *testing.T) {
	d := newBlockingDispatcher()
	s, sgn := newDraftedSession(t, d, workflow.NewProtectGate(10*time.Millisecond))
	done := startSend(context.Background(), s, sgn)

	select {
	case <-d.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never started")
	}

	// 关卡已放行、广播未返回: 不能再次确认，也不能提前退出
	select {
	case res := <-done:
		t.Fatalf("returned while broadcast in flight: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
	assert.True(t, s.Busy())
	assert.False(t, s.GatePending())

	close(d.release)
	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.NotNil(t, res.receipt)
		assert.Equal(t, s.State().Signed.Hash, res.receipt.Hash)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not finish")
	}
	assert.Equal(t, 1, d.Calls())
	assert.Equal(t, workflow.PhaseComplete, s.State().Phase)
}

func TestRunSendReportsGatedBroadcastFailure(t *testing.T) {
	d := newBlockingDispatcher()
	d.err = errors.New("connection refused")
	close(d.release)
	s, sgn := newDraftedSession(t, d, workflow.NewProtectGate(10*time.Millisecond))

	select {
	case res := <-startSend(context.Background(), s, sgn):
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "connection refused")
	case <-time.After(2 * time.Second):
		t.Fatal("send did not finish")
	}
	assert.Equal(t, 1, d.Calls())
	st := s.State()
	assert.Equal(t, workflow.PhaseSigned, st.Phase)
	assert.NotNil(t, st.Signed)
}

func TestRunSendCancelWhileGated(t *testing.T) {
	d := newBlockingDispatcher()
	s, sgn := newDraftedSession(t, d, workflow.NewProtectGate(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	done := startSend(ctx, s, sgn)

	require.Eventually(t, s.GatePending, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.ErrorIs(t, res.err, errCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not stop")
	}
	assert.Equal(t, 0, d.Calls())
	assert.Equal(t, workflow.PhaseSigned, s.State().Phase)
	assert.Nil(t, s.State().Receipt)
}
