package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-send/internal/event"
	"wallet-send/internal/registry"
)

const txHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

type fakeReceipts struct {
	receipt *types.Receipt
	err     error
}

func (f fakeReceipts) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return f.receipt, f.err
}

type confirmed struct {
	id      uint64
	success bool
	block   uint64
}

type fakeConfirmer struct {
	got []confirmed
}

func (f *fakeConfirmer) Confirm(_ context.Context, id uint64, success bool, block uint64) error {
	f.got = append(f.got, confirmed{id, success, block})
	return nil
}

func newHandler(client fakeReceipts) (*ConfirmHandler, *fakeConfirmer) {
	snap := &registry.Snapshot{Networks: []registry.Network{{ID: "ethereum", ChainID: 1}}}
	history := &fakeConfirmer{}
	provider := func(context.Context, *registry.Network) (ReceiptClient, error) { return client, nil }
	return NewConfirmHandler(registry.Static(snap), provider, history), history
}

func confirmTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewTxConfirmTask(event.TxBroadcastEvent{HistoryID: 7, Network: "ethereum", TxHash: txHash})
	require.NoError(t, err)
	return task
}

func TestConfirmMined(t *testing.T) {
	h, history := newHandler(fakeReceipts{receipt: &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(1024),
	}})

	require.NoError(t, h.ProcessTask(context.Background(), confirmTask(t)))
	assert.Equal(t, []confirmed{{7, true, 1024}}, history.got)
}

func TestConfirmReverted(t *testing.T) {
	h, history := newHandler(fakeReceipts{receipt: &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		BlockNumber: big.NewInt(9),
	}})

	require.NoError(t, h.ProcessTask(context.Background(), confirmTask(t)))
	assert.Equal(t, []confirmed{{7, false, 9}}, history.got)
}

func TestConfirmPending(t *testing.T) {
	h, history := newHandler(fakeReceipts{err: ethereum.NotFound})

	err := h.ProcessTask(context.Background(), confirmTask(t))
	assert.ErrorIs(t, err, errPending)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, history.got)
	assert.Equal(t, 15*time.Second, RetryDelay(1, err, confirmTask(t)))
}

func TestConfirmBadPayload(t *testing.T) {
	h, _ := newHandler(fakeReceipts{})

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeTxConfirm, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ := json.Marshal(TxConfirmPayload{HistoryID: 1, Network: "ethereum", TxHash: "0x12"})
	err = h.ProcessTask(context.Background(), asynq.NewTask(TypeTxConfirm, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ = json.Marshal(TxConfirmPayload{HistoryID: 1, Network: "solana", TxHash: txHash})
	err = h.ProcessTask(context.Background(), asynq.NewTask(TypeTxConfirm, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestConfirmRPCError(t *testing.T) {
	h, _ := newHandler(fakeReceipts{err: errors.New("connection reset")})

	err := h.ProcessTask(context.Background(), confirmTask(t))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
