package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"wallet-send/internal/event"
	"wallet-send/internal/registry"
	"wallet-send/pkg/logger"
)

const (
	TypeTxConfirm = "tx:confirm"
)

// TxConfirmPayload 确认任务参数
type TxConfirmPayload struct {
	HistoryID uint64 `json:"history_id"`
	Network   string `json:"network"`
	TxHash    string `json:"tx_hash"`
}

// NewTxConfirmTask 交易广播后轮询链上回执。
// 出块前的查询返回错误，交给 asynq 退避重试。
func NewTxConfirmTask(ev event.TxBroadcastEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(TxConfirmPayload{
		HistoryID: ev.HistoryID,
		Network:   ev.Network,
		TxHash:    ev.TxHash,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTxConfirm, payload,
		asynq.MaxRetry(30),
		asynq.Timeout(30*time.Second),
		asynq.TaskID("confirm:"+ev.TxHash),
	), nil
}

// ReceiptClient 查询链上回执
type ReceiptClient interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Confirmer history.Service 满足
type Confirmer interface {
	Confirm(ctx context.Context, id uint64, success bool, blockNumber uint64) error
}

type ClientProvider func(ctx context.Context, network *registry.Network) (ReceiptClient, error)

// ConfirmHandler 处理 TypeTxConfirm
type ConfirmHandler struct {
	registry registry.Source
	clients  ClientProvider
	history  Confirmer
}

func NewConfirmHandler(source registry.Source, clients ClientProvider, history Confirmer) *ConfirmHandler {
	return &ConfirmHandler{registry: source, clients: clients, history: history}
}

var errPending = errors.New("transaction not mined yet")

func (h *ConfirmHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p TxConfirmPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.HistoryID == 0 || len(common.FromHex(p.TxHash)) != common.HashLength {
		return fmt.Errorf("invalid confirm payload %+v: %w", p, asynq.SkipRetry)
	}

	snap, err := h.registry.Snapshot(ctx)
	if err != nil {
		return err
	}
	network, err := snap.Network(p.Network)
	if err != nil {
		return fmt.Errorf("network %s: %v: %w", p.Network, err, asynq.SkipRetry)
	}
	client, err := h.clients(ctx, network)
	if err != nil {
		return err
	}

	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(p.TxHash))
	if errors.Is(err, ethereum.NotFound) {
		logger.Debug("receipt not found, retry later", zap.String("hash", p.TxHash))
		return errPending
	}
	if err != nil {
		return err
	}

	success := receipt.Status == types.ReceiptStatusSuccessful
	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	if err := h.history.Confirm(ctx, p.HistoryID, success, block); err != nil {
		return err
	}

	logger.Info("transaction confirmed",
		zap.Uint64("history_id", p.HistoryID),
		zap.String("hash", p.TxHash),
		zap.Bool("success", success),
		zap.Uint64("block", block))
	return nil
}

// RetryDelay 未出块时按固定间隔轮询，其它错误指数退避
func RetryDelay(n int, err error, t *asynq.Task) time.Duration {
	if errors.Is(err, errPending) {
		return 15 * time.Second
	}
	return asynq.DefaultRetryDelayFunc(n, err, t)
}
