package history

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"wallet-send/internal/model"
	"wallet-send/internal/registry"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/logger"
)

var ErrNotFound = errors.New("history record not found")

// Service 账户历史，实现 workflow.HistoryRecorder
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// DedupeKey blake3(network|account|hash)
func DedupeKey(network, account, hash string) string {
	sum := blake3.Sum256([]byte(strings.ToLower(network + "|" + account + "|" + hash)))
	return hex.EncodeToString(sum[:])
}

// AddTransaction 同一笔交易重复写入时静默成功
func (s *Service) AddTransaction(ctx context.Context, account *registry.Account, receipt workflow.TxReceipt) error {
	if account == nil {
		return errno.ErrAccountNotFound
	}
	sentAt := receipt.Timestamp
	if sentAt.IsZero() {
		sentAt = s.now()
	}
	status := string(receipt.Status)
	if status == "" {
		status = model.TxStatusPending
	}
	intent := string(receipt.TxType)
	if intent == "" {
		intent = string(workflow.IntentNormal)
	}
	addr := account.Address.Hex()
	hash := receipt.Hash.Hex()

	h := &model.TxHistory{
		DedupeKey:   DedupeKey(account.NetworkID, addr, hash),
		Account:     addr,
		Network:     account.NetworkID,
		ChainID:     receipt.ChainID,
		TxHash:      hash,
		FromAddress: receipt.From.Hex(),
		ToAddress:   receipt.Recipient.Hex(),
		Asset:       receipt.AssetID,
		Amount:      receipt.Amount,
		Nonce:       receipt.Nonce,
		Intent:      intent,
		Status:      status,
		BlockNumber: receipt.BlockNumber,
		SentAt:      sentAt,
	}
	created, err := s.repo.Create(ctx, h)
	if err != nil {
		return errno.ErrDatabase.Wrap(err)
	}
	if !created {
		logger.Info("transaction already in history", zap.String("hash", hash))
		return nil
	}
	logger.Info("history recorded", zap.Uint64("id", h.ID), zap.String("account", addr), zap.String("hash", hash))
	return nil
}

// Confirm 确认 worker 回写链上结果
func (s *Service) Confirm(ctx context.Context, id uint64, success bool, blockNumber uint64) error {
	status := model.TxStatusSuccess
	if !success {
		status = model.TxStatusFailed
	}
	if err := s.repo.UpdateStatus(ctx, id, status, blockNumber, s.now()); err != nil {
		return errno.ErrDatabase.Wrap(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uint64) (*model.TxHistory, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, network, account string, limit int) ([]model.TxHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByAccount(ctx, network, account, limit)
}
