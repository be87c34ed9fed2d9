package history

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wallet-send/internal/event"
	"wallet-send/internal/model"
)

// Repository 交易历史存储
type Repository interface {
	// Create 写入历史并在同一事务里写 outbox；DedupeKey 已存在时 created=false
	Create(ctx context.Context, h *model.TxHistory) (created bool, err error)
	UpdateStatus(ctx context.Context, id uint64, status string, blockNumber uint64, confirmedAt time.Time) error
	Get(ctx context.Context, id uint64) (*model.TxHistory, error)
	ListByAccount(ctx context.Context, network, account string, limit int) ([]model.TxHistory, error)
}

// GormRepository Postgres 实现
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, h *model.TxHistory) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).Create(h)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		// 广播事件与历史记录同事务，由 relay 投递给确认 worker
		return model.CreateOutboxMessage(tx, event.TopicTxBroadcast, h.Account, event.TxBroadcastEvent{
			HistoryID: h.ID,
			Network:   h.Network,
			ChainID:   h.ChainID,
			Account:   h.Account,
			TxHash:    h.TxHash,
			Intent:    h.Intent,
			SentAt:    h.SentAt.Unix(),
		})
	})
	return created, err
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id uint64, status string, blockNumber uint64, confirmedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.TxHistory{}).
		Where("id = ? AND status = ?", id, model.TxStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"block_number": blockNumber,
			"confirmed_at": confirmedAt,
		}).Error
}

func (r *GormRepository) Get(ctx context.Context, id uint64) (*model.TxHistory, error) {
	var h model.TxHistory
	if err := r.db.WithContext(ctx).First(&h, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *GormRepository) ListByAccount(ctx context.Context, network, account string, limit int) ([]model.TxHistory, error) {
	var rows []model.TxHistory
	err := r.db.WithContext(ctx).
		Where("network = ? AND account = ?", network, account).
		Order("sent_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
