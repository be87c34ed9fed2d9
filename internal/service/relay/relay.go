package relay

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wallet-send/internal/model"
	"wallet-send/internal/service/mq"
	"wallet-send/pkg/logger"
)

// Outbox 本地消息表
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64) error
}

// GormOutbox Postgres 实现
type GormOutbox struct {
	db *gorm.DB
}

func NewGormOutbox(db *gorm.DB) *GormOutbox {
	return &GormOutbox{db: db}
}

func (o *GormOutbox) Pending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var messages []model.OutboxMessage
	err := o.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (o *GormOutbox) MarkSent(ctx context.Context, id uint64) error {
	return o.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

func (o *GormOutbox) MarkFailed(ctx context.Context, id uint64) error {
	return o.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

// Service 把 outbox 里的消息搬运到 MQ。先发送后标记，至少投递一次，消费端需要幂等。
type Service struct {
	outbox   Outbox
	producer mq.Producer
	interval time.Duration
	batch    int
}

func NewService(outbox Outbox, producer mq.Producer) *Service {
	return &Service{
		outbox:   outbox,
		producer: producer,
		interval: 500 * time.Millisecond,
		batch:    50,
	}
}

// Start 阻塞直到 ctx 取消
func (s *Service) Start(ctx context.Context) error {
	logger.Info("outbox relay started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// Flush 投递一批待发送消息，返回成功条数
func (s *Service) Flush(ctx context.Context) int {
	messages, err := s.outbox.Pending(ctx, s.batch)
	if err != nil {
		logger.Error("query outbox failed", zap.Error(err))
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			logger.Warn("publish outbox message failed", zap.Uint64("id", msg.ID), zap.Error(err))
			if err := s.outbox.MarkFailed(ctx, msg.ID); err != nil {
				logger.Error("mark outbox message failed", zap.Uint64("id", msg.ID), zap.Error(err))
			}
			continue
		}
		if err := s.outbox.MarkSent(ctx, msg.ID); err != nil {
			// 下一轮会重发
			logger.Error("mark outbox message sent failed", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		logger.Debug("outbox messages relayed", zap.Int("count", sent))
	}
	return sent
}
