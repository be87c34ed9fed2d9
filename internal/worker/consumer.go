package worker

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"wallet-send/internal/event"
	"wallet-send/internal/service/mq"
	"wallet-send/internal/worker/tasks"
	"wallet-send/pkg/logger"
)

// BroadcastConsumer 消费交易广播事件，为每笔交易投递一个确认任务
type BroadcastConsumer struct {
	enqueuer Enqueuer
}

func NewBroadcastConsumer(enqueuer Enqueuer) *BroadcastConsumer {
	return &BroadcastConsumer{enqueuer: enqueuer}
}

// HandleMessage 作为 mq.Consumer.Subscribe 的 handler
func (c *BroadcastConsumer) HandleMessage(msg *mq.Message) error {
	var ev event.TxBroadcastEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		logger.Error("解析广播事件失败", zap.String("id", msg.ID), zap.Error(err))
		return nil // 格式错误，不再重试
	}

	task, err := tasks.NewTxConfirmTask(ev)
	if err != nil {
		return err
	}
	info, err := c.enqueuer.Enqueue(task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// 消息重复投递
		logger.Debug("confirm task already enqueued", zap.String("hash", ev.TxHash))
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("confirm task enqueued",
		zap.String("task_id", info.ID),
		zap.String("hash", ev.TxHash),
		zap.String("account", ev.Account))
	return nil
}
