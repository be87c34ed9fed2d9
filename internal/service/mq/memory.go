package mq

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"wallet-send/pkg/logger"
)

// MemoryBroker 进程内的 Producer/Consumer，用于单机模式与测试
type MemoryBroker struct {
	mu     sync.Mutex
	seq    int
	topics map[string]chan *Message
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]chan *Message)}
}

func (b *MemoryBroker) topic(name string) chan *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.topics[name]
	if !ok {
		ch = make(chan *Message, 1024)
		b.topics[name] = ch
	}
	return ch
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	b.mu.Lock()
	b.seq++
	id := strconv.Itoa(b.seq)
	b.mu.Unlock()

	msg := &Message{ID: id, Topic: topic, Key: key, Payload: append([]byte(nil), payload...)}
	select {
	case b.topic(topic) <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe 没有重投递，失败只记录日志
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	ch := b.topic(topic)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			if err := handler(msg); err != nil {
				logger.Error("memory broker handler failed", zap.String("id", msg.ID), zap.Error(err))
			}
		}
	}
}

func (b *MemoryBroker) Close() error { return nil }
