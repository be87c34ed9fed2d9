package mq

import "context"

// Message 一条业务消息
type Message struct {
	ID       string // Redis Stream ID 或 Kafka partition/offset
	Topic    string // 例如 wallet_events_tx_broadcast
	Key      string // 分区键 (发送账户地址)，同一账户的消息有序
	Payload  []byte // JSON
	Metadata map[string]string
}

// Producer 生产者
type Producer interface {
	// Publish key 为空时随机分区
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Consumer 消费者
type Consumer interface {
	// Subscribe 阻塞直到 ctx 取消；handler 返回 error 时消息不确认
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error
	Close() error
}
