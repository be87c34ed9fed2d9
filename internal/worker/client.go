package worker

import (
	"github.com/hibiken/asynq"
)

// Enqueuer 投递任务，*Client 满足
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client 封装 Asynq Client
type Client struct {
	client *asynq.Client
}

func NewClient(addr string, password string, db int) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: c}
}

func (c *Client) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.Enqueue(task, opts...)
}

func (c *Client) Close() error {
	return c.client.Close()
}
