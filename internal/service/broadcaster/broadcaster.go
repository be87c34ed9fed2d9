package broadcaster

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"wallet-send/internal/registry"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/logger"
	"wallet-send/pkg/monitor"
	"wallet-send/pkg/utils/lock"
)

// Client 广播用到的链上接口，*ethclient.Client 满足
type Client interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	Close()
}

// DialFunc 按 RPC 地址建立连接
type DialFunc func(ctx context.Context, rpcURL string) (Client, error)

func dialEth(ctx context.Context, rpcURL string) (Client, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

// Dispatcher 把已签名交易提交到对应网络的节点。
// 同一个 hash 在锁的有效期内只会提交一次，提交失败不在这里重试。
type Dispatcher struct {
	dial    DialFunc
	locker  lock.DistributedLock
	lockTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]Client // network id -> client
}

type Option func(*Dispatcher)

// WithDial 替换连接方式 (测试)
func WithDial(dial DialFunc) Option {
	return func(d *Dispatcher) { d.dial = dial }
}

func WithLock(l lock.DistributedLock, ttl time.Duration) Option {
	return func(d *Dispatcher) {
		d.locker = l
		d.lockTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		dial:    dialEth,
		locker:  lock.NewLocalLock(),
		lockTTL: 5 * time.Minute,
		now:     time.Now,
		clients: make(map[string]Client),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send 实现 workflow.BroadcastDispatcher
func (d *Dispatcher) Send(ctx context.Context, network *registry.Network, artifact workflow.SignedArtifact) (workflow.TxReceipt, error) {
	if network == nil {
		return workflow.TxReceipt{}, errno.ErrBroadcast.WithMessage("network is required")
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(artifact.Raw); err != nil {
		return workflow.TxReceipt{}, errno.ErrBroadcast.Wrap(err)
	}
	hash := tx.Hash()
	if artifact.Hash != (common.Hash{}) && artifact.Hash != hash {
		return workflow.TxReceipt{}, errno.ErrBroadcast.WithMessage("artifact hash does not match raw transaction")
	}

	key := "broadcast:" + hash.Hex()
	ok, err := d.locker.Acquire(ctx, key, d.lockTTL)
	if err != nil {
		return workflow.TxReceipt{}, errno.ErrBroadcast.Wrap(err)
	}
	if !ok {
		return workflow.TxReceipt{}, errno.ErrBroadcast.WithMessage("transaction " + hash.Hex() + " is already being broadcast")
	}

	start := d.now()
	err = d.submit(ctx, network, tx)
	monitor.Workflow.Broadcast(network.ID, start, err)
	if err != nil {
		// 失败后释放，允许用同一份签名重试
		if rerr := d.locker.Release(ctx, key); rerr != nil {
			logger.Warn("release broadcast lock failed", zap.String("hash", hash.Hex()), zap.Error(rerr))
		}
		logger.Warn("broadcast failed",
			zap.String("network", network.ID),
			zap.String("hash", hash.Hex()),
			zap.Error(err))
		return workflow.TxReceipt{}, errno.ErrBroadcast.Wrap(err)
	}

	logger.Info("transaction broadcast",
		zap.String("network", network.ID),
		zap.String("hash", hash.Hex()),
		zap.Uint64("nonce", tx.Nonce()))
	return workflow.TxReceipt{
		Hash:      hash,
		Timestamp: d.now(),
		Status:    workflow.TxStatusPending,
	}, nil
}

func (d *Dispatcher) submit(ctx context.Context, network *registry.Network, tx *types.Transaction) error {
	client, err := d.client(ctx, network)
	if err != nil {
		return err
	}
	err = client.SendTransaction(ctx, tx)
	if err != nil && isKnown(err) {
		// 节点已经有这笔交易，视为提交成功
		return nil
	}
	return err
}

func isKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

// client 每个网络复用一个连接，拨号失败做有限次退避重试。
// 拨号不持有锁，慢节点不会阻塞其他网络；并发拨号时保留先写入的连接。
func (d *Dispatcher) client(ctx context.Context, network *registry.Network) (Client, error) {
	d.mu.Lock()
	c, ok := d.clients[network.ID]
	d.mu.Unlock()
	if ok {
		return c, nil
	}
	if network.RpcURL == "" {
		return nil, errors.New("network " + network.ID + " has no rpc url")
	}

	c, err := retry.DoWithData(
		func() (Client, error) {
			return d.dial(ctx, network.RpcURL)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.clients[network.ID]; ok {
		c.Close()
		return existing, nil
	}
	d.clients[network.ID] = c
	return c, nil
}

// Client 返回网络对应的连接 (确认任务复用)
func (d *Dispatcher) Client(ctx context.Context, network *registry.Network) (Client, error) {
	return d.client(ctx, network)
}

func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, c := range d.clients {
		c.Close()
		delete(d.clients, id)
	}
}
