package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"wallet-send/pkg/logger"
	"wallet-send/pkg/utils/lock"
)

// Sessions 可回收的会话集合，workflow.Manager 满足
type Sessions interface {
	Sweep(idle time.Duration) int
}

// Service 定时回收长时间没有活动的发送会话
type Service struct {
	cron     *cron.Cron
	sessions Sessions
	idle     time.Duration
	locker   lock.DistributedLock // 可以为 nil
	lockKey  string
}

func NewService(sessions Sessions, idle time.Duration, locker lock.DistributedLock, instance string) *Service {
	return &Service{
		cron:     cron.New(),
		sessions: sessions,
		idle:     idle,
		locker:   locker,
		// 会话在实例内存里，锁只防止同一实例的任务重叠
		lockKey: "cron:lock:sweep_sessions:" + instance,
	}
}

func (s *Service) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.SweepIdle() }); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("session sweeper started", zap.String("spec", spec), zap.Duration("idle", s.idle))
	return nil
}

// Stop 等待正在执行的任务结束
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("session sweeper stopped")
}

// SweepIdle 回收一次，返回回收数量
func (s *Service) SweepIdle() int {
	if s.locker != nil {
		ctx := context.Background()
		locked, err := s.locker.Acquire(ctx, s.lockKey, time.Minute)
		if err != nil || !locked {
			logger.Debug("sweep skipped, lock held", zap.Error(err))
			return 0
		}
		defer s.locker.Release(ctx, s.lockKey)
	}

	n := s.sessions.Sweep(s.idle)
	if n > 0 {
		logger.Info("idle sessions evicted", zap.Int("count", n))
	}
	return n
}
