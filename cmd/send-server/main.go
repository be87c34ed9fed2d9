package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wallet-send/internal/handler"
	"wallet-send/internal/model"
	"wallet-send/internal/registry"
	"wallet-send/internal/server"
	"wallet-send/internal/service/broadcaster"
	"wallet-send/internal/service/history"
	"wallet-send/internal/service/mq"
	"wallet-send/internal/service/relay"
	"wallet-send/internal/service/sweeper"
	"wallet-send/internal/signer"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/cache"
	"wallet-send/pkg/config"
	"wallet-send/pkg/database"
	"wallet-send/pkg/logger"
	"wallet-send/pkg/utils/lock"
	"wallet-send/pkg/validator"

	_ "wallet-send/docs/swagger"
)

// @title Wallet Send API
// @version 1.0
// @description Transaction send workflow service

// @host localhost:8080
// @BasePath /api/v1
func main() {
	config.Init()
	validator.Init()
	logger.Init(config.Global.App.Env)

	err := run()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run 出错时返回，由 main 在 defer 清理完成后退出
func run() error {
	cfg := config.Global
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DB.DSN(), cfg.App.Env)
	if err != nil {
		logger.Error("数据库连接失败", zap.Error(err))
		return err
	}
	rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Redis 连接失败", zap.Error(err))
		return err
	}

	if cfg.App.Env == "development" {
		logger.Info("开发环境: 尝试自动迁移 Schema (GORM AutoMigrate)...")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Error("数据库自动迁移失败", zap.Error(err))
			return err
		}
	} else {
		logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
	}

	// 注册表: 配置 + 数据库，L1 内存 / L2 Redis
	networks, assets, accounts, err := registry.FromConfig(cfg)
	if err != nil {
		logger.Error("网络 / 资产配置错误", zap.Error(err))
		return err
	}
	registryCache := cache.NewMultiLevelCache(
		cache.NewMemoryCache(30*time.Second, time.Minute),
		cache.NewRedisCache(rdb, "wallet-send:"),
	)
	store := registry.NewStore(db, registryCache, networks, assets, accounts)

	dispatcher := broadcaster.NewDispatcher(broadcaster.WithLock(lock.NewRedisLock(rdb), 10*time.Minute))
	defer dispatcher.Close()
	historySvc := history.NewService(history.NewGormRepository(db))

	var newGate func() workflow.SendGate
	if cfg.Protect.Enabled {
		logger.Info("发送保护已启用", zap.Duration("delay", cfg.Protect.Delay))
		newGate = func() workflow.SendGate { return workflow.NewProtectGate(cfg.Protect.Delay) }
	}
	manager := workflow.NewManager(workflow.Options{
		Registry:   store,
		Dispatcher: dispatcher,
		History:    historySvc,
		Flags: workflow.Flags{
			ProtectActive: cfg.Protect.Enabled,
			ProtectExempt: cfg.Protect.Exempt,
		},
		Stepper: workflow.StepperConfig{
			DefaultBackPath: cfg.Stepper.DefaultBackPath,
			CompleteLabel:   cfg.Stepper.CompleteLabel,
		},
		BroadcastTimeout: cfg.Session.BroadcastTimeout,
	}, newGate)

	signers := loadSigners(ctx, cfg.Signer)

	// Outbox -> MQ
	var producer mq.Producer
	if cfg.Redis.MQType == "kafka" {
		logger.Info("MQ Mode: Kafka Producer", zap.Strings("brokers", cfg.Kafka.Brokers))
		producer = mq.NewKafkaProducer(cfg.Kafka.Brokers)
	} else {
		logger.Info("MQ Mode: Redis Producer")
		producer = mq.NewRedisProducer(rdb)
	}
	outboxRelay := relay.NewService(relay.NewGormOutbox(db), producer)

	hostname, _ := os.Hostname()
	sweep := sweeper.NewService(manager, cfg.Session.IdleTTL, lock.NewLocalLock(), hostname)
	if err := sweep.Start(cfg.Session.SweepSpec); err != nil {
		logger.Error("session sweeper failed to start", zap.Error(err))
		return err
	}
	defer sweep.Stop()

	h := handler.NewSendHandler(manager, signers, historySvc)
	app := server.New(server.Config{HttpPort: cfg.App.HttpPort}, server.NewHTTPRouter(h))
	app.Go(server.RunFunc(outboxRelay.Start))
	app.OnClose(rdb)
	app.OnClose(producer)

	return app.Run(ctx)
}

// loadSigners 服务端签名器是可选的，缺失时只能由客户端提交签名结果
func loadSigners(ctx context.Context, cfg config.SignerConfig) signer.Router {
	var router signer.Router

	local, err := signer.Load(signer.Options{
		KeystorePath:   cfg.KeystorePath,
		Password:       cfg.Password,
		Mnemonic:       cfg.Mnemonic,
		DerivationPath: cfg.DerivationPath,
	})
	if err != nil {
		logger.Warn("本地签名器不可用", zap.Error(err))
	} else {
		router.Local = local
	}

	if cfg.RemoteRpcUrl != "" {
		remote, err := signer.DialRemote(ctx, cfg.RemoteRpcUrl)
		if err != nil {
			logger.Warn("签名节点连接失败", zap.String("url", cfg.RemoteRpcUrl), zap.Error(err))
		} else {
			router.Remote = remote
		}
	}
	return router
}
