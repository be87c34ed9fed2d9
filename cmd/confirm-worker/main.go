package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"wallet-send/internal/event"
	"wallet-send/internal/registry"
	"wallet-send/internal/server"
	"wallet-send/internal/service/broadcaster"
	"wallet-send/internal/service/history"
	"wallet-send/internal/service/mq"
	"wallet-send/internal/worker"
	"wallet-send/internal/worker/tasks"
	"wallet-send/pkg/config"
	"wallet-send/pkg/database"
	"wallet-send/pkg/logger"
)

// confirm-worker 消费交易广播事件，轮询链上回执并回写账户历史
func main() {
	config.Init()
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
	logger.Info("启动交易确认服务 (Confirm Worker)...", zap.String("env", cfg.App.Env))

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

	networks, assets, accounts, err := registry.FromConfig(cfg)
	if err != nil {
		logger.Error("网络 / 资产配置错误", zap.Error(err))
		return err
	}
	store := registry.NewStore(nil, nil, networks, assets, accounts)

	clients := broadcaster.NewDispatcher()
	defer clients.Close()
	confirm := tasks.NewConfirmHandler(store,
		func(ctx context.Context, n *registry.Network) (tasks.ReceiptClient, error) {
			return clients.Client(ctx, n)
		},
		history.NewService(history.NewGormRepository(db)),
	)

	srv := worker.NewServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Worker.Concurrency, confirm)
	srv.Start()
	defer srv.Stop()

	client := worker.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	consumerHandler := worker.NewBroadcastConsumer(client)

	var consumer mq.Consumer
	if cfg.Redis.MQType == "kafka" {
		logger.Info("MQ Mode: Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers))
		consumer = mq.NewKafkaConsumer(cfg.Kafka.Brokers, "confirm-group")
	} else {
		logger.Info("MQ Mode: Redis Consumer")
		hostname, _ := os.Hostname()
		consumer = mq.NewRedisConsumer(rdb, "confirm-group", hostname)
	}

	app := server.New(server.Config{}, nil)
	app.Go(server.RunFunc(func(ctx context.Context) error {
		logger.Info("开始监听交易广播事件", zap.String("topic", event.TopicTxBroadcast))
		return consumer.Subscribe(ctx, event.TopicTxBroadcast, consumerHandler.HandleMessage)
	}))
	app.OnClose(rdb)
	app.OnClose(client)
	app.OnClose(consumer)

	return app.Run(ctx)
}
