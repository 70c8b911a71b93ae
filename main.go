package main

import (
	"context"
	"hash/crc32"
	"os/signal"
	"syscall"
	"time"

	"ChatCore/global"
	"ChatCore/logger"
	"ChatCore/middleware"
	"ChatCore/module/chat/member"
	"ChatCore/module/chat/message"
	"ChatCore/module/chat/notify"
	"ChatCore/module/chat/seq"
	"ChatCore/service/httpapi"
	"ChatCore/service/kafka"
	"ChatCore/service/mgo"
	"ChatCore/service/natsx"
	"ChatCore/service/pg"
	"ChatCore/service/rpc"
	storageredis "ChatCore/service/storage/redis"
	"ChatCore/tools/ids"
	"ChatCore/tools/safe"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := global.Load()
	defer logger.Sync()

	// 通知任务 ID 的雪花节点号从节点名派生
	ids.SetNodeID(int64(crc32.ChecksumIEEE([]byte(cfg.NodeID)) % 1024))

	logger.Info("chatcore starting",
		zap.String("node", cfg.NodeID), zap.String("store", cfg.StoreKind))

	// 共享快存（发号器计数器 + 初始化锁）
	if err := storageredis.InitRedis(cfg.Redis); err != nil {
		logger.Fatal("init redis failed", zap.Error(err))
	}
	defer storageredis.CloseRedis()

	// 持久层按配置二选一
	var (
		msgStore   message.Store
		memberRepo member.Repository
	)
	switch cfg.StoreKind {
	case global.StorePostgres:
		if err := pg.InitPG(cfg.Postgres); err != nil {
			logger.Fatal("init postgres failed", zap.Error(err))
		}
		defer pg.ClosePG()
		msgStore = message.NewPGStore(pg.GetPool())
		memberRepo = member.NewPGRepository(pg.GetPool())
	default:
		if err := mgo.InitMongo(cfg.Mongo); err != nil {
			logger.Fatal("init mongo failed", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mgo.CloseMongo(ctx)
		}()

		mongoMsg := message.NewMongoStore(mgo.GetDB())
		mongoMember := member.NewMongoRepository(mgo.GetDB())
		idxCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mongoMsg.EnsureIndexes(idxCtx); err != nil {
			cancel()
			logger.Fatal("ensure message indexes failed", zap.Error(err))
		}
		if err := mongoMember.EnsureIndexes(idxCtx); err != nil {
			cancel()
			logger.Fatal("ensure membership indexes failed", zap.Error(err))
		}
		cancel()
		msgStore = mongoMsg
		memberRepo = mongoMember
	}

	// 发号器：快存计数器，消息表回源
	seqStore := seq.NewRedisStore(storageredis.GetRedis())
	allocator := seq.NewAllocator(seqStore, seqStore, msgStore)

	tracker := member.NewTracker(memberRepo)
	unread := member.NewCounter(allocator, memberRepo)

	// Kafka：发送事件出口 + 通知链路入口
	if err := kafka.InitKafkaClient(cfg.Kafka); err != nil {
		logger.Fatal("init kafka failed", zap.Error(err))
	}
	defer kafka.Close()
	if err := kafka.InitSyncProducerFromClient(); err != nil {
		logger.Fatal("init kafka producer failed", zap.Error(err))
	}

	msgSvc := message.NewService(msgStore, allocator, tracker,
		message.NewKafkaPublisher(cfg.Kafka.SendEventTopic))

	// NATS：在线状态查询 + 通知任务出口
	nc, err := natsx.NewNatsxClient(natsx.NatsxConfig{
		Servers: cfg.Nats.Servers,
		Name:    cfg.Nats.Name,
	})
	if err != nil {
		logger.Fatal("connect nats failed", zap.Error(err))
	}
	defer nc.Close()

	// 用户目录 gRPC 客户端
	directory := rpc.NewManager(rpc.Config{Target: cfg.RPC.UserDirectoryTarget})
	directory.Start()
	defer directory.Stop()

	dispatcher := notify.NewDispatcher(
		memberRepo,
		&notify.NatsPresenceClient{C: nc},
		directory,
		&notify.NatsJobSink{C: nc, Channel: "email"},
	)
	notify.RegisterSendEventConsumer(cfg.Kafka.SendEventTopic, dispatcher)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	safe.SafeGo("kafka-consumer", func() {
		err := kafka.StartConsumerGroup(rootCtx, cfg.Kafka.Brokers, cfg.Kafka.GroupID,
			[]string{cfg.Kafka.SendEventTopic})
		if err != nil && rootCtx.Err() == nil {
			logger.Error("consumer group quit", zap.Error(err))
		}
	})

	// HTTP 面
	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog(), middleware.Origin())
	httpapi.NewServer(msgSvc, tracker, unread, memberRepo).RegisterRoutes(r)

	safe.SafeGo("http-server", func() {
		if err := r.Run(cfg.HTTPAddr); err != nil {
			logger.Error("http server quit", zap.Error(err))
			stop()
		}
	})

	<-rootCtx.Done()
	logger.Info("chatcore shutting down")
}
