package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chemlabel/chemdoc-processor/internal/service/batch"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
	"github.com/chemlabel/chemdoc-processor/pkg/worker"
)

func main() {
	// 初始化日志
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 创建批次服务
	batchService, err := batch.GetService(log)
	if err != nil {
		log.Error("Failed to create batch service", logger.Error(err))
		os.Exit(1)
	}

	// 创建 worker 配置
	workerCfg := &worker.Config{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	// 创建 worker
	batchWorker, err := worker.NewBatchWorker(workerCfg, batchService, log)
	if err != nil {
		log.Error("Failed to create batch worker", logger.Error(err))
		os.Exit(1)
	}

	// 创建上下文和取消函数
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动 worker
	if err := batchWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// 优雅关闭
	log.Info("Shutting down worker...")
	batchWorker.Stop()
	log.Info("Worker stopped")
}
