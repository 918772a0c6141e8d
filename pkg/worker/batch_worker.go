package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chemlabel/chemdoc-processor/internal/service/batch"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
	"github.com/chemlabel/chemdoc-processor/pkg/queue"
	"github.com/hibiken/asynq"
)

type BatchWorker struct {
	BaseWorker
	batchService batch.BatchProcessor
}

func NewBatchWorker(cfg *Config, batchService batch.BatchProcessor, log logger.Logger) (*BatchWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &BatchWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		batchService: batchService,
	}

	// 注册任务处理器
	w.registerHandlers()
	return w, nil
}

func (w *BatchWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeBatchExtract, w.handleBatchExtract)
}

func (w *BatchWorker) handleBatchExtract(ctx context.Context, t *asynq.Task) error {
	w.logger.Info("Received task",
		logger.String("payload", string(t.Payload())),
	)

	// 反序列化任务
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	w.logger.Info("Processing batch task",
		logger.String("batchId", task.ID),
		logger.Any("metadata", task.Metadata),
	)

	if task.ID == "" || task.Payload == nil {
		w.logger.Error("Invalid task data",
			logger.String("batchId", task.ID),
			logger.Any("payload", task.Payload),
		)
		return fmt.Errorf("invalid task data: missing required fields")
	}

	// 获取任务写入器
	info := t.ResultWriter()

	if _, err := info.Write([]byte(`{"status":"running","progress":0}`)); err != nil {
		w.logger.Error("Failed to write task status", logger.Error(err))
	}

	err := w.batchService.HandleBatch(ctx, &task)
	if err != nil {
		if _, writeErr := info.Write([]byte(fmt.Sprintf(`{"status":"failed","error":%q}`, err.Error()))); writeErr != nil {
			w.logger.Error("Failed to write task failure", logger.Error(writeErr))
		}
		return err
	}

	if _, err := info.Write([]byte(`{"status":"completed","progress":100}`)); err != nil {
		w.logger.Error("Failed to write task completion", logger.Error(err))
	}

	return nil
}

func (w *BatchWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
