package batch

import (
	"context"
	"mime/multipart"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/queue"
)

// BatchProcessor 一次上传批次的完整生命周期：接收三份文档、入队、
// 异步提取、查询状态、取回合并结果。
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, files map[models.DocumentType]*multipart.FileHeader) (*models.BatchTask, error)
	GetProcessingStatus(ctx context.Context, batchID string) (*models.BatchTask, error)
	GetExtractedRecord(ctx context.Context, batchID string) (*models.ExtractedRecord, error)
	HandleBatch(ctx context.Context, task *queue.Task) error
	CancelTask(ctx context.Context, batchID string) error
	CleanupBatches(ctx context.Context) error
}
