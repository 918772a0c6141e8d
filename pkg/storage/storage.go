package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chemlabel/chemdoc-processor/pkg/logger"
	"github.com/chemlabel/chemdoc-processor/pkg/storage/minio"
	"github.com/chemlabel/chemdoc-processor/pkg/storage/s3"
)

// StorageType 定义存储类型
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage 接口定义。上传的原始 PDF 与提取结果 JSON 都经由它持久化。
type Storage interface {
	// Store 存储对象
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get 获取对象
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象
	Delete(ctx context.Context, key string) error
	// CleanupBefore 清理过期对象
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage 创建存储实例的工厂方法
func NewStorage(storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(log)
	case StorageTypeMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// 批次对象键的布局
func DocumentKey(batchID, docType string) string {
	return fmt.Sprintf("batches/%s/%s.pdf", batchID, docType)
}

func RecordKey(batchID string) string {
	return fmt.Sprintf("batches/%s/record.json", batchID)
}
