package validator

import (
	"context"

	"github.com/chemlabel/chemdoc-processor/internal/models"
)

// RecordValidator 可选的字段校正协作方。实现必须是尽力而为的:
// 任何失败都返回未修改的原记录，从不阻塞流水线。
type RecordValidator interface {
	Validate(ctx context.Context, record *models.ExtractedRecord) *models.ExtractedRecord
}

// Nop 校正能力缺失时的实现
type Nop struct{}

func (Nop) Validate(_ context.Context, record *models.ExtractedRecord) *models.ExtractedRecord {
	return record
}
