package handlers

import (
	"github.com/chemlabel/chemdoc-processor/internal/service/batch"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

type Handlers struct {
	Batch *BatchHandler
}

func NewHandlers(
	batchService batch.BatchProcessor,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Batch: NewBatchHandler(batchService, log),
	}
}
