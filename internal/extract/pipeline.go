package extract

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chemlabel/chemdoc-processor/internal/extract/acquire"
	"github.com/chemlabel/chemdoc-processor/internal/extract/fields"
	"github.com/chemlabel/chemdoc-processor/internal/extract/merge"
	"github.com/chemlabel/chemdoc-processor/internal/extract/tables"
	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
	"github.com/chemlabel/chemdoc-processor/pkg/validator"
)

// Pipeline 对一个上传批次（COA/MSDS/TDS 各一份）执行完整提取:
// 文本采集 → 字段/表格识别 → 合并 → 可选校正。
// 三份文档互无数据依赖，按文档并行提取后汇合。
type Pipeline struct {
	acquirer  *acquire.Acquirer
	fields    *fields.Extractor
	tables    *tables.Extractor
	validator validator.RecordValidator
	logger    logger.Logger
}

func NewPipeline(ocr acquire.OCREngine, v validator.RecordValidator, log logger.Logger) (*Pipeline, error) {
	fieldExtractor, err := fields.NewExtractor(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create field extractor: %w", err)
	}
	if v == nil {
		v = validator.Nop{}
	}

	return &Pipeline{
		acquirer:  acquire.NewAcquirer(ocr, log),
		fields:    fieldExtractor,
		tables:    tables.NewExtractor(log),
		validator: v,
		logger:    log,
	}, nil
}

// Extract 处理一个批次。三份文档都必须给出；任一文档采集失败
// 即整批失败并指明出错的文档。其余一切条件都退化为部分或空数据。
func (p *Pipeline) Extract(ctx context.Context, documents map[models.DocumentType][]byte) (*models.ExtractedRecord, error) {
	for _, docType := range models.ProcessingOrder {
		if len(documents[docType]) == 0 {
			return nil, fmt.Errorf("missing document: %s", docType)
		}
	}

	extractions := make(map[models.DocumentType]*models.DocumentExtraction, len(models.ProcessingOrder))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, docType := range models.ProcessingOrder {
		docType := docType
		data := documents[docType]
		g.Go(func() error {
			ext, err := p.extractDocument(ctx, docType, data)
			if err != nil {
				return err
			}

			mu.Lock()
			extractions[docType] = ext
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	record := merge.Merge(extractions)
	return p.validator.Validate(ctx, record), nil
}

func (p *Pipeline) extractDocument(ctx context.Context, docType models.DocumentType, data []byte) (*models.DocumentExtraction, error) {
	docText, err := p.acquirer.Acquire(ctx, docType, data)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", docType, err)
	}

	ext := models.NewDocumentExtraction(docType)

	fieldResult := p.fields.Extract(docType, docText.FullText)
	ext.Fields = fieldResult.Scalars
	ext.SafetyData = fieldResult.Safety
	ext.PhysicalProperties = fieldResult.Physical

	tableResult := p.tables.Extract(docType, docText.FullText)
	ext.TestResults = tableResult.Rows
	ext.Specifications = tableResult.Specifications

	p.logger.Info("Document extraction completed",
		logger.String("documentType", string(docType)),
		logger.Int("pages", len(docText.Pages)),
		logger.Int("fields", len(ext.Fields)),
		logger.Int("rows", len(ext.TestResults)),
	)

	return ext, nil
}
