package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cfg "github.com/chemlabel/chemdoc-processor/config"
	"github.com/chemlabel/chemdoc-processor/internal/extract"
	"github.com/chemlabel/chemdoc-processor/internal/extract/acquire"
	"github.com/chemlabel/chemdoc-processor/internal/extract/ocrfallback"
	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
	"github.com/chemlabel/chemdoc-processor/pkg/queue"
	"github.com/chemlabel/chemdoc-processor/pkg/storage"
	"github.com/chemlabel/chemdoc-processor/pkg/validator"
)

type BatchService struct {
	pipeline *extract.Pipeline
	queue    queue.Queue
	storage  storage.Storage
	logger   logger.Logger
	config   *ServiceConfig
}

type ServiceConfig struct {
	MaxFileSize     int64
	QueuePriority   int
	ProcessTimeout  time.Duration
	RetentionPeriod time.Duration
}

func NewService(
	pipeline *extract.Pipeline,
	q queue.Queue,
	store storage.Storage,
	log logger.Logger,
	conf *ServiceConfig,
) BatchProcessor {
	if conf == nil {
		conf = &ServiceConfig{
			MaxFileSize:     50 * 1024 * 1024, // 50MB
			QueuePriority:   2,
			ProcessTimeout:  30 * time.Minute,
			RetentionPeriod: 24 * time.Hour,
		}
	}

	return &BatchService{
		pipeline: pipeline,
		queue:    q,
		storage:  store,
		logger:   log,
		config:   conf,
	}
}

func GetService(log logger.Logger) (BatchProcessor, error) {
	storageType := storage.StorageType(os.Getenv("STORAGE_TYPE"))
	if storageType == "" {
		storageType = storage.StorageTypeMinio
	}
	store, err := storage.NewStorage(storageType, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// 初始化队列
	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	pipeline, err := buildPipeline(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extraction pipeline: %w", err)
	}

	return NewService(pipeline, q, store, log, nil), nil
}

// buildPipeline 按环境配置组装 OCR 回退引擎与字段校验器
func buildPipeline(log logger.Logger) (*extract.Pipeline, error) {
	ocrConf := cfg.GetOCRConfig()

	var recognizer ocrfallback.Recognizer
	switch ocrConf.Backend {
	case "textract":
		r, err := ocrfallback.NewTextractRecognizer(context.Background(), cfg.GetTextractConfig(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to create textract recognizer: %w", err)
		}
		recognizer = r
	default:
		recognizer = ocrfallback.NewTesseractRecognizer(ocrConf.Languages, log)
	}

	engineConf := ocrfallback.DefaultConfig()
	engineConf.DPI = ocrConf.DPI

	var ocr acquire.OCREngine = ocrfallback.NewEngine(
		ocrfallback.NewPopplerRasterizer(ocrConf.PdftoppmPath, log),
		recognizer,
		engineConf,
		log,
	)

	var v validator.RecordValidator = validator.Nop{}
	if mc := cfg.GetMistralConfig(); mc.EnableValidation {
		mv := validator.NewMistralValidator(&validator.MistralConfig{
			APIKey:  mc.APIKey,
			BaseURL: mc.BaseURL,
			Model:   mc.Model,
		}, log)
		// 启动时探测一次：不可达只降级为透传，不阻止服务启动
		if err := mv.TestConnection(context.Background()); err != nil {
			log.Warn("Mistral API unreachable, corrections will pass through",
				logger.Error(err),
			)
		}
		v = mv
	}

	return extract.NewPipeline(ocr, v, log)
}

// ProcessBatch 接收一个批次的三份文档，落盘后入队异步提取
func (s *BatchService) ProcessBatch(
	ctx context.Context,
	files map[models.DocumentType]*multipart.FileHeader,
) (*models.BatchTask, error) {
	for _, docType := range models.ProcessingOrder {
		header, ok := files[docType]
		if !ok || header == nil {
			return nil, fmt.Errorf("missing required document: %s", docType)
		}
		if err := s.validateFile(header); err != nil {
			s.logger.Error("File validation failed",
				logger.String("docType", string(docType)),
				logger.String("filename", header.Filename),
				logger.Error(err),
			)
			return nil, err
		}
	}

	batchID := uuid.New().String()

	task := &models.BatchTask{
		ID:        batchID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeBatchExtract,
		Priority:  s.config.QueuePriority,
		Progress:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Metadata:  make(map[string]string),
	}

	// 三份 PDF 并发上传
	g, gctx := errgroup.WithContext(ctx)
	for docType, header := range files {
		docType, header := docType, header
		task.Metadata[string(docType)] = header.Filename
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s file: %w", docType, err)
			}
			defer file.Close()

			key := storage.DocumentKey(batchID, strings.ToLower(string(docType)))
			if _, err := s.storage.Store(gctx, file, key); err != nil {
				return fmt.Errorf("failed to store %s document: %w", docType, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to store batch documents",
			logger.String("batchId", batchID),
			logger.Error(err),
		)
		return nil, err
	}

	queueTask := &queue.Task{
		ID:       batchID,
		Type:     queue.TaskTypeBatchExtract,
		Priority: task.Priority,
		Payload: map[string]interface{}{
			"batchId": batchID,
		},
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
	}

	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue batch",
			logger.String("batchId", batchID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue batch: %w", err)
	}

	initialStatus := &queue.TaskStatus{
		TaskID:    batchID,
		Status:    "pending",
		Progress:  0,
		StartedAt: time.Now(),
	}
	if err := s.queue.SaveFinalStatus(ctx, initialStatus); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("batchId", batchID),
			logger.Error(err),
		)
	}

	s.logger.Info("Batch extraction task created",
		logger.String("batchId", batchID),
	)

	return task, nil
}

// HandleBatch 由 worker 调用：取回三份 PDF，跑完整提取流水线，存结果
func (s *BatchService) HandleBatch(ctx context.Context, task *queue.Task) error {
	if task == nil || task.Payload == nil {
		return fmt.Errorf("invalid task: missing required data")
	}

	batchID, ok := task.Payload["batchId"].(string)
	if !ok || batchID == "" {
		return fmt.Errorf("invalid task: missing batch id")
	}

	s.logger.Info("Processing batch",
		logger.String("batchId", batchID),
	)

	documents := make(map[models.DocumentType][]byte, len(models.ProcessingOrder))
	for _, docType := range models.ProcessingOrder {
		key := storage.DocumentKey(batchID, strings.ToLower(string(docType)))
		reader, err := s.storage.Get(ctx, key)
		if err != nil {
			return s.failBatch(ctx, task, batchID, fmt.Errorf("failed to get %s document: %w", docType, err))
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return s.failBatch(ctx, task, batchID, fmt.Errorf("failed to read %s document: %w", docType, err))
		}
		documents[docType] = data
	}

	record, err := s.pipeline.Extract(ctx, documents)
	if err != nil {
		return s.failBatch(ctx, task, batchID, fmt.Errorf("extraction failed: %w", err))
	}

	resultData, err := json.Marshal(record)
	if err != nil {
		return s.failBatch(ctx, task, batchID, fmt.Errorf("failed to marshal record: %w", err))
	}

	if _, err := s.storage.Store(ctx, bytes.NewReader(resultData), storage.RecordKey(batchID)); err != nil {
		return s.failBatch(ctx, task, batchID, fmt.Errorf("failed to store record: %w", err))
	}

	s.logger.Info("Batch extraction completed",
		logger.String("batchId", batchID),
		logger.String("productName", record.ProductName),
		logger.Int("testResultRows", len(record.TestResults)),
	)

	finalStatus := &queue.TaskStatus{
		TaskID:     batchID,
		Status:     "completed",
		Progress:   1.0,
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	}
	if err := s.queue.SaveFinalStatus(ctx, finalStatus); err != nil {
		s.logger.Error("Failed to save final status",
			logger.String("batchId", batchID),
			logger.Error(err),
		)
	}

	return nil
}

// failBatch 在返回错误前把失败状态落入 redis。初始的 pending 状态
// 不能留到最后：状态查询优先读 redis，过期的 pending 会掩盖失败。
func (s *BatchService) failBatch(ctx context.Context, task *queue.Task, batchID string, err error) error {
	s.logger.Error("Batch extraction failed",
		logger.String("batchId", batchID),
		logger.Error(err),
	)

	failedStatus := &queue.TaskStatus{
		TaskID:     batchID,
		Status:     "failed",
		Error:      err.Error(),
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	}
	if saveErr := s.queue.SaveFinalStatus(ctx, failedStatus); saveErr != nil {
		s.logger.Error("Failed to save failure status",
			logger.String("batchId", batchID),
			logger.Error(saveErr),
		)
	}

	return err
}

// GetProcessingStatus 获取批次处理状态
func (s *BatchService) GetProcessingStatus(ctx context.Context, batchID string) (*models.BatchTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch status: %w", err)
	}

	var taskStatus models.ProcessingStatus
	switch status.Status {
	case "pending":
		taskStatus = models.StatusPending
	case "running", "active":
		taskStatus = models.StatusRunning
	case "completed":
		taskStatus = models.StatusCompleted
	case "failed":
		taskStatus = models.StatusFailed
	default:
		taskStatus = models.StatusPending
	}

	return &models.BatchTask{
		ID:        status.TaskID,
		Status:    taskStatus,
		Type:      queue.TaskTypeBatchExtract,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

// GetExtractedRecord 获取批次的合并提取结果
func (s *BatchService) GetExtractedRecord(ctx context.Context, batchID string) (*models.ExtractedRecord, error) {
	status, err := s.GetProcessingStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("batch is not completed: %s", status.Status)
	}

	reader, err := s.storage.Get(ctx, storage.RecordKey(batchID))
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	defer reader.Close()

	var record models.ExtractedRecord
	if err := json.NewDecoder(reader).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	return &record, nil
}

// CancelTask 取消批次任务
func (s *BatchService) CancelTask(ctx context.Context, batchID string) error {
	if err := s.queue.CancelTask(ctx, batchID); err != nil {
		return fmt.Errorf("failed to cancel batch: %w", err)
	}

	s.logger.Info("Batch cancelled",
		logger.String("batchId", batchID),
	)

	return nil
}

// CleanupBatches 清理过期批次对象
func (s *BatchService) CleanupBatches(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed batch cleanup",
		logger.Time("threshold", threshold),
	)

	return nil
}

// validateFile 验证上传文件，只接受 PDF
func (s *BatchService) validateFile(header *multipart.FileHeader) error {
	if header.Size > s.config.MaxFileSize {
		return fmt.Errorf("file size exceeds maximum limit of %d bytes", s.config.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		return fmt.Errorf("unsupported file type: %s", ext)
	}

	return nil
}
