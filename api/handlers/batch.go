package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/internal/service/batch"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

type BatchHandler struct {
	service batch.BatchProcessor
	logger  logger.Logger
}

// ProcessResponse 批次创建响应结构
type ProcessResponse struct {
	BatchID   string            `json:"batchId"`
	Status    string            `json:"status"`
	Documents map[string]string `json:"documents"`
	CreatedAt string            `json:"createdAt"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewBatchHandler(service batch.BatchProcessor, log logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: service,
		logger:  log,
	}
}

// ProcessBatch 接收一个批次的三份文档：表单字段 coa / msds / tds
func (h *BatchHandler) ProcessBatch(c *gin.Context) {
	files := make(map[models.DocumentType]*multipart.FileHeader, len(models.ProcessingOrder))
	for _, docType := range models.ProcessingOrder {
		field := strings.ToLower(string(docType))
		header, err := c.FormFile(field)
		if err != nil {
			h.handleError(c, http.StatusBadRequest,
				fmt.Sprintf("Missing required document: %s", field), err)
			return
		}
		files[docType] = header
	}

	task, err := h.service.ProcessBatch(c.Request.Context(), files)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to process batch", err)
		return
	}

	documents := make(map[string]string, len(files))
	for docType, header := range files {
		documents[strings.ToLower(string(docType))] = header.Filename
	}

	c.JSON(http.StatusOK, ProcessResponse{
		BatchID:   task.ID,
		Status:    string(task.Status),
		Documents: documents,
		CreatedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetStatus 获取批次处理状态
func (h *BatchHandler) GetStatus(c *gin.Context) {
	batchID := c.Param("batchId")
	if batchID == "" {
		h.handleError(c, http.StatusBadRequest, "Batch ID is required", nil)
		return
	}

	task, err := h.service.GetProcessingStatus(c.Request.Context(), batchID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batchId":   task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"metadata":  task.Metadata,
		"createdAt": task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"updatedAt": task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// DownloadResult 下载合并后的提取结果
func (h *BatchHandler) DownloadResult(c *gin.Context) {
	batchID := c.Param("batchId")
	if batchID == "" {
		h.handleError(c, http.StatusBadRequest, "Batch ID is required", nil)
		return
	}

	record, err := h.service.GetExtractedRecord(c.Request.Context(), batchID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get record", err)
		return
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to serialize record", err)
		return
	}

	filename := fmt.Sprintf("record_%s.json", batchID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/json", recordJSON)
}

// CancelTask 取消批次任务
func (h *BatchHandler) CancelTask(c *gin.Context) {
	batchID := c.Param("batchId")
	if batchID == "" {
		h.handleError(c, http.StatusBadRequest, "Batch ID is required", nil)
		return
	}

	if err := h.service.CancelTask(c.Request.Context(), batchID); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to cancel batch", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Batch cancelled successfully",
		"batchId": batchID,
	})
}

// handleError 统一错误处理
func (h *BatchHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
