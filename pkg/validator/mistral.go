package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

const validationPrompt = `Please validate and correct the following extracted chemical document data.
Look for common OCR errors and inconsistencies:

Extracted Data:
%s

Please check and correct:
1. Product names - ensure proper chemical nomenclature
2. CAS numbers - validate format (XXXXX-XX-X)
3. INCI names - verify cosmetic ingredient naming standards
4. Molecular formulas - check chemical formula syntax
5. Test values - ensure proper units and ranges
6. Company names - fix any OCR spelling errors
7. Dates - standardize format (YYYY-MM-DD)

Return the corrected data in the same JSON structure.
Only modify fields that contain clear errors.
Add a "validation_notes" field explaining any corrections made.`

// MistralConfig 校正服务配置
type MistralConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// MistralValidator 调用 Mistral 聊天接口做字段校正。
// 服务不可达、凭证缺失或响应不可解析时一律透传原记录。
type MistralValidator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     logger.Logger
}

func NewMistralValidator(conf *MistralConfig, log logger.Logger) *MistralValidator {
	baseURL := conf.BaseURL
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	model := conf.Model
	if model == "" {
		model = "mistral-large-latest"
	}
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &MistralValidator{
		apiKey:  conf.APIKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Validate 把合并后的记录交给模型复核。任何失败分支都返回原记录。
func (v *MistralValidator) Validate(ctx context.Context, record *models.ExtractedRecord) *models.ExtractedRecord {
	if v.apiKey == "" {
		v.logger.Warn("Mistral API key not available for field validation")
		return record
	}

	corrected, err := v.correct(ctx, record)
	if err != nil {
		v.logger.Error("Mistral field validation failed, passing through", logger.Error(err))
		return record
	}

	v.logger.Info("Mistral field validation completed")
	return corrected
}

func (v *MistralValidator) correct(ctx context.Context, record *models.ExtractedRecord) (*models.ExtractedRecord, error) {
	recordJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	reqBody := chatRequest{
		Model: v.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(validationPrompt, string(recordJSON))},
		},
		MaxTokens:   2000,
		Temperature: 0.1,
	}

	reqData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.baseURL+"/chat/completions", bytes.NewReader(reqData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("response contains no choices")
	}

	corrected := models.NewExtractedRecord()
	content := extractJSON(chatResp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), corrected); err != nil {
		return nil, fmt.Errorf("failed to parse corrected record: %w", err)
	}

	normalize(corrected)
	return corrected, nil
}

// extractJSON 处理 markdown 代码块包裹的 JSON 响应
func extractJSON(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(content)
}

// normalize 保证三个嵌套映射和行列表在反序列化后不为 nil
func normalize(record *models.ExtractedRecord) {
	if record.TestResults == nil {
		record.TestResults = make([]models.TestResultRow, 0)
	}
	if record.Specifications == nil {
		record.Specifications = make(map[string]string)
	}
	if record.SafetyData == nil {
		record.SafetyData = make(map[string]string)
	}
	if record.PhysicalProperties == nil {
		record.PhysicalProperties = make(map[string]string)
	}
}

// TestConnection 探测 API 可达性与凭证有效性
func (v *MistralValidator) TestConnection(ctx context.Context) error {
	if v.apiKey == "" {
		return fmt.Errorf("no API key provided")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
