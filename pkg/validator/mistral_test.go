package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

func sampleRecord() *models.ExtractedRecord {
	record := models.NewExtractedRecord()
	record.ProductName = "Sodium Hyaluronat" // OCR 缺字
	record.CASNumber = "9067-32-7"
	return record
}

func chatCompletion(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestValidateAppliesCorrection(t *testing.T) {
	corrected := models.NewExtractedRecord()
	corrected.ProductName = "Sodium Hyaluronate"
	corrected.CASNumber = "9067-32-7"
	corrected.ValidationNotes = "Fixed product name spelling"
	correctedJSON, err := json.Marshal(corrected)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletion(string(correctedJSON))))
	}))
	defer srv.Close()

	v := NewMistralValidator(&MistralConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, logger.NewTestLogger())

	result := v.Validate(context.Background(), sampleRecord())

	assert.Equal(t, "Sodium Hyaluronate", result.ProductName)
	assert.Equal(t, "Fixed product name spelling", result.ValidationNotes)
	assert.NotNil(t, result.Specifications)
	assert.NotNil(t, result.TestResults)
}

func TestValidateHandlesMarkdownFencedJSON(t *testing.T) {
	content := "Here is the corrected data:\n```json\n{\"product_name\": \"Sodium Hyaluronate\"}\n```\nAll done."

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletion(content)))
	}))
	defer srv.Close()

	v := NewMistralValidator(&MistralConfig{APIKey: "test-key", BaseURL: srv.URL}, logger.NewTestLogger())

	result := v.Validate(context.Background(), sampleRecord())

	assert.Equal(t, "Sodium Hyaluronate", result.ProductName)
	// 反序列化后嵌套结构仍然存在
	assert.NotNil(t, result.SafetyData)
	assert.NotNil(t, result.PhysicalProperties)
}

func TestValidatePassthroughWithoutAPIKey(t *testing.T) {
	v := NewMistralValidator(&MistralConfig{}, logger.NewTestLogger())

	record := sampleRecord()
	result := v.Validate(context.Background(), record)

	assert.Same(t, record, result)
}

func TestValidatePassthroughOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewMistralValidator(&MistralConfig{APIKey: "test-key", BaseURL: srv.URL}, logger.NewTestLogger())

	record := sampleRecord()
	result := v.Validate(context.Background(), record)

	assert.Same(t, record, result)
}

func TestValidatePassthroughOnMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletion("I cannot produce JSON for this request.")))
	}))
	defer srv.Close()

	v := NewMistralValidator(&MistralConfig{APIKey: "test-key", BaseURL: srv.URL}, logger.NewTestLogger())

	record := sampleRecord()
	result := v.Validate(context.Background(), record)

	assert.Same(t, record, result)
}

func TestValidatePassthroughOnUnreachableServer(t *testing.T) {
	v := NewMistralValidator(&MistralConfig{
		APIKey:  "test-key",
		BaseURL: "http://127.0.0.1:1",
	}, logger.NewTestLogger())

	record := sampleRecord()
	result := v.Validate(context.Background(), record)

	assert.Same(t, record, result)
}

func TestNopValidatorReturnsRecordUnchanged(t *testing.T) {
	record := sampleRecord()
	result := Nop{}.Validate(context.Background(), record)
	assert.Same(t, record, result)
}
