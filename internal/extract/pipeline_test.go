package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

// fakeOCR 按文档内容返回预置文本。流水线测试里用无效 PDF 字节触发
// 原生提取失败，走 OCR 回退路径，避免依赖真实 PDF 样本。
type fakeOCR struct {
	texts map[string]string
}

func (f *fakeOCR) Available() bool { return true }

func (f *fakeOCR) Recognize(_ context.Context, pdfData []byte) ([]models.RawPage, error) {
	return []models.RawPage{
		{Index: 0, Text: f.texts[string(pdfData)], Source: models.SourceOCR},
	}, nil
}

const coaText = `Certificate of Analysis
Product Name: Sodium Hyaluronate
Batch No.: SH20240115
CAS No.: 9067-32-7

Test Items        Specifications        Results
Appearance        White powder          Conforms
pH                6.0-7.5               6.8
`

const msdsText = `Safety Data Sheet
Product Name: Sodium Hyaluronate (HA)
Company Name: ChemLabel Biotech Co., Ltd.
Molecular Formula: (C14H20NNaO11)n
Appearance: White or almost white powder
`

const tdsText = `Technical Data Sheet
Product Name: Sodium Hyaluronate
Recommended use level: 0.1% - 1.0%
Shelf life: 2 years

Specifications
Molecular weight        1500-1800 kDa
`

func newTestPipeline(t *testing.T, texts map[string]string) *Pipeline {
	t.Helper()
	p, err := NewPipeline(&fakeOCR{texts: texts}, nil, logger.NewTestLogger())
	require.NoError(t, err)
	return p
}

func TestPipelineExtractsAndMergesBatch(t *testing.T) {
	coaData := []byte("coa-bytes")
	msdsData := []byte("msds-bytes")
	tdsData := []byte("tds-bytes")

	p := newTestPipeline(t, map[string]string{
		string(coaData):  coaText,
		string(msdsData): msdsText,
		string(tdsData):  tdsText,
	})

	record, err := p.Extract(context.Background(), map[models.DocumentType][]byte{
		models.DocTypeCOA:  coaData,
		models.DocTypeMSDS: msdsData,
		models.DocTypeTDS:  tdsData,
	})
	require.NoError(t, err)

	// TDS 的产品名覆盖 COA/MSDS 的值
	assert.Equal(t, "Sodium Hyaluronate", record.ProductName)
	assert.Equal(t, "9067-32-7", record.CASNumber)
	assert.Equal(t, "SH20240115", record.BatchNumber)
	assert.Equal(t, "ChemLabel Biotech Co., Ltd.", record.SupplierName)
	assert.Equal(t, "(C14H20NNaO11)n", record.MolecularFormula)

	assert.Equal(t, "White or almost white powder", record.PhysicalProperties["appearance"])
	assert.Equal(t, "0.1% - 1.0%", record.PhysicalProperties["recommended_use_level"])
	assert.Equal(t, "2 years", record.PhysicalProperties["shelf_life"])

	// COA 表格行在前，TDS 的规格行在后
	require.GreaterOrEqual(t, len(record.TestResults), 3)
	assert.Equal(t, models.DocTypeCOA, record.TestResults[0].DocumentType)
	assert.Equal(t, "Appearance", record.TestResults[0].TestItem)
	last := record.TestResults[len(record.TestResults)-1]
	assert.Equal(t, models.DocTypeTDS, last.DocumentType)
	assert.Equal(t, last.Specification, last.Result)
}

func TestPipelineRejectsIncompleteBatch(t *testing.T) {
	p := newTestPipeline(t, nil)

	_, err := p.Extract(context.Background(), map[models.DocumentType][]byte{
		models.DocTypeCOA: []byte("coa-bytes"),
		models.DocTypeTDS: []byte("tds-bytes"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), string(models.DocTypeMSDS))
}
