package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

func TestExtractCOATable(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	text := `Certificate of Analysis
Product Name: Sodium Hyaluronate

Test Items        Specifications        Results
Appearance        White powder          Conforms
pH                6.0-7.5               6.8
Loss on drying    ≤10%                  5.2%
`

	result := e.Extract(models.DocTypeCOA, text)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, "Appearance", result.Rows[0].TestItem)
	assert.Equal(t, "White powder", result.Rows[0].Specification)
	assert.Equal(t, "Conforms", result.Rows[0].Result)
	assert.Equal(t, models.DocTypeCOA, result.Rows[0].DocumentType)

	assert.Equal(t, "pH", result.Rows[1].TestItem)
	assert.Equal(t, "6.8", result.Rows[1].Result)

	assert.Equal(t, "Loss on drying", result.Rows[2].TestItem)
	assert.Equal(t, "≤10%", result.Rows[2].Specification)
	assert.Equal(t, "5.2%", result.Rows[2].Result)
}

func TestExtractNoHeaderNoRows(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	text := `Appearance        White powder          Conforms
pH                6.0-7.5               6.8
`

	result := e.Extract(models.DocTypeCOA, text)

	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Specifications)
}

func TestExtractTabSeparatedColumns(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	text := "检验项目\t规格\t结果\n外观\t白色粉末\t符合\n"

	result := e.Extract(models.DocTypeCOA, text)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "外观", result.Rows[0].TestItem)
	assert.Equal(t, "白色粉末", result.Rows[0].Specification)
	assert.Equal(t, "符合", result.Rows[0].Result)
}

func TestExtractTwoColumnSpecification(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	// 双列行记入规格映射；COA 没有独立结果列时不产出行
	text := `Test Items        Specifications        Results
Heavy metals        ≤20ppm
`

	result := e.Extract(models.DocTypeCOA, text)

	assert.Empty(t, result.Rows)
	assert.Equal(t, "≤20ppm", result.Specifications["Heavy metals"])
}

func TestExtractTDSSpecEqualsResult(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	text := `Specifications
Appearance        White to off-white powder
pH        6.0-7.5
`

	result := e.Extract(models.DocTypeTDS, text)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "White to off-white powder", result.Rows[0].Specification)
	assert.Equal(t, result.Rows[0].Specification, result.Rows[0].Result)
	assert.Equal(t, models.DocTypeTDS, result.Rows[0].DocumentType)
	assert.Equal(t, "6.0-7.5", result.Specifications["pH"])
}

func TestExtractItemOnlyLinePlaceholder(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	text := `Specifications
Molecular weight
`

	result := e.Extract(models.DocTypeTDS, text)

	assert.Equal(t, "as specified", result.Specifications["Molecular weight"])
}

func TestExtractComparatorSplit(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	// 名称紧贴比较符号、无多余空白的行
	text := "Specifications\n纯度≥99.0%\n"

	result := e.Extract(models.DocTypeTDS, text)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "纯度", result.Rows[0].TestItem)
	assert.Equal(t, "≥99.0%", result.Rows[0].Specification)
}

func TestExtractStoplistSkipsBoilerplate(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	text := `Test Items        Specifications        Results
Appearance        White powder          Conforms
Issued Date: 2024-01-20        QC Department        Approved
pH                6.0-7.5               6.8
`

	result := e.Extract(models.DocTypeCOA, text)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Appearance", result.Rows[0].TestItem)
	assert.Equal(t, "pH", result.Rows[1].TestItem)
}

func TestExtractWindowLimit(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	var text string
	text = "Test Items        Specifications        Results\n"
	for i := 0; i < 25; i++ {
		text += "filler line without columns\n"
	}
	text += "Late item        Spec        Result\n"

	// 窗口 20 行耗尽后，后续行不再收集
	result := e.Extract(models.DocTypeCOA, text)
	assert.Empty(t, result.Rows)
}

func TestExtractOnlyFirstRegion(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	var text string
	text = "Test Items        Specifications        Results\n"
	for i := 0; i < 22; i++ {
		text += "x\n" // 短于最小行长，被跳过但消耗窗口
	}
	text += "Test Items        Specifications        Results\n"
	text += "Second region        Spec        Result\n"

	result := e.Extract(models.DocTypeCOA, text)
	assert.Empty(t, result.Rows)
}

func TestExtractUnknownDocType(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger())

	result := e.Extract(models.DocumentType("UNKNOWN"), "Test Items  Specifications  Results\na  b  c\n")

	assert.Empty(t, result.Rows)
}
