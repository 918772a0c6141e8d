package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemlabel/chemdoc-processor/internal/models"
)

func TestMergeLaterDocumentOverwrites(t *testing.T) {
	coa := models.NewDocumentExtraction(models.DocTypeCOA)
	coa.Fields[models.FieldProductName] = "Name from COA"

	msds := models.NewDocumentExtraction(models.DocTypeMSDS)

	tds := models.NewDocumentExtraction(models.DocTypeTDS)
	tds.Fields[models.FieldProductName] = "Name from TDS"

	record := Merge(map[models.DocumentType]*models.DocumentExtraction{
		models.DocTypeCOA:  coa,
		models.DocTypeMSDS: msds,
		models.DocTypeTDS:  tds,
	})

	assert.Equal(t, "Name from TDS", record.ProductName)
}

func TestMergeEmptyValueNeverOverwrites(t *testing.T) {
	coa := models.NewDocumentExtraction(models.DocTypeCOA)
	coa.Fields[models.FieldCASNumber] = "9067-32-7"

	msds := models.NewDocumentExtraction(models.DocTypeMSDS)
	msds.Fields[models.FieldCASNumber] = ""

	tds := models.NewDocumentExtraction(models.DocTypeTDS)

	record := Merge(map[models.DocumentType]*models.DocumentExtraction{
		models.DocTypeCOA:  coa,
		models.DocTypeMSDS: msds,
		models.DocTypeTDS:  tds,
	})

	assert.Equal(t, "9067-32-7", record.CASNumber)
}

func TestMergeMapsRightBiased(t *testing.T) {
	coa := models.NewDocumentExtraction(models.DocTypeCOA)
	coa.SafetyData["ph"] = "6.0-7.0"
	coa.PhysicalProperties["appearance"] = "White powder"

	msds := models.NewDocumentExtraction(models.DocTypeMSDS)
	msds.SafetyData["ph"] = "6.5"
	msds.SafetyData["flash_point"] = "Not applicable"

	tds := models.NewDocumentExtraction(models.DocTypeTDS)

	record := Merge(map[models.DocumentType]*models.DocumentExtraction{
		models.DocTypeCOA:  coa,
		models.DocTypeMSDS: msds,
		models.DocTypeTDS:  tds,
	})

	assert.Equal(t, "6.5", record.SafetyData["ph"])
	assert.Equal(t, "Not applicable", record.SafetyData["flash_point"])
	assert.Equal(t, "White powder", record.PhysicalProperties["appearance"])
}

func TestMergeRowsConcatenatedInOrder(t *testing.T) {
	coa := models.NewDocumentExtraction(models.DocTypeCOA)
	coa.TestResults = []models.TestResultRow{
		{TestItem: "pH", Specification: "6.0-7.5", Result: "6.8", DocumentType: models.DocTypeCOA},
	}

	msds := models.NewDocumentExtraction(models.DocTypeMSDS)

	tds := models.NewDocumentExtraction(models.DocTypeTDS)
	tds.TestResults = []models.TestResultRow{
		{TestItem: "pH", Specification: "6.0-7.5", Result: "6.0-7.5", DocumentType: models.DocTypeTDS},
	}

	record := Merge(map[models.DocumentType]*models.DocumentExtraction{
		models.DocTypeCOA:  coa,
		models.DocTypeMSDS: msds,
		models.DocTypeTDS:  tds,
	})

	// 行按处理序拼接，不去重
	require.Len(t, record.TestResults, 2)
	assert.Equal(t, models.DocTypeCOA, record.TestResults[0].DocumentType)
	assert.Equal(t, models.DocTypeTDS, record.TestResults[1].DocumentType)
}

func TestMergeUnknownScalarGoesToPhysical(t *testing.T) {
	coa := models.NewDocumentExtraction(models.DocTypeCOA)
	coa.Fields["viscosity"] = "1500 mPa.s"

	record := Merge(map[models.DocumentType]*models.DocumentExtraction{
		models.DocTypeCOA: coa,
	})

	assert.Equal(t, "1500 mPa.s", record.PhysicalProperties["viscosity"])
}

func TestMergeEmptyInputs(t *testing.T) {
	record := Merge(map[models.DocumentType]*models.DocumentExtraction{})

	require.NotNil(t, record)
	assert.Empty(t, record.ProductName)
	assert.NotNil(t, record.Specifications)
	assert.NotNil(t, record.SafetyData)
	assert.NotNil(t, record.PhysicalProperties)
	assert.NotNil(t, record.TestResults)
	assert.Empty(t, record.TestResults)
}
