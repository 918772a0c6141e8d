package merge

import (
	"github.com/chemlabel/chemdoc-processor/internal/models"
)

// Merge 按固定优先序 COA → MSDS → TDS 把三份部分提取结果折叠为一条规范记录。
// 后处理文档的非空值覆盖先处理文档的同名值；空值从不覆盖已有值。
// 表格行按文档处理序拼接，不去重：同一物理检测在不同文档里措辞可能不同。
// 合并从不失败；三个来源都没有数据时各字段/映射/行列表保持为空。
func Merge(extractions map[models.DocumentType]*models.DocumentExtraction) *models.ExtractedRecord {
	record := models.NewExtractedRecord()

	for _, docType := range models.ProcessingOrder {
		ext := extractions[docType]
		if ext == nil {
			continue
		}

		for name, value := range ext.Fields {
			setScalar(record, name, value)
		}

		mergeMap(record.Specifications, ext.Specifications)
		mergeMap(record.SafetyData, ext.SafetyData)
		mergeMap(record.PhysicalProperties, ext.PhysicalProperties)

		record.TestResults = append(record.TestResults, ext.TestResults...)
	}

	return record
}

func setScalar(record *models.ExtractedRecord, name, value string) {
	if value == "" {
		return
	}

	switch name {
	case models.FieldProductName:
		record.ProductName = value
	case models.FieldSupplierName:
		record.SupplierName = value
	case models.FieldCASNumber:
		record.CASNumber = value
	case models.FieldINCIName:
		record.INCIName = value
	case models.FieldMolecularFormula:
		record.MolecularFormula = value
	case models.FieldBatchNumber:
		record.BatchNumber = value
	case models.FieldManufacturingDate:
		record.ManufacturingDate = value
	case models.FieldExpiryDate:
		record.ExpiryDate = value
	default:
		// 未知标量名归入物理性质，不丢弃
		record.PhysicalProperties[name] = value
	}
}

func mergeMap(dst map[string]string, src map[string]string) {
	for k, v := range src {
		if v == "" {
			continue
		}
		dst[k] = v
	}
}
