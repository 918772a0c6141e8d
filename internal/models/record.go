package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType 供应商文档类型
type DocumentType string

const (
	DocTypeCOA  DocumentType = "COA"
	DocTypeMSDS DocumentType = "MSDS"
	DocTypeTDS  DocumentType = "TDS"
)

// ProcessingOrder is the fixed merge precedence: a later document's
// non-empty value overwrites an earlier one.
var ProcessingOrder = []DocumentType{DocTypeCOA, DocTypeMSDS, DocTypeTDS}

// ParseDocumentType maps the upload form keys (coa/msds/tds) to a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coa":
		return DocTypeCOA, nil
	case "msds":
		return DocTypeMSDS, nil
	case "tds":
		return DocTypeTDS, nil
	default:
		return "", fmt.Errorf("unknown document type: %q", s)
	}
}

// PageSource 页面文本来源
type PageSource string

const (
	SourceNative PageSource = "native"
	SourceOCR    PageSource = "ocr"
)

// RawPage 单页文本，采集后不可变
type RawPage struct {
	Index  int        `json:"index"`
	Text   string     `json:"text"`
	Source PageSource `json:"source"`
}

// DocumentText 一份文档的全部页面文本
type DocumentText struct {
	Pages    []RawPage `json:"pages"`
	FullText string    `json:"fullText"`
}

// TestResultRow 检测结果表格行
type TestResultRow struct {
	TestItem      string       `json:"test_item"`
	Specification string       `json:"specification"`
	Result        string       `json:"result"`
	DocumentType  DocumentType `json:"document_type"`
}

// DocumentExtraction 单份文档的部分提取结果
type DocumentExtraction struct {
	DocumentType       DocumentType      `json:"documentType"`
	Fields             map[string]string `json:"fields"`
	TestResults        []TestResultRow   `json:"testResults"`
	Specifications     map[string]string `json:"specifications"`
	SafetyData         map[string]string `json:"safetyData"`
	PhysicalProperties map[string]string `json:"physicalProperties"`
}

// NewDocumentExtraction 初始化空的部分提取结果
func NewDocumentExtraction(docType DocumentType) *DocumentExtraction {
	return &DocumentExtraction{
		DocumentType:       docType,
		Fields:             make(map[string]string),
		TestResults:        make([]TestResultRow, 0),
		Specifications:     make(map[string]string),
		SafetyData:         make(map[string]string),
		PhysicalProperties: make(map[string]string),
	}
}

// ExtractedRecord 合并后的规范记录，是与存储、渲染和校验协作方交换的唯一结构。
// 三个嵌套映射始终存在，允许为空但不允许缺失。
type ExtractedRecord struct {
	ProductName        string            `json:"product_name"`
	SupplierName       string            `json:"supplier_name"`
	CASNumber          string            `json:"cas_number"`
	INCIName           string            `json:"inci_name"`
	MolecularFormula   string            `json:"molecular_formula"`
	BatchNumber        string            `json:"batch_number"`
	ManufacturingDate  string            `json:"manufacturing_date"`
	ExpiryDate         string            `json:"expiry_date"`
	TestResults        []TestResultRow   `json:"test_results"`
	Specifications     map[string]string `json:"specifications"`
	SafetyData         map[string]string `json:"safety_data"`
	PhysicalProperties map[string]string `json:"physical_properties"`
	ValidationNotes    string            `json:"validation_notes,omitempty"`
}

// NewExtractedRecord 初始化记录，保证嵌套映射非 nil
func NewExtractedRecord() *ExtractedRecord {
	return &ExtractedRecord{
		TestResults:        make([]TestResultRow, 0),
		Specifications:     make(map[string]string),
		SafetyData:         make(map[string]string),
		PhysicalProperties: make(map[string]string),
	}
}

// 顶层标量字段的规范名，与 JSON 契约一致
const (
	FieldProductName       = "product_name"
	FieldSupplierName      = "supplier_name"
	FieldCASNumber         = "cas_number"
	FieldINCIName          = "inci_name"
	FieldMolecularFormula  = "molecular_formula"
	FieldBatchNumber       = "batch_number"
	FieldManufacturingDate = "manufacturing_date"
	FieldExpiryDate        = "expiry_date"
)

// PageMarker 页边界标记，供依赖行位置的表格/字段扫描使用
func PageMarker(index int) string {
	return fmt.Sprintf("--- PAGE %d ---", index+1)
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)

// BatchTask 一次上传批次（三份文档）的处理任务
type BatchTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}
