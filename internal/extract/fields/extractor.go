package fields

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

var casShape = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)

// Extractor 对整份文档文本按字段级联提取标量值。
// 提取对文本只读，重复执行结果一致。
type Extractor struct {
	cascades map[models.DocumentType][]fieldCascade
	logger   logger.Logger
}

func NewExtractor(log logger.Logger) (*Extractor, error) {
	cascades, err := loadCascades()
	if err != nil {
		return nil, fmt.Errorf("failed to load field cascades: %w", err)
	}
	return &Extractor{
		cascades: cascades,
		logger:   log,
	}, nil
}

// Result 按归属段分组的字段值
type Result struct {
	Scalars  map[string]string
	Safety   map[string]string
	Physical map[string]string
}

// Extract 对每个字段按优先级尝试模式，第一个匹配且通过有效性检查的值胜出，
// 其余模式跳过。整个级联无匹配则字段缺席，不是错误。
func (e *Extractor) Extract(docType models.DocumentType, text string) Result {
	result := Result{
		Scalars:  make(map[string]string),
		Safety:   make(map[string]string),
		Physical: make(map[string]string),
	}

	for _, fc := range e.cascades[docType] {
		value, ok := e.extractField(fc, text)
		if !ok {
			continue
		}

		switch fc.section {
		case SectionSafety:
			result.Safety[fc.name] = value
		case SectionPhysical:
			result.Physical[fc.name] = value
		default:
			result.Scalars[fc.name] = value
		}
	}

	return result
}

func (e *Extractor) extractField(fc fieldCascade, text string) (string, bool) {
	for _, re := range fc.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil || len(m) < 2 {
			continue
		}

		value := strings.TrimSpace(m[1])
		if !fc.valid(value) {
			continue
		}
		return value, true
	}
	return "", false
}

func (fc fieldCascade) valid(value string) bool {
	if value == "" {
		return false
	}

	minLen := fc.minLength
	if minLen == 0 {
		minLen = 1
	}
	if len([]rune(value)) < minLen {
		return false
	}

	if fc.requireDigit && !containsDigit(value) {
		return false
	}

	if fc.shape == "cas" && !casShape.MatchString(value) {
		return false
	}

	return true
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
