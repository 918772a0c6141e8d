package tables

import (
	"regexp"
	"strings"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

// 只有项目名而无可解析值的行记为该占位值的规格条目
const placeholderValue = "as specified"

// 行内最小长度，低于此值按噪声跳过
const minRowChars = 3

var (
	tabSplit    = regexp.MustCompile(`\t+`)
	wideSplit   = regexp.MustCompile(`\s{3,}`)
	narrowSplit = regexp.MustCompile(`\s{2,}`)
	comparators = []string{"≥", "≤", "±"}
)

type scanState int

const (
	seekingHeader scanState = iota
	collectingRows
)

// Result 一份文档的表格提取结果
type Result struct {
	Rows           []models.TestResultRow
	Specifications map[string]string
}

// Extractor 逐行扫描自由文本中的表格区。每份文档只识别第一个
// 命中签名的表格区。
type Extractor struct {
	logger logger.Logger
}

func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{logger: log}
}

// Extract 在 SEEKING_HEADER / COLLECTING_ROWS 两态间扫描。
// 没有签名命中时返回空结果，不是错误。
func (e *Extractor) Extract(docType models.DocumentType, text string) Result {
	result := Result{
		Rows:           make([]models.TestResultRow, 0),
		Specifications: make(map[string]string),
	}

	profile, ok := profiles[docType]
	if !ok {
		return result
	}

	lines := strings.Split(text, "\n")
	state := seekingHeader
	remaining := 0

	for _, line := range lines {
		switch state {
		case seekingHeader:
			normalized := strings.ToLower(strings.Join(strings.Fields(line), " "))
			if normalized == "" {
				continue
			}
			for _, sig := range profile.signatures {
				if sig.matches(normalized) {
					state = collectingRows
					remaining = profile.window
					break
				}
			}

		case collectingRows:
			if remaining <= 0 {
				return result
			}
			remaining--

			trimmed := strings.TrimSpace(line)
			if len([]rune(trimmed)) < minRowChars {
				continue
			}
			if matchesStoplist(trimmed, profile.stoplist) {
				continue
			}

			e.collectLine(docType, profile, trimmed, &result)
		}
	}

	return result
}

func (e *Extractor) collectLine(docType models.DocumentType, profile docProfile, line string, result *Result) {
	segments := splitColumns(line)

	switch {
	case len(segments) >= 3:
		result.Rows = append(result.Rows, models.TestResultRow{
			TestItem:      segments[0],
			Specification: segments[1],
			Result:        segments[2],
			DocumentType:  docType,
		})

	case len(segments) == 2:
		result.Specifications[segments[0]] = segments[1]
		if profile.resultEqualsSpec {
			result.Rows = append(result.Rows, models.TestResultRow{
				TestItem:      segments[0],
				Specification: segments[1],
				Result:        segments[1],
				DocumentType:  docType,
			})
		}

	case len(segments) == 1:
		result.Specifications[segments[0]] = placeholderValue
	}
}

// splitColumns 按回退级联切列: 制表符 → 三个以上空白 → 两个以上空白 →
// 比较符号。第一个产出至少两个非空段的方案胜出。
func splitColumns(line string) []string {
	if strings.Contains(line, "\t") {
		if segs := cleanSegments(tabSplit.Split(line, -1)); len(segs) >= 2 {
			return segs
		}
	}

	if segs := cleanSegments(wideSplit.Split(line, -1)); len(segs) >= 2 {
		return segs
	}

	if segs := cleanSegments(narrowSplit.Split(line, -1)); len(segs) >= 2 {
		return segs
	}

	// 名称紧贴"符号+数值"的行，如 "纯度≥99.0%"
	for _, sym := range comparators {
		if idx := strings.Index(line, sym); idx > 0 {
			name := strings.TrimSpace(line[:idx])
			value := strings.TrimSpace(line[idx:])
			if name != "" && value != sym {
				return []string{name, value}
			}
		}
	}

	return []string{strings.TrimSpace(line)}
}

func cleanSegments(raw []string) []string {
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func matchesStoplist(line string, stoplist []string) bool {
	lower := strings.ToLower(line)
	for _, token := range stoplist {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
