package tables

import (
	"strings"

	"github.com/chemlabel/chemdoc-processor/internal/models"
)

// headerSignature 识别表格区起始行。每个概念组必须至少有一个变体
// 出现在归一化后的行里。
type headerSignature struct {
	concepts [][]string
}

func (s headerSignature) matches(normalized string) bool {
	for _, variants := range s.concepts {
		found := false
		for _, v := range variants {
			if strings.Contains(normalized, v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var (
	itemVariants   = []string{"test item", "test items", "parameter", "property", "检验项目", "测试项目", "项目"}
	specVariants   = []string{"specification", "specifications", "standard", "规格", "标准", "技术指标"}
	resultVariants = []string{"result", "results", "结果"}
)

// docProfile 每种文档类型的表格识别参数
type docProfile struct {
	signatures []headerSignature
	window     int
	stoplist   []string
	// 没有独立结果列的表：规格同时作为结果
	resultEqualsSpec bool
}

var profiles = map[models.DocumentType]docProfile{
	models.DocTypeCOA: {
		signatures: []headerSignature{
			{concepts: [][]string{itemVariants, specVariants, resultVariants}},
		},
		window: 20,
		stoplist: []string{
			"issued date", "issue date", "page ", "signature", "approved by",
			"tel:", "fax:", "e-mail", "email", "website", "www.",
		},
	},
	models.DocTypeMSDS: {
		signatures: []headerSignature{
			{concepts: [][]string{itemVariants, specVariants, resultVariants}},
			{concepts: [][]string{itemVariants, specVariants}},
		},
		window: 20,
		stoplist: []string{
			"issued date", "issue date", "page ", "signature", "section",
			"tel:", "fax:", "e-mail", "email", "website", "www.",
		},
	},
	models.DocTypeTDS: {
		signatures: []headerSignature{
			{concepts: [][]string{specVariants}},
			{concepts: [][]string{itemVariants}},
		},
		window: 40,
		stoplist: []string{
			"recommended", "use", "package", "storage",
		},
		resultEqualsSpec: true,
	},
}
