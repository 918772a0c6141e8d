package fields

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/chemlabel/chemdoc-processor/internal/models"
)

// 级联模式是数据而非代码：新增语言或供应商模板只需改 YAML。
//
//go:embed cascades.yaml
var cascadeData []byte

// 字段值的归属段
type Section string

const (
	SectionScalar   Section = "scalar"
	SectionSafety   Section = "safety"
	SectionPhysical Section = "physical"
)

type cascadeSpec struct {
	Name         string   `yaml:"name"`
	Section      Section  `yaml:"section"`
	MinLength    int      `yaml:"min_length"`
	RequireDigit bool     `yaml:"require_digit"`
	Shape        string   `yaml:"shape"`
	Patterns     []string `yaml:"patterns"`
}

// fieldCascade 单个字段的已编译模式级联
type fieldCascade struct {
	name         string
	section      Section
	minLength    int
	requireDigit bool
	shape        string
	patterns     []*regexp.Regexp
}

func loadCascades() (map[models.DocumentType][]fieldCascade, error) {
	var raw map[string][]cascadeSpec
	if err := yaml.Unmarshal(cascadeData, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cascade data: %w", err)
	}

	cascades := make(map[models.DocumentType][]fieldCascade, len(raw))
	for key, specs := range raw {
		docType, err := models.ParseDocumentType(key)
		if err != nil {
			return nil, fmt.Errorf("bad cascade document type: %w", err)
		}

		compiled := make([]fieldCascade, 0, len(specs))
		for _, spec := range specs {
			if spec.Name == "" || len(spec.Patterns) == 0 {
				return nil, fmt.Errorf("cascade for %s has field with missing name or patterns", key)
			}

			fc := fieldCascade{
				name:         spec.Name,
				section:      spec.Section,
				minLength:    spec.MinLength,
				requireDigit: spec.RequireDigit,
				shape:        spec.Shape,
			}
			if fc.section == "" {
				fc.section = SectionScalar
			}

			for _, p := range spec.Patterns {
				re, err := regexp.Compile(p)
				if err != nil {
					return nil, fmt.Errorf("bad pattern for field %s: %w", spec.Name, err)
				}
				fc.patterns = append(fc.patterns, re)
			}
			compiled = append(compiled, fc)
		}
		cascades[docType] = compiled
	}

	return cascades, nil
}
