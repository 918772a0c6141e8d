package ocrfallback

import (
	"context"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

// TesseractRecognizer 基于 gosseract 的双语识别。文档中英文交错出现,
// 语言模型需要同时覆盖 eng 与 chi_sim。
type TesseractRecognizer struct {
	languages []string
	logger    logger.Logger

	availOnce sync.Once
	available bool
}

func NewTesseractRecognizer(languages []string, log logger.Logger) *TesseractRecognizer {
	if len(languages) == 0 {
		languages = []string{"eng", "chi_sim"}
	}
	return &TesseractRecognizer{
		languages: languages,
		logger:    log,
	}
}

// Available 检查请求的语言包是否已安装，结果只探测一次
func (t *TesseractRecognizer) Available() bool {
	t.availOnce.Do(func() {
		client := gosseract.NewClient()
		defer client.Close()

		installed, err := client.GetAvailableLanguages()
		if err != nil {
			t.logger.Warn("Tesseract language probe failed", logger.Error(err))
			return
		}

		have := make(map[string]bool, len(installed))
		for _, lang := range installed {
			have[lang] = true
		}
		for _, lang := range t.languages {
			if !have[lang] {
				t.logger.Warn("Tesseract language not installed",
					logger.String("language", lang),
				)
				return
			}
		}
		t.available = true
	})
	return t.available
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, imageData []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// 每次识别创建新客户端，gosseract 客户端不是并发安全的
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Join(t.languages, "+")); err != nil {
		return "", err
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", err
	}

	text, err := client.Text()
	if err != nil {
		return "", err
	}

	return text, nil
}
