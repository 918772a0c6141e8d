package config

import (
	"os"
	"os/exec"
	"strings"
	"sync"
)

var (
	ocrOnce   sync.Once
	ocrConfig *OCRConfig
)

// OCRConfig 启动时解析一次的光学识别能力标志。
// 通过显式传入引擎而非环境探测，便于测试注入。
type OCRConfig struct {
	// pdftoppm 的绝对路径，找不到时为空串，光栅化能力缺失
	PdftoppmPath string
	Languages    []string
	DPI          int
	// tesseract 或 textract
	Backend string
}

func GetOCRConfig() *OCRConfig {
	ocrOnce.Do(func() {
		loadEnv()

		binPath, err := exec.LookPath("pdftoppm")
		if err != nil {
			binPath = ""
		}

		languages := []string{"eng", "chi_sim"}
		if env := os.Getenv("OCR_LANGUAGES"); env != "" {
			languages = strings.Split(env, ",")
		}

		backend := os.Getenv("OCR_BACKEND")
		if backend == "" {
			backend = "tesseract"
		}

		ocrConfig = &OCRConfig{
			PdftoppmPath: binPath,
			Languages:    languages,
			DPI:          300,
			Backend:      backend,
		}
	})
	return ocrConfig
}
