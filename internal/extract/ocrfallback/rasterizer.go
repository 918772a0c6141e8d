package ocrfallback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

// PopplerRasterizer 通过 pdftoppm 把 PDF 页面渲染为 PNG。
// 二进制缺失时 Available 返回 false，引擎据此报告不可用。
type PopplerRasterizer struct {
	binPath string
	logger  logger.Logger
}

func NewPopplerRasterizer(binPath string, log logger.Logger) *PopplerRasterizer {
	return &PopplerRasterizer{
		binPath: binPath,
		logger:  log,
	}
}

func (r *PopplerRasterizer) Available() bool {
	return r.binPath != ""
}

func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdfData []byte, dpi int) ([][]byte, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}

	tmpDir, err := os.MkdirTemp("", "chemdoc-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("Failed to remove temp dir",
				logger.String("dir", tmpDir),
				logger.Error(err),
			)
		}
	}()

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	cmd := exec.CommandContext(ctx, r.binPath, "-r", fmt.Sprintf("%d", dpi), "-png", pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, string(out))
	}

	// generated as prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	images := make([][]byte, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page %s: %w", path, err)
		}
		images = append(images, data)
	}

	return images, nil
}
