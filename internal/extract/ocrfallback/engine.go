package ocrfallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

// ErrUnavailable 光学识别能力缺失时返回，调用方按"未尝试 OCR"处理
var ErrUnavailable = errors.New("optical recognition unavailable")

// Rasterizer renders PDF pages to raster images.
type Rasterizer interface {
	Available() bool
	Rasterize(ctx context.Context, pdfData []byte, dpi int) ([][]byte, error)
}

// Recognizer extracts text from a single page image.
type Recognizer interface {
	Available() bool
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// ImagePreprocessor 图像预处理接口
type ImagePreprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// Config 引擎配置
type Config struct {
	DPI         int
	MaxWorkers  int
	PageTimeout time.Duration
	Preprocess  bool
}

// DefaultConfig 默认 300 DPI，页级并发 4，单页超时 60 秒
func DefaultConfig() *Config {
	return &Config{
		DPI:         300,
		MaxWorkers:  4,
		PageTimeout: 60 * time.Second,
		Preprocess:  true,
	}
}

// Engine 光栅化 + 双语识别的 OCR 回退引擎
type Engine struct {
	raster        Rasterizer
	recognizer    Recognizer
	preprocessors []ImagePreprocessor
	config        *Config
	logger        logger.Logger
}

func NewEngine(raster Rasterizer, recognizer Recognizer, cfg *Config, log logger.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var preprocessors []ImagePreprocessor
	if cfg.Preprocess {
		preprocessors = []ImagePreprocessor{
			NewGrayscaleProcessor(),
			NewMedianBlurProcessor(3),
		}
	}

	return &Engine{
		raster:        raster,
		recognizer:    recognizer,
		preprocessors: preprocessors,
		config:        cfg,
		logger:        log,
	}
}

// Available 报告光栅化与识别能力是否都就绪
func (e *Engine) Available() bool {
	return e.raster != nil && e.raster.Available() &&
		e.recognizer != nil && e.recognizer.Available()
}

// Recognize 将整份 PDF 光栅化并逐页识别。单页超时或识别失败时该页为空串,
// 不阻塞整批。能力缺失返回 ErrUnavailable 而不是抛错。
func (e *Engine) Recognize(ctx context.Context, pdfData []byte) ([]models.RawPage, error) {
	if !e.Available() {
		return nil, ErrUnavailable
	}

	images, err := e.raster.Rasterize(ctx, pdfData, e.config.DPI)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize document: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("rasterizer produced no pages")
	}

	pages := make([]models.RawPage, len(images))

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.config.MaxWorkers)

	for i, imgData := range images {
		i, imgData := i, imgData
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			pageCtx, cancel := context.WithTimeout(ctx, e.config.PageTimeout)
			defer cancel()

			// 识别器底层是阻塞的 CGO 调用，未必响应取消。超时在这里
			// 兜底：到期即放弃该页，挂住的识别不拖垮整批。
			type pageResult struct {
				text string
				err  error
			}
			resultCh := make(chan pageResult, 1)
			go func() {
				text, err := e.recognizePage(pageCtx, imgData)
				resultCh <- pageResult{text: text, err: err}
			}()

			var text string
			select {
			case res := <-resultCh:
				text = res.text
				if res.err != nil {
					e.logger.Warn("Page recognition failed, keeping empty text",
						logger.Int("page", i+1),
						logger.Error(res.err),
					)
					text = ""
				}
			case <-pageCtx.Done():
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warn("Page recognition timed out, keeping empty text",
					logger.Int("page", i+1),
					logger.Duration("timeout", e.config.PageTimeout),
				)
				text = ""
			}

			pages[i] = models.RawPage{
				Index:  i,
				Text:   text,
				Source: models.SourceOCR,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pages, nil
}

func (e *Engine) recognizePage(ctx context.Context, imageData []byte) (string, error) {
	data := imageData

	if len(e.preprocessors) > 0 {
		img, _, err := image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return "", fmt.Errorf("failed to decode page image: %w", err)
		}

		for _, p := range e.preprocessors {
			img, err = p.Process(img)
			if err != nil {
				return "", fmt.Errorf("preprocessing failed: %w", err)
			}
		}

		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 100}); err != nil {
			return "", fmt.Errorf("failed to encode preprocessed image: %w", err)
		}
		data = buf.Bytes()
	}

	return e.recognizer.Recognize(ctx, data)
}
