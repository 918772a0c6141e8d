package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/chemlabel/chemdoc-processor/internal/extract/ocrfallback"
	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

// ErrAcquisitionFailed 原生文本与光学识别都未能产出任何文本，批次级致命错误
var ErrAcquisitionFailed = errors.New("could not acquire any text for document")

const (
	// 单页裁剪后超过该字符数才算"有文字"的页
	minTextualPageChars = 10
	// 原生文本总量低于该值时触发光学回退
	minNativeChars = 200
	// 有文字页占比低于该值时触发光学回退
	textualPageRatio = 0.5

	maxNativeWorkers = 4
)

// OCREngine 光学识别回退能力
type OCREngine interface {
	Available() bool
	Recognize(ctx context.Context, pdfData []byte) ([]models.RawPage, error)
}

// Acquirer 为一份文档产出尽力而为的文本表示。原生文本层不足时
// 调用 OCR 引擎，并在整份文档粒度上二选一。
type Acquirer struct {
	ocr    OCREngine
	logger logger.Logger

	// 可注入以便测试判定逻辑
	extractNative func(ctx context.Context, pdfData []byte) ([]models.RawPage, error)
}

func NewAcquirer(ocr OCREngine, log logger.Logger) *Acquirer {
	a := &Acquirer{
		ocr:    ocr,
		logger: log,
	}
	a.extractNative = a.extractNativePages
	return a
}

// Acquire 返回一份文档的 DocumentText。失败语义:
// 原生提取失败且 OCR 不可用 → ErrAcquisitionFailed;
// OCR 可用时即便原生失败也会尝试回退。
func (a *Acquirer) Acquire(ctx context.Context, docType models.DocumentType, pdfData []byte) (*models.DocumentText, error) {
	nativePages, nativeErr := a.extractNative(ctx, pdfData)
	if nativeErr != nil {
		a.logger.Warn("Native text extraction failed",
			logger.String("documentType", string(docType)),
			logger.Error(nativeErr),
		)
		if !a.ocr.Available() {
			return nil, fmt.Errorf("%w: %s: native extraction failed and OCR unavailable: %v",
				ErrAcquisitionFailed, docType, nativeErr)
		}
		nativePages = nil
	}

	pages := nativePages
	if nativeErr != nil || needsOCR(nativePages) {
		ocrPages, err := a.ocr.Recognize(ctx, pdfData)
		switch {
		case errors.Is(err, ocrfallback.ErrUnavailable):
			a.logger.Info("OCR not attempted, engine unavailable",
				logger.String("documentType", string(docType)),
			)
		case err != nil:
			a.logger.Warn("OCR fallback failed, keeping native text",
				logger.String("documentType", string(docType)),
				logger.Error(err),
			)
		default:
			// 整份文档二选一：保留字符总量更大的结果
			if totalChars(ocrPages) > totalChars(nativePages) {
				a.logger.Info("Using OCR text over native layer",
					logger.String("documentType", string(docType)),
					logger.Int("nativeChars", totalChars(nativePages)),
					logger.Int("ocrChars", totalChars(ocrPages)),
				)
				pages = ocrPages
			}
		}
	}

	if totalChars(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAcquisitionFailed, docType)
	}

	return &models.DocumentText{
		Pages:    pages,
		FullText: joinPages(pages),
	}, nil
}

func (a *Acquirer) extractNativePages(ctx context.Context, pdfData []byte) ([]models.RawPage, error) {
	reader := bytes.NewReader(pdfData)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]models.RawPage, numPages)

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxNativeWorkers)

	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			var text string
			page := pdfReader.Page(pageNum)
			if !page.V.IsNull() {
				t, err := page.GetPlainText(nil)
				if err != nil {
					// 单页失败按无文字处理，留给回退判定
					a.logger.Warn("Failed to get native text for page",
						logger.Int("page", pageNum),
						logger.Error(err),
					)
				} else {
					text = t
				}
			}

			pages[pageNum-1] = models.RawPage{
				Index:  pageNum - 1,
				Text:   text,
				Source: models.SourceNative,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pages, nil
}

// needsOCR 判定原生文本层是否不足:
// 有文字页占比 < 0.5 或总字符数 < 200
func needsOCR(pages []models.RawPage) bool {
	if len(pages) == 0 {
		return true
	}

	textual := 0
	total := 0
	for _, p := range pages {
		n := len(strings.TrimSpace(p.Text))
		total += n
		if n > minTextualPageChars {
			textual++
		}
	}

	ratio := float64(textual) / float64(len(pages))
	return ratio < textualPageRatio || total < minNativeChars
}

func totalChars(pages []models.RawPage) int {
	total := 0
	for _, p := range pages {
		total += len(strings.TrimSpace(p.Text))
	}
	return total
}

func joinPages(pages []models.RawPage) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(models.PageMarker(p.Index))
		b.WriteString("\n")
		b.WriteString(p.Text)
		if !strings.HasSuffix(p.Text, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}
