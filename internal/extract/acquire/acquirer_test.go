package acquire

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemlabel/chemdoc-processor/internal/extract/ocrfallback"
	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

type fakeOCR struct {
	available bool
	pages     []models.RawPage
	err       error
	calls     int
}

func (f *fakeOCR) Available() bool { return f.available }

func (f *fakeOCR) Recognize(_ context.Context, _ []byte) ([]models.RawPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func nativePages(texts ...string) []models.RawPage {
	pages := make([]models.RawPage, len(texts))
	for i, text := range texts {
		pages[i] = models.RawPage{Index: i, Text: text, Source: models.SourceNative}
	}
	return pages
}

func ocrPages(texts ...string) []models.RawPage {
	pages := make([]models.RawPage, len(texts))
	for i, text := range texts {
		pages[i] = models.RawPage{Index: i, Text: text, Source: models.SourceOCR}
	}
	return pages
}

func newTestAcquirer(ocr OCREngine, pages []models.RawPage, nativeErr error) *Acquirer {
	a := NewAcquirer(ocr, logger.NewTestLogger())
	a.extractNative = func(_ context.Context, _ []byte) ([]models.RawPage, error) {
		return pages, nativeErr
	}
	return a
}

func TestAcquireSufficientNativeSkipsOCR(t *testing.T) {
	long := strings.Repeat("native text line ", 10)

	// 10 页中 6 页有文字，占比 0.6，总量充足
	texts := make([]string, 10)
	for i := 0; i < 6; i++ {
		texts[i] = long
	}
	ocr := &fakeOCR{available: true, pages: ocrPages("should not be used")}
	a := newTestAcquirer(ocr, nativePages(texts...), nil)

	doc, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))
	require.NoError(t, err)

	assert.Zero(t, ocr.calls)
	assert.Equal(t, models.SourceNative, doc.Pages[0].Source)
}

func TestAcquireLowTextualRatioTriggersOCR(t *testing.T) {
	long := strings.Repeat("native text line ", 20)

	// 10 页中 4 页有文字，占比 0.4 < 0.5，即便总量充足也回退
	texts := make([]string, 10)
	for i := 0; i < 4; i++ {
		texts[i] = long
	}

	ocrText := strings.Repeat("recognized text ", 100)
	ocr := &fakeOCR{available: true, pages: ocrPages(ocrText)}
	a := newTestAcquirer(ocr, nativePages(texts...), nil)

	doc, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, models.SourceOCR, doc.Pages[0].Source)
}

func TestAcquireLowTotalCharsTriggersOCR(t *testing.T) {
	// 全部页都"有文字"，但总量不足 200 字符
	ocr := &fakeOCR{available: true, pages: ocrPages(strings.Repeat("recognized ", 50))}
	a := newTestAcquirer(ocr, nativePages("just a short page"), nil)

	doc, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, models.SourceOCR, doc.Pages[0].Source)
}

func TestAcquireKeepsNativeWhenOCRYieldsLess(t *testing.T) {
	native := strings.Repeat("native ", 20) // 不足 200，触发回退

	ocr := &fakeOCR{available: true, pages: ocrPages("tiny")}
	a := newTestAcquirer(ocr, nativePages(native), nil)

	doc, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, models.SourceNative, doc.Pages[0].Source)
}

func TestAcquireNativeFailureWithoutOCRIsFatal(t *testing.T) {
	ocr := &fakeOCR{available: false}
	a := newTestAcquirer(ocr, nil, errors.New("corrupt pdf"))

	_, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquisitionFailed)
	assert.Zero(t, ocr.calls)
}

func TestAcquireNativeFailureRecoveredByOCR(t *testing.T) {
	ocr := &fakeOCR{available: true, pages: ocrPages("recognized page text")}
	a := newTestAcquirer(ocr, nil, errors.New("corrupt pdf"))

	doc, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, models.SourceOCR, doc.Pages[0].Source)
}

func TestAcquireOCRUnavailableKeepsNative(t *testing.T) {
	ocr := &fakeOCR{available: true, err: ocrfallback.ErrUnavailable}
	a := newTestAcquirer(ocr, nativePages("short native text"), nil)

	doc, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceNative, doc.Pages[0].Source)
}

func TestAcquireNoTextAnywhere(t *testing.T) {
	ocr := &fakeOCR{available: true, pages: ocrPages("", "")}
	a := newTestAcquirer(ocr, nativePages("", ""), nil)

	_, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))

	assert.ErrorIs(t, err, ErrAcquisitionFailed)
}

func TestAcquireFullTextHasPageMarkers(t *testing.T) {
	long := strings.Repeat("page content ", 20)
	ocr := &fakeOCR{available: false}
	a := newTestAcquirer(ocr, nativePages(long, long), nil)

	doc, err := a.Acquire(context.Background(), models.DocTypeCOA, []byte("pdf"))
	require.NoError(t, err)

	assert.Contains(t, doc.FullText, "--- PAGE 1 ---")
	assert.Contains(t, doc.FullText, "--- PAGE 2 ---")
}
