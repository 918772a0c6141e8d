package ocrfallback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemlabel/chemdoc-processor/internal/models"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

type fakeRasterizer struct {
	images [][]byte
}

func (f *fakeRasterizer) Available() bool { return true }

func (f *fakeRasterizer) Rasterize(_ context.Context, _ []byte, _ int) ([][]byte, error) {
	return f.images, nil
}

// hangingRecognizer 无视取消信号的识别器，模拟挂死的底层调用
type hangingRecognizer struct {
	hangOn string
}

func (f *hangingRecognizer) Available() bool { return true }

func (f *hangingRecognizer) Recognize(_ context.Context, imageData []byte) (string, error) {
	if string(imageData) == f.hangOn {
		time.Sleep(5 * time.Second)
	}
	return "recognized page text", nil
}

func TestRecognizeTimedOutPageYieldsEmptyText(t *testing.T) {
	raster := &fakeRasterizer{images: [][]byte{[]byte("page-1")}}
	recognizer := &hangingRecognizer{hangOn: "page-1"}

	engine := NewEngine(raster, recognizer, &Config{
		DPI:         300,
		MaxWorkers:  1,
		PageTimeout: 50 * time.Millisecond,
	}, logger.NewTestLogger())

	start := time.Now()
	pages, err := engine.Recognize(context.Background(), []byte("pdf"))
	require.NoError(t, err)

	// 挂住的页在超时后放弃，不会阻塞到识别调用返回
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, pages, 1)
	assert.Equal(t, "", pages[0].Text)
	assert.Equal(t, models.SourceOCR, pages[0].Source)
}

func TestRecognizeHealthyPagesUnaffectedByTimeout(t *testing.T) {
	raster := &fakeRasterizer{images: [][]byte{[]byte("page-1"), []byte("page-2")}}
	recognizer := &hangingRecognizer{hangOn: "page-1"}

	// 串行识别：第 1 页挂死超时，第 2 页正常
	engine := NewEngine(raster, recognizer, &Config{
		DPI:         300,
		MaxWorkers:  1,
		PageTimeout: 50 * time.Millisecond,
	}, logger.NewTestLogger())

	pages, err := engine.Recognize(context.Background(), []byte("pdf"))
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, "", pages[0].Text)
	assert.Equal(t, "recognized page text", pages[1].Text)
}

func TestRecognizeUnavailableEngine(t *testing.T) {
	engine := NewEngine(nil, nil, DefaultConfig(), logger.NewTestLogger())

	_, err := engine.Recognize(context.Background(), []byte("pdf"))

	assert.ErrorIs(t, err, ErrUnavailable)
}
