package ocrfallback

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
)

// 灰度处理器
type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// 中值滤波处理器，抑制扫描噪点
type MedianBlurProcessor struct {
	kernelSize int
}

func NewMedianBlurProcessor(kernelSize int) *MedianBlurProcessor {
	if kernelSize%2 == 0 {
		kernelSize++
	}
	return &MedianBlurProcessor{kernelSize: kernelSize}
}

func (p *MedianBlurProcessor) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	grayImg := imaging.Grayscale(img)
	bounds := grayImg.Bounds()
	result := image.NewGray(bounds)

	half := p.kernelSize / 2
	window := make([]uint8, 0, p.kernelSize*p.kernelSize)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			window = window[:0]
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					nx, ny := x+dx, y+dy
					if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
						continue
					}
					g := color.GrayModel.Convert(grayImg.At(nx, ny)).(color.Gray)
					window = append(window, g.Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			result.SetGray(x, y, color.Gray{Y: window[len(window)/2]})
		}
	}

	return result, nil
}
