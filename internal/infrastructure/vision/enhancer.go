//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"aruco-tracker/internal/domain/port"
)

// ClaheEnhancer усилитель локального контраста.
// Уровень 0 возвращает исходное изображение. Более высокие уровни
// сначала линейно поднимают контраст, затем применяют CLAHE поканально:
// лимит отсечения растёт, плитка уменьшается, усиление становится
// локальнее и агрессивнее.
type ClaheEnhancer struct{}

// NewClaheEnhancer создаёт усилитель контраста.
func NewClaheEnhancer() *ClaheEnhancer {
	return &ClaheEnhancer{}
}

// Enhance возвращает вариант изображения для заданного уровня.
func (e *ClaheEnhancer) Enhance(imageData []byte, level int) ([]byte, error) {
	if level <= 0 {
		out := make([]byte, len(imageData))
		copy(out, imageData)
		return out, nil
	}

	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	// Линейное усиление: (f - 128) * (1 + c/100) + 128.
	contrast := level * 20
	if contrast > 100 {
		contrast = 100
	}
	alpha := 1 + float64(contrast)/100
	beta := 128 * (1 - alpha)

	adjusted := gocv.NewMat()
	defer adjusted.Close()
	gocv.ConvertScaleAbs(mat, &adjusted, alpha, beta)

	clipLimit := float64(level)
	if clipLimit < 1 {
		clipLimit = 1
	}
	tile := 8 - level
	if tile < 2 {
		tile = 2
	}

	clahe := gocv.NewCLAHEWithParams(clipLimit, image.Pt(tile, tile))
	defer clahe.Close()

	channels := gocv.Split(adjusted)
	for i := range channels {
		clahe.Apply(channels[i], &channels[i])
	}

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)
	for i := range channels {
		channels[i].Close()
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image variant: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Проверка реализации интерфейса
var _ port.ContrastEnhancer = (*ClaheEnhancer)(nil)
