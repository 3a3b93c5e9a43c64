//go:build !gocv
// +build !gocv

package vision

import (
	"errors"

	"aruco-tracker/internal/domain/port"
)

// ClaheEnhancer заглушка усилителя контраста (сборка без OpenCV).
type ClaheEnhancer struct{}

// NewClaheEnhancer создаёт заглушку усилителя контраста.
func NewClaheEnhancer() *ClaheEnhancer {
	return &ClaheEnhancer{}
}

// Enhance возвращает ошибку, если сборка без тега gocv.
func (e *ClaheEnhancer) Enhance(imageData []byte, level int) ([]byte, error) {
	_ = imageData
	_ = level
	return nil, errors.New("gocv build tag is not enabled")
}

// Проверка реализации интерфейса
var _ port.ContrastEnhancer = (*ClaheEnhancer)(nil)
