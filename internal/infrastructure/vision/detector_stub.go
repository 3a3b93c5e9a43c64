//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
)

// ArucoDetector заглушка детектора (сборка без OpenCV).
type ArucoDetector struct{}

// NewArucoDetector создаёт детектор-заглушку (без OpenCV).
func NewArucoDetector() *ArucoDetector {
	return &ArucoDetector{}
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *ArucoDetector) Detect(ctx context.Context, imageData []byte, params entity.DetectionParams) (*port.DetectionResult, error) {
	_ = ctx
	_ = imageData
	_ = params
	return nil, errors.New("gocv build tag is not enabled")
}

// Проверка реализации интерфейса
var _ port.MarkerDetector = (*ArucoDetector)(nil)
