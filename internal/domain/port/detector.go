package port

import (
	"context"
	"errors"

	"aruco-tracker/internal/domain/entity"
)

// ErrInvalidImage означает пустое или нечитаемое изображение.
// Такие ошибки всплывают к вызывающему; прочие сбои детектора
// конвейер гасит как «этап ничего не нашёл».
var ErrInvalidImage = errors.New("invalid image")

// MarkerCandidate сырое наблюдение маркера от детектора.
type MarkerCandidate struct {
	ID      int              // идентификатор маркера
	Corners entity.CornerSet // углы маркера в пикселях
}

// DetectionResult итог одного вызова детектора.
type DetectionResult struct {
	ImageWidth  int               // ширина изображения
	ImageHeight int               // высота изображения
	Candidates  []MarkerCandidate // найденные маркеры, без фильтрации
}

// MarkerDetector интерфейс детектора маркеров.
// Детектор детерминирован для одинаковых входов; реализация
// (словарь, движок декодирования) скрыта за интерфейсом.
type MarkerDetector interface {
	// Detect ищет маркеры на изображении с заданными параметрами
	Detect(ctx context.Context, image []byte, params entity.DetectionParams) (*DetectionResult, error)
}
