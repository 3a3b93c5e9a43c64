package entity

// Dictionary тип словаря маркеров.
type Dictionary string

const (
	Dict4x4_50  Dictionary = "4x4_50"
	Dict4x4_100 Dictionary = "4x4_100"
	Dict4x4_250 Dictionary = "4x4_250"
	Dict5x5_50  Dictionary = "5x5_50"
)

// DetectionParams параметры одной попытки детекции.
type DetectionParams struct {
	Dictionary                  Dictionary // словарь маркеров
	AdaptiveThreshWinSize       int        // окно адаптивной бинаризации
	AdaptiveThreshConstant      float64    // константа адаптивной бинаризации
	MinMarkerPerimeterRate      float64    // минимальный периметр маркера (доля периметра кадра)
	PolygonalApproxAccuracyRate float64    // точность полигональной аппроксимации
	MinCornerDistanceRate       float64    // минимальное расстояние между углами
	MinMarkerDistanceRate       float64    // минимальное расстояние между маркерами
}

// DefaultDetectionParams возвращает базовые параметры детекции.
func DefaultDetectionParams() DetectionParams {
	return DetectionParams{
		Dictionary:                  Dict4x4_50,
		AdaptiveThreshWinSize:       23,
		AdaptiveThreshConstant:      7,
		MinMarkerPerimeterRate:      0.03,
		PolygonalApproxAccuracyRate: 0.05,
		MinCornerDistanceRate:       0.05,
		MinMarkerDistanceRate:       0.05,
	}
}
