package entity

// PointType тип точки, выбираемой для экспорта трека.
type PointType string

const (
	PointCenter PointType = "center"
	PointOuter  PointType = "outer"
	PointInner  PointType = "inner"
)

// FillSource происхождение значения точки трека.
type FillSource string

const (
	FillObserved     FillSource = "observed"     // точка взята из наблюдения
	FillInterpolated FillSource = "interpolated" // восстановлена интерполяцией между кадрами
	FillClamped      FillSource = "clamped"      // прижата к ближайшему наблюдению на границе
)

// TrackPoint значение одной роли в одном кадре.
// Координаты уже в системе потребителя: начало внизу слева, Y растёт вверх.
type TrackPoint struct {
	Frame  int        // номер кадра
	Point  Point      // координата
	Source FillSource // как получено значение
}

// Track непрерывный 4-точечный трек по всем кадрам.
// Для каждой роли длина ряда совпадает с Frames.
type Track struct {
	PointType   PointType                   // какой тип точки экспортирован
	ImageWidth  int                         // ширина кадров
	ImageHeight int                         // высота кадров
	Frames      []int                       // номера кадров по возрастанию
	Points      map[MarkerRole][]TrackPoint // роль -> ряд значений
}
