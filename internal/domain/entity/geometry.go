package entity

// GeometryResult производная геометрия полного кадра.
// Считается только когда найдены все четыре маркера.
type GeometryResult struct {
	OuterRatio   float64 // соотношение сторон по внешним углам (длинная/короткая, >= 1)
	InnerRatio   float64 // соотношение сторон по внутренним углам
	AverageRatio float64 // среднее двух соотношений
	Center       Point   // пересечение диагоналей между центрами противоположных маркеров
	Centroid     Point   // простое среднее центров маркеров (контрольная величина)
}
