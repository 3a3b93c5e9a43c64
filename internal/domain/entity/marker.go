package entity

import "math"

// ExpectedMarkers — число маркеров прямоугольной раскладки.
const ExpectedMarkers = 4

// MarkerRole фиксированная логическая роль маркера в прямоугольнике.
// Роль привязана к id маркера конфигурацией, а не выводится по кадру.
type MarkerRole int

const (
	RoleTopLeft     MarkerRole = 0 // id0 — левый верхний угол
	RoleTopRight    MarkerRole = 1 // id1 — правый верхний угол
	RoleBottomRight MarkerRole = 2 // id2 — правый нижний угол
	RoleBottomLeft  MarkerRole = 3 // id3 — левый нижний угол
)

// String возвращает читаемое имя роли.
func (r MarkerRole) String() string {
	switch r {
	case RoleTopLeft:
		return "top_left"
	case RoleTopRight:
		return "top_right"
	case RoleBottomRight:
		return "bottom_right"
	case RoleBottomLeft:
		return "bottom_left"
	}
	return "unknown"
}

// Point точка в пиксельных координатах.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist возвращает евклидово расстояние до другой точки.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// CornerSet четыре угла маркера в фиксированном порядке обхода.
// Порядок одинаков для всех маркеров: угол 0 означает один и тот же
// геометрический угол каждого маркера.
type CornerSet [4]Point

// Center возвращает среднее четырёх углов.
func (c CornerSet) Center() Point {
	var sx, sy float64
	for _, p := range c {
		sx += p.X
		sy += p.Y
	}
	return Point{X: sx / 4, Y: sy / 4}
}

// Angle возвращает ориентацию в градусах: угол вектора от угла 0 к углу 1.
func (c CornerSet) Angle() float64 {
	dx := c[1].X - c[0].X
	dy := c[1].Y - c[0].Y
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// Area возвращает площадь четырёхугольника по формуле шнуровки.
func (c CornerSet) Area() float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(sum) / 2
}
