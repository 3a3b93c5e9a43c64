package app

import (
	"errors"

	"github.com/rs/zerolog"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
)

// ErrGeometryUnavailable возвращается для кадра без полного набора маркеров.
// Частичная геометрия не оценивается: лучше явный отказ, чем
// недостоверное значение в калибровочных расчётах.
var ErrGeometryUnavailable = errors.New("geometry unavailable")

// GeometryService вычисляет производную геометрию прямоугольника маркеров.
type GeometryService struct {
	store port.FrameStore
	log   zerolog.Logger
}

// NewGeometryService создаёт сервис геометрии над хранилищем кадров.
func NewGeometryService(store port.FrameStore, log zerolog.Logger) *GeometryService {
	return &GeometryService{
		store: store,
		log:   log.With().Str("component", "geometry").Logger(),
	}
}

// Analyze возвращает геометрию кадра: соотношения сторон по внешним и
// внутренним углам, их среднее и центр как пересечение диагоналей между
// центрами противоположных маркеров. Для неполного кадра возвращает
// ErrGeometryUnavailable.
func (s *GeometryService) Analyze(frameIndex int) (*entity.GeometryResult, error) {
	record, ok := s.store.Get(frameIndex)
	if !ok {
		return nil, ErrGeometryUnavailable
	}
	if !record.Complete(s.store.ExpectedMarkers()) {
		return nil, ErrGeometryUnavailable
	}

	var obs [4]entity.MarkerObservation
	for id := 0; id < 4; id++ {
		o, found := record.Observation(id)
		if !found {
			return nil, ErrGeometryUnavailable
		}
		obs[id] = o
	}

	outer := rectangleRatio(obs[0].OuterCorner(), obs[1].OuterCorner(), obs[2].OuterCorner(), obs[3].OuterCorner())
	inner := rectangleRatio(obs[0].InnerCorner(), obs[1].InnerCorner(), obs[2].InnerCorner(), obs[3].InnerCorner())

	// Диагонали: id0-id2 и id1-id3.
	center, ok := segmentIntersection(obs[0].Center, obs[2].Center, obs[1].Center, obs[3].Center)
	if !ok {
		s.log.Warn().Int("frame", frameIndex).Msg("diagonals are parallel")
		return nil, ErrGeometryUnavailable
	}

	centroid := meanPoint(obs[0].Center, obs[1].Center, obs[2].Center, obs[3].Center)

	if !insideBounds(center, obs) {
		s.log.Warn().
			Int("frame", frameIndex).
			Float64("x", center.X).
			Float64("y", center.Y).
			Msg("center is outside markers bounding box")
	}

	return &entity.GeometryResult{
		OuterRatio:   outer,
		InnerRatio:   inner,
		AverageRatio: (outer + inner) / 2,
		Center:       center,
		Centroid:     centroid,
	}, nil
}

// rectangleRatio возвращает соотношение длинной и короткой сторон
// четырёхугольника tl-tr-br-bl; горизонтальные и вертикальные стороны
// усредняются попарно, результат всегда >= 1.
func rectangleRatio(tl, tr, br, bl entity.Point) float64 {
	horizontal := (tl.Dist(tr) + bl.Dist(br)) / 2
	vertical := (tl.Dist(bl) + tr.Dist(br)) / 2

	if horizontal == 0 || vertical == 0 {
		return 0
	}
	if horizontal >= vertical {
		return horizontal / vertical
	}
	return vertical / horizontal
}

// segmentIntersection возвращает точку пересечения прямых p1-p2 и p3-p4.
// Для параллельных прямых возвращает false.
func segmentIntersection(p1, p2, p3, p4 entity.Point) (entity.Point, bool) {
	denominator := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if denominator == 0 {
		return entity.Point{}, false
	}

	d12 := p1.X*p2.Y - p1.Y*p2.X
	d34 := p3.X*p4.Y - p3.Y*p4.X

	return entity.Point{
		X: (d12*(p3.X-p4.X) - (p1.X-p2.X)*d34) / denominator,
		Y: (d12*(p3.Y-p4.Y) - (p1.Y-p2.Y)*d34) / denominator,
	}, true
}

func meanPoint(points ...entity.Point) entity.Point {
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return entity.Point{X: sx / n, Y: sy / n}
}

// insideBounds проверяет, что точка лежит в рамке центров маркеров.
func insideBounds(p entity.Point, obs [4]entity.MarkerObservation) bool {
	minX, maxX := obs[0].Center.X, obs[0].Center.X
	minY, maxY := obs[0].Center.Y, obs[0].Center.Y
	for _, o := range obs[1:] {
		if o.Center.X < minX {
			minX = o.Center.X
		}
		if o.Center.X > maxX {
			maxX = o.Center.X
		}
		if o.Center.Y < minY {
			minY = o.Center.Y
		}
		if o.Center.Y > maxY {
			maxY = o.Center.Y
		}
	}
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}
