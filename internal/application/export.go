package app

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
)

// ErrEmptyStore возвращается при экспорте из пустого хранилища.
var ErrEmptyStore = errors.New("no frames in store")

// Порядок точек CornerPin: to1..to4 соответствуют id3, id2, id1, id0.
var cornerPinOrder = []entity.MarkerRole{
	entity.RoleBottomLeft,
	entity.RoleBottomRight,
	entity.RoleTopRight,
	entity.RoleTopLeft,
}

// ExportService строит непрерывный трек по хранилищу кадров и пишет
// его во внешние форматы. Хранилище к этому моменту должно быть
// заполнено полностью: интерполяция требует закрытого набора кадров.
type ExportService struct {
	store port.FrameStore
	log   zerolog.Logger
}

// NewExportService создаёт экспортёр над хранилищем кадров.
func NewExportService(store port.FrameStore, log zerolog.Logger) *ExportService {
	return &ExportService{
		store: store,
		log:   log.With().Str("component", "export").Logger(),
	}
}

// BuildTrack строит по одному значению на кадр для каждой роли.
// Пропуски заполняются линейной интерполяцией между ближайшими кадрами
// с наблюдением; пропуски на границах прижимаются к ближайшему значению.
// Координаты переводятся в систему потребителя: начало внизу слева.
func (s *ExportService) BuildTrack(pointType entity.PointType) (*entity.Track, error) {
	switch pointType {
	case entity.PointCenter, entity.PointOuter, entity.PointInner:
	default:
		return nil, fmt.Errorf("invalid point type: %q", pointType)
	}

	records := s.store.Records()
	if len(records) == 0 {
		return nil, ErrEmptyStore
	}

	width, height := imageDimensions(records)
	if height == 0 {
		return nil, errors.New("image dimensions are unknown")
	}

	frames := make([]int, len(records))
	for i, rec := range records {
		frames[i] = rec.Index
	}

	track := &entity.Track{
		PointType:   pointType,
		ImageWidth:  width,
		ImageHeight: height,
		Frames:      frames,
		Points:      make(map[entity.MarkerRole][]entity.TrackPoint, 4),
	}

	for role := entity.RoleTopLeft; role <= entity.RoleBottomLeft; role++ {
		series, err := buildSeries(records, role, pointType, height)
		if err != nil {
			return nil, err
		}
		track.Points[role] = series
	}

	var interpolated, clamped int
	for _, series := range track.Points {
		for _, tp := range series {
			switch tp.Source {
			case entity.FillInterpolated:
				interpolated++
			case entity.FillClamped:
				clamped++
			}
		}
	}
	s.log.Info().
		Str("point_type", string(pointType)).
		Int("frames", len(frames)).
		Int("interpolated", interpolated).
		Int("clamped", clamped).
		Msg("track built")

	return track, nil
}

// buildSeries строит ряд значений одной роли по всем кадрам.
func buildSeries(records []*entity.FrameRecord, role entity.MarkerRole, pointType entity.PointType, height int) ([]entity.TrackPoint, error) {
	type sample struct {
		pos   int // позиция в records
		point entity.Point
	}

	var samples []sample
	for i, rec := range records {
		obs, ok := rec.Observation(int(role))
		if !ok {
			continue
		}
		samples = append(samples, sample{pos: i, point: exportPoint(obs, pointType)})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("role %s was never observed", role)
	}

	series := make([]entity.TrackPoint, len(records))
	prev, next := -1, 0
	for i, rec := range records {
		for next < len(samples) && samples[next].pos < i {
			prev = next
			next++
		}

		tp := entity.TrackPoint{Frame: rec.Index}
		switch {
		case next < len(samples) && samples[next].pos == i:
			tp.Point = samples[next].point
			tp.Source = entity.FillObserved

		case prev >= 0 && next < len(samples):
			// Интерполяция по номеру кадра, независимо по каждой оси.
			a, b := samples[prev], samples[next]
			fa := records[a.pos].Index
			fb := records[b.pos].Index
			t := float64(rec.Index-fa) / float64(fb-fa)
			tp.Point = entity.Point{
				X: a.point.X + t*(b.point.X-a.point.X),
				Y: a.point.Y + t*(b.point.Y-a.point.Y),
			}
			tp.Source = entity.FillInterpolated

		case next < len(samples):
			// До первого наблюдения: прижимаем, не экстраполируем.
			tp.Point = samples[next].point
			tp.Source = entity.FillClamped

		default:
			tp.Point = samples[prev].point
			tp.Source = entity.FillClamped
		}

		// Переворот Y: у потребителя начало координат внизу слева.
		tp.Point.Y = float64(height) - tp.Point.Y
		series[i] = tp
	}
	return series, nil
}

// exportPoint выбирает точку наблюдения по типу экспорта.
func exportPoint(obs entity.MarkerObservation, pointType entity.PointType) entity.Point {
	switch pointType {
	case entity.PointOuter:
		return obs.OuterCorner()
	case entity.PointInner:
		return obs.InnerCorner()
	default:
		return obs.Center
	}
}

// imageDimensions возвращает размеры из первой записи, где они известны.
func imageDimensions(records []*entity.FrameRecord) (int, int) {
	for _, rec := range records {
		if rec.ImageWidth > 0 && rec.ImageHeight > 0 {
			return rec.ImageWidth, rec.ImageHeight
		}
	}
	return 0, 0
}

// WriteCornerPin пишет трек как узел CornerPin2D.
func (s *ExportService) WriteCornerPin(w io.Writer, track *entity.Track) error {
	if track == nil || len(track.Frames) == 0 {
		return ErrEmptyStore
	}

	var b strings.Builder
	b.WriteString("CornerPin2D {\n")

	for i, role := range cornerPinOrder {
		xs, ys := curveTokens(track.Points[role])
		fmt.Fprintf(&b, " to%d {{curve %s} {curve %s}}\n", i+1, xs, ys)
	}

	fmt.Fprintf(&b, " from1 {0 0}\n")
	fmt.Fprintf(&b, " from2 {%d 0}\n", track.ImageWidth)
	fmt.Fprintf(&b, " from3 {%d %d}\n", track.ImageWidth, track.ImageHeight)
	fmt.Fprintf(&b, " from4 {0 %d}\n", track.ImageHeight)
	b.WriteString(" invert true\n")
	b.WriteString(" name CornerPin2D1\n")
	b.WriteString(" xpos 0\n")
	b.WriteString(" ypos 0\n")
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// curveTokens собирает анимационные кривые X и Y одной роли.
// Первое значение и значение после разрыва нумерации кадров получают
// префикс "x<кадр>", последовательные кадры пишутся голым числом.
func curveTokens(series []entity.TrackPoint) (string, string) {
	var xs, ys []string
	lastFrame := 0
	for i, tp := range series {
		x := formatCoord(tp.Point.X)
		y := formatCoord(tp.Point.Y)
		if i == 0 || tp.Frame != lastFrame+1 {
			x = fmt.Sprintf("x%d %s", tp.Frame, x)
			y = fmt.Sprintf("x%d %s", tp.Frame, y)
		}
		xs = append(xs, x)
		ys = append(ys, y)
		lastFrame = tp.Frame
	}
	return strings.Join(xs, " "), strings.Join(ys, " ")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	cornerPinToRe   = regexp.MustCompile(`^\s*to([1-4]) \{\{curve ([^}]*)\} \{curve ([^}]*)\}\}$`)
	cornerPinFromRe = regexp.MustCompile(`^\s*from3 \{(\d+) (\d+)\}$`)
)

// ParseCornerPin читает узел CornerPin2D, записанный WriteCornerPin,
// и восстанавливает трек. Происхождение значений форматом не передаётся,
// поэтому все точки помечаются как наблюдённые.
func ParseCornerPin(r io.Reader) (*entity.Track, error) {
	track := &entity.Track{
		Points: make(map[entity.MarkerRole][]entity.TrackPoint, 4),
	}

	scanner := bufio.NewScanner(r)
	// Кривые длинных треков не помещаются в буфер по умолчанию.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if m := cornerPinToRe.FindStringSubmatch(line); m != nil {
			idx, _ := strconv.Atoi(m[1])
			role := cornerPinOrder[idx-1]

			frames, xs, err := parseCurve(m[2])
			if err != nil {
				return nil, fmt.Errorf("to%d x curve: %w", idx, err)
			}
			framesY, ys, err := parseCurve(m[3])
			if err != nil {
				return nil, fmt.Errorf("to%d y curve: %w", idx, err)
			}
			if len(frames) != len(framesY) {
				return nil, fmt.Errorf("to%d: x and y curves differ in length", idx)
			}

			series := make([]entity.TrackPoint, len(frames))
			for i := range frames {
				series[i] = entity.TrackPoint{
					Frame:  frames[i],
					Point:  entity.Point{X: xs[i], Y: ys[i]},
					Source: entity.FillObserved,
				}
			}
			track.Points[role] = series
			if len(track.Frames) == 0 {
				track.Frames = frames
			}
			continue
		}

		if m := cornerPinFromRe.FindStringSubmatch(line); m != nil {
			track.ImageWidth, _ = strconv.Atoi(m[1])
			track.ImageHeight, _ = strconv.Atoi(m[2])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(track.Points) != len(cornerPinOrder) {
		return nil, fmt.Errorf("expected %d corner curves, got %d", len(cornerPinOrder), len(track.Points))
	}
	return track, nil
}

// parseCurve разбирает токены кривой: "x<кадр>" задаёт номер кадра
// следующего значения, голые числа идут подряд.
func parseCurve(curve string) ([]int, []float64, error) {
	var frames []int
	var values []float64

	current := 0
	haveFrame := false
	for _, tok := range strings.Fields(curve) {
		if strings.HasPrefix(tok, "x") {
			n, err := strconv.Atoi(tok[1:])
			if err != nil {
				return nil, nil, fmt.Errorf("bad frame marker %q", tok)
			}
			current = n
			haveFrame = true
			continue
		}

		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad value %q", tok)
		}
		if !haveFrame {
			return nil, nil, fmt.Errorf("value %q before frame marker", tok)
		}
		frames = append(frames, current)
		values = append(values, v)
		current++
	}
	return frames, values, nil
}

// WriteTrackCSV пишет трек в CSV с колонкой происхождения каждого
// значения, чтобы прижатые и интерполированные точки были различимы.
func (s *ExportService) WriteTrackCSV(w io.Writer, track *entity.Track) error {
	if track == nil || len(track.Frames) == 0 {
		return ErrEmptyStore
	}

	cw := csv.NewWriter(w)

	header := []string{"frame"}
	for role := entity.RoleTopLeft; role <= entity.RoleBottomLeft; role++ {
		name := role.String()
		header = append(header, name+"_x", name+"_y", name+"_source")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, frame := range track.Frames {
		row := []string{strconv.Itoa(frame)}
		for role := entity.RoleTopLeft; role <= entity.RoleBottomLeft; role++ {
			tp := track.Points[role][i]
			row = append(row, formatCoord(tp.Point.X), formatCoord(tp.Point.Y), string(tp.Source))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteDataset пишет сырую таблицу наблюдений: по строке на кадр,
// по группе колонок на маркер (углы, центр, угол, параметры детекции,
// контраст, этап). Ненайденные маркеры оставляют пустые колонки.
func (s *ExportService) WriteDataset(w io.Writer) error {
	records := s.store.Records()
	if len(records) == 0 {
		return ErrEmptyStore
	}

	expected := s.store.ExpectedMarkers()
	cw := csv.NewWriter(w)

	header := []string{"frame_index", "image_width", "image_height"}
	for id := 0; id < expected; id++ {
		prefix := fmt.Sprintf("id%d_", id)
		for c := 0; c < 4; c++ {
			header = append(header,
				fmt.Sprintf("%scorner%d_x", prefix, c),
				fmt.Sprintf("%scorner%d_y", prefix, c))
		}
		header = append(header,
			prefix+"center_x", prefix+"center_y", prefix+"angle",
			prefix+"pass", prefix+"contrast", prefix+"dictionary",
			prefix+"win_size", prefix+"thresh_const", prefix+"min_perim",
			prefix+"approx_acc", prefix+"corner_dist", prefix+"marker_dist")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Index),
			strconv.Itoa(rec.ImageWidth),
			strconv.Itoa(rec.ImageHeight),
		}
		for id := 0; id < expected; id++ {
			obs, ok := rec.Observation(id)
			if !ok {
				for i := 0; i < 20; i++ {
					row = append(row, "")
				}
				continue
			}
			for c := 0; c < 4; c++ {
				row = append(row, formatCoord(obs.Corners[c].X), formatCoord(obs.Corners[c].Y))
			}
			row = append(row,
				formatCoord(obs.Center.X), formatCoord(obs.Center.Y), formatCoord(obs.Angle),
				string(obs.Pass), strconv.Itoa(obs.Contrast), string(obs.Params.Dictionary),
				strconv.Itoa(obs.Params.AdaptiveThreshWinSize),
				formatCoord(obs.Params.AdaptiveThreshConstant),
				formatCoord(obs.Params.MinMarkerPerimeterRate),
				formatCoord(obs.Params.PolygonalApproxAccuracyRate),
				formatCoord(obs.Params.MinCornerDistanceRate),
				formatCoord(obs.Params.MinMarkerDistanceRate))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
