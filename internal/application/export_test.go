package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/infrastructure/storage"
)

// staticStore собирает хранилище из десяти кадров со статичной
// геометрией; в кадре 5 отсутствует верхний правый маркер.
func staticStore() *storage.MemoryFrameStore {
	store := storage.NewMemoryFrameStore(4)
	for frame := 0; frame < 10; frame++ {
		record := rectRecord(frame)
		if frame == 5 {
			delete(record.Markers, 1)
		}
		store.Put(record)
	}
	return store
}

func TestExportService_InterpolatesMissingMarker(t *testing.T) {
	store := staticStore()
	svc := NewExportService(store, zerolog.Nop())

	track, err := svc.BuildTrack(entity.PointOuter)
	require.NoError(t, err)
	require.Len(t, track.Frames, 10)

	series := track.Points[entity.RoleTopRight]
	// Геометрия статична: восстановленное значение кадра 5 совпадает
	// с соседними кадрами 4 и 6.
	require.Equal(t, entity.FillInterpolated, series[5].Source)
	require.Equal(t, series[4].Point, series[5].Point)
	require.Equal(t, series[6].Point, series[5].Point)

	for i, tp := range series {
		if i == 5 {
			continue
		}
		require.Equal(t, entity.FillObserved, tp.Source)
	}

	// Геометрия кадра 5 недоступна, остальных — согласована.
	geo := NewGeometryService(store, zerolog.Nop())
	_, err = geo.Analyze(5)
	require.ErrorIs(t, err, ErrGeometryUnavailable)
	for frame := 0; frame < 10; frame++ {
		if frame == 5 {
			continue
		}
		result, err := geo.Analyze(frame)
		require.NoError(t, err)
		require.InDelta(t, 2.0, result.OuterRatio, 1e-9)
	}
}

func TestExportService_InterpolationOnSegment(t *testing.T) {
	// Маркер id1 движется линейно по обеим осям; наблюдение кадра 2
	// удалено, интерполяция должна лечь ровно на отрезок.
	store := storage.NewMemoryFrameStore(4)
	params := entity.DefaultDetectionParams()
	for frame := 0; frame < 5; frame++ {
		record := entity.NewFrameRecord(frame)
		record.ImageWidth = 1920
		record.ImageHeight = 1080
		for id := 0; id < 4; id++ {
			x := float64(id * 200)
			y := float64(id * 100)
			if id == 1 {
				x += float64(frame * 30)
				y += float64(frame * 10)
			}
			record.Put(entity.NewMarkerObservation(id, square(x, y, 50), entity.PassDefault, params, 0))
		}
		if frame == 2 {
			delete(record.Markers, 1)
		}
		store.Put(record)
	}

	svc := NewExportService(store, zerolog.Nop())
	track, err := svc.BuildTrack(entity.PointCenter)
	require.NoError(t, err)

	series := track.Points[entity.RoleTopRight]
	require.Equal(t, entity.FillInterpolated, series[2].Source)
	require.InDelta(t, (series[1].Point.X+series[3].Point.X)/2, series[2].Point.X, 1e-9)
	require.InDelta(t, (series[1].Point.Y+series[3].Point.Y)/2, series[2].Point.Y, 1e-9)
}

func TestExportService_ClampsBoundaries(t *testing.T) {
	store := storage.NewMemoryFrameStore(4)
	for frame := 0; frame < 10; frame++ {
		record := rectRecord(frame)
		// Маркер id2 наблюдается только в кадрах 3..6.
		if frame < 3 || frame > 6 {
			delete(record.Markers, 2)
		}
		store.Put(record)
	}

	svc := NewExportService(store, zerolog.Nop())
	track, err := svc.BuildTrack(entity.PointInner)
	require.NoError(t, err)

	series := track.Points[entity.RoleBottomRight]
	for i := 0; i < 3; i++ {
		require.Equal(t, entity.FillClamped, series[i].Source)
		require.Equal(t, series[3].Point, series[i].Point)
	}
	for i := 7; i < 10; i++ {
		require.Equal(t, entity.FillClamped, series[i].Source)
		require.Equal(t, series[6].Point, series[i].Point)
	}
	for i := 3; i <= 6; i++ {
		require.Equal(t, entity.FillObserved, series[i].Source)
	}
}

func TestExportService_FlipsYAxis(t *testing.T) {
	store := staticStore()
	svc := NewExportService(store, zerolog.Nop())

	track, err := svc.BuildTrack(entity.PointCenter)
	require.NoError(t, err)

	// Центр id0 в пикселях (50, 50); начало координат потребителя
	// внизу слева, высота кадра 1080.
	tp := track.Points[entity.RoleTopLeft][0]
	require.InDelta(t, 50.0, tp.Point.X, 1e-9)
	require.InDelta(t, 1030.0, tp.Point.Y, 1e-9)
}

func TestExportService_CornerPinRoundTrip(t *testing.T) {
	// Разрыв нумерации кадров проверяет маркеры "x<кадр>" в кривых.
	store := storage.NewMemoryFrameStore(4)
	for _, frame := range []int{1, 2, 3, 7, 8, 9} {
		store.Put(rectRecord(frame))
	}

	svc := NewExportService(store, zerolog.Nop())
	track, err := svc.BuildTrack(entity.PointOuter)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCornerPin(&buf, track))

	parsed, err := ParseCornerPin(&buf)
	require.NoError(t, err)

	require.Equal(t, track.Frames, parsed.Frames)
	require.Equal(t, track.ImageWidth, parsed.ImageWidth)
	require.Equal(t, track.ImageHeight, parsed.ImageHeight)
	for role := entity.RoleTopLeft; role <= entity.RoleBottomLeft; role++ {
		require.Len(t, parsed.Points[role], len(track.Points[role]))
		for i, tp := range track.Points[role] {
			require.Equal(t, tp.Frame, parsed.Points[role][i].Frame)
			require.Equal(t, tp.Point, parsed.Points[role][i].Point)
		}
	}
}

func TestExportService_CornerPinFormat(t *testing.T) {
	store := staticStore()
	svc := NewExportService(store, zerolog.Nop())

	track, err := svc.BuildTrack(entity.PointOuter)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCornerPin(&buf, track))
	out := buf.String()

	require.Contains(t, out, "CornerPin2D {")
	require.Contains(t, out, " to1 {{curve x0 ")
	require.Contains(t, out, " to4 {{curve x0 ")
	require.Contains(t, out, " from2 {1920 0}")
	require.Contains(t, out, " from3 {1920 1080}")
	require.Contains(t, out, " invert true")
}

func TestExportService_TrackCSVCarriesFillSource(t *testing.T) {
	store := staticStore()
	svc := NewExportService(store, zerolog.Nop())

	track, err := svc.BuildTrack(entity.PointOuter)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteTrackCSV(&buf, track))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 11)
	require.Contains(t, lines[0], "top_right_source")
	require.Contains(t, lines[6], "interpolated")
}

func TestExportService_DatasetDump(t *testing.T) {
	store := staticStore()
	svc := NewExportService(store, zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, svc.WriteDataset(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 11)
	require.Contains(t, lines[0], "id0_corner0_x")
	require.Contains(t, lines[0], "id3_marker_dist")
	// Кадр 5 без id1: пустые колонки между полями id0 и id2.
	require.Contains(t, lines[6], ",,,,")
}

func TestExportService_InvalidPointType(t *testing.T) {
	svc := NewExportService(staticStore(), zerolog.Nop())
	_, err := svc.BuildTrack(entity.PointType("middle"))
	require.Error(t, err)
}

func TestExportService_EmptyStore(t *testing.T) {
	svc := NewExportService(storage.NewMemoryFrameStore(4), zerolog.Nop())
	_, err := svc.BuildTrack(entity.PointCenter)
	require.ErrorIs(t, err, ErrEmptyStore)
}

func TestExportService_RoleNeverObserved(t *testing.T) {
	store := storage.NewMemoryFrameStore(4)
	for frame := 0; frame < 3; frame++ {
		record := rectRecord(frame)
		delete(record.Markers, 0)
		store.Put(record)
	}

	svc := NewExportService(store, zerolog.Nop())
	_, err := svc.BuildTrack(entity.PointCenter)
	require.Error(t, err)
	require.Contains(t, err.Error(), "top_left")
}
