package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
	"aruco-tracker/internal/infrastructure/storage"
)

// fakeDetector отдаёт кандидатов по сценарию respond.
// Потокобезопасен: Runner дёргает его из нескольких воркеров.
type fakeDetector struct {
	mu      sync.Mutex
	calls   int
	respond func(call int, image []byte, params entity.DetectionParams) ([]port.MarkerCandidate, error)
}

func (d *fakeDetector) Detect(_ context.Context, image []byte, params entity.DetectionParams) (*port.DetectionResult, error) {
	d.mu.Lock()
	call := d.calls
	d.calls++
	d.mu.Unlock()
	candidates, err := d.respond(call, image, params)
	if err != nil {
		return nil, err
	}
	return &port.DetectionResult{ImageWidth: 1920, ImageHeight: 1080, Candidates: candidates}, nil
}

// fakeEnhancer кодирует уровень первым байтом варианта изображения.
type fakeEnhancer struct {
	mu     sync.Mutex
	levels []int
}

func (e *fakeEnhancer) Enhance(image []byte, level int) ([]byte, error) {
	e.mu.Lock()
	e.levels = append(e.levels, level)
	e.mu.Unlock()
	return append([]byte{byte(level)}, image...), nil
}

func variantLevel(image []byte) int {
	if len(image) == 0 {
		return 0
	}
	return int(image[0])
}

func square(x, y, size float64) entity.CornerSet {
	return entity.CornerSet{
		{X: x, Y: y},
		{X: x + size, Y: y},
		{X: x + size, Y: y + size},
		{X: x, Y: y + size},
	}
}

func candidate(id int, x, y, size float64) port.MarkerCandidate {
	return port.MarkerCandidate{ID: id, Corners: square(x, y, size)}
}

func allFour() []port.MarkerCandidate {
	return []port.MarkerCandidate{
		candidate(0, 0, 0, 100),
		candidate(1, 900, 0, 100),
		candidate(2, 900, 400, 100),
		candidate(3, 0, 400, 100),
	}
}

func testPipelineConfig() PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.Sweep = cfg.Sweep[:2]
	cfg.ContrastLevels = []int{1, 2, 3}
	return cfg
}

func newTestPipeline(respond func(call int, image []byte, params entity.DetectionParams) ([]port.MarkerCandidate, error)) (*DetectionService, *fakeDetector, *storage.MemoryFrameStore) {
	detector := &fakeDetector{respond: respond}
	store := storage.NewMemoryFrameStore(4)
	svc := NewDetectionService(detector, &fakeEnhancer{}, store, testPipelineConfig(), zerolog.Nop())
	return svc, detector, store
}

func TestDetectionService_DefaultPassComplete(t *testing.T) {
	svc, detector, store := newTestPipeline(func(int, []byte, entity.DetectionParams) ([]port.MarkerCandidate, error) {
		return allFour(), nil
	})

	complete, err := svc.ProcessFrame(context.Background(), []byte("frame"), 3)
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, 1, detector.calls)

	record, ok := store.Get(3)
	require.True(t, ok)
	require.Equal(t, 4, record.Count())
	require.Equal(t, 1920, record.ImageWidth)
	require.Equal(t, 1080, record.ImageHeight)
	for id := 0; id < 4; id++ {
		obs, found := record.Observation(id)
		require.True(t, found)
		require.Equal(t, entity.PassDefault, obs.Pass)
		require.Equal(t, 0, obs.Contrast)
	}
}

func TestDetectionService_QuickScanAddsMissing(t *testing.T) {
	svc, detector, store := newTestPipeline(func(call int, _ []byte, _ entity.DetectionParams) ([]port.MarkerCandidate, error) {
		if call == 0 {
			return allFour()[:3], nil
		}
		return allFour(), nil
	})

	complete, err := svc.ProcessFrame(context.Background(), []byte("frame"), 0)
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, 2, detector.calls)

	record, _ := store.Get(0)
	// Маркеры базового прохода не перезаписаны быстрым.
	for id := 0; id < 3; id++ {
		obs, _ := record.Observation(id)
		require.Equal(t, entity.PassDefault, obs.Pass)
	}
	obs, _ := record.Observation(3)
	require.Equal(t, entity.PassQuickScan, obs.Pass)
}

func TestDetectionService_DetailedSearchRecordsContrast(t *testing.T) {
	svc, _, store := newTestPipeline(func(_ int, image []byte, _ entity.DetectionParams) ([]port.MarkerCandidate, error) {
		if variantLevel(image) == 2 {
			return allFour(), nil
		}
		return allFour()[:3], nil
	})

	complete, err := svc.ProcessFrame(context.Background(), []byte{0xff, 0x01}, 0)
	require.NoError(t, err)
	require.True(t, complete)

	record, _ := store.Get(0)
	obs, _ := record.Observation(3)
	require.Equal(t, entity.PassDetailedSearch, obs.Pass)
	require.Equal(t, 2, obs.Contrast)
}

func TestDetectionService_PartialRecorded(t *testing.T) {
	svc, _, store := newTestPipeline(func(int, []byte, entity.DetectionParams) ([]port.MarkerCandidate, error) {
		return allFour()[:2], nil
	})

	complete, err := svc.ProcessFrame(context.Background(), []byte("frame"), 9)
	require.NoError(t, err)
	require.False(t, complete)

	record, ok := store.Get(9)
	require.True(t, ok)
	require.Equal(t, 2, record.Count())
}

func TestDetectionService_ZeroMarkers(t *testing.T) {
	svc, _, store := newTestPipeline(func(int, []byte, entity.DetectionParams) ([]port.MarkerCandidate, error) {
		return nil, nil
	})

	complete, err := svc.ProcessFrame(context.Background(), []byte("frame"), 4)
	require.NoError(t, err)
	require.False(t, complete)

	record, ok := store.Get(4)
	require.True(t, ok)
	require.Equal(t, 0, record.Count())
}

func TestDetectionService_EmptyImageFails(t *testing.T) {
	svc, detector, store := newTestPipeline(func(int, []byte, entity.DetectionParams) ([]port.MarkerCandidate, error) {
		return allFour(), nil
	})

	_, err := svc.ProcessFrame(context.Background(), nil, 5)
	require.ErrorIs(t, err, port.ErrInvalidImage)
	require.Equal(t, 0, detector.calls)

	_, ok := store.Get(5)
	require.False(t, ok)
}

func TestDetectionService_InvalidImageNoPartialWrite(t *testing.T) {
	svc, _, store := newTestPipeline(func(int, []byte, entity.DetectionParams) ([]port.MarkerCandidate, error) {
		return nil, port.ErrInvalidImage
	})

	_, err := svc.ProcessFrame(context.Background(), []byte("broken"), 1)
	require.ErrorIs(t, err, port.ErrInvalidImage)

	_, ok := store.Get(1)
	require.False(t, ok)
}

func TestDetectionService_StageErrorSwallowed(t *testing.T) {
	svc, _, store := newTestPipeline(func(call int, _ []byte, _ entity.DetectionParams) ([]port.MarkerCandidate, error) {
		if call < 2 {
			return nil, errors.New("detector crashed")
		}
		return allFour(), nil
	})

	complete, err := svc.ProcessFrame(context.Background(), []byte("frame"), 0)
	require.NoError(t, err)
	require.True(t, complete)

	record, _ := store.Get(0)
	obs, _ := record.Observation(0)
	require.Equal(t, entity.PassDetailedSearch, obs.Pass)
}

func TestDetectionService_DedupeKeepsLargerArea(t *testing.T) {
	svc, _, store := newTestPipeline(func(int, []byte, entity.DetectionParams) ([]port.MarkerCandidate, error) {
		return []port.MarkerCandidate{
			candidate(0, 0, 0, 10),
			candidate(0, 200, 200, 40),
			candidate(1, 900, 0, 100),
			candidate(2, 900, 400, 100),
			candidate(3, 0, 400, 100),
		}, nil
	})

	complete, err := svc.ProcessFrame(context.Background(), []byte("frame"), 0)
	require.NoError(t, err)
	require.True(t, complete)

	record, _ := store.Get(0)
	obs, _ := record.Observation(0)
	require.Equal(t, entity.Point{X: 220, Y: 220}, obs.Center)
}

func TestDetectionService_Idempotent(t *testing.T) {
	respond := func(call int, _ []byte, _ entity.DetectionParams) ([]port.MarkerCandidate, error) {
		if call%2 == 0 {
			return allFour()[:3], nil
		}
		return allFour(), nil
	}
	svc, _, store := newTestPipeline(respond)

	ctx := context.Background()
	_, err := svc.ProcessFrame(ctx, []byte("frame"), 0)
	require.NoError(t, err)
	first, _ := store.Get(0)

	_, err = svc.ProcessFrame(ctx, []byte("frame"), 0)
	require.NoError(t, err)
	second, _ := store.Get(0)

	require.Equal(t, first.Markers, second.Markers)
	require.Len(t, store.Indexes(), 1)
}
