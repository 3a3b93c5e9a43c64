package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
)

// pipelineState состояние конвейера детекции одного кадра.
type pipelineState int

const (
	stateNotStarted pipelineState = iota
	stateDefaultPass
	stateQuickScanPass
	stateDetailedSearchPass
	stateDone
)

// PipelineConfig настройки эскалации детекции.
type PipelineConfig struct {
	ExpectedMarkers int                      // сколько маркеров должно быть найдено
	Baseline        entity.DetectionParams   // параметры базового прохода
	QuickScan       entity.DetectionParams   // ослабленные параметры быстрого прохода
	Sweep           []entity.DetectionParams // кандидаты параметров детального перебора
	ContrastLevels  []int                    // уровни контраста от слабого к сильному
}

// DefaultPipelineConfig возвращает конфигурацию с базовыми параметрами
// и умеренным перебором.
func DefaultPipelineConfig() PipelineConfig {
	baseline := entity.DefaultDetectionParams()

	quick := baseline
	quick.MinMarkerPerimeterRate = 0.01
	quick.PolygonalApproxAccuracyRate = 0.1

	var sweep []entity.DetectionParams
	for _, win := range []int{11, 23, 35} {
		for _, c := range []float64{5, 7, 12} {
			p := baseline
			p.AdaptiveThreshWinSize = win
			p.AdaptiveThreshConstant = c
			sweep = append(sweep, p)
		}
	}

	return PipelineConfig{
		ExpectedMarkers: entity.ExpectedMarkers,
		Baseline:        baseline,
		QuickScan:       quick,
		Sweep:           sweep,
		ContrastLevels:  []int{1, 2, 3, 4, 5},
	}
}

// DetectionService конвейер детекции маркеров с эскалацией этапов.
// Один экземпляр обрабатывает кадры последовательно; для параллельной
// обработки каждый воркер создаёт собственный экземпляр.
type DetectionService struct {
	detector port.MarkerDetector
	enhancer port.ContrastEnhancer
	store    port.FrameStore
	cfg      PipelineConfig
	log      zerolog.Logger
}

// NewDetectionService создаёт конвейер детекции.
func NewDetectionService(detector port.MarkerDetector, enhancer port.ContrastEnhancer, store port.FrameStore, cfg PipelineConfig, log zerolog.Logger) *DetectionService {
	return &DetectionService{
		detector: detector,
		enhancer: enhancer,
		store:    store,
		cfg:      cfg,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// ProcessFrame прогоняет кадр через этапы детекции и записывает итог
// в хранилище. Возвращает true, если найдены все ожидаемые маркеры.
// Частичный результат записывается в любом случае; только ошибка входа
// (пустое или нечитаемое изображение) завершает кадр без записи.
func (s *DetectionService) ProcessFrame(ctx context.Context, image []byte, frameIndex int) (bool, error) {
	if len(image) == 0 {
		return false, fmt.Errorf("frame %d: %w", frameIndex, port.ErrInvalidImage)
	}

	record := entity.NewFrameRecord(frameIndex)

	state := stateNotStarted
	for state != stateDone {
		switch state {
		case stateNotStarted:
			state = stateDefaultPass

		case stateDefaultPass:
			if err := s.runStage(ctx, image, record, entity.PassDefault, s.cfg.Baseline, 0); err != nil {
				return false, err
			}
			if record.Complete(s.cfg.ExpectedMarkers) {
				state = stateDone
			} else {
				state = stateQuickScanPass
			}

		case stateQuickScanPass:
			if err := s.runStage(ctx, image, record, entity.PassQuickScan, s.cfg.QuickScan, 0); err != nil {
				return false, err
			}
			if record.Complete(s.cfg.ExpectedMarkers) {
				state = stateDone
			} else {
				state = stateDetailedSearchPass
			}

		case stateDetailedSearchPass:
			if err := s.detailedSearch(ctx, image, record); err != nil {
				return false, err
			}
			state = stateDone
		}
	}

	s.store.Put(record)

	complete := record.Complete(s.cfg.ExpectedMarkers)
	s.log.Debug().
		Int("frame", frameIndex).
		Int("found", record.Count()).
		Int("expected", s.cfg.ExpectedMarkers).
		Bool("complete", complete).
		Msg("frame processed")

	return complete, nil
}

// detailedSearch перебирает уровни контраста и кандидатов параметров,
// пока не найдены все маркеры или перебор не исчерпан.
func (s *DetectionService) detailedSearch(ctx context.Context, image []byte, record *entity.FrameRecord) error {
	for _, level := range s.cfg.ContrastLevels {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		variant, err := s.enhancer.Enhance(image, level)
		if err != nil {
			if errors.Is(err, port.ErrInvalidImage) {
				return fmt.Errorf("frame %d: %w", record.Index, err)
			}
			s.log.Debug().Int("contrast", level).Err(err).Msg("contrast enhancement failed")
			continue
		}

		for _, params := range s.cfg.Sweep {
			if err := s.runStage(ctx, variant, record, entity.PassDetailedSearch, params, level); err != nil {
				return err
			}
			if record.Complete(s.cfg.ExpectedMarkers) {
				return nil
			}
		}
	}
	return nil
}

// runStage выполняет одну попытку детекции и добавляет в запись кадра
// маркеры, которых там ещё нет. Сбой детектора на конкретной конфигурации
// гасится как пустой результат; всплывает только ошибка входа.
func (s *DetectionService) runStage(ctx context.Context, image []byte, record *entity.FrameRecord, pass entity.PassKind, params entity.DetectionParams, contrast int) error {
	result, err := s.detector.Detect(ctx, image, params)
	if err != nil {
		if errors.Is(err, port.ErrInvalidImage) {
			return fmt.Errorf("frame %d: %w", record.Index, err)
		}
		s.log.Debug().
			Str("pass", string(pass)).
			Int("contrast", contrast).
			Err(err).
			Msg("stage failed, treated as empty")
		return nil
	}

	if record.ImageWidth == 0 {
		record.ImageWidth = result.ImageWidth
		record.ImageHeight = result.ImageHeight
	}

	for _, cand := range dedupeByArea(result.Candidates) {
		if cand.ID < 0 || cand.ID >= s.cfg.ExpectedMarkers {
			continue
		}
		// Маркер, найденный более дешёвым этапом, не замещается.
		if _, ok := record.Observation(cand.ID); ok {
			continue
		}
		record.Put(entity.NewMarkerObservation(cand.ID, cand.Corners, pass, params, contrast))
		s.log.Debug().
			Int("frame", record.Index).
			Int("marker", cand.ID).
			Str("pass", string(pass)).
			Int("contrast", contrast).
			Msg("marker found")
	}
	return nil
}

// dedupeByArea убирает повторы одного id в выдаче детектора,
// оставляя кандидата с большей площадью.
func dedupeByArea(candidates []port.MarkerCandidate) []port.MarkerCandidate {
	best := make(map[int]port.MarkerCandidate, len(candidates))
	order := make([]int, 0, len(candidates))

	for _, cand := range candidates {
		prev, ok := best[cand.ID]
		if !ok {
			best[cand.ID] = cand
			order = append(order, cand.ID)
			continue
		}
		if cand.Corners.Area() > prev.Corners.Area() {
			best[cand.ID] = cand
		}
	}

	deduped := make([]port.MarkerCandidate, 0, len(order))
	for _, id := range order {
		deduped = append(deduped, best[id])
	}
	return deduped
}
