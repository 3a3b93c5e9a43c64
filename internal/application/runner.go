package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"aruco-tracker/internal/domain/port"
)

// Summary итог обработки последовательности кадров.
type Summary struct {
	Frames   int // обработано кадров
	Complete int // кадры со всеми маркерами
	Partial  int // кадры с неполным набором
	Failed   int // кадры с ошибкой входа
}

// Runner обходит источник кадров и наполняет хранилище.
// Кадры независимы, поэтому распределяются по воркерам; каждый воркер
// владеет собственным конвейером и пишет в свой раздел хранилища,
// разделы сливаются в основное хранилище после завершения.
type Runner struct {
	detector port.MarkerDetector
	enhancer port.ContrastEnhancer
	store    port.FrameStore
	newPart  func() port.FrameStore
	cfg      PipelineConfig
	workers  int
	log      zerolog.Logger
}

// NewRunner создаёт обходчик кадров. newPartition создаёт раздел
// хранилища для одного воркера; workers меньше 1 означает один воркер.
func NewRunner(detector port.MarkerDetector, enhancer port.ContrastEnhancer, store port.FrameStore, newPartition func() port.FrameStore, cfg PipelineConfig, workers int, log zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		detector: detector,
		enhancer: enhancer,
		store:    store,
		newPart:  newPartition,
		cfg:      cfg,
		workers:  workers,
		log:      log.With().Str("component", "runner").Logger(),
	}
}

// ProcessAll обрабатывает кадры источника и возвращает сводку.
// Ошибка входа на отдельном кадре не останавливает обход: кадр
// учитывается как сбойный и пропускается.
func (r *Runner) ProcessAll(ctx context.Context, source port.FrameSource) (*Summary, error) {
	total := source.TotalFrames()
	if total == 0 {
		return nil, port.ErrNoMoreFrames
	}

	jobs := make(chan int)
	partitions := make([]port.FrameStore, r.workers)
	summaries := make([]Summary, r.workers)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		partitions[w] = r.newPart()
		pipeline := NewDetectionService(r.detector, r.enhancer, partitions[w], r.cfg, r.log)

		wg.Add(1)
		go func(w int, pipeline *DetectionService) {
			defer wg.Done()
			for i := range jobs {
				r.processOne(ctx, source, pipeline, i, &summaries[w])
			}
		}(w, pipeline)
	}

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	// Слияние разделов: записи кадров не пересекаются между воркерами.
	summary := &Summary{}
	for w := 0; w < r.workers; w++ {
		for _, rec := range partitions[w].Records() {
			r.store.Put(rec)
		}
		summary.Frames += summaries[w].Frames
		summary.Complete += summaries[w].Complete
		summary.Partial += summaries[w].Partial
		summary.Failed += summaries[w].Failed
	}

	r.log.Info().
		Int("frames", summary.Frames).
		Int("complete", summary.Complete).
		Int("partial", summary.Partial).
		Int("failed", summary.Failed).
		Msg("processing finished")

	return summary, nil
}

func (r *Runner) processOne(ctx context.Context, source port.FrameSource, pipeline *DetectionService, i int, summary *Summary) {
	image, frameNumber, err := source.Frame(i)
	if err != nil {
		if errors.Is(err, port.ErrNoMoreFrames) {
			return
		}
		r.log.Warn().Int("index", i).Err(err).Msg("frame load failed")
		summary.Frames++
		summary.Failed++
		return
	}

	complete, err := pipeline.ProcessFrame(ctx, image, frameNumber)
	summary.Frames++
	switch {
	case err != nil:
		r.log.Warn().Int("frame", frameNumber).Err(err).Msg("frame failed")
		summary.Failed++
	case complete:
		summary.Complete++
	default:
		summary.Partial++
	}
}
