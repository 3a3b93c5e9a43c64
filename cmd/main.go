package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"aruco-tracker/config"
	"aruco-tracker/internal/container"
	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
	"aruco-tracker/internal/infrastructure/vision"
	"aruco-tracker/internal/logger"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New(cfg.LogLevel)

	// Источник кадров
	var source port.FrameSource
	source, err = vision.NewDirFrameSource(cfg.FramesDir)
	if err != nil {
		lg.Fatal().Err(err).Str("dir", cfg.FramesDir).Msg("frame source failed")
	}
	if cfg.MaxFrames > 0 {
		source = &limitedSource{inner: source, limit: cfg.MaxFrames}
	}

	// Собираем сервисы приложения
	c := container.New(cfg, vision.NewArucoDetector(), vision.NewClaheEnhancer(), lg)

	ctx := context.Background()
	summary, err := c.Runner.ProcessAll(ctx, source)
	if err != nil {
		lg.Fatal().Err(err).Msg("processing failed")
	}

	// Сводная геометрия по полным кадрам
	var ratioSum float64
	var ratioCount int
	for _, idx := range c.Store.Indexes() {
		result, err := c.Geometry.Analyze(idx)
		if err != nil {
			continue
		}
		ratioSum += result.AverageRatio
		ratioCount++
	}
	if ratioCount > 0 {
		lg.Info().
			Float64("avg_aspect_ratio", ratioSum/float64(ratioCount)).
			Int("complete_frames", ratioCount).
			Msg("geometry summary")
	}

	track, err := c.Export.BuildTrack(entity.PointType(cfg.PointType))
	if err != nil {
		lg.Fatal().Err(err).Msg("track build failed")
	}

	if err := writeFile(cfg.OutputPath, func(f *os.File) error {
		return c.Export.WriteCornerPin(f, track)
	}); err != nil {
		lg.Fatal().Err(err).Str("path", cfg.OutputPath).Msg("cornerpin export failed")
	}
	lg.Info().Str("path", cfg.OutputPath).Msg("cornerpin exported")

	if cfg.TrackCSVPath != "" {
		if err := writeFile(cfg.TrackCSVPath, func(f *os.File) error {
			return c.Export.WriteTrackCSV(f, track)
		}); err != nil {
			lg.Fatal().Err(err).Str("path", cfg.TrackCSVPath).Msg("track csv export failed")
		}
	}

	if cfg.DatasetPath != "" {
		if err := writeFile(cfg.DatasetPath, func(f *os.File) error {
			return c.Export.WriteDataset(f)
		}); err != nil {
			lg.Fatal().Err(err).Str("path", cfg.DatasetPath).Msg("dataset export failed")
		}
	}

	lg.Info().
		Int("frames", summary.Frames).
		Int("complete", summary.Complete).
		Int("partial", summary.Partial).
		Int("failed", summary.Failed).
		Msg("done")
}

// writeFile создаёт каталог и файл, затем отдаёт его функции записи.
func writeFile(path string, write func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

// limitedSource урезает источник до первых limit кадров.
type limitedSource struct {
	inner port.FrameSource
	limit int
}

func (s *limitedSource) Frame(i int) ([]byte, int, error) {
	if i >= s.limit {
		return nil, 0, port.ErrNoMoreFrames
	}
	return s.inner.Frame(i)
}

func (s *limitedSource) TotalFrames() int {
	total := s.inner.TotalFrames()
	if total > s.limit {
		return s.limit
	}
	return total
}
