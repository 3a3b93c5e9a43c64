package container

import (
	"github.com/rs/zerolog"

	"aruco-tracker/config"
	app "aruco-tracker/internal/application"
	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
	"aruco-tracker/internal/infrastructure/storage"
)

type Container struct {
	Store    *storage.MemoryFrameStore
	Runner   *app.Runner
	Geometry *app.GeometryService
	Export   *app.ExportService
}

func New(cfg *config.Config, detector port.MarkerDetector, enhancer port.ContrastEnhancer, log zerolog.Logger) *Container {
	store := storage.NewMemoryFrameStore(cfg.ExpectedMarkers)
	newPartition := func() port.FrameStore {
		return storage.NewMemoryFrameStore(cfg.ExpectedMarkers)
	}

	pipelineCfg := pipelineConfig(cfg)
	runner := app.NewRunner(detector, enhancer, store, newPartition, pipelineCfg, cfg.Workers, log)

	return &Container{
		Store:    store,
		Runner:   runner,
		Geometry: app.NewGeometryService(store, log),
		Export:   app.NewExportService(store, log),
	}
}

// pipelineConfig собирает настройки конвейера из конфигурации приложения.
func pipelineConfig(cfg *config.Config) app.PipelineConfig {
	det := cfg.Detection

	dictionaries := make([]entity.Dictionary, 0, len(det.Dictionaries))
	for _, d := range det.Dictionaries {
		dictionaries = append(dictionaries, entity.Dictionary(d))
	}
	if len(dictionaries) == 0 {
		dictionaries = []entity.Dictionary{entity.Dict4x4_50}
	}

	baseline := entity.DetectionParams{
		Dictionary:                  dictionaries[0],
		AdaptiveThreshWinSize:       det.AdaptiveThreshWinSize,
		AdaptiveThreshConstant:      det.AdaptiveThreshConstant,
		MinMarkerPerimeterRate:      det.MinMarkerPerimeterRate,
		PolygonalApproxAccuracyRate: det.PolygonalApproxAccuracyRate,
		MinCornerDistanceRate:       det.MinCornerDistanceRate,
		MinMarkerDistanceRate:       det.MinMarkerDistanceRate,
	}

	// Быстрый проход: ослабленные пороги, меньший минимальный периметр.
	quick := baseline
	quick.MinMarkerPerimeterRate = baseline.MinMarkerPerimeterRate / 3
	quick.PolygonalApproxAccuracyRate = baseline.PolygonalApproxAccuracyRate * 2

	// Детальный перебор: словари x окна бинаризации x константы.
	var sweep []entity.DetectionParams
	for _, dict := range dictionaries {
		for _, win := range sweepWindows(det.AdaptiveThreshWinSize) {
			for _, c := range []float64{det.AdaptiveThreshConstant - 2, det.AdaptiveThreshConstant, det.AdaptiveThreshConstant + 5} {
				p := baseline
				p.Dictionary = dict
				p.AdaptiveThreshWinSize = win
				p.AdaptiveThreshConstant = c
				sweep = append(sweep, p)
			}
		}
	}

	levels := contrastLevels(det.ContrastMin, det.ContrastMax)

	return app.PipelineConfig{
		ExpectedMarkers: cfg.ExpectedMarkers,
		Baseline:        baseline,
		QuickScan:       quick,
		Sweep:           sweep,
		ContrastLevels:  levels,
	}
}

// sweepWindows возвращает окна бинаризации вокруг базового значения.
func sweepWindows(base int) []int {
	small := base - 12
	if small < 3 {
		small = 3
	}
	return []int{small, base, base + 12}
}

// contrastLevels возвращает уровни контраста от min до max включительно.
func contrastLevels(min, max int) []int {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	levels := make([]int, 0, max-min+1)
	for l := min; l <= max; l++ {
		levels = append(levels, l)
	}
	return levels
}
