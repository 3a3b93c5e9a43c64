package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DetectionConfig настройки детекции маркеров.
type DetectionConfig struct {
	AdaptiveThreshWinSize       int      // окно адаптивной бинаризации
	AdaptiveThreshConstant      float64  // константа адаптивной бинаризации
	MinMarkerPerimeterRate      float64  // минимальный периметр маркера
	PolygonalApproxAccuracyRate float64  // точность полигональной аппроксимации
	MinCornerDistanceRate       float64  // минимальное расстояние между углами
	MinMarkerDistanceRate       float64  // минимальное расстояние между маркерами
	Dictionaries                []string // словари для перебора
	ContrastMin                 int      // нижний уровень контраста перебора
	ContrastMax                 int      // верхний уровень контраста перебора
}

// Config настройки приложения.
type Config struct {
	FramesDir       string // каталог с кадрами
	OutputPath      string // куда писать узел CornerPin
	TrackCSVPath    string // куда писать трек в CSV (пусто — не писать)
	DatasetPath     string // куда писать таблицу наблюдений (пусто — не писать)
	PointType       string // тип экспортируемой точки: center, outer, inner
	ExpectedMarkers int    // сколько маркеров должно быть в кадре
	Workers         int    // число воркеров обработки
	MaxFrames       int    // ограничение числа кадров (0 — все)
	LogLevel        string // уровень логирования
	Detection       DetectionConfig
}

// Load читает конфигурацию: значения по умолчанию, JSON-файл из
// configDir (если есть) и переменные окружения поверх.
func Load(configDir string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	viper.SetDefault("framesDir", "./frames")
	viper.SetDefault("outputPath", "./export/cornerpin.nk")
	viper.SetDefault("trackCsvPath", "")
	viper.SetDefault("datasetPath", "")
	viper.SetDefault("pointType", "outer")
	viper.SetDefault("expectedMarkers", 4)
	viper.SetDefault("workers", 1)
	viper.SetDefault("maxFrames", 0)
	viper.SetDefault("logLevel", "info")

	viper.SetDefault("detection.adaptiveThreshWinSize", 23)
	viper.SetDefault("detection.adaptiveThreshConstant", 7.0)
	viper.SetDefault("detection.minMarkerPerimeterRate", 0.03)
	viper.SetDefault("detection.polygonalApproxAccuracyRate", 0.05)
	viper.SetDefault("detection.minCornerDistanceRate", 0.05)
	viper.SetDefault("detection.minMarkerDistanceRate", 0.05)
	viper.SetDefault("detection.dictionaries", []string{"4x4_50"})
	viper.SetDefault("detection.contrastMin", 1)
	viper.SetDefault("detection.contrastMax", 5)

	viper.SetConfigName("aruco_tracker.cfg.json")
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Файла нет — остаются значения по умолчанию.
	}

	cfg := &Config{
		FramesDir:       viper.GetString("framesDir"),
		OutputPath:      viper.GetString("outputPath"),
		TrackCSVPath:    viper.GetString("trackCsvPath"),
		DatasetPath:     viper.GetString("datasetPath"),
		PointType:       viper.GetString("pointType"),
		ExpectedMarkers: viper.GetInt("expectedMarkers"),
		Workers:         viper.GetInt("workers"),
		MaxFrames:       viper.GetInt("maxFrames"),
		LogLevel:        viper.GetString("logLevel"),
		Detection: DetectionConfig{
			AdaptiveThreshWinSize:       viper.GetInt("detection.adaptiveThreshWinSize"),
			AdaptiveThreshConstant:      viper.GetFloat64("detection.adaptiveThreshConstant"),
			MinMarkerPerimeterRate:      viper.GetFloat64("detection.minMarkerPerimeterRate"),
			PolygonalApproxAccuracyRate: viper.GetFloat64("detection.polygonalApproxAccuracyRate"),
			MinCornerDistanceRate:       viper.GetFloat64("detection.minCornerDistanceRate"),
			MinMarkerDistanceRate:       viper.GetFloat64("detection.minMarkerDistanceRate"),
			Dictionaries:                viper.GetStringSlice("detection.dictionaries"),
			ContrastMin:                 viper.GetInt("detection.contrastMin"),
			ContrastMax:                 viper.GetInt("detection.contrastMax"),
		},
	}

	// Переменные окружения перекрывают файл.
	if v := os.Getenv("ARUCO_FRAMES_DIR"); v != "" {
		cfg.FramesDir = v
	}
	if v := os.Getenv("ARUCO_OUTPUT_PATH"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("ARUCO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
