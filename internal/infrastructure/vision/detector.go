//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
)

// ArucoDetector адаптер детектора маркеров на базе OpenCV ArUco.
// Не держит состояния между вызовами: детектор собирается из
// параметров на каждый вызов, поэтому экземпляр безопасно делить
// между воркерами.
type ArucoDetector struct{}

// NewArucoDetector создаёт детектор маркеров.
func NewArucoDetector() *ArucoDetector {
	return &ArucoDetector{}
}

// Detect ищет маркеры на изображении с заданными параметрами.
func (d *ArucoDetector) Detect(ctx context.Context, imageData []byte, params entity.DetectionParams) (*port.DetectionResult, error) {
	_ = ctx

	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	detectorParams := gocv.NewArucoDetectorParameters()
	detectorParams.SetAdaptiveThreshWinSizeMin(params.AdaptiveThreshWinSize)
	detectorParams.SetAdaptiveThreshWinSizeMax(params.AdaptiveThreshWinSize)
	detectorParams.SetAdaptiveThreshConstant(params.AdaptiveThreshConstant)
	detectorParams.SetMinMarkerPerimeterRate(params.MinMarkerPerimeterRate)
	detectorParams.SetPolygonalApproxAccuracyRate(params.PolygonalApproxAccuracyRate)
	detectorParams.SetMinCornerDistanceRate(params.MinCornerDistanceRate)
	detectorParams.SetMinMarkerDistanceRate(params.MinMarkerDistanceRate)

	detector := gocv.NewArucoDetectorWithParams(dictionaryFor(params.Dictionary), detectorParams)
	defer detector.Close()

	corners, ids, _ := detector.DetectMarkers(gray)

	candidates := make([]port.MarkerCandidate, 0, len(ids))
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		var cs entity.CornerSet
		for c, p := range corners[i] {
			cs[c] = entity.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		candidates = append(candidates, port.MarkerCandidate{ID: id, Corners: cs})
	}

	return &port.DetectionResult{
		ImageWidth:  mat.Cols(),
		ImageHeight: mat.Rows(),
		Candidates:  candidates,
	}, nil
}

// dictionaryFor сопоставляет тип словаря предопределённому словарю OpenCV.
func dictionaryFor(dict entity.Dictionary) gocv.ArucoDictionary {
	switch dict {
	case entity.Dict4x4_100:
		return gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_100)
	case entity.Dict4x4_250:
		return gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_250)
	case entity.Dict5x5_50:
		return gocv.GetPredefinedDictionary(gocv.ArucoDict5x5_50)
	default:
		return gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_50)
	}
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	if len(imageData) == 0 {
		return gocv.NewMat(), port.ErrInvalidImage
	}
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), fmt.Errorf("%w: failed to decode image", port.ErrInvalidImage)
}

// Проверка реализации интерфейса
var _ port.MarkerDetector = (*ArucoDetector)(nil)
