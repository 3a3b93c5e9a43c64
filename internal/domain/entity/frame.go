package entity

// PassKind этап конвейера, на котором найден маркер.
type PassKind string

const (
	PassDefault        PassKind = "default"
	PassQuickScan      PassKind = "quick_scan"
	PassDetailedSearch PassKind = "detailed_search"
)

// MarkerObservation одно наблюдение маркера в кадре.
// Неизменяемо после записи: фиксирует углы, производные центр и угол,
// а также этап, параметры и уровень контраста, которые его дали.
type MarkerObservation struct {
	ID       int             // идентификатор маркера (0..3)
	Corners  CornerSet       // углы маркера
	Center   Point           // центр (среднее углов)
	Angle    float64         // ориентация в градусах
	Pass     PassKind        // этап, нашедший маркер
	Params   DetectionParams // параметры детекции
	Contrast int             // уровень контраста
}

// NewMarkerObservation создаёт наблюдение с вычисленными центром и углом.
func NewMarkerObservation(id int, corners CornerSet, pass PassKind, params DetectionParams, contrast int) MarkerObservation {
	return MarkerObservation{
		ID:       id,
		Corners:  corners,
		Center:   corners.Center(),
		Angle:    corners.Angle(),
		Pass:     pass,
		Params:   params,
		Contrast: contrast,
	}
}

// OuterCorner возвращает внешний угол маркера: для id i это угол i.
func (o MarkerObservation) OuterCorner() Point {
	return o.Corners[o.ID%4]
}

// InnerCorner возвращает внутренний угол: противоположный внешнему.
func (o MarkerObservation) InnerCorner() Point {
	return o.Corners[(o.ID+2)%4]
}

// FrameRecord наблюдения одного кадра.
// Отсутствие маркера в Markers означает «не найден в этом кадре».
type FrameRecord struct {
	Index       int                       // номер кадра
	ImageWidth  int                       // ширина кадра
	ImageHeight int                       // высота кадра
	Markers     map[int]MarkerObservation // id маркера -> наблюдение
}

// NewFrameRecord создаёт пустую запись кадра.
func NewFrameRecord(index int) *FrameRecord {
	return &FrameRecord{
		Index:   index,
		Markers: make(map[int]MarkerObservation),
	}
}

// Put записывает наблюдение; повторная запись того же id замещает старую.
func (f *FrameRecord) Put(obs MarkerObservation) {
	f.Markers[obs.ID] = obs
}

// Observation возвращает наблюдение маркера по id.
func (f *FrameRecord) Observation(id int) (MarkerObservation, bool) {
	obs, ok := f.Markers[id]
	return obs, ok
}

// Count возвращает число найденных маркеров.
func (f *FrameRecord) Count() int {
	return len(f.Markers)
}

// Complete сообщает, найдены ли все ожидаемые маркеры.
func (f *FrameRecord) Complete(expected int) bool {
	return len(f.Markers) >= expected
}
