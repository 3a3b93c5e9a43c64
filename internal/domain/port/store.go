package port

import "aruco-tracker/internal/domain/entity"

// FrameStore хранилище покадровых наблюдений.
// Записи только добавляются или замещаются, никогда не удаляются;
// чтение во время экспорта предполагает, что детекция завершена.
type FrameStore interface {
	// Put сохраняет запись кадра; повторная запись кадра замещает старую
	Put(record *entity.FrameRecord)

	// Get возвращает запись по номеру кадра
	Get(frameIndex int) (*entity.FrameRecord, bool)

	// Indexes возвращает номера кадров по возрастанию
	Indexes() []int

	// Records возвращает записи, упорядоченные по номеру кадра
	Records() []*entity.FrameRecord

	// ExpectedMarkers возвращает число маркеров, при котором кадр считается полным
	ExpectedMarkers() int
}
