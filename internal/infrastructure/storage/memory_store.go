package storage

import (
	"sort"
	"sync"

	"aruco-tracker/internal/domain/entity"
	"aruco-tracker/internal/domain/port"
)

// MemoryFrameStore in-memory хранилище записей кадров.
type MemoryFrameStore struct {
	mu       sync.RWMutex
	expected int
	records  map[int]*entity.FrameRecord
}

// NewMemoryFrameStore создаёт хранилище с заданным числом ожидаемых маркеров.
func NewMemoryFrameStore(expectedMarkers int) *MemoryFrameStore {
	return &MemoryFrameStore{
		expected: expectedMarkers,
		records:  make(map[int]*entity.FrameRecord),
	}
}

// Put сохраняет запись кадра; повторная запись того же кадра замещает старую.
func (s *MemoryFrameStore) Put(record *entity.FrameRecord) {
	s.mu.Lock()
	s.records[record.Index] = record
	s.mu.Unlock()
}

// Get возвращает запись по номеру кадра.
func (s *MemoryFrameStore) Get(frameIndex int) (*entity.FrameRecord, bool) {
	s.mu.RLock()
	record, ok := s.records[frameIndex]
	s.mu.RUnlock()
	return record, ok
}

// Indexes возвращает номера кадров по возрастанию.
func (s *MemoryFrameStore) Indexes() []int {
	s.mu.RLock()
	indexes := make([]int, 0, len(s.records))
	for idx := range s.records {
		indexes = append(indexes, idx)
	}
	s.mu.RUnlock()

	sort.Ints(indexes)
	return indexes
}

// Records возвращает записи, упорядоченные по номеру кадра.
func (s *MemoryFrameStore) Records() []*entity.FrameRecord {
	indexes := s.Indexes()

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*entity.FrameRecord, 0, len(indexes))
	for _, idx := range indexes {
		records = append(records, s.records[idx])
	}
	return records
}

// ExpectedMarkers возвращает число маркеров, при котором кадр считается полным.
func (s *MemoryFrameStore) ExpectedMarkers() int {
	return s.expected
}

// Проверка реализации интерфейса
var _ port.FrameStore = (*MemoryFrameStore)(nil)
