package vision

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"aruco-tracker/internal/domain/port"
)

var frameNumberRe = regexp.MustCompile(`(\d+)`)

// DirFrameSource источник кадров из каталога с изображениями.
// Номер кадра извлекается как первая последовательность цифр в имени
// файла; файлы без номера пропускаются. Кадры упорядочены по номеру.
type DirFrameSource struct {
	paths   []string
	numbers []int
}

// NewDirFrameSource сканирует каталог и строит список кадров.
func NewDirFrameSource(dir string) (*DirFrameSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	type frame struct {
		path   string
		number int
	}
	var frames []frame
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := frameNumberRe.FindString(entry.Name())
		if m == "" {
			continue
		}
		number, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		frames = append(frames, frame{
			path:   filepath.Join(dir, entry.Name()),
			number: number,
		})
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].number < frames[j].number })

	source := &DirFrameSource{
		paths:   make([]string, len(frames)),
		numbers: make([]int, len(frames)),
	}
	for i, f := range frames {
		source.paths[i] = f.path
		source.numbers[i] = f.number
	}
	return source, nil
}

// Frame возвращает изображение и номер кадра по индексу в последовательности.
func (s *DirFrameSource) Frame(i int) ([]byte, int, error) {
	if i < 0 || i >= len(s.paths) {
		return nil, 0, port.ErrNoMoreFrames
	}
	data, err := os.ReadFile(s.paths[i])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read frame %d: %w", s.numbers[i], err)
	}
	return data, s.numbers[i], nil
}

// TotalFrames возвращает число доступных кадров.
func (s *DirFrameSource) TotalFrames() int {
	return len(s.paths)
}

// Проверка реализации интерфейса
var _ port.FrameSource = (*DirFrameSource)(nil)
