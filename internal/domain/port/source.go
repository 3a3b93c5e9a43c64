package port

import "errors"

// ErrNoMoreFrames сообщает, что источник кадров исчерпан.
var ErrNoMoreFrames = errors.New("no more frames")

// FrameSource источник кадров с доступом по порядковому индексу.
// Реализация должна допускать одновременные вызовы Frame из
// нескольких горутин.
type FrameSource interface {
	// Frame возвращает изображение и номер кадра по индексу в последовательности
	Frame(i int) ([]byte, int, error)

	// TotalFrames возвращает число доступных кадров
	TotalFrames() int
}
