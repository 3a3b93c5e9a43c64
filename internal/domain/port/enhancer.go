package port

// ContrastEnhancer интерфейс усилителя локального контраста.
// Чистая функция от (изображение, уровень): уровень 0 возвращает
// исходное изображение, более высокие уровни усиливают контраст
// агрессивнее ценой возможного шума.
type ContrastEnhancer interface {
	// Enhance возвращает вариант изображения для заданного уровня
	Enhance(image []byte, level int) ([]byte, error)
}
