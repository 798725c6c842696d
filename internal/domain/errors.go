package domain

import "errors"

// Виды ошибок. Любая ошибка системы сопоставляется с одним из них через errors.Is.
var (
	// ErrValidation — некорректный ввод (пустой контент, время не в будущем, неизвестная зона).
	ErrValidation = errors.New("validation error")

	// ErrStorage — ошибка ввода-вывода или повреждённый файл хранилища.
	ErrStorage = errors.New("storage error")

	// ErrScheduling — планировщик не запущен или handle некорректен.
	ErrScheduling = errors.New("scheduling error")

	// ErrNotFound — пост с таким ID не найден.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration — некорректная конфигурация (например, имя зоны).
	ErrConfiguration = errors.New("configuration error")
)

// Частные ошибки валидации.
var (
	// ErrEmptyContent — пустой текст поста.
	ErrEmptyContent = errors.New("content is empty")

	// ErrNotInFuture — время публикации не в будущем.
	ErrNotInFuture = errors.New("time is not in the future")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "invalid " + e.Field + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// StorageError — ошибка хранилища с контекстом операции.
type StorageError struct {
	Op   string // load, save
	Path string // путь к файлу
	Err  error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *StorageError) Error() string {
	msg := "storage " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap возвращает базовую ошибку.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
