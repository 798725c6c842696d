package store

import (
	"errors"
	"fmt"

	"github.com/shaiso/Autopost/internal/domain"
)

// Ошибки хранилища.
var (
	// ErrNotFound — пост не найден.
	ErrNotFound = fmt.Errorf("post %w", domain.ErrNotFound)

	// ErrMalformed — файл существует, но не является корректным хранилищем.
	ErrMalformed = errors.New("malformed storage file")
)

func storageError(op, path string, err error) error {
	return &domain.StorageError{Op: op, Path: path, Err: err}
}
