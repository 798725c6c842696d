package autopost

import (
	"fmt"

	"github.com/shaiso/Autopost/internal/domain"
)

// Ошибки Manager.
var (
	// ErrClosed — Manager остановлен через Shutdown.
	ErrClosed = fmt.Errorf("%w: manager is shut down", domain.ErrScheduling)
)

func contentError() error {
	return domain.NewValidationError("content", "post content is empty", domain.ErrEmptyContent)
}

func hoursError(hours float64) error {
	return domain.NewValidationError("delete_after_hours",
		fmt.Sprintf("delete_after_hours must be between 0 and %v, got %v", domain.MaxDeleteAfterHours, hours), nil)
}
