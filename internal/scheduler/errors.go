package scheduler

import (
	"errors"
	"fmt"

	"github.com/shaiso/Autopost/internal/domain"
)

// Ошибки планировщика.
var (
	// ErrNotRunning — планировщик не запущен или уже остановлен.
	ErrNotRunning = fmt.Errorf("%w: scheduler is not running", domain.ErrScheduling)

	// ErrAlreadyRunning — повторный Start.
	ErrAlreadyRunning = fmt.Errorf("%w: scheduler already running", domain.ErrScheduling)

	// ErrStopped — Start после Stop. Остановленный планировщик не перезапускается.
	ErrStopped = fmt.Errorf("%w: scheduler stopped", domain.ErrScheduling)

	// ErrCallbackPanic — callback job'а запаниковал.
	ErrCallbackPanic = errors.New("job callback panicked")
)
