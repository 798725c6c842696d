package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Autopost/internal/autopost"
	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/timezone"
)

// Service — операции над постами, которые используют команды.
type Service interface {
	PublishPost(req autopost.PublishRequest) (string, error)
	PublishPostAt(req autopost.ScheduleRequest) (string, error)
	DeletePost(id string) error
	GetPost(id string) (*domain.Post, error)
	ListPosts(status domain.PostStatus) []*domain.Post
	JobsInfo() []domain.JobInfo
	CurrentTime() time.Time
	ConvertTime(ts timezone.Timestamp, fromZone string) (time.Time, error)
	Location() *time.Location
}

var _ Service = (*autopost.Manager)(nil)

// ServiceFunc лениво возвращает Service.
type ServiceFunc func() (Service, error)

// OutputFunc возвращает Output для команды cmd с учётом глобальных флагов.
// Реализации пишут в cmd.OutOrStdout() и cmd.ErrOrStderr().
type OutputFunc func(cmd *cobra.Command) *Output

// CommandOutput — OutputFunc, пишущий в writer'ы команды.
func CommandOutput(jsonMode func() bool) OutputFunc {
	return func(cmd *cobra.Command) *Output {
		return NewOutputTo(jsonMode(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	}
}
