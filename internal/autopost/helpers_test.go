package autopost

import (
	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/scheduler"
)

func schedulerJob(info domain.JobInfo) scheduler.Job {
	return scheduler.Job{
		ID:       info.ID,
		PostID:   info.PostID,
		Kind:     info.Kind,
		FireTime: info.FireTime,
	}
}
