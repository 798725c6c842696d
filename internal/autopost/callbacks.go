package autopost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/scheduler"
	"github.com/shaiso/Autopost/internal/telemetry"
)

// publishCallback публикует запланированный пост.
//
// Под m.mu заново проверяет, что пост существует, всё ещё SCHEDULED
// и job не устарел. Иначе ничего не делает.
func (m *Manager) publishCallback(ctx context.Context, job scheduler.Job) error {
	logger := m.jobLogger(ctx, job)

	m.mu.Lock()

	post, err := m.store.Get(job.PostID)
	if err != nil {
		m.mu.Unlock()
		logger.Warn("publish job fired for removed post, skipping")
		return nil
	}

	if post.Status != domain.PostStatusScheduled {
		m.mu.Unlock()
		logger.Warn("publish job fired for post that is not scheduled, skipping", "status", post.Status)
		return nil
	}

	pj, ok := m.jobs[post.ID]
	if !ok || pj.publish != job.ID {
		m.mu.Unlock()
		logger.Warn("stale publish job, skipping")
		return nil
	}
	pj.publish = uuid.Nil

	publishedAt := m.conv.Canonical(job.FireTime)
	post.MarkPublished(publishedAt)
	m.store.Upsert(post)

	events := []domain.Event{postEvent(domain.EventPostPublished, post, publishedAt)}
	if deleteAt, ok := post.DeleteAt(); ok {
		if ev, removed := m.armDelete(post, deleteAt); removed {
			events = append(events, ev)
		}
	}
	if pj.empty() {
		delete(m.jobs, post.ID)
	}

	saveErr := m.save()
	m.mu.Unlock()

	telemetry.PostsPublished.Inc()
	logger.Info("scheduled post published", "published_at", publishedAt)

	m.notify(events...)

	if saveErr != nil {
		return fmt.Errorf("publish post %s: %w", post.ID, saveErr)
	}
	return nil
}

// deleteCallback удаляет пост по истечении DeleteAfterHours.
// Пост, уже удалённый через DeletePost, — штатная ситуация: предупреждение и no-op.
func (m *Manager) deleteCallback(ctx context.Context, job scheduler.Job) error {
	logger := m.jobLogger(ctx, job)

	m.mu.Lock()

	post, err := m.store.Get(job.PostID)
	if err != nil {
		m.mu.Unlock()
		logger.Warn("delete job fired for already removed post, skipping")
		return nil
	}

	pj, ok := m.jobs[post.ID]
	if !ok || pj.delete != job.ID {
		m.mu.Unlock()
		logger.Warn("stale delete job, skipping")
		return nil
	}

	ev := m.removeLocked(post, domain.RemovalReasonExpired, m.conv.Canonical(job.FireTime))
	saveErr := m.save()
	m.mu.Unlock()

	logger.Info("expired post removed")

	m.notify(ev)

	if saveErr != nil {
		return fmt.Errorf("remove post %s: %w", post.ID, saveErr)
	}
	return nil
}

// jobLogger возвращает логгер job'а, положенный планировщиком в ctx.
func (m *Manager) jobLogger(ctx context.Context, job scheduler.Job) *slog.Logger {
	return telemetry.FromContextOr(ctx,
		telemetry.WithJobID(telemetry.WithPostID(m.logger, job.PostID), job.ID.String()))
}

// armDelete регистрирует delete job поста на момент at. Вызывается под m.mu.
//
// Если момент удаления уже наступил, пост удаляется сразу и возвращается
// событие удаления с removed=true.
func (m *Manager) armDelete(post *domain.Post, at time.Time) (ev domain.Event, removed bool) {
	jobID, err := m.sched.RegisterAt(at, scheduler.Tag{PostID: post.ID, Kind: domain.JobKindDelete}, m.deleteCallback)
	if err == nil {
		pj, ok := m.jobs[post.ID]
		if !ok {
			pj = &postJobs{}
			m.jobs[post.ID] = pj
		}
		pj.delete = jobID
		return domain.Event{}, false
	}

	logger := telemetry.WithPostID(m.logger, post.ID)

	if errors.Is(err, domain.ErrNotInFuture) {
		logger.Info("delete time already passed, removing post", "delete_at", at)
		return m.removeLocked(post, domain.RemovalReasonExpired, m.conv.Now()), true
	}

	logger.Warn("failed to arm delete job", "delete_at", at, "error", err)
	return domain.Event{}, false
}
