package autopost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/scheduler"
	"github.com/shaiso/Autopost/internal/store"
	"github.com/shaiso/Autopost/internal/telemetry"
	"github.com/shaiso/Autopost/internal/timezone"
)

// Default configuration values.
const (
	DefaultStoragePath   = "posts.json"
	defaultNotifyTimeout = 5 * time.Second
	notifyQueueSize      = 256
)

// Режимы создания поста (метка autopost_posts_created_total).
const (
	modeImmediate = "immediate"
	modeScheduled = "scheduled"
)

// Manager управляет жизненным циклом постов.
type Manager struct {
	conv     *timezone.Converter
	store    *store.FileStore
	sched    *scheduler.Scheduler
	notifier Notifier

	defaultDeleteAfter *float64
	notifyTimeout      time.Duration

	// Критическая секция: store + jobs + closed
	mu     sync.Mutex
	jobs   map[string]*postJobs // postID → job'ы поста
	closed bool

	// Очередь событий для Notifier: доставка идёт в отдельной горутине,
	// чтобы медленный Notifier не задерживал dispatcher планировщика
	notifyMu     sync.Mutex
	notifyCh     chan []domain.Event
	notifyClosed bool
	notifyDone   chan struct{}

	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// postJobs — ожидающие job'ы одного поста. uuid.Nil — job'а нет.
type postJobs struct {
	publish uuid.UUID
	delete  uuid.UUID
}

func (j *postJobs) empty() bool {
	return j.publish == uuid.Nil && j.delete == uuid.Nil
}

// Config — конфигурация Manager.
type Config struct {
	// StoragePath — путь к JSON-файлу постов (default: posts.json).
	StoragePath string

	// CanonicalZone — зона, в которой хранятся все времена (default: UTC+07:00).
	CanonicalZone string

	// DefaultDeleteAfterHours применяется, если запрос не указал DeleteAfterHours.
	// Nil или 0 — не удалять.
	DefaultDeleteAfterHours *float64

	// Notifier получает события переходов (default: NopNotifier).
	Notifier Notifier

	// NotifyTimeout — таймаут одного вызова Notifier (default: 5s).
	NotifyTimeout time.Duration

	// Now — источник текущего времени (default: time.Now).
	Now func() time.Time

	Logger *slog.Logger
}

// PublishRequest — запрос немедленной публикации.
type PublishRequest struct {
	Content string

	// DeleteAfterHours — через сколько часов удалить пост.
	// Nil — значение из конфигурации, 0 — не удалять.
	DeleteAfterHours *float64
}

// ScheduleRequest — запрос отложенной публикации.
type ScheduleRequest struct {
	Content string

	// At — время публикации. Naive значение интерпретируется в FromZone.
	At timezone.Timestamp

	// FromZone — зона naive времени (пусто — UTC). Для aware времени игнорируется.
	FromZone string

	DeleteAfterHours *float64
}

// New создаёт Manager: загружает хранилище и запускает планировщик.
// Повреждённый файл хранилища возвращается как StorageError.
func New(cfg Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conv, err := timezone.NewConverter(cfg.CanonicalZone, cfg.Now)
	if err != nil {
		return nil, fmt.Errorf("canonical zone: %w", err)
	}

	defaultDelete, err := normalizeHours(cfg.DefaultDeleteAfterHours)
	if err != nil {
		return nil, fmt.Errorf("default delete_after_hours: %w", err)
	}

	path := cfg.StoragePath
	if path == "" {
		path = DefaultStoragePath
	}

	st, err := store.Open(store.Config{
		Path:     path,
		Location: conv.Location(),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	notifyTimeout := cfg.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}

	sched := scheduler.New(scheduler.Config{
		Logger:   logger,
		Now:      conv.Now,
		Location: conv.Location(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	m := &Manager{
		conv:               conv,
		store:              st,
		sched:              sched,
		notifier:           notifier,
		defaultDeleteAfter: defaultDelete,
		notifyTimeout:      notifyTimeout,
		jobs:               make(map[string]*postJobs),
		notifyCh:           make(chan []domain.Event, notifyQueueSize),
		notifyDone:         make(chan struct{}),
		logger:             logger,
		ctx:                ctx,
		cancelFunc:         cancel,
	}
	go m.deliverLoop()

	if n := len(st.List(domain.PostStatusScheduled)); n > 0 {
		logger.Warn("scheduled posts loaded without publish jobs, missed firings are not replayed",
			"count", n,
		)
	}

	logger.Info("manager started",
		"storage", path,
		"posts", st.Len(),
		"zone", conv.Location().String(),
	)

	return m, nil
}

// Shutdown останавливает планировщик, дожидаясь выполняющегося callback'а,
// и сбрасывает хранилище на диск. После возврата ни один job не сработает.
// Очередь событий дочитывается не дольше NotifyTimeout, остаток отбрасывается.
// Повторный вызов — no-op.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("shutting down manager...")

	// Stop вызывается без m.mu: выполняющийся callback ждёт этот мьютекс
	m.sched.Stop()

	m.mu.Lock()
	m.jobs = make(map[string]*postJobs)
	err := m.save()
	m.mu.Unlock()

	m.notifyMu.Lock()
	m.notifyClosed = true
	close(m.notifyCh)
	m.notifyMu.Unlock()

	select {
	case <-m.notifyDone:
	case <-time.After(m.notifyTimeout):
		m.logger.Warn("notify queue not drained in time, dropping remaining events")
	}

	m.cancelFunc()
	<-m.notifyDone

	m.logger.Info("manager stopped")
	return err
}

// PublishPost создаёт опубликованный пост с PublishedAt = текущее время.
// Если задано время удаления, регистрирует delete job.
//
// При ошибке записи файла возвращает ID вместе с StorageError:
// пост уже в памяти и будет сохранён следующей операцией.
func (m *Manager) PublishPost(req PublishRequest) (string, error) {
	if err := validateContent(req.Content); err != nil {
		return "", err
	}

	hours, err := m.resolveHours(req.DeleteAfterHours)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}

	now := m.conv.Now()
	post := &domain.Post{
		ID:               uuid.NewString(),
		Content:          req.Content,
		Status:           domain.PostStatusPublished,
		PublishedAt:      &now,
		DeleteAfterHours: hours,
		CreatedAt:        now,
	}
	m.store.Upsert(post)

	events := []domain.Event{postEvent(domain.EventPostPublished, post, now)}
	if deleteAt, ok := post.DeleteAt(); ok {
		if ev, removed := m.armDelete(post, deleteAt); removed {
			events = append(events, ev)
		}
	}

	saveErr := m.save()
	m.mu.Unlock()

	telemetry.PostsCreated.WithLabelValues(modeImmediate).Inc()
	telemetry.WithPostID(m.logger, post.ID).Info("post published", "published_at", now)

	m.notify(events...)
	return post.ID, saveErr
}

// PublishPostAt создаёт пост, запланированный на req.At, и регистрирует publish job.
// Время переводится в каноническую зону и должно быть строго в будущем.
func (m *Manager) PublishPostAt(req ScheduleRequest) (string, error) {
	if err := validateContent(req.Content); err != nil {
		return "", err
	}

	hours, err := m.resolveHours(req.DeleteAfterHours)
	if err != nil {
		return "", err
	}

	if req.At.IsZero() {
		return "", domain.NewValidationError("time", "publication time is required", nil)
	}

	when, err := m.conv.Convert(req.At, req.FromZone)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}

	now := m.conv.Now()
	if !when.After(now) {
		m.mu.Unlock()
		return "", domain.NewValidationError("time",
			fmt.Sprintf("publication time %s is not after now %s", when.Format(time.RFC3339), now.Format(time.RFC3339)),
			domain.ErrNotInFuture,
		)
	}

	// Job регистрируется до вставки поста: при ошибке не остаётся ни поста, ни job'а.
	// Callback не сработает раньше вставки, так как ждёт m.mu.
	postID := uuid.NewString()
	jobID, err := m.sched.RegisterAt(when, scheduler.Tag{PostID: postID, Kind: domain.JobKindPublish}, m.publishCallback)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}

	post := &domain.Post{
		ID:               postID,
		Content:          req.Content,
		Status:           domain.PostStatusScheduled,
		ScheduledFor:     &when,
		DeleteAfterHours: hours,
		CreatedAt:        now,
	}
	m.store.Upsert(post)
	m.jobs[postID] = &postJobs{publish: jobID}

	saveErr := m.save()
	m.mu.Unlock()

	telemetry.PostsCreated.WithLabelValues(modeScheduled).Inc()
	telemetry.WithPostID(m.logger, postID).Info("post scheduled", "scheduled_for", when, "job_id", jobID)

	m.notify(postEvent(domain.EventPostScheduled, post, when))
	return postID, saveErr
}

// DeletePost удаляет пост и отменяет его job'ы.
// Отсутствующий пост — ошибка ErrNotFound.
func (m *Manager) DeletePost(id string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	post, err := m.store.Get(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	ev := m.removeLocked(post, domain.RemovalReasonUser, m.conv.Now())
	saveErr := m.save()
	m.mu.Unlock()

	telemetry.WithPostID(m.logger, id).Info("post deleted", "reason", domain.RemovalReasonUser)

	m.notify(ev)
	return saveErr
}

// GetPost возвращает копию поста.
func (m *Manager) GetPost(id string) (*domain.Post, error) {
	return m.store.Get(id)
}

// ListPosts возвращает посты в порядке создания. Пустой status — все посты.
func (m *Manager) ListPosts(status domain.PostStatus) []*domain.Post {
	return m.store.List(status)
}

// JobsInfo возвращает ожидающие job'ы в порядке срабатывания.
func (m *Manager) JobsInfo() []domain.JobInfo {
	pending := m.sched.ListPending()
	infos := make([]domain.JobInfo, len(pending))
	for i, job := range pending {
		infos[i] = job.Info()
	}
	return infos
}

// CurrentTime возвращает текущее время в канонической зоне.
func (m *Manager) CurrentTime() time.Time {
	return m.conv.Now()
}

// ConvertTime переводит ts в каноническую зону.
func (m *Manager) ConvertTime(ts timezone.Timestamp, fromZone string) (time.Time, error) {
	return m.conv.Convert(ts, fromZone)
}

// Location возвращает каноническую зону.
func (m *Manager) Location() *time.Location {
	return m.conv.Location()
}

// removeLocked удаляет пост и отменяет его job'ы. Вызывается под m.mu.
func (m *Manager) removeLocked(post *domain.Post, reason domain.RemovalReason, at time.Time) domain.Event {
	if pj, ok := m.jobs[post.ID]; ok {
		if pj.publish != uuid.Nil {
			m.sched.Cancel(pj.publish)
		}
		if pj.delete != uuid.Nil {
			m.sched.Cancel(pj.delete)
		}
		delete(m.jobs, post.ID)
	}

	m.store.Remove(post.ID)
	telemetry.PostsRemoved.WithLabelValues(string(reason)).Inc()

	ev := postEvent(domain.EventPostDeleted, post, at)
	ev.Reason = reason
	return ev
}

// save записывает хранилище. Вызывается под m.mu.
func (m *Manager) save() error {
	if err := m.store.Save(); err != nil {
		telemetry.StoreSaveErrors.Inc()
		m.logger.Error("failed to save posts", "error", err)
		return err
	}
	return nil
}

// notify ставит события в очередь доставки и не блокируется.
// Вызывается без m.mu. При переполненной очереди события отбрасываются.
func (m *Manager) notify(events ...domain.Event) {
	if len(events) == 0 {
		return
	}

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	if m.notifyClosed {
		m.logger.Warn("manager is shut down, dropping events", "count", len(events))
		return
	}

	select {
	case m.notifyCh <- events:
	default:
		telemetry.NotifyDropped.Add(float64(len(events)))
		m.logger.Warn("notify queue is full, dropping events", "count", len(events))
	}
}

// deliverLoop передаёт события Notifier'у в порядке постановки в очередь.
// Ошибки логируются и не влияют на результат операций.
func (m *Manager) deliverLoop() {
	defer close(m.notifyDone)

	for events := range m.notifyCh {
		for _, ev := range events {
			if m.ctx.Err() != nil {
				telemetry.NotifyDropped.Inc()
				continue
			}

			ctx, cancel := context.WithTimeout(m.ctx, m.notifyTimeout)
			err := m.notifier.Notify(ctx, ev)
			cancel()

			if err != nil {
				m.logger.Warn("failed to notify",
					"type", ev.Type,
					"post_id", ev.PostID,
					"error", err,
				)
			}
		}
	}
}

// resolveHours применяет значение по умолчанию и нормализует 0 в nil.
func (m *Manager) resolveHours(hours *float64) (*float64, error) {
	if hours == nil {
		if m.defaultDeleteAfter == nil {
			return nil, nil
		}
		h := *m.defaultDeleteAfter
		return &h, nil
	}
	return normalizeHours(hours)
}

func normalizeHours(hours *float64) (*float64, error) {
	if hours == nil {
		return nil, nil
	}

	h := *hours
	if !domain.ValidDeleteAfterHours(h) {
		return nil, hoursError(h)
	}
	if h == 0 {
		return nil, nil
	}
	return &h, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return contentError()
	}
	return nil
}

func postEvent(typ domain.EventType, post *domain.Post, at time.Time) domain.Event {
	return domain.Event{
		Type:    typ,
		PostID:  post.ID,
		Content: post.Content,
		At:      at,
	}
}
