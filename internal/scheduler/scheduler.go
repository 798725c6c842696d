package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/telemetry"
)

// Callback — действие job'а. Вызывается из горутины dispatcher.
type Callback func(ctx context.Context, job Job) error

// Tag — к какому посту и действию относится job.
type Tag struct {
	PostID string
	Kind   domain.JobKind
}

// Job — зарегистрированный одноразовый job.
type Job struct {
	ID       uuid.UUID
	PostID   string
	Kind     domain.JobKind
	FireTime time.Time
}

// Info возвращает описание job'а для внешних потребителей.
func (j Job) Info() domain.JobInfo {
	return domain.JobInfo{
		ID:       j.ID,
		PostID:   j.PostID,
		Kind:     j.Kind,
		FireTime: j.FireTime,
	}
}

// Scheduler — планировщик одноразовых job'ов.
type Scheduler struct {
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location

	mu      sync.Mutex
	queue   jobHeap
	byID    map[uuid.UUID]*entry
	seq     uint64
	running bool
	stopped bool

	wakeCh     chan struct{}
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	Logger   *slog.Logger
	Now      func() time.Time // источник времени (default: time.Now)
	Location *time.Location   // зона, в которой хранится FireTime (default: UTC)
}

// New создаёт новый Scheduler. Для приёма job'ов нужно вызвать Start.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		logger: logger,
		now:    now,
		loc:    loc,
		byID:   make(map[uuid.UUID]*entry),
		wakeCh: make(chan struct{}, 1),
	}
}

// Start запускает горутину dispatcher.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	s.logger.Info("scheduler started")
	return nil
}

// Stop останавливает dispatcher и ждёт завершения выполняющегося callback'а.
// Ожидающие job'ы отбрасываются. После возврата ни один job не сработает.
// Повторный вызов — no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.running = false
	cancel := s.cancelFunc
	s.mu.Unlock()

	s.logger.Info("stopping scheduler...")

	if cancel != nil {
		cancel()
	}

	// Ждём завершения dispatcher (и callback'а, если он выполняется)
	s.wg.Wait()

	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	s.byID = make(map[uuid.UUID]*entry)
	s.mu.Unlock()

	telemetry.JobsPending.Sub(float64(dropped))

	s.logger.Info("scheduler stopped", "dropped_jobs", dropped)
}

// IsRunning проверяет, принимает ли планировщик job'ы.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RegisterAt регистрирует одноразовый вызов fn в момент fireTime.
//
// fireTime должен быть строго в будущем: иначе ValidationError.
// Если планировщик не запущен — ErrNotRunning.
func (s *Scheduler) RegisterAt(fireTime time.Time, tag Tag, fn Callback) (uuid.UUID, error) {
	if fn == nil {
		return uuid.Nil, domain.NewValidationError("callback", "callback is nil", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return uuid.Nil, ErrNotRunning
	}

	now := s.now()
	if !fireTime.After(now) {
		return uuid.Nil, domain.NewValidationError("fire_time",
			fmt.Sprintf("fire time %s is not after now %s", fireTime.Format(time.RFC3339), now.Format(time.RFC3339)),
			domain.ErrNotInFuture,
		)
	}

	s.seq++
	e := &entry{
		job: Job{
			ID:       uuid.New(),
			PostID:   tag.PostID,
			Kind:     tag.Kind,
			FireTime: fireTime.In(s.loc),
		},
		fn:  fn,
		seq: s.seq,
	}

	heap.Push(&s.queue, e)
	s.byID[e.job.ID] = e
	telemetry.JobsPending.Inc()

	// Будим dispatcher, если новый job стал ближайшим
	if s.queue[0] == e {
		s.wake()
	}

	s.logger.Debug("job registered",
		"job_id", e.job.ID,
		"post_id", tag.PostID,
		"kind", tag.Kind,
		"fire_time", e.job.FireTime,
	)

	return e.job.ID, nil
}

// Cancel отменяет job. Идемпотентен: отмена неизвестного, уже сработавшего
// или уже отменённого job'а — no-op. Возвращает true, если job был снят.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return false
	}

	wasFirst := e.index == 0
	heap.Remove(&s.queue, e.index)
	delete(s.byID, id)
	telemetry.JobsPending.Dec()

	if wasFirst {
		s.wake()
	}

	s.logger.Debug("job cancelled", "job_id", id, "post_id", e.job.PostID, "kind", e.job.Kind)
	return true
}

// Pending возвращает ожидающий job по ID.
func (s *Scheduler) Pending(id uuid.UUID) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// ListPending возвращает ожидающие job'ы в порядке срабатывания.
func (s *Scheduler) ListPending() []Job {
	s.mu.Lock()
	entries := make([]*entry, len(s.queue))
	copy(entries, s.queue)
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].before(entries[j]) })

	jobs := make([]Job, len(entries))
	for i, e := range entries {
		jobs[i] = e.job
	}
	return jobs
}

// Len возвращает количество ожидающих job'ов.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// wake будит dispatcher. Вызывается под s.mu.
func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// loop — цикл dispatcher.
func (s *Scheduler) loop(ctx context.Context) {
	for {
		due, wait, ok := s.next(ctx)
		if !ok {
			return
		}

		if due != nil {
			s.run(ctx, due)
			continue
		}

		var timerC <-chan time.Time
		var timer *time.Timer
		if wait > 0 {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
		case <-s.wakeCh:
		case <-timerC:
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

// next снимает с очереди job, время которого наступило.
// Если такого нет, возвращает время ожидания до ближайшего (0 — очередь пуста).
// ok=false — dispatcher должен завершиться.
func (s *Scheduler) next(ctx context.Context) (*entry, time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || !s.running {
		return nil, 0, false
	}

	if len(s.queue) == 0 {
		return nil, 0, true
	}

	top := s.queue[0]
	wait := top.job.FireTime.Sub(s.now())
	if wait > 0 {
		return nil, wait, true
	}

	heap.Pop(&s.queue)
	delete(s.byID, top.job.ID)
	telemetry.JobsPending.Dec()

	return top, 0, true
}

// run выполняет callback job'а. Ошибки и паники изолированы.
func (s *Scheduler) run(ctx context.Context, e *entry) {
	logger := telemetry.WithJobID(telemetry.WithPostID(s.logger, e.job.PostID), e.job.ID.String()).
		With("kind", e.job.Kind)
	ctx = telemetry.WithLogger(ctx, logger)

	kind := string(e.job.Kind)
	telemetry.JobsFired.WithLabelValues(kind).Inc()

	lateness := s.now().Sub(e.job.FireTime)
	if err := s.invoke(ctx, e); err != nil {
		telemetry.JobFailures.WithLabelValues(kind).Inc()
		logger.Error("job callback failed", "error", err)
		return
	}

	logger.Debug("job fired", "lateness", lateness)
}

// invoke вызывает callback, превращая панику в ошибку.
func (s *Scheduler) invoke(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()

	return e.fn(ctx, e.job)
}
