package autopost

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/store"
	"github.com/shaiso/Autopost/internal/telemetry"
	"github.com/shaiso/Autopost/internal/timezone"
)

// recordingNotifier запоминает события.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]domain.EventType, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

func (r *recordingNotifier) event(i int) domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[i]
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	if cfg.StoragePath == "" {
		cfg.StoragePath = filepath.Join(t.TempDir(), "posts.json")
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.DiscardLogger()
	}

	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

// waitFor ждёт выполнения условия.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func hours(h float64) *float64 { return &h }

// durationHours переводит duration в часы для DeleteAfterHours.
func durationHours(d time.Duration) *float64 { return hours(d.Hours()) }

// --- New Tests ---

func TestNew_DefaultZone(t *testing.T) {
	m := newTestManager(t, Config{})

	_, offset := m.CurrentTime().Zone()
	if offset != 7*3600 {
		t.Errorf("canonical offset = %d, want %d", offset, 7*3600)
	}
	if got := m.Location().String(); got != timezone.DefaultCanonicalZone {
		t.Errorf("Location() = %q, want %q", got, timezone.DefaultCanonicalZone)
	}
}

func TestNew_UnknownZone(t *testing.T) {
	_, err := New(Config{
		StoragePath:   filepath.Join(t.TempDir(), "posts.json"),
		CanonicalZone: "Mars/Olympus",
		Logger:        telemetry.DiscardLogger(),
	})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestNew_NegativeDefaultHours(t *testing.T) {
	_, err := New(Config{
		StoragePath:             filepath.Join(t.TempDir(), "posts.json"),
		DefaultDeleteAfterHours: hours(-1),
		Logger:                  telemetry.DiscardLogger(),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestNew_MalformedStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Config{StoragePath: path, Logger: telemetry.DiscardLogger()})
	if !errors.Is(err, domain.ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "{not json" {
		t.Error("malformed file must not be overwritten")
	}
}

// --- PublishPost Tests ---

func TestPublishPost(t *testing.T) {
	m := newTestManager(t, Config{})

	id, err := m.PublishPost(PublishRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("PublishPost() error = %v", err)
	}

	post, err := m.GetPost(id)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if post.Status != domain.PostStatusPublished {
		t.Errorf("Status = %s, want published", post.Status)
	}
	if post.PublishedAt == nil {
		t.Fatal("PublishedAt should be set")
	}
	if diff := m.CurrentTime().Sub(*post.PublishedAt); diff < 0 || diff > time.Second {
		t.Errorf("PublishedAt is %v away from now", diff)
	}
	if post.ScheduledFor != nil {
		t.Error("ScheduledFor should be nil for published post")
	}
	if err := post.Validate(); err != nil {
		t.Errorf("post violates invariants: %v", err)
	}
	if len(m.JobsInfo()) != 0 {
		t.Errorf("no jobs expected, got %d", len(m.JobsInfo()))
	}
}

func TestPublishPost_Validation(t *testing.T) {
	m := newTestManager(t, Config{})

	tests := []struct {
		name string
		req  PublishRequest
	}{
		{"empty content", PublishRequest{Content: ""}},
		{"blank content", PublishRequest{Content: "  \n\t"}},
		{"negative hours", PublishRequest{Content: "x", DeleteAfterHours: hours(-2)}},
		{"overflowing hours", PublishRequest{Content: "x", DeleteAfterHours: hours(1e7)}},
		{"infinite hours", PublishRequest{Content: "x", DeleteAfterHours: hours(math.Inf(1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := m.PublishPost(tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if id != "" {
				t.Errorf("id = %q, want empty", id)
			}
		})
	}

	if n := len(m.ListPosts("")); n != 0 {
		t.Errorf("rejected requests created %d posts", n)
	}
}

func TestPublishPost_EmptyContentKind(t *testing.T) {
	m := newTestManager(t, Config{})

	_, err := m.PublishPost(PublishRequest{})
	if !errors.Is(err, domain.ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
}

func TestPublishPost_ArmsDeleteJob(t *testing.T) {
	m := newTestManager(t, Config{})

	id, err := m.PublishPost(PublishRequest{Content: "bye", DeleteAfterHours: hours(2)})
	if err != nil {
		t.Fatal(err)
	}

	jobs := m.JobsInfo()
	if len(jobs) != 1 {
		t.Fatalf("JobsInfo() len = %d, want 1", len(jobs))
	}

	post, _ := m.GetPost(id)
	want := post.PublishedAt.Add(2 * time.Hour)
	if jobs[0].Kind != domain.JobKindDelete || jobs[0].PostID != id {
		t.Errorf("unexpected job %+v", jobs[0])
	}
	if !jobs[0].FireTime.Equal(want) {
		t.Errorf("FireTime = %v, want %v", jobs[0].FireTime, want)
	}
}

func TestPublishPost_MaxDeleteHours(t *testing.T) {
	m := newTestManager(t, Config{})

	id, err := m.PublishPost(PublishRequest{Content: "long", DeleteAfterHours: hours(domain.MaxDeleteAfterHours)})
	if err != nil {
		t.Fatal(err)
	}

	post, err := m.GetPost(id)
	if err != nil {
		t.Fatalf("post removed right after publish: %v", err)
	}

	jobs := m.JobsInfo()
	if len(jobs) != 1 {
		t.Fatalf("JobsInfo() len = %d, want 1", len(jobs))
	}
	if !jobs[0].FireTime.After(*post.PublishedAt) {
		t.Errorf("delete FireTime %v is not after PublishedAt %v", jobs[0].FireTime, *post.PublishedAt)
	}
}

func TestPublishPost_DefaultDeleteHours(t *testing.T) {
	m := newTestManager(t, Config{DefaultDeleteAfterHours: hours(24)})

	id, err := m.PublishPost(PublishRequest{Content: "default"})
	if err != nil {
		t.Fatal(err)
	}
	post, _ := m.GetPost(id)
	if post.DeleteAfterHours == nil || *post.DeleteAfterHours != 24 {
		t.Errorf("DeleteAfterHours = %v, want 24", post.DeleteAfterHours)
	}

	// Явный 0 отключает автоудаление
	id, err = m.PublishPost(PublishRequest{Content: "keep", DeleteAfterHours: hours(0)})
	if err != nil {
		t.Fatal(err)
	}
	post, _ = m.GetPost(id)
	if post.DeleteAfterHours != nil {
		t.Errorf("DeleteAfterHours = %v, want nil", *post.DeleteAfterHours)
	}

	if n := len(m.JobsInfo()); n != 1 {
		t.Errorf("JobsInfo() len = %d, want 1", n)
	}
}

func TestPublishPost_AutoDelete(t *testing.T) {
	rec := &recordingNotifier{}
	m := newTestManager(t, Config{Notifier: rec})

	id, err := m.PublishPost(PublishRequest{Content: "short-lived", DeleteAfterHours: durationHours(50 * time.Millisecond)})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, 3*time.Second, func() bool {
		_, err := m.GetPost(id)
		return errors.Is(err, domain.ErrNotFound)
	})

	if n := len(m.JobsInfo()); n != 0 {
		t.Errorf("JobsInfo() len = %d, want 0", n)
	}

	waitFor(t, time.Second, func() bool { return len(rec.types()) == 2 })
	got := rec.types()
	if got[0] != domain.EventPostPublished || got[1] != domain.EventPostDeleted {
		t.Errorf("events = %v", got)
	}
	if rec.event(1).Reason != domain.RemovalReasonExpired {
		t.Errorf("Reason = %q, want expired", rec.event(1).Reason)
	}
}

// --- PublishPostAt Tests ---

func TestPublishPostAt(t *testing.T) {
	m := newTestManager(t, Config{})

	at := m.CurrentTime().Add(time.Hour)
	id, err := m.PublishPostAt(ScheduleRequest{Content: "later", At: timezone.Aware(at)})
	if err != nil {
		t.Fatalf("PublishPostAt() error = %v", err)
	}

	post, _ := m.GetPost(id)
	if post.Status != domain.PostStatusScheduled {
		t.Errorf("Status = %s, want scheduled", post.Status)
	}
	if post.ScheduledFor == nil || !post.ScheduledFor.Equal(at) {
		t.Errorf("ScheduledFor = %v, want %v", post.ScheduledFor, at)
	}
	if post.PublishedAt != nil {
		t.Error("PublishedAt should be nil for scheduled post")
	}
	if _, offset := post.ScheduledFor.Zone(); offset != 7*3600 {
		t.Errorf("ScheduledFor offset = %d, want canonical", offset)
	}

	jobs := m.JobsInfo()
	if len(jobs) != 1 || jobs[0].Kind != domain.JobKindPublish || jobs[0].PostID != id {
		t.Errorf("JobsInfo() = %+v, want one publish job", jobs)
	}
}

func TestPublishPostAt_NaiveInZone(t *testing.T) {
	m := newTestManager(t, Config{})

	// 15:30 по Москве через год — 19:30 в UTC+7
	year := m.CurrentTime().Year() + 1
	id, err := m.PublishPostAt(ScheduleRequest{
		Content:  "moscow",
		At:       timezone.NaiveDate(year, time.February, 23, 15, 30, 0),
		FromZone: "Europe/Moscow",
	})
	if err != nil {
		t.Fatal(err)
	}

	post, _ := m.GetPost(id)
	got := post.ScheduledFor
	if got.Hour() != 19 || got.Minute() != 30 {
		t.Errorf("ScheduledFor = %v, want 19:30 canonical", got)
	}
}

func TestPublishPostAt_Rejected(t *testing.T) {
	m := newTestManager(t, Config{})
	now := m.CurrentTime()

	tests := []struct {
		name   string
		req    ScheduleRequest
		target error
	}{
		{"past", ScheduleRequest{Content: "x", At: timezone.Aware(now.Add(-time.Minute))}, domain.ErrNotInFuture},
		{"now", ScheduleRequest{Content: "x", At: timezone.Aware(now)}, domain.ErrNotInFuture},
		{"empty content", ScheduleRequest{Content: "", At: timezone.Aware(now.Add(time.Hour))}, domain.ErrEmptyContent},
		{"no time", ScheduleRequest{Content: "x"}, domain.ErrValidation},
		{"unknown zone", ScheduleRequest{Content: "x", At: timezone.NaiveDate(2099, 1, 1, 0, 0, 0), FromZone: "Nowhere/City"}, timezone.ErrUnknownZone},
		{"negative hours", ScheduleRequest{Content: "x", At: timezone.Aware(now.Add(time.Hour)), DeleteAfterHours: hours(-1)}, domain.ErrValidation},
		{"overflowing hours", ScheduleRequest{Content: "x", At: timezone.Aware(now.Add(time.Hour)), DeleteAfterHours: hours(3e6)}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := m.PublishPostAt(tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
			if id != "" {
				t.Errorf("id = %q, want empty", id)
			}
		})
	}

	if n := len(m.ListPosts("")); n != 0 {
		t.Errorf("rejected requests created %d posts", n)
	}
	if n := len(m.JobsInfo()); n != 0 {
		t.Errorf("rejected requests created %d jobs", n)
	}
}

func TestPublishPostAt_FiresOnce(t *testing.T) {
	rec := &recordingNotifier{}
	m := newTestManager(t, Config{Notifier: rec})

	at := m.CurrentTime().Add(80 * time.Millisecond)
	id, err := m.PublishPostAt(ScheduleRequest{Content: "soon", At: timezone.Aware(at)})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, 3*time.Second, func() bool {
		post, err := m.GetPost(id)
		return err == nil && post.Status == domain.PostStatusPublished
	})

	post, _ := m.GetPost(id)
	if !post.PublishedAt.Equal(at) {
		t.Errorf("PublishedAt = %v, want fire time %v", post.PublishedAt, at)
	}
	if post.ScheduledFor != nil {
		t.Error("ScheduledFor should be cleared after publication")
	}
	if n := len(m.JobsInfo()); n != 0 {
		t.Errorf("publish job should disappear, JobsInfo() len = %d", n)
	}

	time.Sleep(100 * time.Millisecond)
	published := 0
	for _, typ := range rec.types() {
		if typ == domain.EventPostPublished {
			published++
		}
	}
	if published != 1 {
		t.Errorf("post published %d times, want 1", published)
	}
}

func TestPublishPostAt_PublishThenDelete(t *testing.T) {
	rec := &recordingNotifier{}
	m := newTestManager(t, Config{Notifier: rec})

	at := m.CurrentTime().Add(50 * time.Millisecond)
	id, err := m.PublishPostAt(ScheduleRequest{
		Content:          "flash",
		At:               timezone.Aware(at),
		DeleteAfterHours: durationHours(50 * time.Millisecond),
	})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, 3*time.Second, func() bool {
		_, err := m.GetPost(id)
		return errors.Is(err, domain.ErrNotFound)
	})

	waitFor(t, time.Second, func() bool { return len(rec.types()) == 3 })
	want := []domain.EventType{domain.EventPostScheduled, domain.EventPostPublished, domain.EventPostDeleted}
	for i, typ := range rec.types() {
		if typ != want[i] {
			t.Errorf("event %d = %s, want %s", i, typ, want[i])
		}
	}
}

// --- DeletePost Tests ---

func TestDeletePost_CancelsPublishJob(t *testing.T) {
	m := newTestManager(t, Config{})

	at := m.CurrentTime().Add(100 * time.Millisecond)
	id, err := m.PublishPostAt(ScheduleRequest{Content: "never", At: timezone.Aware(at), DeleteAfterHours: hours(1)})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.DeletePost(id); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if n := len(m.JobsInfo()); n != 0 {
		t.Errorf("jobs should be cancelled, JobsInfo() len = %d", n)
	}

	// Исходное время публикации проходит, пост не воскресает
	time.Sleep(250 * time.Millisecond)

	if _, err := m.GetPost(id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after fire time, got %v", err)
	}
	if n := len(m.ListPosts("")); n != 0 {
		t.Errorf("ListPosts() len = %d, want 0", n)
	}
}

func TestDeletePost_CancelsDeleteJob(t *testing.T) {
	rec := &recordingNotifier{}
	m := newTestManager(t, Config{Notifier: rec})

	id, err := m.PublishPost(PublishRequest{Content: "x", DeleteAfterHours: durationHours(100 * time.Millisecond)})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.DeletePost(id); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	got := rec.types()
	if len(got) != 2 {
		t.Fatalf("events = %v, want published and deleted", got)
	}
	if rec.event(1).Reason != domain.RemovalReasonUser {
		t.Errorf("Reason = %q, want user", rec.event(1).Reason)
	}
}

func TestDeletePost_NotFound(t *testing.T) {
	m := newTestManager(t, Config{})

	err := m.DeletePost("missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestDeletePost_Twice(t *testing.T) {
	m := newTestManager(t, Config{})

	id, _ := m.PublishPost(PublishRequest{Content: "x"})
	if err := m.DeletePost(id); err != nil {
		t.Fatal(err)
	}
	if err := m.DeletePost(id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

// --- Callback Tests ---

func TestDeleteCallback_RemovedPost(t *testing.T) {
	m := newTestManager(t, Config{})

	id, _ := m.PublishPost(PublishRequest{Content: "x", DeleteAfterHours: hours(1)})
	jobs := m.JobsInfo()
	if err := m.DeletePost(id); err != nil {
		t.Fatal(err)
	}

	// Job, снятый с очереди до DeletePost, срабатывает позже: no-op
	err := m.deleteCallback(context.Background(), schedulerJob(jobs[0]))
	if err != nil {
		t.Errorf("deleteCallback() error = %v, want nil", err)
	}
}

func TestPublishCallback_StaleJob(t *testing.T) {
	m := newTestManager(t, Config{})

	at := m.CurrentTime().Add(time.Hour)
	id, err := m.PublishPostAt(ScheduleRequest{Content: "x", At: timezone.Aware(at)})
	if err != nil {
		t.Fatal(err)
	}

	stale := schedulerJob(m.JobsInfo()[0])
	stale.ID = uuid.New()

	if err := m.publishCallback(context.Background(), stale); err != nil {
		t.Fatal(err)
	}

	post, _ := m.GetPost(id)
	if post.Status != domain.PostStatusScheduled {
		t.Errorf("stale job changed status to %s", post.Status)
	}
}

func TestPublishCallback_LogsToContextLogger(t *testing.T) {
	m := newTestManager(t, Config{})

	at := m.CurrentTime().Add(time.Hour)
	if _, err := m.PublishPostAt(ScheduleRequest{Content: "x", At: timezone.Aware(at)}); err != nil {
		t.Fatal(err)
	}

	stale := schedulerJob(m.JobsInfo()[0])
	stale.ID = uuid.New()

	var buf bytes.Buffer
	ctx := telemetry.WithLogger(context.Background(), telemetry.NewLogger(&buf, "info", "text", false))
	if err := m.publishCallback(ctx, stale); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "stale publish job") {
		t.Errorf("expected warning in context logger, got %q", buf.String())
	}
}

// --- Persistence Tests ---

func TestManager_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")

	m1, err := New(Config{StoragePath: path, Logger: telemetry.DiscardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	published, _ := m1.PublishPost(PublishRequest{Content: "one", DeleteAfterHours: hours(3)})
	scheduled, _ := m1.PublishPostAt(ScheduleRequest{
		Content: "two",
		At:      timezone.Aware(m1.CurrentTime().Add(time.Hour)),
	})
	if err := m1.Shutdown(); err != nil {
		t.Fatal(err)
	}

	m2 := newTestManager(t, Config{StoragePath: path})

	posts := m2.ListPosts("")
	if len(posts) != 2 {
		t.Fatalf("ListPosts() len = %d, want 2", len(posts))
	}
	if posts[0].ID != published || posts[1].ID != scheduled {
		t.Errorf("insertion order not preserved: %s, %s", posts[0].ID, posts[1].ID)
	}
	if posts[0].DeleteAfterHours == nil || *posts[0].DeleteAfterHours != 3 {
		t.Errorf("DeleteAfterHours = %v, want 3", posts[0].DeleteAfterHours)
	}

	// Job'ы не восстанавливаются после перезапуска
	if n := len(m2.JobsInfo()); n != 0 {
		t.Errorf("JobsInfo() len = %d, want 0", n)
	}
}

func TestManager_SaveFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "posts.json")
	m := newTestManager(t, Config{StoragePath: path})

	// Каталог подменяется файлом, запись становится невозможной
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := m.PublishPost(PublishRequest{Content: "in memory"})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if id == "" {
		t.Fatal("id should be returned with storage error")
	}
	if _, err := m.GetPost(id); err != nil {
		t.Errorf("post should stay in memory: %v", err)
	}

	// Следующая операция повторяет запись
	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := m.PublishPost(PublishRequest{Content: "retry"}); err != nil {
		t.Fatalf("PublishPost() after recovery error = %v", err)
	}

	st, err := store.Open(store.Config{Path: path, Logger: telemetry.DiscardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if st.Len() != 2 {
		t.Errorf("stored posts = %d, want 2", st.Len())
	}
}

// --- Concurrency Tests ---

func TestManager_ConcurrentPublish(t *testing.T) {
	m := newTestManager(t, Config{})

	const n = 50
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				ids[i], errs[i] = m.PublishPost(PublishRequest{Content: "concurrent"})
				return
			}
			ids[i], errs[i] = m.PublishPostAt(ScheduleRequest{
				Content: "concurrent",
				At:      timezone.Aware(m.CurrentTime().Add(time.Hour)),
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, id := range ids {
		if errs[i] != nil {
			t.Fatalf("call %d error = %v", i, errs[i])
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}

	if got := len(m.ListPosts("")); got != n {
		t.Errorf("ListPosts() len = %d, want %d", got, n)
	}
	if got := len(m.ListPosts(domain.PostStatusScheduled)); got != n/2 {
		t.Errorf("scheduled posts = %d, want %d", got, n/2)
	}
	if got := len(m.JobsInfo()); got != n/2 {
		t.Errorf("JobsInfo() len = %d, want %d", got, n/2)
	}
}

func TestManager_DeleteRacesPublishJob(t *testing.T) {
	for i := 0; i < 20; i++ {
		m := newTestManager(t, Config{})

		at := m.CurrentTime().Add(20 * time.Millisecond)
		id, err := m.PublishPostAt(ScheduleRequest{Content: "race", At: timezone.Aware(at)})
		if err != nil {
			t.Fatal(err)
		}

		time.Sleep(20 * time.Millisecond)
		_ = m.DeletePost(id)

		time.Sleep(30 * time.Millisecond)
		if _, err := m.GetPost(id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("iteration %d: post resurrected or kept: %v", i, err)
		}
	}
}

// --- Shutdown Tests ---

func TestManager_Shutdown(t *testing.T) {
	rec := &recordingNotifier{}
	path := filepath.Join(t.TempDir(), "posts.json")
	m, err := New(Config{StoragePath: path, Notifier: rec, Logger: telemetry.DiscardLogger()})
	if err != nil {
		t.Fatal(err)
	}

	id, err := m.PublishPostAt(ScheduleRequest{Content: "x", At: timezone.Aware(m.CurrentTime().Add(50 * time.Millisecond))})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if types := rec.types(); len(types) != 1 {
		t.Errorf("events after shutdown = %v, want only scheduled", types)
	}
	post, _ := m.GetPost(id)
	if post.Status != domain.PostStatusScheduled {
		t.Errorf("job fired after Shutdown: status %s", post.Status)
	}

	if _, err := m.PublishPost(PublishRequest{Content: "late"}); !errors.Is(err, domain.ErrScheduling) {
		t.Errorf("PublishPost after Shutdown: expected ErrScheduling, got %v", err)
	}
	if err := m.DeletePost(id); !errors.Is(err, ErrClosed) {
		t.Errorf("DeletePost after Shutdown: expected ErrClosed, got %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("storage file should exist after Shutdown: %v", err)
	}
}

// --- Notifier Tests ---

func TestMultiNotifier(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	failing := NotifierFunc(func(context.Context, domain.Event) error {
		return errors.New("offline")
	})

	multi := MultiNotifier{a, failing, nil, b}
	err := multi.Notify(context.Background(), domain.Event{Type: domain.EventPostPublished, PostID: "p1"})
	if err == nil {
		t.Error("expected joined error")
	}
	if len(a.types()) != 1 || len(b.types()) != 1 {
		t.Error("every notifier should receive the event")
	}
}

func TestManager_NotifierErrorDoesNotFail(t *testing.T) {
	failing := NotifierFunc(func(context.Context, domain.Event) error {
		return errors.New("offline")
	})
	m := newTestManager(t, Config{Notifier: failing})

	if _, err := m.PublishPost(PublishRequest{Content: "x"}); err != nil {
		t.Errorf("notifier error must not fail operation: %v", err)
	}
}

// blockingNotifier не возвращается, пока не закрыт release или не отменён ctx.
type blockingNotifier struct {
	release chan struct{}
	calls   chan domain.Event
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{release: make(chan struct{}), calls: make(chan domain.Event, 64)}
}

func (n *blockingNotifier) Notify(ctx context.Context, ev domain.Event) error {
	n.calls <- ev
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestManager_SlowNotifierDoesNotBlockJobs(t *testing.T) {
	n := newBlockingNotifier()
	defer close(n.release)
	m := newTestManager(t, Config{Notifier: n, NotifyTimeout: 10 * time.Second})

	start := time.Now()
	if _, err := m.PublishPost(PublishRequest{Content: "now"}); err != nil {
		t.Fatal(err)
	}

	now := m.CurrentTime()
	first, err := m.PublishPostAt(ScheduleRequest{Content: "a", At: timezone.Aware(now.Add(50 * time.Millisecond))})
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.PublishPostAt(ScheduleRequest{Content: "b", At: timezone.Aware(now.Add(100 * time.Millisecond))})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("operations blocked on notifier for %v", elapsed)
	}

	published := func(id string) bool {
		post, err := m.GetPost(id)
		return err == nil && post.Status == domain.PostStatusPublished
	}
	waitFor(t, 2*time.Second, func() bool { return published(first) && published(second) })
}

func TestManager_ShutdownDrainsEvents(t *testing.T) {
	rec := &recordingNotifier{}
	m := newTestManager(t, Config{Notifier: rec})

	for i := 0; i < 3; i++ {
		if _, err := m.PublishPost(PublishRequest{Content: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Shutdown(); err != nil {
		t.Fatal(err)
	}

	if got := rec.types(); len(got) != 3 {
		t.Errorf("events delivered before Shutdown returned = %v, want 3", got)
	}
}

func TestManager_ShutdownWithStuckNotifier(t *testing.T) {
	n := newBlockingNotifier()
	m := newTestManager(t, Config{Notifier: n, NotifyTimeout: 100 * time.Millisecond})

	if _, err := m.PublishPost(PublishRequest{Content: "x"}); err != nil {
		t.Fatal(err)
	}
	<-n.calls

	done := make(chan error, 1)
	go func() { done <- m.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown blocked on notifier")
	}
}

func TestLogNotifier(t *testing.T) {
	n := LogNotifier{Logger: telemetry.DiscardLogger()}
	if err := n.Notify(context.Background(), domain.Event{Type: domain.EventPostDeleted, Reason: domain.RemovalReasonUser}); err != nil {
		t.Errorf("Notify() error = %v", err)
	}
}
