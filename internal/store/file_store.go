package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shaiso/Autopost/internal/domain"
)

// FileStore — хранилище постов в JSON-файле.
type FileStore struct {
	path   string
	loc    *time.Location
	logger *slog.Logger

	mu    sync.RWMutex
	posts map[string]*domain.Post
	order []string // ID в порядке вставки
}

// Config — конфигурация FileStore.
type Config struct {
	Path     string         // путь к файлу
	Location *time.Location // каноническая зона для загруженных времён (default: UTC)
	Logger   *slog.Logger
}

// New создаёт пустой FileStore. Файл не читается.
func New(cfg Config) *FileStore {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FileStore{
		path:   cfg.Path,
		loc:    loc,
		logger: logger,
		posts:  make(map[string]*domain.Post),
	}
}

// Open создаёт FileStore и загружает файл.
// Отсутствующий файл — пустое хранилище, пустой или повреждённый — StorageError.
func Open(cfg Config) (*FileStore, error) {
	s := New(cfg)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path возвращает путь к файлу.
func (s *FileStore) Path() string {
	return s.path
}

// Load читает файл и заменяет содержимое хранилища.
//
// При ошибке текущее содержимое в памяти не меняется, а файл не трогается:
// повреждённые данные не сбрасываются молча.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("storage file not found, starting empty", "path", s.path)
			s.replace(make(map[string]*domain.Post), nil)
			return nil
		}
		return storageError("load", s.path, err)
	}

	// Пустой файл не равен пустому хранилищу "{}": скорее всего, это обрезанная запись
	if len(bytes.TrimSpace(data)) == 0 {
		return storageError("load", s.path, fmt.Errorf("%w: file is empty", ErrMalformed))
	}

	posts, order, err := decode(data, s.loc)
	if err != nil {
		return storageError("load", s.path, fmt.Errorf("%w: %w", ErrMalformed, err))
	}

	s.replace(posts, order)
	s.logger.Info("posts loaded", "path", s.path, "count", len(order))
	return nil
}

func (s *FileStore) replace(posts map[string]*domain.Post, order []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = posts
	s.order = order
}

// Save записывает всё содержимое хранилища в файл атомарно.
func (s *FileStore) Save() error {
	s.mu.RLock()
	data, err := encode(s.order, s.posts)
	s.mu.RUnlock()
	if err != nil {
		return storageError("save", s.path, err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return storageError("save", s.path, err)
	}

	s.logger.Debug("posts saved", "path", s.path, "bytes", len(data))
	return nil
}

// Upsert добавляет или заменяет пост. Только в памяти, без Save.
// Новый пост добавляется в конец порядка вставки.
func (s *FileStore) Upsert(post *domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.ID]; !exists {
		s.order = append(s.order, post.ID)
	}
	s.posts[post.ID] = post.Clone()
}

// Get возвращает копию поста.
func (s *FileStore) Get(id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return post.Clone(), nil
}

// Remove удаляет пост. Только в памяти, без Save.
// Возвращает false, если поста не было.
func (s *FileStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return false
	}

	delete(s.posts, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List возвращает копии постов в порядке вставки.
// Пустой status — без фильтра.
func (s *FileStore) List(status domain.PostStatus) []*domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Post, 0, len(s.order))
	for _, id := range s.order {
		post := s.posts[id]
		if status != "" && post.Status != status {
			continue
		}
		result = append(result, post.Clone())
	}
	return result
}

// Len возвращает количество постов.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// encode сериализует посты в JSON-объект с ключами в порядке вставки.
// encoding/json не сохраняет порядок ключей map, поэтому объект собирается вручную.
func encode(order []string, posts map[string]*domain.Post) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")

	for i, id := range order {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")

		key, err := marshal(id, "")
		if err != nil {
			return nil, fmt.Errorf("marshal id %q: %w", id, err)
		}
		buf.Write(key)
		buf.WriteString(": ")

		record, err := marshal(posts[id], "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal post %q: %w", id, err)
		}
		buf.Write(record)
	}

	if len(order) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

// marshal кодирует v без экранирования HTML (контент постов может содержать разметку).
func marshal(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if prefix != "" {
		enc.SetIndent(prefix, "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decode разбирает JSON-объект постов, сохраняя порядок ключей.
func decode(data []byte, loc *time.Location) (map[string]*domain.Post, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	posts := make(map[string]*domain.Post)
	var order []string

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected post id, got %v", tok)
		}

		var post domain.Post
		if err := dec.Decode(&post); err != nil {
			return nil, nil, fmt.Errorf("post %q: %w", id, err)
		}

		if post.ID == "" {
			post.ID = id
		}
		if post.ID != id {
			return nil, nil, fmt.Errorf("post key %q does not match id %q", id, post.ID)
		}
		if _, dup := posts[id]; dup {
			return nil, nil, fmt.Errorf("duplicate post id %q", id)
		}

		normalize(&post, loc)
		if err := post.Validate(); err != nil {
			return nil, nil, fmt.Errorf("post %q: %w", id, err)
		}

		posts[id] = &post
		order = append(order, id)
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("unexpected data after storage object")
	}

	return posts, order, nil
}

// normalize проецирует времена в каноническую зону и убирает нулевой интервал удаления.
func normalize(post *domain.Post, loc *time.Location) {
	if post.ScheduledFor != nil {
		t := post.ScheduledFor.In(loc)
		post.ScheduledFor = &t
	}
	if post.PublishedAt != nil {
		t := post.PublishedAt.In(loc)
		post.PublishedAt = &t
	}
	if !post.CreatedAt.IsZero() {
		post.CreatedAt = post.CreatedAt.In(loc)
	}
	if post.DeleteAfterHours != nil && *post.DeleteAfterHours == 0 {
		post.DeleteAfterHours = nil
	}
}

// writeFileAtomic пишет data во временный файл и переименовывает его в path.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Синхронизируем директорию, чтобы переименование пережило сбой питания
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		d.Close()
	}

	return nil
}
