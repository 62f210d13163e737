package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/domain"
)

const (
	flowsDir     = "flows"
	responsesDir = "responses"
	tmpPrefix    = "tmp-"
)

// flowRecord — содержимое файла flows/<id>.json.
type flowRecord struct {
	Flow     domain.Flow          `json:"flow"`
	Versions []domain.FlowVersion `json:"versions"`
}

// Store — файловое хранилище. Безопасно для конкурентного использования.
type Store struct {
	dir string

	mu        sync.RWMutex
	flows     map[uuid.UUID]*flowRecord
	responses map[uuid.UUID][]domain.Response
}

// Open открывает (и при необходимости создаёт) каталог хранилища
// и загружает его содержимое в память.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = "data"
	}
	for _, sub := range []string{flowsDir, responsesDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}

	s := &Store{dir: dir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir возвращает корневой каталог хранилища.
func (s *Store) Dir() string {
	return s.dir
}

// Flows возвращает репозиторий flows.
func (s *Store) Flows() *FlowRepo {
	return &FlowRepo{store: s}
}

// Responses возвращает репозиторий ответов.
func (s *Store) Responses() *ResponseRepo {
	return &ResponseRepo{store: s}
}

// Reload перечитывает все файлы с диска.
// Битый файл прерывает загрузку, данные в памяти остаются прежними.
func (s *Store) Reload() error {
	flows := make(map[uuid.UUID]*flowRecord)
	err := s.readDir(flowsDir, func(id uuid.UUID, data []byte) error {
		var rec flowRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.Flow.ID = id
		flows[id] = &rec
		return nil
	})
	if err != nil {
		return err
	}

	responses := make(map[uuid.UUID][]domain.Response)
	err = s.readDir(responsesDir, func(id uuid.UUID, data []byte) error {
		var list []domain.Response
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		responses[id] = list
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.flows = flows
	s.responses = responses
	s.mu.Unlock()
	return nil
}

func (s *Store) readDir(sub string, fn func(id uuid.UUID, data []byte) error) error {
	entries, err := os.ReadDir(filepath.Join(s.dir, sub))
	if err != nil {
		return fmt.Errorf("read %s dir: %w", sub, err)
	}

	for _, e := range entries {
		id, ok := parseFileName(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		path := filepath.Join(s.dir, sub, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := fn(id, data); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return nil
}

// parseFileName разбирает "<uuid>.json"; временные файлы пропускаются.
func parseFileName(name string) (uuid.UUID, bool) {
	if strings.HasPrefix(name, tmpPrefix) || filepath.Ext(name) != ".json" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSuffix(name, ".json"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *Store) path(sub string, id uuid.UUID) string {
	return filepath.Join(s.dir, sub, id.String()+".json")
}

// saveFlow записывает flow на диск. Вызывается под s.mu.
func (s *Store) saveFlow(rec *flowRecord) error {
	return writeJSON(s.path(flowsDir, rec.Flow.ID), rec)
}

// saveResponses записывает ответы flow на диск. Вызывается под s.mu.
func (s *Store) saveResponses(flowID uuid.UUID) error {
	list := s.responses[flowID]
	if list == nil {
		list = []domain.Response{}
	}
	return writeJSON(s.path(responsesDir, flowID), list)
}

// removeFiles удаляет файлы flow и его ответов. Вызывается под s.mu.
func (s *Store) removeFiles(id uuid.UUID) error {
	for _, path := range []string{s.path(flowsDir, id), s.path(responsesDir, id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

// writeJSON атомарно записывает значение: временный файл в том же
// каталоге, fsync, затем rename поверх целевого файла.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tmpPrefix+"*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// clone возвращает глубокую копию через JSON, чтобы вызывающий код
// не мог изменить данные хранилища.
func clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("copy: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("copy: %w", err)
	}
	return out, nil
}
