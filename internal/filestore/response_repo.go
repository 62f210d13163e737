package filestore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/repo"
)

// ResponseRepo — ответы в файлах responses/<flowID>.json.
type ResponseRepo struct {
	store *Store
}

var _ repo.ResponseStore = (*ResponseRepo)(nil)

// Create сохраняет ответ. Flow должен существовать.
func (r *ResponseRepo) Create(ctx context.Context, resp *domain.Response) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return r.insert(resp)
}

// CreateWithinLimit сохраняет ответ, если у flow меньше limit ответов
// на опубликованные версии. Проверка и запись идут под одной блокировкой.
func (r *ResponseRepo) CreateWithinLimit(ctx context.Context, resp *domain.Response, limit int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[resp.FlowID]; !ok {
		return fmt.Errorf("flow %s: %w", resp.FlowID, repo.ErrNotFound)
	}
	if len(r.match(repo.ResponseFilter{FlowID: &resp.FlowID, Live: true})) >= limit {
		return repo.ErrLimitReached
	}
	return r.insert(resp)
}

// insert вызывается под s.mu.
func (r *ResponseRepo) insert(resp *domain.Response) error {
	s := r.store
	if _, ok := s.flows[resp.FlowID]; !ok {
		return fmt.Errorf("flow %s: %w", resp.FlowID, repo.ErrNotFound)
	}
	for _, list := range s.responses {
		for _, existing := range list {
			if existing.ID == resp.ID {
				return repo.ErrAlreadyExists
			}
		}
	}

	cp, err := clone(*resp)
	if err != nil {
		return err
	}

	prev := s.responses[resp.FlowID]
	s.responses[resp.FlowID] = append(append([]domain.Response(nil), prev...), cp)
	if err := s.saveResponses(resp.FlowID); err != nil {
		s.responses[resp.FlowID] = prev
		return fmt.Errorf("save responses: %w", err)
	}
	return nil
}

// GetByID возвращает ответ по ID.
func (r *ResponseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Response, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, list := range s.responses {
		for _, resp := range list {
			if resp.ID == id {
				out, err := clone(resp)
				if err != nil {
					return nil, err
				}
				return &out, nil
			}
		}
	}
	return nil, repo.ErrNotFound
}

// List возвращает ответы по фильтру, новые первыми.
func (r *ResponseRepo) List(ctx context.Context, filter repo.ResponseFilter) ([]domain.Response, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := r.match(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return clone(repo.Paginate(matched, filter.Limit, filter.Offset))
}

// Count возвращает число ответов по фильтру.
func (r *ResponseRepo) Count(ctx context.Context, filter repo.ResponseFilter) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(r.match(filter)), nil
}

// match вызывается под s.mu.
func (r *ResponseRepo) match(filter repo.ResponseFilter) []domain.Response {
	var lists [][]domain.Response
	if filter.FlowID != nil {
		lists = append(lists, r.store.responses[*filter.FlowID])
	} else {
		for _, list := range r.store.responses {
			lists = append(lists, list)
		}
	}

	out := []domain.Response{}
	for _, list := range lists {
		for _, resp := range list {
			if filter.Completed != nil && resp.Completed != *filter.Completed {
				continue
			}
			if filter.Live && resp.Version <= 0 {
				continue
			}
			out = append(out, resp)
		}
	}
	return out
}
