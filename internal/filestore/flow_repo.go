package filestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/repo"
)

// FlowRepo — flows и версии в файлах flows/<id>.json.
type FlowRepo struct {
	store *Store
}

var _ repo.FlowStore = (*FlowRepo)(nil)

// Create сохраняет новый flow.
func (r *FlowRepo) Create(ctx context.Context, flow *domain.Flow) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[flow.ID]; ok {
		return repo.ErrAlreadyExists
	}

	cp, err := clone(*flow)
	if err != nil {
		return err
	}
	rec := &flowRecord{Flow: cp, Versions: []domain.FlowVersion{}}
	if err := s.saveFlow(rec); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	s.flows[flow.ID] = rec
	return nil
}

// GetByID возвращает flow по ID.
func (r *FlowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flow, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.flows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp, err := clone(rec.Flow)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// List возвращает flows тенанта, новые первыми.
func (r *FlowRepo) List(ctx context.Context, filter repo.FlowFilter) ([]domain.Flow, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	flows := make([]domain.Flow, 0, len(s.flows))
	for _, rec := range s.flows {
		if filter.TenantID != "" && rec.Flow.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && rec.Flow.Status != filter.Status {
			continue
		}
		flows = append(flows, rec.Flow)
	}
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].CreatedAt.Equal(flows[j].CreatedAt) {
			return flows[i].ID.String() < flows[j].ID.String()
		}
		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})

	return clone(repo.Paginate(flows, filter.Limit, filter.Offset))
}

// Update сохраняет черновик и статус flow.
// Номер версии и время создания управляются хранилищем.
func (r *FlowRepo) Update(ctx context.Context, flow *domain.Flow) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.flows[flow.ID]
	if !ok {
		return repo.ErrNotFound
	}

	cp, err := clone(*flow)
	if err != nil {
		return err
	}
	cp.TenantID = rec.Flow.TenantID
	cp.Version = rec.Flow.Version
	cp.CreatedAt = rec.Flow.CreatedAt

	updated := &flowRecord{Flow: cp, Versions: rec.Versions}
	if err := s.saveFlow(updated); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	s.flows[flow.ID] = updated
	return nil
}

// Delete удаляет flow, его версии и ответы.
func (r *FlowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[id]; !ok {
		return repo.ErrNotFound
	}
	if err := s.removeFiles(id); err != nil {
		return err
	}
	delete(s.flows, id)
	delete(s.responses, id)
	return nil
}

// Publish копирует черновик в новую версию max(version)+1.
func (r *FlowRepo) Publish(ctx context.Context, id uuid.UUID) (*domain.FlowVersion, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.flows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if rec.Flow.Status == domain.FlowStatusArchived {
		return nil, fmt.Errorf("publish archived flow: %w", repo.ErrInvalidState)
	}

	next := 1
	for _, v := range rec.Versions {
		if v.Version >= next {
			next = v.Version + 1
		}
	}

	content, err := clone(rec.Flow.Content())
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	version := domain.FlowVersion{FlowID: id, Version: next, Content: content, PublishedAt: now}

	updated := &flowRecord{
		Flow:     rec.Flow,
		Versions: append(append([]domain.FlowVersion(nil), rec.Versions...), version),
	}
	updated.Flow.Status = domain.FlowStatusPublished
	updated.Flow.Version = next
	updated.Flow.UpdatedAt = now

	if err := s.saveFlow(updated); err != nil {
		return nil, fmt.Errorf("save flow: %w", err)
	}
	s.flows[id] = updated

	out, err := clone(version)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVersion возвращает конкретную версию flow.
func (r *FlowRepo) GetVersion(ctx context.Context, flowID uuid.UUID, version int) (*domain.FlowVersion, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.flows[flowID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	for _, v := range rec.Versions {
		if v.Version == version {
			out, err := clone(v)
			if err != nil {
				return nil, err
			}
			return &out, nil
		}
	}
	return nil, repo.ErrNotFound
}

// GetLatestVersion возвращает последнюю опубликованную версию flow.
func (r *FlowRepo) GetLatestVersion(ctx context.Context, flowID uuid.UUID) (*domain.FlowVersion, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.flows[flowID]
	if !ok || len(rec.Versions) == 0 {
		return nil, repo.ErrNotFound
	}

	latest := rec.Versions[0]
	for _, v := range rec.Versions[1:] {
		if v.Version > latest.Version {
			latest = v
		}
	}
	out, err := clone(latest)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVersions возвращает версии flow, новые первыми.
func (r *FlowRepo) ListVersions(ctx context.Context, flowID uuid.UUID) ([]domain.FlowVersion, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.flows[flowID]
	if !ok {
		return nil, repo.ErrNotFound
	}

	versions, err := clone(rec.Versions)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []domain.FlowVersion{}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version > versions[j].Version })
	return versions, nil
}
