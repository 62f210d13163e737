package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/domain"
)

// FlowStore — хранилище flows и опубликованных версий.
//
// Реализации: FlowRepo (PostgreSQL), filestore.FlowRepo (JSON-файлы),
// cache.FlowCache (Redis поверх любого из них).
type FlowStore interface {
	Create(ctx context.Context, flow *domain.Flow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flow, error)
	List(ctx context.Context, filter FlowFilter) ([]domain.Flow, error)
	Update(ctx context.Context, flow *domain.Flow) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Publish фиксирует черновик как новую версию max(version)+1.
	Publish(ctx context.Context, id uuid.UUID) (*domain.FlowVersion, error)
	GetVersion(ctx context.Context, flowID uuid.UUID, version int) (*domain.FlowVersion, error)
	GetLatestVersion(ctx context.Context, flowID uuid.UUID) (*domain.FlowVersion, error)
	ListVersions(ctx context.Context, flowID uuid.UUID) ([]domain.FlowVersion, error)
}

// ResponseStore — хранилище ответов.
type ResponseStore interface {
	Create(ctx context.Context, resp *domain.Response) error

	// CreateWithinLimit сохраняет ответ, только если у flow меньше limit
	// ответов на опубликованные версии; иначе ErrLimitReached.
	// Проверка и запись выполняются атомарно.
	CreateWithinLimit(ctx context.Context, resp *domain.Response, limit int) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Response, error)
	List(ctx context.Context, filter ResponseFilter) ([]domain.Response, error)
	Count(ctx context.Context, filter ResponseFilter) (int, error)
}

// FlowFilter — параметры фильтрации flows.
type FlowFilter struct {
	TenantID string
	Status   domain.FlowStatus
	Limit    int
	Offset   int
}

// ResponseFilter — параметры фильтрации ответов.
// Limit 0 — без ограничения.
type ResponseFilter struct {
	FlowID    *uuid.UUID
	Completed *bool

	// Live оставляет только ответы на опубликованные версии (version > 0),
	// без preview.
	Live bool

	Limit  int
	Offset int
}

// Paginate применяет Limit/Offset к уже отфильтрованному срезу.
// Используется хранилищами без SQL.
func Paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
