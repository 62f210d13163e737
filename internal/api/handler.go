package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Formflow/internal/mq"
	"github.com/shaiso/Formflow/internal/repo"
)

// TenantHeader — заголовок с ID тенанта.
const TenantHeader = "X-Tenant-ID"

// DefaultTenant — тенант запросов без заголовка.
const DefaultTenant = "default"

// EventPublisher публикует доменные события. Реализация: *mq.Publisher.
type EventPublisher interface {
	PublishFlowPublished(ctx context.Context, payload mq.FlowPublishedPayload) error
	PublishResponseSubmitted(ctx context.Context, payload mq.ResponseSubmittedPayload) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	flows     repo.FlowStore
	responses repo.ResponseStore
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	// FlowStore — хранилище flows; обычно cache.FlowCache поверх репозитория.
	FlowStore     repo.FlowStore
	ResponseStore repo.ResponseStore

	// Publisher — опционально; без него события не отправляются.
	Publisher EventPublisher

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		flows:     cfg.FlowStore,
		responses: cfg.ResponseStore,
		publisher: cfg.Publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// tenantID возвращает тенант запроса.
func tenantID(r *http.Request) string {
	if t := r.Header.Get(TenantHeader); t != "" {
		return t
	}
	return DefaultTenant
}
