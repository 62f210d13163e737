package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/logic"
	"github.com/shaiso/Formflow/internal/renderer"
)

// Flow DTOs

// CreateFlowRequest — запрос на создание flow.
type CreateFlowRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Nodes       []domain.Node  `json:"nodes,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	Theme       map[string]any `json:"theme,omitempty"`
}

// UpdateFlowRequest — частичное обновление метаданных flow.
type UpdateFlowRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// DraftRequest — замена содержимого черновика.
type DraftRequest struct {
	Nodes    []domain.Node  `json:"nodes"`
	Settings map[string]any `json:"settings,omitempty"`
	Theme    map[string]any `json:"theme,omitempty"`
}

// FlowResponse — ответ с flow.
type FlowResponse struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status"`
	Version     int            `json:"version"`
	Nodes       []domain.Node  `json:"nodes"`
	Settings    map[string]any `json:"settings,omitempty"`
	Theme       map[string]any `json:"theme,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FlowFromDomain конвертирует domain.Flow в FlowResponse.
func FlowFromDomain(f domain.Flow) FlowResponse {
	nodes := f.Nodes
	if nodes == nil {
		nodes = []domain.Node{}
	}
	return FlowResponse{
		ID:          f.ID,
		TenantID:    f.TenantID,
		Title:       f.Title,
		Description: f.Description,
		Status:      string(f.Status),
		Version:     f.Version,
		Nodes:       nodes,
		Settings:    f.Settings,
		Theme:       f.Theme,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// FlowVersion DTOs

// FlowVersionResponse — ответ с опубликованной версией flow.
type FlowVersionResponse struct {
	FlowID      uuid.UUID          `json:"flow_id"`
	Version     int                `json:"version"`
	Content     domain.FlowContent `json:"content"`
	PublishedAt time.Time          `json:"published_at"`
}

// FlowVersionFromDomain конвертирует domain.FlowVersion в FlowVersionResponse.
func FlowVersionFromDomain(v domain.FlowVersion) FlowVersionResponse {
	return FlowVersionResponse{
		FlowID:      v.FlowID,
		Version:     v.Version,
		Content:     v.Content,
		PublishedAt: v.PublishedAt,
	}
}

// Validation DTOs

// IssueResponse — проблема в определении flow.
type IssueResponse struct {
	Code    string `json:"code"`
	StepID  string `json:"step_id,omitempty"`
	FieldID string `json:"field_id,omitempty"`
	Message string `json:"message"`
}

// ValidateResponse — результат проверки черновика.
type ValidateResponse struct {
	Valid  bool            `json:"valid"`
	Issues []IssueResponse `json:"issues"`
}

// IssuesFromLogic конвертирует результат logic.Check.
func IssuesFromLogic(errs []*logic.ValidationError) []IssueResponse {
	out := make([]IssueResponse, len(errs))
	for i, e := range errs {
		out[i] = IssueResponse{
			Code:    logic.Code(e),
			StepID:  e.StepID,
			FieldID: e.FieldID,
			Message: e.Error(),
		}
	}
	return out
}

// Render DTOs

// RenderRequest — значения формы и история шагов клиента.
type RenderRequest struct {
	Values  domain.FormValues `json:"values"`
	History []string          `json:"history"`
}

// NavigateRequest — переход по форме.
type NavigateRequest struct {
	RenderRequest

	// Action — "next" или "previous".
	Action string `json:"action"`

	// Preview — навигация по черновику вместо опубликованной версии.
	Preview bool `json:"preview,omitempty"`
}

// Действия навигации.
const (
	ActionNext     = "next"
	ActionPrevious = "previous"
)

// NavigateResponse — результат перехода и новое состояние.
type NavigateResponse struct {
	// Outcome — moved, invalid, submitted или stayed (назад идти некуда).
	Outcome string               `json:"outcome"`
	Errors  renderer.FieldErrors `json:"errors,omitempty"`
	State   renderer.State       `json:"state"`
}

// OutcomeStayed — Previous не изменил шаг.
const OutcomeStayed = "stayed"

// Response DTOs

// SubmitRequest — отправка ответа на форму.
type SubmitRequest struct {
	Values domain.FormValues `json:"values"`

	// Completed — false сохраняет частичный ответ без проверки. По умолчанию true.
	Completed *bool `json:"completed,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	// Preview — ответ на черновик (version 0).
	Preview bool `json:"preview,omitempty"`
}

// ResponseResponse — ответ на форму.
type ResponseResponse struct {
	ID        uuid.UUID         `json:"id"`
	FlowID    uuid.UUID         `json:"flow_id"`
	Version   int               `json:"version"`
	Values    domain.FormValues `json:"values"`
	Completed bool              `json:"completed"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ResponseFromDomain конвертирует domain.Response в ResponseResponse.
func ResponseFromDomain(r domain.Response) ResponseResponse {
	return ResponseResponse{
		ID:        r.ID,
		FlowID:    r.FlowID,
		Version:   r.Version,
		Values:    r.Values,
		Completed: r.Completed,
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
	}
}
