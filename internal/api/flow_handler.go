package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/logic"
	"github.com/shaiso/Formflow/internal/mq"
	"github.com/shaiso/Formflow/internal/repo"
	"github.com/shaiso/Formflow/internal/telemetry"
)

// ListFlows возвращает flows тенанта.
// GET /api/v1/flows?status=&limit=&offset=
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	filter := repo.FlowFilter{TenantID: tenantID(r)}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.FlowStatus(s)
		if !status.IsValid() {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	flows, err := h.flows.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	page := repo.Paginate(flows, limit, offset)
	result := make([]FlowResponse, len(page))
	for i, f := range page {
		result[i] = FlowFromDomain(f)
	}

	List(w, result, len(flows))
}

// CreateFlow создаёт черновик flow.
// POST /api/v1/flows
func (h *Handler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req CreateFlowRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Title == "" {
		BadRequest(w, "title is required")
		return
	}

	now := h.now()
	flow := &domain.Flow{
		ID:          uuid.New(),
		TenantID:    tenantID(r),
		Title:       req.Title,
		Description: req.Description,
		Nodes:       req.Nodes,
		Settings:    req.Settings,
		Theme:       req.Theme,
		Status:      domain.FlowStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if flow.Nodes == nil {
		flow.Nodes = []domain.Node{}
	}

	if HandleRepoError(w, h.logger, h.flows.Create(r.Context(), flow), "") {
		return
	}

	Created(w, FlowFromDomain(*flow))
}

// GetFlow возвращает flow (черновик) по ID.
// GET /api/v1/flows/{id}
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	Success(w, FlowFromDomain(*flow))
}

// UpdateFlow обновляет заголовок, описание или статус.
// PUT /api/v1/flows/{id}
func (h *Handler) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	var req UpdateFlowRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			BadRequest(w, "title cannot be empty")
			return
		}
		flow.Title = *req.Title
	}
	if req.Description != nil {
		flow.Description = *req.Description
	}
	if req.Status != nil {
		status := domain.FlowStatus(*req.Status)
		if !status.IsValid() {
			BadRequest(w, "invalid status")
			return
		}
		if msg := statusChangeError(flow, status); msg != "" {
			InvalidState(w, msg)
			return
		}
		flow.Status = status
	}
	flow.UpdatedAt = h.now()

	if HandleRepoError(w, h.logger, h.flows.Update(r.Context(), flow), "flow not found") {
		return
	}

	Success(w, FlowFromDomain(*flow))
}

// statusChangeError проверяет ручную смену статуса.
// Опубликовать можно только через publish; вернуть в draft — только
// ни разу не публиковавшийся flow.
func statusChangeError(flow *domain.Flow, to domain.FlowStatus) string {
	switch to {
	case domain.FlowStatusPublished:
		if flow.Version == 0 {
			return "flow has no published version"
		}
	case domain.FlowStatusDraft:
		if flow.Version > 0 {
			return "published flow cannot return to draft"
		}
	}
	return ""
}

// DeleteFlow удаляет flow вместе с версиями и ответами.
// DELETE /api/v1/flows/{id}
func (h *Handler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	if HandleRepoError(w, h.logger, h.flows.Delete(r.Context(), flow.ID), "flow not found") {
		return
	}

	NoContent(w)
}

// SaveDraft заменяет содержимое черновика.
// PUT /api/v1/flows/{id}/draft
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	flow.Nodes = req.Nodes
	if flow.Nodes == nil {
		flow.Nodes = []domain.Node{}
	}
	flow.Settings = req.Settings
	flow.Theme = req.Theme
	flow.UpdatedAt = h.now()

	if HandleRepoError(w, h.logger, h.flows.Update(r.Context(), flow), "flow not found") {
		return
	}

	Success(w, FlowFromDomain(*flow))
}

// ValidateFlow проверяет черновик без публикации.
// POST /api/v1/flows/{id}/validate
func (h *Handler) ValidateFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	issues := IssuesFromLogic(logic.Check(flow))
	Success(w, ValidateResponse{Valid: len(issues) == 0, Issues: issues})
}

// PublishFlow проверяет черновик и фиксирует его как новую версию.
// POST /api/v1/flows/{id}/publish
func (h *Handler) PublishFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	if issues := logic.Check(flow); len(issues) > 0 {
		ValidationFailed(w, "flow has validation issues", IssuesFromLogic(issues))
		return
	}

	version, err := h.flows.Publish(r.Context(), flow.ID)
	if HandleRepoError(w, h.logger, err, "flow not found") {
		return
	}

	telemetry.FlowsPublished.Inc()
	logger := telemetry.WithFlowID(telemetry.FromContext(r.Context()), flow.ID.String())
	logger.Info("flow published", "version", version.Version)

	if h.publisher != nil {
		err := h.publisher.PublishFlowPublished(r.Context(), mq.FlowPublishedPayload{
			FlowID:   flow.ID,
			TenantID: flow.TenantID,
			Version:  version.Version,
			Title:    version.Content.Title,
			Steps:    len(version.AsFlow().Steps()),
		})
		if err != nil {
			logger.Warn("failed to publish flow.published event", "error", err)
		}
	}

	Created(w, FlowVersionFromDomain(*version))
}

// ListFlowVersions возвращает опубликованные версии flow.
// GET /api/v1/flows/{id}/versions
func (h *Handler) ListFlowVersions(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	versions, err := h.flows.ListVersions(r.Context(), flow.ID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]FlowVersionResponse, len(versions))
	for i, v := range versions {
		result[i] = FlowVersionFromDomain(v)
	}

	List(w, result, len(result))
}

// GetFlowVersion возвращает конкретную версию flow.
// GET /api/v1/flows/{id}/versions/{version}
func (h *Handler) GetFlowVersion(w http.ResponseWriter, r *http.Request) {
	versionNum, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || versionNum < 1 {
		BadRequest(w, "invalid version number")
		return
	}

	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	version, err := h.flows.GetVersion(r.Context(), flow.ID, versionNum)
	if HandleRepoError(w, h.logger, err, "flow version not found") {
		return
	}

	Success(w, FlowVersionFromDomain(*version))
}

// GetPublished возвращает последнюю опубликованную версию.
// GET /api/v1/flows/{id}/published
func (h *Handler) GetPublished(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}

	version, err := h.flows.GetLatestVersion(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "flow has no published version") {
		return
	}

	Success(w, FlowVersionFromDomain(*version))
}

// flowID разбирает {id} из пути.
func flowID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid flow id")
		return uuid.Nil, false
	}
	return id, true
}

// loadFlow загружает flow по {id} без проверки тенанта.
func (h *Handler) loadFlow(w http.ResponseWriter, r *http.Request) (*domain.Flow, bool) {
	id, ok := flowID(w, r)
	if !ok {
		return nil, false
	}

	flow, err := h.flows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "flow not found") {
		return nil, false
	}
	return flow, true
}

// tenantFlow загружает flow по {id}; flow чужого тенанта не виден.
func (h *Handler) tenantFlow(w http.ResponseWriter, r *http.Request) (*domain.Flow, bool) {
	flow, ok := h.loadFlow(w, r)
	if !ok {
		return nil, false
	}
	if flow.TenantID != tenantID(r) {
		NotFound(w, "flow not found")
		return nil, false
	}
	return flow, true
}

// pagination разбирает limit и offset.
func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	var err error
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			BadRequest(w, "invalid limit")
			return 0, 0, false
		}
	}
	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return 0, 0, false
		}
	}
	return limit, offset, true
}
