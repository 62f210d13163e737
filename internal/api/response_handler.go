package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/analytics"
	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/mq"
	"github.com/shaiso/Formflow/internal/renderer"
	"github.com/shaiso/Formflow/internal/repo"
	"github.com/shaiso/Formflow/internal/telemetry"
)

// SubmitResponse принимает ответ на форму.
// POST /api/v1/flows/{id}/responses
//
// Завершённый ответ проверяется по всем видимым шагам; значения скрытых
// шагов и полей отбрасываются. Закрытая форма или исчерпанный лимит — 409.
func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	var (
		flow *domain.Flow
		ok   bool
	)
	if req.Preview {
		flow, ok = h.tenantFlow(w, r)
	} else {
		flow, ok = h.publishedFlow(w, r)
	}
	if !ok {
		return
	}

	ctx := r.Context()
	settings := flow.FormSettings()

	if !req.Preview {
		if settings.Closed {
			Conflict(w, "form is closed")
			return
		}
	}

	completed := req.Completed == nil || *req.Completed

	sess := renderer.NewSession(flow, req.Values)
	if completed {
		if errs := sess.ValidateAll(); len(errs) > 0 {
			ValidationFailed(w, "response has invalid fields", errs)
			return
		}
	}

	version := flow.Version
	if req.Preview {
		version = 0
	}

	resp := &domain.Response{
		ID:        uuid.New(),
		FlowID:    flow.ID,
		Version:   version,
		Values:    sess.VisibleValues(),
		Completed: completed,
		Metadata:  requestMetadata(r, req.Metadata),
		CreatedAt: h.now(),
	}

	// Preview не расходует лимит: он считается только по ответам
	// на опубликованные версии.
	var err error
	if !req.Preview && settings.ResponseLimit > 0 {
		err = h.responses.CreateWithinLimit(ctx, resp, settings.ResponseLimit)
	} else {
		err = h.responses.Create(ctx, resp)
	}
	if errors.Is(err, repo.ErrLimitReached) {
		Conflict(w, "response limit reached")
		return
	}
	if HandleRepoError(w, h.logger, err, "flow not found") {
		return
	}

	logger := telemetry.WithResponseID(
		telemetry.WithFlowID(telemetry.FromContext(ctx), flow.ID.String()),
		resp.ID.String(),
	)
	logger.Info("response submitted", "version", version, "completed", completed)

	if h.publisher != nil {
		err := h.publisher.PublishResponseSubmitted(ctx, mq.ResponseSubmittedPayload{
			ResponseID: resp.ID,
			FlowID:     flow.ID,
			Version:    version,
			Completed:  completed,
			Answered:   len(resp.Values),
		})
		if err != nil {
			logger.Warn("failed to publish response.submitted event", "error", err)
		}
	}

	Created(w, ResponseFromDomain(*resp))
}

// requestMetadata дополняет метаданные клиента заголовками запроса.
func requestMetadata(r *http.Request, meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	if ua := r.UserAgent(); ua != "" {
		if _, ok := out["user_agent"]; !ok {
			out["user_agent"] = ua
		}
	}
	if ref := r.Referer(); ref != "" {
		if _, ok := out["referrer"]; !ok {
			out["referrer"] = ref
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ListResponses возвращает ответы flow, новые первыми.
// GET /api/v1/flows/{id}/responses?limit=&offset=&completed=
func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	filter := repo.ResponseFilter{FlowID: &flow.ID}
	if s := r.URL.Query().Get("completed"); s != "" {
		completed, err := strconv.ParseBool(s)
		if err != nil {
			BadRequest(w, "invalid completed filter")
			return
		}
		filter.Completed = &completed
	}

	total, err := h.responses.Count(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	filter.Limit, filter.Offset = limit, offset
	responses, err := h.responses.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ResponseResponse, len(responses))
	for i, resp := range responses {
		result[i] = ResponseFromDomain(resp)
	}

	List(w, result, total)
}

// GetResponse возвращает ответ по ID.
// GET /api/v1/responses/{id}
func (h *Handler) GetResponse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid response id")
		return
	}

	resp, err := h.responses.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "response not found") {
		return
	}

	flow, err := h.flows.GetByID(r.Context(), resp.FlowID)
	if HandleRepoError(w, h.logger, err, "response not found") {
		return
	}
	if flow.TenantID != tenantID(r) {
		NotFound(w, "response not found")
		return
	}

	Success(w, ResponseFromDomain(*resp))
}

// GetAnalytics возвращает сводку по ответам flow.
// GET /api/v1/flows/{id}/analytics
//
// Поля берутся из последней опубликованной версии, а без неё — из черновика.
// У опубликованного flow preview-ответы (version 0) в сводку не входят.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	source := flow
	if flow.Version > 0 {
		version, err := h.flows.GetLatestVersion(ctx, flow.ID)
		switch {
		case err == nil:
			source = version.AsFlow()
		case !errors.Is(err, repo.ErrNotFound):
			InternalError(w, h.logger, err)
			return
		}
	}

	responses, err := h.responses.List(ctx, repo.ResponseFilter{
		FlowID: &flow.ID,
		Live:   flow.Version > 0,
	})
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	summary := analytics.Summarize(source, responses)
	summary.FlowID = flow.ID
	Success(w, summary)
}
