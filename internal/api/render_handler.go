package api

import (
	"net/http"

	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/renderer"
)

// PreviewFlow возвращает состояние формы по черновику.
// POST /api/v1/flows/{id}/preview
func (h *Handler) PreviewFlow(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	flow, ok := h.tenantFlow(w, r)
	if !ok {
		return
	}

	Success(w, renderer.Resume(flow, req.Values, req.History).State())
}

// RenderFlow возвращает состояние формы по последней опубликованной версии.
// POST /api/v1/flows/{id}/render
func (h *Handler) RenderFlow(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	flow, ok := h.publishedFlow(w, r)
	if !ok {
		return
	}

	Success(w, renderer.Resume(flow, req.Values, req.History).State())
}

// NavigateFlow выполняет переход next/previous.
// POST /api/v1/flows/{id}/navigate
func (h *Handler) NavigateFlow(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Action != ActionNext && req.Action != ActionPrevious {
		BadRequest(w, "action must be next or previous")
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

	sess := renderer.Resume(flow, req.Values, req.History)

	var resp NavigateResponse
	if req.Action == ActionNext {
		res := sess.Next()
		resp.Outcome = string(res.Outcome)
		resp.Errors = res.Errors
	} else {
		resp.Outcome = OutcomeStayed
		if sess.Previous() {
			resp.Outcome = string(renderer.OutcomeMoved)
		}
	}
	resp.State = sess.State()

	Success(w, resp)
}

// publishedFlow загружает последнюю опубликованную версию flow по {id}.
// Архивный flow не отображается.
func (h *Handler) publishedFlow(w http.ResponseWriter, r *http.Request) (*domain.Flow, bool) {
	flow, ok := h.loadFlow(w, r)
	if !ok {
		return nil, false
	}
	if flow.Status == domain.FlowStatusArchived {
		InvalidState(w, "flow is archived")
		return nil, false
	}

	version, err := h.flows.GetLatestVersion(r.Context(), flow.ID)
	if HandleRepoError(w, h.logger, err, "flow has no published version") {
		return nil, false
	}

	published := version.AsFlow()
	published.TenantID = flow.TenantID
	return published, true
}
