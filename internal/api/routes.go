package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		Metrics(),
	)

	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, chain(fn))
	}

	// Flows
	route("GET /api/v1/flows", h.ListFlows)
	route("POST /api/v1/flows", h.CreateFlow)
	route("GET /api/v1/flows/{id}", h.GetFlow)
	route("PUT /api/v1/flows/{id}", h.UpdateFlow)
	route("DELETE /api/v1/flows/{id}", h.DeleteFlow)
	route("PUT /api/v1/flows/{id}/draft", h.SaveDraft)
	route("POST /api/v1/flows/{id}/validate", h.ValidateFlow)

	// Versions
	route("POST /api/v1/flows/{id}/publish", h.PublishFlow)
	route("GET /api/v1/flows/{id}/versions", h.ListFlowVersions)
	route("GET /api/v1/flows/{id}/versions/{version}", h.GetFlowVersion)
	route("GET /api/v1/flows/{id}/published", h.GetPublished)

	// Rendering
	route("POST /api/v1/flows/{id}/preview", h.PreviewFlow)
	route("POST /api/v1/flows/{id}/render", h.RenderFlow)
	route("POST /api/v1/flows/{id}/navigate", h.NavigateFlow)

	// Responses
	route("POST /api/v1/flows/{id}/responses", h.SubmitResponse)
	route("GET /api/v1/flows/{id}/responses", h.ListResponses)
	route("GET /api/v1/responses/{id}", h.GetResponse)
	route("GET /api/v1/flows/{id}/analytics", h.GetAnalytics)
}
