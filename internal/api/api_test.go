package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/filestore"
	"github.com/shaiso/Formflow/internal/mq"
)

type fakePublisher struct {
	mu        sync.Mutex
	flows     []mq.FlowPublishedPayload
	responses []mq.ResponseSubmittedPayload
}

func (p *fakePublisher) PublishFlowPublished(_ context.Context, payload mq.FlowPublishedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flows = append(p.flows, payload)
	return nil
}

func (p *fakePublisher) PublishResponseSubmitted(_ context.Context, payload mq.ResponseSubmittedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, payload)
	return nil
}

type testServer struct {
	t         *testing.T
	mux       *http.ServeMux
	publisher *fakePublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := filestore.Open(t.TempDir())
	require.NoError(t, err)

	pub := &fakePublisher{}
	h := NewHandler(Config{
		FlowStore:     store.Flows(),
		ResponseStore: store.Responses(),
		Publisher:     pub,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &testServer{t: t, mux: mux, publisher: pub}
}

func (s *testServer) do(method, path, tenant string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(TenantHeader, tenant)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

// signupNodes: about → pro (скрыт при plan=free) → done.
func signupNodes() []domain.Node {
	return []domain.Node{
		{
			ID:   "about",
			Type: domain.NodeTypeFlowStep,
			Data: domain.NodeData{
				Label: "About you",
				Questions: []domain.Question{
					{ID: "name", Type: domain.QuestionText, Label: "Name", Required: true},
					{ID: "plan", Type: domain.QuestionSingleChoice, Label: "Plan", Options: []domain.QuestionOption{
						{Label: "Free", Value: "free"}, {Label: "Pro", Value: "pro"},
					}},
				},
				Logic: []domain.LogicRule{{
					ID:         "hide-pro",
					Conditions: []domain.Condition{{FieldID: "plan", Operator: domain.OperatorEquals, Value: "free"}},
					Actions:    domain.RuleActions{HideStep: "pro"},
				}},
			},
		},
		{
			ID:   "pro",
			Type: domain.NodeTypeFlowStep,
			Data: domain.NodeData{
				Label:     "Company",
				Questions: []domain.Question{{ID: "company", Type: domain.QuestionText, Label: "Company", Required: true}},
			},
		},
		{
			ID:   "done",
			Type: domain.NodeTypeFlowStep,
			Data: domain.NodeData{
				Label:     "Anything else?",
				Questions: []domain.Question{{ID: "comment", Type: domain.QuestionTextarea, Label: "Comment"}},
			},
		},
	}
}

func (s *testServer) createFlow(tenant string, nodes []domain.Node, settings map[string]any) FlowResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/flows", tenant, CreateFlowRequest{
		Title: "Signup", Nodes: nodes, Settings: settings,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[FlowResponse](s.t, rec)
}

func (s *testServer) publish(tenant string, id string) FlowVersionResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/flows/"+id+"/publish", tenant, nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[FlowVersionResponse](s.t, rec)
}

func TestFlowCRUD_TenantScoped(t *testing.T) {
	s := newTestServer(t)

	flow := s.createFlow("acme", signupNodes(), nil)
	assert.Equal(t, "acme", flow.TenantID)
	assert.Equal(t, "draft", flow.Status)
	assert.Zero(t, flow.Version)

	rec := s.do(http.MethodGet, "/api/v1/flows/"+flow.ID.String(), "acme", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+flow.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.createFlow("", signupNodes(), nil)
	rec = s.do(http.MethodGet, "/api/v1/flows", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	title := "Renamed"
	rec = s.do(http.MethodPut, "/api/v1/flows/"+flow.ID.String(), "acme", UpdateFlowRequest{Title: &title})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decode[FlowResponse](t, rec).Title)

	published := "published"
	rec = s.do(http.MethodPut, "/api/v1/flows/"+flow.ID.String(), "acme", UpdateFlowRequest{Status: &published})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/flows/not-a-uuid", "acme", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/flows", "acme", CreateFlowRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/flows/"+flow.ID.String(), "acme", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/flows/"+flow.ID.String(), "acme", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublish_RejectsInvalidDraft(t *testing.T) {
	s := newTestServer(t)

	nodes := signupNodes()
	nodes[0].Data.Logic[0].Conditions[0].FieldID = "missing"
	flow := s.createFlow("", nodes, nil)
	id := flow.ID.String()

	rec := s.do(http.MethodPost, "/api/v1/flows/"+id+"/validate", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[ValidateResponse](t, rec)
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "unknown_field", result.Issues[0].Code)
	assert.Equal(t, "about", result.Issues[0].StepID)

	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/publish", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ErrCodeValidationFailed, errorOf(t, rec).Code)
	assert.Empty(t, s.publisher.flows)

	rec = s.do(http.MethodPut, "/api/v1/flows/"+id+"/draft", "", DraftRequest{Nodes: signupNodes()})
	require.Equal(t, http.StatusOK, rec.Code)

	v1 := s.publish("", id)
	assert.Equal(t, 1, v1.Version)
	assert.Len(t, v1.Content.Nodes, 3)
	v2 := s.publish("", id)
	assert.Equal(t, 2, v2.Version)

	require.Len(t, s.publisher.flows, 2)
	assert.Equal(t, 3, s.publisher.flows[0].Steps)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+id+"/versions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]FlowVersionResponse](t, rec), 2)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+id+"/versions/1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/flows/"+id+"/versions/9", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+id+"/published", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[FlowVersionResponse](t, rec).Version)
}

func TestRenderAndNavigate(t *testing.T) {
	s := newTestServer(t)
	flow := s.createFlow("", signupNodes(), nil)
	id := flow.ID.String()

	rec := s.do(http.MethodPost, "/api/v1/flows/"+id+"/render", "", RenderRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code, "draft without versions is not rendered")

	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/preview", "", RenderRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "about", decode[stateView](t, rec).Step.ID)

	s.publish("", id)

	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/navigate", "", NavigateRequest{Action: ActionNext})
	require.Equal(t, http.StatusOK, rec.Code)
	nav := decode[navigateView](t, rec)
	assert.Equal(t, "invalid", nav.Outcome)
	assert.Equal(t, "This field is required", nav.Errors["name"])
	assert.Equal(t, "about", nav.State.Step.ID)

	values := domain.FormValues{"name": "Ann", "plan": "free"}
	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/navigate", "", NavigateRequest{
		RenderRequest: RenderRequest{Values: values, History: []string{"about"}},
		Action:        ActionNext,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	nav = decode[navigateView](t, rec)
	assert.Equal(t, "moved", nav.Outcome)
	assert.Equal(t, "done", nav.State.Step.ID)
	assert.Equal(t, []string{"about", "done"}, nav.State.History)

	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/navigate", "", NavigateRequest{
		RenderRequest: RenderRequest{Values: values, History: nav.State.History},
		Action:        ActionPrevious,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	nav = decode[navigateView](t, rec)
	assert.Equal(t, "moved", nav.Outcome)
	assert.Equal(t, "about", nav.State.Step.ID)

	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/navigate", "", NavigateRequest{
		RenderRequest: RenderRequest{Values: values, History: []string{"about"}},
		Action:        ActionPrevious,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, OutcomeStayed, decode[navigateView](t, rec).Outcome)

	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/navigate", "", NavigateRequest{Action: "jump"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	archived := "archived"
	rec = s.do(http.MethodPut, "/api/v1/flows/"+id, "", UpdateFlowRequest{Status: &archived})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/render", "", RenderRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/publish", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type stateView struct {
	Step    *domain.Node `json:"step"`
	History []string     `json:"history"`
}

type summaryView struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Fields    []struct {
		FieldID  string         `json:"field_id"`
		Answered int            `json:"answered"`
		Choices  map[string]int `json:"choices"`
	} `json:"fields"`
}

type navigateView struct {
	Outcome string            `json:"outcome"`
	Errors  map[string]string `json:"errors"`
	State   stateView         `json:"state"`
}

func TestSubmitResponse(t *testing.T) {
	s := newTestServer(t)
	flow := s.createFlow("acme", signupNodes(), nil)
	id := flow.ID.String()
	s.publish("acme", id)

	rec := s.do(http.MethodPost, "/api/v1/flows/"+id+"/responses", "", SubmitRequest{
		Values: domain.FormValues{"plan": "free"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	detail := errorOf(t, rec)
	assert.Equal(t, ErrCodeValidationFailed, detail.Code)
	assert.Equal(t, map[string]any{"name": "This field is required"}, detail.Details)

	partial := false
	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/responses", "", SubmitRequest{
		Values:    domain.FormValues{"plan": "free"},
		Completed: &partial,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/flows/"+id+"/responses", "", SubmitRequest{
		Values: domain.FormValues{"name": "Ann", "plan": "free", "company": "Hidden Inc"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[ResponseResponse](t, rec)
	assert.Equal(t, 1, resp.Version)
	assert.True(t, resp.Completed)
	assert.Equal(t, "Ann", resp.Values["name"])
	assert.NotContains(t, resp.Values, "company")

	require.Len(t, s.publisher.responses, 2)
	assert.Equal(t, resp.ID, s.publisher.responses[1].ResponseID)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+id+"/responses?completed=true", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+id+"/responses?limit=1&offset=1", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Data, 1)

	rec = s.do(http.MethodGet, "/api/v1/responses/"+resp.ID.String(), "acme", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/responses/"+resp.ID.String(), "other", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+id+"/analytics", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[summaryView](t, rec)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Completed)
	require.Len(t, summary.Fields, 4)
	assert.Equal(t, "plan", summary.Fields[1].FieldID)
	assert.Equal(t, 2, summary.Fields[1].Choices["free"])
}

func TestSubmitResponse_ClosedAndLimit(t *testing.T) {
	s := newTestServer(t)

	closed := s.createFlow("", signupNodes(), map[string]any{"closed": true})
	s.publish("", closed.ID.String())
	values := domain.FormValues{"name": "Ann", "plan": "free"}

	rec := s.do(http.MethodPost, "/api/v1/flows/"+closed.ID.String()+"/responses", "", SubmitRequest{Values: values})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// preview-ответы на черновик разрешены и идут с версией 0
	rec = s.do(http.MethodPost, "/api/v1/flows/"+closed.ID.String()+"/responses", "", SubmitRequest{Values: values, Preview: true})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Zero(t, decode[ResponseResponse](t, rec).Version)

	limited := s.createFlow("", signupNodes(), map[string]any{"responseLimit": 1})
	s.publish("", limited.ID.String())
	path := "/api/v1/flows/" + limited.ID.String() + "/responses"

	rec = s.do(http.MethodPost, path, "", SubmitRequest{Values: values})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(http.MethodPost, path, "", SubmitRequest{Values: values})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitResponse_PreviewDoesNotUseLimit(t *testing.T) {
	s := newTestServer(t)
	values := domain.FormValues{"name": "Ann", "plan": "free"}

	flow := s.createFlow("", signupNodes(), map[string]any{"responseLimit": 1})
	s.publish("", flow.ID.String())
	path := "/api/v1/flows/" + flow.ID.String() + "/responses"

	rec := s.do(http.MethodPost, path, "", SubmitRequest{Values: values, Preview: true})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, path, "", SubmitRequest{Values: values})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, decode[ResponseResponse](t, rec).Version)

	rec = s.do(http.MethodPost, path, "", SubmitRequest{Values: values})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "response limit reached", errorOf(t, rec).Message)

	// limit не распространяется на preview
	rec = s.do(http.MethodPost, path, "", SubmitRequest{Values: values, Preview: true})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/flows/"+flow.ID.String()+"/analytics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[summaryView](t, rec).Total)
}

func TestResponseWriter_CapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrap(rec)
	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusTeapot, rw.status)
	assert.Same(t, rw, wrap(rw))
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(Recovery(logger), Logging(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeInternalError, errorOf(t, rec).Code)
}
