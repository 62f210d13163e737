package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FlowResponse — flow из API.
type FlowResponse struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Version     int             `json:"version"`
	Nodes       json.RawMessage `json:"nodes,omitempty"`
	Settings    map[string]any  `json:"settings,omitempty"`
	Theme       map[string]any  `json:"theme,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// FlowVersionResponse — опубликованная версия flow из API.
type FlowVersionResponse struct {
	FlowID      string          `json:"flow_id"`
	Version     int             `json:"version"`
	Content     json.RawMessage `json:"content"`
	PublishedAt string          `json:"published_at"`
}

// Issue — проблема в определении flow.
type Issue struct {
	Code    string `json:"code"`
	StepID  string `json:"step_id,omitempty"`
	FieldID string `json:"field_id,omitempty"`
	Message string `json:"message"`
}

// ValidateResponse — результат проверки черновика.
type ValidateResponse struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// ResponseResponse — ответ на форму из API.
type ResponseResponse struct {
	ID        string            `json:"id"`
	FlowID    string            `json:"flow_id"`
	Version   int               `json:"version"`
	Values    map[string]any    `json:"values"`
	Completed bool              `json:"completed"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// FieldSummary — статистика поля.
type FieldSummary struct {
	FieldID    string         `json:"field_id"`
	StepID     string         `json:"step_id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Answered   int            `json:"answered"`
	AnswerRate float64        `json:"answer_rate"`
	Choices    map[string]int `json:"choices,omitempty"`
}

// AnalyticsResponse — сводка по ответам flow.
type AnalyticsResponse struct {
	FlowID         string         `json:"flow_id"`
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Partial        int            `json:"partial"`
	CompletionRate float64        `json:"completion_rate"`
	ByVersion      map[string]int `json:"by_version"`
	Fields         []FieldSummary `json:"fields"`
}

// --- Request types ---

// CreateFlowRequest — создание flow.
type CreateFlowRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Nodes       json.RawMessage `json:"nodes,omitempty"`
	Settings    map[string]any  `json:"settings,omitempty"`
	Theme       map[string]any  `json:"theme,omitempty"`
}

// UpdateFlowRequest — обновление метаданных flow.
type UpdateFlowRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// DraftRequest — замена черновика.
type DraftRequest struct {
	Nodes    json.RawMessage `json:"nodes"`
	Settings map[string]any  `json:"settings,omitempty"`
	Theme    map[string]any  `json:"theme,omitempty"`
}

// SubmitRequest — отправка ответа.
type SubmitRequest struct {
	Values    map[string]any `json:"values"`
	Completed *bool          `json:"completed,omitempty"`
	Preview   bool           `json:"preview,omitempty"`
}

// ListResponsesOpts — параметры фильтрации ответов.
type ListResponsesOpts struct {
	Completed *bool
	Limit     int
	Offset    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// APIError — ошибка, возвращённая API.
type APIError struct {
	Status  int
	Code    string
	Message string

	// Details — необработанные подробности (ошибки полей, проблемы flow).
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	if len(e.Details) > 0 && string(e.Details) != "null" {
		return fmt.Sprintf("%s: %s %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Formflow API.
type Client struct {
	baseURL    string
	tenant     string
	httpClient *http.Client
}

// NewClient создаёт клиент для API. Пустой tenant — тенант по умолчанию сервера.
func NewClient(baseURL, tenant string) *Client {
	return &Client{
		baseURL: baseURL,
		tenant:  tenant,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Flows ---

// ListFlows возвращает flows тенанта. status может быть пустым.
func (c *Client) ListFlows(status string) ([]FlowResponse, int, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	var flows []FlowResponse
	total, err := c.list("/api/v1/flows", params, &flows)
	return flows, total, err
}

// CreateFlow создаёт черновик flow.
func (c *Client) CreateFlow(req CreateFlowRequest) (*FlowResponse, error) {
	var flow FlowResponse
	err := c.post("/api/v1/flows", req, &flow)
	return &flow, err
}

// GetFlow возвращает flow по ID.
func (c *Client) GetFlow(id string) (*FlowResponse, error) {
	var flow FlowResponse
	err := c.get("/api/v1/flows/"+id, &flow)
	return &flow, err
}

// UpdateFlow обновляет метаданные flow.
func (c *Client) UpdateFlow(id string, req UpdateFlowRequest) (*FlowResponse, error) {
	var flow FlowResponse
	err := c.put("/api/v1/flows/"+id, req, &flow)
	return &flow, err
}

// SaveDraft заменяет черновик flow.
func (c *Client) SaveDraft(id string, req DraftRequest) (*FlowResponse, error) {
	var flow FlowResponse
	err := c.put("/api/v1/flows/"+id+"/draft", req, &flow)
	return &flow, err
}

// DeleteFlow удаляет flow.
func (c *Client) DeleteFlow(id string) error {
	return c.delete("/api/v1/flows/" + id)
}

// ValidateFlow проверяет черновик на сервере.
func (c *Client) ValidateFlow(id string) (*ValidateResponse, error) {
	var result ValidateResponse
	err := c.post("/api/v1/flows/"+id+"/validate", nil, &result)
	return &result, err
}

// PublishFlow публикует черновик как новую версию.
func (c *Client) PublishFlow(id string) (*FlowVersionResponse, error) {
	var version FlowVersionResponse
	err := c.post("/api/v1/flows/"+id+"/publish", nil, &version)
	return &version, err
}

// ListVersions возвращает версии flow.
func (c *Client) ListVersions(flowID string) ([]FlowVersionResponse, error) {
	var versions []FlowVersionResponse
	_, err := c.list("/api/v1/flows/"+flowID+"/versions", nil, &versions)
	return versions, err
}

// GetVersion возвращает версию flow.
func (c *Client) GetVersion(flowID string, version int) (*FlowVersionResponse, error) {
	var v FlowVersionResponse
	err := c.get("/api/v1/flows/"+flowID+"/versions/"+strconv.Itoa(version), &v)
	return &v, err
}

// --- Responses ---

// ListResponses возвращает ответы flow и их общее число.
func (c *Client) ListResponses(flowID string, opts ListResponsesOpts) ([]ResponseResponse, int, error) {
	params := url.Values{}
	if opts.Completed != nil {
		params.Set("completed", strconv.FormatBool(*opts.Completed))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var responses []ResponseResponse
	total, err := c.list("/api/v1/flows/"+flowID+"/responses", params, &responses)
	return responses, total, err
}

// GetResponse возвращает ответ по ID.
func (c *Client) GetResponse(id string) (*ResponseResponse, error) {
	var resp ResponseResponse
	err := c.get("/api/v1/responses/"+id, &resp)
	return &resp, err
}

// SubmitResponse отправляет ответ на форму.
func (c *Client) SubmitResponse(flowID string, req SubmitRequest) (*ResponseResponse, error) {
	var resp ResponseResponse
	err := c.post("/api/v1/flows/"+flowID+"/responses", req, &resp)
	return &resp, err
}

// Analytics возвращает сводку по ответам flow.
func (c *Client) Analytics(flowID string) (*AnalyticsResponse, error) {
	var summary AnalyticsResponse
	err := c.get("/api/v1/flows/"+flowID+"/analytics", &summary)
	return &summary, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) (int, error) {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return 0, err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return lr.Total, json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-ID", c.tenant)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return &APIError{Status: resp.StatusCode}
	}

	return &APIError{
		Status:  resp.StatusCode,
		Code:    er.Error.Code,
		Message: er.Error.Message,
		Details: er.Error.Details,
	}
}
