package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeTypeFlowStep — тип узла, который несёт вопросы формы.
// Узлы других типов (start, end, заметки редактора) движком игнорируются.
const NodeTypeFlowStep = "flow_step"

// Flow — определение формы (flow).
//
// Сам Flow хранит черновик (draft): nodes, settings и theme всегда
// редактируемы. Опубликованное содержимое живёт в FlowVersion и после
// записи не меняется.
type Flow struct {
	// ID — уникальный идентификатор flow.
	ID uuid.UUID `json:"id"`

	// TenantID — владелец flow (мультитенантность).
	TenantID string `json:"tenantId"`

	// Title — заголовок формы.
	Title string `json:"title"`

	// Description — описание формы.
	Description string `json:"description,omitempty"`

	// Nodes — упорядоченный список шагов (черновик).
	Nodes []Node `json:"nodes"`

	// Settings — настройки формы в свободном виде (см. FormSettings).
	Settings map[string]any `json:"settings,omitempty"`

	// Theme — тема оформления, движком не интерпретируется.
	Theme map[string]any `json:"theme,omitempty"`

	// Status — draft, published или archived.
	Status FlowStatus `json:"status"`

	// Version — номер последней опубликованной версии (0, если не публиковался).
	Version int `json:"version"`

	// CreatedAt — время создания flow.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt — время последнего изменения черновика.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Content возвращает снимок черновика для публикации.
func (f *Flow) Content() FlowContent {
	return FlowContent{
		Title:       f.Title,
		Description: f.Description,
		Nodes:       f.Nodes,
		Settings:    f.Settings,
		Theme:       f.Theme,
	}
}

// ApplyContent заменяет содержимое черновика.
func (f *Flow) ApplyContent(c FlowContent) {
	f.Title = c.Title
	f.Description = c.Description
	f.Nodes = c.Nodes
	f.Settings = c.Settings
	f.Theme = c.Theme
}

// Steps возвращает узлы типа flow_step в порядке flow.
func (f *Flow) Steps() []Node {
	if f == nil {
		return nil
	}
	steps := make([]Node, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.Type == NodeTypeFlowStep {
			steps = append(steps, n)
		}
	}
	return steps
}

// FlowContent — содержимое flow, которое фиксируется при публикации.
type FlowContent struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Nodes       []Node         `json:"nodes"`
	Settings    map[string]any `json:"settings,omitempty"`
	Theme       map[string]any `json:"theme,omitempty"`
}

// FlowVersion — опубликованный неизменяемый снимок flow.
type FlowVersion struct {
	// FlowID — ссылка на родительский flow.
	FlowID uuid.UUID `json:"flowId"`

	// Version — номер версии (1, 2, 3, ...).
	Version int `json:"version"`

	// Content — снимок черновика на момент публикации.
	Content FlowContent `json:"content"`

	// PublishedAt — время публикации.
	PublishedAt time.Time `json:"publishedAt"`
}

// AsFlow собирает Flow из опубликованного снимка для рендеринга.
func (v *FlowVersion) AsFlow() *Flow {
	f := &Flow{
		ID:        v.FlowID,
		Status:    FlowStatusPublished,
		Version:   v.Version,
		CreatedAt: v.PublishedAt,
		UpdatedAt: v.PublishedAt,
	}
	f.ApplyContent(v.Content)
	return f
}

// Node — шаг формы.
type Node struct {
	// ID — уникальный идентификатор шага в рамках flow.
	ID string `json:"id"`

	// Type — тип узла; форму описывает только flow_step.
	Type string `json:"type"`

	// Position — координаты в редакторе, только для UI.
	Position Position `json:"position"`

	// Data — содержимое шага.
	Data NodeData `json:"data"`

	// Connections — исходящие рёбра редактора.
	Connections []Connection `json:"connections,omitempty"`

	// LoopIndex — номер итерации (с 0) для шагов, размноженных циклом.
	LoopIndex *int `json:"loopIndex,omitempty"`

	// SourceStepID — ID исходного шага для итераций цикла.
	SourceStepID string `json:"sourceStepId,omitempty"`
}

// BaseID возвращает ID исходного шага (для итераций цикла) или собственный ID.
func (n Node) BaseID() string {
	if n.SourceStepID != "" {
		return n.SourceStepID
	}
	return n.ID
}

// Position — координаты узла на холсте.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData — данные шага.
type NodeData struct {
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Questions   []Question  `json:"questions"`
	Logic       []LogicRule `json:"logic,omitempty"`
	Loop        *LoopConfig `json:"loop,omitempty"`
}

// Connection — ребро между узлами.
// Condition определяет условный переход по ребру; рендерер формы
// использует вместо этого правила шага (LogicRule).
type Connection struct {
	TargetNodeID string     `json:"targetNodeId"`
	Condition    *Condition `json:"condition,omitempty"`
}

// Question — поле формы.
type Question struct {
	ID          string           `json:"id"`
	Type        QuestionType     `json:"type"`
	Label       string           `json:"label"`
	Required    bool             `json:"required,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Validation  *ValidationRules `json:"validation,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
}

// QuestionOption — вариант ответа для single_choice / multiple_choice.
type QuestionOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ValidationRules — дополнительные правила проверки значения поля.
type ValidationRules struct {
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`

	// Message заменяет стандартное сообщение об ошибке.
	Message string `json:"message,omitempty"`
}

// Condition — условие над значением поля.
type Condition struct {
	// FieldID — поле, значение которого проверяется.
	FieldID string `json:"fieldId"`

	// Operator — оператор сравнения.
	Operator Operator `json:"operator"`

	// Value — значение для сравнения.
	Value any `json:"value,omitempty"`

	// LogicOperator — как условие объединяется с накопленным результатом.
	// У первого условия игнорируется; по умолчанию AND.
	LogicOperator LogicOperator `json:"logicOperator,omitempty"`
}

// LogicRule — правило шага: условия и действия.
type LogicRule struct {
	ID         string      `json:"id,omitempty"`
	Conditions []Condition `json:"conditions"`
	Actions    RuleActions `json:"actions"`
}

// RuleActions — действия, применяемые при выполнении условий правила.
type RuleActions struct {
	JumpToStep    string   `json:"jumpToStep,omitempty"`
	ShowStep      string   `json:"showStep,omitempty"`
	HideStep      string   `json:"hideStep,omitempty"`
	ShowField     string   `json:"showField,omitempty"`
	HideField     string   `json:"hideField,omitempty"`
	RequireFields []string `json:"requireFields,omitempty"`
}

// LoopConfig — повторение шага N раз по числовому полю.
type LoopConfig struct {
	Enabled bool `json:"enabled"`

	// SourceFieldID — числовое поле из предыдущего шага.
	SourceFieldID string `json:"sourceFieldId,omitempty"`

	MinCount int `json:"minCount,omitempty"`

	// MaxCount — 0 означает значение по умолчанию (10).
	MaxCount int `json:"maxCount,omitempty"`

	// LabelTemplate — шаблон заголовка итерации с плейсхолдером {index}.
	LabelTemplate string `json:"labelTemplate,omitempty"`
}

// FormValues — значения формы: ID поля (или {fieldId}_loop_{index}) → значение.
type FormValues map[string]any

// Clone возвращает поверхностную копию значений.
func (v FormValues) Clone() FormValues {
	out := make(FormValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
