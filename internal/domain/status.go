package domain

// FlowStatus — статус flow.
//
// Жизненный цикл:
//
//	DRAFT → PUBLISHED → ARCHIVED
//	  ↑________|  (черновик можно менять и публиковать снова)
type FlowStatus string

const (
	// FlowStatusDraft — flow ещё не публиковался.
	FlowStatusDraft FlowStatus = "draft"

	// FlowStatusPublished — у flow есть хотя бы одна опубликованная версия.
	FlowStatusPublished FlowStatus = "published"

	// FlowStatusArchived — flow снят с публикации, ответы не принимаются.
	FlowStatusArchived FlowStatus = "archived"
)

// IsValid проверяет, что статус известен.
func (s FlowStatus) IsValid() bool {
	switch s {
	case FlowStatusDraft, FlowStatusPublished, FlowStatusArchived:
		return true
	default:
		return false
	}
}

// AcceptsResponses возвращает true, если форму можно заполнять.
func (s FlowStatus) AcceptsResponses() bool {
	return s == FlowStatusPublished
}

// ParseFlowStatus парсит строку в FlowStatus.
func ParseFlowStatus(s string) FlowStatus {
	switch s {
	case "published":
		return FlowStatusPublished
	case "archived":
		return FlowStatusArchived
	default:
		return FlowStatusDraft
	}
}

// Operator — оператор условия.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorNotEmpty    Operator = "not_empty"
	OperatorIsEmpty     Operator = "is_empty"
)

// IsKnown проверяет, что оператор поддерживается движком.
func (o Operator) IsKnown() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals,
		OperatorContains, OperatorNotContains,
		OperatorGreaterThan, OperatorLessThan,
		OperatorNotEmpty, OperatorIsEmpty:
		return true
	default:
		return false
	}
}

// LogicOperator — связка условий.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// QuestionType — тип поля формы.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionEmail          QuestionType = "email"
	QuestionNumber         QuestionType = "number"
	QuestionPhone          QuestionType = "phone"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionDate           QuestionType = "date"
	QuestionFile           QuestionType = "file"
	QuestionTextarea       QuestionType = "textarea"
)

// IsKnown проверяет, что тип поля поддерживается.
func (t QuestionType) IsKnown() bool {
	switch t {
	case QuestionText, QuestionEmail, QuestionNumber, QuestionPhone,
		QuestionSingleChoice, QuestionMultipleChoice,
		QuestionDate, QuestionFile, QuestionTextarea:
		return true
	default:
		return false
	}
}

// HasOptions возвращает true для полей с вариантами ответа.
func (t QuestionType) HasOptions() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice
}
