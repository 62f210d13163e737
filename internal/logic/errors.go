package logic

import "errors"

// Ошибки проверки flow при редактировании.
var (
	// ErrEmptyFlow — flow не содержит ни одного шага flow_step.
	ErrEmptyFlow = errors.New("flow has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrEmptyFieldID — поле не имеет ID.
	ErrEmptyFieldID = errors.New("field has empty ID")

	// ErrDuplicateFieldID — несколько полей с одинаковым ID.
	ErrDuplicateFieldID = errors.New("duplicate field ID")

	// ErrUnknownFieldType — неизвестный тип поля.
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrMissingOptions — поле выбора без вариантов ответа.
	ErrMissingOptions = errors.New("choice field has no options")
)

// Ошибки ссылок в правилах и циклах.
var (
	// ErrUnknownField — условие или действие ссылается на несуществующее поле.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownStep — действие или связь ссылается на несуществующий шаг.
	ErrUnknownStep = errors.New("unknown step")

	// ErrUnknownOperator — неподдерживаемый оператор условия.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrInvalidLoopSource — источник цикла не является числовым полем предыдущего шага.
	ErrInvalidLoopSource = errors.New("invalid loop source")

	// ErrInvalidLoopRange — minCount больше maxCount.
	ErrInvalidLoopRange = errors.New("invalid loop range")
)

// ValidationError — ошибка проверки flow с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где найдена ошибка
	FieldID string // ID поля, если ошибка относится к полю
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	switch {
	case e.StepID != "" && e.FieldID != "":
		return "step " + e.StepID + ", field " + e.FieldID + ": " + e.Message
	case e.StepID != "":
		return "step " + e.StepID + ": " + e.Message
	default:
		return e.Message
	}
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку проверки.
func NewValidationError(stepID, fieldID, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		FieldID: fieldID,
		Message: message,
		Err:     err,
	}
}

var codes = []struct {
	err  error
	code string
}{
	{ErrEmptyFlow, "empty_flow"},
	{ErrEmptyStepID, "empty_step_id"},
	{ErrDuplicateStepID, "duplicate_step_id"},
	{ErrEmptyFieldID, "empty_field_id"},
	{ErrDuplicateFieldID, "duplicate_field_id"},
	{ErrUnknownFieldType, "unknown_field_type"},
	{ErrMissingOptions, "missing_options"},
	{ErrUnknownField, "unknown_field"},
	{ErrUnknownStep, "unknown_step"},
	{ErrUnknownOperator, "unknown_operator"},
	{ErrInvalidLoopSource, "invalid_loop_source"},
	{ErrInvalidLoopRange, "invalid_loop_range"},
}

// Code возвращает машиночитаемый код ошибки проверки ("unknown_field" и т.д.)
// или "invalid" для прочих ошибок.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "invalid"
}
