package logic

import (
	"strings"

	"github.com/shaiso/Formflow/internal/domain"
)

// EvaluateCondition вычисляет одно условие над значениями формы.
//
// Семантика операторов:
//   - equals / not_equals — строгое равенство и его отрицание
//   - contains / not_contains — подстрока в строковом представлении и её отрицание;
//     для отсутствующего значения contains ложно
//   - greater_than / less_than — числовое сравнение; ложное значение поля
//     (nil, "", 0, false) всегда даёт false
//   - not_empty / is_empty — nil и пустая строка считаются пустыми
//
// Неизвестный оператор даёт false.
func EvaluateCondition(cond domain.Condition, values domain.FormValues) bool {
	value := values[cond.FieldID]

	switch cond.Operator {
	case domain.OperatorEquals:
		return strictEqual(value, cond.Value)
	case domain.OperatorNotEquals:
		return !strictEqual(value, cond.Value)
	case domain.OperatorContains:
		return contains(value, cond.Value)
	case domain.OperatorNotContains:
		return !contains(value, cond.Value)
	case domain.OperatorGreaterThan:
		if isFalsy(value) {
			return false
		}
		return ToNumber(value) > ToNumber(cond.Value)
	case domain.OperatorLessThan:
		if isFalsy(value) {
			return false
		}
		return ToNumber(value) < ToNumber(cond.Value)
	case domain.OperatorNotEmpty:
		return !IsEmpty(value)
	case domain.OperatorIsEmpty:
		return IsEmpty(value)
	default:
		return false
	}
}

func contains(value, needle any) bool {
	if value == nil {
		return false
	}
	return strings.Contains(ToString(value), ToString(needle))
}

// EvaluateConditions сворачивает список условий слева направо.
//
// Результат первого условия — начальное значение; каждое следующее
// объединяется со своим LogicOperator (OR → ||, иначе &&).
// Пустой список истинен.
//
// Условия оцениваются только по значениям, без flow: условие на поле,
// которого нет во flow, работает по своему оператору (is_empty даёт true).
// Правила видимости и переходов (EvaluateStepVisibility, JumpTarget, Plan)
// считают такое условие ложным, поэтому результаты могут расходиться.
func EvaluateConditions(conditions []domain.Condition, values domain.FormValues) bool {
	return fold(conditions, func(c domain.Condition) bool {
		return EvaluateCondition(c, values)
	})
}

func fold(conditions []domain.Condition, eval func(domain.Condition) bool) bool {
	if len(conditions) == 0 {
		return true
	}

	result := eval(conditions[0])
	for _, c := range conditions[1:] {
		current := eval(c)
		if strings.EqualFold(string(c.LogicOperator), string(domain.LogicOr)) {
			result = result || current
		} else {
			result = result && current
		}
	}
	return result
}

// ResultKind — вид результата проверяемого вычисления условия.
type ResultKind int

const (
	// ResultOK — условие вычислено.
	ResultOK ResultKind = iota

	// ResultUnknownField — условие ссылается на поле, которого нет во flow.
	ResultUnknownField

	// ResultUnknownOperator — оператор не поддерживается.
	ResultUnknownOperator
)

// String возвращает строковое представление ResultKind.
func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultUnknownField:
		return "unknown_field"
	case ResultUnknownOperator:
		return "unknown_operator"
	default:
		return "unknown"
	}
}

// Result — результат CheckCondition.
// Value всегда содержит значение, которое используется при заполнении формы.
type Result struct {
	Kind    ResultKind
	Value   bool
	FieldID string
}

// OK возвращает true, если условие корректно.
func (r Result) OK() bool {
	return r.Kind == ResultOK
}

// CheckCondition вычисляет условие с учётом определения flow и сообщает,
// почему условие не могло быть вычислено. Для некорректных условий Value = false.
func CheckCondition(flow *domain.Flow, cond domain.Condition, values domain.FormValues) Result {
	return newEvaluator(flow).check(cond, values)
}

// evaluator вычисляет условия в контексте flow: условие над полем,
// которого нет во flow, ложно независимо от оператора.
type evaluator struct {
	fields map[string]domain.Question
}

func newEvaluator(flow *domain.Flow) *evaluator {
	ev := &evaluator{fields: make(map[string]domain.Question)}
	for _, step := range flow.Steps() {
		for _, q := range step.Data.Questions {
			ev.fields[q.ID] = q
		}
	}
	return ev
}

// knownField учитывает ID итераций цикла ({fieldId}_loop_{index}).
func (ev *evaluator) knownField(id string) bool {
	if _, ok := ev.fields[id]; ok {
		return true
	}
	_, ok := ev.fields[BaseID(id)]
	return ok
}

func (ev *evaluator) check(cond domain.Condition, values domain.FormValues) Result {
	if !ev.knownField(cond.FieldID) {
		return Result{Kind: ResultUnknownField, FieldID: cond.FieldID}
	}
	if !cond.Operator.IsKnown() {
		return Result{Kind: ResultUnknownOperator, FieldID: cond.FieldID}
	}
	return Result{Kind: ResultOK, Value: EvaluateCondition(cond, values), FieldID: cond.FieldID}
}

func (ev *evaluator) conditions(conditions []domain.Condition, values domain.FormValues) bool {
	return fold(conditions, func(c domain.Condition) bool {
		return ev.check(c, values).Value
	})
}
