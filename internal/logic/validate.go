package logic

import (
	"fmt"

	"github.com/shaiso/Formflow/internal/domain"
)

// Validate проверяет flow и возвращает первую найденную ошибку.
func Validate(flow *domain.Flow) error {
	issues := Check(flow)
	if len(issues) == 0 {
		return nil
	}
	return issues[0]
}

// Check проверяет определение flow при редактировании и возвращает все
// найденные проблемы:
//   - пустой flow, пустые и повторяющиеся ID шагов и полей
//   - неизвестные типы полей, поля выбора без вариантов
//   - условия и действия, ссылающиеся на несуществующие поля и шаги
//   - неизвестные операторы
//   - циклы с некорректным источником или диапазоном
//
// Во время заполнения формы такие ошибки не возникают: движок
// использует значения по умолчанию.
func Check(flow *domain.Flow) []*ValidationError {
	c := newChecker(flow)
	c.run()
	return c.issues
}

type fieldRef struct {
	stepIndex int
	typ       domain.QuestionType
}

type checker struct {
	flow   *domain.Flow
	steps  []domain.Node
	ev     *evaluator
	nodes  map[string]bool
	stepID map[string]bool
	fields map[string]fieldRef
	issues []*ValidationError
}

func newChecker(flow *domain.Flow) *checker {
	return &checker{
		flow:   flow,
		steps:  flow.Steps(),
		ev:     newEvaluator(flow),
		nodes:  make(map[string]bool),
		stepID: make(map[string]bool),
		fields: make(map[string]fieldRef),
	}
}

func (c *checker) add(stepID, fieldID string, err error, format string, args ...any) {
	c.issues = append(c.issues, NewValidationError(stepID, fieldID, fmt.Sprintf(format, args...), err))
}

func (c *checker) run() {
	if len(c.steps) == 0 {
		c.add("", "", ErrEmptyFlow, "flow has no steps")
		return
	}

	if c.flow != nil {
		for _, n := range c.flow.Nodes {
			c.nodes[n.ID] = true
		}
	}

	c.checkStructure()
	for i, step := range c.steps {
		c.checkRules(step)
		c.checkConnections(step)
		c.checkLoop(i, step)
	}
}

func (c *checker) checkStructure() {
	for i, step := range c.steps {
		switch {
		case step.ID == "":
			c.add("", "", ErrEmptyStepID, "step %d has empty ID", i)
		case c.stepID[step.ID]:
			c.add(step.ID, "", ErrDuplicateStepID, "duplicate step ID %q", step.ID)
		default:
			c.stepID[step.ID] = true
		}

		for _, q := range step.Data.Questions {
			if q.ID == "" {
				c.add(step.ID, "", ErrEmptyFieldID, "field %q has empty ID", q.Label)
				continue
			}
			if _, dup := c.fields[q.ID]; dup {
				c.add(step.ID, q.ID, ErrDuplicateFieldID, "duplicate field ID %q", q.ID)
				continue
			}
			c.fields[q.ID] = fieldRef{stepIndex: i, typ: q.Type}

			if !q.Type.IsKnown() {
				c.add(step.ID, q.ID, ErrUnknownFieldType, "unknown field type %q", q.Type)
			}
			if q.Type.HasOptions() && len(q.Options) == 0 {
				c.add(step.ID, q.ID, ErrMissingOptions, "field of type %s has no options", q.Type)
			}
		}
	}
}

func (c *checker) checkRules(step domain.Node) {
	for _, rule := range step.Data.Logic {
		for _, cond := range rule.Conditions {
			c.checkCondition(step.ID, cond)
		}

		a := rule.Actions
		for _, target := range []string{a.JumpToStep, a.ShowStep, a.HideStep} {
			if target != "" && !c.knownStep(target) {
				c.add(step.ID, "", ErrUnknownStep, "rule %q references unknown step %q", rule.ID, target)
			}
		}

		fields := append([]string{a.ShowField, a.HideField}, a.RequireFields...)
		for _, target := range fields {
			if target != "" && !c.ev.knownField(target) {
				c.add(step.ID, target, ErrUnknownField, "rule %q references unknown field %q", rule.ID, target)
			}
		}
	}
}

func (c *checker) checkConnections(step domain.Node) {
	for _, conn := range step.Connections {
		if !c.nodes[conn.TargetNodeID] {
			c.add(step.ID, "", ErrUnknownStep, "connection to unknown node %q", conn.TargetNodeID)
		}
		if conn.Condition != nil {
			c.checkCondition(step.ID, *conn.Condition)
		}
	}
}

func (c *checker) checkCondition(stepID string, cond domain.Condition) {
	res := c.ev.check(cond, nil)
	switch res.Kind {
	case ResultUnknownField:
		c.add(stepID, cond.FieldID, ErrUnknownField, "condition references unknown field %q", cond.FieldID)
	case ResultUnknownOperator:
		c.add(stepID, cond.FieldID, ErrUnknownOperator, "unknown operator %q", cond.Operator)
	}
}

func (c *checker) checkLoop(index int, step domain.Node) {
	loop := step.Data.Loop
	if loop == nil || !loop.Enabled {
		return
	}

	source := loop.SourceFieldID
	ref, ok := c.fields[source]
	switch {
	case source == "":
		c.add(step.ID, "", ErrInvalidLoopSource, "loop has no source field")
	case !ok:
		c.add(step.ID, source, ErrInvalidLoopSource, "loop source %q does not exist", source)
	case ref.typ != domain.QuestionNumber:
		c.add(step.ID, source, ErrInvalidLoopSource, "loop source %q is %s, not number", source, ref.typ)
	case ref.stepIndex >= index:
		c.add(step.ID, source, ErrInvalidLoopSource, "loop source %q must belong to an earlier step", source)
	}

	if loop.MinCount < 0 || (loop.MaxCount != 0 && loop.MaxCount < loop.MinCount) {
		c.add(step.ID, "", ErrInvalidLoopRange, "loop range [%d, %d] is invalid", loop.MinCount, loop.MaxCount)
	}
}

func (c *checker) knownStep(id string) bool {
	return c.stepID[id] || c.stepID[BaseID(id)]
}
