package logic

import (
	"slices"

	"github.com/shaiso/Formflow/internal/domain"
)

// FieldState — вычисленное состояние поля.
// Required — только требование из правил; статический флаг поля
// объединяет вызывающий код.
type FieldState struct {
	Show     bool `json:"show"`
	Required bool `json:"required"`
}

// EvaluateStepVisibility определяет, виден ли шаг.
//
// По умолчанию шаг виден. Правила всех шагов просматриваются в порядке flow;
// каждое сработавшее правило применяет hideStep/showStep, если они указывают
// на stepID. Побеждает последнее сработавшее правило.
// Для итерации цикла учитываются и правила, указывающие на исходный шаг.
func EvaluateStepVisibility(stepID string, flow *domain.Flow, values domain.FormValues) bool {
	return newEvaluator(flow).stepVisible(stepID, flow, values)
}

// EvaluateFieldLogic вычисляет видимость и обязательность поля по правилам flow.
// По умолчанию {Show: true, Required: false}.
func EvaluateFieldLogic(fieldID string, flow *domain.Flow, values domain.FormValues) FieldState {
	return newEvaluator(flow).fieldState(fieldID, flow, values)
}

// JumpTarget возвращает цель перехода первого сработавшего правила шага
// с jumpToStep или пустую строку. Видимость цели проверяет вызывающий код.
func JumpTarget(step domain.Node, flow *domain.Flow, values domain.FormValues) string {
	return newEvaluator(flow).jumpTarget(step, values)
}

// PlannedStep — шаг в развёрнутой последовательности формы.
type PlannedStep struct {
	// Node — шаг (для циклов — отдельная итерация).
	Node domain.Node

	// Visible — результат EvaluateStepVisibility для этого шага или итерации.
	Visible bool

	// Position — индекс исходного шага среди шагов flow.
	Position int
}

// Plan строит полную последовательность шагов для текущих значений:
// шаги-циклы разворачиваются в итерации, и видимость вычисляется для
// каждой итерации отдельно. Правило, указывающее на исходный шаг, действует
// на все итерации; указывающее на {id}_loop_{i} — только на одну.
// Первый шаг flow всегда виден.
func Plan(flow *domain.Flow, values domain.FormValues) []PlannedStep {
	ev := newEvaluator(flow)
	steps := flow.Steps()

	plan := make([]PlannedStep, 0, len(steps))
	for i, step := range steps {
		for _, node := range GenerateLoopedSteps(step, values) {
			visible := i == 0 || ev.stepVisible(node.ID, flow, values)
			plan = append(plan, PlannedStep{Node: node, Visible: visible, Position: i})
		}
	}
	return plan
}

// VisibleSteps возвращает видимые шаги с развёрнутыми циклами.
func VisibleSteps(flow *domain.Flow, values domain.FormValues) []domain.Node {
	plan := Plan(flow, values)
	out := make([]domain.Node, 0, len(plan))
	for _, p := range plan {
		if p.Visible {
			out = append(out, p.Node)
		}
	}
	return out
}

// ResolveStep находит индекс видимого шага по ID.
// ID шага-цикла указывает на его первую итерацию.
func ResolveStep(steps []domain.Node, id string) (int, bool) {
	if id == "" {
		return -1, false
	}
	for i, s := range steps {
		if s.ID == id {
			return i, true
		}
	}
	for i, s := range steps {
		if s.SourceStepID == id {
			return i, true
		}
	}
	return -1, false
}

func (ev *evaluator) stepVisible(stepID string, flow *domain.Flow, values domain.FormValues) bool {
	visible := true
	for _, step := range flow.Steps() {
		for _, rule := range step.Data.Logic {
			if rule.Actions.HideStep == "" && rule.Actions.ShowStep == "" {
				continue
			}
			if !ev.conditions(rule.Conditions, values) {
				continue
			}
			if targets(rule.Actions.HideStep, stepID) {
				visible = false
			}
			if targets(rule.Actions.ShowStep, stepID) {
				visible = true
			}
		}
	}
	return visible
}

func (ev *evaluator) fieldState(fieldID string, flow *domain.Flow, values domain.FormValues) FieldState {
	state := FieldState{Show: true}
	for _, step := range flow.Steps() {
		for _, rule := range step.Data.Logic {
			a := rule.Actions
			if a.HideField == "" && a.ShowField == "" && len(a.RequireFields) == 0 {
				continue
			}
			if !ev.conditions(rule.Conditions, values) {
				continue
			}
			if targets(a.HideField, fieldID) {
				state.Show = false
			}
			if targets(a.ShowField, fieldID) {
				state.Show = true
			}
			if slices.ContainsFunc(a.RequireFields, func(t string) bool { return targets(t, fieldID) }) {
				state.Required = true
			}
		}
	}
	return state
}

func (ev *evaluator) jumpTarget(step domain.Node, values domain.FormValues) string {
	for _, rule := range step.Data.Logic {
		if rule.Actions.JumpToStep == "" {
			continue
		}
		if ev.conditions(rule.Conditions, values) {
			return rule.Actions.JumpToStep
		}
	}
	return ""
}

// targets — указывает ли действие на id или на его исходный (нециклический) ID.
func targets(target, id string) bool {
	if target == "" {
		return false
	}
	return target == id || target == BaseID(id)
}
