package logic

import (
	"testing"

	"github.com/shaiso/Formflow/internal/domain"
)

// guestsFlow: шаг B скрыт, пока guests не больше нуля.
func guestsFlow() *domain.Flow {
	a := withRules(step("A", field("guests", domain.QuestionNumber)),
		domain.LogicRule{ID: "hide-b", Actions: domain.RuleActions{HideStep: "B"}},
		domain.LogicRule{
			ID:         "show-b",
			Conditions: []domain.Condition{cond("guests", domain.OperatorGreaterThan, 0)},
			Actions:    domain.RuleActions{ShowStep: "B"},
		},
	)
	return flowOf(a, step("B", field("guest_name", domain.QuestionText)))
}

func TestVisibleSteps_Guests(t *testing.T) {
	flow := guestsFlow()

	values := domain.FormValues{"guests": float64(0)}
	if got := ids(VisibleSteps(flow, values)); !equalIDs(got, []string{"A"}) {
		t.Errorf("guests=0: visible = %v, want [A]", got)
	}

	values["guests"] = float64(2)
	if got := ids(VisibleSteps(flow, values)); !equalIDs(got, []string{"A", "B"}) {
		t.Errorf("guests=2: visible = %v, want [A B]", got)
	}
}

func TestEvaluateStepVisibility_DefaultVisible(t *testing.T) {
	flow := flowOf(
		step("A", field("x", domain.QuestionText)),
		step("B", field("y", domain.QuestionText)),
	)

	for _, id := range []string{"A", "B", "missing"} {
		if !EvaluateStepVisibility(id, flow, domain.FormValues{}) {
			t.Errorf("step %s should be visible by default", id)
		}
	}
}

func TestEvaluateStepVisibility_LastMatchWins(t *testing.T) {
	a := withRules(step("A", field("x", domain.QuestionText)),
		domain.LogicRule{
			Conditions: []domain.Condition{cond("x", domain.OperatorEquals, "show")},
			Actions:    domain.RuleActions{ShowStep: "C"},
		},
	)
	b := withRules(step("B", field("y", domain.QuestionText)),
		domain.LogicRule{
			Conditions: []domain.Condition{cond("y", domain.OperatorEquals, "hide")},
			Actions:    domain.RuleActions{HideStep: "C"},
		},
	)
	flow := flowOf(a, b, step("C"))

	tests := []struct {
		name   string
		values domain.FormValues
		want   bool
	}{
		{"no rule fires", domain.FormValues{}, true},
		{"show only", domain.FormValues{"x": "show"}, true},
		{"hide only", domain.FormValues{"y": "hide"}, false},
		{"later hide wins", domain.FormValues{"x": "show", "y": "hide"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateStepVisibility("C", flow, tt.values); got != tt.want {
				t.Errorf("EvaluateStepVisibility(C) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateStepVisibility_UnknownFieldIsFalse(t *testing.T) {
	a := withRules(step("A", field("x", domain.QuestionText)),
		domain.LogicRule{
			Conditions: []domain.Condition{cond("ghost", domain.OperatorIsEmpty, nil)},
			Actions:    domain.RuleActions{HideStep: "B"},
		},
	)
	flow := flowOf(a, step("B"))

	if !EvaluateStepVisibility("B", flow, domain.FormValues{}) {
		t.Error("condition on unknown field must not fire")
	}

	// Без flow то же условие оценивается только по оператору.
	if !EvaluateConditions(a.Data.Logic[0].Conditions, domain.FormValues{}) {
		t.Error("EvaluateConditions: is_empty on a missing value should be true")
	}
}

func TestPlan_FirstStepForcedVisible(t *testing.T) {
	a := withRules(step("A", field("x", domain.QuestionText)),
		domain.LogicRule{Actions: domain.RuleActions{HideStep: "A"}},
	)
	flow := flowOf(a, step("B"))

	if EvaluateStepVisibility("A", flow, nil) {
		t.Error("rule should hide A")
	}
	if got := ids(VisibleSteps(flow, nil)); !equalIDs(got, []string{"A", "B"}) {
		t.Errorf("visible = %v, want [A B]", got)
	}
}

func TestPlan_IgnoresNonStepNodes(t *testing.T) {
	flow := flowOf(
		domain.Node{ID: "start", Type: "start"},
		step("A"),
		domain.Node{ID: "end", Type: "end"},
	)

	plan := Plan(flow, nil)
	if len(plan) != 1 || plan[0].Node.ID != "A" {
		t.Fatalf("plan = %+v, want only A", plan)
	}
	if !plan[0].Visible || plan[0].Position != 0 {
		t.Errorf("plan[0] = %+v", plan[0])
	}
}

func TestPlan_ExpandsLoops(t *testing.T) {
	guests := step("guests", field("name", domain.QuestionText))
	guests.Data.Loop = &domain.LoopConfig{Enabled: true, SourceFieldID: "count", MaxCount: 5}
	flow := flowOf(step("count", field("count", domain.QuestionNumber)), guests, step("done"))

	plan := Plan(flow, domain.FormValues{"count": "2"})
	var got []string
	for _, p := range plan {
		got = append(got, p.Node.ID)
	}
	want := []string{"count", "guests_loop_0", "guests_loop_1", "done"}
	if !equalIDs(got, want) {
		t.Errorf("plan = %v, want %v", got, want)
	}
	if plan[2].Position != 1 || plan[3].Position != 2 {
		t.Errorf("positions = %d, %d", plan[2].Position, plan[3].Position)
	}
}

func TestPlan_HidesSingleIteration(t *testing.T) {
	a := withRules(step("A", field("qty", domain.QuestionNumber)),
		domain.LogicRule{Actions: domain.RuleActions{HideStep: "B_loop_1"}},
	)
	b := step("B", field("item", domain.QuestionText))
	b.Data.Loop = &domain.LoopConfig{Enabled: true, SourceFieldID: "qty"}
	flow := flowOf(a, b)
	values := domain.FormValues{"qty": "3"}

	if issues := Check(flow); len(issues) != 0 {
		t.Fatalf("Check = %v, want no issues", issues)
	}
	if EvaluateStepVisibility("B_loop_1", flow, values) {
		t.Error("B_loop_1 should be hidden")
	}
	if !EvaluateStepVisibility("B_loop_0", flow, values) {
		t.Error("B_loop_0 should stay visible")
	}

	want := []string{"A", "B_loop_0", "B_loop_2"}
	if got := ids(VisibleSteps(flow, values)); !equalIDs(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestPlan_HideSourceStepHidesAllIterations(t *testing.T) {
	a := withRules(step("A", field("qty", domain.QuestionNumber)),
		domain.LogicRule{
			Conditions: []domain.Condition{cond("qty", domain.OperatorGreaterThan, 1)},
			Actions:    domain.RuleActions{HideStep: "B"},
		},
	)
	b := step("B", field("item", domain.QuestionText))
	b.Data.Loop = &domain.LoopConfig{Enabled: true, SourceFieldID: "qty"}
	flow := flowOf(a, b, step("C"))

	want := []string{"A", "C"}
	if got := ids(VisibleSteps(flow, domain.FormValues{"qty": "2"})); !equalIDs(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestEvaluateFieldLogic(t *testing.T) {
	a := withRules(step("A",
		field("plan", domain.QuestionSingleChoice),
		field("company", domain.QuestionText),
		field("vat", domain.QuestionText),
	),
		domain.LogicRule{Actions: domain.RuleActions{HideField: "company"}},
		domain.LogicRule{
			Conditions: []domain.Condition{cond("plan", domain.OperatorEquals, "business")},
			Actions:    domain.RuleActions{ShowField: "company", RequireFields: []string{"company", "vat"}},
		},
	)
	flow := flowOf(a)

	tests := []struct {
		name    string
		fieldID string
		values  domain.FormValues
		want    FieldState
	}{
		{"default", "plan", domain.FormValues{}, FieldState{Show: true}},
		{"hidden", "company", domain.FormValues{"plan": "personal"}, FieldState{Show: false}},
		{"shown and required", "company", domain.FormValues{"plan": "business"}, FieldState{Show: true, Required: true}},
		{"required only", "vat", domain.FormValues{"plan": "business"}, FieldState{Show: true, Required: true}},
		{"unknown field", "ghost", domain.FormValues{}, FieldState{Show: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateFieldLogic(tt.fieldID, flow, tt.values); got != tt.want {
				t.Errorf("EvaluateFieldLogic(%s) = %+v, want %+v", tt.fieldID, got, tt.want)
			}
		})
	}
}

func TestEvaluateFieldLogic_LoopedField(t *testing.T) {
	a := withRules(step("A", field("diet", domain.QuestionText)),
		domain.LogicRule{
			Conditions: []domain.Condition{cond("diet", domain.OperatorNotEmpty, nil)},
			Actions:    domain.RuleActions{RequireFields: []string{"allergy"}},
		},
	)
	flow := flowOf(a, step("B", field("allergy", domain.QuestionText)))

	got := EvaluateFieldLogic("allergy_loop_3", flow, domain.FormValues{"diet": "vegan"})
	if !got.Required {
		t.Error("looped field should inherit rule targeting its base ID")
	}
}

func TestJumpTarget(t *testing.T) {
	a := withRules(step("A", field("vip", domain.QuestionText)),
		domain.LogicRule{Actions: domain.RuleActions{ShowStep: "B"}},
		domain.LogicRule{
			Conditions: []domain.Condition{cond("vip", domain.OperatorEquals, "yes")},
			Actions:    domain.RuleActions{JumpToStep: "C"},
		},
		domain.LogicRule{Actions: domain.RuleActions{JumpToStep: "B"}},
	)
	flow := flowOf(a, step("B"), step("C"))

	if got := JumpTarget(a, flow, domain.FormValues{"vip": "yes"}); got != "C" {
		t.Errorf("JumpTarget(vip=yes) = %q, want C", got)
	}
	if got := JumpTarget(a, flow, domain.FormValues{"vip": "no"}); got != "B" {
		t.Errorf("JumpTarget(vip=no) = %q, want B", got)
	}
	if got := JumpTarget(step("B"), flow, nil); got != "" {
		t.Errorf("JumpTarget(no rules) = %q, want empty", got)
	}
}

func TestResolveStep(t *testing.T) {
	steps := []domain.Node{
		{ID: "A"},
		{ID: "B_loop_0", SourceStepID: "B"},
		{ID: "B_loop_1", SourceStepID: "B"},
		{ID: "C"},
	}

	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"A", 0, true},
		{"B", 1, true},
		{"B_loop_1", 2, true},
		{"C", 3, true},
		{"D", -1, false},
		{"", -1, false},
	}

	for _, tt := range tests {
		got, ok := ResolveStep(steps, tt.id)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ResolveStep(%q) = %d, %v; want %d, %v", tt.id, got, ok, tt.want, tt.wantOK)
		}
	}
}
