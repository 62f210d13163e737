package logic

import (
	"errors"
	"testing"

	"github.com/shaiso/Formflow/internal/domain"
)

func validFlow() *domain.Flow {
	count := step("count", field("qty", domain.QuestionNumber), field("vip", domain.QuestionSingleChoice))
	count.Data.Questions[1].Options = []domain.QuestionOption{{Label: "Yes", Value: "yes"}, {Label: "No", Value: "no"}}
	count = withRules(count, domain.LogicRule{
		ID:         "r1",
		Conditions: []domain.Condition{cond("vip", domain.OperatorEquals, "yes")},
		Actions:    domain.RuleActions{JumpToStep: "summary", RequireFields: []string{"qty"}},
	})
	count.Connections = []domain.Connection{{TargetNodeID: "items"}}

	items := step("items", field("item_name", domain.QuestionText))
	items.Data.Loop = &domain.LoopConfig{Enabled: true, SourceFieldID: "qty", MinCount: 1, MaxCount: 5}

	return flowOf(
		domain.Node{ID: "start", Type: "start", Connections: []domain.Connection{{TargetNodeID: "count"}}},
		count,
		items,
		step("summary", field("notes", domain.QuestionTextarea)),
	)
}

func TestValidate_ValidFlow(t *testing.T) {
	if err := Validate(validFlow()); err != nil {
		t.Fatalf("expected valid flow, got %v", err)
	}
	if issues := Check(validFlow()); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidate_EmptyFlow(t *testing.T) {
	tests := []struct {
		name string
		flow *domain.Flow
	}{
		{"nil flow", nil},
		{"no nodes", flowOf()},
		{"only start node", flowOf(domain.Node{ID: "start", Type: "start"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.flow); !errors.Is(err, ErrEmptyFlow) {
				t.Errorf("expected ErrEmptyFlow, got %v", err)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *domain.Flow)
		wantErr error
		stepID  string
		fieldID string
	}{
		{
			name: "empty step id",
			mutate: func(f *domain.Flow) {
				f.Nodes[3].ID = ""
				f.Nodes[1].Data.Logic[0].Actions.JumpToStep = "items"
			},
			wantErr: ErrEmptyStepID,
		},
		{
			name: "duplicate step id",
			mutate: func(f *domain.Flow) {
				f.Nodes[3].ID = "items"
				f.Nodes[1].Data.Logic[0].Actions.JumpToStep = "items"
			},
			wantErr: ErrDuplicateStepID,
			stepID:  "items",
		},
		{
			name:    "empty field id",
			mutate:  func(f *domain.Flow) { f.Nodes[3].Data.Questions[0].ID = "" },
			wantErr: ErrEmptyFieldID,
			stepID:  "summary",
		},
		{
			name:    "duplicate field id",
			mutate:  func(f *domain.Flow) { f.Nodes[3].Data.Questions[0].ID = "qty" },
			wantErr: ErrDuplicateFieldID,
			stepID:  "summary",
			fieldID: "qty",
		},
		{
			name:    "unknown field type",
			mutate:  func(f *domain.Flow) { f.Nodes[3].Data.Questions[0].Type = "signature" },
			wantErr: ErrUnknownFieldType,
			stepID:  "summary",
			fieldID: "notes",
		},
		{
			name:    "choice without options",
			mutate:  func(f *domain.Flow) { f.Nodes[1].Data.Questions[1].Options = nil },
			wantErr: ErrMissingOptions,
			stepID:  "count",
			fieldID: "vip",
		},
		{
			name:    "condition on unknown field",
			mutate:  func(f *domain.Flow) { f.Nodes[1].Data.Logic[0].Conditions[0].FieldID = "ghost" },
			wantErr: ErrUnknownField,
			stepID:  "count",
			fieldID: "ghost",
		},
		{
			name:    "unknown operator",
			mutate:  func(f *domain.Flow) { f.Nodes[1].Data.Logic[0].Conditions[0].Operator = "matches" },
			wantErr: ErrUnknownOperator,
			stepID:  "count",
			fieldID: "vip",
		},
		{
			name:    "jump to unknown step",
			mutate:  func(f *domain.Flow) { f.Nodes[1].Data.Logic[0].Actions.JumpToStep = "nowhere" },
			wantErr: ErrUnknownStep,
			stepID:  "count",
		},
		{
			name:    "require unknown field",
			mutate:  func(f *domain.Flow) { f.Nodes[1].Data.Logic[0].Actions.RequireFields = []string{"ghost"} },
			wantErr: ErrUnknownField,
			stepID:  "count",
			fieldID: "ghost",
		},
		{
			name:    "connection to unknown node",
			mutate:  func(f *domain.Flow) { f.Nodes[1].Connections[0].TargetNodeID = "nowhere" },
			wantErr: ErrUnknownStep,
			stepID:  "count",
		},
		{
			name:    "loop without source",
			mutate:  func(f *domain.Flow) { f.Nodes[2].Data.Loop.SourceFieldID = "" },
			wantErr: ErrInvalidLoopSource,
			stepID:  "items",
		},
		{
			name:    "loop source missing",
			mutate:  func(f *domain.Flow) { f.Nodes[2].Data.Loop.SourceFieldID = "ghost" },
			wantErr: ErrInvalidLoopSource,
			stepID:  "items",
			fieldID: "ghost",
		},
		{
			name:    "loop source not numeric",
			mutate:  func(f *domain.Flow) { f.Nodes[2].Data.Loop.SourceFieldID = "vip" },
			wantErr: ErrInvalidLoopSource,
			stepID:  "items",
			fieldID: "vip",
		},
		{
			name: "loop source in a later step",
			mutate: func(f *domain.Flow) {
				f.Nodes[3].Data.Questions = append(f.Nodes[3].Data.Questions, field("later", domain.QuestionNumber))
				f.Nodes[2].Data.Loop.SourceFieldID = "later"
			},
			wantErr: ErrInvalidLoopSource,
			stepID:  "items",
			fieldID: "later",
		},
		{
			name:    "loop range",
			mutate:  func(f *domain.Flow) { f.Nodes[2].Data.Loop.MinCount = 7 },
			wantErr: ErrInvalidLoopRange,
			stepID:  "items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := validFlow()
			tt.mutate(flow)

			issues := Check(flow)
			if len(issues) != 1 {
				t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
			}

			issue := issues[0]
			if !errors.Is(issue, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, issue.Err)
			}
			if issue.StepID != tt.stepID {
				t.Errorf("StepID = %q, want %q", issue.StepID, tt.stepID)
			}
			if issue.FieldID != tt.fieldID {
				t.Errorf("FieldID = %q, want %q", issue.FieldID, tt.fieldID)
			}

			var vErr *ValidationError
			if !errors.As(Validate(flow), &vErr) {
				t.Fatalf("Validate should return *ValidationError")
			}
		})
	}
}

func TestCheck_CollectsAllIssues(t *testing.T) {
	flow := validFlow()
	flow.Nodes[1].Data.Logic[0].Actions.JumpToStep = "nowhere"
	flow.Nodes[2].Data.Loop.SourceFieldID = "ghost"

	issues := Check(flow)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %v", len(issues), issues)
	}
	if !errors.Is(issues[0], ErrUnknownStep) || !errors.Is(issues[1], ErrInvalidLoopSource) {
		t.Errorf("unexpected issues: %v", issues)
	}
}

func TestCheck_LoopedReferences(t *testing.T) {
	flow := validFlow()
	flow.Nodes[3] = withRules(flow.Nodes[3], domain.LogicRule{
		Conditions: []domain.Condition{cond("item_name_loop_0", domain.OperatorNotEmpty, nil)},
		Actions:    domain.RuleActions{ShowStep: "items_loop_1"},
	})

	if issues := Check(flow); len(issues) != 0 {
		t.Errorf("looped IDs should resolve to their base: %v", issues)
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		err  *ValidationError
		want string
	}{
		{NewValidationError("", "", "flow has no steps", ErrEmptyFlow), "flow has no steps"},
		{NewValidationError("s1", "", "bad", ErrUnknownStep), "step s1: bad"},
		{NewValidationError("s1", "f1", "bad", ErrUnknownField), "step s1, field f1: bad"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewValidationError("s1", "", "x", ErrUnknownStep), "unknown_step"},
		{NewValidationError("s1", "f", "x", ErrInvalidLoopSource), "invalid_loop_source"},
		{ErrEmptyFlow, "empty_flow"},
		{errors.New("other"), "invalid"},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
