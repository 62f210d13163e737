package renderer

import "github.com/shaiso/Formflow/internal/domain"

// StepSummary — краткое описание видимого шага.
type StepSummary struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	LoopIndex *int   `json:"loop_index,omitempty"`
}

// State — снимок сеанса для клиента.
type State struct {
	Step      *domain.Node        `json:"step,omitempty"`
	StepIndex int                 `json:"step_index"`
	Steps     []StepSummary       `json:"steps"`
	Fields    []Field             `json:"fields"`
	History   []string            `json:"history"`
	CanGoBack bool                `json:"can_go_back"`
	IsLast    bool                `json:"is_last"`
	Progress  int                 `json:"progress"`
	Submitted bool                `json:"submitted"`
	Settings  domain.FormSettings `json:"settings"`
}

// State возвращает снимок сеанса.
func (s *Session) State() State {
	steps := s.Steps()
	st := State{
		StepIndex: s.currentIndex(steps),
		Steps:     make([]StepSummary, 0, len(steps)),
		Fields:    []Field{},
		History:   s.History(),
		CanGoBack: s.CanGoBack(),
		IsLast:    s.IsLast(),
		Progress:  s.Progress(),
		Submitted: s.submitted,
		Settings:  s.settings,
	}

	for _, n := range steps {
		st.Steps = append(st.Steps, StepSummary{ID: n.ID, Label: n.Data.Label, LoopIndex: n.LoopIndex})
	}
	if st.StepIndex >= 0 {
		current := steps[st.StepIndex]
		st.Step = &current
		st.Fields = s.Fields(current)
	}
	if st.History == nil {
		st.History = []string{}
	}
	return st
}
