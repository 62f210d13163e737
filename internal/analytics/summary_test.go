package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Formflow/internal/domain"
)

func surveyFlow() *domain.Flow {
	return &domain.Flow{
		ID: uuid.New(),
		Nodes: []domain.Node{
			{ID: "start", Type: "start"},
			{
				ID:   "about",
				Type: domain.NodeTypeFlowStep,
				Data: domain.NodeData{Questions: []domain.Question{
					{ID: "name", Type: domain.QuestionText, Label: "Name"},
					{ID: "plan", Type: domain.QuestionSingleChoice, Label: "Plan", Options: []domain.QuestionOption{
						{Label: "Free", Value: "free"}, {Label: "Pro", Value: "pro"},
					}},
					{ID: "guests", Type: domain.QuestionNumber, Label: "Guests"},
				}},
			},
			{
				ID:   "guest",
				Type: domain.NodeTypeFlowStep,
				Data: domain.NodeData{
					Questions: []domain.Question{{ID: "guest_name", Type: domain.QuestionText, Label: "Guest"}},
					Loop:      &domain.LoopConfig{Enabled: true, SourceFieldID: "guests"},
				},
			},
			{
				ID:   "extras",
				Type: domain.NodeTypeFlowStep,
				Data: domain.NodeData{Questions: []domain.Question{
					{ID: "topics", Type: domain.QuestionMultipleChoice, Label: "Topics", Options: []domain.QuestionOption{
						{Label: "Go", Value: "go"}, {Label: "Rust", Value: "rust"},
					}},
				}},
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	flow := surveyFlow()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	responses := []domain.Response{
		{
			Version: 1, Completed: true, CreatedAt: t0.Add(2 * time.Hour),
			Values: domain.FormValues{
				"name": "Ann", "plan": "pro", "guests": 2,
				"guest_name_loop_0": "Bob", "guest_name_loop_1": "Eve",
				"topics": []any{"go", "rust"},
			},
		},
		{
			Version: 1, Completed: true, CreatedAt: t0,
			Values: domain.FormValues{"name": "Kim", "plan": "free", "topics": []any{"go"}},
		},
		{
			Version: 2, Completed: false, CreatedAt: t0.Add(time.Hour),
			Values: domain.FormValues{"name": "", "plan": "pro", "topics": []any{}, "stray": "x"},
		},
	}

	s := Summarize(flow, responses)

	assert.Equal(t, flow.ID, s.FlowID)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Partial)
	assert.InDelta(t, 0.6667, s.CompletionRate, 1e-9)
	assert.Equal(t, map[int]int{1: 2, 2: 1}, s.ByVersion)
	require.NotNil(t, s.FirstResponseAt)
	require.NotNil(t, s.LastResponseAt)
	assert.Equal(t, t0, *s.FirstResponseAt)
	assert.Equal(t, t0.Add(2*time.Hour), *s.LastResponseAt)

	byID := map[string]FieldSummary{}
	for _, f := range s.Fields {
		byID[f.FieldID] = f
	}
	require.Len(t, s.Fields, 5)
	assert.Equal(t, "name", s.Fields[0].FieldID)

	assert.Equal(t, 2, byID["name"].Answered)
	assert.Equal(t, map[string]int{"free": 1, "pro": 2}, byID["plan"].Choices)
	assert.Equal(t, 1, byID["guest_name"].Answered, "loop iterations count once per response")
	assert.Equal(t, "guest", byID["guest_name"].StepID)
	assert.Equal(t, map[string]int{"go": 2, "rust": 1}, byID["topics"].Choices)
	assert.Equal(t, 2, byID["topics"].Answered)
	assert.Nil(t, byID["name"].Choices)
	assert.Equal(t, []string{"pro", "free"}, byID["plan"].TopChoices())
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(surveyFlow(), nil)

	assert.Zero(t, s.Total)
	assert.Zero(t, s.CompletionRate)
	assert.Nil(t, s.FirstResponseAt)
	assert.Len(t, s.Fields, 5)
	for _, f := range s.Fields {
		assert.Zero(t, f.AnswerRate)
	}
}

func TestSummarize_NilFlow(t *testing.T) {
	s := Summarize(nil, []domain.Response{{Completed: true}})
	assert.Equal(t, 1, s.Total)
	assert.Empty(t, s.Fields)
	assert.Equal(t, 1.0, s.CompletionRate)
}
