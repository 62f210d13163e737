package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/logic"
)

// Summary — сводка по ответам flow.
type Summary struct {
	FlowID uuid.UUID `json:"flow_id"`

	Total     int `json:"total"`
	Completed int `json:"completed"`
	Partial   int `json:"partial"`

	// CompletionRate — доля завершённых ответов, 0..1.
	CompletionRate float64 `json:"completion_rate"`

	// ByVersion — число ответов по версии flow (0 — preview).
	ByVersion map[int]int `json:"by_version"`

	Fields []FieldSummary `json:"fields"`

	FirstResponseAt *time.Time `json:"first_response_at,omitempty"`
	LastResponseAt  *time.Time `json:"last_response_at,omitempty"`
}

// FieldSummary — статистика по одному полю.
//
// Ответы на итерации цикла (x_loop_N) засчитываются полю x:
// ответ считается отвеченным, если заполнена хотя бы одна итерация.
type FieldSummary struct {
	FieldID string              `json:"field_id"`
	StepID  string              `json:"step_id"`
	Label   string              `json:"label"`
	Type    domain.QuestionType `json:"type"`

	Answered   int     `json:"answered"`
	AnswerRate float64 `json:"answer_rate"`

	// Choices — сколько раз выбран каждый вариант (только для полей с вариантами).
	Choices map[string]int `json:"choices,omitempty"`
}

// Summarize строит сводку по ответам. Поля берутся из flow в порядке шагов.
func Summarize(flow *domain.Flow, responses []domain.Response) Summary {
	s := Summary{
		ByVersion: make(map[int]int),
		Fields:    []FieldSummary{},
	}
	if flow != nil {
		s.FlowID = flow.ID
	}

	fields, index := fieldsOf(flow)

	for _, resp := range responses {
		s.Total++
		if resp.Completed {
			s.Completed++
		}
		s.ByVersion[resp.Version]++
		s.observeTime(resp.CreatedAt)

		answered := make(map[string]bool)
		for key, value := range resp.Values {
			i, ok := index[logic.BaseID(key)]
			if !ok || logic.IsEmpty(value) || isEmptyList(value) {
				continue
			}
			answered[fields[i].FieldID] = true
			if fields[i].Choices != nil {
				for _, choice := range choiceValues(value) {
					fields[i].Choices[choice]++
				}
			}
		}
		for id := range answered {
			fields[index[id]].Answered++
		}
	}

	s.Partial = s.Total - s.Completed
	s.CompletionRate = rate(s.Completed, s.Total)
	for i := range fields {
		fields[i].AnswerRate = rate(fields[i].Answered, s.Total)
	}
	s.Fields = fields
	return s
}

func (s *Summary) observeTime(t time.Time) {
	if t.IsZero() {
		return
	}
	if s.FirstResponseAt == nil || t.Before(*s.FirstResponseAt) {
		first := t
		s.FirstResponseAt = &first
	}
	if s.LastResponseAt == nil || t.After(*s.LastResponseAt) {
		last := t
		s.LastResponseAt = &last
	}
}

// fieldsOf собирает поля flow_step узлов и индекс по ID поля.
func fieldsOf(flow *domain.Flow) ([]FieldSummary, map[string]int) {
	fields := []FieldSummary{}
	index := make(map[string]int)

	for _, step := range flow.Steps() {
		for _, q := range step.Data.Questions {
			if _, dup := index[q.ID]; dup {
				continue
			}
			fs := FieldSummary{
				FieldID: q.ID,
				StepID:  step.ID,
				Label:   q.Label,
				Type:    q.Type,
			}
			if q.Type.HasOptions() {
				fs.Choices = make(map[string]int, len(q.Options))
				for _, opt := range q.Options {
					fs.Choices[opt.Value] = 0
				}
			}
			index[q.ID] = len(fields)
			fields = append(fields, fs)
		}
	}
	return fields, index
}

func choiceValues(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if !logic.IsEmpty(item) {
				out = append(out, logic.ToString(item))
			}
		}
		return out
	case []string:
		return v
	default:
		return []string{logic.ToString(v)}
	}
}

func isEmptyList(value any) bool {
	switch v := value.(type) {
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// rate возвращает part/total, округлённое до 4 знаков.
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1e4) / 1e4
}

// TopChoices возвращает варианты поля по убыванию частоты.
func (f FieldSummary) TopChoices() []string {
	keys := make([]string, 0, len(f.Choices))
	for k := range f.Choices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if f.Choices[keys[i]] != f.Choices[keys[j]] {
			return f.Choices[keys[i]] > f.Choices[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
