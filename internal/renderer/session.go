package renderer

import (
	"slices"

	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/logic"
)

// Outcome — результат перехода.
type Outcome string

const (
	// OutcomeMoved — активным стал другой шаг.
	OutcomeMoved Outcome = "moved"

	// OutcomeInvalid — текущий шаг не прошёл проверку, шаг не изменился.
	OutcomeInvalid Outcome = "invalid"

	// OutcomeSubmitted — следующего шага нет, форма отправлена.
	OutcomeSubmitted Outcome = "submitted"
)

// Result — результат Next или Submit.
type Result struct {
	Outcome Outcome     `json:"outcome"`
	StepID  string      `json:"step_id,omitempty"`
	Errors  FieldErrors `json:"errors,omitempty"`
}

// Field — поле активного шага с вычисленным состоянием.
type Field struct {
	Question domain.Question `json:"question"`
	Visible  bool            `json:"visible"`
	Required bool            `json:"required"`
}

// Session — сеанс заполнения формы.
//
// Значения принадлежат вызывающему коду: Session читает и изменяет
// переданную map. Видимые шаги и поля пересчитываются на каждом вызове.
// Session не безопасна для конкурентного использования.
type Session struct {
	flow      *domain.Flow
	values    domain.FormValues
	history   []string
	settings  domain.FormSettings
	submitted bool
}

// NewSession начинает заполнение с первого видимого шага.
func NewSession(flow *domain.Flow, values domain.FormValues) *Session {
	return Resume(flow, values, nil)
}

// Resume восстанавливает сеанс из истории шагов.
// Шаги истории, которых больше нет среди видимых, отбрасываются;
// пустая история начинается с первого шага.
func Resume(flow *domain.Flow, values domain.FormValues, history []string) *Session {
	if values == nil {
		values = domain.FormValues{}
	}
	s := &Session{
		flow:     flow,
		values:   values,
		settings: flow.FormSettings(),
	}

	steps := s.Steps()
	for _, id := range history {
		if _, ok := indexOf(steps, id); ok {
			s.history = append(s.history, id)
		}
	}
	if len(s.history) == 0 && len(steps) > 0 {
		s.history = []string{steps[0].ID}
	}
	return s
}

// Flow возвращает определение формы.
func (s *Session) Flow() *domain.Flow {
	return s.flow
}

// Settings возвращает настройки формы.
func (s *Session) Settings() domain.FormSettings {
	return s.settings
}

// Values возвращает текущие значения.
func (s *Session) Values() domain.FormValues {
	return s.values
}

// SetValue записывает значение поля.
func (s *Session) SetValue(fieldID string, value any) {
	s.values[fieldID] = value
}

// Steps возвращает видимые шаги с развёрнутыми циклами.
func (s *Session) Steps() []domain.Node {
	return logic.VisibleSteps(s.flow, s.values)
}

// History возвращает копию стека истории.
func (s *Session) History() []string {
	return slices.Clone(s.history)
}

// Submitted возвращает true после успешной отправки.
func (s *Session) Submitted() bool {
	return s.submitted
}

// Current возвращает активный шаг.
// Если шаг на вершине истории стал невидим, активным считается ближайший
// видимый шаг ниже по истории, а без такого — первый шаг.
func (s *Session) Current() (domain.Node, bool) {
	steps := s.Steps()
	i := s.currentIndex(steps)
	if i < 0 {
		return domain.Node{}, false
	}
	return steps[i], true
}

// CanGoBack — в истории больше одного шага и настройки разрешают возврат.
func (s *Session) CanGoBack() bool {
	if s.submitted || !s.settings.AllowBack {
		return false
	}
	_, pos := s.currentEntry(s.Steps())
	return pos > 0
}

// IsLast — из активного шага некуда перейти, Next отправит форму.
func (s *Session) IsLast() bool {
	steps := s.Steps()
	return s.nextIndex(steps, s.currentIndex(steps)) < 0
}

// Progress — процент пройденных видимых шагов, включая активный.
func (s *Session) Progress() int {
	steps := s.Steps()
	if len(steps) == 0 {
		return 100
	}
	return (s.currentIndex(steps) + 1) * 100 / len(steps)
}

// Fields возвращает поля шага с учётом правил.
// Обязательность — статический флаг поля или requireFields правил.
func (s *Session) Fields(step domain.Node) []Field {
	fields := make([]Field, 0, len(step.Data.Questions))
	for _, q := range step.Data.Questions {
		state := logic.EvaluateFieldLogic(q.ID, s.flow, s.values)
		fields = append(fields, Field{
			Question: q,
			Visible:  state.Show,
			Required: q.Required || state.Required,
		})
	}
	return fields
}

// ValidateStep проверяет видимые поля шага.
func (s *Session) ValidateStep(step domain.Node) FieldErrors {
	errs := FieldErrors{}
	for _, f := range s.Fields(step) {
		if !f.Visible {
			continue
		}
		if msg := ValidateField(f.Question, s.values[f.Question.ID], f.Required); msg != "" {
			errs[f.Question.ID] = msg
		}
	}
	return errs
}

// ValidateAll проверяет все видимые шаги.
func (s *Session) ValidateAll() FieldErrors {
	errs := FieldErrors{}
	for _, step := range s.Steps() {
		for id, msg := range s.ValidateStep(step) {
			errs[id] = msg
		}
	}
	return errs
}

// VisibleValues возвращает значения только видимых полей видимых шагов.
func (s *Session) VisibleValues() domain.FormValues {
	out := domain.FormValues{}
	for _, step := range s.Steps() {
		for _, f := range s.Fields(step) {
			if !f.Visible {
				continue
			}
			if v, ok := s.values[f.Question.ID]; ok {
				out[f.Question.ID] = v
			}
		}
	}
	return out
}

// Next проверяет активный шаг и переходит дальше.
//
// Если сработало правило jumpToStep и цель видима, переход идёт к ней
// (для шага-цикла — к первой итерации), иначе к следующему видимому шагу.
// Если следующего шага нет, форма отправляется.
func (s *Session) Next() Result {
	if s.submitted {
		return Result{Outcome: OutcomeSubmitted}
	}

	steps := s.Steps()
	cur := s.currentIndex(steps)
	if cur < 0 {
		s.submitted = true
		return Result{Outcome: OutcomeSubmitted}
	}

	if errs := s.ValidateStep(steps[cur]); len(errs) > 0 {
		return Result{Outcome: OutcomeInvalid, StepID: steps[cur].ID, Errors: errs}
	}

	next := s.nextIndex(steps, cur)
	if next < 0 {
		s.submitted = true
		return Result{Outcome: OutcomeSubmitted, StepID: steps[cur].ID}
	}

	// Невидимые записи над активным шагом отбрасываются.
	_, pos := s.currentEntry(steps)
	prefix := []string{steps[cur].ID}
	if pos >= 0 {
		prefix = slices.Clip(s.history[:pos+1])
	}
	s.history = append(prefix, steps[next].ID)
	return Result{Outcome: OutcomeMoved, StepID: steps[next].ID}
}

// Previous возвращается к предыдущему шагу истории.
func (s *Session) Previous() bool {
	if !s.CanGoBack() {
		return false
	}
	_, pos := s.currentEntry(s.Steps())
	s.history = s.history[:pos]
	return true
}

// Submit отправляет форму с последнего шага.
// Проверяются все видимые шаги; при ошибках форма не отправляется.
func (s *Session) Submit() (Result, error) {
	if s.submitted {
		return Result{}, ErrAlreadySubmitted
	}
	if !s.IsLast() {
		return Result{}, ErrNotLastStep
	}

	if errs := s.ValidateAll(); len(errs) > 0 {
		res := Result{Outcome: OutcomeInvalid, Errors: errs}
		if cur, ok := s.Current(); ok {
			res.StepID = cur.ID
		}
		return res, nil
	}

	s.submitted = true
	return Result{Outcome: OutcomeSubmitted}, nil
}

func (s *Session) currentIndex(steps []domain.Node) int {
	i, _ := s.currentEntry(steps)
	return i
}

// currentEntry возвращает индекс активного шага и позицию его записи
// в истории. Записи невидимых шагов пропускаются сверху вниз; если видимых
// записей нет, активен первый шаг, а позиция равна -1.
func (s *Session) currentEntry(steps []domain.Node) (index, pos int) {
	if len(steps) == 0 {
		return -1, -1
	}
	for j := len(s.history) - 1; j >= 0; j-- {
		if i, ok := indexOf(steps, s.history[j]); ok {
			return i, j
		}
	}
	return 0, -1
}

func (s *Session) nextIndex(steps []domain.Node, cur int) int {
	if cur < 0 {
		return -1
	}
	target := logic.JumpTarget(steps[cur], s.flow, s.values)
	if i, ok := logic.ResolveStep(steps, target); ok && i != cur {
		return i
	}
	if cur+1 < len(steps) {
		return cur + 1
	}
	return -1
}

// indexOf ищет шаг по точному ID (без перехода к итерациям цикла).
func indexOf(steps []domain.Node, id string) (int, bool) {
	for i, s := range steps {
		if s.ID == id {
			return i, true
		}
	}
	return -1, false
}
