package renderer

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/logic"
)

// DateLayout — формат значений полей date.
const DateLayout = "2006-01-02"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-().]{7,20}$`)
)

// Стандартные сообщения об ошибках.
const (
	MsgRequired = "This field is required"
	MsgEmail    = "Enter a valid email address"
	MsgPhone    = "Enter a valid phone number"
	MsgNumber   = "Enter a number"
	MsgDate     = "Enter a valid date"
	MsgOption   = "Select a valid option"
	MsgPattern  = "Invalid format"
)

// FieldErrors — ошибки полей: ID поля → сообщение.
type FieldErrors map[string]string

// ValidateField проверяет значение поля.
// Возвращает пустую строку, если значение корректно.
//
// Пустое необязательное поле всегда корректно. Validation.Message
// заменяет любое сообщение, кроме MsgRequired.
func ValidateField(q domain.Question, value any, required bool) string {
	if isBlank(value) {
		if required {
			return MsgRequired
		}
		return ""
	}

	msg := checkValue(q, value)
	if msg != "" && q.Validation != nil && q.Validation.Message != "" {
		return q.Validation.Message
	}
	return msg
}

func isBlank(value any) bool {
	if logic.IsEmpty(value) {
		return true
	}
	switch v := value.(type) {
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func checkValue(q domain.Question, value any) string {
	switch q.Type {
	case domain.QuestionEmail:
		if !emailPattern.MatchString(logic.ToString(value)) {
			return MsgEmail
		}
	case domain.QuestionPhone:
		if !phonePattern.MatchString(logic.ToString(value)) {
			return MsgPhone
		}
	case domain.QuestionNumber:
		return checkNumber(q.Validation, value)
	case domain.QuestionDate:
		if _, err := time.Parse(DateLayout, logic.ToString(value)); err != nil {
			return MsgDate
		}
		return ""
	case domain.QuestionSingleChoice:
		if !hasOption(q.Options, logic.ToString(value)) {
			return MsgOption
		}
		return ""
	case domain.QuestionMultipleChoice:
		for _, v := range choices(value) {
			if !hasOption(q.Options, v) {
				return MsgOption
			}
		}
		return ""
	case domain.QuestionFile:
		return ""
	}

	return checkText(q.Validation, logic.ToString(value))
}

func checkNumber(rules *domain.ValidationRules, value any) string {
	n := logic.ToNumber(value)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return MsgNumber
	}
	if rules == nil {
		return ""
	}
	if rules.Min != nil && n < *rules.Min {
		return "Must be at least " + formatNumber(*rules.Min)
	}
	if rules.Max != nil && n > *rules.Max {
		return "Must be at most " + formatNumber(*rules.Max)
	}
	return ""
}

func checkText(rules *domain.ValidationRules, s string) string {
	if rules == nil {
		return ""
	}
	length := utf8.RuneCountInString(s)
	if rules.MinLength != nil && length < *rules.MinLength {
		return fmt.Sprintf("Must be at least %d characters", *rules.MinLength)
	}
	if rules.MaxLength != nil && length > *rules.MaxLength {
		return fmt.Sprintf("Must be at most %d characters", *rules.MaxLength)
	}
	if rules.Pattern != "" {
		// Некорректный шаблон — ошибка автора формы, не того, кто её заполняет.
		re, err := regexp.Compile(rules.Pattern)
		if err == nil && !re.MatchString(s) {
			return MsgPattern
		}
	}
	return ""
}

// choices приводит значение multiple_choice к списку строк.
func choices(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = logic.ToString(item)
		}
		return out
	default:
		return []string{logic.ToString(v)}
	}
}

// hasOption — пустой список вариантов принимает любое значение.
func hasOption(options []domain.QuestionOption, value string) bool {
	if len(options) == 0 {
		return true
	}
	return slices.ContainsFunc(options, func(o domain.QuestionOption) bool {
		return o.Value == value
	})
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
