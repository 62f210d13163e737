// Package logic — движок логики форм.
//
// Чистые функции над определением flow и текущими значениями формы:
//   - condition.go  — вычисление условий (EvaluateCondition, EvaluateConditions)
//   - visibility.go — видимость шагов и полей, переходы (jumpToStep), план шагов
//   - loop.go       — размножение шагов-циклов по числовому полю
//   - validate.go   — проверка ссылок при редактировании flow (Check, Validate)
//   - coerce.go     — приведение значений (строки, числа, пустота)
//
// Движок не делает I/O и не возвращает ошибок во время заполнения формы:
// битые ссылки дают значения по умолчанию. Ошибки конфигурации
// выявляются отдельно через Check при редактировании и публикации.
//
// Один и тот же код используется предпросмотром черновика и рендерером
// опубликованной формы.
package logic
