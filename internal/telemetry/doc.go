// Package telemetry — логирование и метрики сервисов Formflow.
//
//   - logging.go — slog логгер (JSON или text), логгер в context.Context,
//     атрибуты flow_id / response_id / tenant_id
//   - metrics.go — счётчики HTTP, публикаций, ответов, кеша и событий
//
// formflow-api и formflow-worker отдают метрики на /metrics.
package telemetry
