// Package analytics агрегирует ответы на формы.
//
// Summarize считает сводку по ответам одного flow (используется API).
// Worker потребляет события response.submitted и flow.published из RabbitMQ,
// ведёт счётчики по flows и обновляет метрики Prometheus.
package analytics
