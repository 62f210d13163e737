// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация доменных событий
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - flow.published     — опубликована новая версия flow
//   - response.submitted — принят ответ на форму
//
// Exchanges:
//   - formflow.flows     — события flows
//   - formflow.responses — события ответов
//   - formflow.dlq       — dead letter queue
package mq
