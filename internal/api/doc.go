// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (хранилища, publisher, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (recovery, logging, metrics)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - flow_handler.go     — CRUD /flows, черновик, версии, публикация
//   - render_handler.go   — preview, render, navigate
//   - response_handler.go — приём и просмотр ответов, аналитика
//
// Управляющие endpoints ограничены тенантом из заголовка X-Tenant-ID.
// Endpoints заполнения формы (render, navigate, responses POST) публичны.
package api
