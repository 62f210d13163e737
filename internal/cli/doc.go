// Package cli реализует инструмент командной строки Formflow.
//
// # Обзор
//
// Команды делятся на две группы. Удалённые (flow, response, analytics)
// работают с Formflow API по HTTP и не импортируют internal/api.
// Локальные (validate, preview, schema) работают с файлом документа flow
// и используют движок напрямую, без сервера.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Formflow API. Инкапсулирует все HTTP-запросы,
// заголовок X-Tenant-ID, парсинг ответов (DataResponse, ListResponse,
// ErrorResponse) и ошибки API (APIError).
//
//	client := cli.NewClient("http://localhost:8080", "acme")
//	flows, total, err := client.ListFlows("")
//
// ## Документы
//
// Документ flow — JSON или YAML с полями title, description, nodes,
// settings, theme. Значения формы — объект "ID поля → значение".
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Warn/Error) — в stderr.
// Это позволяет использовать pipe: formflow flow list --json | jq .
//
// ## Commands
//
//   - flow: list, create, show, update, draft, delete, check, publish, versions
//   - response: list, show, submit
//   - analytics FLOW_ID
//   - validate FILE, preview FILE, schema
//
// Каждая группа создаётся через фабричную функцию (NewFlowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
