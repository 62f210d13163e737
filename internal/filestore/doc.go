// Package filestore — хранилище flows и ответов в JSON-файлах.
//
// Раскладка каталога:
//
//	<dir>/flows/<flowID>.json      — черновик flow и его опубликованные версии
//	<dir>/responses/<flowID>.json  — ответы на flow
//
// Все данные держатся в памяти, каждая запись сразу сохраняется на диск
// атомарно (временный файл, fsync, rename). Watch перечитывает каталог,
// когда файлы меняют вручную.
//
// FlowRepo и ResponseRepo реализуют те же интерфейсы, что и PostgreSQL-репозитории
// (repo.FlowStore, repo.ResponseStore), и возвращают те же ошибки.
package filestore
