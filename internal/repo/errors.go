package repo

import "errors"

// Ошибки хранилищ. Их возвращают и pgx репозитории, и filestore;
// api.HandleRepoError переводит их в HTTP статусы.
var (
	// ErrNotFound — flow, версия или ответ не существует.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись с таким ID уже есть.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — переход запрещён текущим статусом flow
	// (например, публикация архивного flow).
	ErrInvalidState = errors.New("invalid state")

	// ErrLimitReached — у формы уже responseLimit ответов.
	ErrLimitReached = errors.New("response limit reached")
)
