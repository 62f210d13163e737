package domain

import (
	"time"

	"github.com/google/uuid"
)

// Response — отправленный (или частично сохранённый) ответ на форму.
type Response struct {
	// ID — уникальный идентификатор ответа.
	ID uuid.UUID `json:"id"`

	// FlowID — форма, на которую дан ответ.
	FlowID uuid.UUID `json:"flow_id"`

	// Version — опубликованная версия, по которой заполнялась форма.
	Version int `json:"version"`

	// Values — значения видимых полей.
	Values FormValues `json:"values"`

	// Completed — false для частично заполненных форм.
	Completed bool `json:"completed"`

	// Metadata — служебные данные (user_agent, referrer).
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt — время отправки.
	CreatedAt time.Time `json:"created_at"`
}
