package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// FormSettings — типизированное представление Flow.Settings.
//
// Settings хранятся в свободной форме (их пишет редактор), движку
// нужны только эти ключи.
type FormSettings struct {
	SubmitButtonText string `mapstructure:"submitButtonText" json:"submitButtonText,omitempty"`
	SuccessMessage   string `mapstructure:"successMessage" json:"successMessage,omitempty"`
	RedirectURL      string `mapstructure:"redirectUrl" json:"redirectUrl,omitempty"`
	ShowProgressBar  bool   `mapstructure:"showProgressBar" json:"showProgressBar"`
	AllowBack        bool   `mapstructure:"allowBack" json:"allowBack"`

	// Closed — форма закрыта для новых ответов.
	Closed bool `mapstructure:"closed" json:"closed"`

	// ResponseLimit — максимум ответов; 0 — без ограничения.
	ResponseLimit int `mapstructure:"responseLimit" json:"responseLimit,omitempty"`
}

// DefaultFormSettings возвращает настройки по умолчанию.
func DefaultFormSettings() FormSettings {
	return FormSettings{
		SubmitButtonText: "Submit",
		SuccessMessage:   "Thank you!",
		ShowProgressBar:  true,
		AllowBack:        true,
	}
}

// DecodeSettings раскладывает свободные settings поверх значений по умолчанию.
// Неизвестные ключи игнорируются, строковые числа и булевы приводятся.
func DecodeSettings(raw map[string]any) (FormSettings, error) {
	settings := DefaultFormSettings()
	if len(raw) == 0 {
		return settings, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &settings,
	})
	if err != nil {
		return settings, fmt.Errorf("create settings decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return DefaultFormSettings(), fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// FormSettings возвращает типизированные настройки flow.
// Некорректные settings не мешают рендерингу — берутся значения по умолчанию.
func (f *Flow) FormSettings() FormSettings {
	settings, err := DecodeSettings(f.Settings)
	if err != nil {
		return DefaultFormSettings()
	}
	return settings
}
