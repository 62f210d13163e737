package renderer

import "errors"

var (
	// ErrNotLastStep — отправка возможна только с последнего видимого шага.
	ErrNotLastStep = errors.New("form can only be submitted from the last step")

	// ErrAlreadySubmitted — форма уже отправлена.
	ErrAlreadySubmitted = errors.New("form already submitted")
)
