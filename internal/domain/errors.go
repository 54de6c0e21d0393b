package domain

import "errors"

var (
	ErrInvalidOutcome = errors.New("invalid review outcome")
	ErrInvalidLang    = errors.New("invalid language")
)
