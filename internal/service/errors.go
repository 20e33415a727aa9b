package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrProductNotFound  = errors.New("product not found")
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrPersistence      = errors.New("persistence failure")
	ErrGateway          = errors.New("payment gateway failure")
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
