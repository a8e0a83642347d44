package contract

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidState     = errors.New("operation not allowed in current status")
	ErrAlreadyConverted = errors.New("quote already converted")
	ErrNoValidFields    = errors.New("no valid fields to update")
	ErrValidation       = errors.New("validation failed")
	ErrNoMessaging      = errors.New("customer has no messaging address")
	ErrNotConfigured    = errors.New("required configuration is missing")
)
