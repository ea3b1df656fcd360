package chatnet

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidState       = errors.New("invalid state")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidTransaction = errors.New("invalid transaction")
)
