package core

import "errors"

// Common errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrExpired       = errors.New("token has expired")
	ErrMalformed     = errors.New("malformed record")
	ErrStorageIO     = errors.New("storage i/o failure")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidKey    = errors.New("invalid collection or key")
)
