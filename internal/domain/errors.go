package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrStorageFailure       = errors.New("storage failure")
	ErrUnauthorized         = errors.New("unauthorized")
)
