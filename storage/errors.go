package storage

import "errors"

var (
	ErrNotFound   = errors.New("storage: not found")
	ErrEmptyKey   = errors.New("storage: empty key")
	ErrClosed     = errors.New("storage: store closed")
	ErrNoBackends = errors.New("storage: no backends configured")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
