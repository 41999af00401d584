package db

import "github.com/pkg/errors"

var (
	ErrNotFound   = errors.New("entity not found")
	ErrStoreWrite = errors.New("store write failed")
)

// writeError marks err as a failed write while keeping it inspectable.
type writeError struct {
	err error
}

func (e writeError) Error() string {
	return e.err.Error()
}

func (e writeError) Is(target error) bool {
	return target == ErrStoreWrite
}

func (e writeError) Unwrap() error {
	return e.err
}

func wrapWrite(err error, format string, args ...interface{}) error {
	return writeError{err: errors.Wrapf(err, format, args...)}
}
