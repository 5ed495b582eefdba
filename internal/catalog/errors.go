package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an item or version does not exist.
var ErrNotFound = errors.New("not found")

// NotFoundError wraps ErrNotFound with the key that was looked up.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: item %s not found", e.Key.Provider.DisplayName(), e.Key.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
