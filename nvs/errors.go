package nvs

import "fmt"

// ErrIDNotFound is returned when no entry exists for an identifier.
type ErrIDNotFound struct {
	ID uint32
}

func (e *ErrIDNotFound) Error() string {
	return fmt.Sprintf("entry not found: 0x%04x", e.ID)
}

// ErrInternal is returned when an internal storage error occurs.
type ErrInternal struct {
	Err error
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e *ErrInternal) Unwrap() error {
	return e.Err
}
