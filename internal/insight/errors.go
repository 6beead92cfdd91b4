package insight

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is wrapped when the runtime answers without any text.
var ErrEmptyResponse = errors.New("empty response from text-generation runtime")

// ServiceError wraps any failure of the external text-generation call.
type ServiceError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("insight request to %s (%s) failed: %v", e.Provider, e.Model, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
