// Package drferrors contains generic errors shared across the controller. Callers should look for
// these types with errors.As rather than comparing messages.
//
// If several independent items fail (e.g. write-backs within one pass), the caller should
// aggregate them with github.com/hashicorp/go-multierror rather than stopping at the first.
package drferrors

import (
	"fmt"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrNotFound is returned whenever some resource isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "workload"
	Value   string // Resource name, e.g., "default/job-a"
	Message string
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrInvalidArgument is returned on invalid configuration or arguments.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "aging_alpha"
	Value   interface{} // The invalid value that was provided
	Message string      // Optional explanation, e.g., why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// IsNotFound returns true if err, or any error it wraps, is an *ErrNotFound or a Kubernetes
// NotFound status error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *ErrNotFound
	if errors.As(err, &e) {
		return true
	}
	return apierrors.IsNotFound(errors.Cause(err))
}

// IsInvalidArgument returns true if err, or any error it wraps, is an *ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}

// FromKubernetes translates a Kubernetes API error into the types of this package where a
// translation exists. Other errors are returned with a stack attached.
func FromKubernetes(err error, resourceType, name string) error {
	if err == nil {
		return nil
	}
	if apierrors.IsNotFound(err) {
		return errors.WithStack(&ErrNotFound{
			Type:    resourceType,
			Value:   name,
			Message: err.Error(),
		})
	}
	return errors.WithStack(err)
}
