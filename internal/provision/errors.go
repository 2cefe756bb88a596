// Copyright (c) 2026 Stackup Authors.
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"errors"
	"fmt"
)

// ErrDependencyUnsatisfied means a provisioner ran before the step that
// produces its inputs. This is a sequencing mistake and is never retried.
var ErrDependencyUnsatisfied = errors.New("dependency unsatisfied")

// ProviderError wraps a failure from the cloud provider. Transient failures
// (throttling, timeouts, 5xx) are eligible for bounded retry; everything
// else surfaces immediately.
type ProviderError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s: %s provider error: %v", e.Op, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TransientError wraps err as a retryable provider failure.
func TransientError(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Transient: true, Err: err}
}

// PermanentError wraps err as a non-retryable provider failure.
func PermanentError(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

func dependencyError(step, field string) error {
	return fmt.Errorf("%w: step %q requires config field %q", ErrDependencyUnsatisfied, step, field)
}
