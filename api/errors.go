// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the dispatcher.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrDispatcherTerminated is matched by every lifecycle violation, whether
	// the dispatcher was never started or has already been shut down.
	ErrDispatcherTerminated = errors.New("dispatcher has been terminated")
	ErrInvalidConfig        = errors.New("invalid config")
	ErrNilHandler           = errors.New("handler is nil")
	ErrNilHashCodeProvider  = errors.New("hash code provider is nil")
	ErrNotSupported         = errors.New("operation not supported")
)

// TerminatedError reports a dispatch attempted outside the started state.
type TerminatedError struct {
	Name  string
	State State
}

// Error implements the error interface.
func (e *TerminatedError) Error() string {
	return fmt.Sprintf("dispatcher [%s] has been terminated", e.Name)
}

// Unwrap ties the error to ErrDispatcherTerminated for errors.Is.
func (e *TerminatedError) Unwrap() error {
	return ErrDispatcherTerminated
}

// ConfigError names the configuration field that failed validation.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

// Unwrap ties the error to ErrInvalidConfig for errors.Is.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
