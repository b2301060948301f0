package main

import (
	"errors"

	"github.com/jeffersonwarrior/fetchkit/fetch"
	"github.com/jeffersonwarrior/fetchkit/internal/config"
)

// Exit codes - use these constants in commands instead of hardcoding values.
const (
	ExitSuccess      = 0 // Success
	ExitGeneralError = 1 // General error (file I/O, journal, undecodable body)
	ExitConfigError  = 2 // Configuration error (bad flags, unknown profile)
	ExitNetworkError = 3 // No response (DNS, refused connection, timeout)
	ExitStatusError  = 4 // Response status rejected
)

// usageError marks errors caused by invalid invocation or configuration.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usageErr(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	var (
		ue *usageError
		te *fetch.TransportError
		se *fetch.StatusError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ue), errors.Is(err, config.ErrUnknownProfile):
		return ExitConfigError
	case errors.As(err, &te):
		return ExitNetworkError
	case errors.As(err, &se):
		return ExitStatusError
	}
	return ExitGeneralError
}
