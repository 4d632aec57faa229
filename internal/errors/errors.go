package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the credential lifecycle. Callers classify failures
// with errors.Is rather than string matching.
var (
	// ErrUninitialized is returned when the metadata ledger does not exist.
	// Every rotation entry point checks for this and directs the operator
	// to run `keyops init` first.
	ErrUninitialized = errors.New("secret store is not initialized")

	// ErrAlreadyInitialized is returned when init would overwrite an
	// existing store without --force.
	ErrAlreadyInitialized = errors.New("secret store is already initialized")

	// ErrNotFound is returned when a secret file is missing during read or backup.
	ErrNotFound = errors.New("secret not found")

	// ErrNoExistingSecret is returned when rotation is requested for a
	// credential that was never initialized. First-time creation is the
	// init flow, not rotation.
	ErrNoExistingSecret = errors.New("no existing secret to rotate")

	// ErrEmptyInput is a recoverable prompt error: the operator entered nothing.
	ErrEmptyInput = errors.New("empty input")

	// ErrValidationFailed is a recoverable prompt error: the candidate value
	// did not match the credential's format.
	ErrValidationFailed = errors.New("validation failed")

	// ErrPromptAborted is returned when the operator interrupts secret entry.
	ErrPromptAborted = errors.New("secret entry aborted")

	// ErrLocked is returned when another lifecycle run holds the store lock.
	ErrLocked = errors.New("another keyops run is in progress")
)

// UserError represents an error that should be shown to the operator with
// helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// StepError records which lifecycle step failed for which credential, so the
// operator can see exactly where a rotation stopped and retry from there.
type StepError struct {
	Credential string
	Step       string
	Err        error
}

func (e StepError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Credential, e.Step, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the error should be handled by re-prompting
// instead of aborting the credential's rotation.
func Recoverable(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrValidationFailed)
}
