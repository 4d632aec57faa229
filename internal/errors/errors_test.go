package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserErrorFormatting(t *testing.T) {
	err := UserError{
		Message:    "Metadata ledger is missing",
		Suggestion: "Run 'keyops init' first",
		Details:    "expected secrets/.metadata.json",
	}

	msg := err.Error()
	assert.Contains(t, msg, "Metadata ledger is missing")
	assert.Contains(t, msg, "Details: expected secrets/.metadata.json")
	assert.Contains(t, msg, "💡 Try: Run 'keyops init' first")
}

func TestUserErrorUnwrap(t *testing.T) {
	err := UserError{Message: "rotation refused", Err: ErrUninitialized}
	assert.True(t, stderrors.Is(err, ErrUninitialized))
}

func TestUserErrorFallsBackToWrapped(t *testing.T) {
	err := UserError{Err: ErrNotFound}
	assert.Contains(t, err.Error(), "secret not found")
}

func TestStepError(t *testing.T) {
	err := StepError{
		Credential: "telegram_bot_token",
		Step:       "backup",
		Err:        ErrNoExistingSecret,
	}

	assert.Equal(t, "telegram_bot_token: backup failed: no existing secret to rotate", err.Error())
	assert.True(t, stderrors.Is(err, ErrNoExistingSecret))
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(ErrEmptyInput))
	assert.True(t, Recoverable(ErrValidationFailed))
	assert.True(t, Recoverable(fmt.Errorf("wrapped: %w", ErrValidationFailed)))
	assert.False(t, Recoverable(ErrNotFound))
	assert.False(t, Recoverable(nil))
}
