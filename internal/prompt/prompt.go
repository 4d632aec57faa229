// Package prompt collects new credential values interactively. Input is
// masked, rejected values re-prompt without limit, and the accepted value is
// handed back sealed in protected memory.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/systmms/keyops/internal/credential"
	kerrors "github.com/systmms/keyops/internal/errors"
	"github.com/systmms/keyops/internal/logging"
	"github.com/systmms/keyops/internal/secure"
)

// Prompter reads one credential value from the operator.
type Prompter interface {
	Prompt(ctx context.Context, cred credential.Credential) (*secure.Buffer, error)
}

// TerminalPrompter reads masked input from a terminal, falling back to plain
// line reads when stdin is not a TTY (piped input, tests).
type TerminalPrompter struct {
	reader     *bufio.Reader
	fd         int
	isTerminal bool
	out        io.Writer
	logger     *logging.Logger
}

// New creates a prompter on stdin/stderr.
func New(logger *logging.Logger) *TerminalPrompter {
	fd := int(os.Stdin.Fd())
	return &TerminalPrompter{
		reader:     bufio.NewReader(os.Stdin),
		fd:         fd,
		isTerminal: term.IsTerminal(fd),
		out:        os.Stderr,
		logger:     logger,
	}
}

// NewWithReader creates a prompter on an arbitrary reader. Input is not
// masked; used by tests and piped invocations.
func NewWithReader(r io.Reader, out io.Writer, logger *logging.Logger) *TerminalPrompter {
	return &TerminalPrompter{
		reader: bufio.NewReader(r),
		out:    out,
		logger: logger,
	}
}

// Prompt loops until the operator supplies a non-empty value that passes the
// credential's format validator, or aborts. There is no retry limit; empty
// and invalid input are handled here and never surface as errors.
func (p *TerminalPrompter) Prompt(ctx context.Context, cred credential.Credential) (*secure.Buffer, error) {
	fmt.Fprintf(p.out, "\n%s (%s)\n", cred.Service, cred.Name)
	fmt.Fprintf(p.out, "  Obtain a new key at: %s\n", cred.ConsoleURL)
	fmt.Fprintf(p.out, "  Expected format: %s\n", cred.Format)

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", kerrors.ErrPromptAborted, ctx.Err())
		default:
		}

		value, err := p.read(ctx, fmt.Sprintf("Enter new value for %s: ", cred.Name))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("%w: input closed", kerrors.ErrPromptAborted)
			}
			return nil, fmt.Errorf("failed to read input: %w", err)
		}

		value = strings.TrimSpace(value)
		if err := screen(cred, value); err != nil {
			if !kerrors.Recoverable(err) {
				return nil, err
			}
			if errors.Is(err, kerrors.ErrEmptyInput) {
				p.logger.Warn("Empty input, try again")
			} else {
				p.logger.Warn("Value does not look like a %s key (expected %s), try again", cred.Service, cred.Format)
			}
			p.logger.Debug("rejected candidate %v for %s", logging.Secret(value), cred.Name)
			continue
		}

		return secure.NewBuffer([]byte(value)), nil
	}
}

// screen classifies a candidate value against the credential's format. Both
// failure modes are recoverable: the prompt loop re-asks instead of aborting.
func screen(cred credential.Credential, value string) error {
	if value == "" {
		return kerrors.ErrEmptyInput
	}
	if !credential.Validate(cred.Kind, value) {
		return fmt.Errorf("%w: %s", kerrors.ErrValidationFailed, cred.Name)
	}
	return nil
}

type readResult struct {
	value string
	err   error
}

// read performs one blocking input read, masked when on a terminal. The read
// itself has no timeout; cancellation comes from the surrounding context
// (operator interrupt), in which case the blocked read goroutine is
// abandoned and the process exits shortly after.
func (p *TerminalPrompter) read(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)

	ch := make(chan readResult, 1)
	go func() {
		if p.isTerminal {
			data, err := term.ReadPassword(p.fd)
			fmt.Fprintln(p.out)
			ch <- readResult{value: string(data), err: err}
			return
		}

		line, err := p.reader.ReadString('\n')
		if err != nil && line == "" {
			ch <- readResult{err: err}
			return
		}
		ch <- readResult{value: line}
	}()

	select {
	case <-ctx.Done():
		return "", context.Canceled
	case res := <-ch:
		return res.value, res.err
	}
}
