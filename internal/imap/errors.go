package imap

import "fmt"

// AuthError reports a credential rejection during login. It is fatal to the
// current sync attempt.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConnectError reports a transport or network failure while establishing a
// connection. Retried only by a future scheduled run, never inline.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CommandError reports a non-OK status from an individual protocol command.
// It carries the raw server response for diagnostics and is scoped to the
// operation that issued it.
type CommandError struct {
	Op       string
	Response string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s command failed: %s", e.Op, e.Response)
}

func (e *CommandError) Unwrap() error { return e.Err }

func commandError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Op: op, Response: err.Error(), Err: err}
}
