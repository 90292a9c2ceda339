// Package failure defines the error taxonomy shared by the export backends.
//
// ConfigError is fatal and raised before any output is produced. IOError and
// StatementError are collected per run so that independent failures across
// tables can all be reported.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports an invalid or missing setting.
type ConfigError struct {
	Backend string
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Setting == "" {
		return fmt.Sprintf("%s: configuration error: %s", e.Backend, e.Message)
	}
	return fmt.Sprintf("%s: configuration error for '%s': %s", e.Backend, e.Setting, e.Message)
}

// Configf builds a ConfigError with a formatted message.
func Configf(backend, setting, format string, args ...any) *ConfigError {
	return &ConfigError{Backend: backend, Setting: setting, Message: fmt.Sprintf(format, args...)}
}

// IOError reports a failed file operation together with the path involved.
type IOError struct {
	Op   string // open, write, read, verify
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IO wraps err into an IOError unless it is nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// StatementError reports the first statement of a batch the server rejected.
type StatementError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v (%s)", e.Index, e.Err, abbreviate(e.Statement, 120))
}

func (e *StatementError) Unwrap() error { return e.Err }

// IsFatal reports whether err must stop processing before any output.
func IsFatal(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

func abbreviate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
