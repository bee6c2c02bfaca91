package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Op string

const (
	OpConnect Op = "connect"
	OpQuery   Op = "query"
)

var ErrNotConfigured = errors.New("engine not configured")

// EngineError is the only error kind adapters return. Message is already
// prefixed with the engine name and safe to show to a user.
type EngineError struct {
	Engine  EngineKind
	Op      Op
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError renders err as "<Engine> connection failed: ..." or
// "<Engine> query failed: ...". describe may be nil.
func NewEngineError(kind EngineKind, op Op, err error, describe func(error) string) *EngineError {
	verb := "query"
	if op == OpConnect {
		verb = "connection"
	}
	detail := ""
	if describe != nil {
		detail = describe(err)
	}
	if detail == "" {
		detail = DescribeError(err)
	}
	return &EngineError{
		Engine:  kind,
		Op:      op,
		Message: fmt.Sprintf("%s %s failed: %s", kind.DisplayName(), verb, detail),
		Err:     err,
	}
}

// NotConfigured is the fixed failure of an engine compiled in as a stub.
func NotConfigured(kind EngineKind, op Op) *EngineError {
	name := kind.DisplayName()
	return &EngineError{
		Engine:  kind,
		Op:      op,
		Message: fmt.Sprintf("%s support not configured. Install the %s client driver to enable this engine.", name, name),
		Err:     ErrNotConfigured,
	}
}

// DescribeError flattens err into a single line, naming timeouts and cancellations.
func DescribeError(err error) string {
	switch {
	case err == nil:
		return "unknown error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return strings.Join(strings.Fields(err.Error()), " ")
}
