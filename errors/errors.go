package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseInit    Phase = "init"    // interpreter start, namespace lookup
	PhaseExec    Phase = "exec"    // statement execution
	PhaseEval    Phase = "eval"    // expression evaluation
	PhaseConvert Phase = "convert" // Go <-> Python value conversion
	PhaseRelease Phase = "release" // reference release
	PhaseRuntime Phase = "runtime" // runtime operations
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInitialization Kind = "initialization"
	KindExecution      Kind = "execution"
	KindNotInitialized Kind = "not_initialized"
	KindClosed         Kind = "closed"
	KindReleased       Kind = "released"
	KindNotFound       Kind = "not_found"
	KindUnsupported    Kind = "unsupported"
	KindInvalidInput   Kind = "invalid_input"
	KindOverflow       Kind = "overflow"
	KindPanic          Kind = "panic"
)

// ExceptionInfo describes a Python exception captured at the boundary.
type ExceptionInfo struct {
	Type      string // e.g. "ZeroDivisionError"
	Message   string // str(exc)
	Traceback string // formatted traceback, may be empty
}

func (e *ExceptionInfo) String() string {
	if e.Message == "" {
		return e.Type
	}
	return e.Type + ": " + e.Message
}

// Error is the structured error type used throughout the bridge
type Error struct {
	Value     any
	Cause     error
	Exception *ExceptionInfo
	Phase     Phase
	Kind      Kind
	GoType    string
	PyType    string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.PyType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.PyType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", Python type ")
			b.WriteString(e.PyType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("Python type ")
			b.WriteString(e.PyType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.PyType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Exception != nil {
		b.WriteString(": ")
		b.WriteString(e.Exception.String())
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// PyType sets the Python type name
func (b *Builder) PyType(t string) *Builder {
	b.err.PyType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Exception attaches a captured Python exception
func (b *Builder) Exception(exc *ExceptionInfo) *Builder {
	b.err.Exception = exc
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Boundary constructors

// Initialization creates an error for a failed interpreter start or
// namespace lookup.
func Initialization(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindInitialization,
		Detail: detail,
		Cause:  cause,
	}
}

// Execution creates an error for source that failed to parse or raised.
func Execution(phase Phase, exc *ExceptionInfo) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindExecution,
		Exception: exc,
	}
}

// Closed creates an error for operations on a closed runtime or context.
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Released creates an error for access through a released handle.
func Released(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: "handle already released",
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported conversion error
func Unsupported(phase Phase, path []string, goType, pyType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   path,
		GoType: goType,
		PyType: pyType,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, pyType, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		PyType: pyType,
		GoType: targetType,
		Detail: fmt.Sprintf("value does not fit in %s", targetType),
	}
}

// Panic wraps a recovered panic from the interpreter thread.
func Panic(phase Phase, r any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPanic,
		Detail: fmt.Sprintf("recovered: %v", r),
		Value:  r,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Kind helpers

// IsKind reports whether any *Error in err's chain has the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsInitialization reports whether err is an initialization failure.
func IsInitialization(err error) bool {
	return IsKind(err, KindInitialization)
}

// IsExecution reports whether err is a failure of executed or evaluated source.
func IsExecution(err error) bool {
	return IsKind(err, KindExecution)
}

// ExceptionOf returns the Python exception carried by err, if any.
func ExceptionOf(err error) (*ExceptionInfo, bool) {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return nil, false
		}
		if e.Exception != nil {
			return e.Exception, true
		}
		err = e.Cause
	}
	return nil, false
}
