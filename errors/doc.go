// Package errors provides structured error types for the Python bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The two boundary failures are KindInitialization, raised when the interpreter
// or its __main__ namespace cannot be obtained, and KindExecution, raised when
// supplied source fails to parse or raises. Execution errors carry the captured
// Python exception as an ExceptionInfo.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindUnsupported).
//		Path("result", "[2]").
//		PyType("set").
//		Detail("no Go representation").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Execution(errors.PhaseEval, exc)
//	err := errors.Closed(errors.PhaseRuntime, "runtime")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
