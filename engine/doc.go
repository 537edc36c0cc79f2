// Package engine provides the low-level CPython embedding layer.
//
// The engine links against libpython3 through cgo (pkg-config
// python3-embed) and owns the process's single interpreter.
//
// # Architecture
//
// The engine package provides three main types:
//
//	Engine  - Starts, serves and finalizes the interpreter
//	Thread  - Interpreter access, valid only inside Engine.Do
//	Ref     - A pointer to a Python object, owned or borrowed
//
// # Interpreter Thread
//
// Start spawns a goroutine locked to its OS thread. That thread
// initializes CPython, releases the GIL, and then serves calls: for each
// call submitted through Do it re-acquires the GIL, runs the callback and
// releases the GIL again. Every Python API call therefore happens on one
// thread, and Python threads started by user code can run between calls.
//
//	eng, err := engine.Start(ctx, engine.Config{PrintErrors: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	err = eng.Do(ctx, func(t *engine.Thread) error {
//	    ns, err := t.MainDict()
//	    if err != nil {
//	        return err
//	    }
//	    v, err := t.Run(ns, "1 + 1", engine.ModeEval)
//	    if err != nil {
//	        return err
//	    }
//	    defer t.DecRef(v)
//	    fmt.Println(t.ToGo(v))
//	    return nil
//	})
//
// # Errors
//
// A failed Run never lets a Python exception escape: the exception is
// fetched, described in an errors.ExceptionInfo, optionally printed to
// sys.stderr, and cleared. SystemExit is reported but never printed,
// because printing it would terminate the host process. Panics raised by
// callbacks are recovered on the interpreter thread and returned as
// KindPanic errors.
//
// # Lifetime
//
// Only one Engine may be live at a time. Close finalizes the interpreter;
// a new Engine can be started afterwards.
//
// Most users should use the runtime package for a simpler API.
// This package is for advanced use cases requiring direct control.
package engine
