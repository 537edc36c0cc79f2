// Package runtime provides the high-level API for running Python source
// inside the host process.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// The main context is the namespace of __main__
//	pc, err := rt.Context(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := pc.Run(ctx, "x = 20 + 1"); err != nil {
//	    log.Fatal(err)
//	}
//
//	h, err := pc.Eval(ctx, "x * 2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Release()
//
//	v, _ := h.Value(ctx)
//	fmt.Println(v) // 42
//
// # Contexts
//
//	Runtime.Context     - The shared __main__ namespace, created on first use
//	Runtime.NewContext  - A fresh namespace with builtins, closed by the caller
//
// Names bound in a context persist across calls. Namespace changes are not
// transactional: statements that ran before an exception keep their effect.
//
// # Handles
//
// Exec, Eval and Get return a *Handle owning one reference to a Python
// object. Release drops it; releasing twice is harmless, and Close releases
// whatever is still live. A failed call returns a nil handle.
//
// # Errors
//
// Python exceptions never escape into Go. They come back as *errors.Error
// with Kind execution and are, unless disabled with WithErrorPrinting, also
// printed to sys.stderr:
//
//	_, err := pc.Eval(ctx, "1 / 0")
//	if exc, ok := errors.ExceptionOf(err); ok {
//	    fmt.Println(exc.Type) // ZeroDivisionError
//	}
//
// SystemExit is reported like any other exception; it never terminates the
// host process.
//
// # Thread Safety
//
// Runtime, Context and Handle are safe for concurrent use. All calls run on
// a single interpreter thread in submission order. A context.Context only
// bounds the wait for that thread; Python code that has started runs to
// completion.
package runtime
