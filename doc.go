// Package pybridge embeds a CPython 3 interpreter in a Go program and runs
// Python source text inside it.
//
// The bridge is small on purpose: it obtains an execution context, runs
// statements or evaluates expressions in it, and hands back references to
// the results. Parsing, compiling and running Python belong to CPython.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	pybridge/          Root package with the Releaser interface
//	├── runtime/       High-level API: Runtime, Context, Handle
//	├── engine/        cgo layer owning the interpreter thread, value conversion
//	├── resource/      Handle table tracking live Python references
//	├── errors/        Structured error types carrying Python exceptions
//	└── cmd/pyrun/     Command line runner and interactive console
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	pc, err := rt.Context(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h, err := pc.Exec(ctx, "x = 1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h.Release()
//
//	s, err := pc.EvalString(ctx, "x + 1")
//	fmt.Println(s) // "2"
//
// # Building
//
// The engine package links libpython through pkg-config:
//
//	pkg-config --cflags --libs python3-embed
//
// must succeed, and cgo must be enabled.
//
// # Thread Safety
//
// CPython has one interpreter per process and one thread holding it at a
// time. The engine pins a goroutine to an OS thread that owns the
// interpreter and serves every call in order, so runtime values are safe to
// share between goroutines. Only one Runtime may be open at a time.
//
// # Reference Ownership
//
// Every successful Exec, Eval or Get returns a handle owning one reference.
// Release it when done; Runtime.Close releases anything left over.
package pybridge
