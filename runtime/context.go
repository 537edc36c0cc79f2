package runtime

import (
	"context"
	"strings"

	"github.com/wippyai/python-bridge/engine"
	"github.com/wippyai/python-bridge/errors"
	"github.com/wippyai/python-bridge/resource"
)

// Context is an execution context: a namespace dictionary used as both
// globals and locals for the source it runs. Names bound by one call are
// visible to the next.
//
// The main context (Runtime.Context) borrows __main__.__dict__. Contexts
// from Runtime.NewContext own their namespace and hold it in the runtime's
// handle table until closed.
type Context struct {
	rt *Runtime
	ns engine.Ref      // main context only
	id resource.Handle // owned contexts only
}

// IsMain reports whether c is the namespace of __main__.
func (c *Context) IsMain() bool {
	return c.id == 0
}

// Exec runs source as a sequence of statements. The returned handle
// (normally None) is owned by the caller and must be released. On failure
// the Python exception is reported in the error, printed to sys.stderr
// unless printing is disabled, and cleared.
func (c *Context) Exec(ctx context.Context, source string) (*Handle, error) {
	return c.run(ctx, source, engine.ModeFile)
}

// Eval evaluates source as a single expression and returns a handle to its
// value. Statements such as "x = 1" fail with a SyntaxError.
func (c *Context) Eval(ctx context.Context, source string) (*Handle, error) {
	return c.run(ctx, source, engine.ModeEval)
}

func (c *Context) run(ctx context.Context, source string, mode engine.Mode) (*Handle, error) {
	var h *Handle
	err := c.do(ctx, func(t *engine.Thread) error {
		ns, err := c.namespace()
		if err != nil {
			return err
		}
		v, err := t.Run(ns, source, mode)
		if err != nil {
			return err
		}
		h, err = c.rt.track(t, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// withResult runs source and hands the result to fn on the interpreter
// thread, dropping it afterwards.
func (c *Context) withResult(ctx context.Context, source string, mode engine.Mode, fn func(*engine.Thread, engine.Ref) error) error {
	return c.do(ctx, func(t *engine.Thread) error {
		ns, err := c.namespace()
		if err != nil {
			return err
		}
		v, err := t.Run(ns, source, mode)
		if err != nil {
			return err
		}
		defer t.DecRef(v)
		if fn == nil {
			return nil
		}
		return fn(t, v)
	})
}

// Run executes source and discards its result.
func (c *Context) Run(ctx context.Context, source string) error {
	return c.withResult(ctx, source, engine.ModeFile, nil)
}

// EvalString evaluates source and returns str() of the value.
func (c *Context) EvalString(ctx context.Context, source string) (string, error) {
	var s string
	err := c.withResult(ctx, source, engine.ModeEval, func(t *engine.Thread, v engine.Ref) error {
		var err error
		s, err = t.Str(v)
		return err
	})
	return s, err
}

// EvalValue evaluates source and converts the value to Go. See Handle.Value
// for the conversion rules.
func (c *Context) EvalValue(ctx context.Context, source string) (any, error) {
	var out any
	err := c.withResult(ctx, source, engine.ModeEval, func(t *engine.Thread, v engine.Ref) error {
		var err error
		out, err = t.ToGo(v)
		return err
	})
	return out, err
}

// Interact runs one line of interactive input the way the Python REPL
// does: expression values are printed through sys.displayhook. Output
// written to sys.stdout and sys.stderr, including a printed exception, is
// captured and returned instead of reaching the process streams.
func (c *Context) Interact(ctx context.Context, source string) (engine.Output, error) {
	var out engine.Output
	var runErr error
	err := c.do(ctx, func(t *engine.Thread) error {
		ns, err := c.namespace()
		if err != nil {
			return err
		}
		out, err = t.Capture(func() error {
			v, err := t.Run(ns, source, engine.ModeSingle)
			if err != nil {
				return err
			}
			t.DecRef(v)
			return nil
		})
		if err != nil && !errors.IsExecution(err) {
			return err
		}
		runErr = err
		return nil
	})
	if err != nil {
		return engine.Output{}, err
	}
	return out, runErr
}

// Complete reports whether source is a complete interactive statement.
// It is false while the REPL would keep prompting for input, e.g. after
// "for x in y:", "(1," or "@decorator".
func (c *Context) Complete(ctx context.Context, source string) (bool, error) {
	var ok bool
	err := c.do(ctx, func(t *engine.Thread) error {
		var err error
		ok, err = t.Complete(source)
		return err
	})
	return ok, err
}

// Set binds name to a Go value in the namespace. Supported values are nil,
// bool, integer and float kinds, strings, []byte, slices, arrays and maps
// with string keys, nested arbitrarily.
func (c *Context) Set(ctx context.Context, name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	return c.do(ctx, func(t *engine.Thread) error {
		ns, err := c.namespace()
		if err != nil {
			return err
		}
		v, err := t.FromGo(value)
		if err != nil {
			return err
		}
		defer t.DecRef(v)
		return t.DictSet(ns, name, v)
	})
}

// Get returns a handle to the value bound to name. A missing name fails
// with KindNotFound.
func (c *Context) Get(ctx context.Context, name string) (*Handle, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	var h *Handle
	err := c.do(ctx, func(t *engine.Thread) error {
		ns, err := c.namespace()
		if err != nil {
			return err
		}
		v, ok := t.DictGet(ns, name)
		if !ok {
			return errors.NotFound(errors.PhaseRuntime, "name", name)
		}
		h, err = c.rt.track(t, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (c *Context) do(ctx context.Context, fn func(*engine.Thread) error) error {
	if c == nil || c.rt == nil {
		return errors.NotInitialized(errors.PhaseInit, "context")
	}
	return c.rt.do(ctx, fn)
}

func checkName(name string) error {
	switch {
	case name == "":
		return errors.InvalidInput(errors.PhaseRuntime, "empty name")
	case strings.IndexByte(name, 0) >= 0:
		return errors.InvalidInput(errors.PhaseRuntime, "name contains a null byte")
	}
	return nil
}

// Close releases an owned context's namespace. Closing the main context,
// or closing twice, does nothing.
func (c *Context) Close() {
	if c == nil || c.rt == nil || c.IsMain() {
		return
	}
	c.rt.handles.Remove(c.id)
}

// namespace resolves the dictionary backing c. It must run on the
// interpreter thread.
func (c *Context) namespace() (engine.Ref, error) {
	if c.IsMain() {
		return c.ns, nil
	}
	ns, ok := c.rt.lookup(c.id, resource.TypeContext)
	if !ok {
		return engine.Ref{}, errors.Closed(errors.PhaseRuntime, "context")
	}
	return ns, nil
}
