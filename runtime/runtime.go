package runtime

import (
	"context"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/python-bridge/engine"
	"github.com/wippyai/python-bridge/errors"
	"github.com/wippyai/python-bridge/resource"
)

// Runtime is the host side of the bridge. It owns the embedded
// interpreter, the main context and every live result handle.
type Runtime struct {
	engine  *engine.Engine
	handles resource.Table
	logger  *zap.Logger

	mu      sync.Mutex
	main    *Context
	dropErr error

	closeOnce sync.Once
	closeErr  error
}

// New starts the interpreter and returns a runtime bound to it. Only one
// runtime may be open per process; after Close a new one can be created.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger != nil {
		engine.SetLogger(cfg.logger)
	}

	eng, err := engine.Start(ctx, engine.Config{
		ProgramName: cfg.programName,
		SysPath:     cfg.sysPath,
		PrintErrors: cfg.printErrors,
	})
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		engine:  eng,
		handles: resource.NewTable(),
		logger:  engine.Logger().Named("runtime"),
	}
	r.handles.Subscribe(resource.ObserverFunc(r.logEvent))
	return r, nil
}

// Close releases every live handle and owned context, then finalizes the
// interpreter. Handles released afterwards are no-ops. Close is idempotent
// and returns the same error on every call.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil || r.engine == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		if n := r.handles.CountTyped(resource.TypeResult); n > 0 {
			r.logger.Warn("releasing unreleased handles", zap.Int("count", n))
		}

		err := r.handles.Close()

		r.mu.Lock()
		err = multierr.Append(err, r.dropErr)
		r.dropErr = nil
		r.main = nil
		r.mu.Unlock()

		r.closeErr = multierr.Append(err, r.engine.Close(ctx))
	})
	return r.closeErr
}

// Context returns the main execution context, the namespace of __main__.
// Every call returns the same context, so names bound through one are
// visible through the other. The main context is created on first use.
func (r *Runtime) Context(ctx context.Context) (*Context, error) {
	if r == nil || r.engine == nil {
		return nil, errors.NotInitialized(errors.PhaseInit, "runtime")
	}
	r.mu.Lock()
	c := r.main
	r.mu.Unlock()
	if c != nil && r.engine.Running() {
		return c, nil
	}

	var ns engine.Ref
	err := r.do(ctx, func(t *engine.Thread) error {
		var err error
		ns, err = t.MainDict()
		return err
	})
	if err != nil {
		if errors.IsInitialization(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.PhaseInit, errors.KindInitialization, err, "obtain main context")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.main == nil {
		r.main = &Context{rt: r, ns: ns}
	}
	return r.main, nil
}

// NewContext returns a fresh context with its own namespace, isolated from
// the main context. It must be closed when no longer needed.
func (r *Runtime) NewContext(ctx context.Context) (*Context, error) {
	var c *Context
	err := r.do(ctx, func(t *engine.Thread) error {
		ns, err := t.NewDict()
		if err != nil {
			return err
		}
		id := r.handles.Insert(resource.TypeContext, &object{rt: r, ref: ns})
		if id == 0 {
			t.DecRef(ns)
			return errors.Closed(errors.PhaseInit, "runtime")
		}
		c = &Context{rt: r, id: id}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RunFile reads the file at path and executes it in the main context with
// __file__ bound to path.
func (r *Runtime) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err, "read "+path)
	}

	c, err := r.Context(ctx)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, "__file__", path); err != nil {
		return err
	}
	return c.Run(ctx, string(src))
}

// LiveHandles returns the number of result handles not yet released.
func (r *Runtime) LiveHandles() int {
	if r == nil || r.handles == nil {
		return 0
	}
	return r.handles.CountTyped(resource.TypeResult)
}

// do runs fn on the interpreter thread. A Runtime not created by New
// fails with KindNotInitialized.
func (r *Runtime) do(ctx context.Context, fn func(*engine.Thread) error) error {
	if r == nil || r.engine == nil {
		return errors.NotInitialized(errors.PhaseInit, "runtime")
	}
	return r.engine.Do(ctx, fn)
}

// track registers an owned result reference and wraps it in a Handle.
// It must run on the interpreter thread.
func (r *Runtime) track(t *engine.Thread, v engine.Ref) (*Handle, error) {
	h := &Handle{
		rt:       r,
		typeName: t.TypeName(v),
		none:     t.IsNone(v),
	}
	h.id = r.handles.Insert(resource.TypeResult, &object{rt: r, ref: v})
	if h.id == 0 {
		t.DecRef(v)
		return nil, errors.Closed(errors.PhaseRuntime, "runtime")
	}
	return h, nil
}

// lookup returns the reference behind id. It must run on the interpreter
// thread, which orders it against the decref scheduled by a release.
func (r *Runtime) lookup(id resource.Handle, typeID uint32) (engine.Ref, bool) {
	v, ok := r.handles.GetTyped(id, typeID)
	if !ok {
		return engine.Ref{}, false
	}
	return v.(*object).ref, true
}

func (r *Runtime) decref(ref engine.Ref) {
	err := r.do(context.Background(), func(t *engine.Thread) error {
		t.DecRef(ref)
		return nil
	})
	if err != nil {
		err = errors.Wrap(errors.PhaseRelease, errors.KindClosed, err, "release python object")
		r.logger.Warn("release failed", zap.Error(err))
		r.mu.Lock()
		r.dropErr = multierr.Append(r.dropErr, err)
		r.mu.Unlock()
	}
}

func (r *Runtime) logEvent(e resource.Event) {
	r.logger.Debug("handle "+e.Type.String(),
		zap.String("type", resource.TypeName(e.TypeID)),
		zap.Uint64("handle", uint64(e.Handle)))
}

// object is the table entry for an owned Python reference. Dropping it
// decrements the reference on the interpreter thread.
type object struct {
	rt  *Runtime
	ref engine.Ref
}

func (o *object) Drop() {
	o.rt.decref(o.ref)
}
