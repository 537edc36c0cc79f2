package engine

// #include "pyrun.h"
import "C"

import (
	"context"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/python-bridge/errors"
)

var (
	// ErrAlreadyRunning is returned by Start while another engine is live.
	// CPython keeps one interpreter per process.
	ErrAlreadyRunning = errors.Initialization("python interpreter already running in this process", nil)

	// ErrClosed is returned by Do after Close.
	ErrClosed = errors.Closed(errors.PhaseRuntime, "engine")
)

var (
	activeMu sync.Mutex
	active   *Engine
)

// Config holds configuration for engine creation
type Config struct {
	// ProgramName is passed to the interpreter as sys.executable's basis.
	// Empty keeps the interpreter default.
	ProgramName string

	// SysPath lists directories placed at the front of sys.path, keeping
	// their order.
	SysPath []string

	// PrintErrors writes exceptions raised by Run to sys.stderr.
	PrintErrors bool
}

// Engine owns the embedded CPython interpreter. All interpreter work runs
// on one locked OS thread; Do submits work to it.
type Engine struct {
	cfg      Config
	calls    chan *call
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	finalErr error
}

type call struct {
	fn   func(*Thread) error
	done chan error
}

// Start initializes the interpreter on a dedicated OS thread and returns
// once it is ready to accept calls.
func Start(ctx context.Context, cfg Config) (*Engine, error) {
	activeMu.Lock()
	defer activeMu.Unlock()

	if active != nil {
		return nil, ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Initialization("start interpreter", err)
	}

	e := &Engine{
		cfg:     cfg,
		calls:   make(chan *call),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	ready := make(chan error, 1)
	go e.loop(ready)

	if err := <-ready; err != nil {
		return nil, err
	}

	active = e
	Logger().Debug("python interpreter started",
		zap.String("program", cfg.ProgramName),
		zap.Strings("sys_path", cfg.SysPath))
	return e, nil
}

func (e *Engine) loop(ready chan<- error) {
	// Never unlocked: the thread exits with the goroutine.
	runtime.LockOSThread()
	defer close(e.stopped)

	if err := e.initialize(); err != nil {
		ready <- err
		return
	}

	t := &Thread{engine: e}
	for i := len(e.cfg.SysPath) - 1; i >= 0; i-- {
		if err := t.prependSysPath(e.cfg.SysPath[i]); err != nil {
			C.Py_FinalizeEx()
			ready <- err
			return
		}
	}

	ts := C.PyEval_SaveThread()
	ready <- nil

	for {
		select {
		case c := <-e.calls:
			C.PyEval_RestoreThread(ts)
			c.done <- e.invoke(t, c.fn)
			ts = C.PyEval_SaveThread()
		case <-e.stop:
			C.PyEval_RestoreThread(ts)
			if C.Py_FinalizeEx() < 0 {
				e.finalErr = errors.New(errors.PhaseRuntime, errors.KindExecution).
					Detail("flush buffered data during finalization").
					Build()
			}
			return
		}
	}
}

func (e *Engine) initialize() error {
	var cname *C.char
	if e.cfg.ProgramName != "" {
		cname = C.CString(e.cfg.ProgramName)
		defer C.free(unsafe.Pointer(cname))
	}

	var msg *C.char
	if C.pb_initialize(cname, &msg) < 0 {
		detail := "initialize interpreter"
		if msg != nil {
			detail += ": " + C.GoString(msg)
		}
		return errors.Initialization(detail, nil)
	}
	return nil
}

func (e *Engine) invoke(t *Thread, fn func(*Thread) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("panic on interpreter thread", zap.Any("panic", r))
			err = errors.Panic(errors.PhaseRuntime, r)
		}
	}()
	return fn(t)
}

// Do runs fn on the interpreter thread while holding the GIL and returns
// its error. Calls are served one at a time in submission order.
//
// ctx bounds only the wait for the thread: once fn starts it runs to
// completion. fn must not call Do or Close; the Thread it receives must
// not escape it.
func (e *Engine) Do(ctx context.Context, fn func(*Thread) error) error {
	c := &call{fn: fn, done: make(chan error, 1)}

	select {
	case <-e.stop:
		return ErrClosed
	default:
	}

	select {
	case e.calls <- c:
	case <-e.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-c.done
}

// Running reports whether the engine still accepts calls.
func (e *Engine) Running() bool {
	select {
	case <-e.stop:
		return false
	default:
		return true
	}
}

// Close finalizes the interpreter and waits for the thread to exit, or
// for ctx to end. Calls already running finish first. Close is idempotent.
func (e *Engine) Close(ctx context.Context) error {
	e.shutdown()

	select {
	case <-e.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	activeMu.Lock()
	if active == e {
		active = nil
		Logger().Debug("python interpreter finalized")
	}
	activeMu.Unlock()

	return e.finalErr
}

func (e *Engine) shutdown() {
	e.stopOnce.Do(func() { close(e.stop) })
}
