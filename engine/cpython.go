package engine

// #cgo pkg-config: python3-embed
// #include "pyrun.h"
import "C"

import (
	"strings"
	"unsafe"

	"github.com/wippyai/python-bridge/errors"
)

// Mode selects the start symbol used to compile source text.
type Mode int

const (
	// ModeFile compiles a sequence of statements (Py_file_input).
	ModeFile Mode = iota
	// ModeEval compiles a single expression (Py_eval_input).
	ModeEval
	// ModeSingle compiles one interactive statement (Py_single_input);
	// expression values are written through sys.displayhook.
	ModeSingle
)

func (m Mode) start() C.int {
	switch m {
	case ModeEval:
		return C.Py_eval_input
	case ModeSingle:
		return C.Py_single_input
	default:
		return C.Py_file_input
	}
}

func (m Mode) phase() errors.Phase {
	if m == ModeEval {
		return errors.PhaseEval
	}
	return errors.PhaseExec
}

func (m Mode) String() string {
	switch m {
	case ModeEval:
		return "eval"
	case ModeSingle:
		return "single"
	default:
		return "exec"
	}
}

// Ref is a pointer to a Python object. Whether it is owned (strong) or
// borrowed is decided by whoever produced it. A Ref may only be
// dereferenced on the interpreter thread, inside Engine.Do.
type Ref struct {
	p *C.PyObject
}

// IsNil reports whether r points at nothing.
func (r Ref) IsNil() bool { return r.p == nil }

// Thread grants access to the interpreter. It is only valid for the
// duration of the Engine.Do callback that received it.
type Thread struct {
	engine *Engine
}

// MainDict returns a borrowed reference to __main__.__dict__, creating the
// __main__ module on first use.
func (t *Thread) MainDict() (Ref, error) {
	d := C.pb_main_dict()
	if d == nil {
		exc := t.fetchException(false)
		return Ref{}, errors.New(errors.PhaseInit, errors.KindInitialization).
			Detail("lookup __main__ namespace").
			Exception(exc).
			Build()
	}
	return Ref{p: d}, nil
}

// NewDict returns a new, owned namespace dictionary with __builtins__ bound.
func (t *Thread) NewDict() (Ref, error) {
	d := C.pb_new_dict()
	if d == nil {
		exc := t.fetchException(false)
		return Ref{}, errors.New(errors.PhaseInit, errors.KindInitialization).
			Detail("create namespace").
			Exception(exc).
			Build()
	}
	return Ref{p: d}, nil
}

// Run compiles and runs src with ns as both globals and locals. On success
// it returns an owned reference to the result and flushes sys.stdout and
// sys.stderr. On failure the pending exception is captured, printed to
// sys.stderr when the engine prints errors, and cleared.
func (t *Thread) Run(ns Ref, src string, mode Mode) (Ref, error) {
	if ns.IsNil() {
		return Ref{}, errors.NotInitialized(mode.phase(), "namespace")
	}

	if strings.IndexByte(src, 0) >= 0 {
		t.raise(C.PyExc_SyntaxError, "source code string cannot contain null bytes")
		exc := t.fetchException(t.engine.cfg.PrintErrors)
		return Ref{}, errors.Execution(mode.phase(), exc)
	}

	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))

	v := C.pb_run(ns.p, csrc, mode.start())
	if v == nil {
		exc := t.fetchException(t.engine.cfg.PrintErrors)
		debugf("%s failed: %s", mode, exc)
		return Ref{}, errors.Execution(mode.phase(), exc)
	}

	if C.pb_flush_std() < 0 {
		exc := t.fetchException(t.engine.cfg.PrintErrors)
		Logger().Sugar().Warnf("flush standard streams: %s", exc)
	}
	return Ref{p: v}, nil
}

// Complete reports whether src is a complete interactive statement, or
// whether the Python REPL would prompt for another line: an open block,
// bracket, decorator or trailing backslash. Source with a syntax error is
// complete.
func (t *Thread) Complete(src string) (bool, error) {
	if strings.IndexByte(src, 0) >= 0 {
		return true, nil
	}
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))

	switch C.pb_is_complete(csrc) {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	exc := t.fetchException(false)
	return false, errors.New(errors.PhaseExec, errors.KindExecution).
		Detail("check statement").
		Exception(exc).
		Build()
}

// IncRef takes an additional strong reference to r.
func (t *Thread) IncRef(r Ref) {
	C.Py_IncRef(r.p)
}

// DecRef drops one strong reference to r. A nil Ref is ignored.
func (t *Thread) DecRef(r Ref) {
	C.Py_DecRef(r.p)
}

// None returns an owned reference to None.
func (t *Thread) None() Ref {
	return Ref{p: C.pb_none()}
}

// IsNone reports whether r is None.
func (t *Thread) IsNone(r Ref) bool {
	return !r.IsNil() && C.pb_kind(r.p) == C.PB_NONE
}

// TypeName returns the name of r's Python type.
func (t *Thread) TypeName(r Ref) string {
	if r.IsNil() {
		return ""
	}
	return C.GoString(C.pb_type_name(r.p))
}

// Str returns str(r).
func (t *Thread) Str(r Ref) (string, error) {
	return t.textOf(r, C.PyObject_Str(r.p))
}

// Repr returns repr(r).
func (t *Thread) Repr(r Ref) (string, error) {
	return t.textOf(r, C.PyObject_Repr(r.p))
}

func (t *Thread) textOf(r Ref, s *C.PyObject) (string, error) {
	if s == nil {
		exc := t.fetchException(false)
		return "", errors.New(errors.PhaseConvert, errors.KindExecution).
			PyType(t.TypeName(r)).
			Exception(exc).
			Build()
	}
	defer C.Py_DecRef(s)
	return t.unicode(s)
}

func (t *Thread) unicode(s *C.PyObject) (string, error) {
	var n C.Py_ssize_t
	p := C.PyUnicode_AsUTF8AndSize(s, &n)
	if p == nil {
		exc := t.fetchException(false)
		return "", errors.New(errors.PhaseConvert, errors.KindExecution).
			PyType("str").
			Exception(exc).
			Build()
	}
	return C.GoStringN(p, C.int(n)), nil
}

// DictGet looks name up in dict and returns an owned reference.
func (t *Thread) DictGet(dict Ref, name string) (Ref, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	// borrowed; never raises
	v := C.PyDict_GetItemString(dict.p, cname)
	if v == nil {
		return Ref{}, false
	}
	C.Py_IncRef(v)
	return Ref{p: v}, true
}

// DictSet binds name to value in dict. The caller keeps its reference to value.
func (t *Thread) DictSet(dict Ref, name string, value Ref) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	if C.PyDict_SetItemString(dict.p, cname, value.p) < 0 {
		exc := t.fetchException(false)
		return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Detail("bind %q", name).
			Exception(exc).
			Build()
	}
	return nil
}

func (t *Thread) prependSysPath(dir string) error {
	cdir := C.CString(dir)
	defer C.free(unsafe.Pointer(cdir))

	if C.pb_sys_path_prepend(cdir) < 0 {
		exc := t.fetchException(false)
		return errors.New(errors.PhaseInit, errors.KindInitialization).
			Detail("add %q to sys.path", dir).
			Exception(exc).
			Build()
	}
	return nil
}

// raise sets a pending exception of type typ with msg as its message.
func (t *Thread) raise(typ *C.PyObject, msg string) {
	cmsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cmsg))
	C.PyErr_SetString(typ, cmsg)
}

// fetchException takes the pending Python exception, clears the error
// indicator and describes the exception. When printErr is set the exception
// is also written to sys.stderr, except SystemExit, which PyErr_Print would
// turn into a process exit.
func (t *Thread) fetchException(printErr bool) *errors.ExceptionInfo {
	var typ, val, tb *C.PyObject
	C.PyErr_Fetch(&typ, &val, &tb)
	if typ == nil {
		return &errors.ExceptionInfo{
			Type:    "SystemError",
			Message: "error return without exception set",
		}
	}
	C.PyErr_NormalizeException(&typ, &val, &tb)
	if val != nil && tb != nil {
		C.PyException_SetTraceback(val, tb)
	}

	info := &errors.ExceptionInfo{
		Type: C.GoString(C.pb_exc_type_name(typ)),
	}
	if val != nil {
		if s := C.PyObject_Str(val); s != nil {
			var n C.Py_ssize_t
			if p := C.PyUnicode_AsUTF8AndSize(s, &n); p != nil {
				info.Message = C.GoStringN(p, C.int(n))
			}
			C.Py_DecRef(s)
		}
		C.PyErr_Clear()
	}
	if text := C.pb_format_traceback(typ, val, tb); text != nil {
		var n C.Py_ssize_t
		if p := C.PyUnicode_AsUTF8AndSize(text, &n); p != nil {
			info.Traceback = C.GoStringN(p, C.int(n))
		}
		C.Py_DecRef(text)
	}
	C.PyErr_Clear()

	if printErr && C.pb_is_system_exit(typ) == 0 {
		// PyErr_Restore steals all three references.
		C.PyErr_Restore(typ, val, tb)
		C.PyErr_Print()
		return info
	}

	C.Py_DecRef(typ)
	C.Py_DecRef(val)
	C.Py_DecRef(tb)
	return info
}
