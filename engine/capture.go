package engine

// #include "pyrun.h"
import "C"

import (
	"unsafe"

	"github.com/wippyai/python-bridge/errors"
)

// Output holds text written to sys.stdout and sys.stderr during Capture.
type Output struct {
	Stdout string
	Stderr string
}

// Capture replaces sys.stdout and sys.stderr with io.StringIO buffers
// while fn runs, then restores them. Exceptions printed by Run inside fn
// land in Output.Stderr.
func (t *Thread) Capture(fn func() error) (Output, error) {
	outBuf := C.pb_string_io()
	if outBuf == nil {
		return Output{}, t.captureErr("create stdout buffer")
	}
	defer C.Py_DecRef(outBuf)

	errBuf := C.pb_string_io()
	if errBuf == nil {
		return Output{}, t.captureErr("create stderr buffer")
	}
	defer C.Py_DecRef(errBuf)

	prevOut, err := t.swapStream("stdout", outBuf)
	if err != nil {
		return Output{}, err
	}
	prevErr, err := t.swapStream("stderr", errBuf)
	if err != nil {
		t.restoreStream("stdout", prevOut)
		return Output{}, err
	}

	runErr := fn()

	t.restoreStream("stderr", prevErr)
	t.restoreStream("stdout", prevOut)

	var out Output
	out.Stdout = t.bufferText(outBuf)
	out.Stderr = t.bufferText(errBuf)
	return out, runErr
}

func (t *Thread) swapStream(name string, value *C.PyObject) (*C.PyObject, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	prev := C.pb_sys_swap(cname, value)
	if prev == nil && C.PyErr_Occurred() != nil {
		return nil, t.captureErr("replace sys." + name)
	}
	return prev, nil
}

// restoreStream puts prev back and drops the references held on the
// buffer and on prev.
func (t *Thread) restoreStream(name string, prev *C.PyObject) {
	cur, err := t.swapStream(name, prev)
	if err != nil {
		Logger().Sugar().Warnf("restore sys.%s: %v", name, err)
	}
	C.Py_DecRef(cur)
	C.Py_DecRef(prev)
}

func (t *Thread) bufferText(buf *C.PyObject) string {
	v := C.pb_getvalue(buf)
	if v == nil {
		t.fetchException(false)
		return ""
	}
	defer C.Py_DecRef(v)
	s, err := t.unicode(v)
	if err != nil {
		return ""
	}
	return s
}

func (t *Thread) captureErr(detail string) error {
	exc := t.fetchException(false)
	return errors.New(errors.PhaseRuntime, errors.KindExecution).
		Detail("%s", detail).
		Exception(exc).
		Build()
}
