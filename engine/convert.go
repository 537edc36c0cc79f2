package engine

// #include "pyrun.h"
import "C"

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/wippyai/python-bridge/errors"
)

// maxDepth bounds container nesting during conversion; it also stops
// self-referencing containers.
const maxDepth = 64

// ToGo converts r into a Go value:
//
//	Python            Go
//	────────────────────────────────
//	None              nil
//	bool              bool
//	int               int64
//	float             float64
//	str               string
//	bytes             []byte
//	list, tuple       []any
//	dict (str keys)   map[string]any
//
// Other types fail with KindUnsupported; ints outside int64 fail with
// KindOverflow.
func (t *Thread) ToGo(r Ref) (any, error) {
	if r.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseConvert, "nil reference")
	}
	return t.toGo(r.p, nil, 0)
}

func (t *Thread) toGo(o *C.PyObject, path []string, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.New(errors.PhaseConvert, errors.KindUnsupported).
			Path(path...).
			Detail("nesting deeper than %d", maxDepth).
			Build()
	}

	switch C.pb_kind(o) {
	case C.PB_NONE:
		return nil, nil

	case C.PB_BOOL:
		return C.PyObject_IsTrue(o) == 1, nil

	case C.PB_INT:
		var overflow C.int
		v := C.PyLong_AsLongLongAndOverflow(o, &overflow)
		if overflow != 0 {
			return nil, errors.Overflow(errors.PhaseConvert, path, "int", "int64")
		}
		if v == -1 && C.PyErr_Occurred() != nil {
			return nil, t.convertErr(path, "int")
		}
		return int64(v), nil

	case C.PB_FLOAT:
		return float64(C.PyFloat_AsDouble(o)), nil

	case C.PB_STR:
		var n C.Py_ssize_t
		p := C.PyUnicode_AsUTF8AndSize(o, &n)
		if p == nil {
			return nil, t.convertErr(path, "str")
		}
		return C.GoStringN(p, C.int(n)), nil

	case C.PB_BYTES:
		var buf *C.char
		var n C.Py_ssize_t
		if C.PyBytes_AsStringAndSize(o, &buf, &n) < 0 {
			return nil, t.convertErr(path, "bytes")
		}
		return C.GoBytes(unsafe.Pointer(buf), C.int(n)), nil

	case C.PB_LIST:
		n := int(C.PyList_Size(o))
		out := make([]any, n)
		for i := 0; i < n; i++ {
			v, err := t.toGo(C.PyList_GetItem(o, C.Py_ssize_t(i)), appendPath(path, fmt.Sprintf("[%d]", i)), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case C.PB_TUPLE:
		n := int(C.PyTuple_Size(o))
		out := make([]any, n)
		for i := 0; i < n; i++ {
			v, err := t.toGo(C.PyTuple_GetItem(o, C.Py_ssize_t(i)), appendPath(path, fmt.Sprintf("[%d]", i)), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case C.PB_DICT:
		out := make(map[string]any, int(C.PyDict_Size(o)))
		var pos C.Py_ssize_t
		var k, v *C.PyObject
		for C.PyDict_Next(o, &pos, &k, &v) != 0 {
			if C.pb_kind(k) != C.PB_STR {
				return nil, errors.New(errors.PhaseConvert, errors.KindUnsupported).
					Path(path...).
					PyType(C.GoString(C.pb_type_name(k))).
					Detail("dict keys must be str").
					Build()
			}
			var n C.Py_ssize_t
			kp := C.PyUnicode_AsUTF8AndSize(k, &n)
			if kp == nil {
				return nil, t.convertErr(path, "str")
			}
			key := C.GoStringN(kp, C.int(n))
			val, err := t.toGo(v, appendPath(path, key), depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	}

	return nil, errors.Unsupported(errors.PhaseConvert, path, "", C.GoString(C.pb_type_name(o)))
}

// FromGo builds a new Python object from v. Supported inputs are nil,
// bool, integer and float kinds, strings, []byte, slices and arrays,
// maps with string keys, pointers to any of these, and Refs (which are
// shared, not copied).
func (t *Thread) FromGo(v any) (Ref, error) {
	p, err := t.fromGo(v, nil, 0)
	if err != nil {
		return Ref{}, err
	}
	return Ref{p: p}, nil
}

func (t *Thread) fromGo(v any, path []string, depth int) (*C.PyObject, error) {
	if depth > maxDepth {
		return nil, errors.New(errors.PhaseConvert, errors.KindUnsupported).
			Path(path...).
			Detail("nesting deeper than %d", maxDepth).
			Build()
	}

	switch x := v.(type) {
	case nil:
		return C.pb_none(), nil
	case Ref:
		if x.IsNil() {
			return nil, errors.InvalidInput(errors.PhaseConvert, "nil reference")
		}
		C.Py_IncRef(x.p)
		return x.p, nil
	case bool:
		if x {
			return t.checked(C.PyBool_FromLong(1), path)
		}
		return t.checked(C.PyBool_FromLong(0), path)
	case []byte:
		var p *C.char
		if len(x) > 0 {
			p = (*C.char)(unsafe.Pointer(&x[0]))
		}
		return t.checked(C.PyBytes_FromStringAndSize(p, C.Py_ssize_t(len(x))), path)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return t.checked(C.PyLong_FromLongLong(C.longlong(rv.Int())), path)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return t.checked(C.PyLong_FromUnsignedLongLong(C.ulonglong(rv.Uint())), path)

	case reflect.Float32, reflect.Float64:
		return t.checked(C.PyFloat_FromDouble(C.double(rv.Float())), path)

	case reflect.String:
		return t.newStr(rv.String(), path)

	case reflect.Bool:
		return t.fromGo(rv.Bool(), path, depth)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return C.pb_none(), nil
		}
		n := rv.Len()
		list := C.PyList_New(C.Py_ssize_t(n))
		if list == nil {
			return nil, t.convertErr(path, "list")
		}
		for i := 0; i < n; i++ {
			item, err := t.fromGo(rv.Index(i).Interface(), appendPath(path, fmt.Sprintf("[%d]", i)), depth+1)
			if err != nil {
				C.Py_DecRef(list)
				return nil, err
			}
			// steals item
			C.PyList_SetItem(list, C.Py_ssize_t(i), item)
		}
		return list, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.Unsupported(errors.PhaseConvert, path, rv.Type().String(), "dict")
		}
		if rv.IsNil() {
			return C.pb_none(), nil
		}
		d := C.PyDict_New()
		if d == nil {
			return nil, t.convertErr(path, "dict")
		}
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			kobj, err := t.newStr(key, path)
			if err != nil {
				C.Py_DecRef(d)
				return nil, err
			}
			item, err := t.fromGo(iter.Value().Interface(), appendPath(path, key), depth+1)
			if err != nil {
				C.Py_DecRef(kobj)
				C.Py_DecRef(d)
				return nil, err
			}
			rc := C.PyDict_SetItem(d, kobj, item)
			C.Py_DecRef(kobj)
			C.Py_DecRef(item)
			if rc < 0 {
				C.Py_DecRef(d)
				return nil, t.convertErr(path, "dict")
			}
		}
		return d, nil

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return C.pb_none(), nil
		}
		return t.fromGo(rv.Elem().Interface(), path, depth+1)
	}

	return nil, errors.Unsupported(errors.PhaseConvert, path, fmt.Sprintf("%T", v), "")
}

func (t *Thread) newStr(s string, path []string) (*C.PyObject, error) {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return t.checked(C.PyUnicode_FromStringAndSize(cs, C.Py_ssize_t(len(s))), path)
}

func (t *Thread) checked(o *C.PyObject, path []string) (*C.PyObject, error) {
	if o == nil {
		return nil, t.convertErr(path, "")
	}
	return o, nil
}

func (t *Thread) convertErr(path []string, pyType string) error {
	exc := t.fetchException(false)
	return errors.New(errors.PhaseConvert, errors.KindInvalidInput).
		Path(path...).
		PyType(pyType).
		Exception(exc).
		Build()
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}
