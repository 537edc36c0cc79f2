package runtime

import (
	"context"
	"sync/atomic"

	pybridge "github.com/wippyai/python-bridge"
	"github.com/wippyai/python-bridge/engine"
	"github.com/wippyai/python-bridge/errors"
	"github.com/wippyai/python-bridge/resource"
)

var _ pybridge.Releaser = (*Handle)(nil)

// Handle is an owned reference to a Python object produced by Exec, Eval
// or Get. Release it once the value is no longer needed.
type Handle struct {
	rt       *Runtime
	id       resource.Handle
	typeName string
	none     bool
	released atomic.Bool
}

// Release drops the reference. Releasing a nil handle, releasing twice, or
// releasing after the runtime has closed is a no-op.
func (h *Handle) Release() {
	if h == nil || h.rt == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.rt.handles.Remove(h.id)
}

// Released reports whether the reference has been dropped, either by
// Release or by closing the runtime.
func (h *Handle) Released() bool {
	if h == nil || h.rt == nil || h.released.Load() {
		return true
	}
	_, ok := h.rt.handles.Get(h.id)
	return !ok
}

// TypeName returns the Python type name of the value, e.g. "int".
func (h *Handle) TypeName() string {
	if h == nil {
		return ""
	}
	return h.typeName
}

// IsNone reports whether the value is None.
func (h *Handle) IsNone() bool {
	return h != nil && h.none
}

// Value converts the referenced object to Go:
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
func (h *Handle) Value(ctx context.Context) (any, error) {
	var out any
	err := h.with(ctx, errors.PhaseConvert, func(t *engine.Thread, v engine.Ref) error {
		var err error
		out, err = t.ToGo(v)
		return err
	})
	return out, err
}

// String returns str() of the value.
func (h *Handle) String(ctx context.Context) (string, error) {
	var s string
	err := h.with(ctx, errors.PhaseConvert, func(t *engine.Thread, v engine.Ref) error {
		var err error
		s, err = t.Str(v)
		return err
	})
	return s, err
}

// Repr returns repr() of the value.
func (h *Handle) Repr(ctx context.Context) (string, error) {
	var s string
	err := h.with(ctx, errors.PhaseConvert, func(t *engine.Thread, v engine.Ref) error {
		var err error
		s, err = t.Repr(v)
		return err
	})
	return s, err
}

func (h *Handle) with(ctx context.Context, phase errors.Phase, fn func(*engine.Thread, engine.Ref) error) error {
	if h.Released() {
		return errors.Released(phase)
	}
	return h.rt.do(ctx, func(t *engine.Thread) error {
		v, ok := h.rt.lookup(h.id, resource.TypeResult)
		if !ok {
			return errors.Released(phase)
		}
		return fn(t, v)
	})
}
