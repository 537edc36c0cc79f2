package pybridge

// Releaser is implemented by values holding a Python reference, such as
// *runtime.Handle.
type Releaser interface {
	Release()
}

// ReleaseAll releases each non-nil r in order.
func ReleaseAll(rs ...Releaser) {
	for _, r := range rs {
		if r != nil {
			r.Release()
		}
	}
}
