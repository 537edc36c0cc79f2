package pybridge

import "testing"

type countingReleaser struct {
	n *int
}

func (c countingReleaser) Release() { *c.n++ }

func TestReleaseAll(t *testing.T) {
	var n int
	ReleaseAll(countingReleaser{&n}, nil, countingReleaser{&n})
	if n != 2 {
		t.Fatalf("released %d, want 2", n)
	}

	ReleaseAll()
}
