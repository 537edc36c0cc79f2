package engine

import (
	"context"
	stderrors "errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/python-bridge/errors"
)

var testEngine *Engine

func TestMain(m *testing.M) {
	ctx := context.Background()

	eng, err := Start(ctx, Config{PrintErrors: true})
	if err != nil {
		panic(err)
	}
	testEngine = eng

	code := m.Run()

	if err := eng.Close(ctx); err != nil {
		panic(err)
	}
	os.Exit(code)
}

// eval runs src in a fresh namespace and converts the result.
func eval(t *testing.T, src string) (any, error) {
	t.Helper()
	var out any
	err := testEngine.Do(context.Background(), func(th *Thread) error {
		ns, err := th.NewDict()
		if err != nil {
			return err
		}
		defer th.DecRef(ns)

		v, err := th.Run(ns, src, ModeEval)
		if err != nil {
			return err
		}
		defer th.DecRef(v)

		out, err = th.ToGo(v)
		return err
	})
	return out, err
}

func TestStart_AlreadyRunning(t *testing.T) {
	_, err := Start(context.Background(), Config{})
	if err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if !errors.IsInitialization(err) {
		t.Fatal("ErrAlreadyRunning should be an initialization error")
	}
}

func TestRun_PersistsNamesInNamespace(t *testing.T) {
	err := testEngine.Do(context.Background(), func(th *Thread) error {
		ns, err := th.NewDict()
		if err != nil {
			return err
		}
		defer th.DecRef(ns)

		v, err := th.Run(ns, "x = 20\ny = x + 1", ModeFile)
		if err != nil {
			return err
		}
		if !th.IsNone(v) {
			t.Errorf("exec result type = %s, want NoneType", th.TypeName(v))
		}
		th.DecRef(v)

		v, err = th.Run(ns, "x + y", ModeEval)
		if err != nil {
			return err
		}
		defer th.DecRef(v)

		got, err := th.ToGo(v)
		if err != nil {
			return err
		}
		if got != int64(41) {
			t.Errorf("x + y = %v, want 41", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		mode    Mode
		phase   errors.Phase
		excType string
	}{
		{name: "incomplete expression", src: "x +", mode: ModeEval, phase: errors.PhaseEval, excType: "SyntaxError"},
		{name: "statement as expression", src: "x = 1", mode: ModeEval, phase: errors.PhaseEval, excType: "SyntaxError"},
		{name: "division by zero", src: "1 / 0", mode: ModeFile, phase: errors.PhaseExec, excType: "ZeroDivisionError"},
		{name: "undefined name", src: "undefined_name", mode: ModeEval, phase: errors.PhaseEval, excType: "NameError"},
		{name: "system exit", src: "raise SystemExit(3)", mode: ModeFile, phase: errors.PhaseExec, excType: "SystemExit"},
		{name: "custom exception", src: "class Boom(Exception): pass\nraise Boom('bang')", mode: ModeFile, phase: errors.PhaseExec, excType: "Boom"},
		{name: "null byte", src: "x = 1\x00raise ValueError()", mode: ModeFile, phase: errors.PhaseExec, excType: "SyntaxError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testEngine.Do(context.Background(), func(th *Thread) error {
				ns, err := th.NewDict()
				if err != nil {
					return err
				}
				defer th.DecRef(ns)

				v, err := th.Run(ns, tt.src, tt.mode)
				if err == nil {
					th.DecRef(v)
				}
				return err
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsExecution(err) {
				t.Fatalf("expected execution error, got %v", err)
			}
			if !stderrors.Is(err, &errors.Error{Phase: tt.phase, Kind: errors.KindExecution}) {
				t.Errorf("phase mismatch: %v", err)
			}
			exc, ok := errors.ExceptionOf(err)
			if !ok {
				t.Fatal("missing exception info")
			}
			if exc.Type != tt.excType {
				t.Errorf("exception type = %q, want %q", exc.Type, tt.excType)
			}
		})
	}

	// The interpreter keeps working after every failure above.
	got, err := eval(t, "'still' + ' alive'")
	if err != nil {
		t.Fatal(err)
	}
	if got != "still alive" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_ExceptionDetails(t *testing.T) {
	_, err := eval(t, "int('nope')")
	exc, ok := errors.ExceptionOf(err)
	if !ok {
		t.Fatalf("expected exception, got %v", err)
	}
	if exc.Type != "ValueError" {
		t.Errorf("Type = %q", exc.Type)
	}
	if !strings.Contains(exc.Message, "nope") {
		t.Errorf("Message = %q", exc.Message)
	}
	if !strings.Contains(exc.Traceback, "Traceback") || !strings.Contains(exc.Traceback, "ValueError") {
		t.Errorf("Traceback = %q", exc.Traceback)
	}
}

func TestToGo(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"None", nil},
		{"True", true},
		{"False", false},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"1.5", 1.5},
		{"'héllo'", "héllo"},
		{"'a\\x00b'", "a\x00b"},
		{"b'\\x00ab'", []byte{0, 'a', 'b'}},
		{"[1, 'two', None]", []any{int64(1), "two", nil}},
		{"(1, (2, 3))", []any{int64(1), []any{int64(2), int64(3)}}},
		{"{'a': [1], 'b': {'c': True}}", map[string]any{"a": []any{int64(1)}, "b": map[string]any{"c": true}}},
		{"[]", []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := eval(t, tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestToGo_Errors(t *testing.T) {
	tests := []struct {
		src  string
		kind errors.Kind
		path string
	}{
		{"2 ** 70", errors.KindOverflow, ""},
		{"{1, 2}", errors.KindUnsupported, ""},
		{"{1: 'a'}", errors.KindUnsupported, ""},
		{"[0, {'k': object()}]", errors.KindUnsupported, "[1].k"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := eval(t, tt.src)
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
			if tt.path != "" && !strings.Contains(err.Error(), tt.path) {
				t.Errorf("error %q does not mention path %q", err, tt.path)
			}
		})
	}
}

func TestToGo_SelfReference(t *testing.T) {
	err := testEngine.Do(context.Background(), func(th *Thread) error {
		ns, err := th.NewDict()
		if err != nil {
			return err
		}
		defer th.DecRef(ns)

		v, err := th.Run(ns, "l = []\nl.append(l)", ModeFile)
		if err != nil {
			return err
		}
		th.DecRef(v)

		l, ok := th.DictGet(ns, "l")
		if !ok {
			t.Fatal("l not bound")
		}
		defer th.DecRef(l)

		if _, err := th.ToGo(l); !errors.IsKind(err, errors.KindUnsupported) {
			t.Errorf("expected unsupported nesting error, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

type label string

func TestFromGo(t *testing.T) {
	n := 5
	tests := []struct {
		name  string
		value any
		check string
	}{
		{"nil", nil, "v is None"},
		{"bool", true, "v is True"},
		{"int", 42, "v == 42"},
		{"uint64", uint64(1 << 63), "v == 2 ** 63"},
		{"float", 2.5, "v == 2.5"},
		{"string", "héllo", "v == 'héllo'"},
		{"named string", label("tag"), "v == 'tag'"},
		{"bytes", []byte("ab"), "v == b'ab'"},
		{"slice", []any{1, "a", nil}, "v == [1, 'a', None]"},
		{"array", [2]int{1, 2}, "v == [1, 2]"},
		{"map", map[string]any{"k": []string{"x"}}, "v == {'k': ['x']}"},
		{"pointer", &n, "v == 5"},
		{"nil slice", []int(nil), "v is None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testEngine.Do(context.Background(), func(th *Thread) error {
				ns, err := th.NewDict()
				if err != nil {
					return err
				}
				defer th.DecRef(ns)

				v, err := th.FromGo(tt.value)
				if err != nil {
					return err
				}
				err = th.DictSet(ns, "v", v)
				th.DecRef(v)
				if err != nil {
					return err
				}

				res, err := th.Run(ns, tt.check, ModeEval)
				if err != nil {
					return err
				}
				defer th.DecRef(res)

				ok, err := th.ToGo(res)
				if err != nil {
					return err
				}
				if ok != true {
					t.Errorf("%s is false", tt.check)
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestFromGo_Unsupported(t *testing.T) {
	tests := []any{
		make(chan int),
		map[int]string{1: "a"},
		struct{ A int }{1},
	}

	for _, v := range tests {
		err := testEngine.Do(context.Background(), func(th *Thread) error {
			r, err := th.FromGo(v)
			if err == nil {
				th.DecRef(r)
			}
			return err
		})
		if !errors.IsKind(err, errors.KindUnsupported) {
			t.Errorf("FromGo(%T): expected unsupported, got %v", v, err)
		}
	}
}

func TestStrRepr(t *testing.T) {
	err := testEngine.Do(context.Background(), func(th *Thread) error {
		v, err := th.FromGo("hi")
		if err != nil {
			return err
		}
		defer th.DecRef(v)

		s, err := th.Str(v)
		if err != nil {
			return err
		}
		r, err := th.Repr(v)
		if err != nil {
			return err
		}
		if s != "hi" || r != "'hi'" {
			t.Errorf("str=%q repr=%q", s, r)
		}
		if th.TypeName(v) != "str" {
			t.Errorf("TypeName = %q", th.TypeName(v))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCapture(t *testing.T) {
	var runErr error
	var out Output
	err := testEngine.Do(context.Background(), func(th *Thread) error {
		ns, err := th.NewDict()
		if err != nil {
			return err
		}
		defer th.DecRef(ns)

		out, runErr = th.Capture(func() error {
			v, err := th.Run(ns, "import sys\nprint('to stdout')\nprint('to stderr', file=sys.stderr)\n1/0", ModeFile)
			if err == nil {
				th.DecRef(v)
			}
			return err
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if !errors.IsExecution(runErr) {
		t.Fatalf("expected execution error, got %v", runErr)
	}
	if out.Stdout != "to stdout\n" {
		t.Errorf("Stdout = %q", out.Stdout)
	}
	if !strings.Contains(out.Stderr, "to stderr") {
		t.Errorf("Stderr = %q", out.Stderr)
	}
	if !strings.Contains(out.Stderr, "ZeroDivisionError") {
		t.Errorf("printed exception missing from Stderr: %q", out.Stderr)
	}

	// Streams are restored.
	got, err := eval(t, "__import__('sys').stdout is __import__('sys').__stdout__")
	if err != nil {
		t.Fatal(err)
	}
	if got != true {
		t.Error("sys.stdout was not restored")
	}
}

func TestDo_RecoversPanic(t *testing.T) {
	err := testEngine.Do(context.Background(), func(*Thread) error {
		panic("boom")
	})
	if !errors.IsKind(err, errors.KindPanic) {
		t.Fatalf("expected panic error, got %v", err)
	}

	if _, err := eval(t, "1"); err != nil {
		t.Fatalf("engine unusable after panic: %v", err)
	}
}

func TestDo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := testEngine.Do(ctx, func(*Thread) error {
		ran = true
		return nil
	})
	// The select may still pick the ready worker; either outcome is valid,
	// but a canceled wait must never report success without running.
	if err == nil && !ran {
		t.Fatal("nil error without running the call")
	}
	if err != nil && err != context.Canceled {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMainDict_Shared(t *testing.T) {
	err := testEngine.Do(context.Background(), func(th *Thread) error {
		a, err := th.MainDict()
		if err != nil {
			return err
		}
		b, err := th.MainDict()
		if err != nil {
			return err
		}
		if a != b {
			t.Error("MainDict returned different namespaces")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRun_SingleModeDisplaysValue(t *testing.T) {
	var out Output
	err := testEngine.Do(context.Background(), func(th *Thread) error {
		ns, err := th.NewDict()
		if err != nil {
			return err
		}
		defer th.DecRef(ns)

		var runErr error
		out, runErr = th.Capture(func() error {
			for _, src := range []string{"n = 6", "n * 7", "None"} {
				v, err := th.Run(ns, src, ModeSingle)
				if err != nil {
					return err
				}
				th.DecRef(v)
			}
			return nil
		})
		return runErr
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Stdout != "42\n" {
		t.Fatalf("Stdout = %q, want %q", out.Stdout, "42\n")
	}
}
