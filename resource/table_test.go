package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(TypeResult, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok = table.GetTyped(h, TypeResult); !ok {
		t.Fatal("GetTyped with correct type failed")
	}

	if _, ok = table.GetTyped(h, TypeContext); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok := table.Get(h); ok {
		t.Fatal("Get succeeded after Remove")
	}

	if _, ok := table.Remove(h); ok {
		t.Fatal("second Remove should fail")
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(TypeContext, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated {
		t.Fatal("Expected EventCreated")
	}
	if obs.events[0].Handle != h || obs.events[0].TypeID != TypeContext {
		t.Fatal("Wrong handle in event")
	}

	table.Remove(h)
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventDropped {
		t.Fatal("Expected EventDropped")
	}
	if obs.events[1].TypeID != TypeContext {
		t.Fatalf("dropped event TypeID = %d", obs.events[1].TypeID)
	}
}

func TestUnifiedTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	var got []EventType
	table.Subscribe(ObserverFunc(func(e Event) { got = append(got, e.Type) }))

	table.Remove(table.Insert(TypeResult, 1))

	if len(got) != 2 || got[0] != EventCreated || got[1] != EventDropped {
		t.Fatalf("events = %v", got)
	}
}

func TestUnifiedTable_CountAndClose(t *testing.T) {
	table := NewTable()

	table.Insert(TypeResult, "a")
	table.Insert(TypeResult, "b")
	table.Insert(TypeContext, "c")

	if n := table.CountTyped(TypeResult); n != 2 {
		t.Fatalf("CountTyped(result) = %d, want 2", n)
	}
	if n := table.CountTyped(TypeContext); n != 1 {
		t.Fatalf("CountTyped(context) = %d, want 1", n)
	}

	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if n := table.CountTyped(TypeResult) + table.CountTyped(TypeContext); n != 0 {
		t.Fatalf("%d entries left after Close", n)
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	a, b := &dropCounter{}, &dropCounter{}
	table.Insert(TypeResult, a)
	table.Insert(TypeResult, b)

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if a.count != 1 || b.count != 1 {
		t.Fatalf("drop counts = %d, %d, want 1, 1", a.count, b.count)
	}
	if len(obs.events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(obs.events))
	}

	if h := table.Insert(TypeResult, "c"); h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}

	if err := table.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if a.count != 1 {
		t.Fatal("second Close dropped again")
	}
}

func TestUnifiedTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := table.Insert(TypeResult, d)
	table.Remove(h)
	table.Remove(h)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestTypeName(t *testing.T) {
	tests := map[uint32]string{
		TypeResult:  "result",
		TypeContext: "context",
		99:          "unknown",
	}
	for id, want := range tests {
		if got := TypeName(id); got != want {
			t.Errorf("TypeName(%d) = %q, want %q", id, got, want)
		}
	}
}
