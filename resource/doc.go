// Package resource tracks values handed across the Python boundary.
//
// Every strong reference the bridge gives to a caller, and every namespace
// it creates on the caller's behalf, is registered in a table. The table
// gives each one a Handle and guarantees its destructor runs at most once,
// whether the caller releases it or the runtime closes first.
//
// # Handle Table
//
// The UnifiedTable maps handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(resource.TypeResult, ref)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Remove; the value's Drop method runs if it implements Dropper
//	value, ok := table.Remove(handle)
//
// # Generations
//
// A Handle packs a slot index with the slot's generation. Freed slots are
// reused, but the generation advances on each reuse, so removing a stale
// handle is a no-op rather than a release of an unrelated value.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(event resource.Event) {
//	    log.Printf("%s %s %d", resource.TypeName(event.TypeID), event.Type, event.Handle)
//	}))
//
// # Closing
//
// Close drops every remaining value and makes later inserts fail with a
// zero handle. Drop runs outside the table lock.
package resource
