package resource

// Type IDs for values owned by the Python bridge.
const (
	TypeResult  uint32 = iota + 1 // strong reference returned by exec/eval
	TypeContext                   // owned namespace dictionary
)

// TypeName returns a short label for a type ID, used in logs.
func TypeName(typeID uint32) string {
	switch typeID {
	case TypeResult:
		return "result"
	case TypeContext:
		return "context"
	default:
		return "unknown"
	}
}
