package dbpool

import "fmt"

// Kind classifies pool failures.
type Kind int

const (
	// Exhausted: no connection became available within the acquire wait bound.
	Exhausted Kind = iota
	// ConnectionFailed: the backing store refused or dropped the connection.
	ConnectionFailed
	// Closed: the pool has been shut down.
	Closed
)

func (k Kind) String() string {
	switch k {
	case Exhausted:
		return "pool exhausted"
	case ConnectionFailed:
		return "connection failed"
	case Closed:
		return "pool closed"
	default:
		return "unknown"
	}
}

// Error is the pool's error surface. Tag handlers wrap it into their own
// taxonomy before it reaches the renderer.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }
