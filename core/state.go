package core

// State is the lifecycle position of a Session.
//
//	Uninitialized -> Subscribed -> Reading -> Reading ...
//	                                       -> Cancelled (terminal)
//	                                       -> Failed    (terminal)
type State int

const (
	StateUninitialized State = iota
	StateSubscribed
	StateReading
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSubscribed:
		return "subscribed"
	case StateReading:
		return "reading"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further reads are possible from s.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateFailed
}
