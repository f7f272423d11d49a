package core

// Outcome classifies the result of a single blocking read.
type Outcome int

const (
	// OutcomeReceived means Result.Message holds the next message.
	OutcomeReceived Outcome = iota + 1

	// OutcomeCancelled means the read context was cancelled while waiting.
	OutcomeCancelled

	// OutcomeFailed means the read failed; Result.Err holds the cause.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReceived:
		return "received"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is returned by Session.Read instead of signalling cancellation
// through an error.
type Result struct {
	Outcome Outcome
	Message Message
	Err     error
}

func received(msg Message) Result {
	return Result{Outcome: OutcomeReceived, Message: msg}
}

func cancelled() Result {
	return Result{Outcome: OutcomeCancelled, Err: ErrCancelled}
}

func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}
