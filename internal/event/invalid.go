package event

// Invalid carries an inbound message that failed decoding or field
// validation but still identified itself with an eventId. It flows through
// the dispatch loop like any other event so the rejection is deduplicated,
// ordered, and reported downstream instead of vanishing at the parser.
type Invalid struct {
	Base
	Op     Operation
	Reason string
}

func (e *Invalid) Operation() Operation { return e.Op }
