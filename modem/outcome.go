package modem

// OutcomeKind classifies the result of one command exchange.
type OutcomeKind int

const (
	// OutcomeMatched means the expected token appeared in the response.
	OutcomeMatched OutcomeKind = iota
	// OutcomeNegative means the modem explicitly rejected the command
	// (ERROR, +CME ERROR, +CMS ERROR). Rejections are deterministic
	// within one exchange and are never retried.
	OutcomeNegative
	// OutcomeTimedOut means no terminal token appeared within the attempt
	// budget. The accumulated text may be a partial, unusable response.
	OutcomeTimedOut
	// OutcomeTransportFailure means the underlying channel failed, for
	// example the serial device disappeared.
	OutcomeTransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatched:
		return "matched"
	case OutcomeNegative:
		return "negative"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeTransportFailure:
		return "transport failure"
	default:
		return "unknown"
	}
}

// ResponseOutcome is the tagged result of one command attempt sequence.
// Raw holds whatever text was accumulated, including for failures, so
// callers can surface modem diagnostics.
type ResponseOutcome struct {
	Kind OutcomeKind
	Raw  string
}

// Matched reports whether the expected token was seen.
func (o ResponseOutcome) Matched() bool { return o.Kind == OutcomeMatched }
