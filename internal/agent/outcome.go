package agent

// OutcomeKind is the closed set of terminal results a responder can
// report for one processing attempt.
type OutcomeKind int

const (
	// OutcomeReplyIssued means a reply was generated and published.
	OutcomeReplyIssued OutcomeKind = iota

	// OutcomeSkipped means the notification needs no reply.
	OutcomeSkipped

	// OutcomeTransientFailure means the attempt failed in a way worth
	// retrying (timeout, rate limit, upstream hiccup).
	OutcomeTransientFailure

	// OutcomeFatalFailure means retrying cannot help.
	OutcomeFatalFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReplyIssued:
		return "reply-issued"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeTransientFailure:
		return "transient-failure"
	case OutcomeFatalFailure:
		return "fatal-failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one responder invocation.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// ReplyIssued reports a published reply.
func ReplyIssued() Outcome {
	return Outcome{Kind: OutcomeReplyIssued}
}

// Skipped reports an intentional non-reply.
func Skipped(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

// Transient reports a retryable failure.
func Transient(reason string) Outcome {
	return Outcome{Kind: OutcomeTransientFailure, Reason: reason}
}

// Fatal reports a non-retryable failure.
func Fatal(reason string) Outcome {
	return Outcome{Kind: OutcomeFatalFailure, Reason: reason}
}
