package game

// Submission holds the facts about one incoming message.
type Submission struct {
	FromBot     bool
	Attachments int
	SubmitterID int64
	// Number is the extracted value; nil when nothing was read.
	Number *int
}

// VerdictKind classifies how a submission was handled.
type VerdictKind string

const (
	VerdictIgnored   VerdictKind = "ignored"
	VerdictRejected  VerdictKind = "rejected"
	VerdictAccepted  VerdictKind = "accepted"
	VerdictCompleted VerdictKind = "completed"
)

// RejectReason explains a rejected submission.
type RejectReason string

const (
	ReasonNone        RejectReason = ""
	ReasonMalformed   RejectReason = "malformed"
	ReasonConsecutive RejectReason = "consecutive_submission"
	ReasonUnreadable  RejectReason = "unreadable"
	ReasonWrongNumber RejectReason = "wrong_number"
)

// Verdict is the outcome of Submit.
type Verdict struct {
	Kind   VerdictKind
	Reason RejectReason
	// Expected is the number the game was waiting for.
	Expected int
	// Got is the extracted number for ReasonWrongNumber.
	Got int
	// Next is the new expected number after an accept.
	Next int
	// PreviousSubmitter is the author accepted before the finishing one.
	PreviousSubmitter *int64
}

// Delete reports whether the caller should remove the submitted message.
func (v Verdict) Delete() bool {
	return v.Kind == VerdictRejected
}

func reject(reason RejectReason, expected int) Verdict {
	return Verdict{Kind: VerdictRejected, Reason: reason, Expected: expected}
}

// NeedsReading reports whether the extracted number can change the verdict,
// so callers can skip downloading and OCR for everything else.
func NeedsReading(s State, sub Submission) bool {
	if !s.Active || !s.HasGame() || sub.FromBot || sub.Attachments != 1 {
		return false
	}
	return !sameSubmitter(s, sub.SubmitterID)
}

// Submit evaluates one message against the active game.
func Submit(s State, sub Submission) (State, Verdict) {
	if !s.Active || sub.FromBot {
		return s, Verdict{Kind: VerdictIgnored}
	}
	if !s.HasGame() {
		// active without a game cannot evaluate anything
		return s, Verdict{Kind: VerdictIgnored}
	}
	expected := *s.Number
	switch {
	case sub.Attachments != 1:
		return s, reject(ReasonMalformed, expected)
	case sameSubmitter(s, sub.SubmitterID):
		return s, reject(ReasonConsecutive, expected)
	case sub.Number == nil:
		return s, reject(ReasonUnreadable, expected)
	case *sub.Number != expected:
		v := reject(ReasonWrongNumber, expected)
		v.Got = *sub.Number
		return s, v
	}

	if expected == EndGoal {
		var prev *int64
		if s.LastSubmitterID != nil {
			prev = idPtr(*s.LastSubmitterID)
		}
		return State{LastSubmitterID: idPtr(sub.SubmitterID)}, Verdict{
			Kind:              VerdictCompleted,
			Expected:          expected,
			PreviousSubmitter: prev,
		}
	}

	next := s.Clone()
	next.Number = intPtr(expected + 1)
	next.LastSubmitterID = idPtr(sub.SubmitterID)
	return next, Verdict{Kind: VerdictAccepted, Expected: expected, Next: expected + 1}
}

func sameSubmitter(s State, id int64) bool {
	return s.LastSubmitterID != nil && *s.LastSubmitterID == id
}
