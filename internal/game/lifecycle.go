package game

import "math"

// Start creates a new game at requested, replacing whatever the chat had.
func Start(s State, requested int) (State, error) {
	if requested < MinStart || requested >= EndGoal {
		return s, &RangeError{Requested: requested}
	}
	return State{
		Active: true,
		Start:  intPtr(requested),
		Number: intPtr(requested),
	}, nil
}

// PauseResult classifies the outcome of Pause.
type PauseResult int

const (
	// PauseNoop means there was nothing to pause.
	PauseNoop PauseResult = iota
	// PauseApplied means the game stopped evaluating submissions.
	PauseApplied
	// PauseReset means the stored state was inconsistent and has been cleared.
	PauseReset
)

func (r PauseResult) String() string {
	switch r {
	case PauseApplied:
		return "paused"
	case PauseReset:
		return "reset"
	default:
		return "noop"
	}
}

// Pause stops evaluation while keeping progress.
func Pause(s State) (State, PauseResult) {
	switch {
	case s.HasGame():
		next := s.Clone()
		next.Active = false
		return next, PauseApplied
	case s.Active:
		return State{}, PauseReset
	default:
		return s, PauseNoop
	}
}

// Resume re-activates a paused game and returns the expected number.
func Resume(s State) (State, int, error) {
	if !s.HasGame() {
		return s, 0, ErrNoGame
	}
	next := s.Clone()
	next.Active = true
	return next, *next.Number, nil
}

// Tier is the commentary bucket for an abandoned game.
type Tier string

const (
	TierNone        Tier = ""
	TierFutile      Tier = "futile"
	TierGoodGo      Tier = "good_go"
	TierCloseToEnd  Tier = "close_to_end"
	TierHairAway    Tier = "hair_away"
	TierOverHundred Tier = "over_hundred"
)

// EndReport summarizes a game ended by a moderator.
type EndReport struct {
	Start      int
	LastNumber int
	Completion float64
	Tier       Tier
}

// Percent renders the completion as a whole percentage, rounding half to even.
func (r EndReport) Percent() int {
	return int(math.RoundToEven(r.Completion * 100))
}

// End abandons the current game and reports how far it got.
//
// Without a game it returns ErrNoGame and still forces Active to false.
// That side effect is kept for compatibility with existing chats.
func End(s State) (State, EndReport, error) {
	if !s.HasGame() {
		next := s.Clone()
		next.Active = false
		return next, EndReport{}, ErrNoGame
	}
	start := *s.Start
	last := *s.Number - 1
	completion := float64(last-start) / float64(EndGoal-start)
	if completion < 0 {
		completion = 0
	}
	return State{}, EndReport{
		Start:      start,
		LastNumber: last,
		Completion: completion,
		Tier:       TierFor(completion),
	}, nil
}

// TierFor maps a completion ratio to its commentary tier.
// Exactly 1.0 falls between the buckets and yields TierNone.
func TierFor(completion float64) Tier {
	switch {
	case completion < 0.10:
		return TierFutile
	case completion < 0.50:
		return TierGoodGo
	case completion < 0.85:
		return TierCloseToEnd
	case completion < 1:
		return TierHairAway
	case completion > 1:
		return TierOverHundred
	default:
		return TierNone
	}
}
