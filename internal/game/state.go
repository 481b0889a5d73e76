// Package game implements the CP game state machine for a single chat.
//
// Every operation is a pure function: it takes the persisted State by value
// and returns the next State together with an outcome. Callers own storage
// and must not evaluate two operations against the same chat concurrently.
package game

const (
	// MinStart is the lowest number a game may start on.
	MinStart = 10
	// EndGoal is the number that finishes the game once accepted.
	EndGoal = 3500
)

// State is the persisted game record of one chat.
type State struct {
	Active          bool   `db:"active"`
	Start           *int   `db:"start_number"`
	Number          *int   `db:"next_number"`
	LastSubmitterID *int64 `db:"last_submitter_id"`
}

// HasGame reports whether both start and number are set.
func (s State) HasGame() bool {
	return s.Start != nil && s.Number != nil
}

// Next returns the number the next submission must match while the game is active.
func Next(s State) (int, bool) {
	if !s.Active || s.Number == nil {
		return 0, false
	}
	return *s.Number, true
}

// Phase names the lifecycle position of a State.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhasePaused Phase = "paused"
)

// Phase derives the lifecycle position from the stored fields.
func (s State) Phase() Phase {
	switch {
	case !s.HasGame():
		return PhaseIdle
	case s.Active:
		return PhaseActive
	default:
		return PhasePaused
	}
}

// Clone returns a deep copy so callers never share pointer fields.
func (s State) Clone() State {
	out := State{Active: s.Active}
	if s.Start != nil {
		out.Start = intPtr(*s.Start)
	}
	if s.Number != nil {
		out.Number = intPtr(*s.Number)
	}
	if s.LastSubmitterID != nil {
		id := *s.LastSubmitterID
		out.LastSubmitterID = &id
	}
	return out
}

func intPtr(v int) *int { return &v }

func idPtr(v int64) *int64 { return &v }
