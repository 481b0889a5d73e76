package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is matched by every *RangeError.
	ErrInvalidRange = errors.New("game: start out of range")
	// ErrNoGame is returned when an operation needs an existing game.
	ErrNoGame = errors.New("game: no valid game")
)

// RangeError reports a rejected start value.
type RangeError struct {
	Requested int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("game: start %d outside [%d, %d)", e.Requested, MinStart, EndGoal)
}

// Is makes errors.Is(err, ErrInvalidRange) hold.
func (e *RangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// Code is picked up by the router when logging failed handlers.
func (e *RangeError) Code() string {
	return "INVALID_RANGE"
}

// ErrorCode maps game errors to stable codes for logs and metrics.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRange):
		return "INVALID_RANGE"
	case errors.Is(err, ErrNoGame):
		return "NO_GAME"
	default:
		return "UNKNOWN"
	}
}
