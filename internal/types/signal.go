package types

import "time"

type SignalType string

const (
	// SignalTypeBuy is a signal that tells the engine to open a long position
	SignalTypeBuy SignalType = "buy"
	// SignalTypeSell is a signal that tells the engine to open a short position
	SignalTypeSell SignalType = "sell"
	// SignalTypeExitLong is a signal that tells the engine to close an open long position
	SignalTypeExitLong SignalType = "exit_long"
	// SignalTypeExitShort is a signal that tells the engine to close an open short position
	SignalTypeExitShort SignalType = "exit_short"
	// SignalTypeHold is a signal that tells the engine to take no action
	SignalTypeHold SignalType = "hold"
	// SignalTypeHoldPosition is a signal that tells the engine to keep an open position untouched
	SignalTypeHoldPosition SignalType = "hold_position"
)

type Signal struct {
	// Time is the time of the signal
	Time time.Time
	// Type is the type of the signal
	Type SignalType
	// Name is the name of the strategy that generated the signal
	Name string
	// Reason is the reason for the signal
	Reason string
	// Symbol is the symbol of the signal
	Symbol string
}

// IsEntry reports whether the signal opens a new position.
func (s Signal) IsEntry() bool {
	return s.Type == SignalTypeBuy || s.Type == SignalTypeSell
}

// IsExit reports whether the signal closes an open position.
func (s Signal) IsExit() bool {
	return s.Type == SignalTypeExitLong || s.Type == SignalTypeExitShort
}
