package game

import (
	"time"

	"github.com/hailam/royalchess/internal/board"
)

// Clock is the time source used for Time Freeze expiry.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Timer reports the remaining time of each side. It is optional and only
// used to attach clock snapshots to move events.
type Timer interface {
	Remaining(c board.Color) time.Duration
}

// Status is the lifecycle state of a game.
type Status uint8

const (
	StatusPlaying Status = iota
	StatusCheckmate
	StatusStalemate
	StatusRepetition
	StatusResigned
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusCheckmate:
		return "checkmate"
	case StatusStalemate:
		return "stalemate"
	case StatusRepetition:
		return "repetition"
	case StatusResigned:
		return "resignation"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// IsDraw reports whether the status ends the game without a winner.
func (s Status) IsDraw() bool {
	return s == StatusStalemate || s == StatusRepetition
}

// Result describes how a game ended.
type Result struct {
	GameID string
	Status Status
	Winner board.Color // NoColor for draws
	Moves  []string
	Stats  [2]Stats
}

// Summary returns a one-line description such as "white wins by checkmate".
func (r Result) Summary() string {
	if r.Status.IsDraw() {
		return "draw by " + r.Status.String()
	}
	return r.Winner.String() + " wins by " + r.Status.String()
}

// Stats are per-side counters kept for the life of a game.
type Stats struct {
	Moves      int
	Captures   int
	PowersUsed int
}

// MoveEvent is emitted after a move completes (after promotion resolves).
type MoveEvent struct {
	GameID    string
	Color     board.Color
	Record    board.MoveRecord
	Notation  string
	Remaining [2]time.Duration
}

// EventSink receives state changes. Implementations must not call back into
// the game from inside a callback.
type EventSink interface {
	MoveApplied(ev MoveEvent)
	EnergyChanged(c board.Color, energy int)
	PowerActivated(c board.Color, p Power)
	GameOver(res Result)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) MoveApplied(MoveEvent) {}
func (NopSink) EnergyChanged(board.Color, int) {}
func (NopSink) PowerActivated(board.Color, Power) {}
func (NopSink) GameOver(Result) {}

// Sinks fans events out to several sinks in order.
type Sinks []EventSink

func (s Sinks) MoveApplied(ev MoveEvent) {
	for _, sink := range s {
		sink.MoveApplied(ev)
	}
}

func (s Sinks) EnergyChanged(c board.Color, energy int) {
	for _, sink := range s {
		sink.EnergyChanged(c, energy)
	}
}

func (s Sinks) PowerActivated(c board.Color, p Power) {
	for _, sink := range s {
		sink.PowerActivated(c, p)
	}
}

func (s Sinks) GameOver(res Result) {
	for _, sink := range s {
		sink.GameOver(res)
	}
}
