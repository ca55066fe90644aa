package engine

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailam/royalchess/internal/board"
)

// DefaultDepth is the search depth used when none is requested.
const DefaultDepth = 3

// SearchInfo contains information about a finished search.
type SearchInfo struct {
	Depth int
	Score int // from the searching color's point of view
	Nodes uint64
	Time  time.Duration
	Move  board.Move
}

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // 2 ply
	Medium                   // 3 ply
	Hard                     // 4 ply
)

// DifficultyDepth maps difficulty to search depth.
var DifficultyDepth = map[Difficulty]int{
	Easy:   2,
	Medium: DefaultDepth,
	Hard:   4,
}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "unknown"
	}
}

// ParseDifficulty accepts "easy", "medium" or "hard".
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium", "":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Medium, errors.Errorf("unknown difficulty %q", s)
}

// Options configure an Engine.
type Options struct {
	Depth    int  // used when a search asks for depth <= 0
	Parallel bool // search root moves concurrently
	Logger   *zap.Logger
}

// Engine is the chess AI. It holds no position state, so one Engine may
// serve several games.
type Engine struct {
	depth    int
	parallel bool
	log      *zap.Logger

	// Callbacks
	OnInfo func(SearchInfo)
}

// New creates an engine.
func New(opts Options) *Engine {
	e := &Engine{
		depth:    opts.Depth,
		parallel: opts.Parallel,
		log:      opts.Logger,
	}
	if e.depth <= 0 {
		e.depth = DefaultDepth
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// SetDifficulty sets the default depth from a difficulty level.
func (e *Engine) SetDifficulty(d Difficulty) {
	if depth, ok := DifficultyDepth[d]; ok {
		e.depth = depth
	}
}

// Depth returns the default search depth.
func (e *Engine) Depth() int {
	return e.depth
}

// BestMove searches depth plies for color and returns the chosen move. The
// second result is false when color has no legal move. pos is restored
// before BestMove returns.
func (e *Engine) BestMove(pos *board.Position, color board.Color, depth int) (board.Move, bool) {
	info, err := e.Search(context.Background(), pos, color, depth)
	if err != nil || info.Move == board.NoMove {
		return board.NoMove, false
	}
	return info.Move, true
}

// ScoreToString converts a score to a human-readable string. A pawn is
// worth 10 points.
func ScoreToString(score int) string {
	if score >= MateScore {
		return "mate"
	}
	if score <= -MateScore {
		return "mated"
	}

	sign := "+"
	if score < 0 {
		sign = "-"
		score = -score
	}
	return sign + itoa(score/10) + "." + itoa(score%10)
}

// Simple integer to string (avoid fmt import)
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
