// Package game implements the power-chess state machine: turn ownership,
// move history, the repetition ledger, energy and the four powers.
//
// A Game is not safe for concurrent use. Callers that search in the
// background should work on the copy returned by Position.
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailam/royalchess/internal/board"
)

// Outcome is the result of ApplyMove and ResolvePromotion.
type Outcome uint8

const (
	Rejected Outcome = iota
	Applied
	PromotionPending
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case PromotionPending:
		return "promotion-pending"
	default:
		return "rejected"
	}
}

// RepetitionLimit is the number of occurrences of one position that ends
// the game in a draw.
const RepetitionLimit = 3

// Game owns a position and every piece of state layered on top of it.
type Game struct {
	id       string
	startFEN string

	pos     *board.Position
	history []board.MoveRecord
	notes   []string
	ledger  map[board.PositionKey]int
	journal []action

	energy      [2]int
	doubleTurn  doubleTurnState
	teleport    bool
	frozenUntil [2]time.Time

	pending    board.MoveRecord
	hasPending bool

	status Status
	winner board.Color

	stats    [2]Stats
	captured [2][]board.Piece

	clock Clock
	timer Timer
	sink  EventSink
	log   *zap.Logger
}

// Option configures a Game.
type Option func(*Game)

// WithClock sets the time source used for Time Freeze.
func WithClock(c Clock) Option {
	return func(g *Game) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithTimer attaches a remaining-time source to move events.
func WithTimer(t Timer) Option {
	return func(g *Game) { g.timer = t }
}

// WithSink sets the event sink.
func WithSink(s EventSink) Option {
	return func(g *Game) {
		if s != nil {
			g.sink = s
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(g *Game) {
		if l != nil {
			g.log = l
		}
	}
}

// WithID fixes the game id instead of generating one.
func WithID(id string) Option {
	return func(g *Game) {
		if id != "" {
			g.id = id
		}
	}
}

// New starts a game from the standard initial position.
func New(opts ...Option) *Game {
	g, err := FromFEN(board.StartFEN, opts...)
	if err != nil {
		panic(err) // the start position always parses
	}
	return g
}

// FromFEN starts a game from an arbitrary position. Both kings must be
// present.
func FromFEN(fen string, opts ...Option) (*Game, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, errors.Wrap(err, "parse position")
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}

	g := &Game{
		id:       uuid.NewString(),
		startFEN: fen,
		clock:    wallClock{},
		sink:     NopSink{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.init(pos)

	g.log.Debug("new game",
		zap.String("game", g.id),
		zap.String("fen", fen))
	return g, nil
}

// init resets all per-game state around a fresh position.
func (g *Game) init(pos *board.Position) {
	g.pos = pos
	g.history = nil
	g.notes = nil
	g.journal = nil
	g.ledger = make(map[board.PositionKey]int)
	g.energy = [2]int{}
	g.doubleTurn = doubleTurnState{}
	g.teleport = false
	g.frozenUntil = [2]time.Time{}
	g.pending = board.MoveRecord{}
	g.hasPending = false
	g.status = StatusPlaying
	g.winner = board.NoColor
	g.stats = [2]Stats{}
	g.captured = [2][]board.Piece{}

	g.ledger[g.key()]++
}

// Reset starts a rematch from the original position under a new id.
func (g *Game) Reset() {
	pos, err := board.ParseFEN(g.startFEN)
	if err != nil {
		pos = board.NewPosition()
	}
	g.id = uuid.NewString()
	g.init(pos)
	g.log.Info("game reset", zap.String("game", g.id))
}

// key is the repetition key of the current position.
func (g *Game) key() board.PositionKey {
	var phase int8
	if g.doubleTurn.active {
		phase = int8(g.doubleTurn.moves) + 1
	}
	return g.pos.Key(phase)
}

// acceptingInput rejects input after the game ended or while a promotion
// choice is outstanding.
func (g *Game) acceptingInput() error {
	if g.status != StatusPlaying {
		return errors.Wrapf(ErrGameOver, "%s", g.status)
	}
	if g.hasPending {
		return errors.Wrapf(ErrPromotionRequired, "pawn on %s", g.pending.To)
	}
	return nil
}

// validate runs every check ApplyMove performs, without mutating anything.
func (g *Game) validate(from, to board.Square) error {
	if err := g.acceptingInput(); err != nil {
		return err
	}
	piece := g.pos.PieceAt(from)
	if piece == board.NoPiece {
		return errors.Wrapf(ErrIllegalMove, "no piece on %s", from)
	}
	if piece.Color() != g.pos.SideToMove {
		return errors.Wrapf(ErrNotYourTurn, "%s to move", g.pos.SideToMove)
	}
	if g.teleport {
		return g.checkTeleport(from, to)
	}
	return g.pos.CheckMove(from, to)
}

// ApplyMove validates and plays a move for the side to move. While Teleport
// is active the move is a teleport. A pawn reaching its last rank returns
// PromotionPending and the turn waits for ResolvePromotion. A rejected
// move leaves the game untouched.
func (g *Game) ApplyMove(from, to board.Square) (Outcome, error) {
	if err := g.validate(from, to); err != nil {
		g.log.Debug("move rejected",
			zap.String("game", g.id),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err))
		return Rejected, err
	}

	c := g.pos.SideToMove
	var rec board.MoveRecord
	if g.teleport {
		rec = g.pos.Relocate(from, to)
	} else {
		rec = g.pos.MakeMove(from, to)
	}
	g.journal = append(g.journal, action{kind: actionMove, color: c, from: from, to: to})

	g.stats[c].Moves++
	if rec.IsCapture() {
		g.stats[c].Captures++
		g.captured[c] = append(g.captured[c], rec.Captured)
		g.addEnergy(c, 1)
	}

	if rec.Special == board.Promotion {
		g.pending = rec
		g.hasPending = true
		g.log.Debug("promotion pending",
			zap.String("game", g.id),
			zap.Stringer("square", to))
		return PromotionPending, nil
	}

	g.complete(rec)
	return Applied, nil
}

// ResolvePromotion replaces the waiting pawn with a knight, bishop, rook or
// queen of the mover's color and finishes the turn.
func (g *Game) ResolvePromotion(pt board.PieceType) (Outcome, error) {
	if g.status != StatusPlaying {
		return Rejected, errors.Wrapf(ErrGameOver, "%s", g.status)
	}
	if !g.hasPending {
		return Rejected, ErrNoPromotionPending
	}
	switch pt {
	case board.Knight, board.Bishop, board.Rook, board.Queen:
	default:
		return Rejected, errors.Wrapf(ErrInvalidPromotion, "%s", pt)
	}

	rec := g.pending
	if err := g.pos.Promote(rec.To, pt); err != nil {
		return Rejected, err
	}
	rec.PromoteTo = pt
	g.pending = board.MoveRecord{}
	g.hasPending = false
	g.journal = append(g.journal, action{kind: actionPromote, color: rec.Piece.Color(), promote: pt})

	g.complete(rec)
	return Applied, nil
}

// complete records a finished move, performs the turn transition, updates
// the repetition ledger and classifies the new position.
func (g *Game) complete(rec board.MoveRecord) {
	c := rec.Piece.Color()

	g.pos.SetQueenRush(c, false)
	g.teleport = false

	if g.doubleTurn.active {
		g.doubleTurn.moves++
		// The bonus move is forfeited when the mover has nothing to play.
		if g.doubleTurn.moves >= 2 || !g.pos.HasLegalMoves(c) {
			g.doubleTurn = doubleTurnState{}
			g.pos.SideToMove = c.Other()
		}
	} else {
		g.pos.SideToMove = c.Other()
	}

	g.ledger[g.key()]++

	note := rec.Notation() + g.pos.CheckSuffix(c.Other())
	g.history = append(g.history, rec)
	g.notes = append(g.notes, note)

	g.log.Debug("move applied",
		zap.String("game", g.id),
		zap.Stringer("color", c),
		zap.String("move", note),
		zap.Uint64("key", g.key().Hash()))

	ev := MoveEvent{
		GameID:   g.id,
		Color:    c,
		Record:   rec,
		Notation: note,
	}
	if g.timer != nil {
		ev.Remaining = [2]time.Duration{g.timer.Remaining(board.White), g.timer.Remaining(board.Black)}
	}
	g.sink.MoveApplied(ev)

	g.classify()
}

// classify ends the game if the side to move is mated or stalemated, or if
// the current position occurred RepetitionLimit times.
func (g *Game) classify() {
	side := g.pos.SideToMove
	switch {
	case g.pos.IsCheckmate(side):
		g.finish(StatusCheckmate, side.Other())
	case g.pos.IsStalemate(side):
		g.finish(StatusStalemate, board.NoColor)
	case g.ledger[g.key()] >= RepetitionLimit:
		g.finish(StatusRepetition, board.NoColor)
	}
}

func (g *Game) finish(s Status, winner board.Color) {
	g.status = s
	g.winner = winner

	res := g.Result()
	g.log.Info("game over",
		zap.String("game", g.id),
		zap.String("result", res.Summary()),
		zap.Int("plies", len(g.history)))
	g.sink.GameOver(res)
}

// Resign ends the game in favor of the other color.
func (g *Game) Resign(c board.Color) error {
	if g.status != StatusPlaying {
		return errors.Wrapf(ErrGameOver, "%s", g.status)
	}
	if c >= board.NoColor {
		return errors.Errorf("invalid color %d", c)
	}
	g.journal = append(g.journal, action{kind: actionResign, color: c})
	g.finish(StatusResigned, c.Other())
	return nil
}

// Flag ends the game because a color ran out of time. A color whose clock
// is frozen cannot lose on time.
func (g *Game) Flag(c board.Color) error {
	if g.status != StatusPlaying {
		return errors.Wrapf(ErrGameOver, "%s", g.status)
	}
	if c >= board.NoColor {
		return errors.Errorf("invalid color %d", c)
	}
	if g.IsFrozen(c) {
		return errors.Errorf("%s clock is frozen until %s", c, g.frozenUntil[c].Format(time.TimeOnly))
	}
	g.finish(StatusTimeout, c.Other())
	return nil
}

// ID returns the game's unique id.
func (g *Game) ID() string { return g.id }

// Position returns a copy of the current position.
func (g *Game) Position() *board.Position { return g.pos.Copy() }

// FEN returns the FEN of the current position.
func (g *Game) FEN() string { return g.pos.FEN() }

// SideToMove returns the color whose input is expected.
func (g *Game) SideToMove() board.Color { return g.pos.SideToMove }

// Status returns the lifecycle state.
func (g *Game) Status() Status { return g.status }

// Winner returns the winning color, or NoColor while playing or on a draw.
func (g *Game) Winner() board.Color { return g.winner }

// IsOver reports whether the game has ended.
func (g *Game) IsOver() bool { return g.status != StatusPlaying }

// Result summarizes the game so far.
func (g *Game) Result() Result {
	return Result{
		GameID: g.id,
		Status: g.status,
		Winner: g.winner,
		Moves:  g.Notations(),
		Stats:  g.stats,
	}
}

// History returns the completed move records.
func (g *Game) History() []board.MoveRecord {
	return append([]board.MoveRecord(nil), g.history...)
}

// Notations returns the notation of each completed move.
func (g *Game) Notations() []string {
	return append([]string(nil), g.notes...)
}

// PendingPromotion returns the square of a pawn waiting for its promotion
// choice.
func (g *Game) PendingPromotion() (board.Square, bool) {
	if !g.hasPending {
		return board.NoSquare, false
	}
	return g.pending.To, true
}

// Stats returns the counters of a color.
func (g *Game) Stats(c board.Color) Stats {
	if c >= board.NoColor {
		return Stats{}
	}
	return g.stats[c]
}

// Captured returns the enemy pieces taken by a color, in capture order.
func (g *Game) Captured(c board.Color) []board.Piece {
	if c >= board.NoColor {
		return nil
	}
	return append([]board.Piece(nil), g.captured[c]...)
}

// IsLegalMove reports whether ApplyMove(from, to) would be accepted.
func (g *Game) IsLegalMove(from, to board.Square) bool {
	return g.validate(from, to) == nil
}

// LegalMovesFrom lists the destinations ApplyMove would accept for the
// piece on sq, including teleport destinations.
func (g *Game) LegalMovesFrom(sq board.Square) []board.Square {
	if g.acceptingInput() != nil {
		return nil
	}
	piece := g.pos.PieceAt(sq)
	if piece == board.NoPiece || piece.Color() != g.pos.SideToMove {
		return nil
	}
	if !g.teleport {
		return g.pos.LegalMovesFrom(sq)
	}
	var out []board.Square
	for to := board.A8; to < board.NoSquare; to++ {
		if g.checkTeleport(sq, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// IsInCheck reports whether a color's king is attacked.
func (g *Game) IsInCheck(c board.Color) bool { return g.pos.InCheck(c) }

// IsCheckmate reports whether a color is checkmated.
func (g *Game) IsCheckmate(c board.Color) bool { return g.pos.IsCheckmate(c) }

// IsStalemate reports whether a color is stalemated.
func (g *Game) IsStalemate(c board.Color) bool { return g.pos.IsStalemate(c) }

// IsDrawByRepetition reports whether the current position has occurred
// RepetitionLimit times.
func (g *Game) IsDrawByRepetition() bool {
	return g.status == StatusRepetition || g.ledger[g.key()] >= RepetitionLimit
}

// RepetitionCount returns how often the current position has occurred.
func (g *Game) RepetitionCount() int {
	return g.ledger[g.key()]
}
