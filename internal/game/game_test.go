package game

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/royalchess/internal/board"
)

type recordingSink struct {
	moves   []MoveEvent
	energy  []int
	powers  []Power
	results []Result
}

func (s *recordingSink) MoveApplied(ev MoveEvent) { s.moves = append(s.moves, ev) }
func (s *recordingSink) EnergyChanged(_ board.Color, energy int) { s.energy = append(s.energy, energy) }
func (s *recordingSink) PowerActivated(_ board.Color, p Power) { s.powers = append(s.powers, p) }
func (s *recordingSink) GameOver(res Result) { s.results = append(s.results, res) }

func sq(t *testing.T, s string) board.Square {
	t.Helper()
	v, err := board.ParseSquare(s)
	require.NoError(t, err)
	return v
}

func playMoves(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, s := range moves {
		m, _, err := board.ParseMove(s)
		require.NoError(t, err)
		out, err := g.ApplyMove(m.From, m.To)
		require.NoError(t, err, "move %s", s)
		require.Equal(t, Applied, out, "move %s", s)
	}
}

func TestE2E4OnlyOnce(t *testing.T) {
	g := New()

	out, err := g.ApplyMove(sq(t, "e2"), sq(t, "e4"))
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, board.Black, g.SideToMove())
	assert.Equal(t, board.WhitePawn, g.Position().PieceAt(sq(t, "e4")))

	before := g.FEN()
	out, err = g.ApplyMove(sq(t, "e2"), sq(t, "e4"))
	assert.Equal(t, Rejected, out)
	assert.True(t, errors.Is(err, ErrIllegalMove), "got %v", err)

	// A different white move is still refused until black replies.
	out, err = g.ApplyMove(sq(t, "d2"), sq(t, "d4"))
	assert.Equal(t, Rejected, out)
	assert.True(t, errors.Is(err, ErrNotYourTurn), "got %v", err)
	assert.Equal(t, before, g.FEN(), "rejected moves must not change the position")
	assert.Len(t, g.History(), 1)
}

func TestFoolsMate(t *testing.T) {
	sink := &recordingSink{}
	g := New(WithSink(sink))

	playMoves(t, g, "f2f3", "e7e5", "g2g4", "d8h4")

	assert.True(t, g.IsCheckmate(board.White))
	assert.Equal(t, StatusCheckmate, g.Status())
	assert.Equal(t, board.Black, g.Winner())
	assert.Equal(t, "Qd8-h4#", g.Notations()[3])

	require.Len(t, sink.results, 1)
	assert.Equal(t, "black wins by checkmate", sink.results[0].Summary())
	assert.Equal(t, g.ID(), sink.results[0].GameID)
	assert.Len(t, sink.moves, 4)

	_, err := g.ApplyMove(sq(t, "a2"), sq(t, "a3"))
	assert.True(t, errors.Is(err, ErrGameOver), "got %v", err)
	assert.True(t, errors.Is(g.ActivatePower(board.White, QueenRush), ErrGameOver))
}

func TestThreefoldRepetition(t *testing.T) {
	g := New()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}

	playMoves(t, g, shuffle...)
	assert.Equal(t, 2, g.RepetitionCount())
	assert.False(t, g.IsDrawByRepetition(), "two occurrences are not a draw")
	assert.Equal(t, StatusPlaying, g.Status())

	playMoves(t, g, shuffle...)
	assert.Equal(t, 3, g.RepetitionCount())
	assert.True(t, g.IsDrawByRepetition())
	assert.Equal(t, StatusRepetition, g.Status())
	assert.Equal(t, board.NoColor, g.Winner())

	_, err := g.ApplyMove(sq(t, "e2"), sq(t, "e4"))
	assert.True(t, errors.Is(err, ErrGameOver))
}

func TestPromotionBlocksTurn(t *testing.T) {
	g, err := FromFEN("8/4P3/8/8/8/8/k7/4K3 w - - 0 1")
	require.NoError(t, err)

	out, err := g.ApplyMove(sq(t, "e7"), sq(t, "e8"))
	require.NoError(t, err)
	require.Equal(t, PromotionPending, out)

	at, ok := g.PendingPromotion()
	require.True(t, ok)
	assert.Equal(t, sq(t, "e8"), at)
	assert.Equal(t, board.White, g.SideToMove(), "turn must not pass before the choice")
	assert.Empty(t, g.History())

	_, err = g.ApplyMove(sq(t, "e1"), sq(t, "d1"))
	assert.True(t, errors.Is(err, ErrPromotionRequired), "got %v", err)
	assert.True(t, errors.Is(g.ActivatePower(board.White, TimeFreeze), ErrPromotionRequired))

	_, err = g.ResolvePromotion(board.King)
	assert.True(t, errors.Is(err, ErrInvalidPromotion), "got %v", err)
	_, err = g.ResolvePromotion(board.Pawn)
	assert.True(t, errors.Is(err, ErrInvalidPromotion), "got %v", err)

	out, err = g.ResolvePromotion(board.Knight)
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, board.WhiteKnight, g.Position().PieceAt(sq(t, "e8")))
	assert.Equal(t, board.Black, g.SideToMove())
	require.Len(t, g.History(), 1)
	assert.Equal(t, board.Knight, g.History()[0].PromoteTo)
	assert.Equal(t, "e7-e8=N", g.Notations()[0])

	_, err = g.ResolvePromotion(board.Queen)
	assert.True(t, errors.Is(err, ErrNoPromotionPending))
}

func TestBlackPromotes(t *testing.T) {
	g, err := FromFEN("4k3/8/8/8/8/8/3p4/K7 b - - 0 1")
	require.NoError(t, err)

	out, err := g.ApplyMove(sq(t, "d2"), sq(t, "d1"))
	require.NoError(t, err)
	require.Equal(t, PromotionPending, out)

	_, err = g.ResolvePromotion(board.Queen)
	require.NoError(t, err)
	assert.Equal(t, board.BlackQueen, g.Position().PieceAt(sq(t, "d1")))
	assert.Equal(t, "d2-d1=Q+", g.Notations()[0])
	assert.True(t, g.IsInCheck(board.White))
}

func TestCaptureAwardsEnergy(t *testing.T) {
	sink := &recordingSink{}
	g := New(WithSink(sink))

	playMoves(t, g, "e2e4", "d7d5", "e4d5")
	assert.Equal(t, 1, g.EnergyOf(board.White))
	assert.Equal(t, 0, g.EnergyOf(board.Black))
	assert.Equal(t, []int{1}, sink.energy)
	assert.Equal(t, Stats{Moves: 2, Captures: 1}, g.Stats(board.White))
	assert.Equal(t, []board.Piece{board.BlackPawn}, g.Captured(board.White))

	// Energy is clamped at the maximum.
	require.NoError(t, g.GrantEnergy(board.Black, MaxEnergy))
	playMoves(t, g, "d8d5")
	assert.Equal(t, MaxEnergy, g.EnergyOf(board.Black))
}

func TestEnPassantAwardsEnergy(t *testing.T) {
	g := New()
	playMoves(t, g, "e2e4", "a7a6", "e4e5", "d7d5", "e5d6")

	assert.Equal(t, 1, g.EnergyOf(board.White))
	last := g.History()[4]
	assert.Equal(t, board.EnPassant, last.Special)
	assert.Equal(t, board.NoPiece, g.Position().PieceAt(sq(t, "d5")))
	assert.Equal(t, 31, g.Position().Count())
}

func TestCastlingThroughGame(t *testing.T) {
	g := New()
	playMoves(t, g, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1")

	pos := g.Position()
	assert.Equal(t, board.WhiteKing, pos.PieceAt(sq(t, "g1")))
	assert.Equal(t, board.WhiteRook, pos.PieceAt(sq(t, "f1")))
	assert.Equal(t, "O-O", g.Notations()[6])
	assert.False(t, pos.Castling.CanCastle(board.White, false))
}

// TestAcceptedMovesKeepInvariants drives a long deterministic game and checks
// after every move that the mover is not in check and that the piece count
// drops by at most one.
func TestAcceptedMovesKeepInvariants(t *testing.T) {
	g := New()
	count := g.Position().Count()

	for ply := 0; ply < 120 && !g.IsOver(); ply++ {
		mover := g.SideToMove()
		moves := g.Position().LegalMoves(mover)
		require.NotEmpty(t, moves, "ply %d", ply)

		m := moves[(ply*7+3)%len(moves)]
		out, err := g.ApplyMove(m.From, m.To)
		require.NoError(t, err, "ply %d move %s", ply, m)
		if out == PromotionPending {
			_, err = g.ResolvePromotion(board.Queen)
			require.NoError(t, err)
		}

		assert.False(t, g.IsInCheck(mover), "ply %d: %s left its king in check", ply, mover)

		next := g.Position().Count()
		assert.LessOrEqual(t, next, count, "ply %d: piece count grew", ply)
		assert.GreaterOrEqual(t, next, count-1, "ply %d: more than one piece vanished", ply)
		count = next

		require.NoError(t, g.Position().Validate())
	}
}

func TestResignAndReset(t *testing.T) {
	sink := &recordingSink{}
	g := New(WithSink(sink))
	id := g.ID()

	playMoves(t, g, "e2e4")
	require.NoError(t, g.Resign(board.Black))
	assert.Equal(t, StatusResigned, g.Status())
	assert.Equal(t, board.White, g.Winner())
	require.Len(t, sink.results, 1)
	assert.Equal(t, "white wins by resignation", sink.results[0].Summary())
	assert.True(t, errors.Is(g.Resign(board.White), ErrGameOver))

	g.Reset()
	assert.NotEqual(t, id, g.ID())
	assert.Equal(t, StatusPlaying, g.Status())
	assert.Equal(t, board.StartFEN, g.FEN())
	assert.Empty(t, g.History())
	assert.Equal(t, 1, g.RepetitionCount())
}

func TestUndo(t *testing.T) {
	g := New()
	id := g.ID()

	playMoves(t, g, "e2e4", "e7e5")
	afterE5 := g.FEN()
	playMoves(t, g, "g1f3")

	require.NoError(t, g.Undo(1))
	assert.Equal(t, afterE5, g.FEN())
	assert.Equal(t, board.White, g.SideToMove())
	assert.Len(t, g.History(), 2)
	assert.Equal(t, id, g.ID())

	require.NoError(t, g.Undo(5))
	assert.Equal(t, board.StartFEN, g.FEN())
	assert.Empty(t, g.History())
	assert.Equal(t, 1, g.RepetitionCount())

	assert.True(t, errors.Is(g.Undo(1), ErrNothingToUndo))
	assert.Error(t, g.Undo(0))
}

func TestUndoAfterCheckmate(t *testing.T) {
	g := New()
	playMoves(t, g, "f2f3", "e7e5", "g2g4", "d8h4")
	require.True(t, g.IsOver())

	require.NoError(t, g.Undo(1))
	assert.False(t, g.IsOver())
	assert.Equal(t, board.Black, g.SideToMove())
	assert.Equal(t, board.NoColor, g.Winner())
}

func TestFromFENRequiresKings(t *testing.T) {
	_, err := FromFEN("8/8/8/8/8/8/8/4K3 w - - 0 1")
	assert.True(t, errors.Is(err, ErrKingNotFound), "got %v", err)

	_, err = FromFEN("not a fen")
	assert.Error(t, err)
}

func TestLegalMovesFrom(t *testing.T) {
	g := New()

	assert.ElementsMatch(t,
		[]board.Square{sq(t, "f3"), sq(t, "h3")},
		g.LegalMovesFrom(sq(t, "g1")))
	assert.Empty(t, g.LegalMovesFrom(sq(t, "g8")), "not black's turn")
	assert.Empty(t, g.LegalMovesFrom(sq(t, "e4")), "empty square")

	assert.True(t, g.IsLegalMove(sq(t, "e2"), sq(t, "e4")))
	assert.False(t, g.IsLegalMove(sq(t, "e2"), sq(t, "e5")))
}
