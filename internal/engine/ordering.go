package engine

import (
	"slices"

	"github.com/hailam/royalchess/internal/board"
)

// captureOrder ranks the captured piece type. Quiet moves score 0.
var captureOrder = [7]int{
	board.Pawn:        1,
	board.Knight:      3,
	board.Bishop:      3,
	board.Rook:        5,
	board.Queen:       10,
	board.King:        0,
	board.NoPieceType: 0,
}

// moveValue scores m for ordering by what it captures.
func moveValue(pos *board.Position, m board.Move) int {
	target := pos.PieceAt(m.To)
	if target == board.NoPiece {
		return 0
	}
	return captureOrder[target.Type()]
}

// orderMoves sorts captures of valuable pieces first. Ties keep generation
// order, so the search is deterministic.
func orderMoves(pos *board.Position, moves []board.Move) {
	slices.SortStableFunc(moves, func(a, b board.Move) int {
		return moveValue(pos, b) - moveValue(pos, a)
	})
}
