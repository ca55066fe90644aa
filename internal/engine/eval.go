// Package engine implements the chess AI: a fixed-depth minimax search with
// alpha-beta pruning over board.Position.
package engine

import (
	"github.com/hailam/royalchess/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 10
	KnightValue = 30
	BishopValue = 30
	RookValue   = 50
	QueenValue  = 90
	KingValue   = 900
)

// Piece values array for quick lookup
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// pawnAdvanceBonus is awarded per row a pawn has travelled from its start row.
const pawnAdvanceBonus = 2

// pawnRaceBonus adds to that, indexed by rows travelled plus one, so pawns
// close to promotion weigh more. A pawn pushed back behind its start row
// (teleport) lands on index 0.
var pawnRaceBonus = [8]int{0, 0, 1, 2, 4, 6, 10, 0}

// Evaluate returns the static score of a position. Positive favours black,
// negative favours white. It looks only at the pieces on the board.
func Evaluate(pos *board.Position) int {
	score := 0
	for sq := board.A8; sq < board.NoSquare; sq++ {
		piece := pos.PieceAt(sq)
		if piece == board.NoPiece {
			continue
		}
		v := pieceValue(piece, sq)
		if piece.Color() == board.White {
			score -= v
		} else {
			score += v
		}
	}
	return score
}

func pieceValue(piece board.Piece, sq board.Square) int {
	pt := piece.Type()
	v := pieceValues[pt]

	switch pt {
	case board.Pawn:
		c := piece.Color()
		travelled := (sq.Row() - board.PawnStartRow(c)) * board.Forward(c)
		v += pawnAdvanceBonus * travelled
		if i := travelled + 1; i >= 0 && i < len(pawnRaceBonus) {
			v += pawnRaceBonus[i]
		}
	case board.Knight, board.Bishop:
		v += centerProximity(sq)
	}
	return v
}

// centerProximity is 0 on the rim and 6 on the four central squares.
func centerProximity(sq board.Square) int {
	r, c := sq.Row(), sq.Col()
	return min(r, 7-r) + min(c, 7-c)
}
