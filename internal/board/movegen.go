package board

import "github.com/pkg/errors"

// rejection is the non-allocating reason a move failed the full legality
// test. CheckMove turns it into an error; IsLegal only compares it to accepted.
type rejection uint8

const (
	accepted rejection = iota
	rejectNoPiece
	rejectOffBoard
	rejectOwnPiece
	rejectKingTarget
	rejectShape
	rejectSelfCheck
)

func (r rejection) err(from, to Square) error {
	switch r {
	case accepted:
		return nil
	case rejectKingTarget:
		return errors.Wrapf(ErrIllegalCapture, "%s%s", from, to)
	case rejectNoPiece:
		return errors.Wrapf(ErrIllegalMove, "no piece on %s", from)
	case rejectOffBoard:
		return errors.Wrap(ErrIllegalMove, "square off the board")
	case rejectOwnPiece:
		return errors.Wrapf(ErrIllegalMove, "%s is occupied by a friendly piece", to)
	case rejectSelfCheck:
		return errors.Wrapf(ErrIllegalMove, "%s%s leaves the king in check", from, to)
	default:
		return errors.Wrapf(ErrIllegalMove, "%s cannot reach %s", from, to)
	}
}

// CheckMove runs the full legality test for the piece on from moving to to
// and explains a rejection. Side to move is not consulted.
func (p *Position) CheckMove(from, to Square) error {
	return p.check(from, to).err(from, to)
}

// IsLegal returns true if the piece on from may legally move to to.
func (p *Position) IsLegal(from, to Square) bool {
	return p.check(from, to) == accepted
}

func (p *Position) check(from, to Square) rejection {
	if !from.IsValid() || !to.IsValid() || from == to {
		return rejectOffBoard
	}
	piece := p.grid[from]
	if piece == NoPiece {
		return rejectNoPiece
	}
	c := piece.Color()
	target := p.grid[to]
	if target != NoPiece {
		if target.Color() == c {
			return rejectOwnPiece
		}
		if target.Type() == King {
			return rejectKingTarget
		}
	}
	if !p.shapeOK(piece, from, to, true) {
		return rejectShape
	}
	if p.leavesKingInCheck(from, to, c) {
		return rejectSelfCheck
	}
	return accepted
}

// leavesKingInCheck simulates the relocation on a scratch copy. An
// en passant victim is removed from the copy as well.
func (p *Position) leavesKingInCheck(from, to Square, c Color) bool {
	scratch := *p
	piece := scratch.grid[from]
	if piece.Type() == Pawn && !scratch.queenRush[c] &&
		from.Col() != to.Col() && scratch.grid[to] == NoPiece {
		scratch.grid[NewSquare(from.Row(), to.Col())] = NoPiece
	}
	scratch.grid[to] = piece
	scratch.grid[from] = NoPiece
	return scratch.InCheck(c)
}

// isCastlingMove reports whether a king's two-column step from its home
// square satisfies every castling precondition.
func (p *Position) isCastlingMove(from, to Square) bool {
	king := p.grid[from]
	c := king.Color()
	home := HomeRow(c)
	if from != NewSquare(home, 4) || to.Row() != home {
		return false
	}

	kingSide := to.Col() == 6
	if !kingSide && to.Col() != 2 {
		return false
	}
	if !p.Castling.CanCastle(c, kingSide) {
		return false
	}

	rookCol := 0
	if kingSide {
		rookCol = 7
	}
	if p.grid[NewSquare(home, rookCol)] != NewPiece(Rook, c) {
		return false
	}

	them := c.Other()
	if p.InCheck(c) {
		return false
	}

	var between, transit []int
	if kingSide {
		between = []int{5, 6}
		transit = []int{5, 6}
	} else {
		between = []int{1, 2, 3}
		transit = []int{3, 2}
	}
	for _, col := range between {
		if p.grid[NewSquare(home, col)] != NoPiece {
			return false
		}
	}
	for _, col := range transit {
		if p.SquareAttacked(NewSquare(home, col), them) {
			return false
		}
	}
	return true
}

// LegalMovesFrom returns every square the piece on sq may legally move to,
// in row-major order.
func (p *Position) LegalMovesFrom(sq Square) []Square {
	if !sq.IsValid() || p.grid[sq] == NoPiece {
		return nil
	}
	var out []Square
	for to := A8; to < NoSquare; to++ {
		if p.check(sq, to) == accepted {
			out = append(out, to)
		}
	}
	return out
}

// LegalMoves enumerates every legal move of a color by exhaustive
// from/to testing.
func (p *Position) LegalMoves(c Color) []Move {
	moves := make([]Move, 0, 64)
	for from := A8; from < NoSquare; from++ {
		piece := p.grid[from]
		if piece == NoPiece || piece.Color() != c {
			continue
		}
		for to := A8; to < NoSquare; to++ {
			if p.check(from, to) == accepted {
				moves = append(moves, NewMove(from, to))
			}
		}
	}
	return moves
}

// HasLegalMoves returns true if the color has at least one legal move.
func (p *Position) HasLegalMoves(c Color) bool {
	for from := A8; from < NoSquare; from++ {
		piece := p.grid[from]
		if piece == NoPiece || piece.Color() != c {
			continue
		}
		for to := A8; to < NoSquare; to++ {
			if p.check(from, to) == accepted {
				return true
			}
		}
	}
	return false
}

// IsCheckmate returns true if the color is in check with no legal moves.
func (p *Position) IsCheckmate(c Color) bool {
	return p.InCheck(c) && !p.HasLegalMoves(c)
}

// IsStalemate returns true if the color is not in check but has no legal moves.
func (p *Position) IsStalemate(c Color) bool {
	return !p.InCheck(c) && !p.HasLegalMoves(c)
}

// MakeMove relocates the piece on from to to and applies the side effects
// implied by the position: en passant removal, the castling rook, moved
// flags and the en passant window. It does not validate the move and does
// not change SideToMove. A pawn reaching its last row is tagged Promotion
// and left as a pawn until Promote is called.
func (p *Position) MakeMove(from, to Square) MoveRecord {
	piece := p.grid[from]
	c := piece.Color()
	rec := MoveRecord{From: from, To: to, Piece: piece, Captured: p.grid[to]}
	p.ep = 0

	if !p.queenRush[c] {
		switch piece.Type() {
		case Pawn:
			if from.Col() != to.Col() && rec.Captured == NoPiece {
				victim := NewSquare(from.Row(), to.Col())
				rec.Captured = p.grid[victim]
				rec.Special = EnPassant
				p.grid[victim] = NoPiece
			}
			if abs(to.Row()-from.Row()) == 2 {
				p.ep = int8(from.Col() + 1)
				p.epBy = c
			}
		case King:
			if to.Col()-from.Col() == 2 {
				rec.Special = CastleKingSide
				p.castleRook(c, 7, 5)
			} else if from.Col()-to.Col() == 2 {
				rec.Special = CastleQueenSide
				p.castleRook(c, 0, 3)
			}
		}
	}

	p.grid[to] = piece
	p.grid[from] = NoPiece
	p.markMoved(rec)
	if piece.Type() == Pawn && to.Row() == PromotionRow(c) {
		rec.Special = Promotion
	}
	return rec
}

// Relocate moves a piece without interpreting the move: no castling, no
// en passant, no window. Used by Teleport.
func (p *Position) Relocate(from, to Square) MoveRecord {
	piece := p.grid[from]
	rec := MoveRecord{From: from, To: to, Piece: piece, Captured: p.grid[to], Teleport: true}
	p.ep = 0
	p.grid[to] = piece
	p.grid[from] = NoPiece
	p.markMoved(rec)
	if piece.Type() == Pawn && to.Row() == PromotionRow(piece.Color()) {
		rec.Special = Promotion
	}
	return rec
}

// Promote replaces the pawn on sq with a piece of the given kind.
func (p *Position) Promote(sq Square, pt PieceType) error {
	pawn := p.PieceAt(sq)
	if pawn.Type() != Pawn {
		return errors.Wrapf(ErrIllegalMove, "no pawn to promote on %s", sq)
	}
	switch pt {
	case Knight, Bishop, Rook, Queen:
	default:
		return errors.Wrapf(ErrIllegalMove, "cannot promote to %s", pt)
	}
	p.grid[sq] = NewPiece(pt, pawn.Color())
	return nil
}

func (p *Position) castleRook(c Color, fromCol, toCol int) {
	home := HomeRow(c)
	rookFrom := NewSquare(home, fromCol)
	p.grid[NewSquare(home, toCol)] = p.grid[rookFrom]
	p.grid[rookFrom] = NoPiece
	p.Castling |= rookFlag(c, fromCol == 7)
}

// markMoved sets the moved flags a move touches: the mover's king or home
// rook, and an enemy rook captured on its home corner.
func (p *Position) markMoved(rec MoveRecord) {
	c := rec.Piece.Color()
	switch rec.Piece.Type() {
	case King:
		p.Castling |= kingFlag(c)
	case Rook:
		if flag, ok := cornerFlag(rec.From, c); ok {
			p.Castling |= flag
		}
	}
	if rec.Captured.Type() == Rook {
		if flag, ok := cornerFlag(rec.To, rec.Captured.Color()); ok {
			p.Castling |= flag
		}
	}
}

func cornerFlag(sq Square, c Color) (CastlingRights, bool) {
	if sq.Row() != HomeRow(c) {
		return 0, false
	}
	switch sq.Col() {
	case 0:
		return rookFlag(c, false), true
	case 7:
		return rookFlag(c, true), true
	}
	return 0, false
}
