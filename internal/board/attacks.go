package board

// Shape and path rules. Everything here is the attack-probe form of
// legality: it never looks at castling and never tests check-safety,
// so the attack oracle can call it without recursing.

// Reaches reports whether the piece on from could move to to by shape and
// path alone. A king on the target square is not rejected, which is what
// lets the check test ask whether a king is attacked.
func (p *Position) Reaches(from, to Square) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	piece := p.grid[from]
	if piece == NoPiece {
		return false
	}
	target := p.grid[to]
	if target != NoPiece && target.Color() == piece.Color() {
		return false
	}
	return p.shapeOK(piece, from, to, false)
}

// shapeOK dispatches on piece kind. Under Queen Rush every piece of the
// rushing color uses the queen rule.
func (p *Position) shapeOK(piece Piece, from, to Square, allowCastling bool) bool {
	c := piece.Color()
	if p.queenRush[c] {
		if piece.Type() == King && p.nextToKing(to, c.Other()) {
			return false
		}
		return p.queenMove(from, to)
	}

	switch piece.Type() {
	case Pawn:
		return p.pawnMove(from, to, c)
	case Knight:
		return knightMove(from, to)
	case Bishop:
		return p.bishopMove(from, to)
	case Rook:
		return p.rookMove(from, to)
	case Queen:
		return p.queenMove(from, to)
	case King:
		return p.kingMove(from, to, c, allowCastling)
	}
	return false
}

func (p *Position) pawnMove(from, to Square, c Color) bool {
	dir := Forward(c)
	rowDiff := to.Row() - from.Row()
	colDiff := abs(to.Col() - from.Col())
	target := p.grid[to]

	// Forward pushes
	if colDiff == 0 {
		if rowDiff == dir && target == NoPiece {
			return true
		}
		if from.Row() == PawnStartRow(c) && rowDiff == 2*dir && target == NoPiece &&
			p.grid[from.Offset(dir, 0)] == NoPiece {
			return true
		}
		return false
	}

	if colDiff != 1 || rowDiff != dir {
		return false
	}

	// Diagonal capture
	if target != NoPiece {
		return true
	}

	return p.enPassant(from, to, c)
}

// enPassant reports whether a diagonal pawn step onto an empty square
// captures an enemy pawn that advanced two squares on the immediately
// preceding move.
func (p *Position) enPassant(from, to Square, c Color) bool {
	them := c.Other()
	if p.EnPassantFile() != to.Col() || p.epBy != them {
		return false
	}
	landingRow := PawnStartRow(them) + 2*Forward(them)
	if from.Row() != landingRow {
		return false
	}
	return p.grid[NewSquare(landingRow, to.Col())] == NewPiece(Pawn, them)
}

func knightMove(from, to Square) bool {
	rowDiff := abs(from.Row() - to.Row())
	colDiff := abs(from.Col() - to.Col())
	return (rowDiff == 2 && colDiff == 1) || (rowDiff == 1 && colDiff == 2)
}

func (p *Position) rookMove(from, to Square) bool {
	if from.Row() != to.Row() && from.Col() != to.Col() {
		return false
	}
	return p.isPathClear(from, to)
}

func (p *Position) bishopMove(from, to Square) bool {
	if abs(from.Row()-to.Row()) != abs(from.Col()-to.Col()) {
		return false
	}
	return p.isPathClear(from, to)
}

func (p *Position) queenMove(from, to Square) bool {
	return p.rookMove(from, to) || p.bishopMove(from, to)
}

func (p *Position) kingMove(from, to Square, c Color, allowCastling bool) bool {
	rowDiff := abs(from.Row() - to.Row())
	colDiff := abs(from.Col() - to.Col())

	if rowDiff <= 1 && colDiff <= 1 {
		// Kings may never stand next to each other.
		return !p.nextToKing(to, c.Other())
	}

	if allowCastling && rowDiff == 0 && colDiff == 2 {
		return p.isCastlingMove(from, to)
	}
	return false
}

// nextToKing reports whether sq touches (or is) the square of c's king.
func (p *Position) nextToKing(sq Square, c Color) bool {
	k, ok := p.kingSquare(c)
	if !ok {
		return false
	}
	return abs(sq.Row()-k.Row()) <= 1 && abs(sq.Col()-k.Col()) <= 1
}

// isPathClear walks the squares strictly between from and to along a
// straight or diagonal line.
func (p *Position) isPathClear(from, to Square) bool {
	rowStep := sign(to.Row() - from.Row())
	colStep := sign(to.Col() - from.Col())
	row := from.Row() + rowStep
	col := from.Col() + colStep

	for row != to.Row() || col != to.Col() {
		if p.grid[NewSquare(row, col)] != NoPiece {
			return false
		}
		row += rowStep
		col += colStep
	}
	return true
}

// SquareAttacked reports whether any piece of color by attacks sq.
// Pawns attack diagonally whether or not the square is occupied, which is
// what the castling transit test needs.
func (p *Position) SquareAttacked(sq Square, by Color) bool {
	for from := A8; from < NoSquare; from++ {
		piece := p.grid[from]
		if piece == NoPiece || piece.Color() != by {
			continue
		}
		switch {
		case piece.Type() == Pawn && !p.queenRush[by]:
			if abs(sq.Col()-from.Col()) == 1 && sq.Row()-from.Row() == Forward(by) {
				return true
			}
			continue
		case piece.Type() == King:
			if abs(sq.Col()-from.Col()) <= 1 && abs(sq.Row()-from.Row()) <= 1 {
				return true
			}
		}
		if p.Reaches(from, sq) {
			return true
		}
	}
	return false
}

// InCheck returns true if any enemy piece reaches the king of color c.
// A board without that king is never in check.
func (p *Position) InCheck(c Color) bool {
	k, ok := p.kingSquare(c)
	if !ok {
		return false
	}
	them := c.Other()
	for from := A8; from < NoSquare; from++ {
		piece := p.grid[from]
		if piece == NoPiece || piece.Color() != them {
			continue
		}
		if p.Reaches(from, k) {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
