package board

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Errors reported by the board and legality layer.
var (
	ErrIllegalMove    = errors.New("illegal move")
	ErrIllegalCapture = errors.New("illegal capture: a king cannot be captured")
	ErrKingNotFound   = errors.New("king not found")
)

// CastlingRights records which castling pieces have moved.
// Flags only ever flip from unset to set during a game.
type CastlingRights uint8

const (
	WhiteKingMoved CastlingRights = 1 << iota
	WhiteRookAMoved
	WhiteRookHMoved
	BlackKingMoved
	BlackRookAMoved
	BlackRookHMoved
	NothingMoved CastlingRights = 0
)

func kingFlag(c Color) CastlingRights {
	if c == White {
		return WhiteKingMoved
	}
	return BlackKingMoved
}

func rookFlag(c Color, kingSide bool) CastlingRights {
	switch {
	case c == White && kingSide:
		return WhiteRookHMoved
	case c == White:
		return WhiteRookAMoved
	case kingSide:
		return BlackRookHMoved
	default:
		return BlackRookAMoved
	}
}

// KingMoved reports whether the king of the given color has moved.
func (cr CastlingRights) KingMoved(c Color) bool {
	return cr&kingFlag(c) != 0
}

// RookMoved reports whether the a-rook (kingSide=false) or h-rook has moved.
func (cr CastlingRights) RookMoved(c Color, kingSide bool) bool {
	return cr&rookFlag(c, kingSide) != 0
}

// CanCastle returns true if neither the king nor the relevant rook has moved.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	return !cr.KingMoved(c) && !cr.RookMoved(c, kingSide)
}

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	var sb strings.Builder
	if cr.CanCastle(White, true) {
		sb.WriteByte('K')
	}
	if cr.CanCastle(White, false) {
		sb.WriteByte('Q')
	}
	if cr.CanCastle(Black, true) {
		sb.WriteByte('k')
	}
	if cr.CanCastle(Black, false) {
		sb.WriteByte('q')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// Position is the board plus the auxiliary state the legality rules read.
// It holds no slices or pointers, so assigning a Position yields an
// independent scratch copy.
type Position struct {
	grid [64]Piece

	// SideToMove is owned by the game state machine; the legality rules
	// decide by piece color, not by whose turn it is.
	SideToMove Color
	Castling   CastlingRights

	// ep is the file+1 of a pawn that just advanced two squares, 0 if none.
	// epBy is the color of that pawn; only it can be taken en passant.
	ep   int8
	epBy Color

	// queenRush marks a color whose pieces all move like queens.
	queenRush [2]bool
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// EmptyPosition returns a board with no pieces, white to move.
func EmptyPosition() *Position {
	return &Position{SideToMove: White}
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	if !sq.IsValid() {
		return NoPiece
	}
	return p.grid[sq]
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.PieceAt(sq) == NoPiece
}

// EnPassantFile returns the column of a pawn that just made a two-square
// push, or -1.
func (p *Position) EnPassantFile() int {
	return int(p.ep) - 1
}

// EnPassantColor returns the color of the pawn that opened the en passant
// window, or NoColor when there is none.
func (p *Position) EnPassantColor() Color {
	if p.ep == 0 {
		return NoColor
	}
	return p.epBy
}

// QueenRush reports whether Queen Rush is active for the color.
func (p *Position) QueenRush(c Color) bool {
	return c < NoColor && p.queenRush[c]
}

// SetQueenRush switches the Queen Rush shape override for a color.
func (p *Position) SetQueenRush(c Color, active bool) {
	if c < NoColor {
		p.queenRush[c] = active
	}
}

// put places a piece on a square, replacing what was there.
func (p *Position) put(sq Square, piece Piece) {
	p.grid[sq] = piece
}

// kingSquare scans for the king of the given color.
func (p *Position) kingSquare(c Color) (Square, bool) {
	king := NewPiece(King, c)
	for sq := A8; sq < NoSquare; sq++ {
		if p.grid[sq] == king {
			return sq, true
		}
	}
	return NoSquare, false
}

// FindKing returns the square of the king of the given color.
func (p *Position) FindKing(c Color) (Square, error) {
	sq, ok := p.kingSquare(c)
	if !ok {
		return NoSquare, errors.Wrapf(ErrKingNotFound, "%s king", c)
	}
	return sq, nil
}

// Squares returns the occupied squares of a color in row-major order.
func (p *Position) Squares(c Color) []Square {
	var out []Square
	for sq := A8; sq < NoSquare; sq++ {
		if p.grid[sq] != NoPiece && p.grid[sq].Color() == c {
			out = append(out, sq)
		}
	}
	return out
}

// Count returns the number of pieces on the board.
func (p *Position) Count() int {
	n := 0
	for _, pc := range p.grid {
		if pc != NoPiece {
			n++
		}
	}
	return n
}

// Validate checks that each side has exactly one king.
func (p *Position) Validate() error {
	for c := White; c <= Black; c++ {
		king := NewPiece(King, c)
		n := 0
		for _, pc := range p.grid {
			if pc == king {
				n++
			}
		}
		if n == 0 {
			return errors.Wrapf(ErrKingNotFound, "%s king", c)
		}
		if n > 1 {
			return fmt.Errorf("%s has %d kings", c, n)
		}
	}
	return nil
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	s := "\n"
	for row := 0; row < 8; row++ {
		s += fmt.Sprintf("%d  ", 8-row)
		for col := 0; col < 8; col++ {
			piece := p.grid[NewSquare(row, col)]
			if piece == NoPiece {
				s += ". "
			} else {
				s += piece.String() + " "
			}
		}
		s += "\n"
	}
	s += "\n   a b c d e f g h\n\n"
	s += fmt.Sprintf("Side to move: %s\n", p.SideToMove)
	s += fmt.Sprintf("Castling: %s\n", p.Castling)
	if f := p.EnPassantFile(); f >= 0 {
		s += fmt.Sprintf("En passant file: %c\n", 'a'+f)
	}
	return s
}
