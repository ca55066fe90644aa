package board

import "strings"

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseColor parses "white"/"black" (or "w"/"b").
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(s) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return NoColor, false
	}
}

// PieceType represents the type of a chess piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Char returns the FEN character for the piece type (lowercase).
func (pt PieceType) Char() byte {
	chars := []byte{'p', 'n', 'b', 'r', 'q', 'k', ' '}
	if pt > NoPieceType {
		return ' '
	}
	return chars[pt]
}

// ParsePieceType accepts a FEN letter or a full name ("q", "queen").
func ParsePieceType(s string) (PieceType, bool) {
	switch strings.ToLower(s) {
	case "p", "pawn":
		return Pawn, true
	case "n", "knight":
		return Knight, true
	case "b", "bishop":
		return Bishop, true
	case "r", "rook":
		return Rook, true
	case "q", "queen":
		return Queen, true
	case "k", "king":
		return King, true
	default:
		return NoPieceType, false
	}
}

// Piece combines PieceType and Color into a single value.
// Encoded as: 1 + pieceType + color*6, so the zero value is an empty square.
type Piece uint8

const (
	NoPiece     Piece = 0
	WhitePawn   Piece = 1 + Piece(Pawn) + Piece(White)*6
	WhiteKnight Piece = 1 + Piece(Knight) + Piece(White)*6
	WhiteBishop Piece = 1 + Piece(Bishop) + Piece(White)*6
	WhiteRook   Piece = 1 + Piece(Rook) + Piece(White)*6
	WhiteQueen  Piece = 1 + Piece(Queen) + Piece(White)*6
	WhiteKing   Piece = 1 + Piece(King) + Piece(White)*6
	BlackPawn   Piece = 1 + Piece(Pawn) + Piece(Black)*6
	BlackKnight Piece = 1 + Piece(Knight) + Piece(Black)*6
	BlackBishop Piece = 1 + Piece(Bishop) + Piece(Black)*6
	BlackRook   Piece = 1 + Piece(Rook) + Piece(Black)*6
	BlackQueen  Piece = 1 + Piece(Queen) + Piece(Black)*6
	BlackKing   Piece = 1 + Piece(King) + Piece(Black)*6
)

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return 1 + Piece(pt) + Piece(c)*6
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p == NoPiece || p > BlackKing {
		return NoPieceType
	}
	return PieceType((p - 1) % 6)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p == NoPiece || p > BlackKing {
		return NoColor
	}
	return Color((p - 1) / 6)
}

// String returns the FEN character for the piece.
// Uppercase for white, lowercase for black.
func (p Piece) String() string {
	if p == NoPiece || p > BlackKing {
		return " "
	}
	chars := "PNBRQKpnbrqk"
	return string(chars[p-1])
}

// PieceFromChar converts a FEN character to a Piece.
func PieceFromChar(c byte) Piece {
	i := strings.IndexByte("PNBRQKpnbrqk", c)
	if i < 0 {
		return NoPiece
	}
	return Piece(i + 1)
}
