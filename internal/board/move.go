package board

import "fmt"

// Move is a relocation request: a piece on From goes to To.
// Castling, en passant and promotion are implied by the position.
type Move struct {
	From Square
	To   Square
}

// NoMove represents an invalid or null move.
var NoMove = Move{From: NoSquare, To: NoSquare}

// NewMove creates a move.
func NewMove(from, to Square) Move {
	return Move{From: from, To: to}
}

// String returns the coordinate form of the move (e.g., "e2e4").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	return m.From.String() + m.To.String()
}

// ParseMove parses a coordinate move ("e2e4" or "e2-e4").
// A trailing promotion letter ("e7e8q") is returned separately.
func ParseMove(s string) (Move, PieceType, error) {
	if len(s) == 5 && (s[2] == '-' || s[2] == 'x') {
		s = s[:2] + s[3:]
	}
	if len(s) < 4 || len(s) > 5 {
		return NoMove, NoPieceType, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, NoPieceType, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, NoPieceType, err
	}

	promo := NoPieceType
	if len(s) == 5 {
		pt, ok := ParsePieceType(s[4:])
		if !ok || pt == Pawn || pt == King {
			return NoMove, NoPieceType, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		promo = pt
	}
	return NewMove(from, to), promo, nil
}

// Special tags the rule a recorded move exercised.
type Special uint8

const (
	SpecialNone Special = iota
	CastleKingSide
	CastleQueenSide
	EnPassant
	Promotion
)

// String returns the tag name.
func (s Special) String() string {
	switch s {
	case CastleKingSide:
		return "castle-kingside"
	case CastleQueenSide:
		return "castle-queenside"
	case EnPassant:
		return "en-passant"
	case Promotion:
		return "promotion"
	default:
		return "none"
	}
}

// MoveRecord is one entry of the append-only move history.
type MoveRecord struct {
	From      Square
	To        Square
	Piece     Piece
	Captured  Piece
	Special   Special
	PromoteTo PieceType // set when Special == Promotion and resolved
	Teleport  bool
}

// Move returns the from/to pair of the record.
func (r MoveRecord) Move() Move {
	return NewMove(r.From, r.To)
}

// IsCapture returns true if the move removed an enemy piece.
func (r MoveRecord) IsCapture() bool {
	return r.Captured != NoPiece
}

// Edit is a reversible in-place relocation used for lookahead.
// It moves exactly one piece and remembers what it displaced; it never
// touches castling rights, en passant state or promotion.
type Edit struct {
	From     Square
	To       Square
	Moved    Piece
	Captured Piece
}

// Do applies a virtual move and returns the edit needed to undo it.
func (p *Position) Do(m Move) Edit {
	e := Edit{
		From:     m.From,
		To:       m.To,
		Moved:    p.grid[m.From],
		Captured: p.grid[m.To],
	}
	p.grid[m.To] = e.Moved
	p.grid[m.From] = NoPiece
	return e
}

// Undo restores the squares touched by an Edit.
func (p *Position) Undo(e Edit) {
	p.grid[e.From] = e.Moved
	p.grid[e.To] = e.Captured
}
