package board

import (
	"fmt"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position.
// Move counters are accepted but ignored.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	pos := EmptyPosition()

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	// Parse castling rights (field 2)
	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	// Parse en passant square (field 3)
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		pos.ep = int8(sq.Col() + 1)
		// The square behind a black pawn is on rank 6.
		pos.epBy = White
		if sq.Row() == 2 {
			pos.epBy = Black
		}
	}

	return pos, nil
}

// parsePiecePlacement parses the piece placement field of a FEN string.
// FEN lists rank 8 first, which is row 0 here.
func parsePiecePlacement(pos *Position, placement string) error {
	rows := strings.Split(placement, "/")
	if len(rows) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(rows))
	}

	for row, rank := range rows {
		col := 0
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			if c >= '1' && c <= '8' {
				col += int(c - '0')
				continue
			}
			piece := PieceFromChar(c)
			if piece == NoPiece {
				return fmt.Errorf("invalid piece character: %c", c)
			}
			if col > 7 {
				return fmt.Errorf("too many squares in rank %d", 8-row)
			}
			pos.put(NewSquare(row, col), piece)
			col++
		}
		if col != 8 {
			return fmt.Errorf("rank %d has %d squares", 8-row, col)
		}
	}
	return nil
}

// parseCastlingRights turns "KQkq" availability into moved flags.
// A missing letter marks the corresponding rook as moved.
func parseCastlingRights(pos *Position, castling string) error {
	cr := WhiteRookAMoved | WhiteRookHMoved | BlackRookAMoved | BlackRookHMoved
	if castling == "-" {
		pos.Castling = cr
		return nil
	}
	for i := 0; i < len(castling); i++ {
		switch castling[i] {
		case 'K':
			cr &^= WhiteRookHMoved
		case 'Q':
			cr &^= WhiteRookAMoved
		case 'k':
			cr &^= BlackRookHMoved
		case 'q':
			cr &^= BlackRookAMoved
		default:
			return fmt.Errorf("invalid castling character: %c", castling[i])
		}
	}
	pos.Castling = cr
	return nil
}

// FEN returns the FEN string of the position.
func (p *Position) FEN() string {
	var sb strings.Builder

	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			piece := p.grid[NewSquare(row, col)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}

	if p.SideToMove == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}
	sb.WriteString(p.Castling.String())

	// The capture square sits behind the pawn that just moved two squares.
	if f := p.EnPassantFile(); f >= 0 {
		row := 2
		if p.epBy == White {
			row = 5
		}
		sb.WriteString(" " + NewSquare(row, f).String())
	} else {
		sb.WriteString(" -")
	}
	sb.WriteString(" 0 1")
	return sb.String()
}
