package board

import "github.com/cespare/xxhash/v2"

// PositionKey identifies a position for repetition counting. Two keys are
// equal when the grid, side to move, castling state, en passant window and
// power phase all match. It is comparable and usable as a map key.
type PositionKey struct {
	Grid      [64]Piece
	Side      Color
	Castling  CastlingRights
	EnPassant int8
	PushedBy  Color
	Phase     int8
}

// Key builds the repetition key of the position. Phase distinguishes
// otherwise equal boards reached while a power is mid-effect.
func (p *Position) Key(phase int8) PositionKey {
	return PositionKey{
		Grid:      p.grid,
		Side:      p.SideToMove,
		Castling:  p.Castling,
		EnPassant: p.ep,
		PushedBy:  p.EnPassantColor(),
		Phase:     phase,
	}
}

// Hash returns a 64-bit digest of the key, used for compact logging and
// archive indexes.
func (k PositionKey) Hash() uint64 {
	var buf [64 + 5]byte
	for i, pc := range k.Grid {
		buf[i] = byte(pc)
	}
	buf[64] = byte(k.Side)
	buf[65] = byte(k.Castling)
	buf[66] = byte(k.EnPassant)
	buf[67] = byte(k.PushedBy)
	buf[68] = byte(k.Phase)
	return xxhash.Sum64(buf[:])
}

