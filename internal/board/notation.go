package board

import "strings"

// Notation renders a recorded move as long algebraic notation
// ("Ng1-f3", "e4xd5", "e7-e8=Q", "O-O"). Check and mate suffixes depend on
// the resulting position and are appended by the caller.
func (r MoveRecord) Notation() string {
	switch r.Special {
	case CastleKingSide:
		return "O-O"
	case CastleQueenSide:
		return "O-O-O"
	}

	var sb strings.Builder
	if r.Teleport {
		sb.WriteByte('@')
	}

	if pt := r.Piece.Type(); pt != Pawn && pt < NoPieceType {
		sb.WriteByte("PNBRQK"[pt])
	}
	sb.WriteString(r.From.String())
	if r.IsCapture() {
		sb.WriteByte('x')
	} else {
		sb.WriteByte('-')
	}
	sb.WriteString(r.To.String())

	if r.Special == EnPassant {
		sb.WriteString(" e.p.")
	}
	if r.Special == Promotion && r.PromoteTo != NoPieceType && r.PromoteTo != Pawn {
		sb.WriteByte('=')
		sb.WriteByte("PNBRQK"[r.PromoteTo])
	}
	return sb.String()
}

// CheckSuffix returns "#" if the color is mated, "+" if it is in check,
// and "" otherwise.
func (p *Position) CheckSuffix(c Color) string {
	if !p.InCheck(c) {
		return ""
	}
	if !p.HasLegalMoves(c) {
		return "#"
	}
	return "+"
}
