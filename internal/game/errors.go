package game

import (
	"github.com/pkg/errors"

	"github.com/hailam/royalchess/internal/board"
)

// Errors reported by the state machine. Legality failures reuse the board
// sentinels so callers can match either layer with errors.Is.
var (
	ErrIllegalMove        = board.ErrIllegalMove
	ErrIllegalCapture     = board.ErrIllegalCapture
	ErrKingNotFound       = board.ErrKingNotFound
	ErrInsufficientEnergy = errors.New("insufficient energy")
	ErrPromotionRequired  = errors.New("promotion required")
	ErrNoPromotionPending = errors.New("no promotion pending")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrGameOver           = errors.New("game is over")
	ErrPowerActive        = errors.New("power already active")
	ErrUnknownPower       = errors.New("unknown power")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrNothingToUndo      = errors.New("nothing to undo")
)
