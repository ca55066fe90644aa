package game

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailam/royalchess/internal/board"
)

type actionKind uint8

const (
	actionMove actionKind = iota
	actionPromote
	actionPower
	actionResign
	actionGrant
)

// action is one journal entry. Replaying the journal on the start position
// rebuilds the game exactly.
type action struct {
	kind    actionKind
	color   board.Color
	from    board.Square
	to      board.Square
	promote board.PieceType
	power   Power
	amount  int
	at      time.Time // Time Freeze expiry
}

// Undo takes back the last n completed moves by replaying the journal on a
// fresh copy of the start position. A move waiting for its promotion choice
// counts as one. A power bought just before an undone move stays active,
// a resignation is withdrawn, and the game id is kept.
func (g *Game) Undo(n int) error {
	if n <= 0 {
		return errors.Errorf("undo count must be positive, got %d", n)
	}

	cut := len(g.journal)
	for undone := 0; undone < n; {
		i := lastMoveIndex(g.journal[:cut])
		if i < 0 {
			if undone == 0 {
				return ErrNothingToUndo
			}
			break
		}
		cut = i
		undone++
	}

	replayed, err := g.replay(g.journal[:cut])
	if err != nil {
		return errors.Wrap(err, "replay journal")
	}

	g.pos = replayed.pos
	g.history = replayed.history
	g.notes = replayed.notes
	g.ledger = replayed.ledger
	g.journal = replayed.journal
	g.energy = replayed.energy
	g.doubleTurn = replayed.doubleTurn
	g.teleport = replayed.teleport
	g.frozenUntil = replayed.frozenUntil
	g.pending = replayed.pending
	g.hasPending = replayed.hasPending
	g.status = replayed.status
	g.winner = replayed.winner
	g.stats = replayed.stats
	g.captured = replayed.captured

	g.log.Info("moves taken back",
		zap.String("game", g.id),
		zap.Int("plies", n),
		zap.Int("history", len(g.history)))

	for c := board.White; c <= board.Black; c++ {
		g.sink.EnergyChanged(c, g.energy[c])
	}
	return nil
}

// lastMoveIndex returns the index of the last move in the journal, or -1.
func lastMoveIndex(journal []action) int {
	for i := len(journal) - 1; i >= 0; i-- {
		if journal[i].kind == actionMove {
			return i
		}
	}
	return -1
}

// replay builds a silent game from the start position and the given actions.
func (g *Game) replay(journal []action) (*Game, error) {
	r, err := FromFEN(g.startFEN,
		WithID(g.id),
		WithClock(g.clock))
	if err != nil {
		return nil, err
	}

	for _, a := range journal {
		switch a.kind {
		case actionMove:
			_, err = r.ApplyMove(a.from, a.to)
		case actionPromote:
			_, err = r.ResolvePromotion(a.promote)
		case actionPower:
			err = r.ActivatePower(a.color, a.power)
			if err == nil && a.power == TimeFreeze {
				r.frozenUntil[a.color] = a.at
				r.journal[len(r.journal)-1].at = a.at
			}
		case actionResign:
			err = r.Resign(a.color)
		case actionGrant:
			err = r.GrantEnergy(a.color, a.amount)
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}
