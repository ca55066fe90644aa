package game

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailam/royalchess/internal/board"
)

// Power is a temporary rule override bought with energy.
type Power uint8

const (
	QueenRush Power = iota
	DoubleTurn
	Teleport
	TimeFreeze
	numPowers
)

const (
	// MaxEnergy caps each side's energy.
	MaxEnergy = 5

	// FreezeDuration is how long Time Freeze suspends the activator's clock.
	FreezeDuration = 3 * time.Minute
)

var powerCosts = [numPowers]int{
	QueenRush:  3,
	DoubleTurn: 4,
	Teleport:   5,
	TimeFreeze: 5,
}

var powerNames = [numPowers]string{
	QueenRush:  "queen-rush",
	DoubleTurn: "double-turn",
	Teleport:   "teleport",
	TimeFreeze: "time-freeze",
}

// Powers lists every power in activation-menu order.
func Powers() []Power {
	return []Power{QueenRush, DoubleTurn, Teleport, TimeFreeze}
}

// Cost returns the energy price of the power.
func (p Power) Cost() int {
	if p >= numPowers {
		return 0
	}
	return powerCosts[p]
}

func (p Power) String() string {
	if p >= numPowers {
		return "unknown"
	}
	return powerNames[p]
}

// ParsePower accepts "queen-rush", "queenrush", "queen_rush" and friends.
func ParsePower(s string) (Power, error) {
	norm := strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(strings.TrimSpace(s)))
	for p, name := range powerNames {
		if norm == name || norm == strings.ReplaceAll(name, "-", "") {
			return Power(p), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownPower, "%q", s)
}

// doubleTurnState counts moves made under an active Double Turn.
type doubleTurnState struct {
	active bool
	moves  int
}

// EnergyOf returns the energy held by a color.
func (g *Game) EnergyOf(c board.Color) int {
	if c >= board.NoColor {
		return 0
	}
	return g.energy[c]
}

// CanActivate reports whether ActivatePower would succeed right now.
func (g *Game) CanActivate(c board.Color, p Power) bool {
	return g.checkActivation(c, p) == nil
}

// IsPowerActive reports whether a power is currently in effect for a color.
// Time Freeze counts as active until its expiry passes.
func (g *Game) IsPowerActive(c board.Color, p Power) bool {
	if c >= board.NoColor {
		return false
	}
	switch p {
	case QueenRush:
		return g.pos.QueenRush(c)
	case DoubleTurn:
		return g.doubleTurn.active && g.pos.SideToMove == c
	case Teleport:
		return g.teleport && g.pos.SideToMove == c
	case TimeFreeze:
		return g.IsFrozen(c)
	}
	return false
}

// ActivePowers returns the powers in effect for a color.
func (g *Game) ActivePowers(c board.Color) []Power {
	var out []Power
	for _, p := range Powers() {
		if g.IsPowerActive(c, p) {
			out = append(out, p)
		}
	}
	return out
}

func (g *Game) checkActivation(c board.Color, p Power) error {
	if err := g.acceptingInput(); err != nil {
		return err
	}
	if p >= numPowers {
		return errors.Wrapf(ErrUnknownPower, "power %d", p)
	}
	if c != g.pos.SideToMove {
		return errors.Wrapf(ErrNotYourTurn, "%s cannot activate %s", c, p)
	}
	if have, cost := g.energy[c], p.Cost(); have < cost {
		return errors.Wrapf(ErrInsufficientEnergy, "%s costs %d, %s has %d", p, cost, c, have)
	}
	if p != TimeFreeze && g.IsPowerActive(c, p) {
		return errors.Wrapf(ErrPowerActive, "%s", p)
	}
	return nil
}

// ActivatePower spends energy and switches a power on for the side to
// move. A refused activation leaves the game untouched.
func (g *Game) ActivatePower(c board.Color, p Power) error {
	if err := g.checkActivation(c, p); err != nil {
		return err
	}

	g.energy[c] -= p.Cost()
	act := action{kind: actionPower, color: c, power: p}

	switch p {
	case QueenRush:
		g.pos.SetQueenRush(c, true)
	case DoubleTurn:
		g.doubleTurn = doubleTurnState{active: true}
	case Teleport:
		g.teleport = true
	case TimeFreeze:
		g.frozenUntil[c] = g.clock.Now().Add(FreezeDuration)
		act.at = g.frozenUntil[c]
	}

	g.stats[c].PowersUsed++
	g.journal = append(g.journal, act)

	g.log.Debug("power activated",
		zap.String("game", g.id),
		zap.Stringer("color", c),
		zap.Stringer("power", p),
		zap.Int("energy", g.energy[c]))

	g.sink.PowerActivated(c, p)
	g.sink.EnergyChanged(c, g.energy[c])
	return nil
}

// GrantEnergy credits energy outside of captures, for handicaps and
// scenario setup. It is journaled so Undo reproduces it.
func (g *Game) GrantEnergy(c board.Color, n int) error {
	if g.status != StatusPlaying {
		return errors.Wrapf(ErrGameOver, "%s", g.status)
	}
	if c >= board.NoColor {
		return errors.Errorf("invalid color %d", c)
	}
	g.journal = append(g.journal, action{kind: actionGrant, color: c, amount: n})
	g.addEnergy(c, n)
	return nil
}

// addEnergy credits a color, clamped to [0, MaxEnergy].
func (g *Game) addEnergy(c board.Color, n int) {
	e := g.energy[c] + n
	if e > MaxEnergy {
		e = MaxEnergy
	}
	if e < 0 {
		e = 0
	}
	if e == g.energy[c] {
		return
	}
	g.energy[c] = e
	g.sink.EnergyChanged(c, e)
}

// FrozenUntil returns the Time Freeze expiry of a color, zero if never frozen.
func (g *Game) FrozenUntil(c board.Color) time.Time {
	if c >= board.NoColor {
		return time.Time{}
	}
	return g.frozenUntil[c]
}

// IsFrozen reports whether a color's clock is suspended at the current time.
func (g *Game) IsFrozen(c board.Color) bool {
	if c >= board.NoColor {
		return false
	}
	return g.clock.Now().Before(g.frozenUntil[c])
}

// checkTeleport validates a teleport relocation: any destination that is
// not friendly, never the enemy king, a king never next to the enemy king,
// and never leaving the mover's own king attacked.
func (g *Game) checkTeleport(from, to board.Square) error {
	if !from.IsValid() || !to.IsValid() || from == to {
		return errors.Wrapf(ErrIllegalMove, "teleport %s to %s", from, to)
	}
	piece := g.pos.PieceAt(from)
	c := piece.Color()
	target := g.pos.PieceAt(to)
	if target != board.NoPiece {
		if target.Color() == c {
			return errors.Wrapf(ErrIllegalMove, "%s is occupied by a friendly piece", to)
		}
		if target.Type() == board.King {
			return errors.Wrapf(ErrIllegalCapture, "teleport onto %s", to)
		}
	}
	if piece.Type() == board.King {
		enemy, err := g.pos.FindKing(c.Other())
		if err != nil {
			return err
		}
		if dist(to, enemy) <= 1 {
			return errors.Wrap(ErrIllegalMove, "king cannot teleport next to the enemy king")
		}
	}

	scratch := *g.pos
	scratch.Relocate(from, to)
	if scratch.InCheck(c) {
		return errors.Wrapf(ErrIllegalMove, "teleport %s%s leaves the king in check", from, to)
	}
	return nil
}

func dist(a, b board.Square) int {
	dr := a.Row() - b.Row()
	if dr < 0 {
		dr = -dr
	}
	dc := a.Col() - b.Col()
	if dc < 0 {
		dc = -dc
	}
	if dr > dc {
		return dr
	}
	return dc
}
