// Package clock drives per-side game clocks. Time is charged to the side to
// move except while that side is under Time Freeze, and a clock that runs
// out flags the game.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailam/royalchess/internal/board"
	"github.com/hailam/royalchess/internal/game"
)

// DefaultLimit is the starting time of each side.
const DefaultLimit = 15 * time.Minute

// Game is the part of a game the clock reads and flags.
type Game interface {
	SideToMove() board.Color
	FrozenUntil(c board.Color) time.Time
	IsOver() bool
	Flag(c board.Color) error
}

// Clock keeps the remaining time of both sides. It implements game.Timer.
type Clock struct {
	mu        sync.Mutex
	limit     time.Duration
	remaining [2]time.Duration
	last      time.Time
	now       game.Clock
	log       *zap.Logger
}

// Option configures a Clock.
type Option func(*Clock)

// WithLimit sets the starting time of each side.
func WithLimit(d time.Duration) Option {
	return func(c *Clock) { c.limit = d }
}

// WithTimeSource sets the time source. It must be the same source the game
// uses for Time Freeze expiry.
func WithTimeSource(src game.Clock) Option {
	return func(c *Clock) { c.now = src }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Clock) { c.log = l }
}

// New creates a clock. It starts running at creation.
func New(opts ...Option) *Clock {
	c := &Clock{
		limit: DefaultLimit,
		now:   game.ClockFunc(time.Now),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset gives both sides the full limit again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = [2]time.Duration{c.limit, c.limit}
	c.last = c.now.Now()
}

// Remaining returns the time left for a color.
func (c *Clock) Remaining(color board.Color) time.Duration {
	if color >= board.NoColor {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining[color]
}

// Update charges the time since the previous update to the side to move of
// g, leaving out any part of it covered by that side's freeze. When the
// side runs out it is flagged. Call it before applying input to g so the
// mover pays for its own thinking time.
func (c *Clock) Update(g Game) error {
	c.mu.Lock()
	now := c.now.Now()
	since := c.last
	c.last = now
	if g.IsOver() {
		c.mu.Unlock()
		return nil
	}

	side := g.SideToMove()
	if frozen := g.FrozenUntil(side); frozen.After(since) {
		since = frozen
	}
	if now.After(since) {
		c.remaining[side] -= now.Sub(since)
	}
	out := c.remaining[side] <= 0
	if out {
		c.remaining[side] = 0
	}
	c.mu.Unlock()

	if !out {
		return nil
	}
	c.log.Info("flag fell", zap.Stringer("color", side))
	return errors.Wrapf(g.Flag(side), "flag %s", side)
}

// Run calls Update every interval until ctx is done or g is over. mu, when
// not nil, is held around each update so callers can serialize access to g.
func (c *Clock) Run(ctx context.Context, g Game, interval time.Duration, mu sync.Locker) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if mu != nil {
			mu.Lock()
		}
		err := c.Update(g)
		over := g.IsOver()
		if mu != nil {
			mu.Unlock()
		}
		if err != nil {
			return err
		}
		if over {
			return nil
		}
	}
}

// Format renders a duration as mm:ss, rounding down to whole seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
