package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/royalchess/internal/board"
	"github.com/hailam/royalchess/internal/game"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type eventLog struct {
	game.NopSink
	moves []game.MoveEvent
}

func (e *eventLog) MoveApplied(ev game.MoveEvent) { e.moves = append(e.moves, ev) }

func setup(t *testing.T, limit time.Duration, opts ...game.Option) (*fakeClock, *Clock, *game.Game) {
	t.Helper()
	fc := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	clk := New(WithTimeSource(fc), WithLimit(limit))
	opts = append(opts, game.WithClock(fc), game.WithTimer(clk))
	return fc, clk, game.New(opts...)
}

func move(t *testing.T, g *game.Game, uci string) {
	t.Helper()
	m, _, err := board.ParseMove(uci)
	require.NoError(t, err)
	_, err = g.ApplyMove(m.From, m.To)
	require.NoError(t, err, uci)
}

func TestChargesSideToMove(t *testing.T) {
	fc, clk, g := setup(t, time.Minute)

	fc.advance(10 * time.Second)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, 50*time.Second, clk.Remaining(board.White))
	assert.Equal(t, time.Minute, clk.Remaining(board.Black))

	move(t, g, "e2e4")
	fc.advance(5 * time.Second)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, 50*time.Second, clk.Remaining(board.White))
	assert.Equal(t, 55*time.Second, clk.Remaining(board.Black))
}

func TestFreezeSuspendsDecrement(t *testing.T) {
	fc, clk, g := setup(t, time.Minute)
	require.NoError(t, g.GrantEnergy(board.White, 5))
	require.NoError(t, g.ActivatePower(board.White, game.TimeFreeze))

	fc.advance(2 * time.Minute)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, time.Minute, clk.Remaining(board.White), "frozen side keeps its time")

	// The freeze ends one minute into this interval.
	fc.advance(90 * time.Second)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, 30*time.Second, clk.Remaining(board.White))
	assert.False(t, g.IsOver())

	fc.advance(30 * time.Second)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, game.StatusTimeout, g.Status())
	assert.Equal(t, board.Black, g.Winner())
}

func TestFlagFall(t *testing.T) {
	fc, clk, g := setup(t, 30*time.Second)

	fc.advance(31 * time.Second)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, time.Duration(0), clk.Remaining(board.White))
	assert.True(t, g.IsOver())
	assert.Equal(t, game.StatusTimeout, g.Status())
	assert.Equal(t, board.Black, g.Winner())

	// Nothing is charged once the game is over.
	fc.advance(time.Minute)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, 30*time.Second, clk.Remaining(board.Black))
}

func TestMoveEventCarriesRemaining(t *testing.T) {
	events := &eventLog{}
	fc, clk, g := setup(t, time.Minute, game.WithSink(events))

	fc.advance(12 * time.Second)
	require.NoError(t, clk.Update(g))
	move(t, g, "g1f3")

	require.Len(t, events.moves, 1)
	assert.Equal(t, [2]time.Duration{48 * time.Second, time.Minute}, events.moves[0].Remaining)
}

func TestReset(t *testing.T) {
	fc, clk, g := setup(t, time.Minute)
	fc.advance(20 * time.Second)
	require.NoError(t, clk.Update(g))

	clk.Reset()
	assert.Equal(t, time.Minute, clk.Remaining(board.White))

	fc.advance(5 * time.Second)
	require.NoError(t, clk.Update(g))
	assert.Equal(t, 55*time.Second, clk.Remaining(board.White))
}

func TestRunFlagsTheGame(t *testing.T) {
	clk := New(WithLimit(50 * time.Millisecond))
	g := game.New(game.WithTimer(clk))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	require.NoError(t, clk.Run(ctx, g, 5*time.Millisecond, &mu))
	assert.Equal(t, game.StatusTimeout, g.Status())
	assert.Equal(t, board.Black, g.Winner())
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{15 * time.Minute, "15:00"},
		{61*time.Second + 900*time.Millisecond, "01:01"},
		{9 * time.Second, "00:09"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), tt.in.String())
	}
}
