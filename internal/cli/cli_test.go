package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/royalchess/internal/board"
	"github.com/hailam/royalchess/internal/game"
	"github.com/hailam/royalchess/internal/storage"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func humans() Config {
	return Config{AI: board.NoColor}
}

func run(t *testing.T, s *Session, out *bytes.Buffer, script ...string) string {
	t.Helper()
	out.Reset()
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	require.NoError(t, s.Run(context.Background(), in))
	return out.String()
}

func TestTwoHumans(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)

	got := run(t, s, &out, "e2e4", "move e7-e5", "g1f3", "history", "fen", "quit", "d2d4")
	assert.Contains(t, got, "white e2-e4\n")
	assert.Contains(t, got, "black e7-e5\n")
	assert.Contains(t, got, "white Ng1-f3\n")
	assert.Contains(t, got, "1st e2-e4\n")
	assert.Contains(t, got, "3rd Ng1-f3\n")
	assert.Contains(t, got, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq")
	assert.NotContains(t, got, "d2-d4", "nothing runs after quit")
	assert.Len(t, s.Game().History(), 3)
}

func TestFoolsMate(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)

	got := run(t, s, &out, "f2f3", "e7e5", "g2g4", "d8h4", "e2e4")
	assert.Contains(t, got, "black Qd8-h4#\n")
	assert.Contains(t, got, "game over: black wins by checkmate\n")
	assert.Contains(t, got, "error: checkmate: game is over")
	assert.Equal(t, game.StatusCheckmate, s.Game().Status())
}

func TestRejectedInput(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)

	assert.Error(t, s.Execute("e2e5"))
	assert.Error(t, s.Execute("frobnicate"))
	assert.Error(t, s.Execute("power nuke"))
	assert.Error(t, s.Execute("power queen-rush"), "no energy yet")
	assert.Error(t, s.Execute("go zero"))
	assert.Contains(t, out.String(), `error: unknown command "frobnicate"`)
	assert.Empty(t, s.Game().History())
}

func TestEngineReplies(t *testing.T) {
	var out bytes.Buffer
	s := New(Config{AI: board.Black, Depth: 1}, &out)

	got := run(t, s, &out, "e2e4")
	assert.Contains(t, got, "white e2-e4\n")
	assert.Contains(t, got, "\nblack ")
	assert.Equal(t, board.White, s.Game().SideToMove())
	assert.Len(t, s.Game().History(), 2)

	require.NoError(t, s.Execute("undo"))
	assert.Empty(t, s.Game().History(), "undo takes back the engine reply too")
	assert.Equal(t, board.White, s.Game().SideToMove())
}

func TestEnginePlaysWhite(t *testing.T) {
	var out bytes.Buffer
	s := New(Config{AI: board.White, Depth: 1}, &out)

	run(t, s, &out)
	assert.Len(t, s.Game().History(), 1)
	assert.Equal(t, board.Black, s.Game().SideToMove())
}

func TestGoAndHint(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)

	require.NoError(t, s.Execute("hint 1"))
	assert.True(t, strings.HasPrefix(out.String(), "bestmove "), out.String())
	assert.Empty(t, s.Game().History())

	require.NoError(t, s.Execute("go 1"))
	assert.Len(t, s.Game().History(), 1)
	assert.Equal(t, board.Black, s.Game().SideToMove())
}

func TestPromotion(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)

	require.NoError(t, s.Execute("new fen 4k3/P7/8/8/8/8/8/4K3 w - - 0 1"))
	require.NoError(t, s.Execute("a7a8"))
	assert.Contains(t, out.String(), "promote: choose q, r, b or n")

	assert.Error(t, s.Execute("e8d8"), "input waits for the promotion")
	require.NoError(t, s.Execute("promote q"))
	assert.Contains(t, out.String(), "white a7-a8=Q+\n")
	assert.Equal(t, board.WhiteQueen, s.Game().Position().PieceAt(board.A8))

	out.Reset()
	require.NoError(t, s.Execute("new fen 4k3/P7/8/8/8/8/8/4K3 w - - 0 1"))
	require.NoError(t, s.Execute("a7a8n"))
	assert.Contains(t, out.String(), "white a7-a8=N\n")
}

func TestPowers(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)
	require.NoError(t, s.Game().GrantEnergy(board.White, 3))

	require.NoError(t, s.Execute("power queen rush"))
	assert.Contains(t, out.String(), "white activates queen-rush\n")

	out.Reset()
	require.NoError(t, s.Execute("energy"))
	assert.Contains(t, out.String(), "white energy 0/5 active queen-rush\n")
	assert.Contains(t, out.String(), "black energy 0/5\n")
}

func TestTimeFreezeShowsExpiry(t *testing.T) {
	var out bytes.Buffer
	clk := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	cfg := humans()
	cfg.Now = clk
	s := New(cfg, &out)
	require.NoError(t, s.Game().GrantEnergy(board.White, 5))

	require.NoError(t, s.Execute("power time-freeze"))
	out.Reset()
	require.NoError(t, s.Execute("energy"))
	assert.Contains(t, out.String(), "frozen until 3 minutes from now")
}

func TestLegal(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)

	require.NoError(t, s.Execute("legal e2"))
	assert.Equal(t, "e2: e4 e3\n", out.String())

	out.Reset()
	require.NoError(t, s.Execute("legal"))
	assert.True(t, strings.HasPrefix(out.String(), "20 legal moves: "), out.String())
}

func TestClock(t *testing.T) {
	var out bytes.Buffer
	clk := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	cfg := humans()
	cfg.Now = clk
	cfg.TimeLimit = time.Minute
	s := New(cfg, &out)

	require.NoError(t, s.Execute("clock"))
	assert.Equal(t, "white 01:00 black 01:00\n", out.String())

	clk.now = clk.now.Add(5 * time.Second)
	require.NoError(t, s.Execute("e2e4"))
	out.Reset()
	require.NoError(t, s.Execute("clock"))
	assert.Equal(t, "white 00:55 black 01:00\n", out.String())

	// Black runs out while thinking; the next command flags the game.
	clk.now = clk.now.Add(2 * time.Minute)
	assert.Error(t, s.Execute("e7e5"))
	assert.Equal(t, game.StatusTimeout, s.Game().Status())
	assert.Equal(t, board.White, s.Game().Winner())
	assert.Contains(t, out.String(), "game over: white wins by timeout\n")
}

func TestRecordsToStore(t *testing.T) {
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	cfg := humans()
	cfg.White, cfg.Black = "alice", "bob"
	cfg.Store = store
	s := New(cfg, &out)

	got := run(t, s, &out, "f2f3", "e7e5", "g2g4", "d8h4", "leaderboard", "profile bob")
	assert.Contains(t, got, "achievement: bob unlocked First Blood (Win your first game)\n")
	assert.Contains(t, got, "1. bob 1 wins 0 losses 0 draws\n")
	assert.Contains(t, got, "2. alice 0 wins 1 losses 0 draws\n")
	assert.Contains(t, got, "achievements: first_win\n")
	assert.NoError(t, s.Close())

	rec, err := store.LoadGame(s.Game().ID())
	require.NoError(t, err)
	assert.Equal(t, "checkmate", rec.Status)

	out.Reset()
	require.NoError(t, s.Execute("new"))
	assert.NotEqual(t, rec.ID, s.Game().ID())
	assert.Empty(t, s.Game().History())
}

func TestNoStore(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)
	assert.Error(t, s.Execute("leaderboard"))
	assert.Error(t, s.Execute("profile bob"))
}

func TestRunStopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	s := New(humans(), &out)

	// Nothing is ever written, so the reader stays blocked.
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, pr) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
