// Package cli implements a line-oriented text protocol for playing a game
// against a human or the engine.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailam/royalchess/internal/board"
	"github.com/hailam/royalchess/internal/clock"
	"github.com/hailam/royalchess/internal/engine"
	"github.com/hailam/royalchess/internal/game"
	"github.com/hailam/royalchess/internal/storage"
)

// errQuit ends the command loop.
var errQuit = errors.New("quit")

// Config configures a Session.
type Config struct {
	// AI is the color played by the engine, or board.NoColor for two humans.
	AI       board.Color
	Depth    int
	Parallel bool

	White string
	Black string

	// TimeLimit per side. Zero disables the clock.
	TimeLimit time.Duration

	// Store is optional. When set, finished games and profiles are recorded.
	Store *storage.Store

	Logger *zap.Logger
	Now    game.Clock
}

// Session drives one game from text commands.
type Session struct {
	cfg    Config
	out    io.Writer
	log    *zap.Logger
	now    game.Clock
	engine *engine.Engine
	clock  *clock.Clock
	rec    *storage.Recorder

	mu   sync.Mutex
	game *game.Game
}

// New creates a session writing its responses to out.
func New(cfg Config, out io.Writer) *Session {
	s := &Session{
		cfg: cfg,
		out: out,
		log: cfg.Logger,
		now: cfg.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = game.ClockFunc(time.Now)
	}
	if s.cfg.White == "" {
		s.cfg.White = "white"
	}
	if s.cfg.Black == "" {
		s.cfg.Black = "black"
	}

	s.engine = engine.New(engine.Options{
		Depth:    cfg.Depth,
		Parallel: cfg.Parallel,
		Logger:   s.log.Named("engine"),
	})
	if cfg.TimeLimit > 0 {
		s.clock = clock.New(
			clock.WithLimit(cfg.TimeLimit),
			clock.WithTimeSource(s.now),
			clock.WithLogger(s.log.Named("clock")))
	}
	if cfg.Store != nil {
		s.rec = storage.NewRecorder(cfg.Store, s.cfg.White, s.cfg.Black)
		s.rec.OnUnlock = func(u storage.Unlock) {
			fmt.Fprintf(s.out, "achievement: %s unlocked %s (%s)\n", u.Player, u.Achievement.Name, u.Achievement.Desc)
		}
	}
	s.game = game.New(s.gameOptions()...)
	return s
}

func (s *Session) gameOptions() []game.Option {
	sinks := game.Sinks{printer{out: s.out}}
	if s.rec != nil {
		sinks = append(sinks, s.rec)
	}
	opts := []game.Option{
		game.WithClock(s.now),
		game.WithSink(sinks),
		game.WithLogger(s.log.Named("game")),
	}
	if s.clock != nil {
		opts = append(opts, game.WithTimer(s.clock))
	}
	return opts
}

// Game returns the current game. Callers must hold Locker while using it.
func (s *Session) Game() *game.Game {
	return s.game
}

// Locker serializes access to the game between commands and a clock
// running in the background.
func (s *Session) Locker() sync.Locker {
	return &s.mu
}

// RunClock ticks the session clock until ctx is done or the game ends.
// It returns at once when the clock is disabled.
func (s *Session) RunClock(ctx context.Context, interval time.Duration) error {
	if s.clock == nil {
		return nil
	}
	return s.clock.Run(ctx, current{s}, interval, &s.mu)
}

// current forwards to whichever game the session is playing, so the clock
// follows "new" commands. The clock holds the session lock while calling it.
type current struct{ s *Session }

func (c current) SideToMove() board.Color { return c.s.game.SideToMove() }

func (c current) FrozenUntil(color board.Color) time.Time { return c.s.game.FrozenUntil(color) }

func (c current) IsOver() bool { return c.s.game.IsOver() }

func (c current) Flag(color board.Color) error { return c.s.game.Flag(color) }

// Run reads commands from in until "quit", EOF or ctx is done. It returns
// as soon as ctx is done, even while a read from in is still blocked.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	s.Execute("d")
	if err := s.start(); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, readErr := readLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errors.Wrap(<-readErr, "read commands")
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if errors.Is(s.Execute(line), errQuit) {
				return nil
			}
		}
	}
}

// readLines scans in on its own goroutine. The error channel receives
// exactly one value before lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

// Execute runs one command line. Errors are reported on the output and
// returned.
func (s *Session) Execute(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clock != nil {
		if err := s.clock.Update(s.game); err != nil {
			s.log.Warn("clock update", zap.Error(err))
		}
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return errQuit
	case "help":
		s.handleHelp()
	case "new":
		err = s.handleNew(args)
	case "fen":
		fmt.Fprintln(s.out, s.game.FEN())
	case "d", "board":
		s.handleDisplay()
	case "move", "m":
		if len(args) == 0 {
			err = errors.New("usage: move <from><to>[promotion]")
			break
		}
		err = s.handleMove(args[0])
	case "promote":
		err = s.handlePromote(args)
	case "power":
		err = s.handlePower(args)
	case "go":
		err = s.handleGo(args, true)
	case "hint":
		err = s.handleGo(args, false)
	case "legal":
		err = s.handleLegal(args)
	case "energy":
		s.handleEnergy()
	case "clock":
		s.handleClock()
	case "history":
		s.handleHistory()
	case "undo":
		err = s.handleUndo(args)
	case "resign":
		err = s.game.Resign(s.game.SideToMove())
	case "leaderboard":
		err = s.handleLeaderboard(args)
	case "profile":
		err = s.handleProfile(args)
	default:
		// A bare move such as "e2e4" is accepted without the command word.
		if _, _, perr := board.ParseMove(cmd); perr == nil {
			err = s.handleMove(cmd)
		} else {
			err = errors.Errorf("unknown command %q", cmd)
		}
	}

	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return err
}

// Close reports storage errors collected while the session ran.
func (s *Session) Close() error {
	var result *multierror.Error
	if s.rec != nil {
		if err := s.rec.Err(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "recorder"))
		}
	}
	return result.ErrorOrNil()
}

func (s *Session) handleHelp() {
	fmt.Fprint(s.out, `commands:
  <from><to>[q|r|b|n]   play a move, e.g. e2e4 or e7e8q
  promote <q|r|b|n>     finish a pending promotion
  power <name>          queen-rush, double-turn, teleport, time-freeze
  go [depth]            let the engine move for the side to move
  hint [depth]          show the engine's choice without playing it
  legal [square]        list legal moves
  energy | clock | history | d | fen
  undo [n] | resign | new [fen <fen>]
  leaderboard [n] | profile <name>
  quit
`)
}

func (s *Session) handleNew(args []string) error {
	if len(args) >= 2 && args[0] == "fen" {
		g, err := game.FromFEN(strings.Join(args[1:], " "), s.gameOptions()...)
		if err != nil {
			return err
		}
		s.game = g
	} else {
		s.game.Reset()
	}
	if s.clock != nil {
		s.clock.Reset()
	}
	fmt.Fprintf(s.out, "new game %s\n", s.game.ID())
	s.handleDisplay()
	return s.playAI()
}

func (s *Session) handleDisplay() {
	fmt.Fprint(s.out, s.game.Position().String())
	fmt.Fprintf(s.out, "Status: %s\n", s.game.Status())
	if s.game.IsInCheck(s.game.SideToMove()) && !s.game.IsOver() {
		fmt.Fprintf(s.out, "%s is in check\n", s.game.SideToMove())
	}
}

func (s *Session) handleMove(arg string) error {
	m, promo, err := board.ParseMove(arg)
	if err != nil {
		return err
	}
	out, err := s.game.ApplyMove(m.From, m.To)
	if err != nil {
		return err
	}
	if out == game.PromotionPending {
		if promo == board.NoPieceType {
			fmt.Fprintln(s.out, "promote: choose q, r, b or n")
			return nil
		}
		if _, err := s.game.ResolvePromotion(promo); err != nil {
			return err
		}
	}
	return s.playAI()
}

func (s *Session) handlePromote(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: promote <q|r|b|n>")
	}
	pt, ok := board.ParsePieceType(args[0])
	if !ok {
		return errors.Wrapf(game.ErrInvalidPromotion, "%q", args[0])
	}
	if _, err := s.game.ResolvePromotion(pt); err != nil {
		return err
	}
	return s.playAI()
}

func (s *Session) handlePower(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: power <name>")
	}
	p, err := game.ParsePower(strings.Join(args, "-"))
	if err != nil {
		return err
	}
	return s.game.ActivatePower(s.game.SideToMove(), p)
}

// handleGo searches for the side to move and optionally plays the result.
func (s *Session) handleGo(args []string, play bool) error {
	depth := 0
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			return errors.Errorf("invalid depth %q", args[0])
		}
		depth = d
	}
	if s.game.IsOver() {
		return errors.Wrapf(game.ErrGameOver, "%s", s.game.Status())
	}
	if _, pending := s.game.PendingPromotion(); pending {
		return game.ErrPromotionRequired
	}

	side := s.game.SideToMove()
	info, err := s.engine.Search(context.Background(), s.game.Position(), side, depth)
	if err != nil {
		return err
	}
	if info.Move == board.NoMove {
		return errors.Errorf("%s has no legal move", side)
	}
	fmt.Fprintf(s.out, "bestmove %s score %s depth %d nodes %s time %s\n",
		info.Move, engine.ScoreToString(info.Score), info.Depth,
		humanize.Comma(int64(info.Nodes)), info.Time.Round(time.Millisecond))
	if !play {
		return nil
	}
	return s.playEngineMove(info.Move)
}

// start makes the opening move when the engine plays white.
func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playAI()
}

// playAI lets the engine move while it is the engine's turn.
func (s *Session) playAI() error {
	if s.cfg.AI == board.NoColor {
		return nil
	}
	for !s.game.IsOver() && s.game.SideToMove() == s.cfg.AI {
		if _, pending := s.game.PendingPromotion(); pending {
			return nil
		}
		move, ok := s.engine.BestMove(s.game.Position(), s.cfg.AI, 0)
		if !ok {
			return nil
		}
		if err := s.playEngineMove(move); err != nil {
			return err
		}
	}
	return nil
}

// playEngineMove applies an engine move. The engine never promotes inside
// its lookahead, so a promotion is resolved to a queen here.
func (s *Session) playEngineMove(m board.Move) error {
	out, err := s.game.ApplyMove(m.From, m.To)
	if err != nil {
		return errors.Wrapf(err, "engine move %s", m)
	}
	if out == game.PromotionPending {
		if _, err := s.game.ResolvePromotion(board.Queen); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) handleLegal(args []string) error {
	if len(args) > 0 {
		sq, err := board.ParseSquare(args[0])
		if err != nil {
			return err
		}
		var dests []string
		for _, to := range s.game.LegalMovesFrom(sq) {
			dests = append(dests, to.String())
		}
		fmt.Fprintf(s.out, "%s: %s\n", sq, strings.Join(dests, " "))
		return nil
	}

	pos := s.game.Position()
	var moves []string
	for _, sq := range pos.Squares(s.game.SideToMove()) {
		for _, to := range s.game.LegalMovesFrom(sq) {
			moves = append(moves, board.NewMove(sq, to).String())
		}
	}
	fmt.Fprintf(s.out, "%d legal moves: %s\n", len(moves), strings.Join(moves, " "))
	return nil
}

func (s *Session) handleEnergy() {
	for c := board.White; c <= board.Black; c++ {
		var active []string
		for _, p := range s.game.ActivePowers(c) {
			active = append(active, p.String())
		}
		line := fmt.Sprintf("%s energy %d/%d", c, s.game.EnergyOf(c), game.MaxEnergy)
		if len(active) > 0 {
			line += " active " + strings.Join(active, ",")
		}
		if s.game.IsFrozen(c) {
			line += " frozen until " + humanize.RelTime(s.game.FrozenUntil(c), s.now.Now(), "ago", "from now")
		}
		fmt.Fprintln(s.out, line)
	}
}

func (s *Session) handleClock() {
	if s.clock == nil {
		fmt.Fprintln(s.out, "clock disabled")
		return
	}
	fmt.Fprintf(s.out, "white %s black %s\n",
		clock.Format(s.clock.Remaining(board.White)),
		clock.Format(s.clock.Remaining(board.Black)))
}

func (s *Session) handleHistory() {
	notes := s.game.Notations()
	for i, n := range notes {
		fmt.Fprintf(s.out, "%s %s\n", humanize.Ordinal(i+1), n)
	}
	if len(notes) == 0 {
		fmt.Fprintln(s.out, "no moves yet")
	}
}

// handleUndo takes back n plies, or one full round against the engine.
func (s *Session) handleUndo(args []string) error {
	n := 1
	if s.cfg.AI != board.NoColor {
		n = 2
	}
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Errorf("invalid count %q", args[0])
		}
		n = v
	}
	if n > len(s.game.History()) && len(s.game.History()) > 0 {
		n = len(s.game.History())
	}
	if err := s.game.Undo(n); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "undone %d, %s to move\n", n, s.game.SideToMove())
	return nil
}

func (s *Session) handleLeaderboard(args []string) error {
	if s.cfg.Store == nil {
		return errors.New("no storage configured")
	}
	limit := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Errorf("invalid limit %q", args[0])
		}
		limit = v
	}
	top, err := s.cfg.Store.Leaderboard(limit)
	if err != nil {
		return err
	}
	for i, p := range top {
		fmt.Fprintf(s.out, "%d. %s %d wins %d losses %d draws\n", i+1, p.Name, p.Wins, p.Losses, p.Draws)
	}
	if len(top) == 0 {
		fmt.Fprintln(s.out, "no games recorded")
	}
	return nil
}

func (s *Session) handleProfile(args []string) error {
	if s.cfg.Store == nil {
		return errors.New("no storage configured")
	}
	if len(args) == 0 {
		return errors.New("usage: profile <name>")
	}
	p, err := s.cfg.Store.LoadProfile(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s: %d games, %d wins (%.0f%%), best streak %d, last played %s\n",
		p.Name, p.GamesPlayed, p.Wins, p.WinRate(), p.LongestStreak,
		humanize.RelTime(p.LastPlayed, s.now.Now(), "ago", "from now"))
	if len(p.Achievements) > 0 {
		fmt.Fprintf(s.out, "achievements: %s\n", strings.Join(p.Achievements, ", "))
	}
	return nil
}

// printer reports game events on the session output.
type printer struct {
	game.NopSink
	out io.Writer
}

func (p printer) MoveApplied(ev game.MoveEvent) {
	fmt.Fprintf(p.out, "%s %s\n", ev.Color, ev.Notation)
}

func (p printer) PowerActivated(c board.Color, pw game.Power) {
	fmt.Fprintf(p.out, "%s activates %s\n", c, pw)
}

func (p printer) GameOver(res game.Result) {
	fmt.Fprintf(p.out, "game over: %s\n", res.Summary())
}
