package storage

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailam/royalchess/internal/board"
	"github.com/hailam/royalchess/internal/game"
)

// Recorder is a game.EventSink that archives finished games and updates the
// players' profiles. Sink callbacks cannot fail, so the last storage error is
// kept for Err.
type Recorder struct {
	game.NopSink

	store   *Store
	players [2]string
	started time.Time

	mu       sync.Mutex
	err      error
	unlocked []Unlock

	// OnUnlock, when set, is called for every achievement a result unlocks.
	OnUnlock func(Unlock)
}

// Unlock pairs a player with a newly unlocked achievement.
type Unlock struct {
	Player      string
	Achievement Achievement
}

// NewRecorder records games between white and black into store.
func NewRecorder(store *Store, white, black string) *Recorder {
	return &Recorder{
		store:   store,
		players: [2]string{white, black},
		started: store.now(),
	}
}

// Player returns the name playing c.
func (r *Recorder) Player(c board.Color) string {
	if c >= board.NoColor {
		return ""
	}
	return r.players[c]
}

// MoveApplied starts the game timer on the first move after a reset.
func (r *Recorder) MoveApplied(ev game.MoveEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started.IsZero() {
		r.started = r.store.now()
	}
}

// GameOver archives the result and updates both profiles. A game id is
// counted once: a game reopened by undo and finished again keeps its first
// result.
func (r *Recorder) GameOver(res game.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.LoadGame(res.GameID); err == nil {
		r.store.log.Info("result already recorded",
			zap.String("game", res.GameID),
			zap.String("result", res.Summary()))
		r.started = time.Time{}
		return
	} else if !errors.Is(err, ErrNotFound) {
		r.fail(err)
		return
	}

	rec := &GameRecord{
		ID:      res.GameID,
		White:   r.players[board.White],
		Black:   r.players[board.Black],
		Status:  res.Status.String(),
		Summary: res.Summary(),
		Moves:   res.Moves,
		Started: r.started,
		Ended:   r.store.now(),
	}
	if res.Winner != board.NoColor {
		rec.Winner = res.Winner.String()
	}
	for c := board.White; c <= board.Black; c++ {
		rec.Captures[c] = res.Stats[c].Captures
		rec.Powers[c] = res.Stats[c].PowersUsed
	}
	r.started = time.Time{}

	if err := r.store.SaveGame(rec); err != nil {
		r.fail(err)
		return
	}

	for c := board.White; c <= board.Black; c++ {
		outcome := Draw
		switch res.Winner {
		case c:
			outcome = Win
		case c.Other():
			outcome = Loss
		}
		unlocked, err := r.store.RecordOutcome(r.players[c], outcome)
		if err != nil {
			r.fail(err)
			continue
		}
		for _, a := range unlocked {
			u := Unlock{Player: r.players[c], Achievement: a}
			r.unlocked = append(r.unlocked, u)
			if r.OnUnlock != nil {
				r.OnUnlock(u)
			}
		}
	}
}

func (r *Recorder) fail(err error) {
	r.err = err
	r.store.log.Error("record game", zap.Error(err))
}

// Err returns the last storage error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Unlocked returns every achievement unlocked through this recorder.
func (r *Recorder) Unlocked() []Unlock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Unlock(nil), r.unlocked...)
}
