package storage

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/pkg/errors"
)

// GameRecord is the archived summary of a finished game.
type GameRecord struct {
	ID       string    `json:"id"`
	White    string    `json:"white"`
	Black    string    `json:"black"`
	Status   string    `json:"status"`
	Winner   string    `json:"winner,omitempty"` // empty on a draw
	Summary  string    `json:"summary"`
	Moves    []string  `json:"moves"`
	Captures [2]int    `json:"captures"`
	Powers   [2]int    `json:"powers"`
	Started  time.Time `json:"started"`
	Ended    time.Time `json:"ended"`
}

// Duration is the wall time between the start and the end of the game.
func (r *GameRecord) Duration() time.Duration {
	return r.Ended.Sub(r.Started)
}

// SaveGame archives a finished game under its id.
func (s *Store) SaveGame(rec *GameRecord) error {
	if rec.ID == "" {
		return errors.New("storage: game record without id")
	}
	return s.put(prefixGame+rec.ID, rec)
}

// LoadGame returns the archived game with the given id, or ErrNotFound.
func (s *Store) LoadGame(id string) (*GameRecord, error) {
	rec := &GameRecord{}
	found, err := s.get(prefixGame+id, rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(ErrNotFound, "game %s", id)
	}
	return rec, nil
}

// RecentGames returns up to limit archived games, most recently ended
// first. limit <= 0 returns all of them.
func (s *Store) RecentGames(limit int) ([]GameRecord, error) {
	var out []GameRecord
	err := s.scan(prefixGame, func(val []byte) error {
		var rec GameRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b GameRecord) int {
		return b.Ended.Compare(a.Ended)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
