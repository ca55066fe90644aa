package storage

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Outcome is the result of a finished game from one player's side.
type Outcome int

const (
	Win Outcome = iota
	Loss
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Achievement is unlocked once a player reaches a number of wins.
type Achievement struct {
	ID   string
	Name string
	Desc string
	Wins int
}

// Achievements lists every achievement in unlock order.
var Achievements = []Achievement{
	{ID: "first_win", Name: "First Blood", Desc: "Win your first game", Wins: 1},
	{ID: "five_wins", Name: "Veteran", Desc: "Win 5 games", Wins: 5},
	{ID: "ten_wins", Name: "Master", Desc: "Win 10 games", Wins: 10},
	{ID: "local_legend", Name: "Local Legend", Desc: "Win 20 games", Wins: 20},
}

// Profile stores the record of one player name.
type Profile struct {
	Name          string    `json:"name"`
	GamesPlayed   int       `json:"games_played"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Draws         int       `json:"draws"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	Achievements  []string  `json:"achievements"`
	LastPlayed    time.Time `json:"last_played"`
}

// WinRate returns the win rate as a percentage (0-100).
func (p *Profile) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.GamesPlayed) * 100
}

// HasAchievement reports whether the achievement id is unlocked.
func (p *Profile) HasAchievement(id string) bool {
	return slices.Contains(p.Achievements, id)
}

func (p *Profile) apply(o Outcome) {
	p.GamesPlayed++
	switch o {
	case Win:
		p.Wins++
		p.CurrentStreak++
		p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
	case Loss:
		p.Losses++
		p.CurrentStreak = 0
	case Draw:
		p.Draws++
		p.CurrentStreak = 0
	}
}

// unlock adds every achievement the profile now qualifies for and returns
// the newly unlocked ones.
func (p *Profile) unlock() []Achievement {
	var unlocked []Achievement
	for _, a := range Achievements {
		if p.Wins >= a.Wins && !p.HasAchievement(a.ID) {
			p.Achievements = append(p.Achievements, a.ID)
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

func profileKey(name string) []byte {
	return []byte(prefixProfile + strings.ToLower(name))
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storage: empty player name")
	}
	return name, nil
}

// LoadProfile returns the profile of name, or ErrNotFound.
func (s *Store) LoadProfile(name string) (*Profile, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	p := &Profile{}
	err = s.db.View(func(txn *badger.Txn) error {
		return readProfile(txn, name, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func readProfile(txn *badger.Txn, name string, p *Profile) error {
	item, err := txn.Get(profileKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrapf(ErrNotFound, "profile %q", name)
	}
	if err != nil {
		return errors.Wrapf(err, "read profile %q", name)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, p)
	})
}

// RecordOutcome updates the profile of name (creating it on first use) and
// returns the achievements the result unlocked.
func (s *Store) RecordOutcome(name string, o Outcome) ([]Achievement, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	var unlocked []Achievement
	err = s.db.Update(func(txn *badger.Txn) error {
		p := &Profile{}
		if err := readProfile(txn, name, p); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			p = &Profile{Name: name}
		}
		p.apply(o)
		p.LastPlayed = s.now()
		unlocked = p.unlock()

		data, err := json.Marshal(p)
		if err != nil {
			return errors.Wrap(err, "encode profile")
		}
		return txn.Set(profileKey(name), data)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "record %s for %q", o, name)
	}

	for _, a := range unlocked {
		s.log.Info("achievement unlocked", zap.String("player", name), zap.String("achievement", a.ID))
	}
	return unlocked, nil
}

// Leaderboard returns up to limit profiles ordered by wins, then by fewer
// losses, then by name. limit <= 0 returns every profile.
func (s *Store) Leaderboard(limit int) ([]Profile, error) {
	var out []Profile
	err := s.scan(prefixProfile, func(val []byte) error {
		var p Profile
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b Profile) int {
		if a.Wins != b.Wins {
			return b.Wins - a.Wins
		}
		if a.Losses != b.Losses {
			return a.Losses - b.Losses
		}
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
