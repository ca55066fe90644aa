package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyFirstLaunch = "first_launch"
	prefixProfile  = "profile/"
	prefixGame     = "game/"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Preferences stores the settings of the local front end.
type Preferences struct {
	Username   string        `json:"username"`
	Difficulty string        `json:"difficulty"`
	PlayAI     bool          `json:"play_ai"`
	AIColor    string        `json:"ai_color"`
	TimeLimit  time.Duration `json:"time_limit"`
	LastPlayed time.Time     `json:"last_played"`
}

// DefaultPreferences returns default preferences.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Username:   "Player",
		Difficulty: "medium",
		PlayAI:     true,
		AIColor:    "black",
		TimeLimit:  15 * time.Minute,
	}
}

// Store wraps BadgerDB for persistent storage.
type Store struct {
	db       *badger.DB
	inMemory bool
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes store and badger logs to l.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithNow sets the time source used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the database in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	return open(badger.DefaultOptions(dir), false, opts)
}

// OpenInMemory opens a database that lives only as long as the Store.
func OpenInMemory(opts ...Option) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), true, opts)
}

func open(bopts badger.Options, inMemory bool, opts []Option) (*Store, error) {
	s := &Store{
		inMemory: inMemory,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	bopts = bopts.WithLogger(badgerLogger{s.log.Named("badger").Sugar()})
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %q", bopts.Dir)
	}
	s.db = db
	s.log.Debug("store opened", zap.String("dir", bopts.Dir), zap.Bool("in_memory", inMemory))
	return s, nil
}

// Close syncs and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var result *multierror.Error
	if !s.inMemory {
		if err := s.db.Sync(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "sync"))
		}
	}
	if err := s.db.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "close"))
	}
	s.db = nil
	return result.ErrorOrNil()
}

// IsFirstLaunch returns true if this is the first launch.
func (s *Store) IsFirstLaunch() (bool, error) {
	found, err := s.get(keyFirstLaunch, nil)
	return !found, err
}

// MarkFirstLaunchComplete marks that first launch setup is complete.
func (s *Store) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// SavePreferences saves preferences and stamps LastPlayed.
func (s *Store) SavePreferences(prefs *Preferences) error {
	prefs.LastPlayed = s.now()
	return s.put(keyPreferences, prefs)
}

// LoadPreferences loads preferences, returning defaults if none were saved.
func (s *Store) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	if _, err := s.get(keyPreferences, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// get decodes the JSON value at key into v (when v is not nil) and reports
// whether the key exists.
func (s *Store) get(key string, v any) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if v == nil {
			return nil
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	return found, errors.Wrapf(err, "read %s", key)
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	return errors.Wrapf(err, "write %s", key)
}

// scan decodes every value under prefix, calling fn with each raw value.
func (s *Store) scan(prefix string, fn func(val []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrapf(err, "scan %s", prefix)
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
