// Command royalchess plays the power-chess variant on the terminal, against
// another human or the engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/royalchess/internal/board"
	"github.com/hailam/royalchess/internal/cli"
	"github.com/hailam/royalchess/internal/engine"
	"github.com/hailam/royalchess/internal/storage"
)

var (
	aiFlag     = flag.String("ai", "black", "color played by the engine: white, black or none")
	difficulty = flag.String("difficulty", "medium", "engine difficulty: easy, medium or hard")
	depthFlag  = flag.Int("depth", 0, "search depth in plies (overrides -difficulty)")
	parallel   = flag.Bool("parallel", false, "search root moves concurrently")
	timeLimit  = flag.Duration("time", 15*time.Minute, "time per side, 0 disables the clock")
	whiteName  = flag.String("white", "", "name of the white player")
	blackName  = flag.String("black", "", "name of the black player")
	dbPath     = flag.String("db", "", "database directory (default $ROYALCHESS_DB or the user data dir)")
	noDB       = flag.Bool("no-db", false, "do not record games")
	logLevel   = flag.String("log-level", "warn", "log level: debug, info, warn or error")
	devLog     = flag.Bool("dev", false, "human-readable development logging")
)

func main() {
	flag.Parse()

	logger, err := newLogger(*logLevel, *devLog)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Error("royalchess failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func run(logger *zap.Logger) (err error) {
	var store *storage.Store
	prefs := storage.DefaultPreferences()
	if !*noDB {
		dir, err := storage.ResolveDatabaseDir(*dbPath)
		if err != nil {
			return err
		}
		store, err = storage.Open(dir, storage.WithLogger(logger.Named("storage")))
		if err != nil {
			return err
		}
		if prefs, err = store.LoadPreferences(); err != nil {
			return multierror.Append(err, store.Close())
		}
	}

	cfg, err := buildConfig(prefs, store, logger)
	if err != nil {
		return err
	}
	session := cli.New(cfg, os.Stdout)

	defer func() {
		var result *multierror.Error
		if err != nil {
			result = multierror.Append(result, err)
		}
		if cerr := session.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}
		if store != nil {
			if perr := store.SavePreferences(prefs); perr != nil {
				result = multierror.Append(result, perr)
			}
			if cerr := store.Close(); cerr != nil {
				result = multierror.Append(result, cerr)
			}
		}
		err = result.ErrorOrNil()
	}()

	if store != nil {
		first, err := store.IsFirstLaunch()
		if err != nil {
			return err
		}
		if first {
			fmt.Println("Welcome to Royal Chess. Type \"help\" for the command list.")
			if err := store.MarkFirstLaunchComplete(); err != nil {
				return err
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g.Go(func() error {
		defer cancel()
		return session.Run(ctx, os.Stdin)
	})
	g.Go(func() error {
		return session.RunClock(ctx, time.Second)
	})
	return g.Wait()
}

// buildConfig merges saved preferences with the flags given on the command
// line. Explicit flags win and are written back to the preferences.
func buildConfig(prefs *storage.Preferences, store *storage.Store, logger *zap.Logger) (cli.Config, error) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["ai"] || prefs.AIColor == "" {
		prefs.AIColor = *aiFlag
		prefs.PlayAI = *aiFlag != "none"
	}
	if set["difficulty"] || prefs.Difficulty == "" {
		prefs.Difficulty = *difficulty
	}
	if set["time"] {
		prefs.TimeLimit = *timeLimit
	}
	if set["white"] {
		prefs.Username = *whiteName
	}

	ai := board.NoColor
	if prefs.PlayAI {
		c, ok := board.ParseColor(prefs.AIColor)
		if !ok {
			return cli.Config{}, errors.Errorf("invalid -ai value %q", prefs.AIColor)
		}
		ai = c
	}

	diff, err := engine.ParseDifficulty(prefs.Difficulty)
	if err != nil {
		return cli.Config{}, err
	}
	depth := engine.DifficultyDepth[diff]
	if *depthFlag > 0 {
		depth = *depthFlag
	}

	white, black := *whiteName, *blackName
	human := prefs.Username
	switch ai {
	case board.White:
		white, black = "computer", firstNonEmpty(black, human)
	case board.Black:
		white, black = firstNonEmpty(white, human), "computer"
	}

	logger.Debug("configuration",
		zap.Stringer("ai", ai),
		zap.Int("depth", depth),
		zap.Bool("parallel", *parallel),
		zap.Duration("time", prefs.TimeLimit),
		zap.String("white", white),
		zap.String("black", black))

	return cli.Config{
		AI:        ai,
		Depth:     depth,
		Parallel:  *parallel,
		White:     white,
		Black:     black,
		TimeLimit: prefs.TimeLimit,
		Store:     store,
		Logger:    logger,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
