package engine

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/royalchess/internal/board"
)

// Search constants
const (
	Infinity  = 1 << 20
	MateScore = 10000
)

// cancellation is polled every cancelEvery nodes.
const cancelEvery = 1024

// searcher carries the state of one search. The maximizing side is always
// the color the search was started for.
type searcher struct {
	ctx   context.Context
	root  board.Color
	nodes atomic.Uint64
}

// Search runs a minimax search with alpha-beta pruning for color. Lookahead
// uses Position.Do/Undo, so castling rooks, en passant victims and
// promotions are not played inside the tree. pos is restored on return.
func (e *Engine) Search(ctx context.Context, pos *board.Position, color board.Color, depth int) (SearchInfo, error) {
	if depth <= 0 {
		depth = e.depth
	}
	if err := ctx.Err(); err != nil {
		return SearchInfo{}, errors.Wrap(err, "search")
	}

	start := time.Now()
	moves := pos.LegalMoves(color)
	if len(moves) == 0 {
		return SearchInfo{Depth: depth, Move: board.NoMove}, nil
	}
	orderMoves(pos, moves)

	s := &searcher{ctx: ctx, root: color}
	var (
		best  board.Move
		score int
		err   error
	)
	if e.parallel && len(moves) > 1 {
		best, score, err = s.rootParallel(pos, moves, depth)
	} else {
		best, score, err = s.rootSerial(pos, moves, depth)
	}
	if err != nil {
		return SearchInfo{}, errors.Wrap(err, "search")
	}

	info := SearchInfo{
		Depth: depth,
		Score: score,
		Nodes: s.nodes.Load(),
		Time:  time.Since(start),
		Move:  best,
	}
	e.log.Debug("search finished",
		zap.Stringer("color", color),
		zap.Int("depth", depth),
		zap.Stringer("move", best),
		zap.Int("score", score),
		zap.Uint64("nodes", info.Nodes),
		zap.Duration("elapsed", info.Time),
		zap.Bool("parallel", e.parallel))
	if e.OnInfo != nil {
		e.OnInfo(info)
	}
	return info, nil
}

// rootSerial keeps the first move that strictly improves on the best score
// and narrows alpha as it goes.
func (s *searcher) rootSerial(pos *board.Position, moves []board.Move, depth int) (board.Move, int, error) {
	best, bestScore := board.NoMove, -Infinity
	alpha, beta := -Infinity, Infinity
	for _, m := range moves {
		score, err := s.descend(pos, m, depth-1, false, alpha, beta)
		if err != nil {
			return board.NoMove, 0, err
		}
		if score > bestScore {
			best, bestScore = m, score
		}
		alpha = max(alpha, bestScore)
	}
	if best == board.NoMove {
		best = moves[0]
	}
	return best, bestScore, nil
}

// rootParallel scores every root move with a full window on its own copy of
// the position and picks the first maximum. Below the root the tree is
// fail-soft, so this selects the same move and score as rootSerial.
func (s *searcher) rootParallel(pos *board.Position, moves []board.Move, depth int) (board.Move, int, error) {
	scores := make([]int, len(moves))
	g, ctx := errgroup.WithContext(s.ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	s.ctx = ctx

	for i, m := range moves {
		i, m := i, m
		branch := *pos
		g.Go(func() error {
			score, err := s.descend(&branch, m, depth-1, false, -Infinity, Infinity)
			scores[i] = score
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return board.NoMove, 0, err
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return moves[best], scores[best], nil
}

// descend plays m virtually, searches the reply and takes m back.
func (s *searcher) descend(pos *board.Position, m board.Move, depth int, maximizing bool, alpha, beta int) (int, error) {
	edit := pos.Do(m)
	defer pos.Undo(edit)
	return s.minimax(pos, depth, maximizing, alpha, beta)
}

func (s *searcher) minimax(pos *board.Position, depth int, maximizing bool, alpha, beta int) (int, error) {
	if n := s.nodes.Add(1); n%cancelEvery == 0 {
		if err := s.ctx.Err(); err != nil {
			return 0, err
		}
	}
	if depth <= 0 {
		return s.evaluate(pos), nil
	}

	side := s.root
	if !maximizing {
		side = side.Other()
	}
	moves := pos.LegalMoves(side)
	if len(moves) == 0 {
		if !pos.InCheck(side) {
			return 0, nil
		}
		if maximizing {
			return -MateScore, nil
		}
		return MateScore, nil
	}
	orderMoves(pos, moves)

	if maximizing {
		best := -Infinity
		for _, m := range moves {
			score, err := s.descend(pos, m, depth-1, false, alpha, beta)
			if err != nil {
				return 0, err
			}
			best = max(best, score)
			alpha = max(alpha, score)
			if beta <= alpha {
				break
			}
		}
		return best, nil
	}

	best := Infinity
	for _, m := range moves {
		score, err := s.descend(pos, m, depth-1, true, alpha, beta)
		if err != nil {
			return 0, err
		}
		best = min(best, score)
		beta = min(beta, score)
		if beta <= alpha {
			break
		}
	}
	return best, nil
}

// evaluate scores a leaf for the maximizing side.
func (s *searcher) evaluate(pos *board.Position) int {
	if s.root == board.White {
		return -Evaluate(pos)
	}
	return Evaluate(pos)
}
