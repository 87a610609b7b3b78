package consensus

import (
	"runtime"
	"sort"
	"sync"
	"time"
)

// SignalSource looks up the raw signal for one (symbol, date). The boolean
// reports presence; the error is reserved for access violations, which must
// propagate unchanged (they are fatal to the caller's run).
type SignalSource func(symbol string, date time.Time) (Signal, bool, error)

// ScoreUniverse scores every symbol in the universe for one date. Scoring is
// read-only per symbol, so it fans out over a small worker pool; results are
// re-sorted deterministically afterwards (score desc, then symbol asc).
// A symbol with no signal at all still yields a zero score with zero
// completeness rather than an error.
func (s *Scorer) ScoreUniverse(universe []string, date time.Time, src SignalSource) ([]Score, error) {
	scores := make([]Score, len(universe))
	errs := make([]error, len(universe))

	workers := runtime.NumCPU()
	if workers > len(universe) {
		workers = len(universe)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sym := universe[i]
				sig, ok, err := src(sym, date)
				if err != nil {
					errs[i] = err
					continue
				}
				if !ok {
					sig = Signal{Symbol: sym, Date: date}
				}
				scores[i] = s.Score(sig)
			}
		}()
	}
	for i := range universe {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	SortScores(scores)
	return scores, nil
}

// Filter scores the universe and keeps symbols meeting both thresholds,
// ranked by total score descending with symbol lexical order breaking ties.
func (s *Scorer) Filter(universe []string, date time.Time, src SignalSource, minScore int, minCompleteness float64) ([]Score, error) {
	scored, err := s.ScoreUniverse(universe, date, src)
	if err != nil {
		return nil, err
	}

	out := make([]Score, 0, len(scored))
	for _, sc := range scored {
		if sc.Total >= minScore && sc.Completeness >= minCompleteness {
			out = append(out, sc)
		}
	}
	return out, nil
}

// SortScores orders scores by total descending, symbol ascending. The symbol
// tiebreak keeps replays byte-for-byte reproducible.
func SortScores(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].Symbol < scores[j].Symbol
	})
}
