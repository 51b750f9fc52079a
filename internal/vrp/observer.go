package vrp

import (
	"log"
	"math"
)

// DefaultPatience is how many non-improving candidates in a row end the search.
const DefaultPatience = 10

// ProgressObserver tracks the best objective seen and asks to stop once the
// search stagnates for more than Patience candidates.
type ProgressObserver struct {
	Patience int
	Log      bool

	index    int
	best     int64
	stagnant int
	stopped  bool
}

func NewProgressObserver(patience int) *ProgressObserver {
	return &ProgressObserver{Patience: patience, best: math.MaxInt64}
}

// OnCandidate records a candidate objective. The returned Progress has
// Stopped set when the search should end.
func (o *ProgressObserver) OnCandidate(objective int64) Progress {
	mark := "="
	switch {
	case objective < o.best:
		mark = "+"
	case objective > o.best:
		mark = "-"
	}
	o.best = min(o.best, objective)
	stop := false
	if objective == o.best {
		o.stagnant = 0
	} else {
		o.stagnant++
		stop = o.stagnant > o.Patience
	}
	if o.Log {
		log.Printf("[solver] candidate=%d stagnant=%d (%s) objective=%d best=%d", o.index, o.stagnant, mark, objective, o.best)
		if stop {
			log.Printf("[solver] finishing search after %d stagnant candidates", o.stagnant)
		}
	}
	o.stopped = o.stopped || stop
	pr := Progress{Index: o.index, Objective: objective, Best: o.best, Stagnant: o.stagnant, Stopped: stop}
	o.index++
	return pr
}

// Best is the lowest objective seen so far.
func (o *ProgressObserver) Best() int64 { return o.best }
