package opt

import (
	"fmt"
	"time"
)

// Status is the outcome of a search, numbered like the routing solver codes.
type Status int

const (
	StatusNotSolved   Status = 0
	StatusSuccess     Status = 1
	StatusFail        Status = 2
	StatusFailTimeout Status = 3
	StatusInvalid     Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "not solved"
	case StatusSuccess:
		return "success"
	case StatusFail:
		return "no solution found"
	case StatusFailTimeout:
		return "time-out without solution"
	case StatusInvalid:
		return "invalid model"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// FirstSolutionStrategy selects the construction heuristic.
type FirstSolutionStrategy int

const (
	// Automatic uses cheapest insertion when the model has pickup-delivery
	// pairs and path-cheapest-arc otherwise.
	Automatic FirstSolutionStrategy = iota
	PathCheapestArc
	ParallelCheapestInsertion
)

func (f FirstSolutionStrategy) String() string {
	switch f {
	case Automatic:
		return "AUTOMATIC"
	case PathCheapestArc:
		return "PATH_CHEAPEST_ARC"
	case ParallelCheapestInsertion:
		return "PARALLEL_CHEAPEST_INSERTION"
	}
	return fmt.Sprintf("FirstSolutionStrategy(%d)", int(f))
}

// SearchParameters control a single solve.
type SearchParameters struct {
	FirstSolution FirstSolutionStrategy
	// TimeLimit bounds the whole solve; zero means no limit.
	TimeLimit time.Duration
	// SolutionLimit stops after that many reported solutions; zero means no limit.
	SolutionLimit int
	// NoLocalSearch returns the first solution as is.
	NoLocalSearch bool
	LogSearch     bool
}

// DefaultSearchParameters returns automatic construction with local search and no time limit.
func DefaultSearchParameters() SearchParameters {
	return SearchParameters{FirstSolution: Automatic}
}
