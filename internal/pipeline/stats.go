package pipeline

// Stats accumulates per-stage and per-rejection-reason counters for one
// run. Purely observational; never consulted for control flow. Not safe for
// concurrent use: each worker owns its own Stats and merges afterwards.
type Stats struct {
	Stages  map[string]int
	Reasons map[string]int
	Total   int
}

// NewStats returns empty counters.
func NewStats() *Stats {
	return &Stats{
		Stages:  make(map[string]int),
		Reasons: make(map[string]int),
	}
}

// Observe records one terminal Outcome.
func (s *Stats) Observe(out Outcome) {
	s.Total++
	if out.Stage != "" {
		s.Stages[out.Stage]++
	}
	if !out.Success && out.Reason != "" {
		s.Reasons[out.Reason]++
	}
}

// Merge folds other into s.
func (s *Stats) Merge(other *Stats) {
	if other == nil {
		return
	}
	s.Total += other.Total
	for k, v := range other.Stages {
		s.Stages[k] += v
	}
	for k, v := range other.Reasons {
		s.Reasons[k] += v
	}
}
