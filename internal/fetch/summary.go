package fetch

import (
	"sync"
	"sync/atomic"

	"github.com/maprover/glbtiles/internal/geo"
)

// Outcome is the terminal state of a single job.
type Outcome int

const (
	// Succeeded means the tile was fetched and written.
	Succeeded Outcome = iota
	// Failed means the job exhausted its retry budget or hit a fatal error.
	Failed
	// Skipped means the destination file already existed.
	Skipped
)

// Failure records one job that reached a terminal failure, with enough
// detail to retry just the failed subset.
type Failure struct {
	Tile geo.Tile
	Err  error
}

// Summary accumulates job outcomes across workers. Counters are atomic so
// workers record results without coordination.
type Summary struct {
	attempted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64

	mu       sync.Mutex
	failures []Failure
}

func (s *Summary) record(j Job, outcome Outcome, err error) {
	s.attempted.Add(1)

	switch outcome {
	case Succeeded:
		s.succeeded.Add(1)
	case Skipped:
		s.skipped.Add(1)
	case Failed:
		s.failed.Add(1)
		s.mu.Lock()
		s.failures = append(s.failures, Failure{Tile: j.Tile, Err: err})
		s.mu.Unlock()
	}
}

// Attempted returns the number of jobs that reached a terminal state.
func (s *Summary) Attempted() int { return int(s.attempted.Load()) }

// Succeeded returns the number of tiles fetched and written.
func (s *Summary) Succeeded() int { return int(s.succeeded.Load()) }

// Failed returns the number of jobs that ended in failure.
func (s *Summary) Failed() int { return int(s.failed.Load()) }

// Skipped returns the number of jobs skipped because the file existed.
func (s *Summary) Skipped() int { return int(s.skipped.Load()) }

// Failures returns a copy of the recorded per-job failures.
func (s *Summary) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Failure, len(s.failures))
	copy(out, s.failures)

	return out
}
