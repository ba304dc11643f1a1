package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval"
)

// Snapshot is an immutable fitted pipeline. Searches hold on to the
// snapshot they started with even if a rebuild swaps in a newer one.
type Snapshot struct {
	Pipeline *retrieval.Pipeline
	Version  int64
	BuiltAt  time.Time
}

// Snapshots holds the active snapshot.
type Snapshots struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	version int64
}

// Load returns the active snapshot, or nil before the first build.
func (s *Snapshots) Load() *Snapshot {
	return s.current.Load()
}

// Publish installs a fitted pipeline under the next version and returns the
// new snapshot.
func (s *Snapshots) Publish(p *retrieval.Pipeline) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	snap := &Snapshot{
		Pipeline: p,
		Version:  s.version,
		BuiltAt:  time.Now().UTC(),
	}
	s.current.Store(snap)
	return snap
}
