package gnss

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
)

// Syncer anchors a GNSS UTC fix to the concentrator's free-running counter
// at the moment the fix was read, and uses that anchor to translate later
// UTC instants into counts for TX_MODE_ON_GPS scheduling (spec.md §4.4 step
// 2: "convert UTC to ConcentratorCount via Timebase then as TIMESTAMPED").
// It implements jitqueue.GPSConverter.
type Syncer struct {
	mu          sync.RWMutex
	anchorUTC   time.Time
	anchorCount cctime.Count
	haveAnchor  bool
	degradeOnce sync.Once
}

// NewSyncer returns a Syncer with no anchor; ToConcentratorCount errors
// until UpdateAnchor is called at least once.
func NewSyncer() *Syncer {
	return &Syncer{}
}

// UpdateAnchor records a fresh (UTC, concentrator count) pair. The pair is
// only as close to one instant as the caller makes it; the runtime reads
// the count right after each fix arrives.
func (s *Syncer) UpdateAnchor(utc time.Time, count cctime.Count) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorUTC = utc
	s.anchorCount = count
	s.haveAnchor = true
}

// ToConcentratorCount converts a UTC instant into a concentrator count
// using the most recent anchor. Accuracy degrades with the concentrator's
// free-running clock drift as the anchor ages; callers needing hard
// guarantees should keep GNSS reads frequent relative to MAX_LEAD.
func (s *Syncer) ToConcentratorCount(utc time.Time) (cctime.Count, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.haveAnchor {
		s.degradeOnce.Do(func() {
			log.Println("gnss: no time anchor yet, TX_MODE_ON_GPS scheduling is unavailable")
		})
		return 0, fmt.Errorf("gnss: no GNSS time anchor available")
	}

	offset := utc.Sub(s.anchorUTC)
	return s.anchorCount.Add(offset), nil
}

// HasAnchor reports whether at least one GNSS fix has been synchronized.
func (s *Syncer) HasAnchor() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.haveAnchor
}
