package gnss

import "sync"

// Coords is the single mutex-guarded static GPS coordinate cell shared
// across the daemon (spec.md §5 "Shared resources": "static GPS
// coordinates — a single mutex-guarded cell"). The Stats Aggregator reads
// it; the GNSS reader loop writes it.
type Coords struct {
	mu       sync.RWMutex
	lat, lon float64
	valid    bool
}

// Set records the latest known fix position.
func (c *Coords) Set(lat, lon float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lat, c.lon, c.valid = lat, lon, true
}

// Get returns the last known position and whether one has ever been set.
func (c *Coords) Get() (lat, lon float64, valid bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lat, c.lon, c.valid
}
