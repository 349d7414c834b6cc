// Package regulation implements the per-band sliding-window duty-cycle
// accountant described in spec.md §4.3. It answers a single question —
// "may this item emit at time T?" — and tracks the reservations that
// answer depends on.
//
// The engine is purely time-keyed (spec.md §4.3 "Ordering"): callers pass
// ConcentratorCount values, never wall-clock time. Because a band's
// window_time (commonly up to an hour) can exceed the concentrator
// counter's ~71.58-minute wrap period, the engine cannot compare raw
// counter values directly once reservations are more than half the wrap
// range apart. It resolves this — the "Open question" in spec.md §9 does
// not cover this tension, so it is this implementation's call — by
// maintaining its own monotonically-extended microsecond clock, unwrapped
// from incoming counts via the half-range rule relative to the
// most-recently-seen count. This is safe because every count the engine
// ever sees arrives within a lead/lag window far smaller than half the
// wrap range (spec.md §3 invariants 4-5).
package regulation

import (
	"sort"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
)

type reservation struct {
	start   int64 // unwrapped microseconds
	airtime time.Duration
}

func (r reservation) end() int64 {
	return r.start + r.airtime.Microseconds()
}

// Engine is the per-gateway duty-cycle accountant. A nil *Engine disables
// enforcement entirely (spec.md §9: boards with no regulation, e.g. the
// 2.4 GHz ISM band).
type Engine struct {
	mu     sync.Mutex
	bands  []Band
	cfg    Config
	byBand map[string][]reservation

	haveRef  bool
	refCount cctime.Count
	refUS    int64
}

// New constructs an Engine from a band table.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		bands:  cfg.Bands,
		byBand: make(map[string][]reservation),
	}
}

// unwrap must be called with mu held. It extends c into the engine's
// monotonic microsecond clock and advances the reference point.
func (e *Engine) unwrap(c cctime.Count) int64 {
	if !e.haveRef {
		e.haveRef = true
		e.refCount = c
		e.refUS = 0
		return 0
	}

	const wrapUS = int64(1) << 32
	fwd := int64(e.refCount.Distance(c) / time.Microsecond)
	delta := fwd
	if fwd > wrapUS/2 {
		delta = fwd - wrapUS
	}

	us := e.refUS + delta
	e.refCount = c
	e.refUS = us
	return us
}

// selectBand picks the governing band for freqHz at powerEIRP, applying
// spec.md §4.3's selection rule: among bands covering freqHz whose power
// cap is not exceeded, prefer the smallest duty-cycle cap, then the
// smallest power cap, then first declaration order. A band whose power
// cap is exceeded is excluded outright, even if another (worse) band
// would have admitted the same power at its own looser cap.
func (e *Engine) selectBand(freqHz uint32, powerEIRP int8) (Band, bool) {
	var best Band
	found := false

	for _, b := range e.bands {
		if !b.covers(freqHz) {
			continue
		}
		if powerEIRP > b.TxPowerMaxEIRP {
			continue
		}
		if !found {
			best = b
			found = true
			continue
		}
		switch {
		case b.DutyCyclePermilleMax < best.DutyCyclePermilleMax:
			best = b
		case b.DutyCyclePermilleMax == best.DutyCyclePermilleMax && b.TxPowerMaxEIRP < best.TxPowerMaxEIRP:
			best = b
		}
	}

	return best, found
}

// windowLoad returns the occupied duration within the window
// (windowEnd-windowTime, windowEnd] given a reservation set, after
// coalescing reservations separated by less than AggregationGuard.
func windowLoad(resvs []reservation, windowEnd int64, windowTime, aggregationGuard time.Duration) time.Duration {
	windowStart := windowEnd - windowTime.Microseconds()

	// Keep only reservations intersecting the window.
	var in []reservation
	for _, r := range resvs {
		if r.end() <= windowStart || r.start >= windowEnd {
			continue
		}
		in = append(in, r)
	}
	if len(in) == 0 {
		return 0
	}

	sort.Slice(in, func(i, j int) bool { return in[i].start < in[j].start })

	guardUS := aggregationGuard.Microseconds()
	var total int64
	spanStart := in[0].start
	spanEnd := in[0].end()

	flush := func() {
		s := spanStart
		if s < windowStart {
			s = windowStart
		}
		e := spanEnd
		if e > windowEnd {
			e = windowEnd
		}
		if e > s {
			total += e - s
		}
	}

	for _, r := range in[1:] {
		if r.start-spanEnd < guardUS {
			if r.end() > spanEnd {
				spanEnd = r.end()
			}
			continue
		}
		flush()
		spanStart = r.start
		spanEnd = r.end()
	}
	flush()

	return time.Duration(total) * time.Microsecond
}

// TxAllowed computes the single governing band for (freqHz, powerEIRP)
// and tests whether a reservation of airtime starting at start would
// push any sliding window_time window over that band's duty-cycle cap.
// It does not mutate engine state.
func (e *Engine) TxAllowed(freqHz uint32, powerEIRP int8, start cctime.Count, airtime time.Duration) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	band, ok := e.selectBand(freqHz, powerEIRP)
	if !ok {
		return "", &BandNotFoundError{FreqHz: freqHz, PowerEIRP: powerEIRP}
	}

	startUS := e.unwrap(start)
	cand := reservation{start: startUS, airtime: airtime}
	capUS := int64(band.DutyCyclePermilleMax) * e.cfg.WindowTime.Microseconds() / 1000

	existing := e.byBand[band.Label]
	var past, future []reservation
	for _, r := range existing {
		if r.start <= startUS {
			past = append(past, r)
		} else {
			future = append(future, r)
		}
	}

	checkpoints := func(rs []reservation) []int64 {
		cps := make([]int64, 0, len(rs)+1)
		for _, r := range rs {
			cps = append(cps, r.end())
		}
		cps = append(cps, cand.end())
		return cps
	}

	violates := func(rs []reservation, cps []int64) bool {
		withCand := append(append([]reservation{}, rs...), cand)
		for _, cp := range cps {
			if windowLoad(withCand, cp, e.cfg.WindowTime, e.cfg.AggregationGuard).Microseconds() > capUS {
				return true
			}
		}
		return false
	}

	if violates(past, checkpoints(past)) {
		return "", ErrDutyCycle
	}

	all := append(append([]reservation{}, past...), future...)
	if violates(all, checkpoints(all)) {
		return "", ErrDutyCycleFutureItems
	}

	return band.Label, nil
}

// Reserve commits a reservation. It is infallible for any (band, start,
// airtime) that TxAllowed most recently approved, provided no other
// reserving call has interleaved (spec.md §4.3).
func (e *Engine) Reserve(bandLabel string, start cctime.Count, airtime time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	startUS := e.unwrap(start)
	resvs := e.byBand[bandLabel]
	resvs = append(resvs, reservation{start: startUS, airtime: airtime})
	sort.Slice(resvs, func(i, j int) bool { return resvs[i].start < resvs[j].start })
	e.byBand[bandLabel] = resvs
}

// Unreserve removes a tentatively-reserved item, used when a queued item
// is cancelled or dropped as stale before it is emitted.
func (e *Engine) Unreserve(bandLabel string, start cctime.Count) {
	e.mu.Lock()
	defer e.mu.Unlock()

	startUS := e.unwrap(start)
	resvs := e.byBand[bandLabel]
	for i, r := range resvs {
		if r.start == startUS {
			e.byBand[bandLabel] = append(resvs[:i], resvs[i+1:]...)
			return
		}
	}
}

// Stats reports current window occupancy per band, in permille of the
// band's window_time, as of now.
func (e *Engine) Stats(now cctime.Count) map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowUS := e.unwrap(now)
	out := make(map[string]int, len(e.bands))
	seen := make(map[string]bool)
	for _, b := range e.bands {
		if seen[b.Label] {
			continue
		}
		seen[b.Label] = true
		load := windowLoad(e.byBand[b.Label], nowUS, e.cfg.WindowTime, e.cfg.AggregationGuard)
		windowUS := e.cfg.WindowTime.Microseconds()
		if windowUS == 0 {
			out[b.Label] = 0
			continue
		}
		out[b.Label] = int(load.Microseconds() * 1000 / windowUS)
	}
	return out
}
