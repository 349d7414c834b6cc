// Package jitqueue implements the time-ordered set of pending downlinks
// described in spec.md §4.4: admission against MIN_LEAD/MAX_LEAD, collision
// detection between overlapping transmissions on the shared radio, and
// pop-when-due drain for the JIT Loop.
//
// The underlying structure is a container/heap min-heap keyed on start_time
// under modular comparison. container/heap is the one stdlib data structure
// used here deliberately rather than by omission — no priority-queue
// library appears anywhere in the example corpus, so this is a justified
// stdlib choice (see DESIGN.md).
package jitqueue

import (
	"container/heap"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
	"github.com/agsys/lora-gwd/internal/hal"
	"github.com/agsys/lora-gwd/internal/regulation"
)

// GPSConverter turns a UTC instant into a concentrator count, standing in
// for the Timebase side-spec's GNSS discipline (spec.md §4.4 step 2,
// TX_MODE_ON_GPS).
type GPSConverter interface {
	ToConcentratorCount(utc time.Time) (cctime.Count, error)
}

// Config bounds admission (spec.md §3 invariants 4-5, §4.4, §4.5).
type Config struct {
	// MinLead is the HAL's programming latency; items closer to now than
	// this are rejected TooEarly.
	MinLead time.Duration
	// MaxLead is the HAL's programmable-ahead window; items further out
	// than this are rejected TooLate.
	MaxLead time.Duration
	// ImmediateLead is added to now for TX_MODE_IMMEDIATE (CLASS_C) items.
	ImmediateLead time.Duration
	// PopWindow is the recommended JIT Loop polling cadence, typically 2x
	// the JIT Loop period. Pop does not read it: an item is due only once
	// its start_time has arrived.
	PopWindow time.Duration
	// DropThreshold is how far past its start_time an item may sit before
	// Pop drops it instead of emitting it late.
	DropThreshold time.Duration
	// AntennaGainDBm is subtracted from every packet's requested RF power
	// before admission and regulation checks (spec.md §4.4 step 1).
	AntennaGainDBm int8
}

// Queue is the JIT Queue. A nil *regulation.Engine disables duty-cycle
// enforcement entirely.
type Queue struct {
	mu      sync.Mutex
	cfg     Config
	heap    itemHeap
	reg     *regulation.Engine
	gps     GPSConverter
	nextSeq uint64
}

// New constructs an empty Queue. reg may be nil (no regulation); gps may be
// nil (TX_MODE_ON_GPS items are then rejected).
func New(cfg Config, reg *regulation.Engine, gps GPSConverter) *Queue {
	return &Queue{cfg: cfg, reg: reg, gps: gps}
}

// Enqueue runs the seven-step admission algorithm of spec.md §4.4 and, on
// success, inserts the derived item into the time-ordered queue.
func (q *Queue) Enqueue(pkt hal.TxPacket, now cctime.Count) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Step 1: normalize rf_power for antenna gain.
	pkt.RFPowerDBm -= q.cfg.AntennaGainDBm

	// Step 2: derive start_time / end_time.
	start, err := q.startTime(pkt, now)
	if err != nil {
		return nil, err
	}
	airtime := hal.Airtime(pkt)
	end := start.Add(airtime)

	// Steps 3-4: lead window.
	lead := now.Distance(start)
	if lead < q.cfg.MinLead {
		return nil, ErrTooEarly
	}
	if lead > q.cfg.MaxLead {
		return nil, ErrTooLate
	}

	candidate := &Item{
		Packet:    pkt,
		StartTime: start,
		EndTime:   end,
		Airtime:   airtime,
		Category:  pkt.Category,
	}

	// Step 5: collision check, with the CLASS_C-yields-to-CLASS_A
	// exception (spec.md §4.4 "Collision policy").
	if err := q.checkCollision(candidate); err != nil {
		return nil, err
	}

	// Step 6: duty-cycle enforcement, if enabled. A successful TxAllowed is
	// reserved immediately so concurrently-admitted items see each other's
	// airtime; Pop later only promotes this tentative reservation, it never
	// reserves a second time (spec.md §4.4 step 6, §3 "Reservation").
	if q.reg != nil {
		band, err := q.reg.TxAllowed(pkt.FreqHz, pkt.RFPowerDBm, start, airtime)
		if err != nil {
			return nil, err
		}
		candidate.Band = band
		q.reg.Reserve(band, start, airtime)
		candidate.reserved = true
	}

	// Step 7: insert. Nothing from here on can fail, so the reservation
	// made in step 6 never needs unwinding on this path; a failure in any
	// step before step 6 returns before a reservation is ever made.
	candidate.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.heap, candidate)

	return candidate, nil
}

func (q *Queue) startTime(pkt hal.TxPacket, now cctime.Count) (cctime.Count, error) {
	switch pkt.TxMode {
	case hal.TxModeImmediate:
		return now.Add(q.cfg.ImmediateLead), nil
	case hal.TxModeOnGPS:
		if q.gps == nil {
			return 0, ErrNoGPS
		}
		count, err := q.gps.ToConcentratorCount(pkt.GPSTime)
		if err != nil {
			return 0, fmt.Errorf("jitqueue: GPS conversion: %w", err)
		}
		return count.Add(-pkt.PreDelay), nil
	default: // TxModeTimestamped
		return pkt.CountUS.Add(-pkt.PreDelay), nil
	}
}

// checkCollision applies spec.md §4.4's collision policy. The general rule
// is unconditional rejection on interval overlap. The stated exception
// replaces that test, for a CLASS_C candidate measured against a queued
// CLASS_A item, with a narrower proximity test: the CLASS_C item yields
// only if a CLASS_A response falls within MIN_LEAD of it, even if their
// intervals don't technically overlap (an immediate item's true on-air
// window isn't known until it is handed to the HAL).
func (q *Queue) checkCollision(candidate *Item) error {
	for _, existing := range q.heap {
		if candidate.Category == hal.CategoryClassCImmediate && existing.Category == hal.CategoryClassA {
			gap := existing.StartTime.Delta(candidate.StartTime)
			if gap < 0 {
				gap = -gap
			}
			if gap < q.cfg.MinLead {
				return ErrCollision
			}
			continue
		}
		if candidate.overlaps(existing) {
			return ErrCollision
		}
	}
	return nil
}

// Pop returns the earliest item whose start_time has arrived (start_time
// <= now); any regulation reservation it holds was already made tentatively
// by Enqueue and is simply promoted by returning it. An item whose deadline
// is already more than DropThreshold in the past is dropped (logged)
// instead of returned, retracting its reservation; Pop then continues to
// the next candidate. Pop returns (nil, nil) when nothing is due yet.
//
// PopWindow does not gate Pop itself: it is the recommended polling
// cadence for the JIT Loop (spec.md §4.4 "typically 2x loop period"), not
// a forward tolerance on due-ness — admitting an item before its
// start_time has strictly arrived would violate the "enqueue then
// pop(start_time-eps) returns nothing" invariant (spec.md §7.4) for any
// eps, however small.
func (q *Queue) Pop(now cctime.Count) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.heap.Len() > 0 {
		next := q.heap[0]

		// delta > 0: start_time is still ahead of now, not due. delta <= 0:
		// start_time has arrived or passed, by -delta.
		delta := now.Delta(next.StartTime)

		if delta > 0 {
			// Earliest item is not due yet; heap order guarantees none of
			// the rest are either.
			return nil, nil
		}

		if -delta > q.cfg.DropThreshold {
			heap.Pop(&q.heap)
			log.Printf("jitqueue: dropping item %s, %s past its start_time", next.Packet.ID, -delta)
			if next.reserved && q.reg != nil {
				q.reg.Unreserve(next.Band, next.StartTime)
			}
			continue
		}

		// The reservation was already made tentatively in Enqueue; popping
		// an item due for emission only promotes it, it never reserves
		// again (spec.md §4.4 "pop promotes to committed").
		heap.Pop(&q.heap)
		return next, nil
	}
	return nil, nil
}

// Cancel removes a queued (not yet popped) item and retracts any
// tentative reservation it holds.
func (q *Queue) Cancel(it *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, existing := range q.heap {
		if existing == it {
			heap.Remove(&q.heap, i)
			if it.reserved && q.reg != nil {
				q.reg.Unreserve(it.Band, it.StartTime)
			}
			return nil
		}
	}
	return errors.New("jitqueue: item not found")
}

// GetDutyCycleStats sweeps the regulation engine for the stats aggregator
// without mutating admission state (spec.md §4.4).
func (q *Queue) GetDutyCycleStats(now cctime.Count) map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reg == nil {
		return nil
	}
	return q.reg.Stats(now)
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
