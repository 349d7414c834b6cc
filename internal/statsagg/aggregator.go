// Package statsagg implements the process-wide counters and periodic
// flush described in spec.md §4.7: a single critical section reads and
// resets the rx/tx counters; the location and duty-cycle snapshot are
// added after that lock is released, and the result goes to the event
// sink.
package statsagg

import (
	"context"
	"log"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/agsys/lora-gwd/internal/events"
	"github.com/agsys/lora-gwd/internal/gnss"
	"github.com/agsys/lora-gwd/internal/hal"
	"github.com/agsys/lora-gwd/internal/jitqueue"
)

// Config bounds the aggregator's flush cadence and identity.
type Config struct {
	Period    time.Duration
	GatewayID [8]byte
}

// Aggregator owns the daemon's rx/tx counters (spec.md §4.7) and the
// periodic send_and_reset flush. It is safe for concurrent use; jitloop
// and uplink call its Inc* methods from their own goroutines.
type Aggregator struct {
	cfg   Config
	gate  *hal.Gate
	queue *jitqueue.Queue // nil disables duty-cycle reporting
	crds  *gnss.Coords    // nil disables location reporting
	sink  *events.Sink

	mu               sync.Mutex
	rxReceived       uint32
	rxReceivedOK     uint32
	rxReceivedBadCRC uint32
	txReceived       uint32
	txEmitted        uint32
}

// New constructs an Aggregator. queue and crds may be nil when duty-cycle
// enforcement or GNSS discipline is disabled for this board (spec.md §9).
// Duty-cycle occupancy is read through the queue rather than the
// regulation engine directly, so the read goes through the queue's own
// mutex as every other regulation-state access does (spec.md §5).
func New(cfg Config, gate *hal.Gate, queue *jitqueue.Queue, crds *gnss.Coords, sink *events.Sink) *Aggregator {
	return &Aggregator{cfg: cfg, gate: gate, queue: queue, crds: crds, sink: sink}
}

func (a *Aggregator) IncRxReceived()       { a.mu.Lock(); a.rxReceived++; a.mu.Unlock() }
func (a *Aggregator) IncRxReceivedOK()     { a.mu.Lock(); a.rxReceivedOK++; a.mu.Unlock() }
func (a *Aggregator) IncRxReceivedBadCRC() { a.mu.Lock(); a.rxReceivedBadCRC++; a.mu.Unlock() }
func (a *Aggregator) IncTxReceived()       { a.mu.Lock(); a.txReceived++; a.mu.Unlock() }
func (a *Aggregator) IncTxEmitted()        { a.mu.Lock(); a.txEmitted++; a.mu.Unlock() }

// Run starts the periodic flush loop. It exits promptly once stop is
// closed or ctx is cancelled, the same ticker+select-over-stop-channel
// shape every worker loop in this daemon uses.
func (a *Aggregator) Run(ctx context.Context, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(a.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sendAndReset(ctx)
		}
	}
}

// sendAndReset is spec.md §4.7's send_and_reset: counters are read and
// cleared under a single lock, then published outside it.
func (a *Aggregator) sendAndReset(ctx context.Context) {
	a.mu.Lock()
	snap := events.GatewayStats{
		GatewayID:        a.cfg.GatewayID,
		RxReceived:       a.rxReceived,
		RxReceivedOK:     a.rxReceivedOK,
		RxReceivedBadCRC: a.rxReceivedBadCRC,
		TxReceived:       a.txReceived,
		TxEmitted:        a.txEmitted,
	}
	a.rxReceived, a.rxReceivedOK, a.rxReceivedBadCRC = 0, 0, 0
	a.txReceived, a.txEmitted = 0, 0
	a.mu.Unlock()

	snap.TimestampUnixNs = now().AsTime().UnixNano()

	if a.crds != nil {
		if lat, lon, valid := a.crds.Get(); valid {
			snap.Lat, snap.Lon, snap.LocationValid = float32(lat), float32(lon), true
		}
	}

	if a.queue != nil {
		if now, err := a.gate.InstCnt(ctx); err == nil {
			snap.DutyCycleByBand = permilleMap(a.queue.GetDutyCycleStats(now))
		}
	}

	if err := a.sink.PublishStats(snap); err != nil {
		log.Printf("statsagg: failed to publish stats: %v", err)
	}
}

func permilleMap(in map[string]int) map[string]uint16 {
	out := make(map[string]uint16, len(in))
	for band, permille := range in {
		out[band] = uint16(permille)
	}
	return out
}

// now is split out so tests can't trip over wall-clock use inside
// sendAndReset's otherwise pure logic. The stats event's timestamp is
// stamped with timestamppb the same way engine.go stamps its gRPC
// messages, even though this wire encoding is hand-rolled rather than
// protobuf itself.
var now = func() *timestamppb.Timestamp { return timestamppb.New(time.Now()) }
