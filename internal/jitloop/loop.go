// Package jitloop implements the JIT Loop worker (spec.md §4.5): on a
// short fixed cycle it drains due items from the JIT queue and hands them
// to the HAL, in strictly non-decreasing start_time order.
package jitloop

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/events"
	"github.com/agsys/lora-gwd/internal/hal"
	"github.com/agsys/lora-gwd/internal/jitqueue"
)

// Config bounds the loop's cycle period (spec.md §4.5 "typically 10ms";
// spec.md §5 S5: a stop must be serviced within 2x this period).
type Config struct {
	Period time.Duration
}

// EmitCounter is the narrow statsagg surface this loop needs.
type EmitCounter interface {
	IncTxEmitted()
}

// Loop pops due items from a jitqueue.Queue and hands them to a hal.Gate.
type Loop struct {
	cfg    Config
	gate   *hal.Gate
	queue  *jitqueue.Queue
	stats  EmitCounter
	sink   *events.Sink
	onEmit func(*jitqueue.Item) // optional; test hook
}

// New constructs a Loop. sink may be nil to suppress the async
// DownlinkTxAck publish (e.g. in tests).
func New(cfg Config, gate *hal.Gate, queue *jitqueue.Queue, stats EmitCounter, sink *events.Sink) *Loop {
	return &Loop{cfg: cfg, gate: gate, queue: queue, stats: stats, sink: sink}
}

// Run drives the cycle described in spec.md §4.5. It returns once stop is
// closed or ctx is cancelled; per the "S5 — Stop latency" scenario, a
// pending Send is allowed to finish but no new cycle begins after that.
func (l *Loop) Run(ctx context.Context, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(l.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cycle(ctx)
		}
	}
}

func (l *Loop) cycle(ctx context.Context) {
	now, err := l.gate.InstCnt(ctx)
	if err != nil {
		log.Printf("jitloop: InstCnt: %v", err)
		return
	}

	item, err := l.queue.Pop(now)
	if err != nil {
		log.Printf("jitloop: Pop: %v", err)
		return
	}
	if item == nil {
		return
	}

	if err := l.gate.Send(ctx, item.Packet); err != nil {
		log.Printf("jitloop: Send failed for %s: %v (no retry, timing window is gone)", item.Packet.ID, err)
		if l.sink != nil {
			downlinkID, _ := parseDownlinkID(item.Packet.ID)
			if pubErr := l.sink.PublishDownlinkAck(events.DownlinkTxAck{DownlinkID: downlinkID, Status: events.TxAckInternalError}); pubErr != nil {
				log.Printf("jitloop: failed to publish tx ack: %v", pubErr)
			}
		}
		if l.onEmit != nil {
			l.onEmit(item)
		}
		return
	}

	l.stats.IncTxEmitted()
	if l.sink != nil {
		downlinkID, _ := parseDownlinkID(item.Packet.ID)
		if pubErr := l.sink.PublishDownlinkAck(events.DownlinkTxAck{DownlinkID: downlinkID, Status: events.TxAckOK}); pubErr != nil {
			log.Printf("jitloop: failed to publish tx ack: %v", pubErr)
		}
	}
	if l.onEmit != nil {
		l.onEmit(item)
	}
}

// parseDownlinkID recovers the wire DownlinkID from a TxPacket.ID, which
// the runtime layer sets to the decimal DownlinkID when converting an
// incoming events.DownlinkFrame command into a hal.TxPacket.
func parseDownlinkID(id string) (uint32, error) {
	v, err := strconv.ParseUint(id, 10, 32)
	return uint32(v), err
}
