// Package uplink implements the Uplink Loop worker (spec.md §4.6): each
// cycle it drains received frames from the HAL, drops bad-CRC frames, and
// publishes a correlated uplink event for everything else.
package uplink

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/events"
	"github.com/agsys/lora-gwd/internal/hal"

	"github.com/google/uuid"
)

// Config bounds the loop's cycle period (spec.md §4.6: "≤10ms").
type Config struct {
	Period    time.Duration
	GatewayID [8]byte
}

// RxCounter is the narrow statsagg surface this loop needs.
type RxCounter interface {
	IncRxReceived()
	IncRxReceivedOK()
	IncRxReceivedBadCRC()
}

// Loop drains hal.Gate.Receive and republishes valid frames as uplink
// events.
type Loop struct {
	cfg    Config
	gate   *hal.Gate
	stats  RxCounter
	sink   *events.Sink
	onRecv func(events.UplinkFrame) // optional; test hook
}

// New constructs a Loop. sink may be nil to suppress the publish step
// (e.g. in tests).
func New(cfg Config, gate *hal.Gate, stats RxCounter, sink *events.Sink) *Loop {
	return &Loop{cfg: cfg, gate: gate, stats: stats, sink: sink}
}

// Run drives the cycle described in spec.md §4.6.
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
	frames, err := l.gate.Receive(ctx)
	if err != nil {
		log.Printf("uplink: Receive: %v", err)
		return
	}

	for _, frame := range frames {
		l.stats.IncRxReceived()

		if !frame.CRCOk {
			l.stats.IncRxReceivedBadCRC()
			continue
		}
		l.stats.IncRxReceivedOK()

		uplinkID := uuid.New()
		event := events.UplinkFrame{
			UplinkID:   uplinkID,
			GatewayID:  l.cfg.GatewayID,
			PhyPayload: frame.Payload,
			FreqHz:     frame.FreqHz,
			Bandwidth:  frame.Bandwidth,
			Datarate:   frame.Datarate,
			Modulation: uint8(frame.Modulation),
			CodeRate:   events.CodeRateFromString(frame.CodeRate),
			CountUS:    uint32(frame.CountUS),
			RSSI:       frame.RSSI,
			SNR:        frame.SNR,
			CRCOk:      frame.CRCOk,
		}

		if l.sink != nil {
			if err := l.sink.PublishUplink(event); err != nil {
				log.Printf("uplink: failed to publish uplink %s: %v", uplinkID, err)
			}
		}
		if l.onRecv != nil {
			l.onRecv(event)
		}
	}
}
