// Package runtime wires the daemon's components together and owns their
// lifecycle: one struct bundling the shared collaborators, a Start that
// launches every worker goroutine, and a Stop that signals and waits
// for all of them.
package runtime

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
	"github.com/agsys/lora-gwd/internal/config"
	"github.com/agsys/lora-gwd/internal/events"
	"github.com/agsys/lora-gwd/internal/gnss"
	"github.com/agsys/lora-gwd/internal/hal"
	"github.com/agsys/lora-gwd/internal/jitloop"
	"github.com/agsys/lora-gwd/internal/jitqueue"
	"github.com/agsys/lora-gwd/internal/regulation"
	"github.com/agsys/lora-gwd/internal/statsagg"
	"github.com/agsys/lora-gwd/internal/uplink"
)

// Gateway bundles the HAL Gate, JIT queue, regulation engine, GNSS
// discipline, event sink, and the long-lived workers that drive them
// (spec.md §5: "At least four long-lived workers: JIT Loop, Uplink Loop,
// Stats Aggregator, and optionally GNSS Reader").
type Gateway struct {
	gatewayID [8]byte

	gate  *hal.Gate
	queue *jitqueue.Queue
	reg   *regulation.Engine
	sync  *gnss.Syncer
	crds  *gnss.Coords
	sink  *events.Sink
	stats *statsagg.Aggregator

	jit *jitloop.Loop
	up  *uplink.Loop

	gnssReader gnss.Reader

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New builds a Gateway from a loaded config and a board capability. cap
// is typically hal.NewSimulatedCapability in the absence of a real vendor
// HAL binding (always out of scope here, spec.md §1).
func New(cfg *config.Config, cap hal.Capability) (*Gateway, error) {
	gatewayID, err := cfg.GatewayID()
	if err != nil {
		return nil, err
	}

	gate := hal.NewGate(cap)

	var reg *regulation.Engine
	if cfg.DutyCycle.Enabled {
		regionCfg, err := regionConfig(cfg.Gateway.Region)
		if err != nil {
			return nil, err
		}
		regionCfg.WindowTime = cfg.DutyCycleWindow()
		regionCfg.AggregationGuard = cfg.AggregationGuard()
		reg = regulation.New(regionCfg)
	}

	var syncer *gnss.Syncer
	var reader gnss.Reader
	crds := &gnss.Coords{}
	if cfg.GNSS.Source != "none" && cfg.GNSS.Source != "" {
		syncer = gnss.NewSyncer()
		reader, err = openGNSSReader(cfg)
		if err != nil {
			// spec.md §4.1 Failure clause: GNSS failures degrade to
			// no-GPS mode and log once; never fatal.
			log.Printf("runtime: GNSS source unavailable, continuing without GPS scheduling: %v", err)
			reader = nil
		}
	}

	queueCfg := jitqueue.Config{
		MinLead:        cfg.MinLead(),
		MaxLead:        cfg.MaxLead(),
		ImmediateLead:  cfg.ImmediateLead(),
		PopWindow:      2 * cfg.JITLoopPeriod(),
		DropThreshold:  cfg.DropThreshold(),
		AntennaGainDBm: cfg.Gateway.AntennaGain,
	}

	var gpsConverter jitqueue.GPSConverter
	if syncer != nil {
		gpsConverter = syncer
	}
	queue := jitqueue.New(queueCfg, reg, gpsConverter)

	sink := events.NewSink(events.Config{
		EventBindURL:   cfg.Events.EventBindURL,
		CommandBindURL: cfg.Events.CommandBindURL,
	}, nil, nil)

	stats := statsagg.New(statsagg.Config{
		Period:    cfg.StatsPeriod(),
		GatewayID: gatewayID,
	}, gate, queue, crds, sink)

	g := &Gateway{
		gatewayID: gatewayID,
		gate:      gate,
		queue:     queue,
		reg:       reg,
		sync:      syncer,
		crds:      crds,
		sink:      sink,
		stats:     stats,
		jit:       jitloop.New(jitloop.Config{Period: cfg.JITLoopPeriod()}, gate, queue, stats, sink),
		up: uplink.New(uplink.Config{
			Period:    cfg.UplinkLoopPeriod(),
			GatewayID: gatewayID,
		}, gate, stats, sink),
		gnssReader: reader,
		stopChan:   make(chan struct{}),
	}

	sink.SetHandlers(g.handleDownlinkCommand, g.handleGatewayIDCommand)
	return g, nil
}

// Start launches the event sink and every worker goroutine.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.sink.Start(); err != nil {
		return fmt.Errorf("runtime: failed to start event sink: %w", err)
	}

	g.wg.Add(1)
	go g.jit.Run(ctx, g.stopChan, &g.wg)

	g.wg.Add(1)
	go g.up.Run(ctx, g.stopChan, &g.wg)

	g.wg.Add(1)
	go g.stats.Run(ctx, g.stopChan, &g.wg)

	if g.gnssReader != nil {
		g.wg.Add(1)
		go g.gnssLoop(ctx)
	}

	log.Println("runtime: gateway started")
	return nil
}

// Stop signals every worker to exit and waits for them, then tears down
// the event sink (spec.md §5 S5: a stop is serviced within one loop
// period, not a plain sleep).
func (g *Gateway) Stop() error {
	close(g.stopChan)
	g.wg.Wait()

	if err := g.sink.Stop(); err != nil {
		return err
	}
	if g.gnssReader != nil {
		return g.gnssReader.Close()
	}
	log.Println("runtime: gateway stopped")
	return nil
}

// handleDownlinkCommand converts an inbound events.DownlinkFrame command
// into a hal.TxPacket and runs it through Enqueue (spec.md §6: "The
// core's Enqueue operation consumes these as TxPackets").
func (g *Gateway) handleDownlinkCommand(f events.DownlinkFrame) events.DownlinkTxAck {
	pkt := hal.TxPacket{
		ID:         fmt.Sprintf("%d", f.DownlinkID),
		CountUS:    cctime.Count(f.CountUS),
		FreqHz:     f.FreqHz,
		Bandwidth:  f.Bandwidth,
		Datarate:   f.Datarate,
		Modulation: hal.Modulation(f.Modulation),
		CodeRate:   f.CodeRate.String(),
		Preamble:   f.Preamble,
		Payload:    f.PhyPayload,
		RFPowerDBm: f.RFPowerDBm,
		TxMode:     hal.TxMode(f.TxMode),
		Category:   hal.Category(f.Category),
	}
	if f.TxMode == uint8(hal.TxModeOnGPS) {
		pkt.GPSTime = time.Unix(0, f.GPSTimeNs).UTC()
	}

	now, err := g.gate.InstCnt(context.Background())
	if err != nil {
		log.Printf("runtime: InstCnt failed during enqueue: %v", err)
		return events.DownlinkTxAck{DownlinkID: f.DownlinkID, Status: events.TxAckInternalError}
	}

	g.stats.IncTxReceived()

	if _, err := g.queue.Enqueue(pkt, now); err != nil {
		return events.DownlinkTxAck{DownlinkID: f.DownlinkID, Status: statusFor(err)}
	}
	return events.DownlinkTxAck{DownlinkID: f.DownlinkID, Status: events.TxAckOK}
}

func (g *Gateway) handleGatewayIDCommand() events.GetGatewayIDResponse {
	return events.GetGatewayIDResponse{GatewayID: g.gatewayID}
}

// statusFor maps a jitqueue/regulation admission error to the wire ack
// status (spec.md §7: "admission errors are returned to the command
// caller as a TxAck status").
func statusFor(err error) events.TxAckStatus {
	switch err {
	case jitqueue.ErrTooEarly:
		return events.TxAckTooEarly
	case jitqueue.ErrTooLate:
		return events.TxAckTooLate
	case jitqueue.ErrCollision:
		return events.TxAckCollisionPacket
	case regulation.ErrDutyCycle, regulation.ErrDutyCycleFutureItems:
		return events.TxAckDutyCycleOverflow
	default:
		if _, ok := err.(*regulation.BandNotFoundError); ok {
			return events.TxAckBandNotFound
		}
		return events.TxAckInternalError
	}
}

// gnssLoop reads fixes from the configured GNSS source and anchors the
// Syncer on each one, degrading to no-GPS mode on read failure rather
// than propagating it (spec.md §4.1 Failure clause).
func (g *Gateway) gnssLoop(ctx context.Context) {
	defer g.wg.Done()

	var warnOnce sync.Once
	for {
		select {
		case <-g.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		fix, ok, err := g.gnssReader.NextFix()
		if err != nil {
			warnOnce.Do(func() {
				log.Printf("runtime: GNSS read failed, degrading to no-GPS mode: %v", err)
			})
			return
		}
		if !ok || !fix.Valid {
			continue
		}

		g.crds.Set(fix.Lat, fix.Lon)

		now, err := g.gate.InstCnt(ctx)
		if err != nil {
			continue
		}
		g.sync.UpdateAnchor(fix.UTC, now)
	}
}

func regionConfig(name string) (regulation.Config, error) {
	switch name {
	case "EU868", "":
		return regulation.RegionEU868(), nil
	case "US915":
		return regulation.RegionUS915(), nil
	default:
		return regulation.Config{}, fmt.Errorf("runtime: unknown region %q", name)
	}
}

func openGNSSReader(cfg *config.Config) (gnss.Reader, error) {
	switch cfg.GNSS.Source {
	case "tty":
		f, err := os.OpenFile(cfg.GNSS.TTYPath, os.O_RDONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("runtime: open GNSS tty %s: %w", cfg.GNSS.TTYPath, err)
		}
		return gnss.NewTTYReader(f), nil
	case "gpsd":
		return gnss.DialGpsd(cfg.GNSS.GpsdAddr)
	default:
		return nil, fmt.Errorf("runtime: unknown gnss source %q", cfg.GNSS.Source)
	}
}
