package hal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
)

// Gate serializes every call into a non-reentrant vendor HAL behind a
// single exclusive lock (spec.md §4.2, §5, §9: "a single gate is correct
// and simple; keep these locks strictly separate" from the JIT queue
// mutex). Holding the lock across blocking SPI/USB I/O is fine — it is
// never held across anything else.
type Gate struct {
	mu  sync.Mutex
	cap Capability
}

// NewGate wraps cap behind an exclusive lock.
func NewGate(cap Capability) *Gate {
	return &Gate{cap: cap}
}

// Send serializes a transmit call into the HAL.
func (g *Gate) Send(ctx context.Context, pkt TxPacket) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cap.Send(ctx, pkt)
}

// Receive serializes a batched receive call into the HAL.
func (g *Gate) Receive(ctx context.Context) ([]RxPacket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cap.Receive(ctx)
}

// InstCnt serializes a counter read.
func (g *Gate) InstCnt(ctx context.Context) (cctime.Count, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cap.InstCnt(ctx)
}

// GatewayEUI serializes a gateway-id query.
func (g *Gate) GatewayEUI(ctx context.Context) ([8]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cap.GatewayEUI(ctx)
}

// GPSSync serializes a GPS time-sync call. It returns an error if the
// wrapped capability has no GNSS support.
func (g *Gate) GPSSync(ctx context.Context, utc time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	gc, ok := g.cap.(GPSCapable)
	if !ok {
		return fmt.Errorf("hal: capability has no GPS support")
	}
	return gc.GPSSync(ctx, utc)
}
