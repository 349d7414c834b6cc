package hal

import (
	"context"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
)

// Capability is the narrow surface the scheduler drives. A real binding
// wraps the vendor C HAL (lgw_send, lgw_receive, lgw_get_trigcnt, ...)
// behind this interface. GPS time sync is the separate GPSCapable
// interface, which boards without GNSS support do not implement (the
// 2.4 GHz SX1280 concentrator has none — spec.md §9).
type Capability interface {
	// Send transmits a single downlink. It may block on SPI/USB I/O for
	// a few milliseconds; callers must hold the Gate while calling it.
	Send(ctx context.Context, pkt TxPacket) error

	// Receive performs one non-blocking batched read of pending uplink
	// frames.
	Receive(ctx context.Context) ([]RxPacket, error)

	// InstCnt reads the concentrator's free-running microsecond counter.
	InstCnt(ctx context.Context) (cctime.Count, error)

	// GatewayEUI returns the board's 8-byte gateway identifier.
	GatewayEUI(ctx context.Context) ([8]byte, error)
}

// GPSCapable is implemented by boards that support GNSS time discipline.
// Not all Capability implementations satisfy it (type-assert to check).
type GPSCapable interface {
	// GPSSync tells the HAL the UTC instant corresponding to a just-seen
	// PPS edge, so it can keep its count_us <-> UTC mapping current.
	GPSSync(ctx context.Context, utc time.Time) error
}
