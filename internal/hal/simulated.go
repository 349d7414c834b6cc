package hal

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
)

// SimulatedCapability is a board-less software loopback standing in for
// a real vendor HAL binding. cmd/lora-gwd uses it for every configured
// board, and it is what the test suite drives.
//
// A real binding replaces this with cgo calls into libloragw:
//   - Send    -> lgw_send()
//   - Receive -> lgw_receive()
//   - InstCnt -> lgw_get_trigcnt()
type SimulatedCapability struct {
	mu        sync.Mutex
	epoch     time.Time
	gatewayID [8]byte
	sent      []TxPacket
	pending   []RxPacket
}

// NewSimulatedCapability returns a capability whose counter starts at
// zero at the moment of construction.
func NewSimulatedCapability(gatewayID [8]byte) *SimulatedCapability {
	return &SimulatedCapability{
		epoch:     time.Now(),
		gatewayID: gatewayID,
	}
}

// Send records the packet as transmitted. A real HAL would hand the
// packed lgw_pkt_tx_s structure to the concentrator here.
func (s *SimulatedCapability) Send(_ context.Context, pkt TxPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, pkt)
	log.Printf("hal(sim): TX %d bytes freq=%d dr=%d", len(pkt.Payload), pkt.FreqHz, pkt.Datarate)
	return nil
}

// Receive drains any uplinks queued via InjectUplink (test/dev use only).
func (s *SimulatedCapability) Receive(_ context.Context) ([]RxPacket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	out := s.pending
	s.pending = nil
	return out, nil
}

// InstCnt returns elapsed microseconds since construction, truncated to
// the 32-bit hardware counter's range.
func (s *SimulatedCapability) InstCnt(_ context.Context) (cctime.Count, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cctime.Count(uint32(time.Since(s.epoch).Microseconds())), nil
}

// GatewayEUI returns the configured identifier.
func (s *SimulatedCapability) GatewayEUI(_ context.Context) ([8]byte, error) {
	return s.gatewayID, nil
}

// InjectUplink queues a frame to be returned by the next Receive call.
// Test helper; has no equivalent in a real HAL binding.
func (s *SimulatedCapability) InjectUplink(pkt RxPacket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, pkt)
}

// SentPackets returns every packet handed to Send so far. Test helper.
func (s *SimulatedCapability) SentPackets() []TxPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TxPacket, len(s.sent))
	copy(out, s.sent)
	return out
}
