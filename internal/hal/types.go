// Package hal defines the capability surface the scheduler needs from a
// concentrator board, and a single exclusive gate serializing calls into
// it. The vendor C HAL itself (SX1301 / SX1302 / SX1280 bindings) is
// always out of scope here — Capability is the seam a real cgo binding
// would implement; SimulatedCapability is the seam the test suite and a
// board-less default use instead.
package hal

import (
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
)

// Modulation identifies the physical layer modulation of a packet.
type Modulation int

const (
	ModulationLoRa Modulation = iota
	ModulationFSK
)

// TxMode selects how a downlink's emission instant is determined.
type TxMode int

const (
	// TxModeTimestamped schedules emission at an absolute concentrator
	// count (CLASS_A responses, CLASS_B beacons).
	TxModeTimestamped TxMode = iota
	// TxModeImmediate schedules emission as soon as the HAL can manage
	// it (CLASS_C).
	TxModeImmediate
	// TxModeOnGPS schedules emission at a UTC instant, translated to a
	// concentrator count via GNSS discipline.
	TxModeOnGPS
)

// Category classifies a queued downlink for collision and priority
// purposes (spec.md §3, §4.4).
type Category int

const (
	CategoryClassA Category = iota
	CategoryClassBBeacon
	CategoryClassCImmediate
)

// TxPacket is a downlink handed to the HAL gate for transmission.
type TxPacket struct {
	ID         string
	CountUS    cctime.Count // only meaningful when TxMode == TxModeTimestamped
	FreqHz     uint32
	Bandwidth  uint32
	Datarate   uint32
	Modulation Modulation
	CodeRate   string
	Preamble   uint16
	Payload    []byte
	RFPowerDBm int8 // EIRP after antenna gain compensation
	TxMode     TxMode
	PreDelay   time.Duration
	PostDelay  time.Duration
	Category   Category
	// GPSTime is the UTC emission instant for TxModeOnGPS packets; unused
	// otherwise.
	GPSTime time.Time
}

// PayloadLen returns the PHY payload length in bytes.
func (p TxPacket) PayloadLen() int { return len(p.Payload) }

// RxPacket is an uplink frame read back from the concentrator.
type RxPacket struct {
	FreqHz     uint32
	Bandwidth  uint32
	Datarate   uint32
	Modulation Modulation
	CodeRate   string
	CountUS    cctime.Count
	RSSI       int16
	SNR        float32
	CRCOk      bool
	Payload    []byte
}
