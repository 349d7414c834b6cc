// Package events implements the daemon's ZeroMQ command/event surface:
// a PUB socket streaming UplinkFrame and GatewayStats events out, and a
// REP socket accepting DownlinkFrame and gateway-id commands in. This is
// the ChirpStack Concentratord wire shape — two-part [type, payload] ZMQ
// messages carrying a small hand-rolled binary encoding rather than
// protobuf, so the daemon has no protoc build step (spec.md §6).
//
// The struct shapes here started from this module's own copy of the
// Concentratord client API and were flipped from consumer to producer:
// this daemon now plays the Concentratord role instead of talking to one.
package events

// CodeRate is the LoRa coding rate of a frame.
type CodeRate int32

const (
	CodeRateUndefined CodeRate = 0
	CodeRate4_5       CodeRate = 1
	CodeRate4_6       CodeRate = 2
	CodeRate4_7       CodeRate = 3
	CodeRate4_8       CodeRate = 4
)

func (c CodeRate) String() string {
	switch c {
	case CodeRate4_5:
		return "4/5"
	case CodeRate4_6:
		return "4/6"
	case CodeRate4_7:
		return "4/7"
	case CodeRate4_8:
		return "4/8"
	default:
		return "undefined"
	}
}

// CodeRateFromString parses the hal/config coding-rate string ("4/5" etc.)
// into the wire CodeRate enum; used when translating a hal.RxPacket's
// string-typed CodeRate field into an UplinkFrame. CodeRate.String is the
// reverse direction, used for DownlinkFrame -> hal.TxPacket.
func CodeRateFromString(s string) CodeRate {
	switch s {
	case "4/5":
		return CodeRate4_5
	case "4/6":
		return CodeRate4_6
	case "4/7":
		return CodeRate4_7
	case "4/8":
		return CodeRate4_8
	default:
		return CodeRateUndefined
	}
}

// TxAckStatus reports the outcome of a downlink send (spec.md §4.4, §4.5).
type TxAckStatus int32

const (
	TxAckOK                TxAckStatus = 0
	TxAckTooLate           TxAckStatus = 1
	TxAckTooEarly          TxAckStatus = 2
	TxAckCollisionPacket   TxAckStatus = 3
	TxAckDutyCycleOverflow TxAckStatus = 4
	TxAckBandNotFound      TxAckStatus = 5
	TxAckInternalError     TxAckStatus = 6
)

func (s TxAckStatus) String() string {
	switch s {
	case TxAckOK:
		return "OK"
	case TxAckTooLate:
		return "TOO_LATE"
	case TxAckTooEarly:
		return "TOO_EARLY"
	case TxAckCollisionPacket:
		return "COLLISION_PACKET"
	case TxAckDutyCycleOverflow:
		return "DUTY_CYCLE_OVERFLOW"
	case TxAckBandNotFound:
		return "BAND_NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// UplinkFrame is a received LoRa frame, published on the event socket.
// UplinkID is a freshly generated UUID (spec.md §4.6), carried raw rather
// than as a sequence number so downstream consumers can correlate it with
// whatever they do with the frame next.
type UplinkFrame struct {
	UplinkID   [16]byte
	GatewayID  [8]byte
	PhyPayload []byte
	FreqHz     uint32
	Bandwidth  uint32
	Datarate   uint32
	Modulation uint8 // 0 = LoRa, 1 = FSK
	CodeRate   CodeRate
	CountUS    uint32
	RSSI       int16
	SNR        float32
	CRCOk      bool
}

// GatewayStats is the periodic counters + duty-cycle snapshot published by
// the Stats Aggregator (spec.md §4.7).
type GatewayStats struct {
	GatewayID        [8]byte
	TimestampUnixNs  int64
	RxReceived       uint32
	RxReceivedOK     uint32
	RxReceivedBadCRC uint32
	TxReceived       uint32
	TxEmitted        uint32
	Lat, Lon         float32
	LocationValid    bool
	DutyCycleByBand  map[string]uint16 // permille load per band
}

// DownlinkFrame is a scheduling command accepted over the command socket.
type DownlinkFrame struct {
	DownlinkID uint32
	GatewayID  [8]byte
	PhyPayload []byte
	FreqHz     uint32
	Bandwidth  uint32
	Datarate   uint32
	Modulation uint8
	CodeRate   CodeRate
	Preamble   uint16
	RFPowerDBm int8
	Category   uint8 // hal.Category
	TxMode     uint8 // hal.TxMode
	CountUS    uint32
	GPSTimeNs  int64
}

// DownlinkTxAck is the command socket's reply to a DownlinkFrame, or an
// asynchronous event published after emission.
type DownlinkTxAck struct {
	DownlinkID uint32
	Status     TxAckStatus
}

// GetGatewayIDResponse answers a gateway_id command.
type GetGatewayIDResponse struct {
	GatewayID [8]byte
}
