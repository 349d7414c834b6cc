package events

import (
	"encoding/binary"
	"fmt"
	"math"
)

// This file encodes and decodes the structs in wire.go to the flat binary
// layout carried in a ZMQ message's second frame (see sink.go). The teacher's
// own gw/marshal.go leaves several Unmarshal functions as stub placeholders
// (UnmarshalUplinkFrame fabricates RSSI/SNR, UnmarshalGatewayStats returns an
// empty struct); this is the complete version, since the daemon is the
// producer of uplink/stats frames and consumer of downlink frames rather
// than the reverse.

func putUint32(b []byte, off int, v uint32) { binary.BigEndian.PutUint32(b[off:], v) }
func putUint16(b []byte, off int, v uint16) { binary.BigEndian.PutUint16(b[off:], v) }
func putFloat32(b []byte, off int, v float32) {
	binary.BigEndian.PutUint32(b[off:], math.Float32bits(v))
}

func getUint32(b []byte, off int) uint32  { return binary.BigEndian.Uint32(b[off:]) }
func getUint16(b []byte, off int) uint16  { return binary.BigEndian.Uint16(b[off:]) }
func getInt16(b []byte, off int) int16    { return int16(binary.BigEndian.Uint16(b[off:])) }
func getFloat32(b []byte, off int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b[off:]))
}

const uplinkHeaderLen = 16 + 8 + 4*3 + 1 + 1 + 4 + 2 + 4 + 1 + 2 // 51

// MarshalUplinkFrame encodes a received frame for publication on the event
// socket under the "up" topic.
func MarshalUplinkFrame(f UplinkFrame) []byte {
	buf := make([]byte, uplinkHeaderLen)
	copy(buf[0:16], f.UplinkID[:])
	copy(buf[16:24], f.GatewayID[:])
	putUint32(buf, 24, f.FreqHz)
	putUint32(buf, 28, f.Bandwidth)
	putUint32(buf, 32, f.Datarate)
	buf[36] = f.Modulation
	buf[37] = byte(f.CodeRate)
	putUint32(buf, 38, f.CountUS)
	putUint16(buf, 42, uint16(f.RSSI))
	putFloat32(buf, 44, f.SNR)
	crc := byte(0)
	if f.CRCOk {
		crc = 1
	}
	buf[48] = crc
	putUint16(buf, 49, uint16(len(f.PhyPayload)))
	buf = append(buf, f.PhyPayload...)
	return buf
}

// UnmarshalUplinkFrame decodes what MarshalUplinkFrame produced.
func UnmarshalUplinkFrame(b []byte) (UplinkFrame, error) {
	if len(b) < uplinkHeaderLen {
		return UplinkFrame{}, fmt.Errorf("events: short uplink frame: %d bytes", len(b))
	}
	var f UplinkFrame
	copy(f.UplinkID[:], b[0:16])
	copy(f.GatewayID[:], b[16:24])
	f.FreqHz = getUint32(b, 24)
	f.Bandwidth = getUint32(b, 28)
	f.Datarate = getUint32(b, 32)
	f.Modulation = b[36]
	f.CodeRate = CodeRate(b[37])
	f.CountUS = getUint32(b, 38)
	f.RSSI = getInt16(b, 42)
	f.SNR = getFloat32(b, 44)
	f.CRCOk = b[48] != 0
	plLen := int(getUint16(b, 49))
	if len(b) < uplinkHeaderLen+plLen {
		return UplinkFrame{}, fmt.Errorf("events: uplink payload truncated: want %d, have %d", plLen, len(b)-uplinkHeaderLen)
	}
	f.PhyPayload = append([]byte(nil), b[uplinkHeaderLen:uplinkHeaderLen+plLen]...)
	return f, nil
}

// MarshalGatewayStats encodes a periodic stats snapshot for publication
// under the "stats" topic.
func MarshalGatewayStats(s GatewayStats) []byte {
	buf := make([]byte, 8+8+4*5+8+1)
	copy(buf[0:8], s.GatewayID[:])
	binary.BigEndian.PutUint64(buf[8:16], uint64(s.TimestampUnixNs))
	putUint32(buf, 16, s.RxReceived)
	putUint32(buf, 20, s.RxReceivedOK)
	putUint32(buf, 24, s.RxReceivedBadCRC)
	putUint32(buf, 28, s.TxReceived)
	putUint32(buf, 32, s.TxEmitted)
	putFloat32(buf, 36, s.Lat)
	putFloat32(buf, 40, s.Lon)
	valid := byte(0)
	if s.LocationValid {
		valid = 1
	}
	buf[44] = valid

	buf = append(buf, 0, 0)
	putUint16(buf, len(buf)-2, uint16(len(s.DutyCycleByBand)))
	for label, permille := range s.DutyCycleByBand {
		lb := []byte(label)
		entry := make([]byte, 1+len(lb)+2)
		entry[0] = byte(len(lb))
		copy(entry[1:], lb)
		putUint16(entry, 1+len(lb), permille)
		buf = append(buf, entry...)
	}
	return buf
}

// UnmarshalGatewayStats decodes what MarshalGatewayStats produced.
func UnmarshalGatewayStats(b []byte) (GatewayStats, error) {
	if len(b) < 47 {
		return GatewayStats{}, fmt.Errorf("events: short gateway stats: %d bytes", len(b))
	}
	var s GatewayStats
	copy(s.GatewayID[:], b[0:8])
	s.TimestampUnixNs = int64(binary.BigEndian.Uint64(b[8:16]))
	s.RxReceived = getUint32(b, 16)
	s.RxReceivedOK = getUint32(b, 20)
	s.RxReceivedBadCRC = getUint32(b, 24)
	s.TxReceived = getUint32(b, 28)
	s.TxEmitted = getUint32(b, 32)
	s.Lat = getFloat32(b, 36)
	s.Lon = getFloat32(b, 40)
	s.LocationValid = b[44] != 0

	count := int(getUint16(b, 45))
	off := 47
	bands := make(map[string]uint16, count)
	for i := 0; i < count; i++ {
		if off+1 > len(b) {
			return GatewayStats{}, fmt.Errorf("events: truncated duty-cycle band table")
		}
		labelLen := int(b[off])
		off++
		if off+labelLen+2 > len(b) {
			return GatewayStats{}, fmt.Errorf("events: truncated duty-cycle band entry")
		}
		label := string(b[off : off+labelLen])
		off += labelLen
		permille := getUint16(b, off)
		off += 2
		bands[label] = permille
	}
	s.DutyCycleByBand = bands
	return s, nil
}

// MarshalDownlinkFrame encodes a scheduling command, sent as the payload
// frame of a "down" command request.
func MarshalDownlinkFrame(f DownlinkFrame) []byte {
	buf := make([]byte, 4+8+4*3+1+1+2+1+1+1+4+8+2)
	off := 0
	putUint32(buf, off, f.DownlinkID)
	off += 4
	copy(buf[off:off+8], f.GatewayID[:])
	off += 8
	putUint32(buf, off, f.FreqHz)
	off += 4
	putUint32(buf, off, f.Bandwidth)
	off += 4
	putUint32(buf, off, f.Datarate)
	off += 4
	buf[off] = f.Modulation
	off++
	buf[off] = byte(f.CodeRate)
	off++
	putUint16(buf, off, f.Preamble)
	off += 2
	buf[off] = byte(f.RFPowerDBm)
	off++
	buf[off] = f.Category
	off++
	buf[off] = f.TxMode
	off++
	putUint32(buf, off, f.CountUS)
	off += 4
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(f.GPSTimeNs))
	off += 8
	putUint16(buf, off, uint16(len(f.PhyPayload)))
	off += 2
	buf = append(buf, f.PhyPayload...)
	return buf
}

// UnmarshalDownlinkFrame decodes what MarshalDownlinkFrame produced.
func UnmarshalDownlinkFrame(b []byte) (DownlinkFrame, error) {
	const headerLen = 4 + 8 + 4*3 + 1 + 1 + 2 + 1 + 1 + 1 + 4 + 8 + 2
	if len(b) < headerLen {
		return DownlinkFrame{}, fmt.Errorf("events: short downlink frame: %d bytes", len(b))
	}
	var f DownlinkFrame
	off := 0
	f.DownlinkID = getUint32(b, off)
	off += 4
	copy(f.GatewayID[:], b[off:off+8])
	off += 8
	f.FreqHz = getUint32(b, off)
	off += 4
	f.Bandwidth = getUint32(b, off)
	off += 4
	f.Datarate = getUint32(b, off)
	off += 4
	f.Modulation = b[off]
	off++
	f.CodeRate = CodeRate(b[off])
	off++
	f.Preamble = getUint16(b, off)
	off += 2
	f.RFPowerDBm = int8(b[off])
	off++
	f.Category = b[off]
	off++
	f.TxMode = b[off]
	off++
	f.CountUS = getUint32(b, off)
	off += 4
	f.GPSTimeNs = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	plLen := int(getUint16(b, off))
	off += 2
	if len(b) < off+plLen {
		return DownlinkFrame{}, fmt.Errorf("events: downlink payload truncated: want %d, have %d", plLen, len(b)-off)
	}
	f.PhyPayload = append([]byte(nil), b[off:off+plLen]...)
	return f, nil
}

// MarshalDownlinkTxAck encodes the command socket's reply to a "down"
// request, or an async ack published on the event socket.
func MarshalDownlinkTxAck(a DownlinkTxAck) []byte {
	buf := make([]byte, 5)
	putUint32(buf, 0, a.DownlinkID)
	buf[4] = byte(a.Status)
	return buf
}

// UnmarshalDownlinkTxAck decodes what MarshalDownlinkTxAck produced.
func UnmarshalDownlinkTxAck(b []byte) (DownlinkTxAck, error) {
	if len(b) < 5 {
		return DownlinkTxAck{}, fmt.Errorf("events: short downlink ack: %d bytes", len(b))
	}
	return DownlinkTxAck{
		DownlinkID: getUint32(b, 0),
		Status:     TxAckStatus(b[4]),
	}, nil
}

// MarshalGetGatewayIDResponse encodes the reply to a "gateway_id" command.
func MarshalGetGatewayIDResponse(r GetGatewayIDResponse) []byte {
	buf := make([]byte, 8)
	copy(buf, r.GatewayID[:])
	return buf
}

// UnmarshalGetGatewayIDResponse decodes what MarshalGetGatewayIDResponse
// produced.
func UnmarshalGetGatewayIDResponse(b []byte) (GetGatewayIDResponse, error) {
	if len(b) < 8 {
		return GetGatewayIDResponse{}, fmt.Errorf("events: short gateway id response: %d bytes", len(b))
	}
	var r GetGatewayIDResponse
	copy(r.GatewayID[:], b[0:8])
	return r, nil
}
