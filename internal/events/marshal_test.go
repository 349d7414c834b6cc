package events

import (
	"bytes"
	"testing"
)

func TestUplinkFrameRoundTrip(t *testing.T) {
	f := UplinkFrame{
		UplinkID:   [16]byte{0xaa, 0xbb, 0xcc, 0xdd, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		GatewayID:  [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		PhyPayload: []byte{0xde, 0xad, 0xbe, 0xef},
		FreqHz:     868100000,
		Bandwidth:  125000,
		Datarate:   7,
		Modulation: 0,
		CodeRate:   CodeRate4_5,
		CountUS:    1234567,
		RSSI:       -87,
		SNR:        9.5,
		CRCOk:      true,
	}

	got, err := UnmarshalUplinkFrame(MarshalUplinkFrame(f))
	if err != nil {
		t.Fatalf("UnmarshalUplinkFrame: %v", err)
	}
	if got.UplinkID != f.UplinkID || got.GatewayID != f.GatewayID || got.FreqHz != f.FreqHz ||
		got.RSSI != f.RSSI || got.SNR != f.SNR || got.CRCOk != f.CRCOk || got.CodeRate != f.CodeRate {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
	if !bytes.Equal(got.PhyPayload, f.PhyPayload) {
		t.Fatalf("payload mismatch: got %x, want %x", got.PhyPayload, f.PhyPayload)
	}
}

func TestUplinkFrameShortRejected(t *testing.T) {
	if _, err := UnmarshalUplinkFrame([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding a truncated uplink frame")
	}
}

func TestGatewayStatsRoundTrip(t *testing.T) {
	s := GatewayStats{
		GatewayID:        [8]byte{9, 9, 9, 9, 9, 9, 9, 9},
		TimestampUnixNs:  1690000000000000000,
		RxReceived:       10,
		RxReceivedOK:     8,
		RxReceivedBadCRC: 2,
		TxReceived:       3,
		TxEmitted:        3,
		Lat:              52.5,
		Lon:              13.4,
		LocationValid:    true,
		DutyCycleByBand:  map[string]uint16{"K": 10, "M": 100},
	}

	got, err := UnmarshalGatewayStats(MarshalGatewayStats(s))
	if err != nil {
		t.Fatalf("UnmarshalGatewayStats: %v", err)
	}
	if got.GatewayID != s.GatewayID || got.RxReceived != s.RxReceived || got.TxEmitted != s.TxEmitted {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, s)
	}
	if len(got.DutyCycleByBand) != len(s.DutyCycleByBand) {
		t.Fatalf("band count mismatch: got %d, want %d", len(got.DutyCycleByBand), len(s.DutyCycleByBand))
	}
	for label, permille := range s.DutyCycleByBand {
		if got.DutyCycleByBand[label] != permille {
			t.Fatalf("band %q: got %d, want %d", label, got.DutyCycleByBand[label], permille)
		}
	}
}

func TestDownlinkFrameRoundTrip(t *testing.T) {
	f := DownlinkFrame{
		DownlinkID: 7,
		GatewayID:  [8]byte{1, 1, 1, 1, 1, 1, 1, 1},
		PhyPayload: []byte("hello"),
		FreqHz:     868300000,
		Bandwidth:  125000,
		Datarate:   9,
		Modulation: 0,
		CodeRate:   CodeRate4_5,
		Preamble:   8,
		RFPowerDBm: 14,
		Category:   1,
		TxMode:     2,
		CountUS:    999,
		GPSTimeNs:  123456789,
	}

	got, err := UnmarshalDownlinkFrame(MarshalDownlinkFrame(f))
	if err != nil {
		t.Fatalf("UnmarshalDownlinkFrame: %v", err)
	}
	if got.DownlinkID != f.DownlinkID || got.GatewayID != f.GatewayID || got.FreqHz != f.FreqHz ||
		got.RFPowerDBm != f.RFPowerDBm || got.Category != f.Category || got.TxMode != f.TxMode ||
		got.GPSTimeNs != f.GPSTimeNs {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
	if !bytes.Equal(got.PhyPayload, f.PhyPayload) {
		t.Fatalf("payload mismatch: got %q, want %q", got.PhyPayload, f.PhyPayload)
	}
}

func TestDownlinkTxAckRoundTrip(t *testing.T) {
	a := DownlinkTxAck{DownlinkID: 5, Status: TxAckDutyCycleOverflow}
	got, err := UnmarshalDownlinkTxAck(MarshalDownlinkTxAck(a))
	if err != nil {
		t.Fatalf("UnmarshalDownlinkTxAck: %v", err)
	}
	if got != a {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, a)
	}
}

func TestGetGatewayIDResponseRoundTrip(t *testing.T) {
	r := GetGatewayIDResponse{GatewayID: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	got, err := UnmarshalGetGatewayIDResponse(MarshalGetGatewayIDResponse(r))
	if err != nil {
		t.Fatalf("UnmarshalGetGatewayIDResponse: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}
