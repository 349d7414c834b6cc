package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agsys/lora-gwd/internal/config"
	"github.com/agsys/lora-gwd/internal/events"
	"github.com/agsys/lora-gwd/internal/hal"
	"github.com/agsys/lora-gwd/internal/jitqueue"
	"github.com/agsys/lora-gwd/internal/regulation"
)

// testConfig loads a config through the same YAML path production uses, so
// the default timing/window values are applied rather than left zero.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	contents := "gateway:\n  id: \"0102030405060708\"\n  region: EU868\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestNewBuildsGateway(t *testing.T) {
	cfg := testConfig(t)
	gatewayID, err := cfg.GatewayID()
	if err != nil {
		t.Fatalf("GatewayID: %v", err)
	}
	cap := hal.NewSimulatedCapability(gatewayID)

	gw, err := New(cfg, cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if gw.gatewayID != gatewayID {
		t.Fatalf("gatewayID: got %v, want %v", gw.gatewayID, gatewayID)
	}
	if gw.reg != nil {
		t.Fatal("expected no regulation engine when duty_cycle.enabled is false")
	}
}

func TestHandleGatewayIDCommand(t *testing.T) {
	cfg := testConfig(t)
	gatewayID, _ := cfg.GatewayID()
	gw, err := New(cfg, hal.NewSimulatedCapability(gatewayID))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp := gw.handleGatewayIDCommand()
	if resp.GatewayID != gatewayID {
		t.Fatalf("got %v, want %v", resp.GatewayID, gatewayID)
	}
}

func TestHandleDownlinkCommandAcceptsImmediate(t *testing.T) {
	cfg := testConfig(t)
	gatewayID, _ := cfg.GatewayID()
	gw, err := New(cfg, hal.NewSimulatedCapability(gatewayID))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ack := gw.handleDownlinkCommand(events.DownlinkFrame{
		DownlinkID: 9,
		FreqHz:     868100000,
		Bandwidth:  125000,
		Datarate:   7,
		CodeRate:   events.CodeRate4_5,
		PhyPayload: []byte{1, 2, 3},
		RFPowerDBm: 14,
		TxMode:     uint8(hal.TxModeImmediate),
		Category:   uint8(hal.CategoryClassCImmediate),
	})

	if ack.DownlinkID != 9 {
		t.Fatalf("DownlinkID: got %d, want 9", ack.DownlinkID)
	}
	if ack.Status != events.TxAckOK {
		t.Fatalf("Status: got %v, want OK", ack.Status)
	}
}

func TestHandleDownlinkCommandRejectsTooLate(t *testing.T) {
	cfg := testConfig(t)
	gatewayID, _ := cfg.GatewayID()
	gw, err := New(cfg, hal.NewSimulatedCapability(gatewayID))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ack := gw.handleDownlinkCommand(events.DownlinkFrame{
		DownlinkID: 1,
		FreqHz:     868100000,
		Bandwidth:  125000,
		Datarate:   7,
		CodeRate:   events.CodeRate4_5,
		PhyPayload: []byte{1, 2, 3},
		RFPowerDBm: 14,
		TxMode:     uint8(hal.TxModeTimestamped),
		Category:   uint8(hal.CategoryClassA),
		CountUS:    0, // far in the past relative to the simulated clock
	})

	if ack.Status != events.TxAckTooLate && ack.Status != events.TxAckTooEarly {
		t.Fatalf("Status: got %v, want TooLate or TooEarly for a stale timestamp", ack.Status)
	}
}

func TestStatusForMapping(t *testing.T) {
	cases := []struct {
		err  error
		want events.TxAckStatus
	}{
		{jitqueue.ErrTooEarly, events.TxAckTooEarly},
		{jitqueue.ErrTooLate, events.TxAckTooLate},
		{jitqueue.ErrCollision, events.TxAckCollisionPacket},
		{regulation.ErrDutyCycle, events.TxAckDutyCycleOverflow},
		{regulation.ErrDutyCycleFutureItems, events.TxAckDutyCycleOverflow},
		{&regulation.BandNotFoundError{FreqHz: 868500000, PowerEIRP: 14}, events.TxAckBandNotFound},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v): got %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRegionConfig(t *testing.T) {
	if _, err := regionConfig("EU868"); err != nil {
		t.Fatalf("regionConfig(EU868): %v", err)
	}
	if _, err := regionConfig("US915"); err != nil {
		t.Fatalf("regionConfig(US915): %v", err)
	}
	if _, err := regionConfig("bogus"); err == nil {
		t.Fatal("expected an error for an unknown region")
	}
}
