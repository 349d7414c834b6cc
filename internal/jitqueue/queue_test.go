package jitqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
	"github.com/agsys/lora-gwd/internal/hal"
)

func testConfig() Config {
	return Config{
		MinLead:       2 * time.Millisecond,
		MaxLead:       10 * time.Second,
		ImmediateLead: 3 * time.Millisecond,
		PopWindow:     20 * time.Millisecond,
		DropThreshold: 100 * time.Millisecond,
	}
}

func timestampedPacket(id string, count cctime.Count) hal.TxPacket {
	return hal.TxPacket{
		ID:         id,
		CountUS:    count,
		FreqHz:     868100000,
		Bandwidth:  125000,
		Datarate:   7,
		Modulation: hal.ModulationLoRa,
		CodeRate:   "4/5",
		Preamble:   8,
		Payload:    make([]byte, 16),
		RFPowerDBm: 14,
		TxMode:     hal.TxModeTimestamped,
		Category:   hal.CategoryClassA,
	}
}

// S3-style: enqueue then pop exactly at start_time.
func TestEnqueueThenPopAtStartTime(t *testing.T) {
	q := New(testConfig(), nil, nil)
	now := cctime.Count(1_000_000)

	pkt := timestampedPacket("a", now.Add(5*time.Second))
	item, err := q.Enqueue(pkt, now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := q.Pop(now); err != nil {
		t.Fatalf("pop too early: %v", err)
	}

	popped, err := q.Pop(item.StartTime)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if popped == nil {
		t.Fatal("expected item to be due at its own start_time")
	}
	if popped.Packet.ID != "a" {
		t.Fatalf("expected item a, got %s", popped.Packet.ID)
	}
}

// enqueue followed immediately by pop(start_time - eps) returns nothing;
// pop(start_time + eps) returns the item (spec.md §7 invariant 4).
func TestPopWindowBoundary(t *testing.T) {
	q := New(testConfig(), nil, nil)
	now := cctime.Count(1_000_000)
	pkt := timestampedPacket("b", now.Add(5*time.Second))
	item, err := q.Enqueue(pkt, now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	before := item.StartTime.Add(-1 * time.Millisecond)
	if popped, _ := q.Pop(before); popped != nil {
		t.Fatalf("expected no item popped before start_time, got %v", popped)
	}

	after := item.StartTime.Add(1 * time.Millisecond)
	popped, err := q.Pop(after)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if popped == nil || popped.Packet.ID != "b" {
		t.Fatalf("expected item b to be popped, got %v", popped)
	}
}

func TestEnqueueRejectsTooEarly(t *testing.T) {
	q := New(testConfig(), nil, nil)
	now := cctime.Count(1_000_000)
	pkt := timestampedPacket("c", now.Add(1*time.Millisecond))

	_, err := q.Enqueue(pkt, now)
	if !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
}

func TestEnqueueRejectsTooLate(t *testing.T) {
	q := New(testConfig(), nil, nil)
	now := cctime.Count(1_000_000)
	pkt := timestampedPacket("d", now.Add(30*time.Second))

	_, err := q.Enqueue(pkt, now)
	if !errors.Is(err, ErrTooLate) {
		t.Fatalf("expected ErrTooLate, got %v", err)
	}
}

func TestEnqueueRejectsCollision(t *testing.T) {
	q := New(testConfig(), nil, nil)
	now := cctime.Count(1_000_000)

	first := timestampedPacket("e1", now.Add(5*time.Second))
	if _, err := q.Enqueue(first, now); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}

	// Second item starts mid-airtime of the first: certain overlap.
	second := timestampedPacket("e2", now.Add(5*time.Second+10*time.Millisecond))
	_, err := q.Enqueue(second, now)
	if !errors.Is(err, ErrCollision) {
		t.Fatalf("expected ErrCollision, got %v", err)
	}
}

// S4 — counter wrap: now is near the top of the range, start_time wraps
// past it; admission and pop must still work across the rollover.
func TestCounterWrapAdmissionAndPop(t *testing.T) {
	q := New(testConfig(), nil, nil)
	now := cctime.Count(uint32((int64(1) << 32) - 2000))
	pkt := timestampedPacket("wrap", now.Add(2500*time.Microsecond))

	item, err := q.Enqueue(pkt, now)
	if err != nil {
		t.Fatalf("enqueue across wrap: %v", err)
	}

	popped, err := q.Pop(item.StartTime)
	if err != nil {
		t.Fatalf("pop across wrap: %v", err)
	}
	if popped == nil || popped.Packet.ID != "wrap" {
		t.Fatalf("expected wrap item popped, got %v", popped)
	}
}

// CLASS_C yields to a pending CLASS_A item within MIN_LEAD, even when
// their on-air intervals don't strictly overlap.
func TestClassCYieldsToClassA(t *testing.T) {
	cfg := testConfig() // MinLead = 2ms, ImmediateLead = 3ms
	q := New(cfg, nil, nil)
	now := cctime.Count(1_000_000)

	// CLASS_A lands 1ms after where the CLASS_C immediate item would.
	classA := timestampedPacket("a", now.Add(4*time.Millisecond))
	classA.Category = hal.CategoryClassA
	if _, err := q.Enqueue(classA, now); err != nil {
		t.Fatalf("enqueue class A: %v", err)
	}

	classC := timestampedPacket("c", now.Add(4*time.Millisecond))
	classC.TxMode = hal.TxModeImmediate
	classC.Category = hal.CategoryClassCImmediate
	_, err := q.Enqueue(classC, now)
	if !errors.Is(err, ErrCollision) {
		t.Fatalf("expected CLASS_C to yield to pending CLASS_A, got %v", err)
	}
}

// A CLASS_C item is admitted despite timing proximity once the nearby
// CLASS_A response is outside MIN_LEAD.
func TestClassCAdmittedOutsideMinLead(t *testing.T) {
	cfg := testConfig() // MinLead = 2ms, ImmediateLead = 3ms
	q := New(cfg, nil, nil)
	now := cctime.Count(1_000_000)

	classA := timestampedPacket("a", now.Add(50*time.Millisecond))
	classA.Category = hal.CategoryClassA
	if _, err := q.Enqueue(classA, now); err != nil {
		t.Fatalf("enqueue class A: %v", err)
	}

	classC := timestampedPacket("c", now.Add(3*time.Millisecond))
	classC.TxMode = hal.TxModeImmediate
	classC.Category = hal.CategoryClassCImmediate
	if _, err := q.Enqueue(classC, now); err != nil {
		t.Fatalf("expected CLASS_C admission outside MIN_LEAD, got %v", err)
	}
}

func TestPopDropsStaleItem(t *testing.T) {
	cfg := testConfig()
	cfg.DropThreshold = 1 * time.Millisecond
	q := New(cfg, nil, nil)
	now := cctime.Count(1_000_000)

	pkt := timestampedPacket("stale", now.Add(5*time.Second))
	item, err := q.Enqueue(pkt, now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	farPast := item.StartTime.Add(50 * time.Millisecond)
	popped, err := q.Pop(farPast)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if popped != nil {
		t.Fatalf("expected stale item to be dropped, got %v", popped)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue empty after drop, len=%d", q.Len())
	}
}
