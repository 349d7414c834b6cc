package gnss

import (
	"testing"
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
)

func TestSyncerRequiresAnchor(t *testing.T) {
	s := NewSyncer()
	if s.HasAnchor() {
		t.Fatal("expected no anchor before UpdateAnchor")
	}
	if _, err := s.ToConcentratorCount(time.Now()); err == nil {
		t.Fatal("expected error converting without an anchor")
	}
}

func TestSyncerConvertsRelativeToAnchor(t *testing.T) {
	s := NewSyncer()
	anchorUTC := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	s.UpdateAnchor(anchorUTC, cctime.Count(1_000_000))

	later := anchorUTC.Add(2 * time.Second)
	count, err := s.ToConcentratorCount(later)
	if err != nil {
		t.Fatalf("ToConcentratorCount: %v", err)
	}
	want := cctime.Count(3_000_000)
	if count != want {
		t.Fatalf("expected count %d, got %d", want, count)
	}
}
