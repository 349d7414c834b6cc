package jitqueue

import (
	"time"

	"github.com/agsys/lora-gwd/internal/cctime"
	"github.com/agsys/lora-gwd/internal/hal"
)

// Item is a TxPacket plus the fields Enqueue derives from it (spec.md §3).
type Item struct {
	Packet    hal.TxPacket
	StartTime cctime.Count
	EndTime   cctime.Count
	Airtime   time.Duration
	Category  hal.Category

	// Band is the regulation band this item reserved against, empty when
	// duty-cycle enforcement is disabled.
	Band string

	seq      uint64
	reserved bool // true once Enqueue has tentatively reserved this item's airtime
}

// overlaps reports whether two items' [start, end) intervals intersect in
// modular counter space (spec.md §4.4 "Collision policy").
func (it *Item) overlaps(other *Item) bool {
	return cctime.Overlaps(it.StartTime, it.EndTime, other.StartTime, other.EndTime)
}

// itemHeap is a container/heap min-heap ordered by StartTime under modular
// comparison, insertion order (seq) breaking ties (spec.md §4.4
// "Tie-breaking").
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].StartTime == h[j].StartTime {
		return h[i].seq < h[j].seq
	}
	return h[i].StartTime.Before(h[j].StartTime)
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(*Item))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
