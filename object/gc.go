package object

import (
	"time"

	"github.com/deepnoodle-ai/lox/value"
)

// Stats reports heap activity since the heap was created.
type Stats struct {
	Allocations    int
	Collections    int
	ObjectsFreed   int
	BytesFreed     int
	ObjectsLive    int
	BytesAllocated int
	NextGC         int
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	stats := h.stats
	stats.ObjectsLive = h.Len()
	stats.BytesAllocated = h.bytesAllocated
	stats.NextGC = h.nextGC
	return stats
}

// Collect runs a full mark-and-sweep collection. Objects reachable from the
// registered root sources survive; everything else is freed and its slot
// returned to the free list.
func (h *Heap) Collect() {
	if h.collecting {
		return
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	start := time.Now()
	before := h.bytesAllocated
	h.logger.Debug().Int("bytes", before).Int("objects", h.Len()).Msg("gc begin")

	h.resetMarks()
	for _, r := range h.roots {
		r.MarkRoots(h.MarkValue)
	}
	h.traceReferences()
	// The intern table does not keep strings alive
	h.strings.RemoveUnmarked(h.IsMarked)
	freed := h.sweep()

	h.nextGC = int(float64(h.bytesAllocated) * h.growFactor)
	if h.nextGC < h.minHeap {
		h.nextGC = h.minHeap
	}
	h.stats.Collections++
	h.stats.ObjectsFreed += freed
	h.stats.BytesFreed += before - h.bytesAllocated

	h.logger.Debug().
		Int("collected", before-h.bytesAllocated).
		Int("freed_objects", freed).
		Int("live_objects", h.Len()).
		Int("bytes", h.bytesAllocated).
		Int("next_gc", h.nextGC).
		Dur("elapsed", time.Since(start)).
		Msg("gc end")
}

func (h *Heap) resetMarks() {
	words := (len(h.slots) + 63) / 64
	if cap(h.marks) < words {
		h.marks = make([]uint64, words)
		return
	}
	h.marks = h.marks[:words]
	for i := range h.marks {
		h.marks[i] = 0
	}
}

// IsMarked reports whether ref was reached during the current collection.
func (h *Heap) IsMarked(ref value.Ref) bool {
	index := ref.Index()
	if index < 0 || index/64 >= len(h.marks) {
		return false
	}
	return h.marks[index/64]&(1<<(uint(index)%64)) != 0
}

// MarkValue marks the object v refers to, if any, and queues it so the
// objects it references are marked too.
func (h *Heap) MarkValue(v value.Value) {
	ref, ok := v.AsRef()
	if !ok {
		return
	}
	h.markRef(ref)
}

func (h *Heap) markRef(ref value.Ref) {
	index := ref.Index()
	if index < 0 || index >= len(h.slots) || h.slots[index].obj == nil {
		return
	}
	if h.IsMarked(ref) {
		return
	}
	h.marks[index/64] |= 1 << (uint(index) % 64)
	// Strings reference nothing
	if _, ok := h.slots[index].obj.(*String); ok {
		return
	}
	h.gray = append(h.gray, ref)
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		ref := h.gray[n]
		h.gray = h.gray[:n]
		h.slots[ref.Index()].obj.traverse(h.MarkValue)
	}
}

func (h *Heap) sweep() int {
	freed := 0
	for i := range h.slots {
		s := &h.slots[i]
		if s.obj == nil || h.IsMarked(value.RefAt(i)) {
			continue
		}
		h.bytesAllocated -= s.size
		*s = slot{}
		h.free = append(h.free, i)
		freed++
	}
	return freed
}
