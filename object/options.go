package object

import "github.com/rs/zerolog"

const (
	// DefaultMinHeap is the allocation threshold for the first collection and
	// the lowest threshold ever set after one.
	DefaultMinHeap = 1024 * 1024

	// DefaultGrowFactor scales the live heap size after a collection to get
	// the threshold for the next one.
	DefaultGrowFactor = 2.0
)

// Option is a configuration function for a Heap.
type Option func(*Heap)

// WithLogger sets the logger used to report collections.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Heap) {
		h.logger = logger
	}
}

// WithStressGC runs a full collection before every allocation. It is slow
// and exists to flush out objects that are reachable but not rooted.
func WithStressGC(enabled bool) Option {
	return func(h *Heap) {
		h.stress = enabled
	}
}

// WithMinHeap sets the initial collection threshold in bytes. Values <= 0
// keep the default.
func WithMinHeap(bytes int) Option {
	return func(h *Heap) {
		if bytes > 0 {
			h.minHeap = bytes
			h.nextGC = bytes
		}
	}
}

// WithGrowFactor sets how far the heap may grow past its live size before
// the next collection. Values below 1 keep the default.
func WithGrowFactor(factor float64) Option {
	return func(h *Heap) {
		if factor >= 1 {
			h.growFactor = factor
		}
	}
}
