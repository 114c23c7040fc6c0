package detection

import "time"

// HistoryEntry is one accepted detection center.
type HistoryEntry struct {
	X    float64
	Y    float64
	Time time.Time
}

// History is a bounded rolling record of accepted detections, oldest first.
// It is kept for plausibility heuristics and is not used by the estimator.
type History struct {
	limit   int
	entries []HistoryEntry
}

// NewHistory creates a History holding at most limit entries.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit, entries: make([]HistoryEntry, 0, limit)}
}

// Push records an entry, evicting the oldest once the limit is reached.
func (h *History) Push(e HistoryEntry) {
	if len(h.entries) == h.limit {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.limit-1]
	}
	h.entries = append(h.entries, e)
}

// Entries returns a copy of the recorded entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }

// Clear drops every entry.
func (h *History) Clear() { h.entries = h.entries[:0] }
