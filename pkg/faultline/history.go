// history.go implements the bounded, FIFO-evicting entry buffer.

package faultline

// history is a fixed-capacity ring of entries. When full, adding an entry
// overwrites the oldest one. Not safe for concurrent use; the Logger guards it.
type history struct {
	entries  []Entry
	maxSize  int
	writeIdx int
}

func newHistory(maxSize int) *history {
	if maxSize <= 0 {
		maxSize = DefaultMaxLogs
	}
	return &history{maxSize: maxSize}
}

// add appends an entry and reports whether the oldest one was evicted.
func (h *history) add(e Entry) bool {
	if len(h.entries) < h.maxSize {
		h.entries = append(h.entries, e)
		return false
	}
	h.entries[h.writeIdx] = e
	h.writeIdx = (h.writeIdx + 1) % h.maxSize
	return true
}

// all returns the entries oldest first, as a fresh slice.
func (h *history) all() []Entry {
	out := make([]Entry, 0, len(h.entries))
	if len(h.entries) < h.maxSize {
		for _, e := range h.entries {
			out = append(out, copyEntry(e))
		}
		return out
	}
	// writeIdx points at the oldest entry once the ring is full
	for i := 0; i < len(h.entries); i++ {
		out = append(out, copyEntry(h.entries[(h.writeIdx+i)%h.maxSize]))
	}
	return out
}

func (h *history) len() int {
	return len(h.entries)
}

func (h *history) reset() {
	h.entries = nil
	h.writeIdx = 0
}
