package sim

// Entry is one retained past state. Entries are append-only: once pushed they
// are never mutated, only evicted oldest-first when the ring wraps.
type Entry struct {
	T    float64
	Ball Ball
}

// History is a bounded ring of past states ordered by insertion time. The
// controller owns it exclusively, so it carries no lock of its own.
type History struct {
	buf   []Entry
	head  int // next write position
	size  int
	limit int
}

func newHistory(seconds, hz float64) *History {
	n := int(seconds*hz) + 4
	if n < 8 {
		n = 8
	}
	return &History{buf: make([]Entry, n), limit: n}
}

func (h *History) push(e Entry) {
	h.buf[h.head] = e
	h.head = (h.head + 1) % h.limit
	if h.size < h.limit {
		h.size++
	}
}

func (h *History) clear() {
	h.head = 0
	h.size = 0
}

func (h *History) count() int { return h.size }

func (h *History) capacity() int { return h.limit }

func (h *History) oldest() (Entry, bool) {
	if h.size == 0 {
		return Entry{}, false
	}
	return h.buf[(h.head-h.size+h.limit)%h.limit], true
}

func (h *History) newest() (Entry, bool) {
	if h.size == 0 {
		return Entry{}, false
	}
	return h.buf[(h.head-1+h.limit)%h.limit], true
}

// latestAtOrBefore returns the newest entry with T <= t. When t precedes the
// oldest retained entry the oldest is returned and ok is false: the caller
// rewound past the retention window and must clamp there.
func (h *History) latestAtOrBefore(t float64) (e Entry, ok bool) {
	if h.size == 0 {
		return Entry{}, false
	}
	for i := 0; i < h.size; i++ {
		idx := (h.head - 1 - i + h.limit) % h.limit
		if h.buf[idx].T <= t {
			return h.buf[idx], true
		}
	}
	e, _ = h.oldest()
	return e, false
}

// dropAfter discards entries strictly newer than t, so a rewound run can
// re-record its forward path without stale future states shadowing it.
func (h *History) dropAfter(t float64) {
	for h.size > 0 {
		newest := h.buf[(h.head-1+h.limit)%h.limit]
		if newest.T <= t {
			return
		}
		h.head = (h.head - 1 + h.limit) % h.limit
		h.size--
	}
}
