package engine

// DefaultWindowSize is the number of raw angles averaged by the smoothing window.
const DefaultWindowSize = 5

// Window is a fixed-capacity ring buffer of recent raw angles. Like append,
// Push writes into the backing array it shares with the receiver and returns
// the updated window; keep using the result, not the receiver. Clone gives an
// independent copy.
type Window struct {
	buf  []float64
	next int // slot the next Push writes to
	n    int // number of filled slots
}

// NewWindow returns an empty window holding at most capacity samples.
func NewWindow(capacity int) Window {
	if capacity < 1 {
		capacity = DefaultWindowSize
	}
	return Window{buf: make([]float64, capacity)}
}

// Push writes v at the cursor, evicting the oldest sample once the window is
// full, and returns the new window together with its mean.
func (w Window) Push(v float64) (Window, float64) {
	if len(w.buf) == 0 {
		w = NewWindow(DefaultWindowSize)
	}
	w.buf[w.next] = v
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
	}
	if w.n < len(w.buf) {
		w.n++
	}
	return w, w.Mean()
}

// Clone returns a window with its own backing array.
func (w Window) Clone() Window {
	if w.buf == nil {
		return w
	}
	buf := make([]float64, len(w.buf))
	copy(buf, w.buf)
	w.buf = buf
	return w
}

// Mean is the arithmetic mean of the buffered samples, or 0 when empty.
func (w Window) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	// Until the buffer wraps the filled slots are buf[:n]; once full n == cap.
	var sum float64
	for _, v := range w.buf[:w.n] {
		sum += v
	}
	return sum / float64(w.n)
}

// Len is the number of buffered samples.
func (w Window) Len() int { return w.n }

// Cap is the window capacity.
func (w Window) Cap() int { return len(w.buf) }

// Values returns the buffered samples, oldest first.
func (w Window) Values() []float64 {
	out := make([]float64, 0, w.n)
	start := 0
	if w.n == len(w.buf) {
		start = w.next
	}
	for i := 0; i < w.n; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}
