package indicator

// Window is a bounded FIFO of float64 values backed by a preallocated
// circular buffer. Once full, every Push evicts the oldest value.
type Window struct {
	buf   []float64
	idx   int // next write position
	count int // values held, at most len(buf)
}

// NewWindow creates a window holding at most size values. size must be > 0.
func NewWindow(size int) *Window {
	return &Window{buf: make([]float64, size)}
}

// Push admits v. When the window was already full, the value it displaced is
// returned with evicted=true.
func (w *Window) Push(v float64) (old float64, evicted bool) {
	if w.count == len(w.buf) {
		old, evicted = w.buf[w.idx], true
	} else {
		w.count++
	}
	w.buf[w.idx] = v
	w.idx = (w.idx + 1) % len(w.buf)
	return old, evicted
}

// Len returns the number of values currently held.
func (w *Window) Len() int { return w.count }

// Cap returns the window size.
func (w *Window) Cap() int { return len(w.buf) }

// Full reports whether the window holds Cap() values.
func (w *Window) Full() bool { return w.count == len(w.buf) }

// AppendValues appends the held values to dst, oldest first.
func (w *Window) AppendValues(dst []float64) []float64 {
	start := w.idx - w.count
	if start < 0 {
		start += len(w.buf)
	}
	for i := 0; i < w.count; i++ {
		dst = append(dst, w.buf[(start+i)%len(w.buf)])
	}
	return dst
}

// Values returns a copy of the held values, oldest first.
func (w *Window) Values() []float64 {
	return w.AppendValues(make([]float64, 0, w.count))
}

// Reset empties the window for reuse.
func (w *Window) Reset() {
	w.idx = 0
	w.count = 0
	for i := range w.buf {
		w.buf[i] = 0
	}
}
