package performance

import "sync"

// Window is a fixed-capacity FIFO ring of samples. Once full, each Add
// evicts the oldest sample. It is safe for concurrent use.
type Window struct {
	mu    sync.Mutex
	buf   []float64
	start int
	n     int
}

// NewWindow creates a window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{buf: make([]float64, capacity)}
}

// Add appends v and returns a copy of the window contents after insertion,
// oldest first. Append, eviction and the copy happen under one lock.
func (w *Window) Add(v float64) []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
	} else {
		w.buf[w.start] = v
		w.start = (w.start + 1) % len(w.buf)
	}
	return w.valuesLocked()
}

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.valuesLocked()
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

func (w *Window) valuesLocked() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}
