package watch

import (
	"sync"
	"time"
)

// Debouncer collects library-root IDs whose contents changed and
// emits them as a batch after a quiet period. A burst of filesystem
// events during an imaging session collapses into one rescan per
// root.
type Debouncer struct {
	interval time.Duration
	pending  map[string]bool
	mu       sync.Mutex
	timer    *time.Timer
	output   chan []string
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]bool),
		output:   make(chan []string, 4),
	}
}

// Output returns the channel that receives batches of root IDs.
func (d *Debouncer) Output() <-chan []string {
	return d.output
}

// Add marks a root as dirty and restarts the quiet-period timer.
func (d *Debouncer) Add(rootID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[rootID] = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return
	}

	batch := make([]string, 0, len(d.pending))
	for rootID := range d.pending {
		batch = append(batch, rootID)
	}
	d.pending = make(map[string]bool)
	d.output <- batch
}
