package suggestion

import (
	"sync"
	"time"

	"github.com/PabloGalante/farum-journey/internal/clock"
)

// Debouncer coalesces repeated triggers per key: only the last call made
// within the quiet period runs. Each pending call carries its own token, so a
// superseded timer that already fired still cannot run its function.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCall
	token   uint64
	stopped bool
}

type pendingCall struct {
	token uint64
	timer clock.Timer
}

func NewDebouncer(c clock.Clock, delay time.Duration) *Debouncer {
	if c == nil {
		c = clock.Real()
	}
	return &Debouncer{
		clock:   c,
		delay:   delay,
		pending: make(map[string]*pendingCall),
	}
}

// Trigger schedules fn for key after the delay, replacing any call still
// pending for the same key.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}

	d.token++
	tok := d.token
	d.pending[key] = &pendingCall{
		token: tok,
		timer: d.clock.AfterFunc(d.delay, func() { d.fire(key, tok, fn) }),
	}
}

// Cancel drops the pending call for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending reports whether a call is waiting for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels every pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

func (d *Debouncer) fire(key string, tok uint64, fn func()) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.token != tok || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	fn()
}
