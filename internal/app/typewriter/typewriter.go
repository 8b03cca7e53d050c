// Package typewriter reveals suggestion text one rune per tick.
package typewriter

import (
	"sync"
	"time"

	"github.com/PabloGalante/farum-journey/internal/clock"
)

const DefaultTick = 30 * time.Millisecond

// Placeholder stands in for an empty visible text to keep the line height.
const Placeholder = "\u00a0"

type Options struct {
	Clock clock.Clock
	Tick  time.Duration
	// OnUpdate receives the visible text whenever it changes: the placeholder
	// when a reveal starts, then the prefix after every tick.
	OnUpdate func(visible string)
	// OnComplete fires once per text, after the last rune is revealed.
	// Both callbacks run with the typewriter locked and must not call back
	// into it.
	OnComplete func()
}

// Typewriter tracks one reveal at a time. Setting a different text abandons
// the running reveal; setting the same text again does nothing.
type Typewriter struct {
	clock      clock.Clock
	tick       time.Duration
	onUpdate   func(string)
	onComplete func()

	mu       sync.Mutex
	text     []rune
	hasText  bool
	revealed int
	gen      uint64
	timer    clock.Timer
	done     bool
	closed   bool
}

func New(opts Options) *Typewriter {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	return &Typewriter{
		clock:      opts.Clock,
		tick:       opts.Tick,
		onUpdate:   opts.OnUpdate,
		onComplete: opts.OnComplete,
	}
}

// SetText starts revealing text from empty.
func (t *Typewriter) SetText(text string) {
	t.mu.Lock()
	if t.closed || (t.hasText && string(t.text) == text) {
		t.mu.Unlock()
		return
	}

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.text = []rune(text)
	t.hasText = true
	t.revealed = 0
	t.done = false

	if t.onUpdate != nil {
		t.onUpdate(Placeholder)
	}
	if len(t.text) == 0 {
		t.done = true
		if t.onComplete != nil {
			t.onComplete()
		}
		t.mu.Unlock()
		return
	}

	gen := t.gen
	t.timer = t.clock.AfterFunc(t.tick, func() { t.step(gen) })
	t.mu.Unlock()
}

// Visible returns the revealed prefix, or the placeholder while the prefix
// is still empty.
func (t *Typewriter) Visible() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visibleLocked()
}

// Done reports whether the current text is fully revealed.
func (t *Typewriter) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Close cancels the pending tick. No callback runs after Close returns.
func (t *Typewriter) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Typewriter) visibleLocked() string {
	if t.revealed == 0 {
		return Placeholder
	}
	return string(t.text[:t.revealed])
}

func (t *Typewriter) step(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.gen {
		t.mu.Unlock()
		return
	}

	t.revealed++
	visible := t.visibleLocked()
	finished := t.revealed >= len(t.text)
	if finished {
		t.done = true
		t.timer = nil
	} else {
		t.timer = t.clock.AfterFunc(t.tick, func() { t.step(gen) })
	}

	// Callbacks run under the lock so Close cannot interleave with them.
	if t.onUpdate != nil {
		t.onUpdate(visible)
	}
	if finished && t.onComplete != nil {
		t.onComplete()
	}
	t.mu.Unlock()
}
