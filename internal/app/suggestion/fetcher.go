package suggestion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/farum-journey/internal/clock"
	"github.com/PabloGalante/farum-journey/internal/domain"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

// FailureMessage is the only error text users ever see for a failed fetch.
const FailureMessage = "We couldn't fetch a suggestion right now. Please try again."

const DefaultDelay = 800 * time.Millisecond

var errEmptySuggestion = errors.New("empty suggestion text")

// Status is the per-key fetch state. Error is nil when the last fetch
// succeeded or none has run yet.
type Status struct {
	Loading bool    `json:"loading"`
	Error   *string `json:"error"`
}

// ResultFunc receives the text of a successful fetch. It runs outside the
// fetcher's state lock, one result at a time, so status reads never wait on
// it. It must not call Close or Wait.
type ResultFunc func(key string, text string)

type Options struct {
	Clock clock.Clock
	Delay time.Duration
	// Timeout bounds a single call. Zero means no timeout.
	Timeout time.Duration
}

type keyState struct {
	seq     uint64
	loading bool
	err     *string
}

// Fetcher debounces suggestion requests per key and records their outcome.
// Responses are sequenced per key: a response that arrives after a newer
// request has been sent for the same key is dropped.
type Fetcher struct {
	client    domain.SuggestionClient
	onResult  ResultFunc
	debouncer *Debouncer
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	state  map[string]*keyState
	closed bool

	// deliver orders result callbacks. Taken while mu is held, released
	// after the callback, so a newer result for a key never lands first.
	deliver sync.Mutex
}

func NewFetcher(client domain.SuggestionClient, onResult ResultFunc, opts Options) *Fetcher {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Fetcher{
		client:    client,
		onResult:  onResult,
		debouncer: NewDebouncer(opts.Clock, opts.Delay),
		timeout:   opts.Timeout,
		ctx:       ctx,
		cancel:    cancel,
		state:     make(map[string]*keyState),
	}
}

// Request asks for a suggestion under key once input has been quiet for the
// configured delay. Earlier pending requests for the same key are dropped.
func (f *Fetcher) Request(key string, req domain.SuggestionRequest) {
	f.debouncer.Trigger(key, func() { f.start(key, req) })
}

// Cancel drops a request for key that is still waiting out its delay.
func (f *Fetcher) Cancel(key string) {
	f.debouncer.Cancel(key)
}

// Status returns the fetch state for key.
func (f *Fetcher) Status(key string) Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.state[key]
	if !ok {
		return Status{}
	}
	return Status{Loading: st.loading, Error: st.err}
}

// Statuses returns the fetch state of every key that has been fetched.
func (f *Fetcher) Statuses() map[string]Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]Status, len(f.state))
	for k, st := range f.state {
		out[k] = Status{Loading: st.loading, Error: st.err}
	}
	return out
}

// Wait blocks until every call already sent has returned.
func (f *Fetcher) Wait() {
	f.wg.Wait()
}

// Close drops pending requests, cancels in-flight calls and waits for them.
func (f *Fetcher) Close() {
	f.debouncer.Stop()

	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.cancel()
	f.wg.Wait()
}

func (f *Fetcher) start(key string, req domain.SuggestionRequest) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	st, ok := f.state[key]
	if !ok {
		st = &keyState{}
		f.state[key] = st
	}
	st.seq++
	seq := st.seq
	st.loading = true
	st.err = nil
	f.wg.Add(1)
	f.mu.Unlock()

	go f.call(key, seq, req)
}

func (f *Fetcher) call(key string, seq uint64, req domain.SuggestionRequest) {
	defer f.wg.Done()

	ctx := f.ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	log := observability.LoggerFromContext(ctx).With("suggestion_key", key, "seq", seq)

	text, err := f.client.Suggest(ctx, req)

	f.mu.Lock()
	st := f.state[key]
	if st.seq != seq {
		f.mu.Unlock()
		log.Info("dropping stale suggestion", "current_seq", st.seq)
		return
	}
	st.loading = false

	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptySuggestion
	}
	if err != nil {
		msg := FailureMessage
		st.err = &msg
		f.mu.Unlock()
		log.Error("suggestion fetch failed", "error", err)
		return
	}
	if f.onResult == nil {
		f.mu.Unlock()
		return
	}

	f.deliver.Lock()
	f.mu.Unlock()
	defer f.deliver.Unlock()
	f.onResult(key, text)
}
