package table

import (
	"context"
	"sync"
	"time"

	metaform "github.com/eventara/metaform"
)

// DefaultDebounce is the standard delay between the last keystroke and the
// fired search or filter request.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer collapses rapid triggers into one deferred call. Superseding
// triggers and Stop cancel the pending timer.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer builds a debouncer; a non-positive delay uses the default.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, canceling any pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending call. Used on component teardown.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// SearchFunc fetches typeahead candidates for a term.
type SearchFunc func(ctx context.Context, term string) ([]metaform.Record, error)

// Typeahead is a debounced search-as-you-type picker. Every fired request
// carries a monotonically increasing generation; a response is applied only
// when no newer response has been applied before it, so a slow early request
// can never overwrite a fresher result.
type Typeahead struct {
	search   SearchFunc
	onResult func(term string, items []metaform.Record)
	onError  func(term string, err error)
	debounce *Debouncer

	mu      sync.Mutex
	nextGen uint64
	applied uint64
}

// NewTypeahead wires a search function to a result callback.
func NewTypeahead(search SearchFunc, onResult func(string, []metaform.Record)) *Typeahead {
	return &Typeahead{
		search:   search,
		onResult: onResult,
		debounce: NewDebouncer(DefaultDebounce),
	}
}

// OnError installs an optional error callback; lookup failures are otherwise
// swallowed, matching a picker that simply shows no suggestions.
func (t *Typeahead) OnError(fn func(term string, err error)) *Typeahead {
	t.onError = fn
	return t
}

// WithDebounce overrides the keystroke delay (mainly for tests).
func (t *Typeahead) WithDebounce(d time.Duration) *Typeahead {
	t.debounce = NewDebouncer(d)
	return t
}

// Input feeds one keystroke's worth of term. The search fires after the
// debounce window; stale responses are discarded.
func (t *Typeahead) Input(ctx context.Context, term string) {
	t.debounce.Trigger(func() {
		t.fire(ctx, term)
	})
}

// fire runs the search for one generation and applies the result if it is
// still the freshest.
func (t *Typeahead) fire(ctx context.Context, term string) {
	t.mu.Lock()
	t.nextGen++
	gen := t.nextGen
	t.mu.Unlock()

	items, err := t.search(ctx, term)

	t.mu.Lock()
	stale := gen <= t.applied
	if !stale {
		t.applied = gen
	}
	t.mu.Unlock()
	if stale {
		return
	}
	if err != nil {
		if t.onError != nil {
			t.onError(term, err)
		}
		return
	}
	t.onResult(term, items)
}

// Close cancels any pending debounce timer.
func (t *Typeahead) Close() {
	t.debounce.Stop()
}
