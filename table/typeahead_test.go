package table

import (
	"context"
	"sync"
	"testing"
	"time"

	metaform "github.com/eventara/metaform"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCollapsesTriggers(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var mu sync.Mutex
	calls := 0

	for range 5 {
		d.Trigger(func() {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	fired := make(chan struct{}, 1)
	d.Trigger(func() { fired <- struct{}{} })
	d.Stop()

	select {
	case <-fired:
		t.Fatal("stopped trigger still fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestTypeaheadDebouncedSearch(t *testing.T) {
	var mu sync.Mutex
	var searched []string
	results := make(chan string, 1)

	ta := NewTypeahead(func(_ context.Context, term string) ([]metaform.Record, error) {
		mu.Lock()
		searched = append(searched, term)
		mu.Unlock()
		return []metaform.Record{{"name": term}}, nil
	}, func(term string, items []metaform.Record) {
		results <- term
	}).WithDebounce(20 * time.Millisecond)
	defer ta.Close()

	ta.Input(t.Context(), "r")
	ta.Input(t.Context(), "ro")
	ta.Input(t.Context(), "rock")

	select {
	case term := <-results:
		require.Equal(t, "rock", term)
	case <-time.After(time.Second):
		t.Fatal("typeahead never fired")
	}

	// Only the final keystroke survived the debounce window.
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"rock"}, searched)
}

// A slow early response must never overwrite a fresher one, regardless of
// arrival order.
func TestTypeaheadDiscardsStaleResponse(t *testing.T) {
	release := map[string]chan struct{}{
		"slow": make(chan struct{}),
		"fast": make(chan struct{}),
	}
	var mu sync.Mutex
	var applied []string

	ta := NewTypeahead(func(_ context.Context, term string) ([]metaform.Record, error) {
		<-release[term]
		return nil, nil
	}, func(term string, _ []metaform.Record) {
		mu.Lock()
		applied = append(applied, term)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); ta.fire(context.Background(), "slow") }()
	time.Sleep(10 * time.Millisecond)
	go func() { defer wg.Done(); ta.fire(context.Background(), "fast") }()
	time.Sleep(10 * time.Millisecond)

	// The newer request completes first; the older one returns afterwards.
	close(release["fast"])
	time.Sleep(20 * time.Millisecond)
	close(release["slow"])
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"fast"}, applied)
}

func TestTypeaheadErrorCallback(t *testing.T) {
	errs := make(chan error, 1)
	ta := NewTypeahead(func(context.Context, string) ([]metaform.Record, error) {
		return nil, context.DeadlineExceeded
	}, func(string, []metaform.Record) {
		t.Error("result callback must not run on failure")
	}).OnError(func(_ string, err error) {
		errs <- err
	}).WithDebounce(time.Millisecond)
	defer ta.Close()

	ta.Input(t.Context(), "x")
	select {
	case err := <-errs:
		require.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("error callback never fired")
	}
}
