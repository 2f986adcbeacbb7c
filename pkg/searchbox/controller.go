// Package searchbox drives the incremental search input: it debounces
// keystrokes, issues match searches, and guarantees that out-of-order
// responses can never overwrite a newer one.
package searchbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/librettoapp/libretto/pkg/matchsearch"
)

const (
	// DefaultDebounce is how long input must be stable before a search is
	// issued.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultBlurGrace keeps suggestions open briefly after focus loss so
	// a click on a suggestion still lands.
	DefaultBlurGrace = 200 * time.Millisecond
)

// Searcher issues a match search. *client.Client satisfies it.
type Searcher interface {
	MatchSearch(ctx context.Context, input string) (*matchsearch.MatchSearchResponse, error)
}

// Selection is one confirmed choice. A zero Category and ID mean the user
// accepted their typed text as-is rather than picking a suggestion.
type Selection struct {
	Category string
	ID       int
	Label    string
}

// Snapshot is a point-in-time copy of the search box state.
type Snapshot struct {
	Input     string
	Open      bool
	Searching bool
	Results   *matchsearch.MatchSearchResponse
	Selection *Selection
	Err       error
}

// Controller owns the search box lifecycle. Every issued search carries a
// request id; a response is applied only while its id is still the latest,
// so a slow early response can't clobber a fast late one.
type Controller struct {
	searcher  Searcher
	debounce  time.Duration
	blurGrace time.Duration

	mu            sync.Mutex
	snap          Snapshot
	reqID         uint64
	cancel        context.CancelFunc
	debounceTimer *time.Timer
	blurTimer     *time.Timer
}

func NewController(searcher Searcher) *Controller {
	return NewControllerWithTimings(searcher, DefaultDebounce, DefaultBlurGrace)
}

// NewControllerWithTimings is NewController with the debounce and blur
// grace periods exposed, mainly for tests.
func NewControllerWithTimings(searcher Searcher, debounce, blurGrace time.Duration) *Controller {
	return &Controller{
		searcher:  searcher,
		debounce:  debounce,
		blurGrace: blurGrace,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// SetInput records a keystroke. Blank input clears results and cancels any
// pending or in-flight search immediately; anything else restarts the
// debounce window.
func (c *Controller) SetInput(input string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Input = input
	c.snap.Selection = nil
	c.stopDebounceLocked()

	if strings.TrimSpace(input) == "" {
		c.supersedeLocked()
		c.snap.Open = false
		c.snap.Searching = false
		c.snap.Results = nil
		c.snap.Err = nil
		return
	}

	c.debounceTimer = time.AfterFunc(c.debounce, func() {
		c.startSearch(input)
	})
}

// Focus reopens the suggestion popover if there is anything to show, and
// cancels a pending blur close.
func (c *Controller) Focus() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.blurTimer != nil {
		c.blurTimer.Stop()
		c.blurTimer = nil
	}
	if c.snap.Results != nil {
		c.snap.Open = true
	}
}

// Blur schedules the popover to close after the grace period unless focus
// comes back first.
func (c *Controller) Blur() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.blurTimer != nil {
		c.blurTimer.Stop()
	}
	c.blurTimer = time.AfterFunc(c.blurGrace, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.blurTimer = nil
		c.snap.Open = false
	})
}

// Select confirms a suggestion: the input takes its label, the popover
// closes, and any pending or in-flight search is dropped.
func (c *Controller) Select(sel Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopDebounceLocked()
	c.supersedeLocked()
	c.snap.Input = sel.Label
	c.snap.Selection = &sel
	c.snap.Open = false
	c.snap.Searching = false
}

// Confirm accepts the current input as-is: any pending or in-flight search
// is dropped, the popover closes, and the trimmed text is recorded as a
// free-text selection. Blank input just closes.
func (c *Controller) Confirm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopDebounceLocked()
	c.supersedeLocked()
	c.snap.Open = false
	c.snap.Searching = false

	trimmed := strings.TrimSpace(c.snap.Input)
	if trimmed == "" {
		return
	}
	c.snap.Selection = &Selection{Label: trimmed}
}

// Close tears down timers and any in-flight search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopDebounceLocked()
	if c.blurTimer != nil {
		c.blurTimer.Stop()
		c.blurTimer = nil
	}
	c.supersedeLocked()
	c.snap.Searching = false
}

func (c *Controller) startSearch(input string) {
	c.mu.Lock()
	c.supersedeLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.reqID++
	id := c.reqID
	c.snap.Searching = true
	c.mu.Unlock()

	go func() {
		defer cancel()
		results, err := c.searcher.MatchSearch(ctx, input)

		c.mu.Lock()
		defer c.mu.Unlock()
		if id != c.reqID {
			// A newer search owns the state now.
			return
		}
		c.snap.Searching = false
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.snap.Err = err
			return
		}
		c.snap.Err = nil
		c.snap.Results = results
		c.snap.Open = true
	}()
}

func (c *Controller) stopDebounceLocked() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
}

func (c *Controller) supersedeLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.reqID++
}
