// Package listing orchestrates the publication listing: it fetches pages,
// hydrates cover images in batches, keeps a running total, and guarantees
// that when filter changes overlap in flight, only the most recent request
// ever lands in the visible state.
package listing

import (
	"context"
	"sync"
	"time"

	"github.com/librettoapp/libretto/pkg/publications"
	"github.com/pkg/errors"
)

// State is the listing lifecycle. PartiallyLoaded means rows are visible
// but cover images are still hydrating.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePartiallyLoaded
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePartiallyLoaded:
		return "partially_loaded"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Fetcher is the store access the controller needs. *client.Client
// satisfies it.
type Fetcher interface {
	ListPublications(ctx context.Context, opts publications.ListOptions) ([]*publications.Row, error)
	CountPublications(ctx context.Context, opts publications.ListOptions) (int, error)
	ImagesByIDs(ctx context.Context, ids []int) ([]*publications.Image, error)
}

// Snapshot is a point-in-time copy of the listing state. Rows are shared
// with the controller and must be treated as read-only. ImageErr holds the
// most recent failed cover batch; the rows themselves still render, just
// without those covers.
type Snapshot struct {
	State      State
	Options    publications.ListOptions
	Rows       []*publications.Row
	Total      int
	TotalKnown bool
	Err        error
	ImageErr   error
}

// Controller serializes listing requests. Each RequestPage supersedes any
// request still in flight: the old context is cancelled and its results,
// whenever they arrive, are dropped by a generation check before they can
// touch the state.
type Controller struct {
	fetcher Fetcher
	loader  *ImageLoader

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	snap       Snapshot
}

func NewController(fetcher Fetcher) *Controller {
	return NewControllerWithBatching(fetcher, DefaultImageBatchSize, DefaultImageBatchDelay)
}

// NewControllerWithBatching is NewController with image batching knobs
// exposed, mainly for tests.
func NewControllerWithBatching(fetcher Fetcher, batchSize int, batchDelay time.Duration) *Controller {
	return &Controller{
		fetcher: fetcher,
		loader:  NewImageLoader(fetcher, batchSize, batchDelay),
	}
}

// Snapshot returns a copy of the current listing state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// RequestPage loads one page for the given filter snapshot and blocks until
// the page is fully hydrated, superseded, or failed. The total is fetched
// concurrently and lands independently of the rows. Returns nil when the
// request was superseded or cancelled; only genuine failures come back as
// errors.
func (c *Controller) RequestPage(ctx context.Context, opts publications.ListOptions) error {
	opts = opts.Normalize()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.generation++
	gen := c.generation
	c.snap.State = StateLoading
	c.snap.Options = opts
	c.snap.Rows = nil
	c.snap.TotalKnown = false
	c.snap.Err = nil
	c.snap.ImageErr = nil
	c.mu.Unlock()

	// The total is independent of the rows: it can land before or after
	// them, and a count failure never fails the page.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		total, err := c.fetcher.CountPublications(reqCtx, opts)
		if err != nil {
			return
		}
		c.ifCurrent(gen, func(s *Snapshot) {
			s.Total = total
			s.TotalKnown = true
		})
	}()

	rows, err := c.fetcher.ListPublications(reqCtx, opts)
	if err != nil {
		wg.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		c.ifCurrent(gen, func(s *Snapshot) {
			s.State = StateError
			s.Err = err
		})
		return err
	}

	applied := c.ifCurrent(gen, func(s *Snapshot) {
		s.State = StatePartiallyLoaded
		s.Rows = rows
	})
	if !applied {
		wg.Wait()
		return nil
	}

	ids := coverImageIDs(rows)
	_ = c.loader.Load(reqCtx, ids, func(images []*publications.Image) {
		c.ifCurrent(gen, func(s *Snapshot) {
			applyImages(s.Rows, images)
		})
	}, func(batchErr error) {
		c.ifCurrent(gen, func(s *Snapshot) {
			s.ImageErr = batchErr
		})
	})
	wg.Wait()

	// Hydration ends by finishing every batch or by cancellation; either
	// way the page is as loaded as it will get. Already-applied batches
	// stay, and a superseded request is filtered by the generation check.
	c.ifCurrent(gen, func(s *Snapshot) {
		s.State = StateLoaded
	})
	return nil
}

// ifCurrent runs fn against the snapshot only if gen is still the latest
// request, and reports whether it ran.
func (c *Controller) ifCurrent(gen uint64, fn func(*Snapshot)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	fn(&c.snap)
	return true
}

func coverImageIDs(rows []*publications.Row) []int {
	ids := []int{}
	seen := map[int]bool{}
	for _, r := range rows {
		if r.CoverImageID == nil || r.Image != nil || seen[*r.CoverImageID] {
			continue
		}
		ids = append(ids, *r.CoverImageID)
		seen[*r.CoverImageID] = true
	}
	return ids
}

func applyImages(rows []*publications.Row, images []*publications.Image) {
	byID := map[int][]byte{}
	for _, img := range images {
		byID[img.ImageID] = img.Image
	}
	for _, r := range rows {
		if r.CoverImageID == nil || r.Image != nil {
			continue
		}
		if data, ok := byID[*r.CoverImageID]; ok {
			r.Image = data
		}
	}
}
