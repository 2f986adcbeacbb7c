package listing

import (
	"context"
	"time"

	"github.com/librettoapp/libretto/pkg/publications"
)

const (
	// DefaultImageBatchSize is how many cover images are fetched per
	// request while hydrating a page.
	DefaultImageBatchSize = 3
	// DefaultImageBatchDelay spaces consecutive image batches so a page
	// load doesn't monopolize the connection.
	DefaultImageBatchDelay = 100 * time.Millisecond
)

// ImageFetcher fetches cover images by id.
type ImageFetcher interface {
	ImagesByIDs(ctx context.Context, ids []int) ([]*publications.Image, error)
}

// ImageLoader hydrates cover images in small sequential batches. Batches
// that already ran are never rolled back: cancellation mid-load leaves the
// page partially hydrated, which is exactly what a superseded request wants.
type ImageLoader struct {
	fetcher    ImageFetcher
	batchSize  int
	batchDelay time.Duration
}

func NewImageLoader(fetcher ImageFetcher, batchSize int, batchDelay time.Duration) *ImageLoader {
	if batchSize <= 0 {
		batchSize = DefaultImageBatchSize
	}
	if batchDelay < 0 {
		batchDelay = DefaultImageBatchDelay
	}
	return &ImageLoader{
		fetcher:    fetcher,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// Load fetches images for the given ids in order, batch by batch, calling
// apply with each batch's results as they arrive. A batch that fails with a
// genuine error is reported through onError and skipped, and loading
// continues with the next one; context cancellation stops the whole load
// and returns the context error.
func (l *ImageLoader) Load(ctx context.Context, ids []int, apply func([]*publications.Image), onError func(error)) error {
	for start := 0; start < len(ids); start += l.batchSize {
		if start > 0 {
			if err := sleepCtx(ctx, l.batchDelay); err != nil {
				return err
			}
		}

		end := start + l.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		images, err := l.fetcher.ImagesByIDs(ctx, ids[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// One failed batch shouldn't lose the rest of the page's
			// covers, but the failure still gets recorded.
			if onError != nil {
				onError(err)
			}
			continue
		}
		apply(images)
	}

	return ctx.Err()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
