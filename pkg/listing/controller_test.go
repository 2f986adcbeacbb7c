package listing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/librettoapp/libretto/pkg/publications"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu         sync.Mutex
	rowsFor    func(opts publications.ListOptions) []*publications.Row
	listGate   chan struct{}
	listErr    error
	total      int
	countErr   error
	images     map[int][]byte
	imageCalls [][]int
	imageErrAt int
	batchSeen  chan struct{}
}

func (f *fakeFetcher) ListPublications(ctx context.Context, opts publications.ListOptions) ([]*publications.Row, error) {
	f.mu.Lock()
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-gate:
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	rows := []*publications.Row{}
	for _, r := range f.rowsFor(opts) {
		row := *r
		rows = append(rows, &row)
	}
	return rows, nil
}

func (f *fakeFetcher) CountPublications(ctx context.Context, opts publications.ListOptions) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.total, nil
}

func (f *fakeFetcher) ImagesByIDs(ctx context.Context, ids []int) ([]*publications.Image, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, append([]int{}, ids...))
	call := len(f.imageCalls)
	f.mu.Unlock()

	if f.batchSeen != nil {
		select {
		case f.batchSeen <- struct{}{}:
		default:
		}
	}
	if f.imageErrAt == call {
		return nil, errors.New("image store unavailable")
	}

	images := []*publications.Image{}
	for _, id := range ids {
		if data, ok := f.images[id]; ok {
			images = append(images, &publications.Image{ImageID: id, Image: data})
		}
	}
	return images, nil
}

func (f *fakeFetcher) calls() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int{}, f.imageCalls...)
}

func intp(n int) *int {
	return &n
}

// rowsWithCovers builds n rows with cover image ids 1..n.
func rowsWithCovers(n int) []*publications.Row {
	rows := []*publications.Row{}
	for i := 1; i <= n; i++ {
		rows = append(rows, &publications.Row{ID: i, Title: "Book", CoverImageID: intp(i)})
	}
	return rows
}

func coverData(n int) map[int][]byte {
	images := map[int][]byte{}
	for i := 1; i <= n; i++ {
		images[i] = []byte{byte(i)}
	}
	return images
}

func TestRequestPageLoadsRowsAndImages(t *testing.T) {
	fetcher := &fakeFetcher{
		rowsFor: func(publications.ListOptions) []*publications.Row { return rowsWithCovers(7) },
		total:   42,
		images:  coverData(7),
	}
	c := NewControllerWithBatching(fetcher, 3, time.Millisecond)

	err := c.RequestPage(context.Background(), publications.ListOptions{PageNumber: 1, PageSize: 15})
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.NoError(t, snap.ImageErr)
	assert.Equal(t, 42, snap.Total)
	assert.True(t, snap.TotalKnown)
	require.Len(t, snap.Rows, 7)
	for _, r := range snap.Rows {
		assert.NotNil(t, r.Image)
	}

	// Images went out in order, three ids at a time.
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, fetcher.calls())
}

func TestRequestPageSkipsFailedImageBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		rowsFor:    func(publications.ListOptions) []*publications.Row { return rowsWithCovers(7) },
		images:     coverData(7),
		imageErrAt: 2,
	}
	c := NewControllerWithBatching(fetcher, 3, time.Millisecond)

	err := c.RequestPage(context.Background(), publications.ListOptions{})
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	// Batch two failed; its rows stay without covers, the rest hydrated,
	// and the failure is recorded without failing the page.
	assert.NotNil(t, snap.Rows[0].Image)
	assert.Nil(t, snap.Rows[3].Image)
	assert.Nil(t, snap.Rows[4].Image)
	assert.NotNil(t, snap.Rows[6].Image)
	assert.Len(t, fetcher.calls(), 3)
	require.Error(t, snap.ImageErr)
	assert.Contains(t, snap.ImageErr.Error(), "image store unavailable")
	assert.NoError(t, snap.Err)
}

func TestRequestPageLastRequestWins(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{
		rowsFor: func(opts publications.ListOptions) []*publications.Row {
			return []*publications.Row{{ID: opts.PageNumber * 100}}
		},
		listGate: gate,
		total:    1,
		images:   map[int][]byte{},
	}
	c := NewControllerWithBatching(fetcher, 3, time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	firstErr := error(nil)
	go func() {
		defer wg.Done()
		firstErr = c.RequestPage(context.Background(), publications.ListOptions{PageNumber: 1, PageSize: 15})
	}()

	// Wait for the first request to be in flight, then supersede it.
	require.Eventually(t, func() bool {
		return c.Snapshot().State == StateLoading
	}, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Unblock the fetch once the second request has been issued.
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	err := c.RequestPage(context.Background(), publications.ListOptions{PageNumber: 2, PageSize: 15})
	require.NoError(t, err)
	wg.Wait()
	<-done

	// The superseded request is silent, and only page two's row is
	// visible.
	assert.NoError(t, firstErr)
	snap := c.Snapshot()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, 200, snap.Rows[0].ID)
	assert.Equal(t, StateLoaded, snap.State)
}

func TestRequestPageCancelledMidHydrationKeepsAppliedBatches(t *testing.T) {
	fetcher := &fakeFetcher{
		rowsFor:   func(publications.ListOptions) []*publications.Row { return rowsWithCovers(6) },
		images:    coverData(6),
		batchSeen: make(chan struct{}, 1),
	}
	// A long inter-batch delay leaves a window to cancel in.
	c := NewControllerWithBatching(fetcher, 3, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-fetcher.batchSeen
		cancel()
	}()

	err := c.RequestPage(ctx, publications.ListOptions{})
	require.NoError(t, err)

	snap := c.Snapshot()
	// Cancellation ends hydration: the request settles as loaded with
	// whatever covers made it in.
	assert.Equal(t, StateLoaded, snap.State)
	// The first batch landed before the cancel and stays applied.
	assert.NotNil(t, snap.Rows[0].Image)
	assert.NotNil(t, snap.Rows[2].Image)
	assert.Nil(t, snap.Rows[3].Image)
	assert.Len(t, fetcher.calls(), 1)
}

func TestRequestPageCountFailureDoesNotFailPage(t *testing.T) {
	fetcher := &fakeFetcher{
		rowsFor:  func(publications.ListOptions) []*publications.Row { return rowsWithCovers(2) },
		countErr: errors.New("count exploded"),
		images:   coverData(2),
	}
	c := NewControllerWithBatching(fetcher, 3, time.Millisecond)

	err := c.RequestPage(context.Background(), publications.ListOptions{})
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.False(t, snap.TotalKnown)
}

func TestRequestPageGenuineErrorSurfacesAsErrorState(t *testing.T) {
	fetcher := &fakeFetcher{
		listErr: errors.New("store down"),
	}
	c := NewControllerWithBatching(fetcher, 3, time.Millisecond)

	err := c.RequestPage(context.Background(), publications.ListOptions{})
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Error(t, snap.Err)
}

func TestImageLoaderSkipsAlreadyHydratedRows(t *testing.T) {
	rows := rowsWithCovers(3)
	rows[1].Image = []byte("already")

	ids := coverImageIDs(rows)
	assert.Equal(t, []int{1, 3}, ids)

	applyImages(rows, []*publications.Image{
		{ImageID: 1, Image: []byte("one")},
		{ImageID: 3, Image: []byte("three")},
	})
	assert.Equal(t, []byte("one"), rows[0].Image)
	assert.Equal(t, []byte("already"), rows[1].Image)
	assert.Equal(t, []byte("three"), rows[2].Image)
}
