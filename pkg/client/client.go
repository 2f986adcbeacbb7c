// Package client is a typed HTTP client for the listing and search API. It
// is what the listing orchestrator and search controller fetch through, and
// it propagates context cancellation so a superseded request can be torn
// down cheaply.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/librettoapp/libretto/pkg/matchsearch"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/librettoapp/libretto/pkg/publications"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends the given bearer token on every request. Required for the
// staff-only endpoints.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// ListPublications fetches one listing page.
func (c *Client) ListPublications(ctx context.Context, opts publications.ListOptions) ([]*publications.Row, error) {
	q := url.Values{}
	q.Set("pageNumber", strconv.Itoa(opts.PageNumber))
	q.Set("pageSize", strconv.Itoa(opts.PageSize))
	q.Set("availability", opts.Availability.String())
	q.Set("sort", opts.Sort.String())
	setIDParam(q, "bookId", opts.BookID)
	setIDParam(q, "authorId", opts.AuthorID)
	setIDParam(q, "genreId", opts.GenreID)

	resp := struct {
		Publications []*publications.Row `json:"publications"`
	}{}
	if err := c.get(ctx, "/publications", q, &resp); err != nil {
		return nil, err
	}
	return resp.Publications, nil
}

// CountPublications fetches the total for the same filters as
// ListPublications.
func (c *Client) CountPublications(ctx context.Context, opts publications.ListOptions) (int, error) {
	q := url.Values{}
	if opts.Availability == publications.AvailabilityAvailableOnly {
		q.Set("onlyAvailable", "true")
	}
	setIDParam(q, "bookId", opts.BookID)
	setIDParam(q, "authorId", opts.AuthorID)
	setIDParam(q, "genreId", opts.GenreID)

	resp := struct {
		Total int `json:"total"`
	}{}
	if err := c.get(ctx, "/publications/count", q, &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// ImagesByIDs fetches cover images for the given ids.
func (c *Client) ImagesByIDs(ctx context.Context, ids []int) ([]*publications.Image, error) {
	q := url.Values{}
	for _, id := range ids {
		q.Add("ids", strconv.Itoa(id))
	}

	resp := struct {
		Images []*publications.Image `json:"images"`
	}{}
	if err := c.get(ctx, "/publications/image_ids", q, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// RetrievePublication fetches a single listing row by id.
func (c *Client) RetrievePublication(ctx context.Context, id int) (*publications.Row, error) {
	row := &publications.Row{}
	if err := c.get(ctx, "/publications/"+strconv.Itoa(id), nil, row); err != nil {
		return nil, err
	}
	return row, nil
}

// RetrieveDetails fetches the full detail view for a publication.
func (c *Client) RetrieveDetails(ctx context.Context, id int) (*publications.Details, error) {
	details := &publications.Details{}
	if err := c.get(ctx, "/publications/details/"+strconv.Itoa(id), nil, details); err != nil {
		return nil, err
	}
	return details, nil
}

// MatchSearch runs a free-text search across books, authors, and genres.
func (c *Client) MatchSearch(ctx context.Context, input string) (*matchsearch.MatchSearchResponse, error) {
	q := url.Values{}
	q.Set("query", input)

	resp := &matchsearch.MatchSearchResponse{}
	if err := c.get(ctx, "/matchsearch", q, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SearchPeopleByEmail finds patrons by email prefix. Staff-only on the
// server side, so the client needs a token.
func (c *Client) SearchPeopleByEmail(ctx context.Context, email string) ([]*models.Person, error) {
	q := url.Values{}
	q.Set("email", email)

	resp := struct {
		Persons []*models.Person `json:"persons"`
	}{}
	if err := c.get(ctx, "/persons", q, &resp); err != nil {
		return nil, err
	}
	return resp.Persons, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Keep the raw context error visible so callers can tell a
		// superseded request from a genuine failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.WithStack(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.WithStack(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		envelope := struct {
			Error APIError `json:"error"`
		}{}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.StatusCode == 0 {
			return errors.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}
		return &envelope.Error
	}

	return errors.WithStack(json.Unmarshal(body, out))
}

func setIDParam(q url.Values, name string, id *int) {
	if id != nil {
		q.Set(name, strconv.Itoa(*id))
	}
}
