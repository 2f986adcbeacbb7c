package matchsearch

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	// MaxResultsPerCategory bounds each category of a match search so the
	// combined response stays popover-sized.
	MaxResultsPerCategory = 4
	// MaxSearchTerms is how many whitespace-separated tokens of the input
	// are used; anything beyond is ignored.
	MaxSearchTerms = 5
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

type BookMatch struct {
	ID    int    `bun:"id" json:"id"`
	Title string `bun:"title" json:"title"`
}

type AuthorMatch struct {
	ID        int    `bun:"id" json:"id"`
	FirstName string `bun:"first_name" json:"first_name"`
	LastName  string `bun:"last_name" json:"last_name"`
}

type GenreMatch struct {
	ID   int    `bun:"id" json:"id"`
	Name string `bun:"name" json:"name"`
}

type MatchSearchResponse struct {
	Books   []BookMatch   `json:"books"`
	Authors []AuthorMatch `json:"authors"`
	Genres  []GenreMatch  `json:"genres"`
}

// MatchSearch searches books, authors, and genres for the given free-text
// input. Returns up to MaxResultsPerCategory results per category. A blank
// input short-circuits without touching the store.
func (svc *Service) MatchSearch(ctx context.Context, input string) (*MatchSearchResponse, error) {
	resp := &MatchSearchResponse{
		Books:   []BookMatch{},
		Authors: []AuthorMatch{},
		Genres:  []GenreMatch{},
	}

	terms := Tokenize(input)
	if len(terms) == 0 {
		return resp, nil
	}

	books, err := svc.searchBooks(ctx, strings.TrimSpace(input), terms)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp.Books = books

	authors, err := svc.searchAuthors(ctx, terms)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp.Authors = authors

	genres, err := svc.searchGenres(ctx, terms)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp.Genres = genres

	return resp, nil
}

// Tokenize splits the input on whitespace and keeps at most MaxSearchTerms
// tokens.
func Tokenize(input string) []string {
	terms := strings.Fields(strings.TrimSpace(input))
	if len(terms) > MaxSearchTerms {
		terms = terms[:MaxSearchTerms]
	}
	return terms
}

// searchBooks runs two passes: first titles containing the whole query as
// one substring, then, if the cap isn't reached, titles matching any
// individual term. Ids from the first pass are excluded from the second so
// a book never appears twice.
func (svc *Service) searchBooks(ctx context.Context, query string, terms []string) ([]BookMatch, error) {
	results := []BookMatch{}
	seenIDs := make(map[int]bool)

	wholeQ := svc.db.NewSelect().
		TableExpr("books AS b").
		ColumnExpr("b.id AS id").
		ColumnExpr("b.title AS title").
		Where("b.title LIKE ? COLLATE NOCASE", "%"+query+"%").
		OrderExpr("b.title ASC, b.id ASC").
		Limit(MaxResultsPerCategory)

	wholeMatches := []BookMatch{}
	if err := wholeQ.Scan(ctx, &wholeMatches); err != nil {
		return nil, errors.WithStack(err)
	}
	for _, m := range wholeMatches {
		results = append(results, m)
		seenIDs[m.ID] = true
	}

	if len(results) >= MaxResultsPerCategory {
		return results, nil
	}

	anyQ := svc.db.NewSelect().
		TableExpr("books AS b").
		ColumnExpr("b.id AS id").
		ColumnExpr("b.title AS title").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, term := range terms {
				q = q.WhereOr("b.title LIKE ? COLLATE NOCASE", "%"+term+"%")
			}
			return q
		})
	if len(seenIDs) > 0 {
		ids := make([]int, 0, len(seenIDs))
		for id := range seenIDs {
			ids = append(ids, id)
		}
		anyQ = anyQ.Where("b.id NOT IN (?)", bun.In(ids))
	}
	anyQ = anyQ.OrderExpr("b.title ASC, b.id ASC").Limit(MaxResultsPerCategory - len(results))

	anyMatches := []BookMatch{}
	if err := anyQ.Scan(ctx, &anyMatches); err != nil {
		return nil, errors.WithStack(err)
	}
	results = append(results, anyMatches...)

	return results, nil
}

// searchAuthors matches any term against either name part.
func (svc *Service) searchAuthors(ctx context.Context, terms []string) ([]AuthorMatch, error) {
	results := []AuthorMatch{}
	q := svc.db.NewSelect().
		TableExpr("authors AS a").
		ColumnExpr("a.id AS id").
		ColumnExpr("a.first_name AS first_name").
		ColumnExpr("a.last_name AS last_name").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, term := range terms {
				pattern := "%" + term + "%"
				q = q.WhereOr("a.first_name LIKE ? COLLATE NOCASE", pattern).
					WhereOr("a.last_name LIKE ? COLLATE NOCASE", pattern)
			}
			return q
		}).
		OrderExpr("a.last_name ASC, a.first_name ASC, a.id ASC").
		Limit(MaxResultsPerCategory)
	if err := q.Scan(ctx, &results); err != nil {
		return nil, errors.WithStack(err)
	}
	return results, nil
}

func (svc *Service) searchGenres(ctx context.Context, terms []string) ([]GenreMatch, error) {
	results := []GenreMatch{}
	q := svc.db.NewSelect().
		TableExpr("genres AS g").
		ColumnExpr("g.id AS id").
		ColumnExpr("g.name AS name").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, term := range terms {
				q = q.WhereOr("g.name LIKE ? COLLATE NOCASE", "%"+term+"%")
			}
			return q
		}).
		OrderExpr("g.name ASC, g.id ASC").
		Limit(MaxResultsPerCategory)
	if err := q.Scan(ctx, &results); err != nil {
		return nil, errors.WithStack(err)
	}
	return results, nil
}
