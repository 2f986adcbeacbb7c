package publications

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	// MaxPageSize bounds a single listing page; out-of-range requests clamp
	// to it instead of failing.
	MaxPageSize = 15
	// MaxImageIDsPerRequest bounds one image_ids fetch.
	MaxImageIDsPerRequest = 10
)

// Availability filters the listing to publications with a loanable copy.
type Availability int

const (
	AvailabilityAll Availability = iota
	AvailabilityAvailableOnly
)

func ParseAvailability(s string) Availability {
	if strings.ToLower(s) == "available_only" {
		return AvailabilityAvailableOnly
	}
	return AvailabilityAll
}

func (a Availability) String() string {
	if a == AvailabilityAvailableOnly {
		return "available_only"
	}
	return "all"
}

// Sort selects the listing order. Every ordering carries id ASC as the final
// tie-break so pagination is stable across identical requests.
type Sort int

const (
	SortNone Sort = iota
	SortTitleAsc
	SortTitleDesc
	SortYearAsc
	SortYearDesc
	SortPopular
)

func ParseSort(s string) Sort {
	switch strings.ToLower(s) {
	case "title_asc":
		return SortTitleAsc
	case "title_desc":
		return SortTitleDesc
	case "year_asc":
		return SortYearAsc
	case "year_desc":
		return SortYearDesc
	case "popular":
		return SortPopular
	default:
		return SortNone
	}
}

func (s Sort) String() string {
	switch s {
	case SortTitleAsc:
		return "title_asc"
	case SortTitleDesc:
		return "title_desc"
	case SortYearAsc:
		return "year_asc"
	case SortYearDesc:
		return "year_desc"
	case SortPopular:
		return "popular"
	default:
		return "none"
	}
}

// ListOptions is one immutable snapshot of the listing filter. Callers pass
// it by value so an in-flight query never observes later mutations.
type ListOptions struct {
	Availability Availability
	Sort         Sort
	BookID       *int
	AuthorID     *int
	GenreID      *int
	PageNumber   int
	PageSize     int
}

// Normalize clamps pagination to valid bounds: page numbers below 1 become
// 1, page sizes outside (0, MaxPageSize] become MaxPageSize.
func (o ListOptions) Normalize() ListOptions {
	if o.PageNumber < 1 {
		o.PageNumber = 1
	}
	if o.PageSize < 1 || o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

// Validate rejects negative entity id filters before the store is touched.
func (o ListOptions) Validate() error {
	if o.BookID != nil && *o.BookID < 0 {
		return errcodes.ValidationError(`"bookId" must be greater than or equal to 0`)
	}
	if o.AuthorID != nil && *o.AuthorID < 0 {
		return errcodes.ValidationError(`"authorId" must be greater than or equal to 0`)
	}
	if o.GenreID != nil && *o.GenreID < 0 {
		return errcodes.ValidationError(`"genreId" must be greater than or equal to 0`)
	}
	return nil
}

// Row is one listing entry. Image stays nil until the cover is fetched.
type Row struct {
	ID           int    `bun:"id" json:"id"`
	Title        string `bun:"title" json:"title"`
	Authors      string `bun:"-" json:"authors"`
	Publisher    string `bun:"publisher" json:"publisher"`
	Year         int    `bun:"year" json:"year"`
	CoverImageID *int   `bun:"cover_image_id" json:"cover_image_id"`
	Image        []byte `bun:"-" json:"image,omitempty"`

	bookID int
}

// Image is one cover image payload keyed by its id.
type Image struct {
	ImageID int    `bun:"id" json:"image_id"`
	Image   []byte `bun:"image" json:"image"`
}

// Details is the single-publication detail view.
type Details struct {
	PublicationID int      `json:"publication_id"`
	BookID        int      `json:"book_id"`
	BookTitle     string   `json:"book_title"`
	PublisherID   int      `json:"publisher_id"`
	PublisherName string   `json:"publisher_name"`
	LanguageID    int      `json:"language_id"`
	LanguageName  string   `json:"language_name"`
	AuthorIDs     []int    `json:"author_ids"`
	AuthorNames   []string `json:"author_names"`
	GenreIDs      []int    `json:"genre_ids"`
	GenreNames    []string `json:"genre_names"`
	CoverImageID  *int     `json:"cover_image_id"`
	ISBN          string   `json:"isbn"`
	Year          int      `json:"year"`
	EditionNumber int      `json:"edition_number"`
	PageCount     int      `json:"page_count"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// ListPublications returns one page of listing rows for the given filter
// snapshot. Pagination is clamped, id filters validated, and the ordering
// always ends on id ASC so repeated identical requests page consistently.
func (svc *Service) ListPublications(ctx context.Context, opts ListOptions) ([]*Row, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	rows := []*Row{}
	q := svc.db.NewSelect().
		TableExpr("publications AS p").
		ColumnExpr("p.id AS id").
		ColumnExpr("b.title AS title").
		ColumnExpr("pu.name AS publisher").
		ColumnExpr("p.year AS year").
		ColumnExpr("p.cover_image_id AS cover_image_id").
		ColumnExpr("p.book_id AS book_id").
		Join("JOIN books b ON b.id = p.book_id").
		Join("JOIN publishers pu ON pu.id = p.publisher_id")

	q = applyFilters(q, opts)
	q = applySort(q, opts.Sort)
	q = q.Limit(opts.PageSize).Offset((opts.PageNumber - 1) * opts.PageSize)

	type scanRow struct {
		Row
		BookID int `bun:"book_id"`
	}
	scanned := []scanRow{}
	if err := q.Scan(ctx, &scanned); err != nil {
		return nil, errors.WithStack(err)
	}
	for i := range scanned {
		r := scanned[i].Row
		r.bookID = scanned[i].BookID
		rows = append(rows, &r)
	}

	if err := svc.populateAuthors(ctx, rows); err != nil {
		return nil, errors.WithStack(err)
	}

	return rows, nil
}

// CountPublications returns the total matching the same filters as
// ListPublications, ignoring pagination.
func (svc *Service) CountPublications(ctx context.Context, opts ListOptions) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}

	q := svc.db.NewSelect().
		TableExpr("publications AS p").
		ColumnExpr("COUNT(*)")
	q = applyFilters(q, opts)

	var count int
	err := q.Scan(ctx, &count)
	return count, errors.WithStack(err)
}

// RetrievePublication returns the main-info row for one publication,
// including its cover image bytes.
func (svc *Service) RetrievePublication(ctx context.Context, id int) (*Row, error) {
	pub := &models.Publication{}
	err := svc.db.NewSelect().
		Model(pub).
		Relation("Book").
		Relation("Book.Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("ba.sort_order ASC")
		}).
		Relation("Book.Authors.Author").
		Relation("Publisher").
		Relation("CoverImage").
		Where("p.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Publication")
		}
		return nil, errors.WithStack(err)
	}

	row := &Row{
		ID:           pub.ID,
		Title:        pub.Book.Title,
		Authors:      joinAuthorNames(pub.Book.Authors),
		Publisher:    pub.Publisher.Name,
		Year:         pub.Year,
		CoverImageID: pub.CoverImageID,
	}
	if pub.CoverImage != nil {
		row.Image = pub.CoverImage.Image
	}
	return row, nil
}

// RetrieveDetails returns the full detail view for one publication.
func (svc *Service) RetrieveDetails(ctx context.Context, id int) (*Details, error) {
	pub := &models.Publication{}
	err := svc.db.NewSelect().
		Model(pub).
		Relation("Book").
		Relation("Book.Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("ba.sort_order ASC")
		}).
		Relation("Book.Authors.Author").
		Relation("Book.Genres").
		Relation("Book.Genres.Genre").
		Relation("Publisher").
		Relation("Language").
		Where("p.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Publication")
		}
		return nil, errors.WithStack(err)
	}

	details := &Details{
		PublicationID: pub.ID,
		BookID:        pub.BookID,
		BookTitle:     pub.Book.Title,
		PublisherID:   pub.PublisherID,
		PublisherName: pub.Publisher.Name,
		LanguageID:    pub.LanguageID,
		LanguageName:  pub.Language.Name,
		AuthorIDs:     []int{},
		AuthorNames:   []string{},
		GenreIDs:      []int{},
		GenreNames:    []string{},
		CoverImageID:  pub.CoverImageID,
		ISBN:          pub.ISBN,
		Year:          pub.Year,
		EditionNumber: pub.EditionNumber,
		PageCount:     pub.PageCount,
	}
	for _, ba := range pub.Book.Authors {
		if ba.Author == nil {
			continue
		}
		details.AuthorIDs = append(details.AuthorIDs, ba.Author.ID)
		details.AuthorNames = append(details.AuthorNames, ba.Author.FullName())
	}
	for _, bg := range pub.Book.Genres {
		if bg.Genre == nil {
			continue
		}
		details.GenreIDs = append(details.GenreIDs, bg.Genre.ID)
		details.GenreNames = append(details.GenreNames, bg.Genre.Name)
	}
	return details, nil
}

// ImagesByIDs fetches cover images for up to MaxImageIDsPerRequest ids. Ids
// with no stored image are simply absent from the result, not errors.
func (svc *Service) ImagesByIDs(ctx context.Context, ids []int) ([]*Image, error) {
	if len(ids) == 0 {
		return nil, errcodes.ValidationError("At least one image id must be provided.")
	}
	if len(ids) > MaxImageIDsPerRequest {
		return nil, errcodes.ValidationError(`"ids" length must be less than or equal to 10 elements`)
	}

	images := []*Image{}
	err := svc.db.NewSelect().
		TableExpr("cover_images AS ci").
		ColumnExpr("ci.id AS id").
		ColumnExpr("ci.image AS image").
		Where("ci.id IN (?)", bun.In(ids)).
		Scan(ctx, &images)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return images, nil
}

// UploadCover stores image bytes for a publication, replacing any previous
// cover.
func (svc *Service) UploadCover(ctx context.Context, publicationID int, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errcodes.ValidationError("Cover image can't be empty.")
	}

	pub := &models.Publication{}
	err := svc.db.NewSelect().
		Model(pub).
		Where("p.id = ?", publicationID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errcodes.NotFound("Publication")
		}
		return 0, errors.WithStack(err)
	}

	var imageID int
	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		img := &models.CoverImage{Image: data}
		if pub.CoverImageID != nil {
			img.ID = *pub.CoverImageID
			_, err := tx.NewUpdate().
				Model(img).
				Column("image").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		} else {
			_, err := tx.NewInsert().
				Model(img).
				Returning("*").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			pub.CoverImageID = &img.ID
			pub.UpdatedAt = time.Now()
			_, err = tx.NewUpdate().
				Model(pub).
				Column("cover_image_id", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		imageID = img.ID
		return nil
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return imageID, nil
}

// applyFilters composes the availability predicate and the optional id
// equality filters. A publication is available when at least one of its
// copies has no open loan (returned_at NULL or in the future).
func applyFilters(q *bun.SelectQuery, opts ListOptions) *bun.SelectQuery {
	if opts.Availability == AvailabilityAvailableOnly {
		q = q.Where(`EXISTS (
			SELECT 1 FROM copies c
			WHERE c.publication_id = p.id
			AND NOT EXISTS (
				SELECT 1 FROM loans l
				WHERE l.copy_id = c.id
				AND (l.returned_at IS NULL OR l.returned_at > ?)
			)
		)`, time.Now())
	}

	if opts.BookID != nil {
		q = q.Where("p.book_id = ?", *opts.BookID)
	}
	if opts.AuthorID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM book_authors ba WHERE ba.book_id = p.book_id AND ba.author_id = ?)", *opts.AuthorID)
	}
	if opts.GenreID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM book_genres bg WHERE bg.book_id = p.book_id AND bg.genre_id = ?)", *opts.GenreID)
	}

	return q
}

func applySort(q *bun.SelectQuery, sort Sort) *bun.SelectQuery {
	switch sort {
	case SortTitleAsc:
		return q.OrderExpr("b.title ASC, p.id ASC")
	case SortTitleDesc:
		return q.OrderExpr("b.title DESC, p.id ASC")
	case SortYearAsc:
		return q.OrderExpr("p.year ASC, p.id ASC")
	case SortYearDesc:
		return q.OrderExpr("p.year DESC, p.id ASC")
	case SortPopular:
		// Popularity is total historical loan count across all copies.
		return q.OrderExpr(`(
			SELECT COUNT(*) FROM loans l
			JOIN copies c ON c.id = l.copy_id
			WHERE c.publication_id = p.id
		) DESC, p.id ASC`)
	default:
		return q.OrderExpr("p.id ASC")
	}
}

// populateAuthors fills Row.Authors for a page of rows with one query,
// joining names in sort order and dropping duplicates.
func (svc *Service) populateAuthors(ctx context.Context, rows []*Row) error {
	if len(rows) == 0 {
		return nil
	}

	bookIDs := make([]int, 0, len(rows))
	seen := map[int]bool{}
	for _, r := range rows {
		if !seen[r.bookID] {
			bookIDs = append(bookIDs, r.bookID)
			seen[r.bookID] = true
		}
	}

	type bookAuthor struct {
		BookID    int    `bun:"book_id"`
		FirstName string `bun:"first_name"`
		LastName  string `bun:"last_name"`
	}
	bookAuthors := []bookAuthor{}
	err := svc.db.NewSelect().
		TableExpr("book_authors AS ba").
		ColumnExpr("ba.book_id AS book_id").
		ColumnExpr("a.first_name AS first_name").
		ColumnExpr("a.last_name AS last_name").
		Join("JOIN authors a ON a.id = ba.author_id").
		Where("ba.book_id IN (?)", bun.In(bookIDs)).
		OrderExpr("ba.book_id ASC, ba.sort_order ASC").
		Scan(ctx, &bookAuthors)
	if err != nil {
		return errors.WithStack(err)
	}

	names := map[int][]string{}
	for _, ba := range bookAuthors {
		full := strings.TrimSpace(ba.FirstName + " " + ba.LastName)
		if full == "" {
			continue
		}
		if !containsString(names[ba.BookID], full) {
			names[ba.BookID] = append(names[ba.BookID], full)
		}
	}

	for _, r := range rows {
		if ns := names[r.bookID]; len(ns) > 0 {
			r.Authors = strings.Join(ns, ", ")
		} else {
			r.Authors = "Unknown"
		}
	}
	return nil
}

func joinAuthorNames(bas []*models.BookAuthor) string {
	names := []string{}
	for _, ba := range bas {
		if ba.Author == nil {
			continue
		}
		full := strings.TrimSpace(ba.Author.FullName())
		if full == "" || containsString(names, full) {
			continue
		}
		names = append(names, full)
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
