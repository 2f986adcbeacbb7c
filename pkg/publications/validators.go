package publications

type ListPublicationsQuery struct {
	PageNumber   int    `query:"pageNumber" json:"pageNumber,omitempty" default:"1"`
	PageSize     int    `query:"pageSize" json:"pageSize,omitempty" default:"15"`
	Availability string `query:"availability" json:"availability,omitempty" default:"all" validate:"oneof=all available_only"`
	Sort         string `query:"sort" json:"sort,omitempty" default:"none" validate:"oneof=none title_asc title_desc year_asc year_desc popular"`
	BookID       *int   `query:"bookId" json:"bookId,omitempty" tstype:"number"`
	AuthorID     *int   `query:"authorId" json:"authorId,omitempty" tstype:"number"`
	GenreID      *int   `query:"genreId" json:"genreId,omitempty" tstype:"number"`
}

type CountPublicationsQuery struct {
	OnlyAvailable bool `query:"onlyAvailable" json:"onlyAvailable,omitempty"`
	BookID        *int `query:"bookId" json:"bookId,omitempty" tstype:"number"`
	AuthorID      *int `query:"authorId" json:"authorId,omitempty" tstype:"number"`
	GenreID       *int `query:"genreId" json:"genreId,omitempty" tstype:"number"`
}

type ListImagesQuery struct {
	IDs []int `query:"ids" json:"ids" validate:"required,min=1,max=10"`
}
