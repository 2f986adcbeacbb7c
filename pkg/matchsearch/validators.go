package matchsearch

type MatchSearchQuery struct {
	Query string `query:"query" json:"query,omitempty" validate:"max=100"`
}
