package unitsearch

import (
	"log/slog"
	"time"

	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// Options configures an Engine
type Options struct {
	// Now supplies the instant relative dates resolve against when a
	// request does not carry one.
	Now func() time.Time
	// Location is used for bare dates and relative phrases.
	Location *time.Location

	DefaultLimit int
	MaxLimit     int
	MaxDepth     int
	MaxTerms     int

	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Now:          time.Now,
		Location:     time.UTC,
		DefaultLimit: DefaultLimit,
		MaxLimit:     DefaultMaxLimit,
		MaxDepth:     DefaultMaxDepth,
		MaxTerms:     DefaultMaxTerms,
	}
}

// SearchRequest is one page request from a caller
type SearchRequest struct {
	Query string
	// Sort is a comma separated field list, '-' prefix for descending.
	Sort   string
	Offset int
	Limit  int
	// Token continues a previous search. It takes precedence over Offset.
	Token string
	// Now overrides Options.Now for this request.
	Now time.Time
	// WithRecords asks for the stored records of the page.
	WithRecords bool
}

// SearchResult is a page of search results
type SearchResult struct {
	IDs       []int64          `json:"ids"`
	Total     int              `json:"total"`
	Offset    int              `json:"offset"`
	HasMore   bool             `json:"has_more"`
	NextToken string           `json:"next_token,omitempty"`
	Highlight []string         `json:"highlight,omitempty"`
	Records   []storage.Record `json:"records,omitempty"`
}

// Explanation shows how a query is evaluated
type Explanation struct {
	AST       string   `json:"ast"`
	Predicate string   `json:"predicate"`
	Order     []string `json:"order"`
	SQL       string   `json:"sql,omitempty"`
	Steps     []string `json:"steps,omitempty"`
}
