package unitsearch

import "github.com/nonibytes/unitsearch/unitsearch/ops"

const (
	DefaultLimit      = 50
	DefaultMaxLimit   = ops.MaxLimit
	DefaultFacetLimit = ops.DefaultFacetLimit
	DefaultMaxDepth   = 32
	DefaultMaxTerms   = 256
)
