package query

import "github.com/nonibytes/unitsearch/unitsearch/fields"

// Limits bounds query complexity
type Limits struct {
	MaxDepth int
	MaxTerms int
}

// DefaultLimits returns default complexity limits
func DefaultLimits() Limits {
	return Limits{
		MaxDepth: 32,
		MaxTerms: 256,
	}
}

// HighlightTerms collects the words a result view should highlight:
// free-text words and Contains values outside any negation.
func HighlightTerms(n Node) []string {
	var result []string
	highlightTermsInto(n, false, &result)
	return result
}

func highlightTermsInto(n Node, negated bool, result *[]string) {
	switch e := n.(type) {
	case And:
		highlightTermsInto(e.Left, negated, result)
		highlightTermsInto(e.Right, negated, result)
	case Or:
		highlightTermsInto(e.Left, negated, result)
		highlightTermsInto(e.Right, negated, result)
	case Not:
		highlightTermsInto(e.Inner, !negated, result)
	case FreeText:
		if !negated {
			*result = append(*result, e.Words...)
		}
	case FieldMatch:
		if !negated && e.Field.Type == fields.Text && (e.Op == fields.Contains || e.Op == fields.ExactEquals) {
			*result = append(*result, e.Value.Str)
		}
	}
}
