// Package keyword indexes lexicon names so unknown entity and relation
// names can be answered with "did you mean" suggestions.
package keyword

import "context"

// Kind separates entity names from relation names in the index.
type Kind string

const (
	KindEntity   Kind = "entity"
	KindRelation Kind = "relation"
)

// NameIndex is a fuzzy full-text index over vocabulary names.
type NameIndex interface {
	Index(ctx context.Context, kind Kind, names []string) error
	Search(ctx context.Context, query string, kind Kind, limit int, opts *SearchOptions) ([]*NameResult, error)
	DocCount() (uint64, error)
	Close() error
}

// SearchOptions configures fuzzy name search.
type SearchOptions struct {
	FuzzyEnabled bool
	Fuzziness    int // max edit distance per token; bleve caps it at 2
	PrefixBoost  float64
}

// DefaultSearchOptions returns the options used by the suggester.
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		FuzzyEnabled: true,
		Fuzziness:    2,
		PrefixBoost:  1.5,
	}
}

// NameResult is one matching vocabulary name.
type NameResult struct {
	Name  string
	Kind  Kind
	Score float64
}

// TermDictionary provides whole-name frequencies for spell checking.
type TermDictionary interface {
	GetAllTerms() ([]string, error)
	GetTermFrequency(term string) (int, error)
	ContainsTerm(term string) (bool, error)
}
