package keyword

import (
	"context"
	"fmt"

	"github.com/hyperjump/kbeval/internal/lexicon"
	"go.uber.org/zap"
)

// Suggester answers "did you mean" lookups for entity and relation names.
// Edit-distance matches over the whole name come first, followed by
// word-level fuzzy matches from the name index.
type Suggester struct {
	index    NameIndex
	checkers map[Kind]*SpellChecker
	opts     *SearchOptions
	logger   *zap.Logger
}

// NewSuggester indexes the lexicon names into index. A nil index limits
// suggestions to edit-distance matches.
func NewSuggester(ctx context.Context, lex *lexicon.Lexicon, index NameIndex, logger *zap.Logger) (*Suggester, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Suggester{
		index: index,
		checkers: map[Kind]*SpellChecker{
			KindEntity:   NewSpellChecker(NewNameDictionary(lex.Entities()), WithTranspositions()),
			KindRelation: NewSpellChecker(NewNameDictionary(lex.Relations()), WithTranspositions()),
		},
		opts:   DefaultSearchOptions(),
		logger: logger,
	}
	if index != nil {
		if err := index.Index(ctx, KindEntity, lex.Entities()); err != nil {
			return nil, fmt.Errorf("failed to index entities: %w", err)
		}
		if err := index.Index(ctx, KindRelation, lex.Relations()); err != nil {
			return nil, fmt.Errorf("failed to index relations: %w", err)
		}
		count, err := index.DocCount()
		if err != nil {
			return nil, fmt.Errorf("failed to count indexed names: %w", err)
		}
		logger.Debug("Name index ready", zap.Uint64("docs", count))
	}
	return s, nil
}

// Suggest returns up to n known names of kind resembling name. Search
// failures are logged and yield the edit-distance matches alone.
func (s *Suggester) Suggest(ctx context.Context, name string, kind Kind, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	add := func(candidate string) {
		if _, ok := seen[candidate]; ok || len(out) >= n {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	if sc, ok := s.checkers[kind]; ok {
		for _, term := range sc.GetTopSuggestions(name, n) {
			add(term)
		}
	}
	if s.index != nil && len(out) < n {
		results, err := s.index.Search(ctx, name, kind, n, s.opts)
		if err != nil {
			s.logger.Warn("Name search failed", zap.String("name", name), zap.Error(err))
		}
		for _, r := range results {
			if r.Name != name {
				add(r.Name)
			}
		}
	}
	return out
}
