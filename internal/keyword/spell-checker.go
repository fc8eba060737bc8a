package keyword

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Suggestion is a dictionary name close to a misspelled one.
type Suggestion struct {
	Term      string  // The suggested name
	Distance  int     // Edit distance from the input
	Frequency int     // Popularity in the dictionary
	Score     float64 // Frequency discounted by distance
}

// SpellChecker suggests dictionary names within a bounded edit distance.
// Names are compared case-insensitively.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int
	transpositions bool

	termsCache []string
	termSet    map[string]struct{}
	cacheMu    sync.RWMutex
	cacheValid bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency drops dictionary names rarer than f.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions returned.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithTranspositions counts swapped adjacent characters as one edit.
func WithTranspositions() SpellCheckerOption {
	return func(s *SpellChecker) {
		s.transpositions = true
	}
}

// NewSpellChecker creates a new SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		termSet:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache reloads the name cache from the dictionary.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.termsCache = terms
	s.termSet = make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s.termSet[strings.ToLower(t)] = struct{}{}
	}
	s.cacheValid = true
	return nil
}

func (s *SpellChecker) ensureCache() bool {
	s.cacheMu.RLock()
	valid := s.cacheValid
	s.cacheMu.RUnlock()
	if valid {
		return true
	}
	return s.RefreshCache() == nil
}

// Suggest returns the closest dictionary names to term, best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if !s.ensureCache() {
		return nil
	}

	s.cacheMu.RLock()
	terms := s.termsCache
	s.cacheMu.RUnlock()

	termLower := strings.ToLower(term)
	termLen := utf8.RuneCountInString(termLower)
	suggestions := make([]Suggestion, 0)
	for _, dictTerm := range terms {
		dictTermLower := strings.ToLower(dictTerm)
		if dictTermLower == termLower {
			continue
		}
		lenDiff := utf8.RuneCountInString(dictTermLower) - termLen
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}

		distance := s.distance(termLower, dictTermLower)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

func (s *SpellChecker) distance(a, b string) int {
	if s.transpositions {
		return DamerauLevenshteinDistance(a, b)
	}
	return LevenshteinDistance(a, b)
}

// IsMisspelled reports whether term is absent from the dictionary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	if !s.ensureCache() {
		return false
	}

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	_, exists := s.termSet[strings.ToLower(term)]
	return !exists
}

// GetTopSuggestions returns up to n suggested names for term.
func (s *SpellChecker) GetTopSuggestions(term string, n int) []string {
	suggestions := s.Suggest(term)
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	out := make([]string, len(suggestions))
	for i, sg := range suggestions {
		out[i] = sg.Term
	}
	return out
}
