package keyword

import "fmt"

// NameDictionary is a TermDictionary over a vocabulary listed in
// descending frequency order, as vocab_entity.txt and vocab_relation.txt
// are. The first name gets frequency len(names), the last gets 1.
type NameDictionary struct {
	names []string
	freq  map[string]int
}

// NewNameDictionary builds a dictionary from names in frequency order.
func NewNameDictionary(names []string) *NameDictionary {
	d := &NameDictionary{
		names: names,
		freq:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, ok := d.freq[name]; !ok {
			d.freq[name] = len(names) - i
		}
	}
	return d
}

// GetAllTerms returns every name in frequency order.
func (d *NameDictionary) GetAllTerms() ([]string, error) {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out, nil
}

// GetTermFrequency returns the rank-derived frequency of term.
func (d *NameDictionary) GetTermFrequency(term string) (int, error) {
	f, ok := d.freq[term]
	if !ok {
		return 0, fmt.Errorf("unknown name %q", term)
	}
	return f, nil
}

// ContainsTerm reports whether term is in the dictionary.
func (d *NameDictionary) ContainsTerm(term string) (bool, error) {
	_, ok := d.freq[term]
	return ok, nil
}
