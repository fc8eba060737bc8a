package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/models"
)

// Dataset file names written by the dataset preparer.
const (
	MostFrequentHeadFile = "most_freq_r2h.json"
	MostFrequentTailFile = "most_freq_r2t.json"
)

// CorrectSplits are the splits whose union defines the correct triples.
var CorrectSplits = []string{"train", "valid", "test"}

// Dataset is a prepared link-prediction dataset directory.
type Dataset struct {
	Dir   string
	Index *CorrectTripleIndex
	// MostFrequentHead and MostFrequentTail map a base relation to the entity
	// substituted for an out-of-vocabulary head or tail. Nil unless loaded.
	MostFrequentHead map[string]string
	MostFrequentTail map[string]string
}

// LoadDataset indexes the correct triples of dir. The most-frequent
// substitute maps are read only when substitutes is true.
func LoadDataset(dir string, substitutes bool) (*Dataset, error) {
	d := &Dataset{Dir: dir, Index: NewCorrectTripleIndex()}
	for _, split := range CorrectSplits {
		for t, err := range ReadTriples(d.SplitPath(split)) {
			if err != nil {
				return nil, fmt.Errorf("index %s split: %w", split, err)
			}
			d.Index.Add(t)
		}
	}
	if substitutes {
		var err error
		if d.MostFrequentHead, err = LoadMostFrequent(filepath.Join(dir, MostFrequentHeadFile)); err != nil {
			return nil, err
		}
		if d.MostFrequentTail, err = LoadMostFrequent(filepath.Join(dir, MostFrequentTailFile)); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SplitPath returns the path of a split file such as "valid".
func (d *Dataset) SplitPath(split string) string {
	return filepath.Join(d.Dir, split+".txt")
}

// Split reads the triples of a split.
func (d *Dataset) Split(split string) ([]models.Triple, error) {
	return LoadTriples(d.SplitPath(split))
}

// LoadMostFrequent reads a relation -> entity JSON object.
func LoadMostFrequent(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read substitutes: %w", err)
	}
	m := make(map[string]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

func substitute(m map[string]string, role, relation string) (string, error) {
	if e, ok := m[relation]; ok {
		return e, nil
	}
	return "", &lexicon.LookupError{Kind: "most frequent " + role + " of relation", Name: relation}
}
