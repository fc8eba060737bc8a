package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// bleve rejects fuzzy queries above this edit distance.
const maxFuzziness = 2

// BleveIndex implements NameIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path
// creates an in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Names are split into words before indexing, so the standard analyzer
	// only has to lowercase them.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("name", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("kind", keywordFieldMapping)
	im.AddDocumentMapping("name", docMapping)
	im.DefaultType = "name"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds names of the given kind in a single batch. Re-indexing a
// name overwrites its document.
func (b *BleveIndex) Index(ctx context.Context, kind Kind, names []string) error {
	batch := b.index.NewBatch()
	for i, name := range names {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		doc := map[string]interface{}{
			"name": name,
			"kind": string(kind),
			"text": strings.Join(tokenizeName(name), " "),
		}
		if err := batch.Index(docID(kind, name), doc); err != nil {
			return fmt.Errorf("failed to index %s %q: %w", kind, name, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to write %s names: %w", kind, err)
	}
	return nil
}

// Search returns up to limit names of the given kind that resemble query.
// Every word of the query contributes a prefix match and, when fuzzy
// matching is enabled, a fuzzy match; an exact name match scores highest.
func (b *BleveIndex) Search(ctx context.Context, query string, kind Kind, limit int, opts *SearchOptions) ([]*NameResult, error) {
	if opts == nil {
		opts = DefaultSearchOptions()
	}
	terms := tokenizeName(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	exact := bleve.NewTermQuery(query)
	exact.SetField("name")
	exact.SetBoost(10)
	nameQuery := bleve.NewDisjunctionQuery(exact, b.buildTermsQuery(terms, opts, "text"))

	kindQuery := bleve.NewTermQuery(string(kind))
	kindQuery.SetField("kind")

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(kindQuery, nameQuery), limit, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("name search failed: %w", err)
	}

	out := make([]*NameResult, 0, len(res.Hits))
	prefix := string(kind) + ":"
	for _, hit := range res.Hits {
		out = append(out, &NameResult{
			Name:  strings.TrimPrefix(hit.ID, prefix),
			Kind:  kind,
			Score: hit.Score,
		})
	}
	return out, nil
}

// buildTermsQuery creates a disjunction of prefix and fuzzy queries for
// each term, restricted to field.
func (b *BleveIndex) buildTermsQuery(terms []string, opts *SearchOptions, field string) blevequery.Query {
	fuzziness := opts.Fuzziness
	if fuzziness <= 0 || fuzziness > maxFuzziness {
		fuzziness = maxFuzziness
	}

	queries := make([]blevequery.Query, 0, 2*len(terms))
	for _, term := range terms {
		pq := bleve.NewPrefixQuery(term)
		pq.SetField(field)
		if opts.PrefixBoost > 0 {
			pq.SetBoost(opts.PrefixBoost)
		}
		queries = append(queries, pq)

		if opts.FuzzyEnabled {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			fq.SetField(field)
			queries = append(queries, fq)
		}
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the number of indexed names of both kinds.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

func docID(kind Kind, name string) string {
	return string(kind) + ":" + name
}

// tokenizeName splits a vocabulary name into lowercase words. Freebase
// style paths, underscores and punctuation all act as separators.
func tokenizeName(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
