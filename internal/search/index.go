package search

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Index wraps a Bleve search index over archive records.
type Index struct {
	index bleve.Index
}

// IndexedArchive represents an archive in the search index. The AI summary
// carries most of the searchable text; titles are analyzed with the English
// analyzer for better stemming.
type IndexedArchive struct {
	ID          string
	Title       string
	Description string
	Summary     string
	Tags        []string
	MediaTypes  []string
	Date        time.Time // Earliest archive date, zero if none
	CreatedAt   time.Time
}

// Result represents a single search hit.
type Result struct {
	ID        string
	Title     string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Filters narrows a search by media type, date range and extra keywords.
// Zero values mean "no restriction".
type Filters struct {
	MediaTypes []string
	DateFrom   time.Time
	DateTo     time.Time
	Keywords   string
}

// Open opens or creates a Bleve index at path. An in-memory index is
// created when path is empty.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// buildIndexMapping creates the index mapping for archive documents
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en" // English analyzer for better stemming

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	dateFieldMapping := bleve.NewDateTimeFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Description", textFieldMapping)
	docMapping.AddFieldMappingsAt("Summary", textFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", textFieldMapping)
	docMapping.AddFieldMappingsAt("MediaTypes", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Date", dateFieldMapping)
	docMapping.AddFieldMappingsAt("CreatedAt", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexArchive adds or updates an archive in the index
func (i *Index) IndexArchive(doc *IndexedArchive) error {
	return i.index.Index(doc.ID, doc)
}

// Delete removes an archive from the index
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Search runs a query string against the index with optional filters,
// returning up to limit hits with highlighted fragments.
func (i *Index) Search(queryStr string, filters *Filters, limit int) ([]*Result, error) {
	// Parse query string (supports quotes, boolean operators, fuzzy ~)
	base := bleve.NewQueryStringQuery(queryStr)

	finalQuery := buildFilteredQuery(base, filters)

	search := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	search.Highlight = bleve.NewHighlightWithStyle("html")
	search.Fields = []string{"Title"}

	results, err := i.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var searchResults []*Result
	for _, hit := range results.Hits {
		result := &Result{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// buildFilteredQuery combines the base query with filter clauses.
func buildFilteredQuery(base query.Query, filters *Filters) query.Query {
	if filters == nil {
		return base
	}

	clauses := []query.Query{base}

	if len(filters.MediaTypes) > 0 {
		var typeClauses []query.Query
		for _, mt := range filters.MediaTypes {
			tq := bleve.NewTermQuery(mt)
			tq.SetField("MediaTypes")
			typeClauses = append(typeClauses, tq)
		}
		clauses = append(clauses, bleve.NewDisjunctionQuery(typeClauses...))
	}

	if !filters.DateFrom.IsZero() || !filters.DateTo.IsZero() {
		from := filters.DateFrom
		to := filters.DateTo
		if to.IsZero() {
			to = time.Now().AddDate(100, 0, 0)
		}
		dq := bleve.NewDateRangeQuery(from, to)
		dq.SetField("Date")
		clauses = append(clauses, dq)
	}

	if filters.Keywords != "" {
		clauses = append(clauses, bleve.NewQueryStringQuery(filters.Keywords))
	}

	if len(clauses) == 1 {
		return base
	}
	return bleve.NewConjunctionQuery(clauses...)
}

// Reindex replaces the index contents for the given archives in one batch.
func (i *Index) Reindex(docs []*IndexedArchive) error {
	batch := i.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	return nil
}

// Count returns the number of archives in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
