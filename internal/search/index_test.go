package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArchives() []*IndexedArchive {
	return []*IndexedArchive{
		{
			ID:         "batik-1",
			Title:      "Traditional Batik Patterns",
			Summary:    "A collection of hand-dyed batik textile patterns from Terengganu.",
			Tags:       []string{"batik", "textile"},
			MediaTypes: []string{"image"},
			Date:       time.Date(1965, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:         "batik-2",
			Title:      "Batik Workshop Recording",
			Summary:    "Video documentation of a batik dyeing workshop.",
			Tags:       []string{"batik", "craft"},
			MediaTypes: []string{"video"},
			Date:       time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:         "pottery-1",
			Title:      "Labu Sayong Pottery",
			Summary:    "Photographs of traditional gourd-shaped clay pottery from Perak.",
			Tags:       []string{"pottery", "ceramics"},
			MediaTypes: []string{"image"},
			Date:       time.Date(1978, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	require.NoError(t, idx.Reindex(testArchives()))
	return idx
}

func TestOpenCreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archives.bleve")

	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.IndexArchive(testArchives()[0]))
	require.NoError(t, idx.Close())

	// Reopen the existing index and verify the document survived
	idx, err = Open(path)
	require.NoError(t, err)
	defer idx.Close()

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchFindsMatches(t *testing.T) {
	idx := openTestIndex(t)

	results, err := idx.Search("batik", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	ids := []string{results[0].ID, results[1].ID}
	assert.Contains(t, ids, "batik-1")
	assert.Contains(t, ids, "batik-2")
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchNoMatches(t *testing.T) {
	idx := openTestIndex(t)

	results, err := idx.Search("woodcarving", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchMediaTypeFilter(t *testing.T) {
	idx := openTestIndex(t)

	results, err := idx.Search("batik", &Filters{MediaTypes: []string{"video"}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "batik-2", results[0].ID)
}

func TestSearchDateRangeFilter(t *testing.T) {
	idx := openTestIndex(t)

	// Only the 1965 archive falls in this range
	results, err := idx.Search("batik", &Filters{
		DateFrom: time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
	}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "batik-1", results[0].ID)
}

func TestSearchOpenEndedDateFilter(t *testing.T) {
	idx := openTestIndex(t)

	results, err := idx.Search("batik", &Filters{
		DateFrom: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
	}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "batik-2", results[0].ID)
}

func TestDeleteRemovesFromIndex(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.Delete("pottery-1"))

	results, err := idx.Search("pottery", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
