package aisearch

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Marcusng88/AI-Chatbot/internal/models"
	"github.com/Marcusng88/AI-Chatbot/internal/search"
)

// ArchiveResult is the archive projection returned to the UI.
type ArchiveResult struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	MediaTypes   []string `json:"media_types"`
	Dates        []string `json:"dates,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	FileURIs     []string `json:"file_uris,omitempty"`
	StoragePaths []string `json:"storage_paths,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
	Similarity   float64  `json:"similarity,omitempty"`
}

// Response is the result of one search: structured archive data only, with
// a message set only when nothing matched.
type Response struct {
	Archives []ArchiveResult `json:"archives"`
	Total    int             `json:"total"`
	Query    string          `json:"query"`
	Message  string          `json:"message,omitempty"`
}

// NoResultsMessage is returned when a search matches nothing.
const NoResultsMessage = "No matching archives found"

// Event is a progressive update emitted during a streaming search.
type Event struct {
	Type      string          `json:"type"`
	Query     string          `json:"query,omitempty"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Archives  []ArchiveResult `json:"archives,omitempty"`
	Total     int             `json:"total"`
	Message   string          `json:"message,omitempty"`
}

// QueryExpander produces diverse variations of a user query. It is
// implemented by the AI service client.
type QueryExpander interface {
	ExpandQuery(ctx context.Context, userQuery string) ([]string, error)
	Enabled() bool
}

// ArchiveStore loads archive records for search hits.
type ArchiveStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Archive, error)
}

// GormStore is the database-backed ArchiveStore.
type GormStore struct {
	DB *gorm.DB
}

// FindByIDs returns the archives with the given IDs; unknown IDs are
// silently dropped.
func (s *GormStore) FindByIDs(ctx context.Context, ids []string) ([]models.Archive, error) {
	uuids := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			log.Printf("Skipping non-uuid search hit %q: %v", id, err)
			continue
		}
		uuids = append(uuids, parsed)
	}
	if len(uuids) == 0 {
		return nil, nil
	}

	var archives []models.Archive
	if err := s.DB.WithContext(ctx).Where("id IN ?", uuids).Find(&archives).Error; err != nil {
		return nil, fmt.Errorf("load archives: %w", err)
	}
	return archives, nil
}

// Agent orchestrates an AI search: it expands the user query through the
// external AI service, runs every variation against the archive index,
// deduplicates hits by archive ID and keeps only hits above the
// similarity threshold.
type Agent struct {
	expander   QueryExpander
	index      *search.Index
	store      ArchiveStore
	threshold  float64
	matchCount int
}

// NewAgent creates a search agent. The expander may be disabled, in which
// case searches run with the raw user query only.
func NewAgent(expander QueryExpander, index *search.Index, store ArchiveStore, threshold float64, matchCount int) *Agent {
	return &Agent{
		expander:   expander,
		index:      index,
		store:      store,
		threshold:  threshold,
		matchCount: matchCount,
	}
}

// hit tracks the best score seen for one archive across all query
// variations.
type hit struct {
	id    string
	score float64
}

// Search runs a complete search and returns structured results.
func (a *Agent) Search(ctx context.Context, userQuery string, filters *search.Filters) (*Response, error) {
	queries := a.expandQueries(ctx, userQuery)

	hits, err := a.collectHits(ctx, queries, filters, nil)
	if err != nil {
		return nil, err
	}

	archives, err := a.resolveHits(ctx, hits)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Archives: archives,
		Total:    len(archives),
		Query:    userQuery,
	}
	if resp.Total == 0 {
		resp.Message = NoResultsMessage
	}

	log.Printf("Search %q: %d queries, %d archives", userQuery, len(queries), resp.Total)
	return resp, nil
}

// SearchStream runs a search, emitting progressive events through emit:
// searching, results (whenever the result set grows), then done. On
// failure a single error event is emitted instead.
func (a *Agent) SearchStream(ctx context.Context, userQuery, threadID string, filters *search.Filters, emit func(Event)) {
	emit(Event{
		Type:     "searching",
		Query:    userQuery,
		ThreadID: threadID,
	})

	queries := a.expandQueries(ctx, userQuery)

	var lastCount int
	progress := func(hits map[string]float64) {
		if len(hits) == lastCount {
			return
		}
		archives, err := a.resolveHits(ctx, hits)
		if err != nil {
			log.Printf("Failed to resolve progressive results: %v", err)
			return
		}
		lastCount = len(hits)
		emit(Event{
			Type:     "results",
			Archives: archives,
			Total:    len(archives),
		})
	}

	hits, err := a.collectHits(ctx, queries, filters, progress)
	if err != nil {
		emit(Event{Type: "error", Message: err.Error()})
		return
	}

	archives, err := a.resolveHits(ctx, hits)
	if err != nil {
		emit(Event{Type: "error", Message: err.Error()})
		return
	}

	done := Event{
		Type:     "done",
		Archives: archives,
		Total:    len(archives),
	}
	if len(archives) == 0 {
		done.Message = NoResultsMessage
	}
	emit(done)
}

// expandQueries returns the query variations to search with. The raw user
// query always comes first; expansion failures degrade to the raw query.
func (a *Agent) expandQueries(ctx context.Context, userQuery string) []string {
	if a.expander == nil || !a.expander.Enabled() {
		return []string{userQuery}
	}

	queries, err := a.expander.ExpandQuery(ctx, userQuery)
	if err != nil {
		log.Printf("Query expansion failed, searching with raw query: %v", err)
		return []string{userQuery}
	}
	return queries
}

// collectHits searches every query variation and merges the hits,
// keeping the best score per archive ID. progress, when non-nil, is
// called after each variation with the merged hits so far. Stops
// between variations once ctx is cancelled.
func (a *Agent) collectHits(ctx context.Context, queries []string, filters *search.Filters, progress func(map[string]float64)) (map[string]float64, error) {
	hits := make(map[string]float64)

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := a.index.Search(q, filters, a.matchCount)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}
		for _, r := range results {
			if r.Score > hits[r.ID] {
				hits[r.ID] = r.Score
			}
		}
		if progress != nil {
			progress(hits)
		}
	}

	return hits, nil
}

// resolveHits normalizes scores into similarities, applies the threshold,
// loads the archive records and orders them by similarity.
func (a *Agent) resolveHits(ctx context.Context, hits map[string]float64) ([]ArchiveResult, error) {
	ranked := rankHits(hits, a.threshold)
	if len(ranked) == 0 {
		return []ArchiveResult{}, nil
	}

	ids := make([]string, len(ranked))
	similarity := make(map[string]float64, len(ranked))
	for i, h := range ranked {
		ids[i] = h.id
		similarity[h.id] = h.score
	}

	records, err := a.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Archive, len(records))
	for _, rec := range records {
		byID[rec.ID.String()] = rec
	}

	archives := make([]ArchiveResult, 0, len(ranked))
	for _, h := range ranked {
		rec, ok := byID[h.id]
		if !ok {
			// Index entry with no database row, likely a deleted archive
			log.Printf("Search hit %s has no archive record, skipping", h.id)
			continue
		}
		archives = append(archives, toResult(rec, similarity[h.id]))
	}

	return archives, nil
}

// rankHits converts raw index scores into 0-1 similarities relative to
// the best hit, drops everything below threshold and sorts descending.
func rankHits(hits map[string]float64, threshold float64) []hit {
	var maxScore float64
	for _, score := range hits {
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore == 0 {
		return nil
	}

	ranked := make([]hit, 0, len(hits))
	for id, score := range hits {
		sim := score / maxScore
		if sim < threshold {
			continue
		}
		ranked = append(ranked, hit{id: id, score: sim})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	return ranked
}

func toResult(rec models.Archive, similarity float64) ArchiveResult {
	result := ArchiveResult{
		ID:           rec.ID.String(),
		Title:        rec.Title,
		Description:  rec.Description,
		MediaTypes:   rec.MediaTypes,
		Dates:        rec.Dates,
		Tags:         rec.Tags,
		FileURIs:     rec.FileURIs,
		StoragePaths: rec.StoragePaths,
		Summary:      rec.Summary,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
		Similarity:   similarity,
	}
	if !rec.UpdatedAt.IsZero() {
		result.UpdatedAt = rec.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return result
}
