package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Marcusng88/AI-Chatbot/internal/models"
)

const (
	// MinExpandedQueries and MaxExpandedQueries bound how many query
	// variations the model is asked to produce.
	MinExpandedQueries = 3
	MaxExpandedQueries = 5
)

const expandSystemPrompt = `You are a heritage archive search assistant.

Your ONLY job is to generate diverse search query variations for a digital archive of cultural heritage materials.

When given a user query, respond with a JSON array of 3-5 diverse query strings covering different aspects:
- the original keywords
- synonyms and related terminology
- narrower variations
- broader cultural or historical context

Respond with ONLY the JSON array, no explanations.

Examples:
User: "I want batik"
You respond: ["batik", "batik textile", "traditional Malaysian batik", "batik fabric heritage", "hand-dyed batik patterns"]

User: "traditional crafts"
You respond: ["traditional crafts", "heritage handicrafts", "Malaysian artisan work", "cultural craftsmanship", "historical craft techniques"]`

// ExpandQuery asks the AI service for 3-5 diverse variations of the user
// query. The returned slice always includes the original query first.
func (c *Client) ExpandQuery(ctx context.Context, userQuery string) ([]string, error) {
	content, err := c.Chat(ctx, []models.GenAIMessage{
		{Role: "system", Content: expandSystemPrompt},
		{Role: "user", Content: userQuery},
	})
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}

	var raw []string
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
		return nil, fmt.Errorf("parse query variations: %w", err)
	}

	queries := []string{userQuery}
	seen := map[string]bool{normalizeQuery(userQuery): true}
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := normalizeQuery(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, q)
		if len(queries) >= MaxExpandedQueries {
			break
		}
	}

	return queries, nil
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

const analyzeSystemPrompt = `You are an expert content analyst for a cultural heritage archive.

Given the metadata of a newly archived item, write a comprehensive, self-contained summary that captures its essential information and context:
- what the material is and its primary purpose
- temporal, spatial and cultural context
- names of people, places, organizations and techniques mentioned
- why it matters for the heritage collection

Be factual and specific. Use clear, professional language. Do not invent details that are not supported by the metadata.`

// AnalyzeArchive asks the AI service for a descriptive summary of an
// archive from its curator-provided metadata. The summary becomes the main
// searchable text for the archive.
func (c *Client) AnalyzeArchive(ctx context.Context, title, description string, mediaTypes, tags, fileNames []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Archive Title: %s\n", title)
	fmt.Fprintf(&b, "Media Types: %s\n", strings.Join(mediaTypes, ", "))
	if len(tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(tags, ", "))
	}
	if description != "" {
		fmt.Fprintf(&b, "Curator Description: %s\n", description)
	}
	if len(fileNames) > 0 {
		fmt.Fprintf(&b, "Files: %s\n", strings.Join(fileNames, ", "))
	}

	summary, err := c.Chat(ctx, []models.GenAIMessage{
		{Role: "system", Content: analyzeSystemPrompt},
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return "", fmt.Errorf("analyze archive: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("analyze archive: empty response from model")
	}

	return summary, nil
}
