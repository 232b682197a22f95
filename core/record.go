package core

import (
	"strings"
	"time"
)

// RenderContent formats a candidate as the text stored in memory.
// arXiv papers and web results use different layouts.
func RenderContent(item *CandidateItem) string {
	var b strings.Builder
	switch item.Source {
	case SourceWebSearch:
		b.WriteString("Title: ")
		b.WriteString(item.Title)
		b.WriteString("\nContent: ")
		b.WriteString(item.Body)
		b.WriteString("\nURL: ")
		b.WriteString(item.URL)
		b.WriteString("\nPublished Date: ")
		if !item.PublishedAt.IsZero() {
			b.WriteString(item.PublishedAt.UTC().Format(time.RFC3339))
		}
	default:
		b.WriteString("Title: ")
		b.WriteString(item.Title)
		b.WriteString("\nAuthors: ")
		b.WriteString(strings.Join(item.Authors, ", "))
		b.WriteString("\nSummary: ")
		b.WriteString(item.Body)
	}
	return b.String()
}

// NewRecord builds the record persisted for a newly seen candidate.
// CreatedAt is the publication time for papers and now for everything else.
func NewRecord(item *CandidateItem, roomID string, now time.Time) *IngestionRecord {
	createdAt := now.UTC()
	if item.Source == SourceArxiv && !item.PublishedAt.IsZero() {
		createdAt = item.PublishedAt.UTC()
	}
	return &IngestionRecord{
		ID:        item.ID,
		RoomID:    roomID,
		Source:    item.Source,
		Category:  item.Category,
		Title:     item.Title,
		URL:       item.URL,
		Content:   RenderContent(item),
		CreatedAt: createdAt,
	}
}
