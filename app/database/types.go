package database

import (
	"time"
)

type Feed struct {
	ID              string // Database UUID
	Name            string // Configuration feed identifier derived from filename
	FeedURL         string // RSS/Atom feed URL from configuration
	Link            string // Homepage URL from the feed's own link
	Title           string
	Description     string // Feed's original description from RSS/Atom
	ImageURL        string
	Language        string
	LastFetchedAt   *time.Time
	NextFetchAt     *time.Time
	FeedPublishedAt *time.Time // Feed's own pubDate/published from RSS/Atom
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Item struct {
	ID                      string
	FeedID                  string
	GUID                    string
	Link                    string
	Title                   string
	Description             string
	Content                 string
	ImageURL                string
	PublishedAt             time.Time
	UpdatedAt               *time.Time
	Authors                 []string // Multiple authors in format "email (name)" or "name"
	Categories              []string
	IsFiltered              bool
	FilterReason            string
	ContentHash             string
	CreatedAt               time.Time
	ContentExtractedAt      *time.Time
	ContentExtractionStatus string // pending, success, failed, skipped
	ContentExtractionError  string
	ExtractionAttempts      int
	EnclosureURL            string
	EnclosureLength         int64
	EnclosureType           string
}

// Content extraction states
const (
	ExtractionPending = "pending"
	ExtractionSuccess = "success"
	ExtractionFailed  = "failed"
	ExtractionSkipped = "skipped"
)

// MaxExtractionAttempts bounds retries of failed extractions.
const MaxExtractionAttempts = 3
