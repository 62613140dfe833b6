package models

import "time"

// QueryResult is a single neighbor of a query, nearest first.
type QueryResult struct {
	Distance float32 `json:"distance"`
	Word     string  `json:"word"`
}

// SimilarResponse is the response for a similar-words request.
// Word is empty when the query was a raw vector.
type SimilarResponse struct {
	Word    string        `json:"word,omitempty"`
	Count   int           `json:"count"`
	Results []QueryResult `json:"results"`
}

// VectorResponse carries the stored unit vector of a word.
type VectorResponse struct {
	Word   string    `json:"word"`
	Vector []float32 `json:"vector"`
}

// SuggestResponse lists vocabulary words close in spelling to Word.
type SuggestResponse struct {
	Word        string   `json:"word"`
	Suggestions []string `json:"suggestions"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// IndexStatus describes the nearest-neighbor index.
type IndexStatus struct {
	Type          string `json:"type"`
	Size          int    `json:"size"`
	Tables        int    `json:"tables,omitempty"`
	Planes        int    `json:"planes,omitempty"`
	Buckets       int    `json:"buckets,omitempty"`
	LargestBucket int    `json:"largest_bucket,omitempty"`
	Seed          uint64 `json:"seed,omitempty"`
}

// StatusResponse is the response for the status endpoint.
type StatusResponse struct {
	BuildID       string      `json:"build_id"`
	Source        string      `json:"source"`
	Format        string      `json:"format"`
	SourceBytes   int64       `json:"source_bytes"`
	Words         int         `json:"words"`
	Dimension     int         `json:"dimension"`
	Duplicates    int         `json:"duplicates"`
	ZeroVectors   int         `json:"zero_vectors"`
	Index         IndexStatus `json:"index"`
	Suggestions   bool        `json:"suggestions"`
	LoadedAt      time.Time   `json:"loaded_at"`
	LoadTimeMs    int64       `json:"load_time_ms"`
	Stale         bool        `json:"stale"`
	UptimeSeconds int64       `json:"uptime_seconds"`
}
