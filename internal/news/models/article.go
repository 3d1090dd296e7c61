package models

import "time"

// Article is one disaster update from the upstream feed. Articles are
// external data; reliefhub never authors or mutates them.
type Article struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}
