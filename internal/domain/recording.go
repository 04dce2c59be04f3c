package domain

import "time"

// Recording is the finalized audio of one speaker turn.
type Recording struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Duration  int       `json:"duration"` // seconds
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
}
