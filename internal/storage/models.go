package storage

import (
	"encoding/json"
	"time"
)

type Pod struct {
	Name      string
	CreatedAt time.Time
}

type Stream struct {
	ID               string
	PodName          string
	ParentID         string // empty for roots
	Name             string
	Path             string
	UserID           string
	AccessPermission string
	Metadata         string
	HasSchema        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Record struct {
	ID           string
	StreamID     string
	Index        int64
	Name         string
	Path         string
	Content      []byte
	ContentType  string
	Size         int64
	ContentHash  string
	Hash         string
	PreviousHash string // empty at index 0
	UserID       string
	Headers      map[string]string
	Deleted      bool
	Purged       bool
	Storage      string // external storage tag, empty for inline content
	CreatedAt    time.Time
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeHeaders(h map[string]string) string {
	if len(h) == 0 {
		return ""
	}
	data, err := json.Marshal(h)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeHeaders(s string) map[string]string {
	if s == "" {
		return nil
	}
	var h map[string]string
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return nil
	}
	return h
}
