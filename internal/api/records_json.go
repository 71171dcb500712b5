package api

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/webpods/webpods/internal/storage"
)

type recordPayload struct {
	Index        int64             `json:"index"`
	Name         string            `json:"name"`
	Path         string            `json:"path"`
	Content      string            `json:"content"`
	Encoding     string            `json:"encoding,omitempty"`
	ContentType  string            `json:"contentType"`
	Size         int64             `json:"size"`
	ContentHash  string            `json:"contentHash"`
	Hash         string            `json:"hash"`
	PreviousHash *string           `json:"previousHash"`
	Author       string            `json:"author"`
	Timestamp    time.Time         `json:"timestamp"`
	Headers      map[string]string `json:"headers,omitempty"`
	Deleted      bool              `json:"deleted,omitempty"`
	Purged       bool              `json:"purged,omitempty"`
	Storage      string            `json:"storage,omitempty"`
}

type listPayload struct {
	Records []recordPayload `json:"records"`
	Total   int64           `json:"total"`
	HasMore bool            `json:"hasMore"`
}

type streamPayload struct {
	ID               string    `json:"id"`
	Pod              string    `json:"pod"`
	Name             string    `json:"name"`
	Path             string    `json:"path"`
	AccessPermission string    `json:"accessPermission"`
	Creator          string    `json:"creator"`
	HasSchema        bool      `json:"hasSchema,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toRecordPayload(rec *storage.Record) recordPayload {
	payload := recordPayload{
		Index:       rec.Index,
		Name:        rec.Name,
		Path:        rec.Path,
		ContentType: rec.ContentType,
		Size:        rec.Size,
		ContentHash: rec.ContentHash,
		Hash:        rec.Hash,
		Author:      rec.UserID,
		Timestamp:   rec.CreatedAt,
		Headers:     rec.Headers,
		Deleted:     rec.Deleted,
		Purged:      rec.Purged,
		Storage:     rec.Storage,
	}
	if rec.PreviousHash != "" {
		prev := rec.PreviousHash
		payload.PreviousHash = &prev
	}
	if len(rec.Content) > 0 {
		if utf8.Valid(rec.Content) {
			payload.Content = string(rec.Content)
		} else {
			payload.Content = base64.StdEncoding.EncodeToString(rec.Content)
			payload.Encoding = "base64"
		}
	}
	return payload
}

func toListPayload(records []storage.Record, total int64, hasMore bool) listPayload {
	payload := listPayload{
		Records: make([]recordPayload, 0, len(records)),
		Total:   total,
		HasMore: hasMore,
	}
	for i := range records {
		payload.Records = append(payload.Records, toRecordPayload(&records[i]))
	}
	return payload
}

func toStreamPayload(st *storage.Stream) streamPayload {
	return streamPayload{
		ID:               st.ID,
		Pod:              st.PodName,
		Name:             st.Name,
		Path:             st.Path,
		AccessPermission: st.AccessPermission,
		Creator:          st.UserID,
		HasSchema:        st.HasSchema,
		CreatedAt:        st.CreatedAt,
		UpdatedAt:        st.UpdatedAt,
	}
}

// setRecordHeaders stamps the chain metadata on single-record responses.
func setRecordHeaders(w http.ResponseWriter, rec *storage.Record) {
	w.Header().Set("X-Hash", rec.Hash)
	if rec.PreviousHash != "" {
		w.Header().Set("X-Previous-Hash", rec.PreviousHash)
	}
	w.Header().Set("X-Author", rec.UserID)
	w.Header().Set("X-Timestamp", strconv.FormatInt(rec.CreatedAt.UnixMilli(), 10))
}
