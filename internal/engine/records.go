package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/blob"
	"github.com/webpods/webpods/internal/cache"
	"github.com/webpods/webpods/internal/names"
	"github.com/webpods/webpods/internal/storage"
)

type appendInput struct {
	Name        string
	Content     []byte
	ContentType string
	Headers     map[string]string
	UserID      string
	Deleted     bool
}

// Append validates and appends a record to the stream. The per-stream row
// lock serializes concurrent appends; indices are contiguous and the hash
// chain is extended under that lock.
func (e *Engine) Append(ctx context.Context, stream *storage.Stream, name string, content Content, headers map[string]string, userID string) (*storage.Record, error) {
	if !names.ValidRecord(name) {
		return nil, apperr.InvalidName(name)
	}
	if userID == "" {
		return nil, apperr.Unauthorized("writes require a principal")
	}
	if e.opts.MaxPayloadBytes > 0 && int64(len(content.Data)) > e.opts.MaxPayloadBytes {
		return nil, apperr.ContentTooLarge(int64(len(content.Data)), e.opts.MaxPayloadBytes)
	}

	// A child stream with the record's name blocks the record path.
	childPath := stream.Path + "/" + name
	if _, err := e.store.GetStreamByPath(ctx, stream.PodName, childPath); err == nil {
		return nil, apperr.NameConflict("stream " + childPath + " blocks the record name")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Database(err)
	}

	if stream.HasSchema {
		if err := e.validator.Validate(ctx, stream, content.Data, content.Type); err != nil {
			return nil, apperr.ValidationError(err.Error())
		}
	}

	return e.appendRaw(ctx, stream, appendInput{
		Name:        name,
		Content:     content.Data,
		ContentType: content.Type,
		Headers:     headers,
		UserID:      userID,
	})
}

// appendRaw extends the chain without validation. The blob write happens
// before the record commit; if the commit fails, only blob artifacts that
// this append created are unlinked. Content shared with committed records
// stays.
func (e *Engine) appendRaw(ctx context.Context, stream *storage.Stream, in appendInput) (*storage.Record, error) {
	contentHash := ContentHash(in.Content)
	size := int64(len(in.Content))

	inline := in.Content
	storageTag := ""
	var put blob.PutResult
	if !in.Deleted && e.blobs != nil && e.opts.ExternalThresholdBytes > 0 && size > e.opts.ExternalThresholdBytes {
		res, err := e.blobs.Put(ctx, stream.PodName, stream.Path, in.Name, contentHash, in.Content)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		put = res
		storageTag = res.Tag
		inline = nil
	}

	rec, err := e.store.AppendRecord(ctx, stream.ID, func(lastIndex int64, lastHash string) (*storage.Record, error) {
		now := e.now()
		ts := now.UnixMilli()
		return &storage.Record{
			ID:           e.newID(),
			StreamID:     stream.ID,
			Index:        lastIndex + 1,
			Name:         in.Name,
			Path:         stream.Path + "/" + in.Name,
			Content:      inline,
			ContentType:  in.ContentType,
			Size:         size,
			ContentHash:  contentHash,
			Hash:         ChainHash(lastHash, contentHash, in.UserID, ts),
			PreviousHash: lastHash,
			UserID:       in.UserID,
			Headers:      in.Headers,
			Deleted:      in.Deleted,
			Storage:      storageTag,
			CreatedAt:    now,
		}, nil
	})
	if err != nil {
		if storageTag != "" {
			if put.CreatedName {
				_ = e.blobs.DeleteName(ctx, stream.PodName, stream.Path, in.Name)
			}
			if put.CreatedContent {
				_ = e.blobs.Purge(ctx, stream.PodName, stream.Path, contentHash)
			}
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.StreamNotFound(stream.Path)
		}
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, apperr.Database(err)
	}

	e.cache.InvalidateRecord(ctx, stream.ID, in.Name)
	return rec, nil
}

// GetByName returns the latest record with the name. Deleted and purged
// names read as not found.
func (e *Engine) GetByName(ctx context.Context, stream *storage.Stream, name string) (*storage.Record, error) {
	key := cache.RecordKey(stream.ID, "name:"+name)
	if data, ok := e.cache.Get(ctx, cache.PoolSingleRecords, key); ok {
		var rec storage.Record
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
	}

	rec, err := e.store.LatestRecordByName(ctx, stream.ID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.RecordNotFound(name)
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	if rec.Deleted || rec.Purged {
		return nil, apperr.RecordNotFound(name)
	}

	if data, err := json.Marshal(rec); err == nil {
		e.cache.Set(ctx, cache.PoolSingleRecords, key, data)
	}
	return rec, nil
}

// GetByIndex returns the record at idx. Negative indices count from the
// end: -1 is the latest. Index reads observe the raw log, deletion
// markers included.
func (e *Engine) GetByIndex(ctx context.Context, stream *storage.Stream, idx int64) (*storage.Record, error) {
	if idx < 0 {
		count, err := e.store.CountRecords(ctx, stream.ID)
		if err != nil {
			return nil, apperr.Database(err)
		}
		idx = count + idx
		if idx < 0 {
			return nil, apperr.RecordNotFound(fmt.Sprintf("index %d", idx))
		}
	}

	rec, err := e.store.RecordByIndex(ctx, stream.ID, idx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.RecordNotFound(fmt.Sprintf("index %d", idx))
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return rec, nil
}

// Range returns records with start <= idx < end. Negative bounds resolve
// against the record count.
func (e *Engine) Range(ctx context.Context, stream *storage.Stream, start, end int64) ([]storage.Record, error) {
	if start < 0 || end < 0 {
		count, err := e.store.CountRecords(ctx, stream.ID)
		if err != nil {
			return nil, apperr.Database(err)
		}
		if start < 0 {
			start = max64(0, count+start)
		}
		if end < 0 {
			end = max64(0, count+end)
		}
	}
	if end < start {
		return nil, apperr.InvalidIndex(fmt.Sprintf("%d:%d", start, end))
	}

	records, err := e.store.RecordRange(ctx, stream.ID, start, end, int64(e.opts.MaxRecordLimit))
	if err != nil {
		return nil, apperr.Database(err)
	}
	return records, nil
}

type ListResult struct {
	Records []storage.Record
	Total   int64
	HasMore bool
}

// List returns index-ordered records, deletion markers included. A
// negative after means "the last N": after = max(0, total+after).
func (e *Engine) List(ctx context.Context, stream *storage.Stream, limit int, after int64) (*ListResult, error) {
	total, err := e.store.CountRecords(ctx, stream.ID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if after < 0 {
		after = max64(0, total+after)
	}
	limit = e.clampLimit(limit)

	key := cache.RecordListKey(stream.ID, fmt.Sprintf("list:%d:%d", limit, after))
	if data, ok := e.cache.Get(ctx, cache.PoolRecordLists, key); ok {
		var result ListResult
		if err := json.Unmarshal(data, &result); err == nil {
			return &result, nil
		}
	}

	records, err := e.store.ListRecords(ctx, stream.ID, after, int64(limit))
	if err != nil {
		return nil, apperr.Database(err)
	}

	result := &ListResult{Records: records, Total: total}
	if len(records) > 0 {
		result.HasMore = records[len(records)-1].Index < total-1
	}
	if data, err := json.Marshal(result); err == nil {
		e.cache.Set(ctx, cache.PoolRecordLists, key, data)
	}
	return result, nil
}

// ListUnique returns one record per live name, the highest-index one.
// Deleted names are omitted, purged rows excluded. A negative after keeps
// the last N unique names.
func (e *Engine) ListUnique(ctx context.Context, stream *storage.Stream, limit int, after int64) (*ListResult, error) {
	unique, err := e.store.ListUniqueRecords(ctx, stream.ID)
	if err != nil {
		return nil, apperr.Database(err)
	}

	total := int64(len(unique))
	if after < 0 {
		after = max64(0, total+after)
	}
	if after > total {
		after = total
	}
	limit = e.clampLimit(limit)

	window := unique[after:]
	hasMore := false
	if len(window) > limit {
		window = window[:limit]
		hasMore = true
	}
	return &ListResult{Records: window, Total: total, HasMore: hasMore}, nil
}

// ListRecursive lists records across the stream and all its descendants,
// depth-first by stream path, index-ascending inside each stream. Streams
// the user cannot read are skipped. Recursive queries bypass the cache.
func (e *Engine) ListRecursive(ctx context.Context, stream *storage.Stream, userID string, unique bool, limit int) ([]storage.Record, error) {
	descendants, err := e.store.ListDescendants(ctx, stream.PodName, stream.Path)
	if err != nil {
		return nil, apperr.Database(err)
	}

	limit = e.clampLimit(limit)
	var out []storage.Record
	for _, st := range descendants {
		allowed, err := e.CanRead(ctx, &st, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}

		var records []storage.Record
		if unique {
			records, err = e.store.ListUniqueRecords(ctx, st.ID)
		} else {
			records, err = e.store.ListRecords(ctx, st.ID, 0, int64(limit-len(out)))
		}
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, records...)
		if len(out) >= limit {
			out = out[:limit]
			break
		}
	}
	return out, nil
}

// SoftDelete appends a deletion marker for the name. Deleting an already
// deleted name is idempotent and appends nothing.
func (e *Engine) SoftDelete(ctx context.Context, stream *storage.Stream, name, userID string) (*storage.Record, error) {
	latest, err := e.store.LatestRecordByName(ctx, stream.ID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.RecordNotFound(name)
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	if latest.Deleted {
		return latest, nil
	}

	marker, err := e.appendRaw(ctx, stream, appendInput{
		Name:        name,
		ContentType: "text/plain",
		UserID:      userID,
		Deleted:     true,
	})
	if err != nil {
		return nil, err
	}

	if e.blobs != nil && latest.Storage != "" {
		if err := e.blobs.DeleteName(ctx, stream.PodName, stream.Path, name); err != nil {
			return nil, apperr.Storage(err)
		}
	}
	return marker, nil
}

// Purge blanks every record with the name in place, keeping hash fields
// for chain continuity, and unlinks external content files.
func (e *Engine) Purge(ctx context.Context, stream *storage.Stream, name, userID string) error {
	artifacts, err := e.store.PurgeRecords(ctx, stream.ID, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.RecordNotFound(name)
		}
		return apperr.Database(err)
	}

	if e.blobs != nil {
		for _, artifact := range artifacts {
			if artifact.Storage == "" {
				continue
			}
			if err := e.blobs.Purge(ctx, stream.PodName, stream.Path, artifact.ContentHash); err != nil {
				return apperr.Storage(err)
			}
		}
		if err := e.blobs.DeleteName(ctx, stream.PodName, stream.Path, name); err != nil {
			return apperr.Storage(err)
		}
	}

	e.cache.InvalidateRecord(ctx, stream.ID, name)
	return nil
}

// OpenBlob streams externally stored record content.
func (e *Engine) OpenBlob(ctx context.Context, stream *storage.Stream, rec *storage.Record) (io.ReadCloser, error) {
	if e.blobs == nil || rec.Storage == "" {
		return nil, apperr.RecordNotFound(rec.Name)
	}
	reader, err := e.blobs.Open(ctx, stream.PodName, stream.Path, rec.ContentHash)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apperr.RecordNotFound(rec.Name)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return reader, nil
}

// VerifyStreamChain re-derives the full hash chain of a stream.
func (e *Engine) VerifyStreamChain(ctx context.Context, stream *storage.Stream) error {
	records, err := e.store.ListRecords(ctx, stream.ID, 0, int64(1<<31))
	if err != nil {
		return apperr.Database(err)
	}
	return VerifyChain(records)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
