package engine

import (
	"context"
	"strings"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/names"
	"github.com/webpods/webpods/internal/storage"
)

// Resolved is the outcome of read-path resolution: the stream plus an
// optional record name. RecordName is empty for stream-level operations.
type Resolved struct {
	Stream     *storage.Stream
	RecordName string
}

// SplitWritePath splits a write path into (streamPath, recordName). The
// final segment is always the record name on writes.
func SplitWritePath(path string) (string, string, error) {
	segments := splitPath(path)
	if len(segments) < 2 {
		return "", "", apperr.InvalidInput("write path needs a stream and a record name")
	}

	name := segments[len(segments)-1]
	streamPath := strings.Join(segments[:len(segments)-1], "/")
	if !names.ValidRecord(name) {
		return "", "", apperr.InvalidName(name)
	}
	if !names.ValidStreamPath(streamPath) {
		return "", "", apperr.InvalidName(streamPath)
	}
	return streamPath, name, nil
}

// ResolveRead disambiguates a read path. The full path is tried as a
// stream first; forceStream (an ?i= query) makes that interpretation
// binding. Otherwise the last segment is popped as a record name and the
// prefix retried as the stream.
func (e *Engine) ResolveRead(ctx context.Context, podName, path string, forceStream bool) (*Resolved, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, apperr.InvalidInput("empty path")
	}

	full := strings.Join(segments, "/")
	if names.ValidStreamPath(full) {
		stream, err := e.GetStream(ctx, podName, full)
		if err == nil {
			return &Resolved{Stream: stream}, nil
		}
		if !apperr.Is(err, apperr.CodeStreamNotFound) {
			return nil, err
		}
	}
	if forceStream {
		return nil, apperr.StreamNotFound(full)
	}

	if len(segments) < 2 {
		return nil, apperr.StreamNotFound(full)
	}
	name := segments[len(segments)-1]
	if !names.ValidRecord(name) {
		return nil, apperr.InvalidName(name)
	}
	prefix := strings.Join(segments[:len(segments)-1], "/")
	if !names.ValidStreamPath(prefix) {
		return nil, apperr.InvalidName(prefix)
	}

	stream, err := e.GetStream(ctx, podName, prefix)
	if err != nil {
		return nil, err
	}
	return &Resolved{Stream: stream, RecordName: name}, nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
