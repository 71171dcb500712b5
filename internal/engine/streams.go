package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/cache"
	"github.com/webpods/webpods/internal/names"
	"github.com/webpods/webpods/internal/storage"
)

const (
	accessPublic  = "public"
	accessPrivate = "private"
)

// GetStream returns the stream at path, through the cache.
func (e *Engine) GetStream(ctx context.Context, podName, path string) (*storage.Stream, error) {
	key := cache.StreamKey(podName, path)
	if data, ok := e.cache.Get(ctx, cache.PoolStreams, key); ok {
		var st storage.Stream
		if err := json.Unmarshal(data, &st); err == nil {
			return &st, nil
		}
	}

	v, err := e.cache.Do(key, func() (any, error) {
		st, err := e.store.GetStreamByPath(ctx, podName, path)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.StreamNotFound(path)
		}
		if err != nil {
			return nil, apperr.Database(err)
		}
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	st := v.(*storage.Stream)
	if data, err := json.Marshal(st); err == nil {
		e.cache.Set(ctx, cache.PoolStreams, key, data)
	}
	return st, nil
}

// CreateStream creates the stream at path explicitly, including missing
// ancestors. The access permission applies to the leaf; ancestors are
// created with the default for their path. The caller must have passed a
// permission check first.
func (e *Engine) CreateStream(ctx context.Context, podName, path, userID, access string) (*storage.Stream, error) {
	if !names.ValidStreamPath(path) {
		return nil, apperr.InvalidName(path)
	}
	if access == "" {
		access = defaultAccess(path)
	} else if err := validateAccess(access); err != nil {
		return nil, err
	}

	if _, err := e.store.GetStreamByPath(ctx, podName, path); err == nil {
		return nil, apperr.StreamExists(path)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Database(err)
	}

	return e.ensureHierarchyUnchecked(ctx, podName, path, userID, access)
}

// EnsureStream returns the stream at path, lazily creating the hierarchy
// when it does not exist yet.
func (e *Engine) EnsureStream(ctx context.Context, podName, path, userID string) (*storage.Stream, bool, error) {
	st, err := e.store.GetStreamByPath(ctx, podName, path)
	if err == nil {
		return st, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, apperr.Database(err)
	}
	created, err := e.ensureHierarchyUnchecked(ctx, podName, path, userID, defaultAccess(path))
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// defaultAccess: system streams are owner-only private, everything else is
// publicly readable until restricted.
func defaultAccess(path string) string {
	if names.IsSystemPath(path) {
		return accessPrivate
	}
	return accessPublic
}

func validateAccess(access string) error {
	if access == accessPublic || access == accessPrivate {
		return nil
	}
	if strings.HasPrefix(access, "/") {
		if !names.ValidStreamPath(strings.TrimPrefix(access, "/")) {
			return apperr.InvalidInput("access permission stream path is invalid")
		}
		return nil
	}
	return apperr.InvalidInput("access must be public, private, or /permission-stream")
}

// ensureHierarchyUnchecked creates every missing stream along path. The
// leaf receives the given access permission, ancestors their default.
func (e *Engine) ensureHierarchyUnchecked(ctx context.Context, podName, path, userID, access string) (*storage.Stream, error) {
	if !names.ValidStreamPath(path) {
		return nil, apperr.InvalidName(path)
	}

	segments := strings.Split(path, "/")
	var parent *storage.Stream
	var current *storage.Stream
	for i, segment := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		st, err := e.store.GetStreamByPath(ctx, podName, prefix)
		if err == nil {
			parent = st
			current = st
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Database(err)
		}

		// A record with the segment name in the parent stream blocks the
		// stream path: stream and record paths must not collide.
		if parent != nil {
			taken, err := e.store.HasRecordName(ctx, parent.ID, segment)
			if err != nil {
				return nil, apperr.Database(err)
			}
			if taken {
				return nil, apperr.NameConflict(
					"record " + parent.Path + "/" + segment + " blocks the stream path")
			}
		}

		streamAccess := defaultAccess(prefix)
		if i == len(segments)-1 {
			streamAccess = access
		}
		parentID := ""
		if parent != nil {
			parentID = parent.ID
		}
		created := &storage.Stream{
			ID:               e.newID(),
			PodName:          podName,
			ParentID:         parentID,
			Name:             segment,
			Path:             prefix,
			UserID:           userID,
			AccessPermission: streamAccess,
		}
		if err := e.store.CreateStream(ctx, created, e.now()); err != nil {
			return nil, apperr.Database(err)
		}
		e.cache.Clear(ctx, cache.StreamKey(podName, prefix))
		parent = created
		current = created
	}
	return current, nil
}

// DeleteStream removes the stream and all descendants. System streams are
// not deletable through the public surface.
func (e *Engine) DeleteStream(ctx context.Context, podName, path string) error {
	if names.IsSystemPath(path) {
		return apperr.Forbidden("system streams cannot be deleted")
	}
	st, err := e.GetStream(ctx, podName, path)
	if err != nil {
		return err
	}

	ids, err := e.store.DeleteStream(ctx, podName, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.StreamNotFound(path)
		}
		return apperr.Database(err)
	}
	if e.blobs != nil {
		if err := e.blobs.DeleteTree(ctx, podName, path); err != nil {
			return apperr.Storage(err)
		}
	}

	e.cache.InvalidateStream(ctx, podName, path, st.ID)
	for _, id := range ids {
		e.cache.ClearPattern(ctx, "record:"+id+":*")
		e.cache.ClearPattern(ctx, "recordList:"+id+":*")
	}
	e.cache.ClearPattern(ctx, "stream:"+podName+":*")
	return nil
}

// ListStreams returns every stream in the pod, path-ordered. Backs the
// ".meta/api/streams" projection.
func (e *Engine) ListStreams(ctx context.Context, podName string) ([]storage.Stream, error) {
	streams, err := e.store.ListStreams(ctx, podName)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return streams, nil
}
