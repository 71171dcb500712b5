package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/names"
	"github.com/webpods/webpods/internal/storage"
)

// permissionGrant is the content of a record in a permission stream. The
// record name is the target user id; the latest record per name wins.
type permissionGrant struct {
	ID    string `json:"id"`
	Read  bool   `json:"read,omitempty"`
	Write bool   `json:"write,omitempty"`
}

// CanRead decides read access for the stream. userID may be empty for
// anonymous requests.
func (e *Engine) CanRead(ctx context.Context, stream *storage.Stream, userID string) (bool, error) {
	return e.resolveAccess(ctx, stream, userID, false)
}

// CanWrite decides write access. Writes always require a principal, and
// ".config/*" streams are owner-only regardless of their permission.
func (e *Engine) CanWrite(ctx context.Context, stream *storage.Stream, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if names.IsSystemPath(stream.Path) {
		owner, err := e.Owner(ctx, stream.PodName)
		if err != nil {
			return false, err
		}
		return owner != "" && userID == owner, nil
	}
	return e.resolveAccess(ctx, stream, userID, true)
}

// resolveAccess walks the stream and its ancestors until a rule decides.
//
//  1. The pod owner has full access.
//  2. The creator keeps access only while they are still the pod owner,
//     or when no owner record exists yet.
//  3. "public": anyone reads, any principal writes.
//  4. "private": creator only (rule 2).
//  5. "/path": a permission stream in the same pod decides.
//  6. No decision at this level: inherit from the parent; default deny.
func (e *Engine) resolveAccess(ctx context.Context, stream *storage.Stream, userID string, write bool) (bool, error) {
	owner, err := e.Owner(ctx, stream.PodName)
	if err != nil {
		return false, err
	}
	if owner != "" && userID != "" && userID == owner {
		return true, nil
	}

	current := stream
	for {
		creatorAllowed := userID != "" && userID == current.UserID &&
			(owner == "" || current.UserID == owner)
		if creatorAllowed {
			return true, nil
		}

		switch access := current.AccessPermission; {
		case access == accessPublic:
			if write {
				return userID != "", nil
			}
			return true, nil

		case access == accessPrivate:
			return false, nil

		case strings.HasPrefix(access, "/"):
			return e.permissionStreamGrants(ctx, current.PodName, access, userID, write)
		}

		if current.ParentID == "" {
			return false, nil
		}
		parent, err := e.store.GetStreamByID(ctx, current.ParentID)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, apperr.Database(err)
		}
		current = parent
	}
}

// CanCreate decides whether the user may create a stream at path. The
// nearest existing ancestor's write permission governs; with no existing
// ancestor only the pod owner may add root streams. System paths are
// owner-only.
func (e *Engine) CanCreate(ctx context.Context, podName, path, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	owner, err := e.Owner(ctx, podName)
	if err != nil {
		return false, err
	}
	if owner != "" && userID == owner {
		return true, nil
	}
	if names.IsSystemPath(path) {
		return false, nil
	}

	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 1; i-- {
		prefix := strings.Join(segments[:i], "/")
		ancestor, err := e.store.GetStreamByPath(ctx, podName, prefix)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, apperr.Database(err)
		}
		return e.CanWrite(ctx, ancestor, userID)
	}
	return false, nil
}

// CanDelete governs record and stream deletion: the pod owner or the
// stream's creator.
func (e *Engine) CanDelete(ctx context.Context, stream *storage.Stream, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	owner, err := e.Owner(ctx, stream.PodName)
	if err != nil {
		return false, err
	}
	if owner != "" && userID == owner {
		return true, nil
	}
	return userID == stream.UserID, nil
}

// permissionStreamGrants consults the permission stream named by the
// access field. The latest non-deleted record named after the user
// decides; a missing record or stream denies.
func (e *Engine) permissionStreamGrants(ctx context.Context, podName, access, userID string, write bool) (bool, error) {
	if userID == "" {
		return false, nil
	}

	permStream, err := e.store.GetStreamByPath(ctx, podName, strings.TrimPrefix(access, "/"))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Database(err)
	}

	rec, err := e.store.LatestRecordByName(ctx, permStream.ID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Database(err)
	}
	if rec.Deleted || rec.Purged {
		return false, nil
	}

	var grant permissionGrant
	if err := json.Unmarshal(rec.Content, &grant); err != nil {
		return false, nil
	}
	if write {
		return grant.Write, nil
	}
	return grant.Read, nil
}
