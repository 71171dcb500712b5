package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/cache"
	"github.com/webpods/webpods/internal/names"
	"github.com/webpods/webpods/internal/storage"
)

const (
	ownerStreamPath   = ".config/owner"
	ownerRecordName   = "owner"
	routingStreamPath = ".config/routing"
	routingRecordName = "routes"
	domainsStreamPath = ".config/domains"
)

// ownerPayload is the content of ".config/owner" records. The latest
// record wins; writing a new one transfers the pod.
type ownerPayload struct {
	Owner string `json:"owner"`
}

// CreatePod registers the pod and seeds its ".config/owner" stream with
// the creator as owner.
func (e *Engine) CreatePod(ctx context.Context, name, userID string) (*storage.Pod, error) {
	if !names.ValidPod(name) {
		return nil, apperr.InvalidPodID(name)
	}
	if userID == "" {
		return nil, apperr.Unauthorized("pod creation requires a principal")
	}

	now := e.now()
	if err := e.store.CreatePod(ctx, name, now); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, apperr.PodExists(name)
		}
		return nil, apperr.Database(err)
	}

	ownerStream, err := e.ensureHierarchyUnchecked(ctx, name, ownerStreamPath, userID, accessPrivate)
	if err != nil {
		return nil, err
	}
	content, _ := json.Marshal(ownerPayload{Owner: userID})
	if _, err := e.appendRaw(ctx, ownerStream, appendInput{
		Name:        ownerRecordName,
		Content:     content,
		ContentType: "application/json",
		UserID:      userID,
	}); err != nil {
		return nil, err
	}

	e.cache.InvalidatePod(ctx, name)
	return &storage.Pod{Name: name, CreatedAt: now}, nil
}

func (e *Engine) GetPod(ctx context.Context, name string) (*storage.Pod, error) {
	key := cache.PodKey(name)
	if data, ok := e.cache.Get(ctx, cache.PoolPods, key); ok {
		var pod storage.Pod
		if err := json.Unmarshal(data, &pod); err == nil {
			return &pod, nil
		}
	}

	v, err := e.cache.Do(key, func() (any, error) {
		pod, err := e.store.GetPod(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.PodNotFound(name)
		}
		if err != nil {
			return nil, apperr.Database(err)
		}
		return pod, nil
	})
	if err != nil {
		return nil, err
	}
	pod := v.(*storage.Pod)
	if data, err := json.Marshal(pod); err == nil {
		e.cache.Set(ctx, cache.PoolPods, key, data)
	}
	return pod, nil
}

// DeletePod removes the pod, its streams and records, and its blob tree.
func (e *Engine) DeletePod(ctx context.Context, name string) error {
	if err := e.store.DeletePod(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.PodNotFound(name)
		}
		return apperr.Database(err)
	}
	if e.blobs != nil {
		if err := e.blobs.DeleteTree(ctx, name, ""); err != nil {
			return apperr.Storage(err)
		}
	}
	e.cache.InvalidatePod(ctx, name)
	return nil
}

// Owner returns the pod's current owner: the latest non-deleted record in
// ".config/owner". Empty when the stream or record is missing.
func (e *Engine) Owner(ctx context.Context, podName string) (string, error) {
	stream, err := e.store.GetStreamByPath(ctx, podName, ownerStreamPath)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Database(err)
	}

	rec, err := e.store.LatestRecordByName(ctx, stream.ID, ownerRecordName)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Database(err)
	}
	if rec.Deleted || rec.Purged {
		return "", nil
	}

	var payload ownerPayload
	if err := json.Unmarshal(rec.Content, &payload); err != nil {
		return "", nil
	}
	return payload.Owner, nil
}

// Routing returns the pod's path routing table from ".config/routing",
// or nil when unset.
func (e *Engine) Routing(ctx context.Context, podName string) (map[string]string, error) {
	stream, err := e.store.GetStreamByPath(ctx, podName, routingStreamPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	rec, err := e.store.LatestRecordByName(ctx, stream.ID, routingRecordName)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	if rec.Deleted || rec.Purged {
		return nil, nil
	}

	var routes map[string]string
	if err := json.Unmarshal(rec.Content, &routes); err != nil {
		return nil, apperr.InvalidContent(fmt.Sprintf("malformed routing table in %s", routingStreamPath))
	}
	return routes, nil
}

// ResolveCustomDomain maps a custom domain to its pod via ".config/domains".
func (e *Engine) ResolveCustomDomain(ctx context.Context, domain string) (string, error) {
	podName, err := e.store.LookupCustomDomain(ctx, domain)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.PodNotFound(domain)
	}
	if err != nil {
		return "", apperr.Database(err)
	}
	return podName, nil
}

// ListPodsOwnedBy returns the pods whose latest owner record names the
// user.
func (e *Engine) ListPodsOwnedBy(ctx context.Context, userID string) ([]storage.Pod, error) {
	rows, err := e.store.ListPodsWithOwners(ctx)
	if err != nil {
		return nil, apperr.Database(err)
	}
	var out []storage.Pod
	for _, row := range rows {
		if len(row.OwnerContent) == 0 {
			continue
		}
		var payload ownerPayload
		if err := json.Unmarshal(row.OwnerContent, &payload); err != nil {
			continue
		}
		if payload.Owner == userID {
			out = append(out, row.Pod)
		}
	}
	return out, nil
}
