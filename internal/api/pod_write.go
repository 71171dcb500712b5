package api

import (
	"io"
	"net/http"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/auth"
	"github.com/webpods/webpods/internal/engine"
	"github.com/webpods/webpods/internal/ratelimit"
	"github.com/webpods/webpods/internal/storage"
)

func (h *Handler) podPost(w http.ResponseWriter, r *http.Request, pod string, principal *auth.Principal) {
	ctx := r.Context()
	cfg := h.cfg()

	path := trimPath(r)
	if path == "" {
		writeAppError(w, apperr.InvalidInput("cannot write to the pod root"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, cfg.Limits.MaxPayloadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeAppError(w, apperr.ContentTooLarge(cfg.Limits.MaxPayloadBytes+1, cfg.Limits.MaxPayloadBytes))
		return
	}

	declaredType := r.Header.Get("X-Content-Type")
	recordType := r.Header.Get("X-Record-Type")

	// An empty body with no content type creates a stream at the full
	// path; anything else appends, last segment as the record name.
	if len(body) == 0 && declaredType == "" && recordType == "" {
		h.createStream(w, r, pod, path, principal)
		return
	}

	if err := h.admit(w, r, principal, ratelimit.ActionWrite); err != nil {
		writeAppError(w, err)
		return
	}

	streamPath, name, err := engine.SplitWritePath(path)
	if err != nil {
		writeAppError(w, err)
		return
	}

	stream, err := h.writableStream(r, pod, streamPath, principal)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var content engine.Content
	if recordType == "file" {
		// Raw uploads skip wire decoding: the body is the content.
		contentType := declaredType
		if contentType == "" {
			contentType = r.Header.Get("Content-Type")
		}
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(body)
		}
		content = engine.Content{Data: body, Type: contentType}
	} else {
		content, err = engine.NormalizeContent(body, declaredType)
		if err != nil {
			writeAppError(w, err)
			return
		}
	}

	var headers map[string]string
	if recordType != "" {
		headers = map[string]string{"type": recordType}
	}

	rec, err := h.engine.Append(ctx, stream, name, content, headers, principal.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	h.audit(r, "record.append", pod, stream.Path, name, principal)
	setRecordHeaders(w, rec)
	writeJSON(w, http.StatusCreated, toRecordPayload(rec))
}

// writableStream returns the target stream for an append, lazily creating
// the hierarchy when permitted.
func (h *Handler) writableStream(r *http.Request, pod, streamPath string, principal *auth.Principal) (*storage.Stream, error) {
	ctx := r.Context()

	stream, err := h.engine.GetStream(ctx, pod, streamPath)
	if err == nil {
		allowed, err := h.engine.CanWrite(ctx, stream, principal.UserID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperr.Forbidden("write access denied")
		}
		return stream, nil
	}
	if !apperr.Is(err, apperr.CodeStreamNotFound) {
		return nil, err
	}

	allowed, err := h.engine.CanCreate(ctx, pod, streamPath, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("stream creation denied")
	}
	stream, _, err = h.engine.EnsureStream(ctx, pod, streamPath, principal.UserID)
	return stream, err
}

func (h *Handler) createStream(w http.ResponseWriter, r *http.Request, pod, path string, principal *auth.Principal) {
	ctx := r.Context()
	if err := h.admit(w, r, principal, ratelimit.ActionStreamCreate); err != nil {
		writeAppError(w, err)
		return
	}

	allowed, err := h.engine.CanCreate(ctx, pod, path, principal.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !allowed {
		writeAppError(w, apperr.Forbidden("stream creation denied"))
		return
	}

	stream, err := h.engine.CreateStream(ctx, pod, path, principal.UserID, r.URL.Query().Get("access"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	h.audit(r, "stream.create", pod, stream.Path, "", principal)
	writeJSON(w, http.StatusCreated, toStreamPayload(stream))
}

func (h *Handler) podDelete(w http.ResponseWriter, r *http.Request, pod string, principal *auth.Principal) {
	ctx := r.Context()
	if err := h.admit(w, r, principal, ratelimit.ActionWrite); err != nil {
		writeAppError(w, err)
		return
	}

	path := trimPath(r)
	if path == "" {
		owner, err := h.engine.Owner(ctx, pod)
		if err != nil {
			writeAppError(w, err)
			return
		}
		if owner == "" || principal.UserID != owner {
			writeAppError(w, apperr.Forbidden("only the pod owner can delete the pod"))
			return
		}
		if err := h.engine.DeletePod(ctx, pod); err != nil {
			writeAppError(w, err)
			return
		}
		h.audit(r, "pod.delete", pod, "", "", principal)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resolved, err := h.engine.ResolveRead(ctx, pod, path, false)
	if err != nil {
		writeAppError(w, err)
		return
	}
	allowed, err := h.engine.CanDelete(ctx, resolved.Stream, principal.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !allowed {
		writeAppError(w, apperr.Forbidden("delete access denied"))
		return
	}

	if resolved.RecordName == "" {
		if err := h.engine.DeleteStream(ctx, pod, resolved.Stream.Path); err != nil {
			writeAppError(w, err)
			return
		}
		h.audit(r, "stream.delete", pod, resolved.Stream.Path, "", principal)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.URL.Query().Get("purge") == "true" {
		if err := h.engine.Purge(ctx, resolved.Stream, resolved.RecordName, principal.UserID); err != nil {
			writeAppError(w, err)
			return
		}
		h.audit(r, "record.purge", pod, resolved.Stream.Path, resolved.RecordName, principal)
	} else {
		if _, err := h.engine.SoftDelete(ctx, resolved.Stream, resolved.RecordName, principal.UserID); err != nil {
			writeAppError(w, err)
			return
		}
		h.audit(r, "record.delete", pod, resolved.Stream.Path, resolved.RecordName, principal)
	}
	w.WriteHeader(http.StatusNoContent)
}
