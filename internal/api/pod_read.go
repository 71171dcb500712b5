package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/auth"
	"github.com/webpods/webpods/internal/ratelimit"
	"github.com/webpods/webpods/internal/storage"
)

const metaStreamsPath = ".meta/api/streams"

func (h *Handler) servePod(w http.ResponseWriter, r *http.Request, pod string) {
	principal, err := h.authenticate(r, r.Method != http.MethodGet && r.Method != http.MethodHead)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := auth.CheckPodScope(principal, pod); err != nil {
		writeAppError(w, err)
		return
	}
	if _, err := h.engine.GetPod(r.Context(), pod); err != nil {
		writeAppError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.podGet(w, r, pod, principal)
	case http.MethodPost:
		h.podPost(w, r, pod, principal)
	case http.MethodDelete:
		h.podDelete(w, r, pod, principal)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) podGet(w http.ResponseWriter, r *http.Request, pod string, principal *auth.Principal) {
	ctx := r.Context()
	if err := h.admit(w, r, principal, ratelimit.ActionRead); err != nil {
		writeAppError(w, err)
		return
	}

	path := trimPath(r)
	if path == "" {
		h.serveRoot(w, r, pod, principal)
		return
	}
	if path == metaStreamsPath {
		h.serveStreamList(w, r, pod, principal)
		return
	}

	query := r.URL.Query()
	indexSpec := query.Get("i")
	resolved, err := h.engine.ResolveRead(ctx, pod, path, indexSpec != "")
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.requireRead(r, resolved.Stream, principal); err != nil {
		writeAppError(w, err)
		return
	}

	if resolved.RecordName != "" {
		rec, err := h.engine.GetByName(ctx, resolved.Stream, resolved.RecordName)
		if err != nil {
			writeAppError(w, err)
			return
		}
		h.serveRecord(w, r, resolved.Stream, rec)
		return
	}

	switch {
	case indexSpec != "":
		h.serveByIndex(w, r, resolved.Stream, indexSpec)
	case query.Get("recursive") == "true":
		records, err := h.engine.ListRecursive(ctx, resolved.Stream, userID(principal),
			query.Get("unique") == "true", parseIntDefault(query.Get("limit"), 0))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toListPayload(records, int64(len(records)), false))
	case query.Get("unique") == "true":
		result, err := h.engine.ListUnique(ctx, resolved.Stream,
			parseIntDefault(query.Get("limit"), 0), parseInt64Default(query.Get("after"), 0))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toListPayload(result.Records, result.Total, result.HasMore))
	default:
		result, err := h.engine.List(ctx, resolved.Stream,
			parseIntDefault(query.Get("limit"), 0), parseInt64Default(query.Get("after"), 0))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toListPayload(result.Records, result.Total, result.HasMore))
	}
}

// serveByIndex handles ?i=N and ?i=a:b.
func (h *Handler) serveByIndex(w http.ResponseWriter, r *http.Request, stream *storage.Stream, spec string) {
	ctx := r.Context()
	if start, end, ok := parseRangeSpec(spec); ok {
		records, err := h.engine.Range(ctx, stream, start, end)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toListPayload(records, int64(len(records)), false))
		return
	}

	idx, err := strconv.ParseInt(spec, 10, 64)
	if err != nil {
		writeAppError(w, apperr.InvalidIndex(spec))
		return
	}
	rec, err := h.engine.GetByIndex(ctx, stream, idx)
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.serveRecord(w, r, stream, rec)
}

// serveRoot serves "/" through the pod's routing table.
func (h *Handler) serveRoot(w http.ResponseWriter, r *http.Request, pod string, principal *auth.Principal) {
	ctx := r.Context()
	routes, err := h.engine.Routing(ctx, pod)
	if err != nil {
		writeAppError(w, err)
		return
	}
	target, ok := routes["/"]
	if !ok || target == "" {
		writeAppError(w, apperr.NotFound("no root route configured"))
		return
	}

	resolved, err := h.engine.ResolveRead(ctx, pod, target, false)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if resolved.RecordName == "" {
		writeAppError(w, apperr.NotFound("root route does not name a record"))
		return
	}
	if err := h.requireRead(r, resolved.Stream, principal); err != nil {
		writeAppError(w, err)
		return
	}
	rec, err := h.engine.GetByName(ctx, resolved.Stream, resolved.RecordName)
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.serveRecord(w, r, resolved.Stream, rec)
}

// serveStreamList is the read-only ".meta/api/streams" projection,
// filtered to streams the caller can read.
func (h *Handler) serveStreamList(w http.ResponseWriter, r *http.Request, pod string, principal *auth.Principal) {
	ctx := r.Context()
	streams, err := h.engine.ListStreams(ctx, pod)
	if err != nil {
		writeAppError(w, err)
		return
	}

	visible := make([]streamPayload, 0, len(streams))
	for i := range streams {
		allowed, err := h.engine.CanRead(ctx, &streams[i], userID(principal))
		if err != nil {
			writeAppError(w, err)
			return
		}
		if allowed {
			visible = append(visible, toStreamPayload(&streams[i]))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": visible})
}

// serveRecord writes a single record: inline bytes, or a redirect to the
// CDN when the content lives in external storage.
func (h *Handler) serveRecord(w http.ResponseWriter, r *http.Request, stream *storage.Stream, rec *storage.Record) {
	setRecordHeaders(w, rec)

	if rec.Storage != "" {
		cfg := h.cfg()
		if cfg.Blob.CDNBase != "" {
			location := strings.TrimRight(cfg.Blob.CDNBase, "/") + "/" +
				stream.PodName + "/" + stream.Path + "/.storage/" + rec.ContentHash
			w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", cfg.Blob.CacheMaxAgeSeconds))
			w.Header().Set("Location", location)
			w.WriteHeader(http.StatusFound)
			return
		}

		reader, err := h.engine.OpenBlob(r.Context(), stream, rec)
		if err != nil {
			writeAppError(w, err)
			return
		}
		defer reader.Close()
		w.Header().Set("Content-Type", rec.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, reader)
		return
	}

	w.Header().Set("Content-Type", rec.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Content)
}

// requireRead maps a deny to 401 for anonymous callers and 403 otherwise.
func (h *Handler) requireRead(r *http.Request, stream *storage.Stream, principal *auth.Principal) error {
	allowed, err := h.engine.CanRead(r.Context(), stream, userID(principal))
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	if principal == nil {
		return apperr.Unauthorized("authentication required")
	}
	return apperr.Forbidden("read access denied")
}

func parseRangeSpec(spec string) (int64, int64, bool) {
	colon := strings.IndexByte(spec, ':')
	if colon < 0 {
		return 0, 0, false
	}
	start, err1 := strconv.ParseInt(spec[:colon], 10, 64)
	end, err2 := strconv.ParseInt(spec[colon+1:], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, end, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseInt64Default(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
