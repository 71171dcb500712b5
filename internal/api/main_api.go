package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/auth"
	"github.com/webpods/webpods/internal/ratelimit"
	"github.com/webpods/webpods/internal/storage"
)

type podPayload struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type createPodRequest struct {
	Name string `json:"name"`
}

// serveMain handles requests on the main domain: health, metrics, and the
// pod management API.
func (h *Handler) serveMain(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/healthz":
		HealthHandler(w, r)
	case r.URL.Path == "/readyz":
		ReadyHandler(func(r *http.Request) error {
			return h.engine.Store().Ping(r.Context())
		})(w, r)
	case r.URL.Path == "/metrics":
		h.serveMetrics(w, r)
	case r.URL.Path == "/api/pods":
		h.servePods(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/pods/"):
		h.servePodByName(w, r, strings.TrimPrefix(r.URL.Path, "/api/pods/"))
	default:
		writeAppError(w, apperr.NotFound("unknown route"))
	}
}

func (h *Handler) servePods(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authenticate(r, true)
	if err != nil {
		writeAppError(w, err)
		return
	}
	// Pod-scoped tokens cannot manage pods.
	if err := auth.CheckPodScope(principal, ""); err != nil {
		writeAppError(w, err)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.createPod(w, r, principal)
	case http.MethodGet:
		if err := h.admit(w, r, principal, ratelimit.ActionRead); err != nil {
			writeAppError(w, err)
			return
		}
		pods, err := h.engine.ListPodsOwnedBy(r.Context(), principal.UserID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pods": toPodPayloads(pods)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createPod(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	if err := h.admit(w, r, principal, ratelimit.ActionPodCreate); err != nil {
		writeAppError(w, err)
		return
	}

	var req createPodRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	pod, err := h.engine.CreatePod(r.Context(), req.Name, principal.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	h.audit(r, "pod.create", pod.Name, "", "", principal)
	writeJSON(w, http.StatusCreated, podPayload{Name: pod.Name, CreatedAt: pod.CreatedAt})
}

func (h *Handler) servePodByName(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	principal, err := h.authenticate(r, true)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := auth.CheckPodScope(principal, ""); err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.admit(w, r, principal, ratelimit.ActionWrite); err != nil {
		writeAppError(w, err)
		return
	}

	ctx := r.Context()
	if _, err := h.engine.GetPod(ctx, name); err != nil {
		writeAppError(w, err)
		return
	}
	owner, err := h.engine.Owner(ctx, name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if owner == "" || principal.UserID != owner {
		writeAppError(w, apperr.Forbidden("only the pod owner can delete the pod"))
		return
	}
	if err := h.engine.DeletePod(ctx, name); err != nil {
		writeAppError(w, err)
		return
	}
	h.audit(r, "pod.delete", name, "", "", principal)
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSONBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.InvalidInput("malformed JSON body")
	}
	return nil
}

func toPodPayloads(pods []storage.Pod) []podPayload {
	out := make([]podPayload, 0, len(pods))
	for _, p := range pods {
		out = append(out, podPayload{Name: p.Name, CreatedAt: p.CreatedAt})
	}
	return out
}
