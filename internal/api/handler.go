package api

import (
	"net/http"
	"strings"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/auth"
	"github.com/webpods/webpods/internal/config"
	"github.com/webpods/webpods/internal/engine"
	"github.com/webpods/webpods/internal/ratelimit"
)

// Handler is the whole HTTP surface: it resolves the host to the main API
// or a pod, authenticates, admits against the rate limiter, and hands the
// request to the engine.
type Handler struct {
	cfg      func() *config.Config
	engine   *engine.Engine
	verifier *auth.Verifier
	limiter  ratelimit.Limiter
}

func NewHandler(cfg func() *config.Config, eng *engine.Engine, verifier *auth.Verifier, limiter ratelimit.Limiter) *Handler {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	return &Handler{cfg: cfg, engine: eng, verifier: verifier, limiter: limiter}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, err := h.ResolveHost(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if target.Main {
		h.serveMain(w, r)
		return
	}
	h.servePod(w, r, target.Pod)
}

// authenticate extracts the principal. With required=false a missing
// token yields an anonymous principal; a present but invalid token is
// still an error.
func (h *Handler) authenticate(r *http.Request, required bool) (*auth.Principal, error) {
	principal, err := h.verifier.AuthenticateRequest(r)
	if err != nil {
		if !required && err == auth.ErrMissingToken {
			return nil, nil
		}
		return nil, auth.AuthError(err)
	}
	return principal, nil
}

// admit debits the rate limiter and stamps the X-RateLimit headers.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, principal *auth.Principal, action ratelimit.Action) error {
	identifier := "ip:" + remoteIP(r)
	if principal != nil {
		identifier = principal.UserID
	}
	result, err := h.limiter.Allow(r.Context(), identifier, action)
	if err != nil {
		return apperr.Database(err)
	}
	setRateLimitHeaders(w, result)
	if !result.Allowed {
		return apperr.RateLimitExceeded(string(action))
	}
	return nil
}

func userID(principal *auth.Principal) string {
	if principal == nil {
		return ""
	}
	return principal.UserID
}

func trimPath(r *http.Request) string {
	return strings.Trim(r.URL.Path, "/")
}
