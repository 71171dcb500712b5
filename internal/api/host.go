package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/webpods/webpods/internal/apperr"
)

// HostTarget is the outcome of host resolution: either the main API or a
// pod surface.
type HostTarget struct {
	Main bool
	Pod  string
}

// ResolveHost maps the request host to a target. Order: exact main domain,
// subdomain label, custom-domain lookup, root-pod fallback. On localhost
// an X-Pod-Name header simulates the subdomain for development.
func (h *Handler) ResolveHost(ctx context.Context, r *http.Request) (HostTarget, error) {
	cfg := h.cfg()
	host := requestHost(r)

	if isLocalhost(host) {
		if pod := r.Header.Get("X-Pod-Name"); pod != "" {
			return HostTarget{Pod: strings.ToLower(pod)}, nil
		}
		return HostTarget{Main: true}, nil
	}

	main := strings.ToLower(cfg.MainDomain)
	if host == main {
		return HostTarget{Main: true}, nil
	}
	if label, ok := strings.CutSuffix(host, "."+main); ok && !strings.Contains(label, ".") {
		return HostTarget{Pod: label}, nil
	}

	if pod, err := h.engine.ResolveCustomDomain(ctx, host); err == nil {
		return HostTarget{Pod: pod}, nil
	} else if !apperr.Is(err, apperr.CodePodNotFound) {
		return HostTarget{}, err
	}

	if cfg.RootPod != "" {
		return HostTarget{Pod: cfg.RootPod}, nil
	}
	return HostTarget{}, apperr.PodNotFound(host)
}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// remoteIP is the anonymous rate-limit identity.
func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
