package api

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/webpods/webpods/internal/auth"
)

// audit emits a structured line for every mutation when audit logging is
// enabled. Reads are not audited.
func (h *Handler) audit(r *http.Request, action, pod, streamPath, record string, principal *auth.Principal) {
	if !h.cfg().Server.AuditLogs {
		return
	}
	fields := []any{
		"action", action,
		"pod", pod,
		"user", userID(principal),
		"ip", remoteIP(r),
	}
	if streamPath != "" {
		fields = append(fields, "stream", streamPath)
	}
	if record != "" {
		fields = append(fields, "record", record)
	}
	log.Info("audit", fields...)
}
