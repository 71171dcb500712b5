package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/ratelimit"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps a tagged error onto its wire shape. Anything that is
// not an *apperr.Error surfaces as INTERNAL_ERROR and is logged with its
// cause; the cause never reaches the client.
func writeAppError(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Error("request failed", "code", ae.Code, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: ae.Code, Message: ae.Message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// setRateLimitHeaders exposes the bucket state on every admitted or
// rejected request.
func setRateLimitHeaders(w http.ResponseWriter, result ratelimit.Result) {
	if result.Limit < 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
}
