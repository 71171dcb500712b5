package engine

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/webpods/webpods/internal/apperr"
)

// Content is the normalized write payload: raw bytes plus a content type.
// JSON arrives as canonical bytes and is parsed only at the edges.
type Content struct {
	Data []byte
	Type string
}

// NormalizeContent turns a wire payload into storable bytes. The declared
// type (X-Content-Type) is authoritative when present; otherwise the type
// is detected. Data-URIs are unpacked, and payloads declared as binary
// must be base64 over the wire.
func NormalizeContent(body []byte, declaredType string) (Content, error) {
	if strings.HasPrefix(string(body), "data:") {
		return parseDataURI(body)
	}

	if declaredType != "" {
		if isBinaryType(declaredType) {
			decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
			if err != nil {
				return Content{}, apperr.InvalidContent("binary content must be base64-encoded")
			}
			return Content{Data: decoded, Type: declaredType}, nil
		}
		return Content{Data: body, Type: declaredType}, nil
	}

	return Content{Data: body, Type: detectContentType(body)}, nil
}

func parseDataURI(body []byte) (Content, error) {
	rest := strings.TrimPrefix(string(body), "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return Content{}, apperr.InvalidContent("malformed data URI")
	}
	meta, payload := rest[:comma], rest[comma+1:]

	contentType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(meta, ";") {
		if part == "base64" {
			isBase64 = true
			continue
		}
		if i == 0 && part != "" {
			contentType = part
		}
	}

	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return Content{}, apperr.InvalidContent("malformed base64 in data URI")
		}
		return Content{Data: decoded, Type: contentType}, nil
	}
	return Content{Data: []byte(payload), Type: contentType}, nil
}

func detectContentType(body []byte) string {
	if len(body) == 0 {
		return "text/plain"
	}
	if json.Valid(body) && looksStructured(body) {
		return "application/json"
	}
	if utf8.Valid(body) {
		return "text/plain"
	}
	return http.DetectContentType(body)
}

// looksStructured avoids tagging bare words and numbers as JSON; only
// objects, arrays, and quoted strings detect as application/json.
func looksStructured(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '{', '[', '"':
		return true
	}
	return false
}

func isBinaryType(contentType string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if strings.HasPrefix(base, "text/") {
		return false
	}
	switch base {
	case "application/json", "application/xml", "application/yaml",
		"application/x-www-form-urlencoded", "application/javascript":
		return false
	}
	return strings.HasPrefix(base, "image/") || strings.HasPrefix(base, "audio/") ||
		strings.HasPrefix(base, "video/") || strings.HasPrefix(base, "application/") ||
		strings.HasPrefix(base, "font/")
}
