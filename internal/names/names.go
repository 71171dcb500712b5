// Package names validates the identifiers that make up pod, stream, and
// record paths.
package names

import (
	"regexp"
	"strings"
)

var (
	podRe     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,61}[a-z0-9]$`)
	segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	recordRe  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// System segments are the reserved dot-prefixed roots. Only these may carry
// a leading dot in a stream path.
const (
	ConfigSegment = ".config"
	MetaSegment   = ".meta"
)

// ValidPod reports whether name is a DNS-safe pod name: lowercase
// letters, digits, and hyphens, 2-63 characters, no leading or trailing
// hyphen.
func ValidPod(name string) bool {
	return len(name) >= 2 && len(name) <= 63 && podRe.MatchString(name)
}

// ValidSegment reports whether s is usable as one stream path segment.
// The literal ".config" and ".meta" segments are permitted so that system
// streams can be addressed; any other dotted segment is not.
func ValidSegment(s string) bool {
	if s == ConfigSegment || s == MetaSegment {
		return true
	}
	return segmentRe.MatchString(s)
}

// ValidRecord reports whether s is a legal record name: letters, digits,
// dash, underscore, and interior dots.
func ValidRecord(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	return recordRe.MatchString(s)
}

// ValidStreamPath validates every segment of a slash-joined stream path.
func ValidStreamPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, "/") {
		if !ValidSegment(seg) {
			return false
		}
	}
	return true
}

// IsSystemPath reports whether path addresses a ".config" system stream.
func IsSystemPath(path string) bool {
	return path == ConfigSegment || strings.HasPrefix(path, ConfigSegment+"/")
}

// IsMetaPath reports whether path addresses the read-only ".meta" projection.
func IsMetaPath(path string) bool {
	return path == MetaSegment || strings.HasPrefix(path, MetaSegment+"/")
}
