package config

import (
	"fmt"
	"strings"
)

type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func Validate(cfg *Config) ValidationResult {
	if cfg == nil {
		return ValidationResult{Errors: []string{"config is nil"}}
	}

	var errs []string
	var warns []string

	if cfg.MainDomain == "" {
		errs = append(errs, "main_domain is required")
	}
	if strings.TrimSpace(cfg.Server.Address) == "" {
		errs = append(errs, "server.address is required")
	}

	if cfg.Auth.JWTSecret == "" && cfg.Auth.IssuerURL == "" {
		errs = append(errs, "auth.jwt_secret or auth.issuer_url is required")
	}
	if cfg.Auth.IssuerURL != "" && cfg.Auth.Audience == "" {
		warns = append(warns, "auth.audience is empty (issuer tokens will not be audience-checked)")
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, "database_url is required")
	}

	if cfg.Blob.Root == "" {
		warns = append(warns, "blob.root is empty (large records will be stored inline)")
	}
	if cfg.Blob.CDNBase != "" && cfg.Blob.Root == "" {
		errs = append(errs, "blob.cdn_base requires blob.root")
	}
	if cfg.Limits.ExternalThresholdBytes > cfg.Limits.MaxPayloadBytes {
		warns = append(warns, "limits.external_threshold_bytes exceeds limits.max_payload_bytes (offload will never trigger)")
	}

	switch cfg.RateLimits.Adapter {
	case "sql", "memory", "none":
	default:
		errs = append(errs, fmt.Sprintf("rate_limits.adapter %q is not one of sql, memory, none", cfg.RateLimits.Adapter))
	}
	if cfg.RateLimits.Read < 0 || cfg.RateLimits.Write < 0 ||
		cfg.RateLimits.PodCreate < 0 || cfg.RateLimits.StreamCreate < 0 {
		errs = append(errs, "rate_limits values must be >= 0")
	}

	switch cfg.Cache.Adapter {
	case "memory", "redis", "none":
	default:
		errs = append(errs, fmt.Sprintf("cache.adapter %q is not one of memory, redis, none", cfg.Cache.Adapter))
	}
	if cfg.Cache.Adapter == "redis" && cfg.Cache.RedisURL == "" {
		errs = append(errs, "cache.adapter redis requires cache.redis_url")
	}

	if cfg.RootPod != "" && strings.Contains(cfg.RootPod, ".") {
		errs = append(errs, "root_pod must be a pod name, not a domain")
	}

	return ValidationResult{Errors: errs, Warnings: warns}
}
