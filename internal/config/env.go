package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type envReader struct {
	errs []error
}

func (e *envReader) str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) list(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func (e *envReader) int(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) bool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(dst *Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = Duration(d)
	}
}

func (c *Config) applyEnv() error {
	var e envReader

	e.str(&c.Server.Addr, "APP_ADDR")
	e.str(&c.Server.APISecret, "API_SECRET")
	e.str(&c.Server.InternalSecret, "INTERNAL_SECRET")
	e.list(&c.Server.CORSOrigins, "CORS_ORIGINS")
	e.float(&c.Server.RateLimitRPS, "RATE_LIMIT_RPS")
	e.int(&c.Server.RateLimitBurst, "RATE_LIMIT_BURST")
	e.int64(&c.Server.MaxBodyBytes, "MAX_BODY_BYTES")
	e.bool(&c.Server.EnableHSTS, "ENABLE_HSTS")
	e.list(&c.Server.TrustedProxies, "TRUSTED_PROXIES")

	e.str(&c.Database.DSN, "DB_DSN")
	e.duration(&c.Database.Timeout, "DB_TIMEOUT")
	e.bool(&c.Database.MigrateOnStart, "MIGRATE_ON_START")

	e.str(&c.Log.Level, "LOG_LEVEL")
	e.str(&c.Log.Format, "LOG_FORMAT")

	e.str(&c.Lookup.UserAgent, "LOOKUP_USER_AGENT")
	e.list(&c.Lookup.Sources, "LOOKUP_SOURCES")
	e.int(&c.Lookup.OpenLibraryRPS, "OPENLIBRARY_RPS")
	e.str(&c.Lookup.GoogleBooksAPIKey, "GOOGLE_BOOKS_API_KEY")
	e.int(&c.Lookup.GoogleBooksRPS, "GOOGLE_BOOKS_RPS")
	e.int(&c.Lookup.MaxRetries, "LOOKUP_MAX_RETRIES")

	e.str(&c.Tokens.MasterKey, "TOKEN_MASTER_KEY")
	e.str(&c.Tokens.Passphrase, "TOKEN_PASSPHRASE")
	e.str(&c.Tokens.KeyTemplate, "TOKEN_KEY_TEMPLATE")
	e.str(&c.Tokens.PrefsDSN, "PREFS_DSN")

	e.str(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	e.str(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	e.str(&c.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	e.bool(&c.Google.UseBackendAuth, "GOOGLE_USE_BACKEND_AUTH")
	e.str(&c.Google.AppName, "GOOGLE_APP_NAME")

	e.str(&c.S3.Endpoint, "S3_ENDPOINT")
	e.str(&c.S3.Region, "S3_REGION")
	e.str(&c.S3.Bucket, "S3_BUCKET")
	e.str(&c.S3.AccessKey, "S3_ACCESS_KEY")
	e.str(&c.S3.SecretKey, "S3_SECRET_KEY")
	e.str(&c.S3.ObjectKey, "S3_OBJECT_KEY")

	e.int(&c.Refresh.BatchSize, "REFRESH_BATCH_SIZE")
	e.int(&c.Refresh.FreshnessDays, "REFRESH_FRESHNESS_DAYS")
	e.int(&c.Refresh.MaxBooks, "REFRESH_MAX_BOOKS")

	return errors.Join(e.errs...)
}
