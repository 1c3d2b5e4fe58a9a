package config

import (
	"errors"
	"fmt"
	"strings"

	"biblomnemon/internal/platform/crypto"
)

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr must be set")
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		add("server rate limit must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		add("server.max_body_bytes must be positive")
	}
	if _, err := c.Server.ProxyPrefixes(); err != nil {
		add("server.trusted_proxies: %v", err)
	}

	if c.Database.DSN == "" {
		add("database.dsn must be set (DB_DSN)")
	}
	if c.Database.Timeout.Std() <= 0 {
		add("database.timeout must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format %q must be text or json", c.Log.Format)
	}

	if len(c.Lookup.Sources) == 0 {
		add("lookup.sources must name at least one source")
	}
	for _, s := range c.Lookup.Sources {
		switch strings.ToUpper(s) {
		case "GOOGLE", "OPEN_LIBRARY":
		default:
			add("lookup.sources: unknown source %q", s)
		}
	}
	if c.Lookup.OpenLibraryRPS <= 0 || c.Lookup.GoogleBooksRPS <= 0 {
		add("lookup rates must be positive")
	}
	if c.Lookup.MaxRetries < 0 {
		add("lookup.max_retries must not be negative")
	}

	if _, err := crypto.ParseKeyTemplate(c.Tokens.KeyTemplate); err != nil {
		add("tokens.key_template: %v", err)
	}

	if c.Google.ClientSecret != "" && c.Google.ClientID == "" {
		add("google.client_id is required when client_secret is set")
	}
	if c.Google.UseBackendAuth && (c.Google.ClientSecret == "" || c.Google.RedirectURL == "") {
		add("google backend authorization needs client_secret and redirect_url")
	}

	if c.S3Enabled() {
		if c.S3.Region == "" {
			add("s3.region must be set when s3.bucket is")
		}
		if c.S3.ObjectKey == "" {
			add("s3.object_key must be set when s3.bucket is")
		}
	}

	if c.Refresh.BatchSize <= 0 || c.Refresh.MaxBooks <= 0 || c.Refresh.FreshnessDays < 0 {
		add("refresh batch_size and max_books must be positive, freshness_days not negative")
	}

	return errors.Join(errs...)
}
