// Package config loads the application configuration once at startup.
// Handlers and adapters receive the resulting struct by injection and never
// read the process environment directly.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for all environment variables (e.g. ALB_GITHUB_REPO).
const envPrefix = "ALB_"

const (
	defaultPort         = 8080
	defaultBranch       = "main"
	defaultContentDir   = "content-data"
	defaultCommitAuthor = "alabrestoise"
	defaultCommitEmail  = "site@alabrestoise.fr"
)

// Config holds all runtime configuration for the site API.
type Config struct {
	// Port is the HTTP port to listen on (ALB_PORT).
	Port int `koanf:"port"`
	// LogFormat selects "text" or "json" log output (ALB_LOG_FORMAT).
	LogFormat string `koanf:"log_format"`

	// GitHubRepo is the "owner/name" of the content repository (ALB_GITHUB_REPO).
	GitHubRepo string `koanf:"github_repo"`
	// GitHubToken is the access token for the Contents API (ALB_GITHUB_TOKEN).
	GitHubToken string `koanf:"github_token"`
	// GitHubBranch is the branch commits target (ALB_GITHUB_BRANCH).
	GitHubBranch string `koanf:"github_branch"`
	// CommitAuthor is the synthetic commit author name (ALB_COMMIT_AUTHOR).
	CommitAuthor string `koanf:"commit_author"`
	// CommitEmail is the synthetic commit author email (ALB_COMMIT_EMAIL).
	CommitEmail string `koanf:"commit_email"`
	// ContentDir is the local fallback store root (ALB_CONTENT_DIR).
	ContentDir string `koanf:"content_dir"`

	// AdminToken is the shared bearer token gating admin endpoints (ALB_ADMIN_TOKEN).
	// When empty, admin endpoints are open; unconfigured environments are
	// deliberately permissive.
	AdminToken string `koanf:"admin_token"`

	// ResendAPIKey is the Resend API key (ALB_RESEND_API_KEY).
	ResendAPIKey string `koanf:"resend_api_key"`
	// EmailFrom is the sender address for transactional email (ALB_EMAIL_FROM).
	EmailFrom string `koanf:"email_from"`
	// EmailOwner is the owner notification address (ALB_EMAIL_OWNER).
	EmailOwner string `koanf:"email_owner"`

	// LeadWebhookURL receives a JSON notification for each new lead (ALB_LEAD_WEBHOOK_URL).
	LeadWebhookURL string `koanf:"lead_webhook_url"`
	// DeployHookURL triggers a site rebuild after content writes (ALB_DEPLOY_HOOK_URL).
	DeployHookURL string `koanf:"deploy_hook_url"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Port:         defaultPort,
		LogFormat:    "text",
		GitHubBranch: defaultBranch,
		CommitAuthor: defaultCommitAuthor,
		CommitEmail:  defaultCommitEmail,
		ContentDir:   defaultContentDir,
		EmailFrom:    "À la Brestoise <" + defaultCommitEmail + ">",
	}
}

// Load builds the configuration from an optional TOML file overlaid with
// ALB_-prefixed environment variables. Environment values win.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.GitHubBranch == "" {
		cfg.GitHubBranch = defaultBranch
	}
	if cfg.ContentDir == "" {
		cfg.ContentDir = defaultContentDir
	}

	return cfg, nil
}

// StoreConfigured reports whether the remote content store can be used.
// Both the repository identifier and the access token are required.
func (c *Config) StoreConfigured() bool {
	return c.GitHubRepo != "" && c.GitHubToken != ""
}

// EmailConfigured reports whether transactional email can be sent.
func (c *Config) EmailConfigured() bool {
	return c.ResendAPIKey != ""
}
