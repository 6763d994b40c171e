package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"newsblaster/internal/run"
)

// DefaultFeedURLTemplate is the Google News RSS search endpoint. The single
// %s is replaced with the URL-escaped query.
const DefaultFeedURLTemplate = "https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en"

// DefaultFeedLimit caps how many feed items a run processes.
const DefaultFeedLimit = 30

// Config represents the application configuration.
type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	Site    SiteConfig    `yaml:"site"`
	Publish PublishConfig `yaml:"publish"`
	Daemon  DaemonConfig  `yaml:"daemon,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
}

// FeedConfig controls what is fetched from Google News.
type FeedConfig struct {
	Query       string `yaml:"query"`
	URLTemplate string `yaml:"url_template,omitempty"`
	Limit       int    `yaml:"limit,omitempty"`
}

// SiteConfig selects and locates the static site generator project.
type SiteConfig struct {
	Generator string `yaml:"generator"` // "astro" or "hugo"
	Dir       string `yaml:"dir"`
	Title     string `yaml:"title,omitempty"`     // used when scaffolding a fresh Hugo site
	HugoPath  string `yaml:"hugo_path,omitempty"` // hugo executable, HUGO_EXEC_PATH fallback
}

// PublishConfig describes the deployment target.
type PublishConfig struct {
	Strategy    string `yaml:"strategy"` // "git" or "api"
	Repo        string `yaml:"repo"`     // owner/name
	Branch      string `yaml:"branch,omitempty"`
	Token       string `yaml:"token"`
	Domain      string `yaml:"domain,omitempty"`
	AuthorName  string `yaml:"author_name,omitempty"`
	AuthorEmail string `yaml:"author_email,omitempty"`
	Message     string `yaml:"message,omitempty"`
}

// DaemonConfig controls the periodic republishing daemon. Interval is a Go
// duration string ("30m", "1h").
type DaemonConfig struct {
	Interval    string `yaml:"interval,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	NATSURL     string `yaml:"nats_url,omitempty"`
	NATSSubject string `yaml:"nats_subject,omitempty"`
}

// IntervalDuration returns the parsed daemon interval. Validate has already
// rejected unparseable values, so the fallback only guards direct struct use.
func (d DaemonConfig) IntervalDuration() time.Duration {
	dur, err := time.ParseDuration(d.Interval)
	if err != nil || dur <= 0 {
		return time.Hour
	}
	return dur
}

// HistoryConfig locates the local run-history database. An empty path
// disables history recording.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Load loads configuration from the specified file. Environment variables
// referenced as ${VAR} in the YAML are expanded after .env loading, so a
// checked-in config can keep its token out of the file.
func Load(configPath string) (*Config, error) {
	loadDotEnv()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: configuration file not found: %s", run.ErrConfig, configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file: %v", run.ErrConfig, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %v", run.ErrConfig, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads .env then .env.local, first found wins. Existing process
// environment variables are not overwritten (godotenv semantics).
func loadDotEnv() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// applyDefaults fills in everything optional, falling back to the
// environment variables the original tooling used where they exist.
func (c *Config) applyDefaults() {
	if c.Feed.Query == "" {
		c.Feed.Query = envOr("RSS_QUERY", "technology")
	}
	if c.Feed.URLTemplate == "" {
		c.Feed.URLTemplate = DefaultFeedURLTemplate
	}
	if c.Feed.Limit <= 0 {
		c.Feed.Limit = DefaultFeedLimit
	}

	if c.Site.Generator == "" {
		c.Site.Generator = "astro"
	}
	if c.Site.Dir == "" {
		if c.Site.Generator == "hugo" {
			c.Site.Dir = "hugo-site"
		} else {
			c.Site.Dir = "astro-site"
		}
	}
	if c.Site.Title == "" {
		c.Site.Title = "News Site"
	}
	if c.Site.HugoPath == "" {
		c.Site.HugoPath = envOr("HUGO_EXEC_PATH", "hugo")
	}

	if c.Publish.Strategy == "" {
		c.Publish.Strategy = "git"
	}
	if c.Publish.Repo == "" {
		c.Publish.Repo = os.Getenv("REPO")
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = "gh-pages"
	}
	if c.Publish.Token == "" {
		c.Publish.Token = os.Getenv("GITHUB_TOKEN")
	}
	if c.Publish.Domain == "" {
		c.Publish.Domain = os.Getenv("DOMAIN")
	}
	if c.Publish.AuthorName == "" {
		c.Publish.AuthorName = "News Deploy Bot"
	}
	if c.Publish.AuthorEmail == "" {
		c.Publish.AuthorEmail = "deploy-bot@example.com"
	}
	if c.Publish.Message == "" {
		c.Publish.Message = "Deploy news site"
	}

	if c.Daemon.Interval == "" {
		c.Daemon.Interval = "1h"
	}
	if c.Daemon.NATSSubject == "" {
		c.Daemon.NATSSubject = "newsblaster.runs"
	}
}

// Validate checks everything the pipeline needs before any stage runs.
func (c *Config) Validate() error {
	if c.Site.Generator != "astro" && c.Site.Generator != "hugo" {
		return fmt.Errorf("%w: unsupported generator %q (expected astro or hugo)", run.ErrConfig, c.Site.Generator)
	}
	if c.Publish.Strategy != "git" && c.Publish.Strategy != "api" {
		return fmt.Errorf("%w: unsupported publish strategy %q (expected git or api)", run.ErrConfig, c.Publish.Strategy)
	}
	if c.Publish.Repo == "" {
		return fmt.Errorf("%w: publish.repo is required (owner/name)", run.ErrConfig)
	}
	if owner, name, ok := strings.Cut(c.Publish.Repo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: publish.repo %q must be owner/name", run.ErrConfig, c.Publish.Repo)
	}
	if c.Publish.Token == "" {
		return fmt.Errorf("%w: publish.token is required (set GITHUB_TOKEN)", run.ErrConfig)
	}
	if c.Feed.Query == "" {
		return fmt.Errorf("%w: feed.query is required", run.ErrConfig)
	}
	if !strings.Contains(c.Feed.URLTemplate, "%s") {
		return fmt.Errorf("%w: feed.url_template must contain a %%s query placeholder", run.ErrConfig)
	}
	if dur, err := time.ParseDuration(c.Daemon.Interval); err != nil || dur <= 0 {
		return fmt.Errorf("%w: daemon.interval %q is not a positive duration", run.ErrConfig, c.Daemon.Interval)
	}
	return nil
}

// RepoOwnerName splits the validated owner/name repository reference.
func (c *Config) RepoOwnerName() (owner, name string) {
	owner, name, _ = strings.Cut(c.Publish.Repo, "/")
	return owner, name
}

// envSkeleton is the .env template Init writes next to a new config file.
// The keys match what the YAML references through ${VAR} expansion.
const envSkeleton = `# newsblaster secrets and overrides. Values referenced as ${VAR} in the
# YAML config are expanded when the file is loaded.
GITHUB_TOKEN=
REPO=
DOMAIN=
RSS_QUERY=technology
`

// Init writes an example configuration file, plus a .env skeleton next to
// it when none exists yet. force overwrites an existing config file; the
// .env file is never overwritten.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	// The ${VAR} references keep secrets and per-site values in .env, so the
	// YAML file itself can be committed.
	example := Config{
		Feed: FeedConfig{
			Query: "${RSS_QUERY}",
			Limit: DefaultFeedLimit,
		},
		Site: SiteConfig{
			Generator: "astro",
			Dir:       "astro-site",
			Title:     "My News Site",
		},
		Publish: PublishConfig{
			Strategy: "git",
			Repo:     "${REPO}",
			Branch:   "gh-pages",
			Token:    "${GITHUB_TOKEN}",
			Domain:   "${DOMAIN}",
		},
		Daemon: DaemonConfig{
			Interval: "1h",
		},
		History: HistoryConfig{
			Path: "newsblaster-history.db",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(envSkeleton), 0600); err != nil {
			return fmt.Errorf("write .env skeleton: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
