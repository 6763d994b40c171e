package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	gogit "github.com/go-git/go-git/v5"

	"newsblaster/internal/content"
	"newsblaster/internal/logfields"
)

// DefaultThemeURL is the Hugo theme cloned into fresh sites.
const DefaultThemeURL = "https://github.com/theNewDynamic/gohugo-theme-ananke.git"

const themeName = "ananke"

var (
	themeLineRe = regexp.MustCompile(`(?m)theme\s*=`)
	baseURLRe   = regexp.MustCompile(`baseURL\s*=\s*["'].*?["']`)
)

const defaultIndexContent = "---\ntitle: \"Home\"\n---\n\nWelcome to our news site!"

const defaultListLayout = `<!DOCTYPE html>
<html><head><title>{{ .Site.Title }}</title><style>body { font-family: sans-serif; line-height: 1.6; margin: 2em; } ul { list-style-type: none; padding: 0; } li { margin-bottom: 1.5em; } a { text-decoration: none; color: #0056b3; } a:hover { text-decoration: underline; }</style></head>
<body><h1>Welcome to {{ .Site.Title }}</h1><h2>Latest News</h2><ul>{{ range .Site.RegularPages.ByDate.Reverse | first 20 }}<li><h3><a href="{{ .Permalink }}">{{ .Title }}</a></h3><p>{{ .Summary }} <a href="{{ .Permalink }}">Read more...</a></p></li>{{ end }}</ul></body></html>`

// Hugo builds a Hugo site with the hugo binary, scaffolding the project and
// its theme on first use.
type Hugo struct {
	dir      string
	hugoPath string
	title    string
	domain   string
	themeURL string
	logger   *slog.Logger
}

func NewHugo(dir, hugoPath, title, domain string, logger *slog.Logger) *Hugo {
	if logger == nil {
		logger = slog.Default()
	}
	if hugoPath == "" {
		hugoPath = "hugo"
	}
	return &Hugo{
		dir:      dir,
		hugoPath: hugoPath,
		title:    title,
		domain:   domain,
		themeURL: DefaultThemeURL,
		logger:   logger,
	}
}

// WithThemeURL overrides the theme origin; tests point it at a local fixture.
func (h *Hugo) WithThemeURL(url string) *Hugo {
	if url != "" {
		h.themeURL = url
	}
	return h
}

func (h *Hugo) Name() string           { return "hugo" }
func (h *Hugo) Format() content.Format { return content.HugoFormat{} }
func (h *Hugo) SiteDir() string        { return h.dir }
func (h *Hugo) OutputDir() string      { return filepath.Join(h.dir, "public") }

// Prepare scaffolds the site project if missing, clones or updates the
// theme, and patches the site configuration.
func (h *Hugo) Prepare(_ context.Context) error {
	if _, err := os.Stat(h.dir); os.IsNotExist(err) {
		h.logger.Info("scaffolding hugo site", logfields.Path(h.dir))
		if _, err := runCommand("", h.logger, h.hugoPath, "new", "site", h.dir); err != nil {
			return fmt.Errorf("scaffold hugo site: %w", err)
		}
	}
	if err := h.ensureTheme(); err != nil {
		return err
	}
	if err := h.ensureConfig(); err != nil {
		return err
	}
	if err := h.ensureIndexContent(); err != nil {
		return err
	}
	return h.ensureListLayout()
}

// Build runs hugo and verifies public/ appeared.
func (h *Hugo) Build(_ context.Context) error {
	if _, err := runCommand(h.dir, h.logger, h.hugoPath, "--gc", "--cleanDestinationDir"); err != nil {
		return fmt.Errorf("build hugo site: %w", err)
	}
	return verifyOutput(h.OutputDir())
}

// DevServer blocks on `hugo server` until ctx ends.
func (h *Hugo) DevServer(ctx context.Context) error {
	return runInteractive(ctx, h.dir, h.hugoPath, "server")
}

// ensureTheme clones the theme on first run and pulls updates afterwards.
func (h *Hugo) ensureTheme() error {
	themeDir := filepath.Join(h.dir, "themes", themeName)

	if _, err := os.Stat(filepath.Join(themeDir, ".git")); err == nil {
		repo, err := gogit.PlainOpen(themeDir)
		if err != nil {
			return fmt.Errorf("open theme repository: %w", err)
		}
		wt, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("theme worktree: %w", err)
		}
		err = wt.Pull(&gogit.PullOptions{RemoteName: "origin"})
		if err != nil && err != gogit.NoErrAlreadyUpToDate {
			return fmt.Errorf("update theme: %w", err)
		}
		h.logger.Debug("theme up to date", logfields.Path(themeDir))
		return nil
	}

	h.logger.Info("cloning theme", logfields.URL(h.themeURL), logfields.Path(themeDir))
	if _, err := gogit.PlainClone(themeDir, false, &gogit.CloneOptions{URL: h.themeURL}); err != nil {
		return fmt.Errorf("clone theme %s: %w", h.themeURL, err)
	}
	return nil
}

// ensureConfig writes a default hugo.toml on first run, then guarantees the
// theme is set and the baseURL matches the configured domain.
func (h *Hugo) ensureConfig() error {
	configPath := filepath.Join(h.dir, "hugo.toml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		initial := fmt.Sprintf("baseURL = 'https://example.org/'\nlanguageCode = 'en-us'\ntitle = '%s'\n", h.title)
		if err := os.WriteFile(configPath, []byte(initial), 0644); err != nil {
			return fmt.Errorf("write hugo config: %w", err)
		}
		h.logger.Info("created default hugo config", logfields.Path(configPath))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read hugo config: %w", err)
	}
	text := string(data)

	if !themeLineRe.MatchString(text) {
		text += fmt.Sprintf("\ntheme = %q\n", themeName)
	}

	if h.domain != "" {
		baseURL := fmt.Sprintf("https://%s/", h.domain)
		if baseURLRe.MatchString(text) {
			text = baseURLRe.ReplaceAllString(text, fmt.Sprintf("baseURL = %q", baseURL))
		} else {
			text += fmt.Sprintf("\nbaseURL = %q\n", baseURL)
		}
	}

	if text != string(data) {
		if err := os.WriteFile(configPath, []byte(text), 0644); err != nil {
			return fmt.Errorf("update hugo config: %w", err)
		}
	}
	return nil
}

func (h *Hugo) ensureIndexContent() error {
	indexPath := filepath.Join(h.dir, "content", "_index.md")
	if _, err := os.Stat(indexPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	if err := os.WriteFile(indexPath, []byte(defaultIndexContent), 0644); err != nil {
		return fmt.Errorf("write site index: %w", err)
	}
	return nil
}

func (h *Hugo) ensureListLayout() error {
	layoutPath := filepath.Join(h.dir, "layouts", "index.html")
	if _, err := os.Stat(layoutPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(layoutPath), 0755); err != nil {
		return fmt.Errorf("create layouts dir: %w", err)
	}
	if err := os.WriteFile(layoutPath, []byte(defaultListLayout), 0644); err != nil {
		return fmt.Errorf("write list layout: %w", err)
	}
	return nil
}
