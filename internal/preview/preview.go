// Package preview serves the rendered markdown posts as a browsable site
// without invoking the astro or hugo toolchains. Posts are read from the
// content directory on every request, so a publish run or a manual edit
// shows up on the next refresh.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"newsblaster/internal/logfields"
)

// Post is one rendered article as the preview serves it.
type Post struct {
	Slug        string
	Title       string
	Description string
	Link        string
	Published   time.Time
	Body        []byte
}

// PublishedDisplay formats the publication time for the page templates.
func (p Post) PublishedDisplay() string {
	if p.Published.IsZero() {
		return ""
	}
	return p.Published.Format("Jan 2, 2006")
}

// postFrontMatter accepts both generator shapes: astro writes pubDate,
// hugo writes date.
type postFrontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	PubDate     string `yaml:"pubDate"`
	Date        string `yaml:"date"`
	Link        string `yaml:"link"`
}

// Server renders the content directory over HTTP.
type Server struct {
	contentDir string
	title      string
	logger     *slog.Logger
	md         goldmark.Markdown
	index      *template.Template
	page       *template.Template

	srv *http.Server
	ln  net.Listener
}

// NewServer creates a preview for the posts under contentDir. title heads
// the index page.
func NewServer(contentDir, title string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	// Post bodies embed the feed's own HTML markup, so raw HTML stays
	// enabled in the renderer.
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	return &Server{
		contentDir: contentDir,
		title:      title,
		logger:     logger,
		md:         md,
		index:      template.Must(template.New("index").Parse(indexTemplate)),
		page:       template.Must(template.New("post").Parse(postTemplate)),
	}
}

// Start binds addr and serves in the background. With a ":0" address the
// bound port is available through Addr afterwards.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind preview address %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/posts/", s.handlePost)

	s.ln = ln
	s.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Preview server failed", logfields.Error(err))
		}
	}()

	s.logger.Info("Preview server listening", logfields.URL("http://"+ln.Addr().String()))
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	posts, err := s.loadPosts()
	if err != nil {
		s.logger.Error("Failed to load posts", logfields.Error(err))
		http.Error(w, "failed to load posts", http.StatusInternalServerError)
		return
	}
	s.render(w, s.index, indexData{SiteTitle: s.title, Posts: posts})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/posts/"), "/")
	// Rendered slugs never contain path separators or dots.
	if slug == "" || strings.ContainsAny(slug, "/.") {
		http.NotFound(w, r)
		return
	}

	post, err := s.loadPost(slug)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to load post", logfields.Path(slug), logfields.Error(err))
		http.Error(w, "failed to load post", http.StatusInternalServerError)
		return
	}

	var body bytes.Buffer
	if err := s.md.Convert(post.Body, &body); err != nil {
		s.logger.Error("Failed to render post", logfields.Path(slug), logfields.Error(err))
		http.Error(w, "failed to render post", http.StatusInternalServerError)
		return
	}
	s.render(w, s.page, pageData{SiteTitle: s.title, Post: post, Body: template.HTML(body.String())})
}

// loadPosts reads every markdown post, newest first. A missing content
// directory yields an empty index rather than an error.
func (s *Server) loadPosts() ([]Post, error) {
	entries, err := os.ReadDir(s.contentDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read content dir %s: %w", s.contentDir, err)
	}

	posts := make([]Post, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		post, err := s.loadPost(strings.TrimSuffix(entry.Name(), ".md"))
		if err != nil {
			s.logger.Warn("Skipping unreadable post", logfields.Path(entry.Name()), logfields.Error(err))
			continue
		}
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].Published.After(posts[j].Published) })
	return posts, nil
}

func (s *Server) loadPost(slug string) (Post, error) {
	path := filepath.Join(s.contentDir, slug+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return Post{}, err
	}

	var fm postFrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return Post{}, fmt.Errorf("parse front matter of %s: %w", path, err)
	}

	return Post{
		Slug:        slug,
		Title:       fm.Title,
		Description: fm.Description,
		Link:        fm.Link,
		Published:   parsePublished(fm),
		Body:        body,
	}, nil
}

func parsePublished(fm postFrontMatter) time.Time {
	for _, raw := range []string{fm.PubDate, fm.Date} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("Failed to render template", logfields.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type indexData struct {
	SiteTitle string
	Posts     []Post
}

type pageData struct {
	SiteTitle string
	Post      Post
	Body      template.HTML
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.SiteTitle}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
h1 { border-bottom: 2px solid #1a1a1a; padding-bottom: .5rem; }
ul.posts { list-style: none; padding: 0; }
ul.posts li { margin: 1.5rem 0; }
ul.posts a { font-size: 1.15rem; font-weight: 600; text-decoration: none; color: #0b57d0; }
ul.posts time { display: block; color: #666; font-size: .85rem; margin-top: .2rem; }
ul.posts p { margin: .3rem 0 0; color: #333; }
</style>
</head>
<body>
<h1>{{.SiteTitle}}</h1>
{{if .Posts}}<ul class="posts">
{{range .Posts}}<li>
<a href="/posts/{{.Slug}}">{{.Title}}</a>
<time>{{.PublishedDisplay}}</time>
<p>{{.Description}}</p>
</li>
{{end}}</ul>
{{else}}<p>No posts yet. Run a publish to fetch the news.</p>
{{end}}</body>
</html>
`

const postTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Post.Title}} - {{.SiteTitle}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
a { color: #0b57d0; }
header time { color: #666; font-size: .85rem; }
nav { margin-bottom: 2rem; }
</style>
</head>
<body>
<nav><a href="/">&larr; {{.SiteTitle}}</a></nav>
<header>
<h1>{{.Post.Title}}</h1>
<time>{{.Post.PublishedDisplay}}</time>
</header>
<article>
{{.Body}}
</article>
</body>
</html>
`
