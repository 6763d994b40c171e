package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appcfg "newsblaster/internal/config"
	"newsblaster/internal/logfields"
	"newsblaster/internal/run"
)

// APIPublisher deploys through the GitHub contents API, one commit per file
// (strategy "api"). It needs no local clone and no git binary, at the cost
// of a noisier branch history and no change detection.
type APIPublisher struct {
	apiURL     string
	owner      string
	repo       string
	branch     string
	token      string
	domain     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAPIPublisher builds a publisher that talks to the GitHub REST API.
func NewAPIPublisher(cfg appcfg.PublishConfig, logger *slog.Logger) *APIPublisher {
	owner, name, _ := strings.Cut(cfg.Repo, "/")
	return &APIPublisher{
		apiURL:     "https://api.github.com",
		owner:      owner,
		repo:       name,
		branch:     cfg.Branch,
		token:      cfg.Token,
		domain:     cfg.Domain,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithAPIURL points the publisher at a different API endpoint, such as a
// test server.
func (p *APIPublisher) WithAPIURL(u string) *APIPublisher {
	p.apiURL = strings.TrimSuffix(u, "/")
	return p
}

// Name identifies the strategy.
func (p *APIPublisher) Name() string { return "api" }

// Publish ensures the publish branch exists and uploads every file of the
// build output to it, skipping preserved paths. The first failed API call
// aborts the rest of the upload.
func (p *APIPublisher) Publish(ctx context.Context, outputDir string) error {
	if err := p.ensureBranch(ctx); err != nil {
		return fmt.Errorf("%w: ensure branch %s: %v", run.ErrPublish, p.branch, err)
	}

	files, err := listOutputFiles(outputDir)
	if err != nil {
		return fmt.Errorf("%w: list site output: %v", run.ErrPublish, err)
	}

	for _, rel := range files {
		if err := p.uploadFile(ctx, outputDir, rel); err != nil {
			return fmt.Errorf("%w: upload %s: %v", run.ErrPublish, rel, err)
		}
	}

	if err := p.ensureCNAME(ctx); err != nil {
		return fmt.Errorf("%w: CNAME: %v", run.ErrPublish, err)
	}

	p.logger.Info("Site deployed", logfields.Branch(p.branch), logfields.Files(len(files)))
	return nil
}

// ensureBranch creates the publish branch from the head of the default
// branch when it does not exist yet.
func (p *APIPublisher) ensureBranch(ctx context.Context) error {
	exists, err := p.branchExists(ctx, p.branch)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	var meta struct {
		DefaultBranch string `json:"default_branch"`
	}
	req, err := p.newRequest(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", p.owner, p.repo), nil)
	if err != nil {
		return err
	}
	if _, err := p.doRequest(req, &meta); err != nil {
		return err
	}
	if meta.DefaultBranch == "" {
		return fmt.Errorf("repository has no default branch to branch from")
	}

	sha, err := p.branchHead(ctx, meta.DefaultBranch)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"ref": "refs/heads/" + p.branch,
		"sha": sha,
	}
	req, err = p.newRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", p.owner, p.repo), payload)
	if err != nil {
		return err
	}
	if _, err := p.doRequest(req, nil); err != nil {
		return err
	}

	p.logger.Info("Created publish branch", logfields.Branch(p.branch))
	return nil
}

// branchExists reports whether the named branch exists on the remote.
func (p *APIPublisher) branchExists(ctx context.Context, branch string) (bool, error) {
	req, err := p.newRequest(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/branches/%s", p.owner, p.repo, url.PathEscape(branch)), nil)
	if err != nil {
		return false, err
	}
	status, err := p.doRequest(req, nil)
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// branchHead returns the commit SHA at the tip of the named branch.
func (p *APIPublisher) branchHead(ctx context.Context, branch string) (string, error) {
	var result struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	req, err := p.newRequest(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/branches/%s", p.owner, p.repo, url.PathEscape(branch)), nil)
	if err != nil {
		return "", err
	}
	if _, err := p.doRequest(req, &result); err != nil {
		return "", err
	}
	return result.Commit.SHA, nil
}

// uploadFile creates or updates one site file on the publish branch.
func (p *APIPublisher) uploadFile(ctx context.Context, outputDir, rel string) error {
	data, err := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	sha, err := p.fileSHA(ctx, rel)
	if err != nil {
		return err
	}
	if err := p.putFile(ctx, rel, data, sha); err != nil {
		return err
	}
	p.logger.Debug("Uploaded site file", logfields.Path(rel))
	return nil
}

// fileSHA returns the blob SHA of path on the publish branch, or empty when
// the file does not exist there yet.
func (p *APIPublisher) fileSHA(ctx context.Context, rel string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", p.owner, p.repo, escapePath(rel), url.QueryEscape(p.branch))
	req, err := p.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	var meta struct {
		SHA string `json:"sha"`
	}
	status, err := p.doRequest(req, &meta)
	if status == http.StatusNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return meta.SHA, nil
}

// putFile uploads content to rel on the publish branch, passing the prior
// blob SHA when overwriting an existing file.
func (p *APIPublisher) putFile(ctx context.Context, rel string, data []byte, sha string) error {
	payload := map[string]string{
		"message": fmt.Sprintf("Update site: %s", rel),
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  p.branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	req, err := p.newRequest(ctx, http.MethodPut, fmt.Sprintf("/repos/%s/%s/contents/%s", p.owner, p.repo, escapePath(rel)), payload)
	if err != nil {
		return err
	}
	_, err = p.doRequest(req, nil)
	return err
}

// ensureCNAME synthesizes the Pages domain marker when the branch has none
// and a custom domain is configured. An existing CNAME is left untouched.
func (p *APIPublisher) ensureCNAME(ctx context.Context) error {
	domain := strings.TrimSpace(p.domain)
	if domain == "" {
		return nil
	}
	sha, err := p.fileSHA(ctx, "CNAME")
	if err != nil {
		return err
	}
	if sha != "" {
		return nil
	}
	return p.putFile(ctx, "CNAME", []byte(domain), "")
}

func (p *APIPublisher) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	u := p.apiURL + endpoint

	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, method, u, strings.NewReader(string(jsonBody)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		var err error
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "newsblaster/1.0")

	return req, nil
}

// doRequest executes the request and decodes a JSON body into result when
// given. It returns the response status code so callers can treat 404 as a
// plain answer rather than a failure.
func (p *APIPublisher) doRequest(req *http.Request, result any) (int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("GitHub API %s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("decode GitHub response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// listOutputFiles walks the build output and returns slash-separated
// relative paths in lexical order, skipping preserved paths.
func listOutputFiles(outputDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isPreserved(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}

// escapePath escapes each segment of a slash path for use in a request URL.
func escapePath(rel string) string {
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
