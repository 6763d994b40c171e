package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	appcfg "newsblaster/internal/config"
	"newsblaster/internal/logfields"
	"newsblaster/internal/run"
	"newsblaster/internal/workspace"
)

// GitPublisher deploys by cloning the Pages branch into a scratch checkout,
// swapping its content for the build output and force-pushing one deploy
// commit (strategy "git").
type GitPublisher struct {
	repoURL     string
	branch      string
	token       string
	domain      string
	authorName  string
	authorEmail string
	message     string
	workspaces  *workspace.Manager
	logger      *slog.Logger
}

// NewGitPublisher builds a publisher for the configured repository.
func NewGitPublisher(cfg appcfg.PublishConfig, logger *slog.Logger) *GitPublisher {
	return &GitPublisher{
		repoURL:     fmt.Sprintf("https://github.com/%s.git", cfg.Repo),
		branch:      cfg.Branch,
		token:       cfg.Token,
		domain:      cfg.Domain,
		authorName:  cfg.AuthorName,
		authorEmail: cfg.AuthorEmail,
		message:     cfg.Message,
		workspaces:  workspace.NewManager(""),
		logger:      logger,
	}
}

// WithRepoURL points the publisher at a different remote, such as a local
// bare repository. Token auth is only attached to http(s) remotes.
func (p *GitPublisher) WithRepoURL(url string) *GitPublisher {
	p.repoURL = url
	return p
}

// Name identifies the strategy.
func (p *GitPublisher) Name() string { return "git" }

// Publish clones the publish branch, replaces its tree with outputDir,
// restores preserved files and force-pushes the result. A checkout that is
// already identical to the output yields run.ErrNothingToPublish and no push.
func (p *GitPublisher) Publish(ctx context.Context, outputDir string) error {
	if err := p.workspaces.Create(); err != nil {
		return fmt.Errorf("%w: %v", run.ErrPublish, err)
	}
	defer func() {
		if err := p.workspaces.Cleanup(); err != nil {
			p.logger.Warn("Publish workspace cleanup failed", logfields.Error(err))
		}
	}()

	repoDir := filepath.Join(p.workspaces.Path(), "pages")
	repo, err := p.checkoutBranch(ctx, repoDir)
	if err != nil {
		return fmt.Errorf("%w: checkout %s: %v", run.ErrPublish, p.branch, err)
	}

	preserved, err := snapshotPreserved(repoDir)
	if err != nil {
		return fmt.Errorf("%w: %v", run.ErrPublish, err)
	}
	if err := clearCheckout(repoDir); err != nil {
		return fmt.Errorf("%w: %v", run.ErrPublish, err)
	}
	if err := copyTree(outputDir, repoDir); err != nil {
		return fmt.Errorf("%w: copy site output: %v", run.ErrPublish, err)
	}
	if err := restorePreserved(repoDir, preserved); err != nil {
		return fmt.Errorf("%w: %v", run.ErrPublish, err)
	}
	if err := p.ensureCNAME(repoDir, preserved); err != nil {
		return fmt.Errorf("%w: %v", run.ErrPublish, err)
	}

	committed, err := p.commitAll(repo)
	if err != nil {
		return fmt.Errorf("%w: commit: %v", run.ErrPublish, err)
	}
	if !committed {
		p.logger.Info("Site already up to date, skipping push", logfields.Branch(p.branch))
		return run.ErrNothingToPublish
	}

	if err := p.forcePush(ctx, repo); err != nil {
		return fmt.Errorf("%w: push %s: %v", run.ErrPublish, p.branch, err)
	}

	p.logger.Info("Site deployed", logfields.Branch(p.branch), logfields.URL(p.repoURL))
	return nil
}

// checkoutBranch clones the publish branch into dir. When the branch does
// not exist yet it clones the remote HEAD and branches off its tip, and when
// the remote has no commits at all it starts a fresh history.
func (p *GitPublisher) checkoutBranch(ctx context.Context, dir string) (*git.Repository, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           p.repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(p.branch),
		SingleBranch:  true,
		Auth:          p.auth(),
	})
	if err == nil {
		p.logger.Debug("Cloned publish branch", logfields.Branch(p.branch), logfields.Path(dir))
		return repo, nil
	}

	if rmErr := os.RemoveAll(dir); rmErr != nil {
		return nil, fmt.Errorf("failed to remove partial clone: %w", rmErr)
	}

	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return p.initEmptyCheckout(dir)
	}
	if !isMissingBranch(err) {
		return nil, err
	}

	// The publish branch does not exist yet. Clone whatever the remote
	// serves as HEAD and create the branch from its tip.
	repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  p.repoURL,
		Auth: p.auth(),
	})
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(p.branch),
		Create: true,
	}); err != nil {
		return nil, err
	}
	p.logger.Info("Created publish branch", logfields.Branch(p.branch))
	return repo, nil
}

// initEmptyCheckout prepares a repository for a remote without any commits,
// pointing HEAD at the publish branch so the first commit lands there.
func (p *GitPublisher) initEmptyCheckout(dir string) (*git.Repository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(p.branch),
		},
	})
	if err != nil {
		return nil, err
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{p.repoURL}}); err != nil {
		return nil, err
	}
	p.logger.Info("Remote repository is empty, publishing fresh history", logfields.Branch(p.branch))
	return repo, nil
}

// isMissingBranch reports whether a clone failed because the requested
// branch does not exist on the remote.
func isMissingBranch(err error) bool {
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	var noMatch git.NoMatchingRefSpecError
	return errors.As(err, &noMatch)
}

// auth returns token credentials for http(s) remotes. Local path remotes,
// as used by tests, take no auth.
func (p *GitPublisher) auth() transport.AuthMethod {
	if p.token == "" || !strings.HasPrefix(p.repoURL, "http") {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "token", // GitHub accepts any non-empty username with a token
		Password: p.token,
	}
}

// commitAll stages the whole worktree and commits it. Returns false when the
// checkout already matches the new output and there is nothing to commit.
func (p *GitPublisher) commitAll(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	if status.IsClean() {
		return false, nil
	}
	_, err = wt.Commit(p.message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.authorName,
			Email: p.authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// forcePush overwrites the remote publish branch with the local one. The
// branch carries only generated output, so clobbering remote history is the
// intended behavior.
func (p *GitPublisher) forcePush(ctx context.Context, repo *git.Repository) error {
	refspec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", p.branch, p.branch))
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth:       p.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// snapshotPreserved reads the preserved files out of the checkout before it
// is cleared. Empty files count as absent and are not restored.
func snapshotPreserved(repoDir string) (map[string][]byte, error) {
	kept := make(map[string][]byte)
	for _, name := range preservedPaths {
		data, err := os.ReadFile(filepath.Join(repoDir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(data) == 0 {
			continue
		}
		kept[name] = data
	}
	return kept, nil
}

// clearCheckout removes everything under dir except the .git directory.
func clearCheckout(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read checkout: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() == git.GitDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("clear checkout: %w", err)
		}
	}
	return nil
}

// copyTree copies the contents of src into dst, preserving layout.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// restorePreserved writes the snapshots back after the build output has been
// copied in. A preserved file always wins over a generated one.
func restorePreserved(repoDir string, kept map[string][]byte) error {
	for name, data := range kept {
		if err := os.WriteFile(filepath.Join(repoDir, name), data, 0o644); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
	}
	return nil
}

// ensureCNAME synthesizes the Pages domain marker when the checkout had none
// and a custom domain is configured.
func (p *GitPublisher) ensureCNAME(repoDir string, kept map[string][]byte) error {
	domain := strings.TrimSpace(p.domain)
	if domain == "" {
		return nil
	}
	if _, ok := kept["CNAME"]; ok {
		return nil
	}
	if err := os.WriteFile(filepath.Join(repoDir, "CNAME"), []byte(domain), 0o644); err != nil {
		return fmt.Errorf("write CNAME: %w", err)
	}
	p.logger.Debug("Created CNAME for custom domain", slog.String("domain", domain))
	return nil
}
