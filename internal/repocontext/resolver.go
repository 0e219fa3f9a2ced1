// Package repocontext resolves the citation format and branch for a run.
//
// Resolution is a required precondition: no other pipeline component may run
// before it completes, and the result is threaded through the pipeline by
// injection rather than read from ambient state.
package repocontext

import (
	"log/slog"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/deepwiki/internal/errors"
)

// Context is the one-time configuration output consumed by the rest of the
// pipeline.
type Context struct {
	RepoPath string
	Format   CitationFormat
	Branch   string
}

// Overrides carries operator-supplied values that take precedence over
// detection. An explicit FormatLocal suppresses the remote requirement.
type Overrides struct {
	RemoteURL string
	Branch    string
	ForceKind FormatKind
}

// Resolve inspects the repository at repoPath and returns the run context.
//
// Detection order: overrides first, then the repository's origin remote and
// HEAD. A repository with no detectable remote and no override is a fatal
// precondition error unless local format is forced; the pipeline never
// proceeds on a guess.
func Resolve(repoPath string, ov Overrides) (*Context, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil && ov.ForceKind != FormatLocal && ov.RemoteURL == "" {
		return nil, errors.Wrap(err, errors.CategoryGit, errors.SeverityFatal, "open repository").
			WithContext("path", repoPath)
	}

	branch := ov.Branch
	if branch == "" && repo != nil {
		branch = detectBranch(repo)
	}
	if branch == "" {
		if ov.ForceKind == FormatLocal {
			branch = "main"
		} else {
			return nil, errors.BranchUnresolved()
		}
	}

	if ov.ForceKind == FormatLocal {
		slog.Info("Citation format resolved", "format", FormatLocal, "branch", branch)
		return &Context{RepoPath: repoPath, Format: CitationFormat{Kind: FormatLocal, Branch: branch}, Branch: branch}, nil
	}

	remote := ov.RemoteURL
	if remote == "" && repo != nil {
		remote = detectRemote(repo)
	}
	if remote == "" {
		return nil, errors.RemoteUnresolved()
	}

	web := NormalizeRemote(remote)
	slog.Info("Citation format resolved", "format", FormatLinked, "remote", web, "branch", branch)
	return &Context{
		RepoPath: repoPath,
		Format:   CitationFormat{Kind: FormatLinked, Remote: web, Branch: branch},
		Branch:   branch,
	}, nil
}

func detectBranch(repo *gogit.Repository) string {
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	// Detached HEAD: fall back to a branch pointing at the same commit.
	iter, err := repo.Branches()
	if err != nil {
		return ""
	}
	defer iter.Close()
	var match string
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Hash() == head.Hash() && match == "" {
			match = ref.Name().Short()
		}
		return nil
	})
	return match
}

func detectRemote(repo *gogit.Repository) string {
	remotes, err := repo.Remotes()
	if err != nil || len(remotes) == 0 {
		return ""
	}
	// Prefer origin; otherwise take the first remote with a URL.
	pick := remotes[0]
	for _, r := range remotes {
		if r.Config().Name == "origin" {
			pick = r
			break
		}
	}
	if urls := pick.Config().URLs; len(urls) > 0 {
		return urls[0]
	}
	return ""
}

// NormalizeRemote converts common git remote URL shapes into a browsable
// https URL with no trailing .git suffix.
func NormalizeRemote(raw string) string {
	url := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(url, "git@"):
		// git@host:org/repo.git -> https://host/org/repo
		rest := strings.TrimPrefix(url, "git@")
		rest = strings.Replace(rest, ":", "/", 1)
		url = "https://" + rest
	case strings.HasPrefix(url, "ssh://git@"):
		url = "https://" + strings.TrimPrefix(url, "ssh://git@")
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		// already browsable
	}
	url = strings.TrimSuffix(url, ".git")
	return strings.TrimSuffix(url, "/")
}
