package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/hashrarity/pkg/object"
)

// ErrNotRepository is returned when no Git directory is found.
var ErrNotRepository = errors.New("not a git repository (or any parent up to /)")

// Repo represents an opened Git repository.
type Repo struct {
	RootDir   string          // working tree root, equal to GitDir for bare repositories
	GitDir    string          // the repository's git directory
	CommonDir string          // shared directory holding objects and config
	Algo      object.HashAlgo // object name hash algorithm
	Store     *object.Store   // read-only object store
}

// Open walks up from path until it finds a .git directory, a .git file
// pointing elsewhere, or a bare repository, and opens its object store.
func Open(path string, opts ...object.Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		gitDir, err := findGitDir(cur)
		if err != nil {
			return nil, err
		}
		if gitDir != "" {
			return openGitDir(cur, gitDir, opts)
		}
		if isGitDir(cur) {
			return openGitDir(cur, cur, opts)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open %s: %w", abs, ErrNotRepository)
		}
		cur = parent
	}
}

// findGitDir resolves dir/.git, following a "gitdir: <path>" file as used by
// linked worktrees and submodules.
func findGitDir(dir string) (string, error) {
	dotGit := filepath.Join(dir, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", nil
	}
	if info.IsDir() {
		if isGitDir(dotGit) {
			return dotGit, nil
		}
		return "", nil
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("open: read %s: %w", dotGit, err)
	}
	line := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("open: %s: invalid gitfile format", dotGit)
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	if !isGitDir(target) {
		return "", fmt.Errorf("open: %s: gitdir %s is not a git directory", dotGit, target)
	}
	return filepath.Clean(target), nil
}

// isGitDir reports whether dir looks like a git directory: a HEAD file plus
// an objects directory, directly or through commondir.
func isGitDir(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, "HEAD")); err != nil || info.IsDir() {
		return false
	}
	common, err := commonDir(dir)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(common, "objects"))
	return err == nil && info.IsDir()
}

// commonDir follows a linked worktree's commondir file, if any.
func commonDir(gitDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gitDir, nil
		}
		return "", fmt.Errorf("read commondir: %w", err)
	}
	common := strings.TrimSpace(string(data))
	if !filepath.IsAbs(common) {
		common = filepath.Join(gitDir, common)
	}
	return filepath.Clean(common), nil
}

func openGitDir(root, gitDir string, opts []object.Option) (*Repo, error) {
	common, err := commonDir(gitDir)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	cfg, err := ReadConfig(filepath.Join(common, "config"))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	algo, err := cfg.HashAlgo()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if cfg.Bare {
		root = gitDir
	}

	return &Repo{
		RootDir:   root,
		GitDir:    gitDir,
		CommonDir: common,
		Algo:      algo,
		Store:     object.NewStore(filepath.Join(common, "objects"), algo, opts...),
	}, nil
}
