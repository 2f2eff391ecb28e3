package gitctx

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/dshills/apigate/internal/diffmap"
)

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	ContextLines int
	Exclude      []string
}

// DiffResult holds the per-file patches of a diff and where they came from.
type DiffResult struct {
	Files []diffmap.FilePatch
	Mode  string
	Range string
	Repo  RepoMeta
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta() (RepoMeta, error) {
	root, err := gitOutput("rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Working returns the diff of the working tree, staged or not, against HEAD.
func Working(opts DiffOptions) (DiffResult, error) {
	out, err := gitOutput(append([]string{"diff", "HEAD"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff HEAD: %w", err)
	}
	return buildResult(out, "working", "", opts)
}

// Range returns the diff of a revision range. With mergeBase, "a..b" is
// diffed against the merge base as "a...b", the way GitHub shows a pull
// request.
func Range(revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	out, err := gitOutput(append([]string{"diff", diffRange}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return buildResult(out, "range", revRange, opts)
}

func buildDiffArgs(opts DiffOptions) []string {
	args := []string{"--no-color", "--no-ext-diff"}
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	return append(args, "--")
}

func buildResult(out, mode, rangeStr string, opts DiffOptions) (DiffResult, error) {
	files, err := SplitPatches(out)
	if err != nil {
		return DiffResult{}, err
	}
	if len(opts.Exclude) > 0 {
		kept := files[:0]
		for _, f := range files {
			if !MatchesAny(f.Path, opts.Exclude) {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	meta, err := GetRepoMeta()
	if err != nil {
		meta = RepoMeta{}
	}
	return DiffResult{Files: files, Mode: mode, Range: rangeStr, Repo: meta}, nil
}

// SplitPatches splits a multi-file unified diff into per-file patches in
// the form GitHub reports them: the hunks only, without file headers.
// Binary and rename-only changes get an empty patch; deleted files keep
// their old path.
func SplitPatches(text string) ([]diffmap.FilePatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	fds, err := diff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	files := make([]diffmap.FilePatch, 0, len(fds))
	for _, fd := range fds {
		path := stripPrefix(fd.NewName, "b/")
		if fd.NewName == "" || fd.NewName == "/dev/null" {
			path = stripPrefix(fd.OrigName, "a/")
		}
		if path == "" {
			continue
		}
		fp := diffmap.FilePatch{Path: path}
		if len(fd.Hunks) > 0 {
			hunks, err := diff.PrintHunks(fd.Hunks)
			if err != nil {
				return nil, fmt.Errorf("printing hunks of %s: %w", path, err)
			}
			fp.Patch = strings.TrimSuffix(string(hunks), "\n")
		}
		files = append(files, fp)
	}
	return files, nil
}

func stripPrefix(name, prefix string) string {
	if name == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(name, prefix)
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
		// "dir/**" excludes everything below dir
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && strings.HasPrefix(path, dir+"/") {
			return true
		}
	}
	return false
}

func gitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}
