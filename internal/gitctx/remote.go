package gitctx

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	urlRemoteRe = regexp.MustCompile(`^(?:https?|git|ssh)://(?:[^@/]+@)?[^/]+/([^/]+)/([^/\s]+)$`)
	scpRemoteRe = regexp.MustCompile(`^[^@/]+@[^:/]+:([^/]+)/([^/\s]+)$`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo() (owner, repo string, err error) {
	out, err := gitOutput("remote", "get-url", "origin")
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(out))
}

// ParseRemoteURL extracts owner/repo from an https, ssh, scp-like or git://
// remote URL.
func ParseRemoteURL(remote string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(remote), "/"), ".git")

	if m := urlRemoteRe.FindStringSubmatch(trimmed); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := scpRemoteRe.FindStringSubmatch(trimmed); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", remote)
}
