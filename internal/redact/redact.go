package redact

import (
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for secrets that leak into build output.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// NuGet.org API keys
	regexp.MustCompile(`oy2[a-z0-9]{43}`),
	// MSBuild / dotnet property assignments: /p:Password=..., -p:ApiKey=...
	regexp.MustCompile(`(?i)[/-]p(roperty)?:\w*(password|apikey|token|secret)\w*=("[^"]*"|[^\s;]+)`),
	// nuget push -k / --api-key arguments
	regexp.MustCompile(`(?i)(\s-k|--api-key)\s+[A-Za-z0-9_-]{20,}`),
	// Connection strings with an embedded password
	regexp.MustCompile(`(?i)(password|pwd)=[^;"'\s]+`),
	// Credentials embedded in URLs
	regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^/\s:@]+:[^/\s@]+@`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllLiteralString(result, placeholder)
	}
	return result
}

// MatchPath reports whether path matches any of the glob patterns. A
// "**/" prefix matches the pattern against the base name at any depth.
// Backslash separators in path are treated as slashes.
func MatchPath(path string, patterns []string) bool {
	path = strings.ReplaceAll(path, `\`, "/")
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		cleanPattern := strings.TrimPrefix(pattern, "**/")
		if cleanPattern != pattern {
			base := filepath.Base(path)
			matched, err = filepath.Match(cleanPattern, base)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Content redacts secrets from text, or replaces it entirely when path
// matches one of redactPaths.
func Content(text, path string, redactPaths []string) string {
	if MatchPath(path, redactPaths) {
		return placeholder + " (message redacted by path policy)"
	}
	return Secrets(text)
}
