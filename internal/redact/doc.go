// Package redact removes secrets from build output before it is posted to a
// pull request.
//
// Detection uses regex heuristics covering the secret shapes that show up in
// MSBuild and dotnet logs: NuGet API keys, /p: property assignments of
// passwords and tokens, connection strings, credentials in URLs, AWS keys,
// JWTs, bearer tokens and GitHub or Slack tokens.
//
// Path-based redaction is also supported: messages about files whose paths
// match configured glob patterns are replaced wholesale rather than scanned.
package redact
