// Package github provides a minimal GitHub REST API client for the pull
// request checker.
//
// The client covers what the checker touches: pull request metadata and
// changed files with their patches, inline review comments addressed by
// diff position, issue comments, labels and commit statuses. List calls
// follow Link pagination. Rate-limit (429) and server (5xx) responses are
// retried with exponential backoff; every other non-2xx response surfaces
// as an [*APIError].
//
// [PullRequest] binds a client to one pull request and speaks the types of
// the diff and annotation packages.
package github
