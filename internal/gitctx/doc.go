// Package gitctx turns a local git diff into per-file patches.
//
// It shells out to git for the working tree or a revision range and splits
// the multi-file output into the per-file hunk text GitHub reports for a
// pull request, so a build log can be annotated locally exactly as the
// checker would annotate it on GitHub. Files are filtered by exclude glob
// patterns.
package gitctx
