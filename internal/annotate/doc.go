// Package annotate decides where build diagnostics become inline review
// comments.
//
// A diagnostic is placed when its file is one of the changed files and its
// line falls inside one of that file's hunks; the comment goes to the diff
// position the line maps to. A comment that already exists on the pull
// request at the same path and position with the same body is never posted
// twice.
package annotate
