// Package diffmap indexes unified-diff patch text by new-file line number.
//
// GitHub addresses review comments by position: the 0-based index of a line
// within a file's patch, where the first hunk header is position 0. A
// [FileMap] records, for every context or added line, which position it sits
// at, together with the new-file range each hunk covers. [Build] does this
// for every changed file of a pull request.
package diffmap
