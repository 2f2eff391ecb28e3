// Apigate is a CI gate that checks pull request builds for API changes.
//
// It compares the API extracted from a build with the accepted snapshot of
// the target branch, labels and comments on the pull request, and places
// compiler warnings on the changed lines of the diff.
//
// Usage:
//
//	apigate check                         # check the PR named by the CI environment
//	apigate update                        # record a merged branch's API
//	apigate compare old.json new.json     # classify the delta of two snapshots
//	apigate annotate --log build.log      # map warnings onto the working diff
//	apigate diagnostics build.log         # list warnings and errors
package main
