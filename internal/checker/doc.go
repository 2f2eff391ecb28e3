// Package checker runs the continuous integration jobs around the API
// snapshot store.
//
// [Checker.Run] is the pull request check. It labels the pull request with
// its API category, reports the build through the "Build Checker" commit
// status (placing compiler warnings as review comments on changed lines, or
// posting compiler errors as an issue comment), then compares the built API
// with the stored snapshot through the "API Checker" status: it manages the
// internal change and ACR labels and posts the change report.
//
// [Updater.Run] is the post-merge job that imports a branch's API as the new
// accepted snapshot.
//
// Both talk to the code host through [PullRequest] and to storage through
// [SnapshotStore]; github.PullRequest and store.Store satisfy them.
package checker
