// Package apidb models API descriptor snapshots and compares them.
//
// A snapshot is the set of documented API members of one library build,
// keyed by DocId. [Compare] classifies the delta between two snapshots into
// added, removed and changed members and counts how many of those changes
// are confined to hidden (EditorBrowsable.Never) members. A change is public
// unless every party to it is hidden; toggling visibility counts as public.
//
// Descriptor equality is canonical-JSON equality: object keys are sorted at
// every depth, list order is significant and numbers keep their literal
// form, so two documents that differ only in key order compare equal.
package apidb
