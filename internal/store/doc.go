// Package store persists the reference API snapshot of every API level in
// an embedded BadgerDB database.
//
// Each descriptor is one key, api/<category>/<DocId>, whose value is a
// msgpack envelope carrying the descriptor's canonical JSON and the time it
// was last written. [Store.Query] rebuilds a category's snapshot with a
// prefix scan; [Store.Import] compares a freshly extracted snapshot with the
// stored one and applies the delta in a single write batch, so the stored
// snapshot always equals the last imported one.
//
// The default database directory is $XDG_DATA_HOME/apigate/store (or the
// OS-appropriate equivalent).
package store
