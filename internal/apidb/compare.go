package apidb

import "bytes"

// ComparisonResult is the classified delta between two snapshots. It is
// read-only once Compare returns it.
type ComparisonResult struct {
	Old *Snapshot
	New *Snapshot

	// DocIds in ascending order.
	Added   []string
	Removed []string
	Changed []string

	TotalChangedCount  int
	HiddenChangedCount int
}

// PublicAPIChanged reports whether at least one change involves a member
// that is visible on either side.
func (r *ComparisonResult) PublicAPIChanged() bool {
	return r.TotalChangedCount > r.HiddenChangedCount
}

// InternalAPIChanged reports whether at least one change is confined to
// hidden members.
func (r *ComparisonResult) InternalAPIChanged() bool {
	return r.HiddenChangedCount > 0
}

// Compare classifies the delta from one snapshot to the next. A nil snapshot is empty.
func Compare(from, to *Snapshot) (*ComparisonResult, error) {
	if from == nil {
		from = NewSnapshot(nil)
	}
	if to == nil {
		to = NewSnapshot(nil)
	}
	res := &ComparisonResult{
		Old:     from,
		New:     to,
		Added:   []string{},
		Removed: []string{},
		Changed: []string{},
	}

	for _, id := range to.Keys() {
		if !from.Has(id) {
			res.Added = append(res.Added, id)
		}
	}
	for _, id := range from.Keys() {
		nd, ok := to.Get(id)
		if !ok {
			res.Removed = append(res.Removed, id)
			continue
		}
		od, _ := from.Get(id)
		a, err := od.Canonical()
		if err != nil {
			return nil, &MalformedDescriptorError{DocID: id, Err: err}
		}
		b, err := nd.Canonical()
		if err != nil {
			return nil, &MalformedDescriptorError{DocID: id, Err: err}
		}
		if !bytes.Equal(a, b) {
			res.Changed = append(res.Changed, id)
		}
	}

	res.TotalChangedCount = len(res.Added) + len(res.Removed) + len(res.Changed)

	for _, id := range res.Added {
		if d, _ := to.Get(id); d.IsHidden {
			res.HiddenChangedCount++
		}
	}
	for _, id := range res.Removed {
		if d, _ := from.Get(id); d.IsHidden {
			res.HiddenChangedCount++
		}
	}
	for _, id := range res.Changed {
		od, _ := from.Get(id)
		nd, _ := to.Get(id)
		if od.IsHidden && nd.IsHidden {
			res.HiddenChangedCount++
		}
	}

	return res, nil
}
