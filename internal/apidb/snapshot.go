package apidb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Record is one entry of an extracted API file: {"DocId": ..., "Info": {...}}.
type Record struct {
	DocID string          `json:"DocId"`
	Info  json.RawMessage `json:"Info"`
}

// UnmarshalJSON accepts both the extractor's DocId/Info keys and the
// snake_case doc_id/info spelling.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idRaw, ok := raw["DocId"]
	if !ok {
		idRaw, ok = raw["doc_id"]
	}
	if !ok {
		return &MalformedDescriptorError{Field: "DocId", Err: errMissing}
	}
	var id string
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return &MalformedDescriptorError{Field: "DocId", Err: errNotString}
	}
	info, ok := raw["Info"]
	if !ok {
		info, ok = raw["info"]
	}
	if !ok {
		return &MalformedDescriptorError{DocID: id, Field: "Info", Err: errMissing}
	}
	r.DocID = id
	r.Info = info
	return nil
}

// DuplicateDocIDError reports a DocId that occurs twice in one snapshot.
type DuplicateDocIDError struct {
	DocID string
}

func (e *DuplicateDocIDError) Error() string {
	return fmt.Sprintf("duplicate DocId %s in snapshot", e.DocID)
}

// Snapshot is an immutable DocId → Descriptor mapping.
type Snapshot struct {
	items map[string]Descriptor
}

// NewSnapshot copies items into a new Snapshot.
func NewSnapshot(items map[string]Descriptor) *Snapshot {
	s := &Snapshot{items: make(map[string]Descriptor, len(items))}
	for k, v := range items {
		s.items[k] = v
	}
	return s
}

// FromRecords parses every record into a Snapshot.
func FromRecords(records []Record) (*Snapshot, error) {
	s := &Snapshot{items: make(map[string]Descriptor, len(records))}
	for _, r := range records {
		if r.DocID == "" {
			return nil, &MalformedDescriptorError{Field: "DocId", Err: errMissing}
		}
		if _, dup := s.items[r.DocID]; dup {
			return nil, &DuplicateDocIDError{DocID: r.DocID}
		}
		d, err := ParseDescriptor(r.DocID, r.Info)
		if err != nil {
			return nil, err
		}
		s.items[r.DocID] = d
	}
	return s, nil
}

// LoadSnapshot decodes a JSON array of records.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		var mde *MalformedDescriptorError
		if errors.As(err, &mde) {
			return nil, err
		}
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return FromRecords(records)
}

// LoadSnapshotFile reads a snapshot from the JSON file at path.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	s, err := LoadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Get returns the descriptor of docID.
func (s *Snapshot) Get(docID string) (Descriptor, bool) {
	if s == nil {
		return Descriptor{}, false
	}
	d, ok := s.items[docID]
	return d, ok
}

// Has reports whether docID is part of the snapshot.
func (s *Snapshot) Has(docID string) bool {
	_, ok := s.Get(docID)
	return ok
}

// Keys returns every DocId in ascending order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	return sortedKeys(s.items)
}

// Len returns the number of descriptors.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Records returns the snapshot as records sorted by DocId.
func (s *Snapshot) Records() ([]Record, error) {
	keys := s.Keys()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		raw, err := s.items[k].Canonical()
		if err != nil {
			return nil, &MalformedDescriptorError{DocID: k, Err: err}
		}
		out = append(out, Record{DocID: k, Info: raw})
	}
	return out, nil
}
