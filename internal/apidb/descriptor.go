package apidb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Well-known descriptor fields.
const (
	FieldIsHidden   = "IsHidden"
	FieldIsStatic   = "IsStatic"
	FieldSignature  = "Signature"
	FieldSince      = "Since"
	FieldPrivileges = "Privileges"
	FieldFeatures   = "Features"
)

// MalformedDescriptorError reports a descriptor document that is missing a
// required field, carries a field of the wrong type, or cannot be
// canonicalized.
type MalformedDescriptorError struct {
	DocID string
	Field string
	Err   error
}

func (e *MalformedDescriptorError) Error() string {
	id := e.DocID
	if id == "" {
		id = "<unknown>"
	}
	if e.Field == "" {
		return fmt.Sprintf("malformed descriptor %s: %v", id, e.Err)
	}
	return fmt.Sprintf("malformed descriptor %s: field %s: %v", id, e.Field, e.Err)
}

func (e *MalformedDescriptorError) Unwrap() error { return e.Err }

var (
	errMissing   = errors.New("required field is missing")
	errNotBool   = errors.New("must be a boolean")
	errNotString = errors.New("must be a string")
	errNotList   = errors.New("must be a list of strings")
	errNotObject = errors.New("document must be a JSON object")
)

// Descriptor is the documentation record of one API member. The three
// required fields are typed; everything else, including Since, Privileges,
// Features and any field a newer extractor adds, lives in Ext and takes
// part in equality.
type Descriptor struct {
	IsHidden  bool
	IsStatic  bool
	Signature string
	Ext       map[string]any
}

// Since returns the version the member was introduced in.
func (d Descriptor) Since() (string, bool) {
	v, ok := d.Ext[FieldSince]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Privileges returns the required privileges in document order.
func (d Descriptor) Privileges() []string {
	return stringList(d.Ext[FieldPrivileges])
}

// Features returns the required features in document order.
func (d Descriptor) Features() []string {
	return stringList(d.Ext[FieldFeatures])
}

// With returns a copy of d with extension field key set to v.
func (d Descriptor) With(key string, v any) Descriptor {
	ext := make(map[string]any, len(d.Ext)+1)
	for k, val := range d.Ext {
		ext[k] = val
	}
	ext[key] = v
	d.Ext = ext
	return d
}

// Canonical returns the canonical JSON encoding of d.
func (d Descriptor) Canonical() ([]byte, error) {
	doc := make(map[string]any, len(d.Ext)+3)
	for k, v := range d.Ext {
		doc[k] = v
	}
	doc[FieldIsHidden] = d.IsHidden
	doc[FieldIsStatic] = d.IsStatic
	doc[FieldSignature] = d.Signature

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalJSON encodes d in canonical form.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	return d.Canonical()
}

// UnmarshalJSON decodes and validates a descriptor document.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDescriptor("", data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Equal reports whether d and o have the same canonical form.
func (d Descriptor) Equal(o Descriptor) (bool, error) {
	a, err := d.Canonical()
	if err != nil {
		return false, err
	}
	b, err := o.Canonical()
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

// ParseDescriptor decodes the descriptor document raw of member docID.
// Numbers are kept as json.Number so canonical output preserves them.
func ParseDescriptor(docID string, raw []byte) (Descriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Descriptor{}, &MalformedDescriptorError{DocID: docID, Err: err}
	}
	if doc == nil {
		return Descriptor{}, &MalformedDescriptorError{DocID: docID, Err: errNotObject}
	}

	var d Descriptor
	var err error
	if d.IsHidden, err = requireBool(doc, FieldIsHidden); err != nil {
		return Descriptor{}, &MalformedDescriptorError{DocID: docID, Field: FieldIsHidden, Err: err}
	}
	if d.IsStatic, err = requireBool(doc, FieldIsStatic); err != nil {
		return Descriptor{}, &MalformedDescriptorError{DocID: docID, Field: FieldIsStatic, Err: err}
	}
	sig, ok := doc[FieldSignature]
	if !ok {
		return Descriptor{}, &MalformedDescriptorError{DocID: docID, Field: FieldSignature, Err: errMissing}
	}
	if d.Signature, ok = sig.(string); !ok {
		return Descriptor{}, &MalformedDescriptorError{DocID: docID, Field: FieldSignature, Err: errNotString}
	}
	if v, ok := doc[FieldSince]; ok {
		if _, ok := v.(string); !ok {
			return Descriptor{}, &MalformedDescriptorError{DocID: docID, Field: FieldSince, Err: errNotString}
		}
	}
	for _, f := range []string{FieldPrivileges, FieldFeatures} {
		if v, ok := doc[f]; ok && !isStringList(v) {
			return Descriptor{}, &MalformedDescriptorError{DocID: docID, Field: f, Err: errNotList}
		}
	}

	delete(doc, FieldIsHidden)
	delete(doc, FieldIsStatic)
	delete(doc, FieldSignature)
	if len(doc) > 0 {
		d.Ext = doc
	}
	return d, nil
}

func requireBool(doc map[string]any, key string) (bool, error) {
	v, ok := doc[key]
	if !ok {
		return false, errMissing
	}
	b, ok := v.(bool)
	if !ok {
		return false, errNotBool
	}
	return b, nil
}

func isStringList(v any) bool {
	switch l := v.(type) {
	case []string:
		return true
	case []any:
		for _, e := range l {
			if _, ok := e.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
