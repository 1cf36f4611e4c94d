package models

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeError reports a ledger record that does not match the schema of the
// entity it was decoded as.
type DecodeError struct {
	Struct   string
	ObjectID string
	Reason   string
}

func (e *DecodeError) Error() string {
	if e.ObjectID == "" {
		return fmt.Sprintf("decode %s: %s", e.Struct, e.Reason)
	}
	return fmt.Sprintf("decode %s %s: %s", e.Struct, e.ObjectID, e.Reason)
}

// record is a Move object whose envelope has been checked against the
// expected struct. Field accessors default absent or mistyped values.
type record struct {
	id     string
	fields gjson.Result
}

// openRecord validates the object envelope returned by the node:
//
//	{"objectId": "...", "type": "pkg::module::Struct",
//	 "content": {"dataType": "moveObject", "type": "...", "fields": {...}}}
func openRecord(raw []byte, structName string) (*record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &DecodeError{Struct: structName, Reason: "invalid json"}
	}

	obj := gjson.ParseBytes(raw)
	if !obj.IsObject() {
		return nil, &DecodeError{Struct: structName, Reason: "not an object"}
	}

	id := obj.Get("objectId").String()
	if id == "" {
		return nil, &DecodeError{Struct: structName, Reason: "missing object id"}
	}

	content := obj.Get("content")
	if content.Get("dataType").String() != "moveObject" {
		return nil, &DecodeError{Struct: structName, ObjectID: id, Reason: "not a move object"}
	}

	typ := content.Get("type").String()
	if typ == "" {
		typ = obj.Get("type").String()
	}
	if typ != "" && !strings.HasSuffix(typ, "::"+structName) {
		return nil, &DecodeError{Struct: structName, ObjectID: id, Reason: "unexpected type " + typ}
	}

	fields := content.Get("fields")
	if !fields.IsObject() {
		return nil, &DecodeError{Struct: structName, ObjectID: id, Reason: "missing fields"}
	}

	return &record{id: id, fields: fields}, nil
}

func (r *record) str(name string) string {
	f := r.fields.Get(name)
	if f.Type != gjson.String {
		return ""
	}
	return f.Str
}

// uint reads u64 fields, which the node renders as decimal strings.
func (r *record) uint(name string) uint64 {
	f := r.fields.Get(name)
	switch f.Type {
	case gjson.Number, gjson.String:
		return f.Uint()
	default:
		return 0
	}
}

// addresses reads a vector<address> or a VecSet<address>, which renders as
// {"fields": {"contents": [...]}}.
func (r *record) addresses(name string) []string {
	f := r.fields.Get(name)
	if f.IsObject() {
		f = f.Get("fields.contents")
	}
	if !f.IsArray() {
		return []string{}
	}

	out := []string{}
	for _, v := range f.Array() {
		if v.Type == gjson.String && v.Str != "" {
			out = append(out, v.Str)
		}
	}
	return out
}
