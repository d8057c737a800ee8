package domain

import (
	"fmt"
	"strings"
)

// UserRecordType is the record type backing an authenticated identity.
const UserRecordType = "user"

type Record struct {
	Type string
	// ID is empty until the server assigns one.
	ID     string
	ACL    *ACL
	Fields map[string]any
}

func NewRecord(recordType, id string) *Record {
	return &Record{Type: recordType, ID: id, Fields: map[string]any{}}
}

// NewUser returns the identity record for the given user id.
func NewUser(id string) *Record {
	return NewRecord(UserRecordType, id)
}

func (Record) Kind() Kind { return KindRecord }
func (Record) isValue()   {}

func (r Record) IsUser() bool {
	return r.Type == UserRecordType
}

// Key identifies the record inside a database cache.
func (r Record) Key() string {
	return RecordKey(r.Type, r.ID)
}

func (r Record) Get(field string) (any, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

func (r *Record) Set(field string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[field] = value
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Type) == "" {
		return fmt.Errorf("record type is required")
	}
	if strings.Contains(r.Type, "/") {
		return fmt.Errorf("record type %q must not contain '/'", r.Type)
	}
	for field := range r.Fields {
		if strings.HasPrefix(field, "_") || strings.HasPrefix(field, "$") {
			return fmt.Errorf("record field %q uses a reserved prefix", field)
		}
	}

	return nil
}

func RecordKey(recordType, id string) string {
	return recordType + "/" + id
}
