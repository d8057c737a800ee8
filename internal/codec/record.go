package codec

import (
	"fmt"
	"strings"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
)

// EncodeRecord returns the bare record object used by record and auth
// endpoints: reserved underscore keys followed by encoded fields.
func EncodeRecord(record domain.Record) (map[string]any, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}

	out := make(map[string]any, len(record.Fields)+3)
	for field, value := range record.Fields {
		encoded, err := Encode(value)
		if err != nil {
			return nil, fmt.Errorf("record field %q: %w", field, err)
		}
		out[field] = encoded
	}

	out[recordTypeField] = record.Type
	if record.ID != "" {
		out[recordIDField] = record.ID
	}
	if record.ACL != nil {
		out[accessField] = EncodeACL(*record.ACL)
	}

	return out, nil
}

// DecodeRecord is the inverse of EncodeRecord. Unknown reserved keys sent
// by the server (timestamps, owner ids) are dropped.
func DecodeRecord(raw map[string]any) (*domain.Record, error) {
	recordType, ok := raw[recordTypeField].(string)
	if !ok || recordType == "" {
		return nil, fmt.Errorf("%w: record without %s", ErrMalformedValue, recordTypeField)
	}

	record := domain.NewRecord(recordType, "")
	if id, ok := raw[recordIDField]; ok {
		idString, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrMalformedValue, recordIDField)
		}
		record.ID = idString
	}

	if access, ok := raw[accessField]; ok && access != nil {
		acl, err := DecodeACL(access)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", record.Key(), err)
		}
		record.ACL = acl
	}

	for field, value := range raw {
		if strings.HasPrefix(field, "_") {
			continue
		}
		decoded, err := Decode(value)
		if err != nil {
			return nil, fmt.Errorf("record field %q: %w", field, err)
		}
		record.Fields[field] = decoded
	}

	return record, nil
}

// EncodeACL returns the bare entry list.
func EncodeACL(acl domain.ACL) []any {
	out := make([]any, 0, len(acl.Entries))
	for _, entry := range acl.Entries {
		item := map[string]any{"level": string(entry.Level)}
		if entry.Public {
			item["public"] = true
		} else {
			item["role"] = entry.Role.Name
		}
		out = append(out, item)
	}
	return out
}

func DecodeACL(raw any) (*domain.ACL, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: acl must be a list", ErrMalformedValue)
	}

	acl := domain.NewACL()
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: acl entry %d must be an object", ErrMalformedValue, i)
		}

		level, _ := fields["level"].(string)
		entry := domain.ACLEntry{Level: domain.AccessLevel(level)}
		entry.Public, _ = fields["public"].(bool)
		if roleName, ok := fields["role"].(string); ok {
			entry.Role = domain.DefineRole(roleName)
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("%w: acl entry %d: %v", ErrMalformedValue, i, err)
		}
		acl.Entries = append(acl.Entries, entry)
	}

	return acl, nil
}

// RolesFromWire decodes a list of role names.
func RolesFromWire(raw any) ([]domain.Role, error) {
	if raw == nil {
		return []domain.Role{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: role list must be an array", ErrMalformedValue)
	}

	names := make([]string, 0, len(items))
	for i, item := range items {
		switch typed := item.(type) {
		case string:
			names = append(names, typed)
		case domain.Role:
			names = append(names, typed.Name)
		default:
			return nil, fmt.Errorf("%w: role %d must be a string", ErrMalformedValue, i)
		}
	}

	return domain.RolesFromNames(names), nil
}

// NamesFromWire decodes a plain list of strings.
func NamesFromWire(raw any) ([]string, error) {
	roles, err := RolesFromWire(raw)
	if err != nil {
		return nil, err
	}
	return domain.RoleNames(roles), nil
}
