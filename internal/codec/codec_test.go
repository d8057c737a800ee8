package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNote() *domain.Record {
	note := domain.NewRecord("note", "some-note")
	note.Set("title", "hello")
	note.Set("location", domain.NewGeolocation(1, 2))
	note.Set("attachment", domain.Asset{Name: "025b58f9.png", ContentType: "image/png"})
	note.Set("tags", []any{"a", "b"})
	acl := domain.NewACL()
	acl.SetPublicReadOnly()
	acl.SetReadWriteAccessForRole(domain.DefineRole("Admin"))
	note.ACL = acl
	return note
}

func TestRoundTripSupportedValues(t *testing.T) {
	t.Parallel()

	acl := domain.NewACL()
	acl.SetPublicReadWriteAccess()

	tests := []struct {
		name  string
		value any
	}{
		{name: "scalar string", value: "hello"},
		{name: "scalar number", value: 42.5},
		{name: "nil", value: nil},
		{name: "record", value: sampleNote()},
		{name: "user record without id", value: domain.NewRecord(domain.UserRecordType, "")},
		{name: "role", value: domain.DefineRole("Admin")},
		{name: "acl", value: acl},
		{name: "asset", value: domain.Asset{Name: "file", URL: "http://skygear.dev/files/file"}},
		{name: "geolocation", value: domain.NewGeolocation(22.3, 114.2)},
		{name: "date", value: domain.NewDate(time.Date(2026, 2, 14, 12, 30, 0, 0, time.UTC))},
		{name: "array of domain values", value: []any{domain.NewGeolocation(1, 2), domain.DefineRole("Tester"), "plain"}},
		{name: "nested objects", value: map[string]any{
			"outer": map[string]any{
				"inner": []any{sampleNote(), map[string]any{"geo": domain.NewGeolocation(3, 4)}},
			},
			"flag": true,
		}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := Encode(tc.value)
			require.NoError(t, err)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.value, decoded)
		})
	}
}

func TestEncodeProducesTaggedWireShapes(t *testing.T) {
	t.Parallel()

	encoded, err := Encode([]any{domain.NewGeolocation(1, 2), domain.Asset{Name: "a"}})
	require.NoError(t, err)

	assert.Equal(t, []any{
		map[string]any{"$type": "geo", "$lat": 1.0, "$lng": 2.0},
		map[string]any{"$type": "asset", "$name": "a"},
	}, encoded)
}

func TestEncodeRecordUsesReservedKeys(t *testing.T) {
	t.Parallel()

	note := domain.NewRecord("note", "n1")
	note.Set("count", 3)
	note.ACL = domain.NewACL(domain.ACLEntry{Level: domain.AccessLevelRead, Public: true})

	encoded, err := EncodeRecord(*note)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"_recordType": "note",
		"_recordID":   "n1",
		"_access":     []any{map[string]any{"level": "read", "public": true}},
		"count":       3,
	}, encoded)
}

func TestRoundTripSurvivesJSON(t *testing.T) {
	t.Parallel()

	note := sampleNote()
	encoded, err := Encode(map[string]any{"args": []any{note}})
	require.NoError(t, err)

	data, err := json.Marshal(encoded)
	require.NoError(t, err)

	var wire any
	require.NoError(t, json.Unmarshal(data, &wire))

	decoded, err := Decode(wire)
	require.NoError(t, err)

	args := decoded.(map[string]any)["args"].([]any)
	require.Len(t, args, 1)
	got, ok := args[0].(*domain.Record)
	require.True(t, ok)
	assert.Equal(t, "note", got.Type)
	assert.Equal(t, "some-note", got.ID)
	assert.Equal(t, domain.NewGeolocation(1, 2), got.Fields["location"])
	assert.True(t, got.ACL.HasPublicReadAccess())
	assert.True(t, got.ACL.HasWriteAccessForRole(domain.DefineRole("Admin")))
}

func TestDecodePassesUnknownObjectsThrough(t *testing.T) {
	t.Parallel()

	wire := map[string]any{
		"$type": "relation",
		"name":  "friend",
		"nested": map[string]any{
			"$type": "geo", "$lat": 1.0, "$lng": 2.0,
		},
	}

	decoded, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"$type":  "relation",
		"name":   "friend",
		"nested": domain.NewGeolocation(1, 2),
	}, decoded)
}

func TestDecodeRejectsMalformedTaggedValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		wire map[string]any
	}{
		{name: "geo without numbers", wire: map[string]any{"$type": "geo", "$lat": "x", "$lng": 1.0}},
		{name: "record without body", wire: map[string]any{"$type": "record"}},
		{name: "record without type", wire: map[string]any{"$type": "record", "$record": map[string]any{"_recordID": "x"}}},
		{name: "date not parseable", wire: map[string]any{"$type": "date", "$date": "yesterday"}},
		{name: "acl with bad level", wire: map[string]any{"$type": "acl", "$acl": []any{map[string]any{"level": "admin", "public": true}}}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tc.wire)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedValue)
		})
	}
}

func TestEncodeTypedSlices(t *testing.T) {
	t.Parallel()

	encoded, err := Encode([]domain.Role{domain.DefineRole("Writer"), domain.DefineRole("Web Master")})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"$type": "role", "$name": "Writer"},
		map[string]any{"$type": "role", "$name": "Web Master"},
	}, encoded)

	var nilRecord *domain.Record
	encoded, err = Encode(nilRecord)
	require.NoError(t, err)
	assert.Nil(t, encoded)
}

func TestEncodeWalksTypedContainers(t *testing.T) {
	t.Parallel()

	admin := map[string]any{"$type": "role", "$name": "Admin"}
	geo := map[string]any{"$type": "geo", "$lat": 1.0, "$lng": 2.0}

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{
			name:  "slice of maps",
			value: []map[string]any{{"r": domain.DefineRole("Admin")}},
			want:  []any{map[string]any{"r": admin}},
		},
		{
			name:  "map of slices",
			value: map[string][]any{"roles": {domain.DefineRole("Admin")}},
			want:  map[string]any{"roles": []any{admin}},
		},
		{
			name:  "map of values",
			value: map[string]domain.Geolocation{"home": domain.NewGeolocation(1, 2)},
			want:  map[string]any{"home": geo},
		},
		{
			name:  "array",
			value: [2]any{domain.DefineRole("Admin"), "plain"},
			want:  []any{admin, "plain"},
		},
		{
			name:  "bytes untouched",
			value: []byte("raw"),
			want:  []byte("raw"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := Encode(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, encoded)

			raw, err := json.Marshal(encoded)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), `"Name"`)
		})
	}
}

func TestDecodeReturnsPointersForValueRecords(t *testing.T) {
	t.Parallel()

	note := *sampleNote()
	encoded, err := Encode(note)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.IsType(t, &domain.Record{}, decoded)
	assert.Equal(t, note.ID, decoded.(*domain.Record).ID)

	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	encoded, err = Encode(at)
	require.NoError(t, err)
	decoded, err = Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, domain.NewDate(at), decoded)
}

func TestRolesFromWireDeduplicates(t *testing.T) {
	t.Parallel()

	roles, err := RolesFromWire([]any{"Admin", "Tester", "Admin"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{{Name: "Admin"}, {Name: "Tester"}}, roles)

	roles, err = RolesFromWire([]any{})
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.NotNil(t, roles)

	_, err = RolesFromWire("Admin")
	assert.ErrorIs(t, err, ErrMalformedValue)
}
