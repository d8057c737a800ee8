// Package codec converts domain values to and from the JSON-compatible wire
// shapes the backend understands. Encode and Decode walk slices and maps of
// arbitrary depth and only touch tagged domain values; everything else is
// left as plain JSON.
package codec

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
)

const (
	typeKey = "$type"

	recordKey      = "$record"
	nameKey        = "$name"
	aclKey         = "$acl"
	urlKey         = "$url"
	contentTypeKey = "$content_type"
	latitudeKey    = "$lat"
	longitudeKey   = "$lng"
	dateKey        = "$date"

	recordTypeField = "_recordType"
	recordIDField   = "_recordID"
	accessField     = "_access"
)

var ErrMalformedValue = errors.New("malformed wire value")

// Encode returns the wire representation of v.
func Encode(v any) (any, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case domain.Value:
		return encodeValue(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			encoded, err := Encode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = encoded
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, item := range value {
			encoded, err := Encode(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = encoded
		}
		return out, nil
	case []string:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = item
		}
		return out, nil
	case []domain.Role:
		return encodeSlice(value)
	case []domain.Record:
		return encodeSlice(value)
	case []*domain.Record:
		return encodeSlice(value)
	case time.Time:
		return encodeValue(domain.NewDate(value))
	default:
		return encodeContainer(value)
	}
}

// encodeContainer walks slices, arrays and string-keyed maps of any element
// type. Byte slices and other values are returned unchanged.
func encodeContainer(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, nil
		}
		return encodeSequence(rv)
	case reflect.Array:
		return encodeSequence(rv)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return v, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			encoded, err := Encode(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = encoded
		}
		return out, nil
	default:
		return v, nil
	}
}

func encodeSequence(rv reflect.Value) ([]any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		encoded, err := Encode(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = encoded
	}
	return out, nil
}

// Decode turns a wire value back into domain values. Records and ACLs always
// come back as pointers and timestamps as domain.Date, so a Record, ACL or
// time.Time encoded by value decodes to *Record, *ACL or Date.
func Decode(w any) (any, error) {
	switch value := w.(type) {
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			decoded, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = decoded
		}
		return out, nil
	case map[string]any:
		if tag, ok := value[typeKey].(string); ok {
			decoded, handled, err := decodeTagged(domain.Kind(tag), value)
			if err != nil {
				return nil, err
			}
			if handled {
				return decoded, nil
			}
		}
		out := make(map[string]any, len(value))
		for key, item := range value {
			decoded, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = decoded
		}
		return out, nil
	default:
		return value, nil
	}
}

// EncodeParams encodes every value of a parameter bag.
func EncodeParams(params map[string]any) (map[string]any, error) {
	encoded, err := Encode(params)
	if err != nil {
		return nil, err
	}
	if encoded == nil {
		return map[string]any{}, nil
	}
	return encoded.(map[string]any), nil
}

func encodeSlice[T domain.Value](values []T) ([]any, error) {
	out := make([]any, len(values))
	for i, value := range values {
		encoded, err := Encode(value)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = encoded
	}
	return out, nil
}

func encodeValue(v domain.Value) (any, error) {
	switch typed := v.(type) {
	case *domain.Record:
		if typed == nil {
			return nil, nil
		}
	case *domain.ACL:
		if typed == nil {
			return nil, nil
		}
	}

	switch v.Kind() {
	case domain.KindRecord:
		record, err := asRecord(v)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, nil
		}
		inner, err := EncodeRecord(*record)
		if err != nil {
			return nil, err
		}
		return map[string]any{typeKey: string(domain.KindRecord), recordKey: inner}, nil
	case domain.KindRole:
		return map[string]any{typeKey: string(domain.KindRole), nameKey: v.(domain.Role).Name}, nil
	case domain.KindACL:
		acl, err := asACL(v)
		if err != nil {
			return nil, err
		}
		if acl == nil {
			return nil, nil
		}
		return map[string]any{typeKey: string(domain.KindACL), aclKey: EncodeACL(*acl)}, nil
	case domain.KindAsset:
		asset := v.(domain.Asset)
		out := map[string]any{typeKey: string(domain.KindAsset), nameKey: asset.Name}
		if asset.URL != "" {
			out[urlKey] = asset.URL
		}
		if asset.ContentType != "" {
			out[contentTypeKey] = asset.ContentType
		}
		return out, nil
	case domain.KindGeolocation:
		geo := v.(domain.Geolocation)
		return map[string]any{
			typeKey:      string(domain.KindGeolocation),
			latitudeKey:  geo.Latitude,
			longitudeKey: geo.Longitude,
		}, nil
	case domain.KindDate:
		date := v.(domain.Date)
		return map[string]any{
			typeKey: string(domain.KindDate),
			dateKey: date.Time.UTC().Format(time.RFC3339Nano),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrMalformedValue, v.Kind())
	}
}

func decodeTagged(kind domain.Kind, value map[string]any) (any, bool, error) {
	switch kind {
	case domain.KindRecord:
		inner, ok := value[recordKey].(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("%w: record without %s", ErrMalformedValue, recordKey)
		}
		record, err := DecodeRecord(inner)
		if err != nil {
			return nil, false, err
		}
		return record, true, nil
	case domain.KindRole:
		name, ok := value[nameKey].(string)
		if !ok {
			return nil, false, fmt.Errorf("%w: role without %s", ErrMalformedValue, nameKey)
		}
		return domain.DefineRole(name), true, nil
	case domain.KindACL:
		acl, err := DecodeACL(value[aclKey])
		if err != nil {
			return nil, false, err
		}
		return acl, true, nil
	case domain.KindAsset:
		name, ok := value[nameKey].(string)
		if !ok {
			return nil, false, fmt.Errorf("%w: asset without %s", ErrMalformedValue, nameKey)
		}
		asset := domain.Asset{Name: name}
		asset.URL, _ = value[urlKey].(string)
		asset.ContentType, _ = value[contentTypeKey].(string)
		return asset, true, nil
	case domain.KindGeolocation:
		lat, latOK := toFloat(value[latitudeKey])
		lng, lngOK := toFloat(value[longitudeKey])
		if !latOK || !lngOK {
			return nil, false, fmt.Errorf("%w: geolocation needs numeric %s and %s", ErrMalformedValue, latitudeKey, longitudeKey)
		}
		return domain.NewGeolocation(lat, lng), true, nil
	case domain.KindDate:
		raw, ok := value[dateKey].(string)
		if !ok {
			return nil, false, fmt.Errorf("%w: date without %s", ErrMalformedValue, dateKey)
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, false, fmt.Errorf("%w: date %q: %v", ErrMalformedValue, raw, err)
		}
		return domain.NewDate(parsed), true, nil
	default:
		return nil, false, nil
	}
}

func asRecord(v domain.Value) (*domain.Record, error) {
	switch record := v.(type) {
	case domain.Record:
		return &record, nil
	case *domain.Record:
		return record, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a record", ErrMalformedValue, v)
	}
}

func asACL(v domain.Value) (*domain.ACL, error) {
	switch acl := v.(type) {
	case domain.ACL:
		return &acl, nil
	case *domain.ACL:
		return acl, nil
	default:
		return nil, fmt.Errorf("%w: %T is not an acl", ErrMalformedValue, v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
