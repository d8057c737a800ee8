package domain

// Kind tags the domain values that travel through the codec.
type Kind string

const (
	KindRecord      Kind = "record"
	KindRole        Kind = "role"
	KindACL         Kind = "acl"
	KindAsset       Kind = "asset"
	KindGeolocation Kind = "geo"
	KindDate        Kind = "date"
)

// Value is implemented by every domain type the codec knows how to put on the
// wire. The set is closed: the unexported method keeps other packages from
// adding kinds the codec cannot dispatch on.
type Value interface {
	Kind() Kind
	isValue()
}

var (
	_ Value = Record{}
	_ Value = (*Record)(nil)
	_ Value = Role{}
	_ Value = ACL{}
	_ Value = (*ACL)(nil)
	_ Value = Asset{}
	_ Value = Geolocation{}
	_ Value = Date{}
)
