package domain

import "fmt"

type AccessLevel string

const (
	AccessLevelRead  AccessLevel = "read"
	AccessLevelWrite AccessLevel = "write"
)

func (l AccessLevel) Valid() bool {
	switch l {
	case AccessLevelRead, AccessLevelWrite:
		return true
	default:
		return false
	}
}

// allows reports whether an entry at level l satisfies a check for want.
// Write access implies read access.
func (l AccessLevel) allows(want AccessLevel) bool {
	if l == AccessLevelWrite {
		return true
	}
	return l == want
}

// ACLEntry grants Level to either the public or a single role.
type ACLEntry struct {
	Level  AccessLevel
	Public bool
	Role   Role
}

func (e ACLEntry) Validate() error {
	if !e.Level.Valid() {
		return fmt.Errorf("unsupported access level %q", e.Level)
	}
	if e.Public && e.Role.Name != "" {
		return fmt.Errorf("acl entry cannot target both public and role %q", e.Role.Name)
	}
	if !e.Public && e.Role.Name == "" {
		return fmt.Errorf("acl entry needs a subject")
	}
	return nil
}

func (e ACLEntry) sameSubject(other ACLEntry) bool {
	if e.Public || other.Public {
		return e.Public == other.Public
	}
	return e.Role == other.Role
}

// ACL mirrors server-side access policy. The client never enforces it.
type ACL struct {
	Entries []ACLEntry
}

func NewACL(entries ...ACLEntry) *ACL {
	acl := &ACL{}
	for _, entry := range entries {
		acl.set(entry)
	}
	return acl
}

func (ACL) Kind() Kind { return KindACL }
func (ACL) isValue()   {}

func (a *ACL) SetPublicReadOnly() {
	a.set(ACLEntry{Level: AccessLevelRead, Public: true})
}

func (a *ACL) SetPublicReadWriteAccess() {
	a.set(ACLEntry{Level: AccessLevelWrite, Public: true})
}

func (a *ACL) SetPublicNoAccess() {
	a.remove(ACLEntry{Public: true})
}

func (a *ACL) SetReadOnlyForRole(role Role) {
	a.set(ACLEntry{Level: AccessLevelRead, Role: role})
}

func (a *ACL) SetReadWriteAccessForRole(role Role) {
	a.set(ACLEntry{Level: AccessLevelWrite, Role: role})
}

func (a *ACL) SetNoAccessForRole(role Role) {
	a.remove(ACLEntry{Role: role})
}

func (a ACL) HasPublicReadAccess() bool {
	return a.has(ACLEntry{Public: true}, AccessLevelRead)
}

func (a ACL) HasPublicWriteAccess() bool {
	return a.has(ACLEntry{Public: true}, AccessLevelWrite)
}

func (a ACL) HasReadAccessForRole(role Role) bool {
	return a.has(ACLEntry{Role: role}, AccessLevelRead)
}

func (a ACL) HasWriteAccessForRole(role Role) bool {
	return a.has(ACLEntry{Role: role}, AccessLevelWrite)
}

func (a ACL) has(subject ACLEntry, level AccessLevel) bool {
	for _, entry := range a.Entries {
		if entry.sameSubject(subject) && entry.Level.allows(level) {
			return true
		}
	}
	return false
}

// set keeps at most one entry per subject; the latest level wins in place.
func (a *ACL) set(entry ACLEntry) {
	for i := range a.Entries {
		if a.Entries[i].sameSubject(entry) {
			a.Entries[i].Level = entry.Level
			return
		}
	}
	a.Entries = append(a.Entries, entry)
}

func (a *ACL) remove(subject ACLEntry) {
	kept := a.Entries[:0]
	for _, entry := range a.Entries {
		if entry.sameSubject(subject) {
			continue
		}
		kept = append(kept, entry)
	}
	a.Entries = kept
}
