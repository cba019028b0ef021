// Package ids defines the small identifier types shared across the
// spanning-tree subsystem: server IDs, user UUIDs, and TS timestamps.
// Grounded on the teacher's pattern of using plain strings/ints for
// mesh node names (meshage.Node.name) rather than wrapper structs; we
// add light validation because the wire protocol requires fixed-shape
// identifiers the teacher's free-form node names don't.
package ids

import (
	"errors"
	"regexp"
)

// SID is a 3-character server ID, first character a digit, unique
// network-wide.
type SID string

var sidPattern = regexp.MustCompile(`^[0-9][A-Z0-9]{2}$`)

// ValidSID reports whether s is a well-formed SID.
func ValidSID(s SID) bool {
	return sidPattern.MatchString(string(s))
}

// UUID is SID + 6 alphabetic characters, identifying one user.
type UUID string

var uuidPattern = regexp.MustCompile(`^[0-9][A-Z0-9]{2}[A-Z]{6}$`)

// ValidUUID reports whether u is well-formed.
func ValidUUID(u UUID) bool {
	return uuidPattern.MatchString(string(u))
}

// SID extracts the server-ID prefix of a UUID.
func (u UUID) SID() SID {
	if len(u) < 3 {
		return ""
	}
	return SID(u[:3])
}

// TS is a TS-protocol timestamp: whole seconds since the Unix epoch,
// used for deterministic conflict resolution (spec §4.7).
type TS int64

var errBadServerName = errors.New("server name must contain '.' and be <= 64 chars")

// ValidServerName enforces the §3 Server Node name shape: DNS-like,
// <=64 chars, contains a dot. Full DNS syntax validation (IDNA,
// label length) is delegated to internal/ircd/tree's idna-backed
// normalizer; this only enforces the spec's own minimal shape so
// packages that don't need IDNA can still sanity-check a name.
func ValidServerName(name string) error {
	if len(name) == 0 || len(name) > 64 {
		return errBadServerName
	}
	for i := range name {
		if name[i] == '.' {
			return nil
		}
	}
	return errBadServerName
}
