// Package conflict implements the timestamp-based (TS) rules from spec
// §4.7: nick collision resolution, channel TS merge, and X-line
// conflict resolution. The X-line lower-set-time-wins rule itself
// lives in internal/ircd/xline (Registry.Add); this package covers
// the nick and channel rules, which need no persistent registry of
// their own.
//
// Grounded on original_source's nick-collision handling described in
// spec §4.7 and §8 scenario 2. The teacher has no TS-collision
// concept (meshage nodes never collide — names are assumed
// pre-coordinated) so this is original logic expressed in the
// teacher's small-pure-function style (see meshage/route.go's
// updateRoute, which is likewise a pure function over explicit
// state rather than a method with side effects buried in it).
package conflict

import "github.com/sandia-minimega/spanningtree/internal/ircd/ids"

// NickIdentity is the (ident, IP) pair used to distinguish "the same
// client reconnecting" from "a different client claiming the nick."
type NickIdentity struct {
	Ident string
	IP    string
}

// NickOutcome is the result of resolving a nick collision.
type NickOutcome int

const (
	// BothLose: the TS values were equal; both sides are forced to
	// their UUID (spec §4.7 rule 1).
	BothLose NickOutcome = iota
	// RemoteLoses: the incoming side is renamed to UUID, we keep our
	// existing user (rule 3).
	RemoteLoses
	// LocalLoses: our existing user is forced to UUID, SAVE is issued
	// upstream (rule 4).
	LocalLoses
)

// ResolveNick applies spec §4.7's nick-collision rules. localTS/localID
// describe the user we already have; remoteTS/remoteID describe the
// incoming UID/NICK.
func ResolveNick(localTS, remoteTS ids.TS, localID, remoteID NickIdentity) NickOutcome {
	if localTS == remoteTS {
		return BothLose
	}

	sameIdentity := localID.Ident == remoteID.Ident && localID.IP == remoteID.IP

	remoteLoses := (sameIdentity && remoteTS < localTS) || (!sameIdentity && remoteTS > localTS)
	if remoteLoses {
		return RemoteLoses
	}
	return LocalLoses
}

// SaveApplies implements the §4.7 SAVE idempotence rule: a receiver
// only applies SAVE <uuid> <ts> if the named user's current nick-TS
// equals the carried TS.
func SaveApplies(currentNickTS, savedTS ids.TS) bool {
	return currentNickTS == savedTS
}
