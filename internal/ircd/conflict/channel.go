package conflict

import "github.com/sandia-minimega/spanningtree/internal/ircd/ids"

// ChannelAction tells the FJOIN handler what to do with the local
// channel's existing state (spec §4.7 "Channel TS merge").
type ChannelAction int

const (
	// TheirsWins: lower our TS to theirs, strip all local modes and
	// prefixes, then apply their modes/members.
	TheirsWins ChannelAction = iota
	// OursWins: keep our TS and modes, ignore their modes, still add
	// their members with no prefixes.
	OursWins
	// Merge: TS values are equal; union members/prefixes/simple
	// modes, take the higher value for parameterized limit-style
	// modes, union list modes.
	Merge
)

// ResolveChannelTS decides the merge action for an incoming FJOIN.
func ResolveChannelTS(oursTS, theirsTS ids.TS) ChannelAction {
	switch {
	case theirsTS < oursTS:
		return TheirsWins
	case theirsTS > oursTS:
		return OursWins
	default:
		return Merge
	}
}

// MergeParam resolves a single parameterized mode (e.g. channel
// limit +l) during an equal-TS merge: the higher value wins.
func MergeParam(ours, theirs int) int {
	if theirs > ours {
		return theirs
	}
	return ours
}

// MergeListMode unions two list-mode entry sets (e.g. +b/+e/+I),
// de-duplicating by entry text.
func MergeListMode(ours, theirs []string) []string {
	seen := make(map[string]bool, len(ours)+len(theirs))
	var out []string
	for _, e := range ours {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	for _, e := range theirs {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// MergeMembers unions two membership sets keyed by UUID, unioning each
// member's status-prefix set (e.g. a member who is "o" on one side and
// "v" on the other ends up "ov").
func MergeMembers(ours, theirs map[ids.UUID]string) map[ids.UUID]string {
	out := make(map[ids.UUID]string, len(ours)+len(theirs))
	for uuid, prefixes := range ours {
		out[uuid] = prefixes
	}
	for uuid, prefixes := range theirs {
		out[uuid] = unionPrefixes(out[uuid], prefixes)
	}
	return out
}

func unionPrefixes(a, b string) string {
	seen := make(map[byte]bool, len(a)+len(b))
	var out []byte
	for i := 0; i < len(a); i++ {
		if !seen[a[i]] {
			seen[a[i]] = true
			out = append(out, a[i])
		}
	}
	for i := 0; i < len(b); i++ {
		if !seen[b[i]] {
			seen[b[i]] = true
			out = append(out, b[i])
		}
	}
	return string(out)
}
