// Package router implements the command-routing fabric described in
// spec §4.6: given a locally executed command and its Route
// Descriptor, forward it to the correct set of peers, translating
// between unicast/broadcast/optional-broadcast/encapsulated wire
// forms.
//
// Grounded on the teacher's meshage/message.go: Send()'s
// recipient-to-route-slice fan-out (getRoutes) and flood()'s
// "don't send back the way it came" loop are exactly the shape of
// spec §4.6's BROADCAST and MESSAGE rules, generalized from meshage's
// flat mesh (any one-hop route) to a strict tree (route = BestRouteTo).
package router

import "github.com/sandia-minimega/spanningtree/internal/ircd/tree"

// Kind is the Route Descriptor tag (spec §3).
type Kind int

const (
	Local Kind = iota
	Broadcast
	Unicast
	OptionalBroadcast
	OptionalUnicast
	Message
)

// Descriptor is the tagged variant each command's routing function
// returns.
type Descriptor struct {
	Kind   Kind
	Target string // UNICAST/OPTIONAL_UNICAST: server name/SID; MESSAGE: channel/$-mask/nick
}

func (d Descriptor) String() string {
	switch d.Kind {
	case Local:
		return "LOCAL"
	case Broadcast:
		return "BROADCAST"
	case Unicast:
		return "UNICAST(" + d.Target + ")"
	case OptionalBroadcast:
		return "OPTIONAL_BROADCAST"
	case OptionalUnicast:
		return "OPTIONAL_UNICAST(" + d.Target + ")"
	case Message:
		return "MESSAGE(" + d.Target + ")"
	default:
		return "UNKNOWN"
	}
}

// ChannelLocator is the §6 "channel table" boundary: enough to route
// a MESSAGE descriptor whose target is a channel.
type ChannelLocator interface {
	// ServersWithMember returns the set of servers that have at least
	// one member of channel, optionally restricted to members whose
	// status is >= minRank ('\0' for no restriction).
	ServersWithMember(channel string, minRank byte) []*tree.Node
}

// UserLocator is the §6 "user table" boundary for resolving a MESSAGE
// target that is a nickname.
type UserLocator interface {
	ServerOfNick(nick string) *tree.Node
}
