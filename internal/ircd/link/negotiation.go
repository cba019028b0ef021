package link

import "github.com/sandia-minimega/spanningtree/internal/ircd/ids"

// Scratch holds the negotiation state populated only while
// State.Negotiating() is true (spec §3 invariant on Link Socket).
type Scratch struct {
	PeerProtocolVersion int
	PeerModules         []string
	PeerOptModules      []string
	PeerChanModes       string
	PeerUserModes       string
	PeerExtbans         []string
	PeerCapabilities    map[string]string

	OurChallenge   string // our outgoing challenge
	PeerChallenge  string // their incoming challenge

	PendingSID  ids.SID
	PendingName string
	PendingDesc string
	PendingPass string
}
