package router

import "github.com/sandia-minimega/spanningtree/internal/ircd/tree"

// DirectionCheck enforces spec §4.6: a command whose claimed source
// resolves to a server not reachable through the socket that
// delivered it is a protocol violation. sourceNode is the tree node
// the line claims to originate from; via is the socket the line
// actually arrived on.
func DirectionCheck(t *tree.Tree, sourceNode *tree.Node, via tree.Socket) bool {
	if sourceNode == nil || via == nil {
		return false
	}
	if sourceNode == t.Self() {
		// a remote peer claiming to be us is always a violation.
		return false
	}
	hop := t.BestRouteTo(sourceNode)
	if hop == nil || hop.UplinkSocket == nil {
		return false
	}
	return hop.UplinkSocket.LinkID() == via.LinkID()
}
