package tree

import (
	"fmt"

	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
)

// UserLocator is the §6 "user table" collaborator boundary: enough to
// resolve a nickname or UUID to the server that owns it. The client
// command dispatcher and channel/user tables are external
// collaborators per spec §1; this interface is the whole of what the
// tree needs from them.
type UserLocator interface {
	ServerOfNick(nick string) ids.SID
	ServerOfUUID(uuid ids.UUID) ids.SID
}

// FindRouteTarget resolves target — a server name, a SID, a nickname,
// or a user UUID — to the Node it lives on, per spec §4.4.
func (t *Tree) FindRouteTarget(target string, users UserLocator) *Node {
	if n := t.FindByName(target); n != nil {
		return n
	}
	if ids.ValidSID(ids.SID(target)) {
		if n := t.FindBySID(ids.SID(target)); n != nil {
			return n
		}
	}
	if ids.ValidUUID(ids.UUID(target)) {
		if sid := users.ServerOfUUID(ids.UUID(target)); sid != "" {
			return t.FindBySID(sid)
		}
		return nil
	}
	if users != nil {
		if sid := users.ServerOfNick(target); sid != "" {
			return t.FindBySID(sid)
		}
	}
	return nil
}

// CheckInvariants verifies the topology-consistency properties from
// spec §8: every non-root node's RouteNextHop is a live direct child
// of self with a non-nil uplink socket, and both indices agree. It is
// meant for tests and for an operator diagnostic command, not for the
// hot path.
func (t *Tree) CheckInvariants() []error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var errs []error
	for name, n := range t.byName {
		if n.Name != name {
			errs = append(errs, errf("name index mismatch for %q", name))
		}
		if n == t.self {
			continue
		}
		hop := n.RouteNextHop
		if hop == nil {
			errs = append(errs, errf("node %q has nil route-next-hop", n.Name))
			continue
		}
		if hop.Parent != t.self {
			errs = append(errs, errf("route-next-hop %q for %q is not a direct child of self", hop.Name, n.Name))
		}
		if hop.UplinkSocket == nil {
			errs = append(errs, errf("route-next-hop %q for %q has no uplink socket", hop.Name, n.Name))
		}
	}
	for sid, n := range t.bySID {
		if n.SID != sid {
			errs = append(errs, errf("sid index mismatch for %q", sid))
		}
	}
	return errs
}

func errf(format string, a ...interface{}) error {
	return fmt.Errorf(format, a...)
}
