// Package netsplit implements the handler described in spec §4.9:
// tearing down a subtree on SQUIT, local link loss, or an internal
// ProtocolException, and quitting every user who lived behind it.
//
// Grounded on the teacher's minimega vm.go cascading-delete idiom
// (free a VM, then recursively free everything that depended on it)
// generalized from a flat VM list to the tree's parent/child
// recursion, and on meshage's "unlink, then walk, then reindex"
// ordering for tearing down a mesh edge.
package netsplit

import (
	"fmt"

	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/metrics"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// UserQuitter is the §6 "user table" boundary: given the set of
// servers that just died, quit every user living on one of them and
// report how many were removed.
type UserQuitter interface {
	QuitServers(dead map[ids.SID]bool, reason string) (count int)
}

// Notifier emits the operator-visible split notice (spec §4.9 step 5).
type Notifier interface {
	Notice(text string)
}

// CullQueue defers the actual freeing of a dead node (spec §4.9 step
// 6: "actual freeing deferred").
type CullQueue interface {
	Enqueue(n *tree.Node)
}

// Handler owns the split/cull machinery for one server process.
type Handler struct {
	Tree       *tree.Tree
	Users      UserQuitter
	Notify     Notifier
	Cull       CullQueue
	HideSplits bool
}

// Squit tears down targetSID's subtree. Rejects an attempt to squit
// the local server (spec §4.9 step 1: "local SQUIT of self is
// forbidden") — a remote peer naming our own SID is a different case,
// handled by RemoteSquitOfSelf.
func (h *Handler) Squit(targetSID ids.SID, reason string) error {
	return h.squit(targetSID, reason, "squit")
}

func (h *Handler) squit(targetSID ids.SID, reason, cause string) error {
	target := h.Tree.FindBySID(targetSID)
	if target == nil {
		return fmt.Errorf("netsplit: unknown server %s", targetSID)
	}
	if target == h.Tree.Self() {
		return fmt.Errorf("netsplit: cannot SQUIT the local server")
	}

	parent := target.Parent
	quitReason := reason
	if h.HideSplits {
		quitReason = "*.net *.split"
	} else if parent != nil {
		quitReason = parent.Name + " " + target.Name
	}

	uplink := target.UplinkSocket
	h.Tree.Unlink(target)

	dead := make(map[ids.SID]bool)
	var lostServers int
	h.cascade(target, &lostServers, dead)

	var lostUsers int
	if h.Users != nil {
		lostUsers = h.Users.QuitServers(dead, quitReason)
	}

	parentName := "?"
	if parent != nil {
		parentName = parent.Name
	}
	if h.Notify != nil {
		h.Notify.Notice(fmt.Sprintf("Netsplit %s <-> %s (%d users, %d servers lost)",
			parentName, target.Name, lostUsers, lostServers))
	}
	ircdlog.Info("netsplit: %s <-> %s: %d users, %d servers", parentName, target.Name, lostUsers, lostServers)
	metrics.Netsplits.WithLabelValues(cause).Inc()

	if uplink != nil {
		uplink.Close(reason)
	}
	return nil
}

// RemoteSquitOfSelf handles a peer's SQUIT naming our own SID: spec
// §4.9 step 1 rewrites this to a parent-link drop instead of an
// attempt to split ourselves out of our own tree view. uplink is our
// connection toward the peer reporting the loss.
func (h *Handler) RemoteSquitOfSelf(uplink tree.Socket, reason string) {
	if uplink != nil {
		uplink.Close(reason)
	}
}

// LinkLost handles trigger (2) from spec §4.9: the local socket for
// sid died on its own (read error, ping timeout), with no SQUIT line
// involved.
func (h *Handler) LinkLost(sid ids.SID, cause string) error {
	return h.squit(sid, cause, "link-lost")
}

// cascade marks n and its descendants dead, deregisters them from the
// tree's indices, enqueues each for culling, and records every SID in
// dead so a single user-table pass can quit everyone at once (spec
// §4.9 steps 3-4: recursion is separate from the user-quit pass).
func (h *Handler) cascade(n *tree.Node, count *int, dead map[ids.SID]bool) {
	n.Dead = true
	dead[n.SID] = true
	*count++

	children := n.Children
	n.Children = nil
	for _, c := range children {
		h.cascade(c, count, dead)
	}

	h.Tree.Remove(n)
	if h.Cull != nil {
		h.Cull.Enqueue(n)
	}
}
