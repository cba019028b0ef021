// cmd/ircd composes every internal/ircd package into a running
// server-to-server daemon, the way the teacher's src/minimega/main.go
// composes meshage, the VM list, and the CLI into one process.
package main

import (
	"sync"

	"github.com/sandia-minimega/spanningtree/internal/ircd/burst"
	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/metrics"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
)

// localUser is one user this process knows about, local or remote.
// The spec treats the user table as an external collaborator (§6);
// this is the minimal concrete implementation needed to exercise the
// three UserLocator-shaped boundaries (tree, router, dispatch) and
// burst.StateProvider from a single source of truth, since this
// subsystem has no client dispatcher of its own to own a richer one.
type localUser struct {
	uuid ids.UUID
	nick string
	sid  ids.SID
}

// state is the process-wide user/channel table: the concrete type
// behind router.UserLocator, dispatch.Users, netsplit.UserQuitter, and
// burst.StateProvider, and (through the treeUsers adapter in server.go)
// behind tree.UserLocator. Kept as one struct
// rather than one per interface so the nick index, UUID index, and
// per-server membership all stay consistent under a single lock —
// the teacher's vmList plays the same role for VM lifecycle state in
// src/minimega/vm.go.
type state struct {
	mu       sync.RWMutex
	byNick   map[string]*localUser
	byUUID   map[ids.UUID]*localUser
	tr       *tree.Tree
}

func newState(tr *tree.Tree) *state {
	return &state{
		byNick: make(map[string]*localUser),
		byUUID: make(map[ids.UUID]*localUser),
		tr:     tr,
	}
}

// Introduce records a remote or local user, overwriting any stale
// entry under the same nick (the Conflict Resolver has already run by
// the time a handler calls this).
func (s *state) Introduce(u *localUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byNick[u.nick] = u
	s.byUUID[u.uuid] = u
	metrics.Users.Set(float64(len(s.byUUID)))
}

// Quit removes one user by UUID.
func (s *state) Quit(uuid ids.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byUUID[uuid]; ok {
		delete(s.byNick, u.nick)
		delete(s.byUUID, uuid)
		metrics.Users.Set(float64(len(s.byUUID)))
	}
}

// ServerOfNick implements router.UserLocator.
func (s *state) ServerOfNick(nick string) *tree.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byNick[nick]
	if !ok {
		return nil
	}
	return s.tr.FindBySID(u.sid)
}

// ServerOfUUID implements dispatch.Users, returning the SID component
// of uuid directly when the user isn't (yet) known locally — a race
// against an in-flight QUIT is expected per spec §4.8 step 1, not an
// error.
func (s *state) ServerOfUUID(uuid ids.UUID) ids.SID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byUUID[uuid]; ok {
		return u.sid
	}
	return uuid.SID()
}

// treeUsers adapts state to tree.UserLocator, whose ServerOfNick
// returns a bare ids.SID rather than router.UserLocator's *tree.Node —
// the same underlying lookup, a different shape per caller, so it
// lives on a small wrapper type instead of a second method with a
// name collision on *state.
type treeUsers struct{ s *state }

func (t treeUsers) ServerOfNick(nick string) ids.SID {
	n := t.s.ServerOfNick(nick)
	if n == nil {
		return ""
	}
	return n.SID
}

func (t treeUsers) ServerOfUUID(uuid ids.UUID) ids.SID {
	return t.s.ServerOfUUID(uuid)
}

// QuitServers implements netsplit.UserQuitter: remove every user whose
// sid is in dead, returning how many were removed. reason is unused
// here (this subsystem has no client-facing QUIT notification path to
// send it to) but kept in the signature to match the interface the
// netsplit package depends on.
func (s *state) QuitServers(dead map[ids.SID]bool, reason string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = reason
	var n int
	for uuid, u := range s.byUUID {
		if dead[u.sid] {
			delete(s.byUUID, uuid)
			delete(s.byNick, u.nick)
			n++
		}
	}
	metrics.Users.Set(float64(len(s.byUUID)))
	return n
}

// LocalUsers implements burst.StateProvider. This process introduces
// no client connections of its own (client dispatch is out of scope,
// spec.md §1), so the burst it sends only ever carries users it
// learned about from other servers — which is correct: a leaf
// spanning-tree node still must re-burst everything it has heard to a
// newly linked peer.
func (s *state) LocalUsers() []*burst.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*burst.User
	for _, u := range s.byUUID {
		out = append(out, &burst.User{
			UUID: u.uuid,
			Nick: u.nick,
		})
	}
	return out
}

// LocalChannels implements burst.StateProvider. Channel state is
// owned by the channel-mode modules this spec excludes (§1 Non-goals);
// this process never originates FJOIN locally, only forwards what it
// receives, so it has nothing of its own to re-burst.
func (s *state) LocalChannels() []*burst.Channel {
	return nil
}

// ServersWithMember implements router.ChannelLocator. With no local
// channel table this always reports no local members, so the Router
// forwards a channel-targeted MESSAGE to no peer.
func (s *state) ServersWithMember(channel string, minRank byte) []*tree.Node {
	return nil
}
