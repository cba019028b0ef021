// Package tree implements the in-memory spanning-tree topology: one
// root node (self) plus all known peer servers, dual-indexed by name
// and SID (spec §3, §4.4).
//
// Grounded on the teacher's meshage/route.go, which keeps an adjacency
// map (Node.network), derives a loop-free "effective network" from it,
// and runs a Dijkstra-style BFS to fill in one-hop routes
// (updateRoute). This spec's topology is already a strict tree (no
// redundant links to reconcile), so the equivalent of meshage's
// effective-network pass collapses to simple parent/children pointers;
// what we keep from the teacher is the idiom of computing "next hop to
// reach X" once, on topology change, rather than per-message.
package tree

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/net/idna"

	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
)

// Socket is the subset of link.Socket the tree needs, kept as an
// interface here to avoid an import cycle (link imports tree to learn
// about parent/child relationships when bursting).
type Socket interface {
	LinkID() string
	Close(reason string)
	WriteLine(line string) error
}

// Node represents one IRC server, local or remote (spec §3).
type Node struct {
	Name string
	SID  ids.SID
	Desc string

	Parent   *Node
	Children []*Node

	// RouteNextHop is the direct child of self through which this node
	// is reachable; for a direct child, RouteNextHop is the node
	// itself. Nil only for self.
	RouteNextHop *Node

	// UplinkSocket is non-nil only for direct children of self.
	UplinkSocket Socket

	BehindBursting int // >0 while this node or an ancestor hasn't sent ENDBURST
	Dead           bool
	Hidden         bool
	Service        bool
	SilentService  bool

	VersionString string
	BranchString  string
	CustomVersion string

	Users    int
	Opers    int
	LastRTTMS int64
	BurstStartMS int64
}

// IsRoot reports whether n is the local server (no parent).
func (n *Node) IsRoot() bool { return n.Parent == nil }

// Tree is the process-wide topology singleton (spec §5: "mutated only
// from the main loop").
type Tree struct {
	mu      sync.RWMutex
	self    *Node
	byName  map[string]*Node
	bySID   map[ids.SID]*Node
}

// New creates a Tree rooted at a node named selfName/selfSID.
func New(selfName string, selfSID ids.SID, desc string) *Tree {
	self := &Node{Name: selfName, SID: selfSID, Desc: desc}
	t := &Tree{
		self:   self,
		byName: map[string]*Node{selfName: self},
		bySID:  map[ids.SID]*Node{selfSID: self},
	}
	return t
}

// Self returns the local server's node.
func (t *Tree) Self() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.self
}

// NormalizeName validates and IDNA-normalizes a server name per spec
// §3 ("DNS-like, <=64 chars, must contain '.'"). Uses golang.org/x/net/idna
// rather than hand-rolled DNS label validation.
func NormalizeName(name string) (string, error) {
	if err := ids.ValidServerName(name); err != nil {
		return "", err
	}
	norm, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("tree: invalid server name %q: %w", name, err)
	}
	return norm, nil
}

// FindByName is the O(1) name lookup (spec §4.4).
func (t *Tree) FindByName(name string) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byName[name]
}

// FindBySID is the O(1) SID lookup (spec §4.4).
func (t *Tree) FindBySID(sid ids.SID) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bySID[sid]
}

// FindByMask performs the linear glob lookup over server names (spec
// §4.4: "All O(1) except find_by_mask which is linear").
func (t *Tree) FindByMask(mask string) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Node
	for name, n := range t.byName {
		if maskMatch(mask, name) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddChild introduces a server as a direct child of parent (locally
// introduced) or of an already-known remote node (forwarded SERVER).
// Computes RouteNextHop per invariant (c) in spec §3: walk parent
// pointers until one step below self.
func (t *Tree) AddChild(parent *Node, name string, sid ids.SID, desc string, sock Socket) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byName[name]; exists {
		return nil, fmt.Errorf("tree: duplicate server name %q", name)
	}
	if _, exists := t.bySID[sid]; exists {
		return nil, fmt.Errorf("tree: duplicate SID %q", sid)
	}

	n := &Node{
		Name:   name,
		SID:    sid,
		Desc:   desc,
		Parent: parent,
	}
	if sock != nil {
		n.UplinkSocket = sock
		n.RouteNextHop = n // direct peer: next hop is itself
	} else if parent == t.self {
		n.RouteNextHop = n
	} else {
		n.RouteNextHop = parent.RouteNextHop
	}

	parent.Children = append(parent.Children, n)
	t.byName[name] = n
	t.bySID[sid] = n
	return n, nil
}

// BestRouteTo returns the direct child of self on the path to target —
// i.e. the uplink to send toward it (spec §4.4, §4.6, §8 "routing
// optimality").
func (t *Tree) BestRouteTo(target *Node) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if target == nil || target == t.self {
		return nil
	}
	return target.RouteNextHop
}

// DFS returns every known node (including self) in depth-first,
// pre-order, starting at self — the order the Burst Engine uses to
// serialize SERVER/SINFO lines (spec §4.5 step 2).
func (t *Tree) DFS() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.self)
	return out
}

// Remove deregisters n from both indices. Callers are expected to have
// already unlinked n from its parent's Children slice (netsplit owns
// recursion order); Remove only drops the index entries.
func (t *Tree) Remove(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byName, n.Name)
	delete(t.bySID, n.SID)
}

// Unlink detaches n from its parent's children list.
func (t *Tree) Unlink(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n.Parent == nil {
		return
	}
	kids := n.Parent.Children
	for i, c := range kids {
		if c == n {
			n.Parent.Children = append(kids[:i], kids[i+1:]...)
			break
		}
	}
}

func maskMatch(pattern, s string) bool {
	return globCompare([]rune(pattern), []rune(s))
}

func globCompare(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		if globCompare(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if globCompare(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globCompare(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globCompare(pattern[1:], s[1:])
	}
}
