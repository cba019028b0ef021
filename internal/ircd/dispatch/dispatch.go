// Package dispatch implements the Command Dispatcher described in
// spec §4.8: resolve the source of a decoded line, enforce direction,
// look up a registered handler by verb, and hand the result off to
// the router.
//
// Grounded on the teacher's minicli.Handler/registry split
// (_staging/handler.go, command.go): a Handler value pairs a
// call-back with metadata the dispatcher consults before invoking it
// (minicli checks pattern/arity; this dispatcher checks Scope). Like
// minicli we keep a single map-based registry rather than building a
// trie or using reflection — see minicli's commands map in
// _staging — because the verb set is small, fixed, and known at
// init time.
package dispatch

import (
	"fmt"

	"github.com/sandia-minimega/spanningtree/internal/ircd/codec"
	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/router"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// Scope restricts which kind of source a verb's handler accepts.
type Scope int

const (
	// ServerOnly rejects the command if its resolved source is a user
	// (spec §4.8: "server-only").
	ServerOnly Scope = iota
	// UserOnly rejects the command if its resolved source is a server.
	UserOnly
	// Either accepts a command regardless of source kind.
	Either
)

// Source describes the resolved origin of one decoded command.
type Source struct {
	Node   *tree.Node // the server node the command is attributed to
	IsUser bool        // true if the command was sourced by a UUID
	UUID   ids.UUID    // set when IsUser
}

// Context is passed to a Handler. Verb is upper-cased; Params is the
// full parameter list (AllParams, trailing included) exactly as
// decoded — handlers that forward unmodified pass Params straight to
// the Router.
type Context struct {
	Source *Source
	Verb   string
	Params []string
	Via    tree.Socket
}

// HandlerFunc executes one verb's local side effects and reports how
// it should be routed onward. Returning an error other than
// *ProtocolException is treated as "handled, log and drop" — it does
// not kill the link (spec §7: only a ProtocolException is fatal).
type HandlerFunc func(ctx *Context) (router.Descriptor, error)

// Handler pairs a callback with the source-kind restriction spec
// §4.8 calls for.
type Handler struct {
	Scope Scope
	Func  HandlerFunc
}

// ProtocolException is a fatal dispatch-time violation; per spec §4.8
// and §7 it kills the link that produced it.
type ProtocolException struct {
	Reason string
}

func (e *ProtocolException) Error() string { return "protocol exception: " + e.Reason }

// Users is the §6 "user table" boundary needed to resolve a UUID
// source and to recognize ENCAP targets addressed to a user.
type Users interface {
	ServerOfUUID(uuid ids.UUID) ids.SID
}

// Dispatcher owns the verb registry and wires resolved commands to
// the Router.
type Dispatcher struct {
	Tree   *tree.Tree
	Users  Users
	Router *router.Router

	handlers map[string]Handler
}

// New creates a Dispatcher and registers the one built-in verb,
// ENCAP, that the dispatcher itself must special-case per spec §4.8.
func New(t *tree.Tree, users Users, r *router.Router) *Dispatcher {
	d := &Dispatcher{
		Tree:     t,
		Users:    users,
		Router:   r,
		handlers: make(map[string]Handler),
	}
	d.handlers["ENCAP"] = Handler{Scope: Either, Func: d.handleEncap}
	return d
}

// Register installs the handler for verb, overwriting any previous
// registration — callers register once at startup (spec §4.8's verb
// list), so last-registration-wins is a non-issue in practice but
// keeps Register usable from tests without a separate Replace.
func (d *Dispatcher) Register(verb string, h Handler) {
	d.handlers[verb] = h
}

// Dispatch decodes and processes one line received on via. It
// returns a non-nil *ProtocolException when the caller must kill the
// link; any other error means the line was logged and dropped.
func (d *Dispatcher) Dispatch(line string, via tree.Socket) error {
	m, err := codec.Decode(line)
	if err != nil {
		return &ProtocolException{Reason: err.Error()}
	}
	if m == nil {
		return nil // blank line, spec: ignored
	}

	src, ok := d.resolveSource(m, via)
	if !ok {
		ircdlog.Debug("dispatch: unresolvable source %q for %s, dropping", m.Source, m.Command)
		return nil
	}

	if src.Node != d.Tree.Self() && !router.DirectionCheck(d.Tree, src.Node, via) {
		return &ProtocolException{Reason: fmt.Sprintf("source %s arrived via wrong link", src.Node.Name)}
	}

	h, known := d.handlers[m.Command]
	if !known {
		ircdlog.Warn("dispatch: unrecognized verb %q from %s", m.Command, src.Node.Name)
		return nil
	}
	if h.Scope == ServerOnly && src.IsUser {
		return &ProtocolException{Reason: m.Command + " is server-only, received from a user source"}
	}
	if h.Scope == UserOnly && !src.IsUser {
		return &ProtocolException{Reason: m.Command + " is user-only, received from a server source"}
	}

	ctx := &Context{Source: src, Verb: m.Command, Params: m.AllParams(), Via: via}
	desc, err := h.Func(ctx)
	if err != nil {
		if pe, isProto := err.(*ProtocolException); isProto {
			return pe
		}
		ircdlog.Warn("dispatch: handler for %s failed: %v", m.Command, err)
		return nil
	}

	d.Router.Route(desc, sourceToken(src), m.Command, ctx.Params, via)
	return nil
}

// resolveSource implements spec §4.8 step 1.
func (d *Dispatcher) resolveSource(m *codec.Message, via tree.Socket) (*Source, bool) {
	if m.Source == "" {
		n := d.directPeerOf(via)
		if n == nil {
			return nil, false
		}
		return &Source{Node: n}, true
	}

	if ids.ValidUUID(ids.UUID(m.Source)) {
		uuid := ids.UUID(m.Source)
		sid := uuid.SID()
		if d.Users != nil {
			if owner := d.Users.ServerOfUUID(uuid); owner != "" {
				sid = owner
			}
		}
		n := d.Tree.FindBySID(sid)
		if n == nil {
			return nil, false
		}
		return &Source{Node: n, IsUser: true, UUID: uuid}, true
	}

	if ids.ValidSID(ids.SID(m.Source)) {
		n := d.Tree.FindBySID(ids.SID(m.Source))
		if n == nil {
			return nil, false
		}
		return &Source{Node: n}, true
	}

	if n := d.Tree.FindByName(m.Source); n != nil {
		return &Source{Node: n}, true
	}

	return nil, false
}

// directPeerOf finds the direct child of self whose uplink socket is
// via — used when a line arrives with no source prefix at all, which
// per spec §4.8 always means "from the peer at the other end of this
// socket."
func (d *Dispatcher) directPeerOf(via tree.Socket) *tree.Node {
	for _, c := range d.Tree.Self().Children {
		if c.UplinkSocket != nil && via != nil && c.UplinkSocket.LinkID() == via.LinkID() {
			return c
		}
	}
	return nil
}

func sourceToken(src *Source) string {
	if src.IsUser {
		return string(src.UUID)
	}
	return string(src.Node.SID)
}
