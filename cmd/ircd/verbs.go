package main

import (
	"strconv"

	"github.com/sandia-minimega/spanningtree/internal/ircd/burst"
	"github.com/sandia-minimega/spanningtree/internal/ircd/dispatch"
	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/link"
	"github.com/sandia-minimega/spanningtree/internal/ircd/router"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircd/xline"
)

// registerVerbs wires every S2S verb named in spec §4.8 to the
// Dispatcher. Structural verbs (SERVER, SQUIT, PING, PONG, BURST,
// ENDBURST, ADDLINE, DELLINE) get full local handling, since they're
// this subsystem's own responsibility. SINFO is not registered, so the
// Dispatcher logs an incoming SINFO line as unrecognized and drops it.
// UID and QUIT also update the minimal user table in state.go before
// being broadcast. The remaining client-domain verbs (NICK, FJOIN, ...)
// are recognized and routed per their §4.6 descriptor, but their local
// side effects belong to the client dispatcher and channel-mode modules
// spec.md §1 explicitly puts out of scope — here they're forward-only,
// the same boundary router.ChannelLocator/UserLocator already draw.
func registerVerbs(s *server) {
	d := s.dispatcher

	d.Register("SERVER", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handleServerVerb})
	d.Register("SQUIT", dispatch.Handler{Scope: dispatch.Either, Func: s.handleSquit})
	d.Register("PING", dispatch.Handler{Scope: dispatch.Either, Func: s.handlePing})
	d.Register("PONG", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handlePong})
	d.Register("BURST", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handleBurst})
	d.Register("ENDBURST", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handleEndburst})
	d.Register("ADDLINE", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handleAddline})
	d.Register("DELLINE", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handleDelline})

	for _, verb := range []string{
		"NICK", "KILL", "SAVE", "IJOIN", "RESYNC", "PART", "KICK",
		"FMODE", "MODE", "LMODE", "FTOPIC", "TOPIC", "METADATA",
		"OPERTYPE", "AWAY", "PUSH", "SNONOTICE", "IDLE", "NUM", "ERROR",
	} {
		d.Register(verb, dispatch.Handler{Scope: dispatch.Either, Func: forwardBroadcast})
	}
	d.Register("UID", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handleUID})
	d.Register("QUIT", dispatch.Handler{Scope: dispatch.Either, Func: s.handleQuit})
	d.Register("FJOIN", dispatch.Handler{Scope: dispatch.ServerOnly, Func: forwardBroadcast})
	d.Register("RCONNECT", dispatch.Handler{Scope: dispatch.ServerOnly, Func: s.handleRconnect})
}

// forwardBroadcast is the default routing for verbs whose local side
// effects live in an out-of-scope collaborator (spec §1 Non-goals):
// accept the line as-is and broadcast it onward exactly like the
// teacher's meshage flood() forwards an unrecognized payload.
func forwardBroadcast(ctx *dispatch.Context) (router.Descriptor, error) {
	return router.Descriptor{Kind: router.Broadcast}, nil
}

func (s *server) handleServerVerb(ctx *dispatch.Context) (router.Descriptor, error) {
	// A forwarded SERVER (indirect introduction): params are
	// name, SID, :description. Direct introductions are handled by
	// the handshake driver before the socket ever reaches CONNECTED.
	if len(ctx.Params) < 2 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "malformed SERVER"}
	}
	name, sid := ctx.Params[0], ctx.Params[1]
	desc := ""
	if len(ctx.Params) > 2 {
		desc = ctx.Params[len(ctx.Params)-1]
	}
	if !ids.ValidSID(ids.SID(sid)) {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "invalid SID in forwarded SERVER"}
	}
	norm, err := tree.NormalizeName(name)
	if err != nil {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: err.Error()}
	}
	if _, err := s.tree.AddChild(ctx.Source.Node, norm, ids.SID(sid), desc, nil); err != nil {
		// Duplicate name/SID from an indirect introduction is a
		// structural violation (spec §4.4: "verify name and SID are
		// both free"), handled by SQUIT of the offending subtree
		// rather than killing this link outright.
		if serr := s.netsplit.Squit(ids.SID(sid), "Server introduced with a duplicate name/SID"); serr != nil {
			return router.Descriptor{}, &dispatch.ProtocolException{Reason: err.Error()}
		}
		return router.Descriptor{Kind: router.Local}, nil
	}
	return router.Descriptor{Kind: router.Broadcast}, nil
}

func (s *server) handleSquit(ctx *dispatch.Context) (router.Descriptor, error) {
	if len(ctx.Params) < 1 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "malformed SQUIT"}
	}
	targetSID := ids.SID(ctx.Params[0])
	reason := ""
	if len(ctx.Params) > 1 {
		reason = ctx.Params[len(ctx.Params)-1]
	}

	if targetSID == s.tree.Self().SID {
		s.netsplit.RemoteSquitOfSelf(ctx.Via, reason)
		return router.Descriptor{Kind: router.Local}, nil
	}

	target := s.tree.FindBySID(targetSID)
	if target == nil {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "SQUIT of unknown server"}
	}
	// Structural violation per spec §4.6: SQUIT of a server not
	// reachable through the link it arrived on.
	if !router.DirectionCheck(s.tree, target, ctx.Via) {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "SQUIT of a non-adjacent server"}
	}
	if err := s.netsplit.Squit(targetSID, reason); err != nil {
		return router.Descriptor{}, err
	}
	return router.Descriptor{Kind: router.Broadcast}, nil
}

func (s *server) handlePing(ctx *dispatch.Context) (router.Descriptor, error) {
	if len(ctx.Params) == 0 {
		return router.Descriptor{Kind: router.Local}, nil
	}
	target := ctx.Params[0]
	if target == string(s.tree.Self().SID) || target == s.tree.Self().Name {
		_ = ctx.Via.WriteLine("PONG " + string(s.tree.Self().SID))
		return router.Descriptor{Kind: router.Local}, nil
	}
	return router.Descriptor{Kind: router.Unicast, Target: target}, nil
}

func (s *server) handlePong(ctx *dispatch.Context) (router.Descriptor, error) {
	if sock, ok := ctx.Via.(*link.Socket); ok {
		sock.OnPong()
	}
	burst.OnPongImpliesEndburst(ctx.Source.Node)
	if len(ctx.Params) > 0 {
		target := ctx.Params[0]
		if target != string(s.tree.Self().SID) && target != s.tree.Self().Name {
			return router.Descriptor{Kind: router.Unicast, Target: target}, nil
		}
	}
	return router.Descriptor{Kind: router.Local}, nil
}

func (s *server) handleBurst(ctx *dispatch.Context) (router.Descriptor, error) {
	if ctx.Source.Node != nil {
		ctx.Source.Node.BehindBursting++
	}
	return router.Descriptor{Kind: router.Local}, nil
}

func (s *server) handleEndburst(ctx *dispatch.Context) (router.Descriptor, error) {
	if ctx.Source.Node != nil {
		ctx.Source.Node.BehindBursting = 0
	}
	return router.Descriptor{Kind: router.Local}, nil
}

func (s *server) handleAddline(ctx *dispatch.Context) (router.Descriptor, error) {
	if len(ctx.Params) < 5 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "malformed ADDLINE"}
	}
	typ := ctx.Params[0]
	if len(typ) != 1 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "invalid ADDLINE type"}
	}
	mask, setter := ctx.Params[1], ctx.Params[2]
	setTime, err1 := strconv.ParseInt(ctx.Params[3], 10, 64)
	duration, err2 := strconv.ParseInt(ctx.Params[4], 10, 64)
	if err1 != nil || err2 != nil {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "malformed ADDLINE timestamps"}
	}
	reason := ""
	if len(ctx.Params) > 5 {
		reason = ctx.Params[len(ctx.Params)-1]
	}
	s.xlines.Add(&xline.Line{
		Type:     typ[0],
		Mask:     mask,
		Setter:   setter,
		SetTime:  ids.TS(setTime),
		Duration: duration,
		Reason:   reason,
	})
	return router.Descriptor{Kind: router.Broadcast}, nil
}

func (s *server) handleDelline(ctx *dispatch.Context) (router.Descriptor, error) {
	if len(ctx.Params) < 2 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "malformed DELLINE"}
	}
	typ := ctx.Params[0]
	if len(typ) != 1 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "invalid DELLINE type"}
	}
	s.xlines.Del(typ[0], ctx.Params[1])
	return router.Descriptor{Kind: router.Broadcast}, nil
}

func (s *server) handleUID(ctx *dispatch.Context) (router.Descriptor, error) {
	// UUID NickTS nick host display-host ident ip signon-ts +modes :realname
	if len(ctx.Params) < 3 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "malformed UID"}
	}
	uuid := ids.UUID(ctx.Params[0])
	if !ids.ValidUUID(uuid) {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "invalid UUID in UID"}
	}
	nick := ctx.Params[2]
	s.state.Introduce(&localUser{uuid: uuid, nick: nick, sid: uuid.SID()})
	return router.Descriptor{Kind: router.Broadcast}, nil
}

func (s *server) handleQuit(ctx *dispatch.Context) (router.Descriptor, error) {
	if ctx.Source.IsUser {
		s.state.Quit(ctx.Source.UUID)
	}
	return router.Descriptor{Kind: router.Broadcast}, nil
}
