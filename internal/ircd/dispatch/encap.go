package dispatch

import (
	"strings"

	"github.com/sandia-minimega/spanningtree/internal/ircd/router"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// handleEncap implements spec §4.8's ENCAP rule: "if target matches
// our SID or name (or is `*` = broadcast), execute <verb> locally;
// always forward to matching peers." The inner verb's own routing
// descriptor is not consulted — ENCAP's target is what decides
// onward routing, not the wrapped command.
func (d *Dispatcher) handleEncap(ctx *Context) (router.Descriptor, error) {
	if len(ctx.Params) < 2 {
		return router.Descriptor{}, &ProtocolException{Reason: "ENCAP requires a target and an inner verb"}
	}
	target := ctx.Params[0]
	innerVerb := strings.ToUpper(ctx.Params[1])
	innerParams := ctx.Params[2:]

	self := d.Tree.Self()
	matchesSelf := target == "*" || target == string(self.SID) || target == self.Name

	if matchesSelf {
		if h, known := d.handlers[innerVerb]; known {
			if h.Scope == ServerOnly && ctx.Source.IsUser {
				return router.Descriptor{}, &ProtocolException{Reason: innerVerb + " is server-only"}
			}
			if h.Scope == UserOnly && !ctx.Source.IsUser {
				return router.Descriptor{}, &ProtocolException{Reason: innerVerb + " is user-only"}
			}
			innerCtx := &Context{Source: ctx.Source, Verb: innerVerb, Params: innerParams, Via: ctx.Via}
			if _, err := h.Func(innerCtx); err != nil {
				if pe, isProto := err.(*ProtocolException); isProto {
					return router.Descriptor{}, pe
				}
				ircdlog.Warn("dispatch: encapsulated %s failed: %v", innerVerb, err)
			}
		} else {
			ircdlog.Info("dispatch: unknown encapsulated verb %q, forwarding only", innerVerb)
		}
	}

	switch {
	case target == "*":
		return router.Descriptor{Kind: router.Broadcast}, nil
	case matchesSelf:
		return router.Descriptor{Kind: router.Local}, nil
	default:
		return router.Descriptor{Kind: router.Unicast, Target: target}, nil
	}
}
