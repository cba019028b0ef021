package router

import (
	"fmt"
	"strings"

	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// Router forwards a locally-executed command per its Route Descriptor
// (spec §4.6).
type Router struct {
	Tree     *tree.Tree
	Channels ChannelLocator
	Users    UserLocator

	// NickToUUID translates a bare nickname parameter to its UUID
	// before broadcast/encap forwarding (spec §4.6: "parameters are
	// translated from nick references to UUID references first").
	NickToUUID func(string) string
}

// Route dispatches verb+params per desc. origin is the socket the
// command arrived on (nil if it originated locally on this server) —
// used to enforce "never back along the origin edge" for MESSAGE
// routing.
func (r *Router) Route(desc Descriptor, source, verb string, params []string, origin tree.Socket) {
	switch desc.Kind {
	case Local:
		return

	case Broadcast, OptionalBroadcast:
		line := r.buildLine(source, verb, r.translate(params))
		if desc.Kind == OptionalBroadcast {
			line = wrapEncap("*", line)
		}
		r.forwardToAllExcept(line, origin)

	case Unicast, OptionalUnicast:
		target := r.Tree.FindByName(desc.Target)
		if target == nil {
			target = r.Tree.FindBySID(ids.SID(desc.Target))
		}
		if target == nil {
			ircdlog.Warn("router: unicast target %q not found, dropping %s", desc.Target, verb)
			return
		}
		line := r.buildLine(source, verb, params)
		if desc.Kind == OptionalUnicast {
			line = wrapEncap(desc.Target, line)
		}
		r.sendToward(target, line)

	case Message:
		r.routeMessage(desc.Target, source, verb, params, origin)
	}
}

func (r *Router) routeMessage(target, source, verb string, params []string, origin tree.Socket) {
	line := r.buildLine(source, verb, params)

	switch {
	case strings.HasPrefix(target, "#"):
		if r.Channels == nil {
			return
		}
		for _, n := range r.Channels.ServersWithMember(target, 0) {
			hop := r.Tree.BestRouteTo(n)
			if hop == nil || sameSocket(hop, origin) {
				continue
			}
			r.sendToward(n, line)
		}

	case strings.HasPrefix(target, "$"):
		r.forwardToAllExcept(line, origin)

	default:
		if r.Users == nil {
			return
		}
		dest := r.Users.ServerOfNick(target)
		if dest == nil {
			return
		}
		hop := r.Tree.BestRouteTo(dest)
		if hop != nil && sameSocket(hop, origin) {
			return // never back along the origin edge
		}
		r.sendToward(dest, line)
	}
}

func (r *Router) forwardToAllExcept(line string, origin tree.Socket) {
	for _, child := range r.Tree.Self().Children {
		if sameSocket(child, origin) {
			continue
		}
		_ = child.UplinkSocket.WriteLine(line)
	}
}

func (r *Router) sendToward(target *tree.Node, line string) {
	hop := r.Tree.BestRouteTo(target)
	if hop == nil || hop.UplinkSocket == nil {
		ircdlog.Warn("router: no route to %s", target.Name)
		return
	}
	_ = hop.UplinkSocket.WriteLine(line)
}

func (r *Router) translate(params []string) []string {
	if r.NickToUUID == nil {
		return params
	}
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = r.NickToUUID(p)
	}
	return out
}

func (r *Router) buildLine(source, verb string, params []string) string {
	parts := append([]string{":" + source, verb}, params...)
	return strings.Join(parts, " ")
}

func wrapEncap(target, innerLine string) string {
	// innerLine is ":<source> VERB args…"; ENCAP re-wraps the verb and
	// args under the source prefix, targeting target (a SID or "*").
	sp := strings.IndexByte(innerLine, ' ')
	src := innerLine[:sp]
	rest := innerLine[sp+1:]
	return fmt.Sprintf("%s ENCAP %s %s", src, target, rest)
}

func sameSocket(n *tree.Node, origin tree.Socket) bool {
	if origin == nil || n == nil || n.UplinkSocket == nil {
		return false
	}
	return n.UplinkSocket.LinkID() == origin.LinkID()
}
