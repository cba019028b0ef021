package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sandia-minimega/spanningtree/internal/ircd/burst"
	"github.com/sandia-minimega/spanningtree/internal/ircd/capab"
	"github.com/sandia-minimega/spanningtree/internal/ircd/codec"
	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/link"
	"github.com/sandia-minimega/spanningtree/internal/ircd/resolve"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// handshake drives one Link Socket through CAPAB START…END and SERVER
// exchange (spec §4.2, §4.3), then hands the socket off to the
// server's Dispatcher for the lifetime of the CONNECTED state. This is
// the composition-layer glue spec §6 leaves as "an external
// collaborator wires capab + link + tree together" — the teacher has
// no equivalent phase (meshage's handleConnection does a single
// unauthenticated gob handshake, see meshage/node.go), so the staging
// here follows the teacher's preference for a small explicit state
// machine driven off one OnLine callback (mirrors link.Socket's own
// pingCycle/OnPong split) over a generic parser combinator.
type handshake struct {
	srv    *server
	sock   *link.Socket
	conf   link.Config
	local  capab.Local
	outbound bool
}

func (h *handshake) run() {
	h.sock.OnLine = h.onLine
	h.sock.OnError = func(kind link.ErrorKind, err error) {
		ircdlog.Warn("link %s: %s: %v", h.sock.LinkID(), kind, err)
		h.srv.onLinkLost(h.sock)
	}

	if h.outbound {
		h.sendCapabStart()
	}
}

func (h *handshake) sendCapabStart() {
	if challenge, err := capab.NewChallenge(); err == nil {
		h.local.Capabilities.Challenge = challenge
		h.sock.Scratch.OurChallenge = challenge
	}

	_ = h.sock.WriteLine(fmt.Sprintf("CAPAB START %d", capab.MaxProtocolVersion))
	_ = h.sock.WriteLine("CAPAB CAPABILITIES :" + h.local.Capabilities.Encode())
	if len(h.local.CommonModules) > 0 {
		_ = h.sock.WriteLine("CAPAB MODULES :" + strings.Join(h.local.CommonModules, ","))
	}
	_ = h.sock.WriteLine(fmt.Sprintf("CAPAB CHANMODES :%s", h.local.ChanModes))
	_ = h.sock.WriteLine(fmt.Sprintf("CAPAB USERMODES :%s", h.local.UserModes))
	_ = h.sock.WriteLine("CAPAB END")
}

func (h *handshake) onLine(line string) {
	if h.sock.State() == link.Connected {
		if err := h.srv.dispatcher.Dispatch(line, h.sock); err != nil {
			ircdlog.Warn("link %s: %v", h.sock.LinkID(), err)
			h.sock.Close(err.Error())
		}
		return
	}

	m, err := codec.Decode(line)
	if err != nil {
		h.sock.Close(err.Error())
		return
	}
	if m == nil {
		return
	}

	switch m.Command {
	case "CAPAB":
		h.onCapab(m.AllParams())
	case "SERVER":
		h.onServer(m.AllParams())
	case "BURST":
		h.onBurst(m.AllParams())
	case "ENDBURST":
		h.onEndburst()
	default:
		ircdlog.Debug("link %s: ignoring %s during negotiation", h.sock.LinkID(), m.Command)
	}
}

func (h *handshake) onCapab(params []string) {
	if len(params) == 0 {
		return
	}
	switch strings.ToUpper(params[0]) {
	case "START":
		if len(params) > 1 {
			if v, err := strconv.Atoi(params[1]); err == nil {
				h.sock.Scratch.PeerProtocolVersion = v
			}
		}
		if !h.outbound {
			h.sendCapabStart()
		}
	case "CAPABILITIES":
		if len(params) > 1 {
			h.sock.Scratch.PeerCapabilities = capab.ParseCapabilities(params[1])
			h.sock.Scratch.PeerChallenge = h.sock.Scratch.PeerCapabilities["CHALLENGE"]
		}
	case "MODULES":
		if len(params) > 1 {
			h.sock.Scratch.PeerModules = strings.Split(params[1], ",")
		}
	case "CHANMODES":
		if len(params) > 1 {
			h.sock.Scratch.PeerChanModes = params[1]
		}
	case "USERMODES":
		if len(params) > 1 {
			h.sock.Scratch.PeerUserModes = params[1]
		}
	case "END":
		h.onCapabEnd()
	}
}

func (h *handshake) onCapabEnd() {
	peerVersion := h.sock.Scratch.PeerProtocolVersion
	if peerVersion == 0 {
		peerVersion = capab.MaxProtocolVersion // peers that omit CAPAB START <ver> are assumed current
	}
	peer := capab.Peer{
		ProtocolVersion: peerVersion,
		Capabilities:    h.sock.Scratch.PeerCapabilities,
		CommonModules:   h.sock.Scratch.PeerModules,
		ChanModes:       h.sock.Scratch.PeerChanModes,
		UserModes:       h.sock.Scratch.PeerUserModes,
	}
	result := capab.Compare(h.local, peer, false, nil)
	if !result.Accepted {
		h.sock.Close(result.KillReason)
		return
	}
	for _, w := range result.Warnings {
		ircdlog.Warn("link %s: %s", h.sock.LinkID(), w)
	}

	if h.outbound {
		h.sendServer()
	}
}

func (h *handshake) sendServer() {
	self := h.srv.tree.Self()
	pass := capab.MakePass(h.conf.SendPass, h.sock.Scratch.PeerChallenge)
	_ = h.sock.WriteLine(fmt.Sprintf("SERVER %s %s %s :%s", self.Name, pass, self.SID, self.Desc))
}

func (h *handshake) onServer(params []string) {
	if len(params) < 3 {
		h.sock.Close("malformed SERVER line")
		return
	}
	name, pass, sid := params[0], params[1], params[2]
	desc := ""
	if len(params) > 3 {
		desc = params[len(params)-1]
	}

	// Inbound sockets don't know which configured link block they are
	// until the peer names itself here; outbound sockets already carry
	// conf from dialOutbound.
	if !h.outbound {
		lc, ok := h.srv.linkConfigs[name]
		if !ok {
			h.sock.Close("no link block configured for " + name)
			return
		}
		if host, _, err := net.SplitHostPort(h.sock.LinkID()); err == nil && len(lc.AllowMask) > 0 {
			if ip := net.ParseIP(host); ip == nil || !resolve.AllowMask(strings.Join(lc.AllowMask, ","), ip) {
				h.sock.Close("remote address not permitted by allowmask")
				return
			}
		}
		h.conf = lc
	}

	if !capab.ComparePass(h.conf.RecvPass, h.sock.Scratch.OurChallenge, pass) {
		h.sock.Close("password mismatch")
		return
	}
	if !ids.ValidSID(ids.SID(sid)) {
		h.sock.Close("invalid SID")
		return
	}
	norm, err := tree.NormalizeName(name)
	if err != nil {
		h.sock.Close(err.Error())
		return
	}

	node, err := h.srv.tree.AddChild(h.srv.tree.Self(), norm, ids.SID(sid), desc, h.sock)
	if err != nil {
		h.sock.Close(err.Error())
		return
	}
	h.sock.Root = node

	if !h.outbound {
		h.sendServer()
	}

	h.sock.Scratch = link.Scratch{}
	h.sock.Authenticated()
	if err := h.srv.burstEngine.Run(h.sock, node, time.Now()); err != nil {
		ircdlog.Warn("link %s: burst send failed: %v", h.sock.LinkID(), err)
	}
}

func (h *handshake) onBurst(params []string) {
	if h.sock.Root == nil {
		return
	}
	h.sock.Root.BehindBursting++
	if len(params) > 0 {
		if wall, err := strconv.ParseInt(params[0], 10, 64); err == nil {
			if skew := burst.CheckSkew(wall, time.Now()); skew == burst.SkewFatal {
				h.sock.Close("Excessive clock skew")
			} else if skew == burst.SkewWarn {
				ircdlog.Warn("link %s: clock skew warning", h.sock.LinkID())
			}
		}
	}
}

func (h *handshake) onEndburst() {
	if h.sock.Root == nil {
		return
	}
	h.sock.Root.BehindBursting = 0
	ircdlog.Info("link %s: burst complete, server %s is CONNECTED", h.sock.LinkID(), h.sock.Root.Name)
}
