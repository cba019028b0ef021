package main

import (
	"fmt"

	"github.com/sandia-minimega/spanningtree/internal/ircd/burst"
	"github.com/sandia-minimega/spanningtree/internal/ircd/capab"
	"github.com/sandia-minimega/spanningtree/internal/ircd/config"
	"github.com/sandia-minimega/spanningtree/internal/ircd/dispatch"
	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/link"
	"github.com/sandia-minimega/spanningtree/internal/ircd/netsplit"
	"github.com/sandia-minimega/spanningtree/internal/ircd/resolve"
	"github.com/sandia-minimega/spanningtree/internal/ircd/router"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircd/xline"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// server is the composition root: every internal/ircd package wired
// together behind one process, the role src/minimega/main.go's package
// vars (vms, the mesh node, the command channels) play for minimega.
type server struct {
	cfg    *config.Config
	tree   *tree.Tree
	xlines *xline.Registry
	state  *state
	resolver *resolve.Resolver

	burstEngine *burst.Engine
	router      *router.Router
	dispatcher  *dispatch.Dispatcher
	netsplit    *netsplit.Handler

	local capab.Local

	linkConfigs map[string]link.Config // by Name, for dial/autoconnect lookups
}

func newServer(cfg *config.Config, selfName string, selfSID ids.SID, selfDesc string) *server {
	tr := tree.New(selfName, selfSID, selfDesc)
	xlines := xline.NewRegistry()
	st := newState(tr)

	r := &router.Router{
		Tree:     tr,
		Channels: st,
		Users:    st,
	}
	r.NickToUUID = func(nick string) string {
		n := st.ServerOfNick(nick)
		if n == nil {
			return nick
		}
		return nick // nick->UUID translation needs the (out-of-scope) user table's own UUID; pass through unresolved
	}

	be := &burst.Engine{
		Tree:        tr,
		XLines:      xlines,
		State:       st,
		QuietBursts: cfg.SpanningTree.QuietBursts,
	}

	ns := &netsplit.Handler{
		Tree:       tr,
		Users:      st,
		Cull:       noopCuller{},
		HideSplits: cfg.SpanningTree.HideSplits,
	}

	// treeUsers already implements ServerOfUUID(uuid) ids.SID, which is
	// the whole of dispatch.Users.
	d := dispatch.New(tr, treeUsers{s: st}, r)

	srv := &server{
		cfg:         cfg,
		tree:        tr,
		xlines:      xlines,
		state:       st,
		burstEngine: be,
		router:      r,
		dispatcher:  d,
		netsplit:    ns,
		linkConfigs: make(map[string]link.Config),
		local: capab.Local{
			Capabilities: capab.Capabilities{
				CaseMapping: "ascii",
				MaxNick:     31,
				MaxChannel:  64,
				MaxModes:    20,
				MaxLine:     512,
				MaxQuit:     255,
				MaxTopic:    307,
				MaxKick:     255,
				MaxReal:     128,
				MaxAway:     200,
				MaxHost:     64,
				MaxUser:     10,
			},
			ChanModes: "b,k,l,imnpst",
			UserModes: "iosw",
		},
	}
	ns.Notify = serverNotifier{srv}
	registerVerbs(srv)
	return srv
}

type noopCuller struct{}

func (noopCuller) Enqueue(n *tree.Node) {
	ircdlog.Debug("netsplit: culled %s", n.Name)
}

type serverNotifier struct{ srv *server }

func (n serverNotifier) Notice(text string) {
	ircdlog.Info("%s", text)
}

// onLinkLost implements the spec §4.9 trigger (2) path: a socket died
// on its own, with no SQUIT line involved.
func (s *server) onLinkLost(sock *link.Socket) {
	if sock.Root == nil {
		return // died during negotiation, never joined the tree
	}
	if err := s.netsplit.LinkLost(sock.Root.SID, "connection lost"); err != nil {
		ircdlog.Warn("netsplit: %v", err)
	}
}

// dialOutbound connects to a configured link block by name (used by
// both autoconnect and the operator CONNECT command).
func (s *server) dialOutbound(name string) error {
	lc, ok := s.linkConfigs[name]
	if !ok {
		return fmt.Errorf("no such link block %q", name)
	}
	sock := link.NewOutbound(&lc, nil)
	hs := &handshake{srv: s, sock: sock, conf: lc, local: s.local}
	hs.run() // wires callbacks only; nothing can be written before Dial
	if err := sock.Dial(); err != nil {
		return err
	}
	hs.outbound = true
	hs.sendCapabStart()
	return nil
}
