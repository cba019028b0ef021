package main

import (
	"strings"
	"testing"

	"github.com/sandia-minimega/spanningtree/internal/ircd/config"
)

// recordSocket is the same test-double shape used by
// internal/ircd/router/router_test.go's recordSocket: a minimal
// tree.Socket that records what was written to it instead of hitting
// the network.
type recordSocket struct {
	id   string
	sent []string
}

func (s *recordSocket) LinkID() string { return s.id }
func (s *recordSocket) Close(string)   {}
func (s *recordSocket) WriteLine(line string) error {
	s.sent = append(s.sent, line)
	return nil
}

func newTestServer(t *testing.T) *server {
	t.Helper()
	return newServer(&config.Config{}, "hub.example.net", "001", "hub")
}

func TestOpSquitRejectsSelf(t *testing.T) {
	srv := newTestServer(t)

	if err := srv.opSquit("hub.example.net", "bye"); err == nil {
		t.Fatal("opSquit(self) = nil error, want rejection")
	}
}

func TestOpSquitUnknownMask(t *testing.T) {
	srv := newTestServer(t)

	if err := srv.opSquit("nothing.matches.this", "bye"); err == nil {
		t.Fatal("opSquit(no match) = nil error, want error")
	}
}

func TestOpSquitDropsAdjacentDirectly(t *testing.T) {
	srv := newTestServer(t)
	sock := &recordSocket{id: "leaf"}
	leaf, err := srv.tree.AddChild(srv.tree.Self(), "leaf.example.net", "002", "leaf", sock)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := srv.opSquit("leaf.example.net", "bye"); err != nil {
		t.Fatalf("opSquit(adjacent) error = %v", err)
	}
	if srv.tree.FindBySID(leaf.SID) != nil {
		t.Error("leaf should be removed from the tree after SQUIT")
	}
}

func TestOpSquitRoutesNonAdjacentMatches(t *testing.T) {
	srv := newTestServer(t)
	hubSock := &recordSocket{id: "mid"}
	mid, err := srv.tree.AddChild(srv.tree.Self(), "mid.example.net", "002", "mid", hubSock)
	if err != nil {
		t.Fatalf("AddChild mid: %v", err)
	}
	_, err = srv.tree.AddChild(mid, "far.example.net", "003", "far", nil)
	if err != nil {
		t.Fatalf("AddChild far: %v", err)
	}

	if err := srv.opSquit("far.example.net", "gone"); err != nil {
		t.Fatalf("opSquit(non-adjacent) error = %v", err)
	}
	if len(hubSock.sent) != 1 {
		t.Fatalf("sent %d lines toward mid, want 1: %v", len(hubSock.sent), hubSock.sent)
	}
	if !strings.Contains(hubSock.sent[0], "SQUIT") || !strings.Contains(hubSock.sent[0], "003") {
		t.Errorf("routed line = %q, want a SQUIT naming 003", hubSock.sent[0])
	}
	// far itself must remain in the tree: only the target server
	// executing the routed SQUIT unlinks it, not the server that asked.
	if srv.tree.FindByName("far.example.net") == nil {
		t.Error("far should still be present locally; only routed, not torn down here")
	}
}

func TestOpRsquitAlwaysRoutesEvenWhenAdjacent(t *testing.T) {
	srv := newTestServer(t)
	sock := &recordSocket{id: "leaf"}
	if _, err := srv.tree.AddChild(srv.tree.Self(), "leaf.example.net", "002", "leaf", sock); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := srv.opRsquit("leaf.example.net", "bye"); err != nil {
		t.Fatalf("opRsquit error = %v", err)
	}
	if len(sock.sent) != 1 {
		t.Fatalf("opRsquit(adjacent) should route, not drop directly; sent = %v", sock.sent)
	}
	if srv.tree.FindByName("leaf.example.net") == nil {
		t.Error("opRsquit must not locally unlink; leaf should remain until the remote SQUIT is executed")
	}
}

func TestOpRsquitRejectsUnknownTarget(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.opRsquit("nosuch.example.net", "bye"); err == nil {
		t.Fatal("opRsquit(unknown) = nil error, want error")
	}
}

func TestOpRsquitRejectsSelf(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.opRsquit("hub.example.net", "bye"); err == nil {
		t.Fatal("opRsquit(self) = nil error, want rejection")
	}
}

func TestOpRconnectLocalShortcut(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.opRconnect("hub.example.net", "somewhere.example.net"); err == nil {
		t.Fatal("opRconnect(self, unconfigured target) = nil error, want dialOutbound's not-configured error")
	}
}

func TestOpRconnectRoutesToRemote(t *testing.T) {
	srv := newTestServer(t)
	sock := &recordSocket{id: "mid"}
	if _, err := srv.tree.AddChild(srv.tree.Self(), "mid.example.net", "002", "mid", sock); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := srv.opRconnect("mid.example.net", "target.example.net"); err != nil {
		t.Fatalf("opRconnect error = %v", err)
	}
	if len(sock.sent) != 1 {
		t.Fatalf("sent %d lines, want 1: %v", len(sock.sent), sock.sent)
	}
	if !strings.Contains(sock.sent[0], "RCONNECT") || !strings.Contains(sock.sent[0], "target.example.net") {
		t.Errorf("routed line = %q, want RCONNECT naming target.example.net", sock.sent[0])
	}
}

func TestOpRconnectRejectsUnknownRemote(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.opRconnect("nosuch.example.net", "target.example.net"); err == nil {
		t.Fatal("opRconnect(unknown remote) = nil error, want error")
	}
}

func TestRunControlMapAndLinks(t *testing.T) {
	srv := newTestServer(t)

	out, err := srv.runControl("MAP", nil)
	if err != nil {
		t.Fatalf("runControl(MAP) error = %v", err)
	}
	if !strings.Contains(out, "hub.example.net") {
		t.Errorf("MAP output = %q, want to contain self", out)
	}

	out, err = srv.runControl("links", nil)
	if err != nil {
		t.Fatalf("runControl(links) error = %v", err)
	}
	if !strings.Contains(out, "001") {
		t.Errorf("LINKS output = %q, want to contain self SID", out)
	}
}

func TestRunControlUnknownVerb(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.runControl("BOGUS", nil); err == nil {
		t.Fatal("runControl(BOGUS) = nil error, want error")
	}
}

func TestRunControlRequiresArgs(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		verb string
		args []string
	}{
		{"CONNECT", nil},
		{"RCONNECT", []string{"only-one"}},
		{"SQUIT", nil},
		{"RSQUIT", nil},
	}
	for _, c := range cases {
		if _, err := srv.runControl(c.verb, c.args); err == nil {
			t.Errorf("runControl(%s, %v) = nil error, want arity error", c.verb, c.args)
		}
	}
}
