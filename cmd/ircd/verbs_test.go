package main

import (
	"testing"

	"github.com/sandia-minimega/spanningtree/internal/ircd/dispatch"
	"github.com/sandia-minimega/spanningtree/internal/ircd/router"
)

func TestHandleUIDIntroducesUser(t *testing.T) {
	srv := newTestServer(t)
	ctx := &dispatch.Context{
		Source: &dispatch.Source{Node: srv.tree.Self()},
		Params: []string{"001AAAAAA", "12345", "alice", "host", "host", "ident", "1.2.3.4", "12345", "+i", "realname"},
	}

	desc, err := srv.handleUID(ctx)
	if err != nil {
		t.Fatalf("handleUID error = %v", err)
	}
	if desc.Kind != router.Broadcast {
		t.Errorf("handleUID descriptor = %v, want Broadcast", desc.Kind)
	}
	if srv.state.ServerOfNick("alice") == nil {
		t.Error("alice should be introduced after handleUID")
	}
}

func TestHandleUIDRejectsInvalidUUID(t *testing.T) {
	srv := newTestServer(t)
	ctx := &dispatch.Context{
		Source: &dispatch.Source{Node: srv.tree.Self()},
		Params: []string{"not-a-uuid", "12345", "alice"},
	}

	if _, err := srv.handleUID(ctx); err == nil {
		t.Fatal("handleUID(invalid uuid) = nil error, want ProtocolException")
	}
}

func TestHandleUIDRejectsShortParams(t *testing.T) {
	srv := newTestServer(t)
	ctx := &dispatch.Context{Source: &dispatch.Source{Node: srv.tree.Self()}, Params: []string{"001AAAAAA"}}

	if _, err := srv.handleUID(ctx); err == nil {
		t.Fatal("handleUID(short params) = nil error, want ProtocolException")
	}
}

func TestHandleQuitRemovesUser(t *testing.T) {
	srv := newTestServer(t)
	srv.state.Introduce(&localUser{uuid: "001AAAAAA", nick: "alice", sid: "001"})

	ctx := &dispatch.Context{Source: &dispatch.Source{IsUser: true, UUID: "001AAAAAA"}}
	desc, err := srv.handleQuit(ctx)
	if err != nil {
		t.Fatalf("handleQuit error = %v", err)
	}
	if desc.Kind != router.Broadcast {
		t.Errorf("handleQuit descriptor = %v, want Broadcast", desc.Kind)
	}
	if srv.state.ServerOfNick("alice") != nil {
		t.Error("alice should be gone after handleQuit")
	}
}

func TestHandleQuitIgnoresServerSource(t *testing.T) {
	srv := newTestServer(t)
	srv.state.Introduce(&localUser{uuid: "001AAAAAA", nick: "alice", sid: "001"})

	ctx := &dispatch.Context{Source: &dispatch.Source{IsUser: false}}
	if _, err := srv.handleQuit(ctx); err != nil {
		t.Fatalf("handleQuit error = %v", err)
	}
	if srv.state.ServerOfNick("alice") == nil {
		t.Error("alice should survive a server-sourced QUIT with no UUID")
	}
}

func TestHandlePingRepliesLocallyWhenAddressedToSelf(t *testing.T) {
	srv := newTestServer(t)
	sock := &recordSocket{id: "peer"}
	ctx := &dispatch.Context{
		Source: &dispatch.Source{Node: srv.tree.Self()},
		Params: []string{string(srv.tree.Self().SID)},
		Via:    sock,
	}

	desc, err := srv.handlePing(ctx)
	if err != nil {
		t.Fatalf("handlePing error = %v", err)
	}
	if desc.Kind != router.Local {
		t.Errorf("handlePing(self) descriptor = %v, want Local", desc.Kind)
	}
	if len(sock.sent) != 1 || sock.sent[0] != "PONG 001" {
		t.Errorf("handlePing(self) reply = %v, want [PONG 001]", sock.sent)
	}
}

func TestHandlePingForwardsWhenAddressedElsewhere(t *testing.T) {
	srv := newTestServer(t)
	ctx := &dispatch.Context{
		Source: &dispatch.Source{Node: srv.tree.Self()},
		Params: []string{"002"},
	}

	desc, err := srv.handlePing(ctx)
	if err != nil {
		t.Fatalf("handlePing error = %v", err)
	}
	if desc.Kind != router.Unicast || desc.Target != "002" {
		t.Errorf("handlePing(elsewhere) descriptor = %+v, want Unicast to 002", desc)
	}
}

func TestHandleBurstAndEndburstTrackBehindBursting(t *testing.T) {
	srv := newTestServer(t)
	leaf, err := srv.tree.AddChild(srv.tree.Self(), "leaf.example.net", "002", "leaf", nil)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	ctx := &dispatch.Context{Source: &dispatch.Source{Node: leaf}}
	if _, err := srv.handleBurst(ctx); err != nil {
		t.Fatalf("handleBurst error = %v", err)
	}
	if leaf.BehindBursting != 1 {
		t.Errorf("BehindBursting after BURST = %d, want 1", leaf.BehindBursting)
	}

	if _, err := srv.handleEndburst(ctx); err != nil {
		t.Fatalf("handleEndburst error = %v", err)
	}
	if leaf.BehindBursting != 0 {
		t.Errorf("BehindBursting after ENDBURST = %d, want 0", leaf.BehindBursting)
	}
}

func TestHandleAddlineAndDelline(t *testing.T) {
	srv := newTestServer(t)
	ctx := &dispatch.Context{
		Source: &dispatch.Source{Node: srv.tree.Self()},
		Params: []string{"G", "*.baduser.example", "oper", "1000", "0", "spamming"},
	}
	desc, err := srv.handleAddline(ctx)
	if err != nil {
		t.Fatalf("handleAddline error = %v", err)
	}
	if desc.Kind != router.Broadcast {
		t.Errorf("handleAddline descriptor = %v, want Broadcast", desc.Kind)
	}
	if srv.xlines.Match('G', "host.baduser.example", 2000) == nil {
		t.Error("xline should be present after ADDLINE")
	}

	delCtx := &dispatch.Context{
		Source: &dispatch.Source{Node: srv.tree.Self()},
		Params: []string{"G", "*.baduser.example"},
	}
	if _, err := srv.handleDelline(delCtx); err != nil {
		t.Fatalf("handleDelline error = %v", err)
	}
	if srv.xlines.Match('G', "host.baduser.example", 2000) != nil {
		t.Error("xline should be gone after DELLINE")
	}
}

func TestHandleRconnectDialsTarget(t *testing.T) {
	srv := newTestServer(t)
	ctx := &dispatch.Context{Params: []string{"nosuch.example.net"}}

	desc, err := srv.handleRconnect(ctx)
	if err != nil {
		t.Fatalf("handleRconnect error = %v", err)
	}
	if desc.Kind != router.Local {
		t.Errorf("handleRconnect descriptor = %v, want Local", desc.Kind)
	}
}

func TestHandleRconnectRejectsMissingParam(t *testing.T) {
	srv := newTestServer(t)
	ctx := &dispatch.Context{Params: nil}

	if _, err := srv.handleRconnect(ctx); err == nil {
		t.Fatal("handleRconnect(no params) = nil error, want ProtocolException")
	}
}

func TestHandleSquitRejectsNonAdjacent(t *testing.T) {
	srv := newTestServer(t)
	midSock := &recordSocket{id: "mid"}
	mid, err := srv.tree.AddChild(srv.tree.Self(), "mid.example.net", "002", "mid", midSock)
	if err != nil {
		t.Fatalf("AddChild mid: %v", err)
	}
	far, err := srv.tree.AddChild(mid, "far.example.net", "003", "far", nil)
	if err != nil {
		t.Fatalf("AddChild far: %v", err)
	}

	// far arrives on a link that isn't the one leading toward it.
	otherSock := &recordSocket{id: "other"}
	if _, err := srv.tree.AddChild(srv.tree.Self(), "other.example.net", "004", "other", otherSock); err != nil {
		t.Fatalf("AddChild other: %v", err)
	}

	ctx := &dispatch.Context{
		Source: &dispatch.Source{Node: srv.tree.Self()},
		Params: []string{string(far.SID), "bye"},
		Via:    otherSock,
	}
	_, err = srv.handleSquit(ctx)
	if _, ok := err.(*dispatch.ProtocolException); !ok {
		t.Fatalf("handleSquit(non-adjacent) error = %v, want *dispatch.ProtocolException", err)
	}
}
