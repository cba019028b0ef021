package dispatch

import (
	"testing"

	"github.com/sandia-minimega/spanningtree/internal/ircd/router"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
)

type fakeSocket struct {
	id   string
	sent []string
}

func (s *fakeSocket) LinkID() string { return s.id }
func (s *fakeSocket) Close(string)   {}
func (s *fakeSocket) WriteLine(line string) error {
	s.sent = append(s.sent, line)
	return nil
}

func newFixture() (*tree.Tree, *fakeSocket, *Dispatcher) {
	tr := tree.New("a.example.net", "001", "A")
	bSock := &fakeSocket{id: "b"}
	tr.AddChild(tr.Self(), "b.example.net", "002", "B", bSock)
	r := &router.Router{Tree: tr}
	d := New(tr, nil, r)
	return tr, bSock, d
}

func TestDispatchUnresolvableSourceDropped(t *testing.T) {
	_, bSock, d := newFixture()
	var called bool
	d.Register("PING", Handler{Scope: Either, Func: func(ctx *Context) (router.Descriptor, error) {
		called = true
		return router.Descriptor{Kind: router.Local}, nil
	}})
	if err := d.Dispatch(":999 PING :hi", bSock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("handler should not run for an unresolvable source")
	}
}

func TestDispatchEmptySourceResolvesToDirectPeer(t *testing.T) {
	_, bSock, d := newFixture()
	var gotSource *Source
	d.Register("PING", Handler{Scope: Either, Func: func(ctx *Context) (router.Descriptor, error) {
		gotSource = ctx.Source
		return router.Descriptor{Kind: router.Local}, nil
	}})
	if err := d.Dispatch("PING :hi", bSock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSource == nil || gotSource.Node.SID != "002" {
		t.Fatalf("expected source resolved to node 002, got %+v", gotSource)
	}
}

func TestDispatchServerOnlyRejectsUserSource(t *testing.T) {
	tr, bSock, d := newFixture()
	d.Register("SQUIT", Handler{Scope: ServerOnly, Func: func(ctx *Context) (router.Descriptor, error) {
		return router.Descriptor{Kind: router.Local}, nil
	}})

	// fabricate a user-sourced line: source is a UUID under node 002.
	_ = tr
	err := d.Dispatch(":002AAAAAA SQUIT :bye", bSock)
	pe, ok := err.(*ProtocolException)
	if !ok {
		t.Fatalf("expected *ProtocolException, got %v (%T)", err, err)
	}
	_ = pe
}

func TestDispatchDirectionCheckRejectsWrongLink(t *testing.T) {
	tr, bSock, d := newFixture()
	cSock := &fakeSocket{id: "c"}
	tr.AddChild(tr.Self(), "c.example.net", "003", "C", cSock)

	d.Register("PING", Handler{Scope: Either, Func: func(ctx *Context) (router.Descriptor, error) {
		return router.Descriptor{Kind: router.Local}, nil
	}})

	// "003" (c) traffic arriving on b's socket must be rejected.
	err := d.Dispatch(":003 PING :hi", bSock)
	if _, ok := err.(*ProtocolException); !ok {
		t.Fatalf("expected *ProtocolException for cross-link spoof, got %v", err)
	}
}

func TestDispatchUnknownVerbDroppedNotFatal(t *testing.T) {
	_, bSock, d := newFixture()
	if err := d.Dispatch(":002 BOGUSVERB a b", bSock); err != nil {
		t.Fatalf("unknown verb should be dropped, not fatal: %v", err)
	}
}

func TestDispatchRoutesOnHandlerSuccess(t *testing.T) {
	tr, bSock, d := newFixture()
	cSock := &fakeSocket{id: "c"}
	tr.AddChild(tr.Self(), "c.example.net", "003", "C", cSock)

	d.Register("SQUIT", Handler{Scope: ServerOnly, Func: func(ctx *Context) (router.Descriptor, error) {
		return router.Descriptor{Kind: router.Broadcast}, nil
	}})

	if err := d.Dispatch(":002 SQUIT 003 :bye", bSock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cSock.sent) != 1 {
		t.Fatalf("expected SQUIT broadcast to reach c, got %d lines", len(cSock.sent))
	}
	if len(bSock.sent) != 0 {
		t.Errorf("origin socket b should not receive its own broadcast back, got %d lines", len(bSock.sent))
	}
}

func TestEncapLocalExecutesAndBroadcasts(t *testing.T) {
	tr, bSock, d := newFixture()
	cSock := &fakeSocket{id: "c"}
	tr.AddChild(tr.Self(), "c.example.net", "003", "C", cSock)

	var executed bool
	d.Register("ADDLINE", Handler{Scope: ServerOnly, Func: func(ctx *Context) (router.Descriptor, error) {
		executed = true
		return router.Descriptor{Kind: router.Local}, nil
	}})

	if err := d.Dispatch(":002 ENCAP * ADDLINE G *@bad.example 2000 :banned", bSock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !executed {
		t.Error("expected wildcard-targeted ENCAP to execute the inner verb locally")
	}
	if len(cSock.sent) != 1 {
		t.Fatalf("expected ENCAP * to forward to other peers, got %d lines to c", len(cSock.sent))
	}
}

func TestEncapTargetedElsewhereDoesNotExecuteLocally(t *testing.T) {
	tr, bSock, d := newFixture()
	cSock := &fakeSocket{id: "c"}
	tr.AddChild(tr.Self(), "c.example.net", "003", "C", cSock)

	var executed bool
	d.Register("ADDLINE", Handler{Scope: ServerOnly, Func: func(ctx *Context) (router.Descriptor, error) {
		executed = true
		return router.Descriptor{Kind: router.Local}, nil
	}})

	if err := d.Dispatch(":002 ENCAP 003 ADDLINE G *@bad.example 2000 :banned", bSock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if executed {
		t.Error("ENCAP targeted at another server must not execute locally")
	}
	if len(cSock.sent) != 1 {
		t.Fatalf("expected ENCAP routed toward c, got %d lines", len(cSock.sent))
	}
}
