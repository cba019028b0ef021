package router

import (
	"testing"

	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
)

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

func TestBroadcastExcludesOrigin(t *testing.T) {
	tr := tree.New("a.example.net", "001", "A")
	bSock := &recordSocket{id: "b"}
	cSock := &recordSocket{id: "c"}
	tr.AddChild(tr.Self(), "b.example.net", "002", "B", bSock)
	tr.AddChild(tr.Self(), "c.example.net", "003", "C", cSock)

	r := &Router{Tree: tr}
	r.Route(Descriptor{Kind: Broadcast}, "001", "SQUIT", []string{"004"}, bSock)

	if len(bSock.sent) != 0 {
		t.Errorf("origin socket b received %d lines, want 0", len(bSock.sent))
	}
	if len(cSock.sent) != 1 {
		t.Fatalf("socket c received %d lines, want 1", len(cSock.sent))
	}
}

func TestUnicastRoutesToBestHop(t *testing.T) {
	tr := tree.New("a.example.net", "001", "A")
	bSock := &recordSocket{id: "b"}
	tr.AddChild(tr.Self(), "b.example.net", "002", "B", bSock)
	c, _ := tr.AddChild(tr.FindByName("b.example.net"), "c.example.net", "003", "C", nil)

	r := &Router{Tree: tr}
	r.Route(Descriptor{Kind: Unicast, Target: string(c.SID)}, "001", "KILL", []string{string(c.SID), "bye"}, nil)

	if len(bSock.sent) != 1 {
		t.Fatalf("expected KILL to route through b (next hop to c), got %d lines", len(bSock.sent))
	}
}

func TestDirectionCheckRejectsSpoofedSource(t *testing.T) {
	tr := tree.New("a.example.net", "001", "A")
	bSock := &recordSocket{id: "b"}
	cSock := &recordSocket{id: "c"}
	tr.AddChild(tr.Self(), "b.example.net", "002", "B", bSock)
	c, _ := tr.AddChild(tr.Self(), "c.example.net", "003", "C", cSock)

	if DirectionCheck(tr, c, bSock) {
		t.Error("expected direction check to reject c's traffic arriving via b's socket")
	}
	if !DirectionCheck(tr, c, cSock) {
		t.Error("expected direction check to accept c's traffic arriving via c's own socket")
	}
}
