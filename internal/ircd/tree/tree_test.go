package tree

import "testing"

func TestAddChildRouteNextHop(t *testing.T) {
	tr := New("a.example.net", "001", "A")

	b, err := tr.AddChild(tr.Self(), "b.example.net", "002", "B", fakeSocket{"b"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.BestRouteTo(b) != b {
		t.Errorf("BestRouteTo(b) = %v, want b itself (direct child)", tr.BestRouteTo(b))
	}

	c, err := tr.AddChild(b, "c.example.net", "003", "C", nil)
	if err != nil {
		t.Fatal(err)
	}
	if tr.BestRouteTo(c) != b {
		t.Errorf("BestRouteTo(c) = %v, want b (next hop for grandchild)", tr.BestRouteTo(c))
	}

	if errs := tr.CheckInvariants(); len(errs) != 0 {
		t.Fatalf("CheckInvariants: %v", errs)
	}
}

func TestAddChildDuplicateRejected(t *testing.T) {
	tr := New("a.example.net", "001", "A")
	if _, err := tr.AddChild(tr.Self(), "b.example.net", "002", "B", fakeSocket{"b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddChild(tr.Self(), "b.example.net", "003", "dup name", fakeSocket{"b2"}); err == nil {
		t.Error("expected duplicate name to be rejected")
	}
	if _, err := tr.AddChild(tr.Self(), "c.example.net", "002", "dup sid", fakeSocket{"c"}); err == nil {
		t.Error("expected duplicate SID to be rejected")
	}
}

func TestFindByMask(t *testing.T) {
	tr := New("a.example.net", "001", "A")
	tr.AddChild(tr.Self(), "hub.example.net", "002", "hub", fakeSocket{"hub"})
	tr.AddChild(tr.Self(), "leaf.other.net", "003", "leaf", fakeSocket{"leaf"})

	got := tr.FindByMask("*.example.net")
	if len(got) != 2 {
		t.Fatalf("FindByMask(*.example.net) = %d nodes, want 2", len(got))
	}
}

type fakeSocket struct{ id string }

func (f fakeSocket) LinkID() string            { return f.id }
func (f fakeSocket) Close(string)              {}
func (f fakeSocket) WriteLine(string) error    { return nil }
