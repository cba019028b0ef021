package burst

import (
	"testing"
	"time"

	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
)

func TestCheckSkew(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	cases := []struct {
		name string
		peer int64
		want ClockSkewResult
	}{
		{"in sync", now.Unix(), SkewOK},
		{"warn boundary", now.Unix() - 31, SkewWarn},
		{"fatal boundary", now.Unix() - 601, SkewFatal},
		{"fatal in the future", now.Unix() + 700, SkewFatal},
	}
	for _, c := range cases {
		if got := CheckSkew(c.peer, now); got != c.want {
			t.Errorf("%s: CheckSkew = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSuppressNotification(t *testing.T) {
	n := &tree.Node{BehindBursting: 1}
	e := &Engine{QuietBursts: true}
	if !e.SuppressNotification(n) {
		t.Error("expected suppression while QuietBursts and node is bursting")
	}

	e.QuietBursts = false
	if e.SuppressNotification(n) {
		t.Error("expected no suppression when QuietBursts is off")
	}

	e.QuietBursts = true
	n.BehindBursting = 0
	if e.SuppressNotification(n) {
		t.Error("expected no suppression once bursting has ended")
	}
}

func TestParseLegacySINFO(t *testing.T) {
	out, ok := ParseLegacySINFO("fullversion", "1.2-abcdef custom build")
	if !ok {
		t.Fatal("expected fullversion to parse")
	}
	if out.RawVersion != "1.2-abcdef" || out.CustomVersion != "custom build" {
		t.Errorf("got %+v", out)
	}

	out, ok = ParseLegacySINFO("version", "1.2-abcdef")
	if !ok || out.RawVersion != "1.2-abcdef" {
		t.Errorf("version form: got %+v, ok=%v", out, ok)
	}

	if _, ok := ParseLegacySINFO("unknownfield", "x"); ok {
		t.Error("unrecognized field should not parse")
	}
}

func TestOnPongImpliesEndburstClearsBehindBursting(t *testing.T) {
	n := &tree.Node{Name: "b.example.net", BehindBursting: 2}
	OnPongImpliesEndburst(n)
	if n.BehindBursting != 0 {
		t.Errorf("BehindBursting = %d, want 0", n.BehindBursting)
	}
	// nil and already-zero should be no-ops, not panics.
	OnPongImpliesEndburst(nil)
	OnPongImpliesEndburst(&tree.Node{})
}
