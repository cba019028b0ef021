package main

import (
	"strings"
	"testing"

	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
)

func buildSampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New("hub.example.net", "001", "hub")
	leaf1, err := tr.AddChild(tr.Self(), "leaf1.example.net", "002", "leaf one", nil)
	if err != nil {
		t.Fatalf("AddChild leaf1: %v", err)
	}
	leaf1.LastRTTMS = 12
	leaf2, err := tr.AddChild(tr.Self(), "leaf2.example.net", "003", "leaf two", nil)
	if err != nil {
		t.Fatalf("AddChild leaf2: %v", err)
	}
	leaf2.LastRTTMS = 34
	leaf2.Hidden = true
	return tr
}

func TestRenderMapIndentsByDepth(t *testing.T) {
	tr := buildSampleTree(t)

	out := renderMap(tr, true)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("renderMap lines = %d, want 3:\n%s", len(lines), out)
	}
	if lines[0] != "hub.example.net" {
		t.Errorf("root line = %q, want %q", lines[0], "hub.example.net")
	}
	if !strings.HasPrefix(lines[1], "  leaf1.example.net") {
		t.Errorf("leaf1 line = %q, want indented leaf1", lines[1])
	}
	if !strings.Contains(lines[1], "[12ms]") {
		t.Errorf("leaf1 line = %q, want RTT annotation", lines[1])
	}
}

func TestRenderMapHidesHiddenServersByDefault(t *testing.T) {
	tr := buildSampleTree(t)

	out := renderMap(tr, false)
	if strings.Contains(out, "leaf2.example.net") {
		t.Errorf("renderMap(showHidden=false) leaked hidden server:\n%s", out)
	}

	out = renderMap(tr, true)
	if !strings.Contains(out, "leaf2.example.net") {
		t.Errorf("renderMap(showHidden=true) dropped hidden server:\n%s", out)
	}
}

func TestRenderLinksListsAllVisibleServers(t *testing.T) {
	tr := buildSampleTree(t)

	out := renderLinks(tr, false)
	if !strings.Contains(out, "hub.example.net 001 :hub") {
		t.Errorf("renderLinks missing self entry:\n%s", out)
	}
	if !strings.Contains(out, "leaf1.example.net 002 :leaf one") {
		t.Errorf("renderLinks missing leaf1 entry:\n%s", out)
	}
	if strings.Contains(out, "leaf2.example.net") {
		t.Errorf("renderLinks(showHidden=false) leaked hidden server:\n%s", out)
	}

	out = renderLinks(tr, true)
	if !strings.Contains(out, "leaf2.example.net 003 :leaf two") {
		t.Errorf("renderLinks(showHidden=true) missing leaf2 entry:\n%s", out)
	}
}
