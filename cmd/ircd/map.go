package main

import (
	"fmt"
	"strings"

	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
)

// renderMap walks the tree depth-first and renders an indented ASCII
// map with per-hop RTT annotations, the shape ShowMap produces in
// m_spanningtree/override_map.cpp. Hidden servers are omitted unless
// showHidden is set (operator view).
func renderMap(t *tree.Tree, showHidden bool) string {
	var b strings.Builder
	var walk func(n *tree.Node, depth int)
	walk = func(n *tree.Node, depth int) {
		if n.Hidden && !showHidden {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.Name)
		if depth > 0 {
			fmt.Fprintf(&b, " [%dms]", n.LastRTTMS)
		}
		b.WriteByte('\n')
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Self(), 0)
	return b.String()
}

// renderLinks is the flat name/SID/description listing LINKS produces.
func renderLinks(t *tree.Tree, showHidden bool) string {
	var b strings.Builder
	for _, n := range t.DFS() {
		if n.Hidden && !showHidden {
			continue
		}
		fmt.Fprintf(&b, "%s %s :%s\n", n.Name, n.SID, n.Desc)
	}
	return b.String()
}
