package burst

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/metrics"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircd/xline"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// maxClockSkew/warnClockSkew are the §4.5 step 1 thresholds.
const (
	maxClockSkew  = 600 * time.Second
	warnClockSkew = 30 * time.Second
)

// Sender is the minimal write surface the Engine needs from a link
// socket, kept as an interface to avoid importing the link package
// (which would create link -> tree -> burst -> link cycle risk; burst
// only ever needs to write lines to whichever socket is bursting).
type Sender interface {
	WriteLine(line string) error
	LinkID() string
}

// Engine runs the netburst sequence for one link.
type Engine struct {
	Tree     *tree.Tree
	XLines   *xline.Registry
	State    StateProvider
	QuietBursts bool
}

// ClockSkewResult reports the outcome of comparing a peer's BURST
// timestamp to ours.
type ClockSkewResult int

const (
	SkewOK ClockSkewResult = iota
	SkewWarn
	SkewFatal
)

// CheckSkew implements spec §4.5 step 1: ">600s aborts the link; >30s
// warns."
func CheckSkew(peerWallSeconds int64, now time.Time) ClockSkewResult {
	diff := now.Unix() - peerWallSeconds
	if diff < 0 {
		diff = -diff
	}
	d := time.Duration(diff) * time.Second
	switch {
	case d > maxClockSkew:
		return SkewFatal
	case d > warnClockSkew:
		return SkewWarn
	default:
		return SkewOK
	}
}

// Run sends the full burst sequence to peerSocket — the direct peer
// being bursted to — per spec §4.5 steps 1-6. skipNode is peerSocket's
// own tree.Node (servers DFS skips the direct peer being bursted to).
func (e *Engine) Run(peerSocket Sender, skipNode *tree.Node, now time.Time) error {
	start := time.Now()
	defer func() {
		metrics.BurstDuration.WithLabelValues(peerSocket.LinkID()).Observe(time.Since(start).Seconds())
	}()

	if err := peerSocket.WriteLine(fmt.Sprintf("BURST %d", now.Unix())); err != nil {
		return err
	}

	for _, n := range e.Tree.DFS() {
		if n == skipNode {
			continue
		}
		if n.CustomVersion != "" || n.BranchString != "" || n.VersionString != "" {
			peerSocket.WriteLine(fmt.Sprintf("SINFO %s custom-version :%s", n.SID, n.CustomVersion))
			peerSocket.WriteLine(fmt.Sprintf("SINFO %s rawbranch :%s", n.SID, n.BranchString))
			peerSocket.WriteLine(fmt.Sprintf("SINFO %s rawversion :%s", n.SID, n.VersionString))
		}
		hidden := 0
		if n.Hidden {
			hidden = 1
		}
		peerSocket.WriteLine(fmt.Sprintf("SERVER %s %s burst=%d hidden=%d :%s",
			n.Name, n.SID, n.BurstStartMS, hidden, n.Desc))
	}

	if e.State != nil {
		for _, u := range e.State.LocalUsers() {
			e.burstUser(peerSocket, u)
		}
		for _, c := range e.State.LocalChannels() {
			e.burstChannel(peerSocket, c)
		}
	}

	for _, l := range e.XLines.BurstSet(ids.TS(now.Unix())) {
		peerSocket.WriteLine(fmt.Sprintf("ADDLINE %c %s %s %d %d :%s",
			l.Type, l.Mask, l.Setter, l.SetTime, l.Duration, l.Reason))
	}

	return peerSocket.WriteLine("ENDBURST")
}

func (e *Engine) burstUser(s Sender, u *User) {
	s.WriteLine(fmt.Sprintf("UID %s %d %s %s %s %s %s %d +%s :%s",
		u.UUID, u.NickTS, u.Nick, u.Host, u.DisplayHost, u.Ident, u.IP, u.SignonTS, u.Modes, u.RealName))

	if u.Opered {
		tags := fmt.Sprintf("@~name=%s;~chanmodes=%s;~usermodes=%s;~snomasks=%s;~commands=%s;~privileges=%s",
			u.OperName, u.OperChanModes, u.OperUserModes, u.OperSnomasks, u.OperCommands, u.OperPrivileges)
		s.WriteLine(fmt.Sprintf("%s :%s OPERTYPE %s", tags, u.UUID, u.OperName))
	}
	if u.Away {
		s.WriteLine(fmt.Sprintf(":%s AWAY %d :%s", u.UUID, u.AwayTS, u.AwayMsg))
	}
	for k, v := range u.Metadata {
		s.WriteLine(fmt.Sprintf(":%s METADATA %s %s :%s", u.UUID, u.UUID, k, v))
	}
}

func (e *Engine) burstChannel(s Sender, c *Channel) {
	var members []string
	for _, m := range c.Members {
		members = append(members, fmt.Sprintf("%s,%s", m.Prefixes, m.UUID))
	}

	params := append([]string{c.Name, fmt.Sprintf("%d", c.TS), "+" + c.Modes}, c.ModeParams...)
	line := strings.Join(params, " ") + " :" + strings.Join(members, " ")
	s.WriteLine("FJOIN " + line)

	if c.TopicSet {
		s.WriteLine(fmt.Sprintf("FTOPIC %s %d %s :%s", c.Name, c.TopicTS, c.TopicSetter, c.Topic))
	}
	for letter, limit := range c.ListModeLimits {
		s.WriteLine(fmt.Sprintf("LMODE %s %c LIMIT %d", c.Name, letter, limit))
	}
	for letter, entries := range c.ListModeEntries {
		for _, entry := range entries {
			s.WriteLine(fmt.Sprintf("LMODE %s %c %s", c.Name, letter, entry))
		}
	}
	for k, v := range c.Metadata {
		s.WriteLine(fmt.Sprintf("METADATA %s %s :%s", c.Name, k, v))
	}
	for uuid, md := range c.MemberMetadata {
		for k, v := range md {
			s.WriteLine(fmt.Sprintf("METADATA %s:%s %s :%s", c.Name, uuid, k, v))
		}
	}
}

// SuppressNotification implements §4.5's quiet-burst rule: while
// node.BehindBursting > 0 and QuietBursts is enabled, oper-facing
// notifications (nick introductions, opering) are suppressed.
func (e *Engine) SuppressNotification(n *tree.Node) bool {
	return e.QuietBursts && n != nil && n.BehindBursting > 0
}

// SINFOLegacy recovers rawversion/rawbranch/customversion from the
// deprecated "SINFO fullversion"/"SINFO version" forms (spec §9:
// "legacy-protocol quirks").
type SINFOLegacy struct {
	RawVersion    string
	RawBranch     string
	CustomVersion string
}

// ParseLegacySINFO splits a pre-split SINFO payload. field is "version"
// or "fullversion"; value is everything after it.
func ParseLegacySINFO(field, value string) (SINFOLegacy, bool) {
	switch field {
	case "fullversion":
		// historical format: "<rawversion> [<custom-version>]"
		parts := strings.SplitN(value, " ", 2)
		out := SINFOLegacy{RawVersion: parts[0]}
		if len(parts) == 2 {
			out.CustomVersion = parts[1]
		}
		return out, true
	case "version":
		return SINFOLegacy{RawVersion: value}, true
	default:
		return SINFOLegacy{}, false
	}
}

// OnPongImpliesEndburst implements the §9 Open Question: a mid-burst
// PONG is tolerated as an implicit ENDBURST for legacy-peer
// compatibility, but always logged, never silently assumed complete.
func OnPongImpliesEndburst(n *tree.Node) {
	if n == nil || n.BehindBursting == 0 {
		return
	}
	ircdlog.Warn("server %s: inferring ENDBURST from PONG received mid-burst (legacy peer compatibility)", n.Name)
	n.BehindBursting = 0
}
