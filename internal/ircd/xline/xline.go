// Package xline implements the per-type indexed X-line (network ban)
// registry described in spec §3 and the conflict rule in §4.7.
// Grounded on original_source/modules/spanningtree/addline.cpp for the
// ADDLINE wire shape and lower-set-time-wins merge rule.
package xline

import (
	"strings"
	"sync"

	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
)

// Line is one network-wide ban record.
type Line struct {
	Type     byte   // e.g. 'G', 'Z', 'Q', 'E'
	Mask     string
	Setter   string
	SetTime  ids.TS
	Duration int64 // seconds, 0 = permanent
	Reason   string
}

// Expiry returns the absolute expiry TS, or 0 if permanent.
func (l *Line) Expiry() ids.TS {
	if l.Duration == 0 {
		return 0
	}
	return l.SetTime + ids.TS(l.Duration)
}

// Expired reports whether l has expired as of now.
func (l *Line) Expired(now ids.TS) bool {
	e := l.Expiry()
	return e != 0 && now >= e
}

// burstableTypes lists the X-line types replicated during netburst
// (spec §3: "Only types marked 'burstable' are replicated").
var burstableTypes = map[byte]bool{
	'G': true,
	'Z': true,
	'Q': true,
	'E': true,
	'K': false, // local kline, not propagated
}

// Burstable reports whether lines of typ are replicated over the mesh.
func Burstable(typ byte) bool {
	b, ok := burstableTypes[typ]
	return ok && b
}

// Registry is the process-wide X-line table, indexed by type then mask.
type Registry struct {
	mu    sync.Mutex
	lines map[byte]map[string]*Line
}

func NewRegistry() *Registry {
	return &Registry{lines: make(map[byte]map[string]*Line)}
}

// Add applies the §4.7 conflict rule: if an overlapping entry already
// exists, the one with the lower SetTime wins. Returns the line that
// is now in effect and whether incoming was stored (as a new entry or
// in place of an existing one).
func (r *Registry) Add(l *Line) (effective *Line, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byMask, ok := r.lines[l.Type]
	if !ok {
		byMask = make(map[string]*Line)
		r.lines[l.Type] = byMask
	}

	existing, ok := byMask[l.Mask]
	if !ok || l.SetTime < existing.SetTime {
		byMask[l.Mask] = l
		return l, true
	}
	return existing, false
}

// Del removes a line by type+mask (DELLINE).
func (r *Registry) Del(typ byte, mask string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	byMask, ok := r.lines[typ]
	if !ok {
		return false
	}
	if _, ok := byMask[mask]; !ok {
		return false
	}
	delete(byMask, mask)
	return true
}

// Match returns the first non-expired line of typ whose mask matches
// host (simple glob: '*' and '?').
func (r *Registry) Match(typ byte, host string, now ids.TS) *Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.lines[typ] {
		if l.Expired(now) {
			continue
		}
		if globMatch(l.Mask, host) {
			return l
		}
	}
	return nil
}

// BurstSet returns the set of lines that should be sent as ADDLINE
// during netburst: burstable types, not expired.
func (r *Registry) BurstSet(now ids.TS) []*Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Line
	for typ, byMask := range r.lines {
		if !Burstable(typ) {
			continue
		}
		for _, l := range byMask {
			if !l.Expired(now) {
				out = append(out, l)
			}
		}
	}
	return out
}

// globMatch implements the '*'/'?' glob matching used for host masks,
// mirroring the simple glob semantics spec §4.4 requires of
// find_by_mask.
func globMatch(pattern, s string) bool {
	return globMatchFold(strings.ToLower(pattern), strings.ToLower(s))
}

func globMatchFold(pattern, s string) bool {
	// classic recursive glob match; small inputs (hostmasks), recursion is fine.
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		if globMatchFold(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if globMatchFold(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if s == "" {
			return false
		}
		return globMatchFold(pattern[1:], s[1:])
	default:
		if s == "" || s[0] != pattern[0] {
			return false
		}
		return globMatchFold(pattern[1:], s[1:])
	}
}
