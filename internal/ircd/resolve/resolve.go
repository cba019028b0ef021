// Package resolve implements the §6 "DNS resolver" collaborator:
// forward/reverse lookups that complete asynchronously, plus the
// AllowMask CIDR check the link handshake uses for allowmask
// enforcement. AllowMask issues no DNS query, and nothing in this
// module calls Forward or Reverse.
//
// Grounded on the teacher's own protonuke/dns.go, which is the one
// place in the corpus that imports github.com/miekg/dns directly
// (dns.Exchange, dns.Msg, dns.TypeA/TypeAAAA), and on meshage's
// send-result-on-a-channel idiom (meshage's per-client ack channel)
// generalized here into a single Resolver that starts one goroutine per
// query and reports its Result on a channel; DNS lookups here are
// occasional, not per-message.
package resolve

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// Result is delivered on the channel returned by Forward/Reverse.
type Result struct {
	Names []string // Reverse: PTR names; Forward: A/AAAA addresses as strings
	Err   error
}

// Resolver issues DNS queries against a configured server using
// miekg/dns directly (spec §5: "any operation that would block...
// returns control and re-arms interest" — queries run on a
// goroutine and report back over a channel rather than blocking the
// caller).
type Resolver struct {
	Server  string // "host:port", e.g. "8.8.8.8:53"
	Timeout time.Duration
}

// New creates a Resolver. A zero Timeout defaults to 3 seconds.
func New(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{Server: server, Timeout: timeout}
}

// Forward resolves name to its A/AAAA records asynchronously.
func (r *Resolver) Forward(ctx context.Context, name string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(name), dns.TypeA)
		in, _, err := r.exchange(ctx, m)
		if err != nil {
			out <- Result{Err: err}
			return
		}
		var names []string
		for _, rr := range in.Answer {
			if a, ok := rr.(*dns.A); ok {
				names = append(names, a.A.String())
			}
		}
		out <- Result{Names: names}
	}()
	return out
}

// Reverse resolves ip to its PTR names asynchronously.
func (r *Resolver) Reverse(ctx context.Context, ip string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		arpa, err := dns.ReverseAddr(ip)
		if err != nil {
			out <- Result{Err: err}
			return
		}
		m := new(dns.Msg)
		m.SetQuestion(arpa, dns.TypePTR)
		in, _, err := r.exchange(ctx, m)
		if err != nil {
			out <- Result{Err: err}
			return
		}
		var names []string
		for _, rr := range in.Answer {
			if p, ok := rr.(*dns.PTR); ok {
				names = append(names, p.Ptr)
			}
		}
		out <- Result{Names: names}
	}()
	return out
}

func (r *Resolver) exchange(ctx context.Context, m *dns.Msg) (*dns.Msg, time.Duration, error) {
	c := &dns.Client{Timeout: r.Timeout, Net: "udp"}
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		c.Timeout = time.Until(deadline)
	}
	in, rtt, err := c.ExchangeContext(ctx, m, r.Server)
	if err != nil {
		ircdlog.Debug("resolve: query to %s failed: %v", r.Server, err)
		return nil, 0, fmt.Errorf("resolve: %w", err)
	}
	return in, rtt, nil
}

// AllowMask is the §6 link-block CIDR check: does addr fall within
// one of the comma-separated CIDR ranges configured for a link.
func AllowMask(mask string, addr net.IP) bool {
	if mask == "" {
		return true
	}
	for _, cidr := range splitMask(mask) {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(addr) {
			return true
		}
	}
	return false
}

func splitMask(mask string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(mask); i++ {
		if i == len(mask) || mask[i] == ',' {
			if i > start {
				out = append(out, strings.TrimSpace(mask[start:i]))
			}
			start = i + 1
		}
	}
	return out
}
