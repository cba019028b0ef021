package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/sandia-minimega/spanningtree/internal/ircd/control"
	"github.com/sandia-minimega/spanningtree/internal/ircd/dispatch"
	"github.com/sandia-minimega/spanningtree/internal/ircd/router"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// listenControl accepts operator console connections on a unix socket,
// one goroutine per connection like commandSocketStart/commandSocketHandle.
func (s *server) listenControl(path string) error {
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	ircdlog.Info("listening for operator console on %s", path)

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				ircdlog.Error("control accept: %v", err)
				continue
			}
			go s.handleControlConn(conn)
		}
	}()
	return nil
}

func (s *server) handleControlConn(c net.Conn) {
	defer c.Close()
	dec := json.NewDecoder(c)
	enc := json.NewEncoder(c)

	for {
		var req control.Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF {
				ircdlog.Debug("control: decode: %v", err)
			}
			return
		}
		out, err := s.runControl(req.Verb, req.Args)
		resp := control.Response{OK: err == nil, Output: out}
		if err != nil {
			resp.Err = err.Error()
		}
		if err := enc.Encode(&resp); err != nil {
			ircdlog.Debug("control: encode: %v", err)
			return
		}
	}
}

// runControl executes one §6 operator-facing command: CONNECT,
// RCONNECT, SQUIT, RSQUIT, MAP, LINKS.
func (s *server) runControl(verb string, args []string) (string, error) {
	switch strings.ToUpper(verb) {
	case "CONNECT":
		if len(args) < 1 {
			return "", fmt.Errorf("CONNECT requires a servermask")
		}
		return "", s.opConnect(args[0])
	case "RCONNECT":
		if len(args) < 2 {
			return "", fmt.Errorf("RCONNECT requires <remote> <target>")
		}
		return "", s.opRconnect(args[0], args[1])
	case "SQUIT":
		if len(args) < 1 {
			return "", fmt.Errorf("SQUIT requires a servermask")
		}
		reason := "Issued by operator"
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}
		return "", s.opSquit(args[0], reason)
	case "RSQUIT":
		if len(args) < 1 {
			return "", fmt.Errorf("RSQUIT requires a target")
		}
		reason := "Issued by operator"
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}
		return "", s.opRsquit(args[0], reason)
	case "MAP":
		return renderMap(s.tree, true), nil
	case "LINKS":
		return renderLinks(s.tree, true), nil
	default:
		return "", fmt.Errorf("unknown command %q", verb)
	}
}

// opConnect matches servermask against configured link block names
// (exact match; servermask globbing is out of scope here the same way
// channel-mask globbing is for the client dispatcher) and dials it.
func (s *server) opConnect(servermask string) error {
	return s.dialOutbound(servermask)
}

// opRconnect asks remote to connect out to target. If remote is this
// server, it's a local CONNECT; otherwise the request is routed over
// the tree as an RCONNECT verb for the named server to execute.
func (s *server) opRconnect(remote, target string) error {
	if remote == s.tree.Self().Name || remote == string(s.tree.Self().SID) {
		return s.dialOutbound(target)
	}
	node := s.tree.FindByName(remote)
	if node == nil {
		return fmt.Errorf("no such server %q", remote)
	}
	s.router.Route(router.Descriptor{Kind: router.Unicast, Target: string(node.SID)},
		string(s.tree.Self().SID), "RCONNECT", []string{target}, nil)
	return nil
}

// opSquit tears down every server matching servermask (tree.FindByMask
// gives this the same glob semantics as §4.4's find_by_mask). Adjacent
// matches are torn down directly; non-adjacent ones are asked via the
// same Unicast routing a forwarded SQUIT already uses (router.Route
// walks toward the target regardless of how many hops away it is).
func (s *server) opSquit(servermask, reason string) error {
	matches := s.tree.FindByMask(servermask)
	if len(matches) == 0 {
		return fmt.Errorf("no server matches %q", servermask)
	}
	var errs []string
	for _, target := range matches {
		if target == s.tree.Self() {
			errs = append(errs, "cannot SQUIT the local server")
			continue
		}
		if target.UplinkSocket != nil {
			if err := s.netsplit.Squit(target.SID, reason); err != nil {
				errs = append(errs, err.Error())
			}
			continue
		}
		s.router.Route(router.Descriptor{Kind: router.Unicast, Target: string(target.SID)},
			string(s.tree.Self().SID), "SQUIT", []string{string(target.SID), reason}, nil)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// opRsquit always routes, even when target is adjacent, matching the
// operator-facing "remote SQUIT" verb's own semantics (spec §6):
// the request travels to whichever server holds the physical link.
func (s *server) opRsquit(target, reason string) error {
	node := s.tree.FindByName(target)
	if node == nil {
		return fmt.Errorf("no such server %q", target)
	}
	if node == s.tree.Self() {
		return fmt.Errorf("cannot RSQUIT the local server")
	}
	s.router.Route(router.Descriptor{Kind: router.Unicast, Target: string(node.SID)},
		string(s.tree.Self().SID), "SQUIT", []string{string(node.SID), reason}, nil)
	return nil
}

// handleRconnect is the wire side of opRconnect: the named server, on
// receiving RCONNECT <target>, dials target itself.
func (s *server) handleRconnect(ctx *dispatch.Context) (router.Descriptor, error) {
	if len(ctx.Params) < 1 {
		return router.Descriptor{}, &dispatch.ProtocolException{Reason: "malformed RCONNECT"}
	}
	if err := s.dialOutbound(ctx.Params[0]); err != nil {
		ircdlog.Warn("RCONNECT %s: %v", ctx.Params[0], err)
	}
	return router.Descriptor{Kind: router.Local}, nil
}
