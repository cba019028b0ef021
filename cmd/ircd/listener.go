package main

import (
	"net"
	"time"

	"github.com/sandia-minimega/spanningtree/internal/ircd/link"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// listen accepts inbound peer connections on addr, handing each to a
// fresh handshake the way the teacher's commandSocketStart accepts and
// spawns commandSocketHandle per connection (src/minimega/command_socket.go).
func (s *server) listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ircdlog.Info("listening for peer links on %s", addr)

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				ircdlog.Error("accept: %v", err)
				continue
			}
			sock := link.NewInbound(conn, nil)
			hs := &handshake{srv: s, sock: sock, local: s.local, outbound: false}
			hs.run()
			if err := sock.Accept(); err != nil {
				ircdlog.Warn("accept handshake failed: %v", err)
			}
		}
	}()
	return nil
}

// autoconnect dials, every Autoconnect.Period seconds, each configured
// link block whose name is not currently in the tree. It does not read
// the autoconnect failover server list: every missing link is dialed
// on every tick.
func (s *server) autoconnect() {
	period := time.Duration(s.cfg.Autoconnect.Period) * time.Second
	if period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	go func() {
		for range ticker.C {
			for name := range s.linkConfigs {
				if s.tree.FindByName(name) != nil {
					continue // already linked
				}
				if err := s.dialOutbound(name); err != nil {
					ircdlog.Debug("autoconnect %s: %v", name, err)
				}
			}
		}
	}()
}
