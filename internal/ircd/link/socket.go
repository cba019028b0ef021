// Package link implements the per-peer connection described in spec
// §4.2: a TCP (optionally TLS-hooked) socket with a send queue, a
// receive buffer, a connect/handshake/connected/dying state machine,
// and a ping timer.
//
// Grounded on the teacher's meshage/client.go and meshage/node.go:
// the dial/accept split, the per-connection read goroutine (which here
// hands each line straight to the OnLine callback rather than to a
// shared pump channel), and the "close on decode error, clean up
// the client map" shutdown idiom are all carried over. What changes is
// the wire format (line-oriented text instead of gob) and the addition
// of the explicit five-state machine spec §4.2 requires in place of
// the teacher's implicit connected/not-connected distinction.
package link

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandia-minimega/spanningtree/internal/ircd/metrics"
	"github.com/sandia-minimega/spanningtree/internal/ircd/tree"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

var ageCounter int64

// Socket is one peer connection.
type Socket struct {
	conn   net.Conn
	hook   TLSHook
	Config *Config

	mu    sync.Mutex
	state State

	Scratch Scratch

	Send SendQueue
	recv *bufio.Reader

	Root *tree.Node // non-nil exactly when state == Connected

	id  string
	age int64

	pingSeq   int64
	pingSent  time.Time
	pingTimer *time.Timer
	warnTimer *time.Timer

	dying int32 // atomic bool

	// Callbacks, wired by the dispatcher/capab negotiator that owns
	// this socket. Kept as plain func fields (not an interface) to
	// match the teacher's preference for small closures over
	// listener interfaces in meshage's handshake code.
	OnLine  func(line string)
	OnError func(kind ErrorKind, err error)
	OnState func(old, new State)
}

// NewOutbound creates a socket that will dial cfg's endpoint.
func NewOutbound(cfg *Config, hook TLSHook) *Socket {
	return &Socket{
		Config: cfg,
		hook:   hook,
		state:  Connecting,
		id:     fmt.Sprintf("%s:%d", cfg.IPAddr, cfg.Port),
		age:    atomic.AddInt64(&ageCounter, 1),
	}
}

// NewInbound wraps an already-accepted connection. The socket starts
// in Connecting and stays there until Authenticated moves it to
// Connected; no code path puts an inbound socket in WaitAuth2.
func NewInbound(conn net.Conn, hook TLSHook) *Socket {
	return &Socket{
		conn:  conn,
		hook:  hook,
		state: Connecting,
		recv:  bufio.NewReader(conn),
		id:    conn.RemoteAddr().String(),
		age:   atomic.AddInt64(&ageCounter, 1),
	}
}

func (s *Socket) LinkID() string { return s.id }

func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Socket) setState(new State) {
	s.mu.Lock()
	old := s.state
	s.state = new
	s.mu.Unlock()
	if old != new {
		ircdlog.Debug("link %s: %s -> %s", s.id, old, new)
		if old == Connected {
			metrics.LinksUp.Dec()
		}
		if new == Connected {
			metrics.LinksUp.Inc()
		}
		if s.OnState != nil {
			s.OnState(old, new)
		}
	}
	if new == Connected {
		s.armPing()
	}
}

// Dial connects outbound to Config.IPAddr:Config.Port. On success it
// transitions Connecting -> WaitAuth1 and starts the read loop; Dial
// itself only establishes the transport, and the caller sends CAPAB
// START once it returns.
func (s *Socket) Dial() error {
	addr := fmt.Sprintf("%s:%d", s.Config.IPAddr, s.Config.Port)
	var d net.Dialer
	if s.Config.Bind != "" {
		local, err := net.ResolveTCPAddr("tcp", s.Config.Bind+":0")
		if err == nil {
			d.LocalAddr = local
		}
	}
	d.Timeout = s.Config.timeout()

	conn, err := d.Dial("tcp", addr)
	if err != nil {
		s.fail(ErrConnectRefused, err)
		return err
	}
	s.conn = conn
	s.recv = bufio.NewReader(conn)
	if s.hook != nil {
		if err := s.hook.OnConnect(s); err != nil {
			s.fail(ErrOther, err)
			return err
		}
	}
	s.setState(WaitAuth1)
	go s.readLoop()
	return nil
}

// Accept finalizes an inbound connection (optionally running the TLS
// hook's accept handshake) and starts the read loop. It does not change
// the state; the socket stays in Connecting until Authenticated.
func (s *Socket) Accept() error {
	if s.hook != nil {
		if err := s.hook.OnAccept(s); err != nil {
			s.fail(ErrOther, err)
			return err
		}
	}
	go s.readLoop()
	return nil
}

func (s *Socket) readLoop() {
	for {
		if s.State() == Dying {
			return
		}
		line, err := s.recv.ReadString('\n')
		if len(line) > 0 {
			trimmed := trimEOL(line)
			if trimmed != "" && s.OnLine != nil {
				s.OnLine(trimmed)
			}
		}
		if err != nil {
			s.fail(ErrDisconnect, err)
			return
		}
	}
}

func trimEOL(line string) string {
	n := len(line)
	for n > 0 && (line[n-1] == '\n' || line[n-1] == '\r') {
		n--
	}
	return line[:n]
}

// WriteLine enqueues and flushes a single line (spec: "direct write to
// one socket" send mode). Lines longer than the configured maximum
// are the caller's responsibility to have already rejected (§6 Wire
// protocol: 512 bytes excluding tags).
func (s *Socket) WriteLine(line string) error {
	if s.State() == Dying {
		return nil
	}
	buf := []byte(line + "\r\n")
	if s.hook != nil && s.hook.IsSSL(s) {
		_, _, err := s.hook.OnWrite(s, buf)
		if err != nil {
			s.fail(ErrWrite, err)
			return err
		}
		return nil
	}
	s.Send.PushBack(buf)
	return s.flush()
}

func (s *Socket) flush() error {
	for !s.Send.Empty() {
		buf := s.Send.Front()
		n, err := s.conn.Write(buf)
		if err != nil {
			s.fail(ErrWrite, err)
			return err
		}
		if n < len(buf) {
			s.Send.ErasePrefix(n)
			continue
		}
		s.Send.PopFront()
	}
	return nil
}

func (s *Socket) fail(kind ErrorKind, err error) {
	if !atomic.CompareAndSwapInt32(&s.dying, 0, 1) {
		return
	}
	s.setState(Dying)
	if s.pingTimer != nil {
		s.pingTimer.Stop()
	}
	if s.warnTimer != nil {
		s.warnTimer.Stop()
	}
	if s.OnError != nil {
		s.OnError(kind, err)
	}
}

// Close sends a final ERROR line and transitions to Dying (spec §7:
// "all fatal errors funnel to the single send_error_and_close path").
func (s *Socket) Close(reason string) {
	if atomic.LoadInt32(&s.dying) == 0 {
		_ = s.WriteLine("ERROR :" + reason)
	}
	s.fail(ErrDisconnect, fmt.Errorf(reason))
	if s.conn != nil {
		s.conn.Close()
	}
}

// Age returns the monotonic connection-order counter assigned at
// construction (spec §3 "age").
func (s *Socket) Age() int64 { return s.age }

// Authenticated transitions the socket to Connected once the
// handshake driver (CAPAB + SERVER exchange, owned outside this
// package per spec §6) has verified the peer's credential. Arms the
// ping cycle and fires OnState exactly like any other transition.
func (s *Socket) Authenticated() {
	s.setState(Connected)
}
