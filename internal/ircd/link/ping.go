package link

import (
	"fmt"
	"time"

	"github.com/sandia-minimega/spanningtree/internal/ircd/metrics"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// PingPolicy carries the spanningtree-level ping tuning (spec §6:
// serverpingfreq, pingwarning).
type PingPolicy struct {
	PingFreq     time.Duration
	PingWarnTime time.Duration
}

var defaultPolicy = PingPolicy{
	PingFreq:     60 * time.Second,
	PingWarnTime: 15 * time.Second,
}

// armPing starts the §4.2 ping cycle once state == Connected: send
// PING, arm a warn timer at PingWarnTime, and a timeout at PingFreq
// unless PONG arrives first.
func (s *Socket) armPing() {
	policy := s.policy()

	s.mu.Lock()
	s.pingSent = time.Time{}
	s.mu.Unlock()

	if s.pingTimer != nil {
		s.pingTimer.Stop()
	}
	s.pingTimer = time.AfterFunc(policy.PingFreq, s.pingCycle)
}

func (s *Socket) policy() PingPolicy {
	return defaultPolicy
}

func (s *Socket) pingCycle() {
	if s.State() != Connected {
		return
	}

	s.mu.Lock()
	s.pingSeq++
	s.pingSent = time.Now()
	s.mu.Unlock()

	selfSID := ""
	if s.Root != nil && s.Root.Parent != nil {
		selfSID = string(s.Root.Parent.SID)
	}
	_ = s.WriteLine(fmt.Sprintf("PING %s", selfSID))

	policy := s.policy()
	s.warnTimer = time.AfterFunc(policy.PingWarnTime, s.pingWarn)
	s.pingTimer = time.AfterFunc(policy.PingFreq, s.pingTimeout)
}

func (s *Socket) pingWarn() {
	if s.State() != Connected {
		return
	}
	s.mu.Lock()
	sent := s.pingSent
	s.mu.Unlock()
	if sent.IsZero() {
		return // PONG already arrived
	}
	ircdlog.Warn("link %s: no PONG after %v, latency warning", s.id, time.Since(sent))
}

func (s *Socket) pingTimeout() {
	if s.State() != Connected {
		return
	}
	s.mu.Lock()
	sent := s.pingSent
	s.mu.Unlock()
	if sent.IsZero() {
		return
	}
	s.Close("Ping timeout")
}

// OnPong records the RTT and restarts the cycle (spec §4.2). Returns
// the measured RTT in ms.
func (s *Socket) OnPong() int64 {
	s.mu.Lock()
	sent := s.pingSent
	s.pingSent = time.Time{}
	s.mu.Unlock()

	if s.warnTimer != nil {
		s.warnTimer.Stop()
	}
	if sent.IsZero() {
		return 0
	}
	elapsed := time.Since(sent)
	rtt := elapsed.Milliseconds()
	if s.Root != nil {
		s.Root.LastRTTMS = rtt
	}
	metrics.LinkRTT.WithLabelValues(s.id).Observe(elapsed.Seconds())
	s.armPing()
	return rtt
}
