package link

import "time"

// Config is one configured link block (spec §6 "link" tag group).
type Config struct {
	Name        string
	IPAddr      string
	Port        int
	SendPass    string
	RecvPass    string
	Fingerprint []string // pinned TLS certificate fingerprints, optional
	SSLHook     string   // TLS hook name, optional
	Bind        string
	Timeout     time.Duration
	Hidden      bool
	StatsHidden bool
	AllowMask   []string // CIDR-permitted remote endpoints

	AutoConnectPeriod time.Duration
	AutoConnectServer []string // space-separated failover list, pre-split
}

// DefaultTimeout is the TCP connect timeout Dial uses when
// Config.Timeout is unset. It applies to outbound dials only: no
// timeout bounds inbound sockets or the CAPAB/SERVER exchange.
const DefaultTimeout = 30 * time.Second

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
