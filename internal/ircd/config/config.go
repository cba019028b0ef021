// Package config loads the spanning-tree subsystem's tag groups (spec
// §6): link blocks, autoconnect, services/uline, options, and the
// spanningtree-level booleans, from a TOML file, with flag-based
// overrides layered on top the way the teacher's `src/minimega/main.go`
// layers `-level`/`-port`/etc over defaults.
//
// Grounded on pack repo dedis-onet's app/config.go: a plain struct
// decoded in one shot via toml.DecodeFile, nested structs for
// repeated blocks ([[link]], [[uline]]), and no custom UnmarshalTOML
// hooks — BurntSushi/toml's struct-tag mapping is sufficient for this
// shape, same as dedis-onet's CothorityConfig.
package config

import (
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Link mirrors one `[[link]]` block.
type Link struct {
	Name        string
	IPAddr      string `toml:"ipaddr"`
	Port        int
	SendPass    string `toml:"sendpass"`
	RecvPass    string `toml:"recvpass"`
	Fingerprint string
	SSL         string
	Bind        string
	Timeout     int
	Hidden      bool
	StatsHidden bool   `toml:"statshidden"`
	AllowMask   string `toml:"allowmask"`
}

// Autoconnect mirrors the `[autoconnect]` block.
type Autoconnect struct {
	Period int
	Server string // space-separated failover list
}

// ULine mirrors one `[[uline]]` / `[[services]]` block.
type ULine struct {
	Server string
	Silent bool
}

// Options mirrors the `[options]` block. This tag group is explicitly
// open-ended ("cyclehostsfromuser, allowmismatch, etc."); toml.Decode
// silently ignores keys with no matching field rather than erroring,
// so an `[options]` block naming a future knob this struct hasn't
// grown yet doesn't fail config.Load.
type Options struct {
	CycleHostsFromUser bool `toml:"cyclehostsfromuser"`
	AllowMismatch      bool `toml:"allowmismatch"`
}

// SpanningTree mirrors the `[spanningtree]` block.
type SpanningTree struct {
	FlatLinks      bool `toml:"flatlinks"`
	HideSplits     bool `toml:"hidesplits"`
	HideServices   bool `toml:"hideservices"`
	AnnounceTS     bool `toml:"announcets"`
	PingWarning    int  `toml:"pingwarning"`
	ServerPingFreq int  `toml:"serverpingfreq"`
	QuietBursts    bool `toml:"quietbursts"`
}

// Config is the fully decoded tree of §6 tag groups.
type Config struct {
	Link         []Link
	Autoconnect  Autoconnect
	Services     []ULine
	ULine        []ULine
	Options      Options
	SpanningTree SpanningTree `toml:"spanningtree"`
}

// defaults matches the zero-value-isn't-quite-default fields the
// teacher's flag declarations carry (e.g. minimega's f_port default
// 8966) — spec doesn't mandate specific numbers beyond "> 0", so these
// are conservative IRC-network norms.
func defaults() Config {
	return Config{
		Autoconnect: Autoconnect{Period: 60},
		SpanningTree: SpanningTree{
			PingWarning:    15,
			ServerPingFreq: 60,
		},
	}
}

// Load decodes path into a Config seeded with defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the one hard numeric invariant spec §6 names
// explicitly: autoconnect period must be positive.
func (c *Config) Validate() error {
	if c.Autoconnect.Period <= 0 {
		return fmt.Errorf("config: autoconnect.period must be > 0, got %d", c.Autoconnect.Period)
	}
	for _, l := range c.Link {
		if l.Name == "" {
			return fmt.Errorf("config: link block missing name")
		}
		if l.Port <= 0 || l.Port > 65535 {
			return fmt.Errorf("config: link %q has invalid port %d", l.Name, l.Port)
		}
	}
	return nil
}

// Overrides are the flag-based knobs layered on top of the TOML file,
// matching the teacher's convention of small package-level flag vars
// parsed once at startup (see src/minimega/main.go's f_base, f_port).
// Logging itself is already flag-driven by internal/ircdlog
// (LevelFlag, Verbose, File) the same way minimega's f_loglevel/f_log/
// f_logfile are, so RegisterFlags only adds the one knob ircdlog
// doesn't: where to find this subsystem's TOML file.
type Overrides struct {
	ConfigPath *string
}

// RegisterFlags declares the override flags on fs (ordinarily
// flag.CommandLine), returning the pointers main() reads after
// fs.Parse().
func RegisterFlags(fs *flag.FlagSet) Overrides {
	return Overrides{
		ConfigPath: fs.String("config", "/etc/ircd/ircd.toml", "path to the spanning-tree config file"),
	}
}
