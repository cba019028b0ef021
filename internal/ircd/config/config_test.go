package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ircd.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadParsesLinkBlock(t *testing.T) {
	path := writeTemp(t, `
[[link]]
name = "hub.example.net"
ipaddr = "10.0.0.1"
port = 7000
sendpass = "foo"
recvpass = "bar"

[autoconnect]
period = 30
server = "hub.example.net leaf.example.net"

[spanningtree]
hidesplits = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Link) != 1 || cfg.Link[0].Name != "hub.example.net" {
		t.Fatalf("link block not decoded: %+v", cfg.Link)
	}
	if cfg.Link[0].Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Link[0].Port)
	}
	if cfg.Autoconnect.Period != 30 {
		t.Errorf("autoconnect.period = %d, want 30", cfg.Autoconnect.Period)
	}
	if !cfg.SpanningTree.HideSplits {
		t.Error("expected hidesplits = true")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, `
[[link]]
name = "hub.example.net"
ipaddr = "10.0.0.1"
port = 7000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Autoconnect.Period != 60 {
		t.Errorf("expected default autoconnect period 60, got %d", cfg.Autoconnect.Period)
	}
	if cfg.SpanningTree.ServerPingFreq != 60 {
		t.Errorf("expected default serverpingfreq 60, got %d", cfg.SpanningTree.ServerPingFreq)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeTemp(t, `
[[link]]
name = "hub.example.net"
ipaddr = "10.0.0.1"
port = 0
`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for port 0")
	}
}

func TestLoadRejectsNonPositiveAutoconnectPeriod(t *testing.T) {
	path := writeTemp(t, `
[autoconnect]
period = 0
`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for non-positive autoconnect period")
	}
}
