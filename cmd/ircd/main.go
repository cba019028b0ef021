package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandia-minimega/spanningtree/internal/ircd/config"
	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
	"github.com/sandia-minimega/spanningtree/internal/ircd/link"
	"github.com/sandia-minimega/spanningtree/internal/ircd/resolve"
	"github.com/sandia-minimega/spanningtree/internal/ircdlog"
)

// Flags that sit outside the TOML file because they describe this
// process's own identity and listening surface rather than network
// policy, the same split the teacher draws between main.go's f_port/
// f_base (process-local) and the mesh's discovered peer state.
var (
	fName      = flag.String("name", "", "this server's name (required)")
	fSID       = flag.String("sid", "", "this server's 3-character SID (required)")
	fDesc      = flag.String("description", "spanning-tree server", "this server's public description")
	fListen    = flag.String("listen", ":7029", "address to accept peer links on")
	fControl   = flag.String("control", "/tmp/ircd.sock", "unix socket path for the operator console")
	fMetrics   = flag.String("metrics", "", "address to serve Prometheus metrics on, empty disables")
	fResolver  = flag.String("resolver", "", "DNS server (host:port) for the resolver collaborator, empty disables")
)

var banner = `ircd spanning-tree daemon
`

func usage() {
	fmt.Println(banner)
	fmt.Println("usage: ircd [options]")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	ircdlog.Init()

	if *fName == "" || *fSID == "" {
		ircdlog.Fatal("-name and -sid are required")
	}
	if err := ids.ValidServerName(*fName); err != nil {
		ircdlog.Fatal("invalid -name: %v", err)
	}
	if !ids.ValidSID(ids.SID(*fSID)) {
		ircdlog.Fatal("invalid -sid: must be 3 characters, digit then 2 alnum")
	}

	cfg, err := config.Load(*overrides.ConfigPath)
	if err != nil {
		ircdlog.Fatal("%v", err)
	}

	srv := newServer(cfg, *fName, ids.SID(*fSID), *fDesc)

	if *fResolver != "" {
		srv.resolver = resolve.New(*fResolver, 0)
	}

	for _, l := range cfg.Link {
		srv.linkConfigs[l.Name] = linkConfigFromTOML(l)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		ircdlog.Info("caught signal, tearing down")
		os.Exit(0)
	}()

	if err := srv.listen(*fListen); err != nil {
		ircdlog.Fatal("%v", err)
	}
	if err := srv.listenControl(*fControl); err != nil {
		ircdlog.Fatal("%v", err)
	}
	srv.autoconnect()

	if *fMetrics != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			ircdlog.Info("serving metrics on %s", *fMetrics)
			if err := http.ListenAndServe(*fMetrics, mux); err != nil {
				ircdlog.Error("metrics server: %v", err)
			}
		}()
	}

	fmt.Println(banner)
	select {}
}

// linkConfigFromTOML adapts one decoded [[link]] block into the
// link.Config shape the link/handshake packages consume: splitting
// the comma-joined Fingerprint/AllowMask strings and converting the
// Timeout seconds field to a time.Duration.
func linkConfigFromTOML(l config.Link) link.Config {
	lc := link.Config{
		Name:        l.Name,
		IPAddr:      l.IPAddr,
		Port:        l.Port,
		SendPass:    l.SendPass,
		RecvPass:    l.RecvPass,
		SSLHook:     l.SSL,
		Bind:        l.Bind,
		Timeout:     time.Duration(l.Timeout) * time.Second,
		Hidden:      l.Hidden,
		StatsHidden: l.StatsHidden,
	}
	if l.Fingerprint != "" {
		lc.Fingerprint = splitCSV(l.Fingerprint)
	}
	if l.AllowMask != "" {
		lc.AllowMask = splitCSV(l.AllowMask)
	}
	return lc
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
