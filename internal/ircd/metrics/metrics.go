// Package metrics defines the Prometheus instruments exported by the
// spanning-tree subsystem: per-link RTT, user/oper counts, and burst
// duration (SPEC_FULL.md §11).
//
// Grounded on pack repo m-lab-tcp-info's metrics/metrics.go: package-
// level vars built with promauto so registration happens at import
// time with no explicit Register call, label vectors keyed by a
// short dimension ("af" there, "link"/"sid" here), and one file
// holding every instrument rather than scattering them next to each
// user.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinkRTT tracks per-link round-trip time as measured by the ping
	// cycle (internal/ircd/link/ping.go), labeled by the socket's link
	// identifier (Socket.LinkID, the remote ip:port).
	LinkRTT = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ircd_link_rtt_seconds",
			Help:    "server-to-server link round-trip time",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"link"},
	)

	// Users tracks the number of users, local and remote, currently in
	// this process's user table.
	Users = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ircd_users",
			Help: "number of users currently known to this server",
		},
	)

	// Opers tracks the live oper count this server has introduced.
	Opers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ircd_opers",
			Help: "number of opered users currently registered on this server",
		},
	)

	// BurstDuration tracks how long a netburst (spec §4.5) takes from
	// SERVER to ENDBURST, labeled by the socket's link identifier.
	BurstDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ircd_burst_duration_seconds",
			Help:    "netburst duration from SERVER to ENDBURST",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"link"},
	)

	// Netsplits counts SQUIT/link-loss events, labeled by whether the
	// split was locally or remotely initiated.
	Netsplits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircd_netsplits_total",
			Help: "number of netsplit events processed",
		},
		[]string{"cause"},
	)

	// LinksUp tracks the number of currently CONNECTED peer links.
	LinksUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ircd_links_up",
			Help: "number of server-to-server links currently in the CONNECTED state",
		},
	)
)
