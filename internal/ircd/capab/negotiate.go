package capab

import (
	"crypto/subtle"
	"fmt"
	"net"
	"os"
)

// Local holds the comparison inputs this server advertises.
type Local struct {
	ProtocolVersion int
	Capabilities    Capabilities
	CommonModules   []string // VF_COMMON: required, exact match
	OptModules      []string // VF_OPTCOMMON: optional, diff warns or kills
	ChanModes       string
	UserModes       string
	Extbans         []string
	AllowOptCommon  bool
	Password        string
	Fingerprints    []string // pinned TLS fingerprints for this link, optional
}

// Peer holds what the other side advertised, decoded from their
// CAPAB lines.
type Peer struct {
	ProtocolVersion int
	Capabilities    map[string]string
	CommonModules   []string
	OptModules      []string
	ChanModes       string
	UserModes       string
	Extbans         []string
}

// Result is the outcome of Compare: either accepted, or a kill reason
// to send back as the ERROR text (spec §4.3, §7).
type Result struct {
	Accepted bool
	KillReason string
	Warnings []string
}

// Compare runs the full §4.3 comparison after CAPAB END arrives.
func Compare(local Local, peer Peer, isTLS bool, tlsCert *[]string) Result {
	var warnings []string

	if !VersionAccepted(peer.ProtocolVersion) {
		return Result{KillReason: fmt.Sprintf(
			"Protocol version mismatch: we support %d-%d, you sent %d",
			MinProtocolVersion, MaxProtocolVersion, peer.ProtocolVersion)}
	}

	if onlyOurs, onlyTheirs := ModuleDiff(local.CommonModules, peer.CommonModules); len(onlyOurs)+len(onlyTheirs) > 0 {
		return Result{KillReason: fmt.Sprintf(
			"Required module mismatch: we have %v you don't, you have %v we don't",
			onlyOurs, onlyTheirs)}
	}

	if onlyOurs, onlyTheirs := ModuleDiff(local.OptModules, peer.OptModules); len(onlyOurs)+len(onlyTheirs) > 0 {
		msg := fmt.Sprintf("Optional module mismatch: we have %v you don't, you have %v we don't", onlyOurs, onlyTheirs)
		if !local.AllowOptCommon {
			return Result{KillReason: msg}
		}
		warnings = append(warnings, msg)
	}

	if local.ChanModes != peer.ChanModes {
		return Result{KillReason: fmt.Sprintf("Channel mode mismatch: %q vs %q", local.ChanModes, peer.ChanModes)}
	}
	if local.UserModes != peer.UserModes {
		return Result{KillReason: fmt.Sprintf("User mode mismatch: %q vs %q", local.UserModes, peer.UserModes)}
	}

	if onlyOurs, onlyTheirs := ModuleDiff(local.Extbans, peer.Extbans); len(onlyOurs)+len(onlyTheirs) > 0 {
		msg := fmt.Sprintf("Extban list mismatch: %v vs %v", onlyOurs, onlyTheirs)
		if !local.AllowOptCommon {
			return Result{KillReason: msg}
		}
		warnings = append(warnings, msg)
	}

	if local.Capabilities.CaseMapping != peer.Capabilities["CASEMAPPING"] {
		return Result{KillReason: "Case mapping mismatch"}
	}

	if len(local.Fingerprints) > 0 {
		if !isTLS {
			return Result{KillReason: "TLS required for this link (fingerprint pinned) but peer is not using TLS"}
		}
		matched := false
		if tlsCert != nil {
			for _, fp := range *tlsCert {
				for _, want := range local.Fingerprints {
					if constantTimeEqual(fp, want) {
						matched = true
					}
				}
			}
		}
		if !matched {
			return Result{KillReason: "TLS certificate fingerprint does not match any pinned value"}
		}
	}

	return Result{Accepted: true, Warnings: warnings}
}

// RequireTLS reports whether spec §4.3's "Non-local IPs must use TLS"
// rule applies: remoteIP is not in any of the configured local ranges,
// and we are not running inside a container (per the /.dockerenv
// marker spec explicitly calls out).
func RequireTLS(remoteIP net.IP, localRanges []*net.IPNet) bool {
	if dockerMarkerPresent() {
		return false
	}
	for _, r := range localRanges {
		if r.Contains(remoteIP) {
			return false
		}
	}
	return true
}

func dockerMarkerPresent() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

func constantTimeEqual(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
