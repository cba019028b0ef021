package xline

import "testing"

func TestLineExpiry(t *testing.T) {
	l := &Line{SetTime: 1000, Duration: 60}
	if l.Expiry() != 1060 {
		t.Errorf("Expiry() = %d, want 1060", l.Expiry())
	}
	if l.Expired(1059) {
		t.Error("should not be expired one second before expiry")
	}
	if !l.Expired(1060) {
		t.Error("should be expired exactly at expiry")
	}

	permanent := &Line{SetTime: 1000, Duration: 0}
	if permanent.Expiry() != 0 {
		t.Error("permanent line should have expiry 0")
	}
	if permanent.Expired(1_000_000_000) {
		t.Error("permanent line should never expire")
	}
}

func TestBurstable(t *testing.T) {
	if !Burstable('G') {
		t.Error("G-line should be burstable")
	}
	if Burstable('K') {
		t.Error("K-line (local) should not be burstable")
	}
	if Burstable('X') {
		t.Error("unknown type should not be burstable")
	}
}

func TestRegistryAddLowerSetTimeWins(t *testing.T) {
	r := NewRegistry()
	first := &Line{Type: 'G', Mask: "*@bad.example", SetTime: 2000, Reason: "first"}
	eff, added := r.Add(first)
	if !added || eff != first {
		t.Fatalf("expected first insert to be added")
	}

	later := &Line{Type: 'G', Mask: "*@bad.example", SetTime: 3000, Reason: "later"}
	eff, added = r.Add(later)
	if added || eff != first {
		t.Errorf("later SetTime should lose: added=%v eff=%+v", added, eff)
	}

	earlier := &Line{Type: 'G', Mask: "*@bad.example", SetTime: 1000, Reason: "earlier"}
	eff, added = r.Add(earlier)
	if !added || eff != earlier {
		t.Errorf("earlier SetTime should win: added=%v eff=%+v", added, eff)
	}
}

func TestRegistryDel(t *testing.T) {
	r := NewRegistry()
	r.Add(&Line{Type: 'G', Mask: "*@bad.example", SetTime: 1000})
	if !r.Del('G', "*@bad.example") {
		t.Error("expected Del to report success")
	}
	if r.Del('G', "*@bad.example") {
		t.Error("second Del of the same entry should report failure")
	}
}

func TestRegistryMatch(t *testing.T) {
	r := NewRegistry()
	r.Add(&Line{Type: 'G', Mask: "*.bad.example", SetTime: 1000, Duration: 0})
	if r.Match('G', "host.bad.example", 2000) == nil {
		t.Error("expected a match for host.bad.example")
	}
	if r.Match('G', "host.good.example", 2000) != nil {
		t.Error("expected no match for host.good.example")
	}
}

func TestRegistryMatchSkipsExpired(t *testing.T) {
	r := NewRegistry()
	r.Add(&Line{Type: 'G', Mask: "*.bad.example", SetTime: 1000, Duration: 60})
	if r.Match('G', "host.bad.example", 1100) != nil {
		t.Error("expected an expired line not to match")
	}
}

func TestRegistryBurstSetExcludesNonBurstableAndExpired(t *testing.T) {
	r := NewRegistry()
	r.Add(&Line{Type: 'G', Mask: "*@a.example", SetTime: 1000, Duration: 0})
	r.Add(&Line{Type: 'K', Mask: "*@b.example", SetTime: 1000, Duration: 0})
	r.Add(&Line{Type: 'G', Mask: "*@c.example", SetTime: 1000, Duration: 10})

	set := r.BurstSet(2000)
	if len(set) != 1 {
		t.Fatalf("expected 1 burstable, non-expired line, got %d", len(set))
	}
	if set[0].Mask != "*@a.example" {
		t.Errorf("unexpected line in burst set: %+v", set[0])
	}
}
