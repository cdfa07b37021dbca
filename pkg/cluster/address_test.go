package cluster_test

import (
	"errors"
	"testing"

	. "leaderwatch/pkg/cluster"
)

func TestParseAddress_Valid(t *testing.T) {
	addr, err := ParseAddress("10.0.0.5:60000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Host != "10.0.0.5" || addr.Port != 60000 {
		t.Errorf("got %+v", addr)
	}
}

func TestParseAddress_Hostname(t *testing.T) {
	addr, err := ParseAddress("master.cluster.local:16000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Host != "master.cluster.local" || addr.Port != 16000 {
		t.Errorf("got %+v", addr)
	}
}

func TestParseAddress_IPv6(t *testing.T) {
	addr, err := ParseAddress("[::1]:8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Host != "::1" || addr.Port != 8080 {
		t.Errorf("got %+v", addr)
	}
}

func TestParseAddress_Malformed(t *testing.T) {
	cases := []string{
		"not-an-address",
		"",
		"host:",
		":0x50",
		"host:port",
		"host:99999",
		":1234",
	}
	for _, in := range cases {
		addr, err := ParseAddress(in)
		if !errors.Is(err, ErrMalformedAddress) {
			t.Errorf("ParseAddress(%q): expected ErrMalformedAddress, got addr=%v err=%v", in, addr, err)
		}
		if addr != nil {
			t.Errorf("ParseAddress(%q): expected no partial value, got %+v", in, addr)
		}
	}
}

func TestAddress_StringRoundTrip(t *testing.T) {
	addr, err := ParseAddress("10.0.0.5:60000")
	if err != nil {
		t.Fatal(err)
	}
	if addr.String() != "10.0.0.5:60000" {
		t.Errorf("got %q", addr.String())
	}
}
