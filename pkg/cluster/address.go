package cluster

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrMalformedAddress is returned when the leader znode holds bytes that do
// not decode to host:port text. This is distinct from "no leader": a present
// but unreadable payload means a protocol mismatch or external corruption and
// must not be reported as absence.
var ErrMalformedAddress = errors.New("malformed leader address")

// Address identifies the cluster leader's network endpoint.
type Address struct {
	Host string
	Port int
}

// ParseAddress decodes the wire form of a leader address. The payload is
// plain UTF-8 "host:port" text with no framing or version tag; that format is
// fixed by the broader system and preserved here bit-for-bit.
func ParseAddress(s string) (*Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAddress, s)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrMalformedAddress, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: bad port in %q", ErrMalformedAddress, s)
	}
	return &Address{Host: host, Port: port}, nil
}

// String renders the address back to its wire form.
func (a *Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}
