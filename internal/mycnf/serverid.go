package mycnf

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
)

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// ServerID derives the replication server identifier for host: its IPv4
// address read as a big-endian 32-bit integer. Literal addresses are
// converted without a lookup; names are resolved first.
func ServerID(ctx context.Context, resolver Resolver, host string) (uint32, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return binary.BigEndian.Uint32(v4), nil
		}
		return 0, fmt.Errorf("%s is not an IPv4 address", host)
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}

	ips, err := resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return binary.BigEndian.Uint32(v4), nil
		}
	}
	return 0, fmt.Errorf("failed to resolve %s: no IPv4 address", host)
}
