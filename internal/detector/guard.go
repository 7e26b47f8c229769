package detector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"
)

var errBlockedAddress = errors.New("target resolves to a private or reserved address")

// IPv4 and IPv6 ranges that netip.Addr has no predicate for.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),   // shared address space, RFC 6598
	netip.MustParsePrefix("192.0.0.0/24"),    // RFC 6890
	netip.MustParsePrefix("192.0.2.0/24"),    // documentation
	netip.MustParsePrefix("198.18.0.0/15"),   // benchmarking
	netip.MustParsePrefix("198.51.100.0/24"), // documentation
	netip.MustParsePrefix("203.0.113.0/24"),  // documentation
	netip.MustParsePrefix("240.0.0.0/4"),     // class E
	netip.MustParsePrefix("64:ff9b:1::/48"),  // local NAT64, RFC 8215
}

// addressGuard keeps both fetchers away from the detection service's own
// network. The static fetcher checks at dial time, after DNS, which also
// covers rebinding; the browser cannot be hooked at dial time, so its
// targets are resolved and checked before navigation.
type addressGuard struct {
	allowPrivate bool
	lookup       func(ctx context.Context, network, host string) ([]netip.Addr, error)
}

func newAddressGuard(allowPrivate bool) *addressGuard {
	return &addressGuard{
		allowPrivate: allowPrivate,
		lookup:       net.DefaultResolver.LookupNetIP,
	}
}

// dialer returns the net.Dialer used by the static fetcher.
func (g *addressGuard) dialer() *net.Dialer {
	d := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !g.allowPrivate {
		d.Control = g.checkDial
	}
	return d
}

func (g *addressGuard) checkDial(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %w", errBlockedAddress, err)
	}
	if isBlockedIP(ap.Addr()) {
		return fmt.Errorf("%w: %s", errBlockedAddress, ap.Addr())
	}
	return nil
}

// checkHost rejects host when any address it resolves to is blocked.
func (g *addressGuard) checkHost(ctx context.Context, host string) error {
	if g.allowPrivate {
		return nil
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("%w: %s", errBlockedAddress, ip)
		}
		return nil
	}

	addrs, err := g.lookup(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, ip := range addrs {
		if isBlockedIP(ip) {
			return fmt.Errorf("%w: %s resolves to %s", errBlockedAddress, host, ip)
		}
	}
	return nil
}

func isBlockedIP(addr netip.Addr) bool {
	// ::ffff:10.0.0.1 must be judged as 10.0.0.1.
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return true
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
