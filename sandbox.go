package invoicepdf

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/alnah/go-invoicepdf/internal/pipeline"
)

// lookupTimeout bounds the DNS lookup behind each sandboxed request.
const lookupTimeout = 2 * time.Second

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// CheckLocalReferences fails with ErrLocalReference when htmlContent
// references the local filesystem.
func CheckLocalReferences(htmlContent string) error {
	refs, err := pipeline.LocalReferences(htmlContent)
	if err != nil {
		return fmt.Errorf("%w: scanning references: %v", ErrStage, err)
	}
	if len(refs) > 0 {
		return fmt.Errorf("%w: %s", ErrLocalReference, refs[0])
	}
	return nil
}

// hostResolver resolves host names. *net.Resolver satisfies it.
type hostResolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// requestGuard decides which requests a sandboxed page may send: data and
// blob URLs, and http(s) URLs whose host resolves only to public addresses.
type requestGuard struct {
	resolver hostResolver
}

func newRequestGuard() requestGuard {
	return requestGuard{resolver: net.DefaultResolver}
}

func (g requestGuard) allow(ctx context.Context, u *url.URL) bool {
	switch strings.ToLower(u.Scheme) {
	case "data", "blob", "about":
		return true
	case "http", "https":
	default:
		return false
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return isPublicAddr(addr)
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil || len(addrs) == 0 {
		return false
	}
	for _, a := range addrs {
		if !isPublicAddr(a) {
			return false
		}
	}
	return true
}

// isPublicAddr rejects loopback, private, link-local, multicast,
// unspecified and shared addresses.
func isPublicAddr(a netip.Addr) bool {
	a = a.Unmap()
	if !a.IsValid() || a.IsLoopback() || a.IsPrivate() || a.IsUnspecified() ||
		a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() ||
		a.IsInterfaceLocalMulticast() || a.IsMulticast() {
		return false
	}
	return !sharedAddressSpace.Contains(a)
}
