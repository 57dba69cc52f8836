package hostfunc

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"strconv"

	"github.com/caffeineduck/asi/interop"
)

// Resolver resolves host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type Net struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewNet returns the network handlers. A nil resolver uses
// net.DefaultResolver.
func NewNet(resolver Resolver, logger *slog.Logger) *Net {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Net{resolver: resolver, logger: logger}
}

// Lookup resolves a "host:port" query. Every failure is reported as
// ErrFailed inside a successful reply.
func (n *Net) Lookup(ctx context.Context, req interop.LookupRequest) (interop.LookupResponse, error) {
	addrs, err := n.lookup(ctx, req.Query)
	if err != nil {
		n.logger.DebugContext(ctx, "lookup failed", "query", req.Query, "instance", instanceID(ctx), "error", err)
		return interop.LookupResponse{Err: interop.ErrFailed}, nil
	}
	return interop.LookupResponse{Addrs: addrs}, nil
}

func (n *Net) lookup(ctx context.Context, query string) ([]netip.AddrPort, error) {
	host, portStr, err := net.SplitHostPort(query)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}

	hosts, err := n.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	addrs := make([]netip.AddrPort, 0, len(hosts))
	for _, h := range hosts {
		ip, err := netip.ParseAddr(h)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, netip.AddrPortFrom(ip.Unmap(), uint16(port)))
	}
	return addrs, nil
}

// Connect is not implemented by the host. Every request is rejected.
func (n *Net) Connect(ctx context.Context, req interop.ConnectRequest) (interop.HandleResponse, error) {
	n.logger.DebugContext(ctx, "connect rejected", "kind", req.Target.Kind, "addrs", len(req.Target.Addrs))
	return interop.HandleResponse{}, interop.ErrBadRequest
}
