// Package discovery announces this instance on the LAN and browses for
// other instances over zeroconf/mDNS. The protocol core only consumes the
// resulting (address, hostname) pairs.
package discovery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_deskhop._tcp"
	domain      = "local."
)

// Peer is one discovered instance.
type Peer struct {
	Name     string
	Address  string
	Hostname string
}

// Announcer publishes this instance's service record.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers the service record carrying our hostname and the
// screen port.
func Announce(instance, hostname string, port int) (*Announcer, error) {
	server, err := zeroconf.Register(instance, serviceType, domain, port,
		[]string{"hostname=" + hostname}, nil)
	if err != nil {
		return nil, fmt.Errorf("announce service: %w", err)
	}
	log.Printf("[discovery] announcing %s on port %d", instance, port)
	return &Announcer{server: server}, nil
}

func (a *Announcer) Shutdown() {
	a.server.Shutdown()
}

// Browse watches for instances until ctx is cancelled, invoking onFound
// for each discovered peer.
func Browse(ctx context.Context, onFound func(Peer)) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("create resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			if len(entry.AddrIPv4) == 0 {
				continue
			}
			onFound(Peer{
				Name:     entry.Instance,
				Address:  entry.AddrIPv4[0].String(),
				Hostname: hostnameFromTXT(entry.Text, entry.HostName),
			})
		}
	}()

	if err := resolver.Browse(ctx, serviceType, domain, entries); err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	<-ctx.Done()
	return nil
}

func hostnameFromTXT(txt []string, fallback string) string {
	for _, t := range txt {
		if name, ok := strings.CutPrefix(t, "hostname="); ok && name != "" {
			return name
		}
	}
	return strings.TrimSuffix(fallback, ".")
}
