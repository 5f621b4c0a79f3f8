package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSBrowser browses for MP servers using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// Browse searches for servers until ctx is done or Stop is called. An
// instance is emitted when first seen, and again if it reappears after all
// its addresses were removed.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Server, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, context.Canceled
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *Server)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	updates := make(chan update)

	go translate(ctx, entries, removed, updates)
	go func() {
		defer close(out)
		aggregate(ctx, updates, out)
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// update is a browse result. For removals only InstanceName and Addresses are set.
type update struct {
	server  *Server
	removed bool
}

// translate converts zeroconf entries into updates. It closes updates when
// the entries channel closes or ctx is done.
func translate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, updates chan<- update) {
	defer close(updates)
	for {
		var u update
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			srv := entryToServer(entry)
			if srv == nil {
				continue
			}
			u = update{server: srv}
		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			u = update{
				server:  &Server{InstanceName: entry.Instance, Addresses: entryAddresses(entry)},
				removed: true,
			}
		case <-ctx.Done():
			return
		}

		select {
		case updates <- u:
		case <-ctx.Done():
			return
		}
	}
}

// aggregate merges updates by instance name and forwards new servers to out.
func aggregate(ctx context.Context, updates <-chan update, out chan<- *Server) {
	servers := make(map[string]*Server)
	for {
		var u update
		select {
		case next, ok := <-updates:
			if !ok {
				return
			}
			u = next
		case <-ctx.Done():
			return
		}

		srv := u.server
		existing, found := servers[srv.InstanceName]
		if u.removed {
			if found {
				existing.Addresses = removeAddresses(existing.Addresses, srv.Addresses)
				if len(existing.Addresses) == 0 {
					delete(servers, srv.InstanceName)
				}
			}
			continue
		}
		if found {
			existing.Addresses = mergeAddresses(existing.Addresses, srv.Addresses)
			continue
		}

		servers[srv.InstanceName] = srv
		emitted := *srv
		emitted.Addresses = slices.Clone(srv.Addresses)
		select {
		case out <- &emitted:
		case <-ctx.Done():
			return
		}
	}
}

// FindFirst returns the first server found, or the name-matching one when
// name is not empty.
func (b *MDNSBrowser) FindFirst(ctx context.Context, name string) (*Server, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case srv, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if name == "" || srv.InstanceName == name || srv.Name == name {
				return srv, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToServer converts a zeroconf entry. Entries with invalid TXT records yield nil.
func entryToServer(entry *zeroconf.ServiceEntry) *Server {
	info, err := DecodeServerTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}

	return &Server{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddresses(entry),
		Info:         info,
	}
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes gone from the list.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// MDNSAdvertiser advertises an MP server using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// Advertise starts advertising instance on port, replacing any previous
// registration.
func (a *MDNSAdvertiser) Advertise(instance string, port int, info Info) error {
	if err := ValidateInstanceName(instance); err != nil {
		return err
	}
	if port == 0 {
		port = DefaultPort
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	var ifaces []net.Interface
	if a.config.Interface != "" {
		if iface, err := net.InterfaceByName(a.config.Interface); err == nil {
			ifaces = []net.Interface{*iface}
		}
	}

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeServerTXT(info)),
		ifaces,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}
	a.server = server
	return nil
}

// Stop stops advertising.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
