package registry

import (
	"sync"

	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
)

// InterfaceProvider is the client end of a registry. GetInterface returns a
// usable handle at once; requests are held until Forward and then sent in
// the order they were made.
type InterfaceProvider struct {
	mu        sync.Mutex
	endpoint  *pipe.Endpoint
	forwarded bool
	failed    bool
	pending   []protocol.GetInterface
}

// NewInterfaceProvider wraps endpoint with requests held until Forward.
func NewInterfaceProvider(endpoint *pipe.Endpoint) *InterfaceProvider {
	return &InterfaceProvider{endpoint: endpoint}
}

// NewForwardedProvider wraps endpoint with requests sent immediately.
func NewForwardedProvider(endpoint *pipe.Endpoint) *InterfaceProvider {
	return &InterfaceProvider{endpoint: endpoint, forwarded: true}
}

// GetInterface asks the peer to bind name and returns the local end of the
// interface pipe. A denied or failed request shows up as the handle closing.
func (p *InterfaceProvider) GetInterface(name string) *pipe.Endpoint {
	local, remote := pipe.New()
	req := protocol.GetInterface{Name: name, Handle: remote}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.failed:
		remote.Close()
	case !p.forwarded:
		p.pending = append(p.pending, req)
	default:
		if err := p.endpoint.Send(req); err != nil {
			remote.Close()
		}
	}
	return local
}

// Forward flushes held requests and sends later ones directly.
func (p *InterfaceProvider) Forward() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.forwarded || p.failed {
		return
	}
	p.forwarded = true
	for _, req := range p.pending {
		if err := p.endpoint.Send(req); err != nil {
			req.Handle.Close()
		}
	}
	p.pending = nil
}

// Fail closes every held handle and the provider pipe.
func (p *InterfaceProvider) Fail() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failed {
		return
	}
	p.failed = true
	for _, req := range p.pending {
		req.Handle.Close()
	}
	p.pending = nil
	p.endpoint.Close()
}

// Close shuts the provider pipe.
func (p *InterfaceProvider) Close() {
	p.Fail()
}

// Pending returns how many requests are held.
func (p *InterfaceProvider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
