package catalog

import (
	"context"
	"time"

	"switchboard/pkg/logging"
)

// DefaultResolveTimeout bounds a single resolution.
const DefaultResolveTimeout = 10 * time.Second

// Resolver maps a service name to its placement. Resolve calls reply exactly
// once, possibly on another goroutine.
type Resolver interface {
	Resolve(name string, reply func(*ResolveResult, error))
}

// ResolverFactory hands out the resolver the broker caches for each user.
type ResolverFactory interface {
	ResolverForUser(userID string) Resolver
}

// ResolverFunc adapts a synchronous function to Resolver. The reply is
// delivered before Resolve returns.
type ResolverFunc func(name string) (*ResolveResult, error)

// Resolve calls f and replies with its result.
func (f ResolverFunc) Resolve(name string, reply func(*ResolveResult, error)) {
	reply(f(name))
}

// userResolver resolves against a Catalog on a background goroutine.
type userResolver struct {
	catalog *Catalog
	userID  string
	timeout time.Duration
}

// ResolverForUser implements ResolverFactory.
func (c *Catalog) ResolverForUser(userID string) Resolver {
	return &userResolver{catalog: c, userID: userID, timeout: DefaultResolveTimeout}
}

// ResolverWithTimeout returns a factory whose resolvers give up after
// timeout.
func (c *Catalog) ResolverWithTimeout(timeout time.Duration) ResolverFactory {
	return timeoutFactory{catalog: c, timeout: timeout}
}

type timeoutFactory struct {
	catalog *Catalog
	timeout time.Duration
}

func (f timeoutFactory) ResolverForUser(userID string) Resolver {
	timeout := f.timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &userResolver{catalog: f.catalog, userID: userID, timeout: timeout}
}

func (r *userResolver) Resolve(name string, reply func(*ResolveResult, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		result, err := r.catalog.Resolve(ctx, name)
		if err != nil {
			logging.Debug("Catalog", "Resolving %s for user %s failed: %v", name, r.userID, err)
		}
		reply(result, err)
	}()
}
