package jwtx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// DefaultMaxClients bounds the number of per-client resolver entries held in
// memory. Entries past the bound are evicted least-recently-used.
const DefaultMaxClients = 128

// RemoteKeySets resolves and caches JWKS documents per client. Fetching and
// refresh are delegated to a jwk.Cache; this layer adds lazy per-URL
// registration and an LRU bound on tracked clients so a long-lived process
// does not accumulate resolver state for every client it has ever seen.
type RemoteKeySets struct {
	cache  *jwk.Cache
	maxAge time.Duration

	mu         sync.Mutex
	seq        uint64
	entries    map[string]*keySetEntry // keyed by client id
	maxEntries int
}

type keySetEntry struct {
	jwksURL    string
	registered bool
	lastUsed   uint64 // touch sequence number, higher is more recent
}

// NewRemoteKeySets builds a resolver whose JWKS fetches use the given
// timeout. maxAge caps how long a fetched key set is served before a
// background refresh; <= 0 leaves the cache's own default in place.
// maxEntries <= 0 selects DefaultMaxClients.
func NewRemoteKeySets(ctx context.Context, fetchTimeout, maxAge time.Duration, maxEntries int) (*RemoteKeySets, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxClients
	}

	httpClient := &http.Client{Timeout: fetchTimeout}
	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(httpClient)))
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to create jwks cache: %w", err)
	}

	return &RemoteKeySets{
		cache:      cache,
		maxAge:     maxAge,
		entries:    make(map[string]*keySetEntry),
		maxEntries: maxEntries,
	}, nil
}

// Lookup returns the current key set for the client, registering its JWKS
// URL with the cache on first use. Fetch failures are classified as either
// ErrJWKSFetchTimeout or ErrJWKSInvalid.
func (r *RemoteKeySets) Lookup(ctx context.Context, clientID, jwksURL string) (jwk.Set, error) {
	if r.touch(ctx, clientID, jwksURL) {
		var opts []jwk.RegisterOption
		if r.maxAge > 0 {
			opts = append(opts, jwk.WithMaxInterval(r.maxAge))
		}
		if err := r.cache.Register(ctx, jwksURL, opts...); err != nil {
			return nil, classifyFetchError(err)
		}
		r.markRegistered(clientID, jwksURL)
	}

	set, err := r.cache.Lookup(ctx, jwksURL)
	if err != nil {
		return nil, classifyFetchError(err)
	}
	return set, nil
}

// touch records use of a client entry, creating it and evicting the least
// recently used entry if the bound is exceeded. The refreshed entry carries
// the newest sequence number before eviction runs, so it is never its own
// victim. If the client's registered jwks_uri changed, the entry is reset
// so the new URL gets registered. Reports whether registration is needed;
// two racing lookups may both see true, and the duplicate Register is
// harmless.
func (r *RemoteKeySets) touch(ctx context.Context, clientID, jwksURL string) (needsRegister bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[clientID]
	if !ok || entry.jwksURL != jwksURL {
		entry = &keySetEntry{jwksURL: jwksURL}
		r.entries[clientID] = entry
	}
	r.seq++
	entry.lastUsed = r.seq
	r.evictLocked(ctx)
	return !entry.registered
}

// markRegistered flips the registered flag after a successful Register, as
// long as the entry survived eviction and still points at the same URL.
func (r *RemoteKeySets) markRegistered(clientID, jwksURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[clientID]; ok && entry.jwksURL == jwksURL {
		entry.registered = true
	}
}

func (r *RemoteKeySets) evictLocked(ctx context.Context) {
	for len(r.entries) > r.maxEntries {
		var (
			oldestID string
			oldest   uint64
		)
		for id, e := range r.entries {
			if oldestID == "" || e.lastUsed < oldest {
				oldestID = id
				oldest = e.lastUsed
			}
		}
		evicted := r.entries[oldestID]
		delete(r.entries, oldestID)

		// release the cache's refresher too, unless another client
		// shares the URL
		if evicted.registered && !r.urlInUseLocked(evicted.jwksURL) {
			_ = r.cache.Unregister(ctx, evicted.jwksURL)
		}
	}
}

func (r *RemoteKeySets) urlInUseLocked(jwksURL string) bool {
	for _, e := range r.entries {
		if e.jwksURL == jwksURL {
			return true
		}
	}
	return false
}

func classifyFetchError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrJWKSFetchTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrJWKSFetchTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrJWKSInvalid, err)
	}
}
