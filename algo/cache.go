package algo

import (
	"sort"
	"strings"
	"sync"

	"github.com/bwesterb/go-cryptocore/internal/logging"
)

// Returns the weight of a provider used to pick between implementations
// when no provider is requested or preferred.  Higher is better.
func StaticProviderWeight(provider string) int {
	switch provider {
	case "stdlib":
		// Go standard library; uses AES-NI and assembly where available
		return 9
	case "base":
		return 5
	case "xcrypto":
		return 2
	}
	if strings.Contains(provider, "asm") || strings.Contains(provider, "simd") {
		return 8
	}
	return 0
}

type cacheEntry[T Algorithm] struct {
	provider string
	algo     T
}

// Maps an algorithm name to the implementations of one or more providers.
//
// The cache owns the instances added to it: an instance replaced by Add
// or dropped by Reset is cleared.  Values returned by Get are borrowed and
// should be cloned before use.
type Cache[T Algorithm] struct {
	mux       sync.Mutex
	algos     map[string][]cacheEntry[T] // canonical name -> providers
	aliases   map[string]string          // requested name -> canonical name
	preferred map[string]string          // name -> provider
}

func NewCache[T Algorithm]() *Cache[T] {
	return &Cache[T]{
		algos:     make(map[string][]cacheEntry[T]),
		aliases:   make(map[string]string),
		preferred: make(map[string]string),
	}
}

// Registers algo as the implementation of provider.  If requestedName
// differs from the canonical algo.Name(), it is made an alias for it,
// unless that alias is already taken.
func (c *Cache[T]) Add(algo T, requestedName, provider string) {
	c.mux.Lock()
	defer c.mux.Unlock()

	name := algo.Name()
	if requestedName != "" && requestedName != name {
		if _, ok := c.aliases[requestedName]; !ok {
			c.aliases[requestedName] = name
		}
	}

	entries := c.algos[name]
	for i := range entries {
		if entries[i].provider == provider {
			if any(entries[i].algo) == any(algo) {
				return
			}
			logging.Logf("algo: replacing %s from provider %s", name, provider)
			entries[i].algo.Clear()
			entries[i].algo = algo
			return
		}
	}
	c.algos[name] = append(entries, cacheEntry[T]{provider, algo})
}

// Makes alias another name for the algorithm called name, unless alias
// is already taken.
func (c *Cache[T]) AddAlias(alias, name string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if _, ok := c.aliases[alias]; !ok && alias != name {
		c.aliases[alias] = name
	}
}

// Must be called with mux held.
func (c *Cache[T]) find(spec string) ([]cacheEntry[T], string) {
	if entries, ok := c.algos[spec]; ok {
		return entries, spec
	}
	if name, ok := c.aliases[spec]; ok {
		return c.algos[name], name
	}
	return nil, ""
}

// Returns the implementation of spec.
//
// If provider is not empty, only the implementation of that provider
// is returned.  Otherwise the preferred provider set with
// SetPreferredProvider is used if it implements spec and else the
// provider with the highest StaticProviderWeight.  Ties are broken
// by registration order.
func (c *Cache[T]) Get(spec, provider string) (T, bool) {
	var zero T
	c.mux.Lock()
	defer c.mux.Unlock()

	entries, name := c.find(spec)
	if len(entries) == 0 {
		return zero, false
	}

	if provider != "" {
		for _, e := range entries {
			if e.provider == provider {
				return e.algo, true
			}
		}
		return zero, false
	}

	pref, ok := c.preferred[spec]
	if !ok {
		pref = c.preferred[name]
	}

	best := -1
	bestWeight := 0
	for i, e := range entries {
		if pref != "" && e.provider == pref {
			return e.algo, true
		}
		weight := StaticProviderWeight(e.provider)
		if best == -1 || weight > bestWeight {
			best = i
			bestWeight = weight
		}
	}
	return entries[best].algo, true
}

// Returns the providers of spec in registration order.
func (c *Cache[T]) ProvidersOf(spec string) []string {
	c.mux.Lock()
	defer c.mux.Unlock()

	entries, _ := c.find(spec)
	ret := make([]string, len(entries))
	for i, e := range entries {
		ret[i] = e.provider
	}
	return ret
}

// Sets the provider to use for spec if none is requested explicitly.
// Pass an empty provider to remove the preference.
func (c *Cache[T]) SetPreferredProvider(spec, provider string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if provider == "" {
		delete(c.preferred, spec)
		return
	}
	c.preferred[spec] = provider
}

// Returns the sorted canonical names of the cached algorithms.
func (c *Cache[T]) Names() []string {
	c.mux.Lock()
	defer c.mux.Unlock()
	ret := make([]string, 0, len(c.algos))
	for name := range c.algos {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Clears and drops every cached instance.
func (c *Cache[T]) Reset() {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, entries := range c.algos {
		for _, e := range entries {
			e.algo.Clear()
		}
	}
	c.algos = make(map[string][]cacheEntry[T])
	c.aliases = make(map[string]string)
	c.preferred = make(map[string]string)
}
