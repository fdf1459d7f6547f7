package algo

import (
	"sync"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

type fakeAlgo struct {
	name    string
	tag     string
	cleared bool
}

func (a *fakeAlgo) Name() string { return a.name }
func (a *fakeAlgo) Clear()       { a.cleared = true }

func TestCacheExplicitProvider(t *testing.T) {
	c := NewCache[*fakeAlgo]()
	a1 := &fakeAlgo{name: "X", tag: "1"}
	a2 := &fakeAlgo{name: "X", tag: "2"}
	c.Add(a1, "X", "p1")
	c.Add(a2, "X", "p2")

	got, ok := c.Get("X", "p1")
	assert.Assert(t, ok)
	assert.Equal(t, got, a1)
	got, ok = c.Get("X", "p2")
	assert.Assert(t, ok)
	assert.Equal(t, got, a2)

	_, ok = c.Get("X", "p3")
	assert.Assert(t, !ok, "no fallback for an explicit provider")
	_, ok = c.Get("Y", "")
	assert.Assert(t, !ok)
}

func TestCacheWeights(t *testing.T) {
	c := NewCache[*fakeAlgo]()
	slow := &fakeAlgo{name: "AES-128", tag: "xcrypto"}
	mid := &fakeAlgo{name: "AES-128", tag: "base"}
	fast := &fakeAlgo{name: "AES-128", tag: "stdlib"}
	c.Add(slow, "", "xcrypto")
	c.Add(mid, "", "base")
	c.Add(fast, "", "stdlib")

	got, _ := c.Get("AES-128", "")
	assert.Equal(t, got, fast)

	c.SetPreferredProvider("AES-128", "xcrypto")
	got, _ = c.Get("AES-128", "")
	assert.Equal(t, got, slow)

	c.SetPreferredProvider("AES-128", "")
	got, _ = c.Get("AES-128", "")
	assert.Equal(t, got, fast)

	// a preferred provider that does not implement the algorithm is ignored
	c.SetPreferredProvider("AES-128", "nonexistent")
	got, _ = c.Get("AES-128", "")
	assert.Equal(t, got, fast)
}

func TestCacheTieBreak(t *testing.T) {
	c := NewCache[*fakeAlgo]()
	first := &fakeAlgo{name: "Z", tag: "first"}
	second := &fakeAlgo{name: "Z", tag: "second"}
	c.Add(first, "Z", "vendor1")
	c.Add(second, "Z", "vendor2")
	got, _ := c.Get("Z", "")
	assert.Equal(t, got, first)
	assert.DeepEqual(t, c.ProvidersOf("Z"), []string{"vendor1", "vendor2"})
}

func TestCacheReplaceAndAlias(t *testing.T) {
	c := NewCache[*fakeAlgo]()
	old := &fakeAlgo{name: "SHA-160", tag: "old"}
	c.Add(old, "SHA-1", "base")
	c.Add(&fakeAlgo{name: "SHA-256"}, "SHA-1", "base")

	// first registration of the alias wins
	got, ok := c.Get("SHA-1", "")
	assert.Assert(t, ok)
	assert.Equal(t, got, old)

	replacement := &fakeAlgo{name: "SHA-160", tag: "new"}
	c.Add(replacement, "SHA-160", "base")
	assert.Assert(t, old.cleared, "replaced instance should be cleared")
	got, _ = c.Get("SHA-1", "base")
	assert.Equal(t, got, replacement)

	// adding the stored instance again leaves it alone
	c.Add(replacement, "SHA-160", "base")
	assert.Check(t, !replacement.cleared)
	got, _ = c.Get("SHA-160", "base")
	assert.Equal(t, got, replacement)

	assert.DeepEqual(t, c.Names(), []string{"SHA-160", "SHA-256"})
	c.Reset()
	assert.Assert(t, replacement.cleared)
	assert.Check(t, is.Len(c.Names(), 0))
}

func TestCacheConcurrent(t *testing.T) {
	c := NewCache[*fakeAlgo]()
	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add(&fakeAlgo{name: "X"}, "X", "p")
				c.Get("X", "")
				c.ProvidersOf("X")
			}
		}(i)
	}
	wg.Wait()
	assert.DeepEqual(t, c.ProvidersOf("X"), []string{"p"})
}

func TestStaticProviderWeight(t *testing.T) {
	assert.Assert(t, StaticProviderWeight("stdlib") > StaticProviderWeight("x86-asm"))
	assert.Assert(t, StaticProviderWeight("x86-asm") > StaticProviderWeight("base"))
	assert.Assert(t, StaticProviderWeight("base") > StaticProviderWeight("xcrypto"))
	assert.Assert(t, StaticProviderWeight("xcrypto") > StaticProviderWeight("unknown"))
}

func TestKeyLengthSpec(t *testing.T) {
	spec := KeyLengthSpec{16, 32, 8}
	assert.Assert(t, spec.Valid(16))
	assert.Assert(t, spec.Valid(24))
	assert.Assert(t, !spec.Valid(20))
	assert.Assert(t, !spec.Valid(40))
	assert.Assert(t, FixedKeyLength(10).Valid(10))
	assert.ErrorContains(t, CheckKeyLength("Skipjack", FixedKeyLength(10), make([]byte, 3)),
		"Skipjack cannot accept a key of length 3")
}

func TestCacheAddAlias(t *testing.T) {
	c := NewCache[*fakeAlgo]()
	sj := &fakeAlgo{name: "Skipjack"}
	c.Add(sj, "", "base")
	c.AddAlias("SKIPJACK", "Skipjack")
	c.AddAlias("SKIPJACK", "Other")
	got, ok := c.Get("SKIPJACK", "base")
	assert.Assert(t, ok)
	assert.Equal(t, got, sj)

	// an alias may be registered before its target
	c.AddAlias("Twofish-256", "Twofish")
	_, ok = c.Get("Twofish-256", "")
	assert.Assert(t, !ok)
	tf := &fakeAlgo{name: "Twofish"}
	c.Add(tf, "", "xcrypto")
	got, ok = c.Get("Twofish-256", "")
	assert.Assert(t, ok)
	assert.Equal(t, got, tf)
}
