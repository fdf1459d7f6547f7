package cryptocore

import (
	"sort"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/ctr"
	"github.com/bwesterb/go-cryptocore/errs"
)

func notFound(kind, spec, provider string) errs.Error {
	if provider != "" {
		return errs.Errorf(errs.NotFound,
			"%s %s not available from provider %s", kind, spec, provider)
	}
	return errs.Errorf(errs.NotFound, "%s %s not available", kind, spec)
}

// Returns a new, unkeyed instance of the block cipher spec, eg. "AES-256".
//
// If provider is not empty, only that provider's implementation is
// considered.  Otherwise the preferred provider (see SetPreferredProvider)
// or the provider with the highest weight is used.
func NewBlockCipher(spec, provider string) (algo.BlockCipher, error) {
	if proto, ok := blockCiphers.Get(spec, provider); ok {
		return proto.Clone(), nil
	}
	return nil, notFound("Block cipher", spec, provider)
}

// Returns a new, unkeyed instance of the stream cipher spec, eg.
// "Salsa20" or "CTR-BE(AES-128,8)".  See NewBlockCipher for provider.
func NewStreamCipher(spec, provider string) (algo.StreamCipher, error) {
	if proto, ok := streamCiphers.Get(spec, provider); ok {
		return proto.Clone(), nil
	}

	name, err := ParseScanName(spec)
	if err != nil {
		return nil, err
	}
	if name.Algo == "CTR-BE" && len(name.Modes) == 0 &&
		(name.ArgCount() == 1 || name.ArgCount() == 2) {
		bc, err := NewBlockCipher(name.Args[0], provider)
		if err != nil {
			return nil, errs.Wrapf(err, errs.NotFound, "%s", spec)
		}
		ctrSize, err := name.ArgInt(1, bc.BlockSize())
		if err != nil {
			return nil, err
		}
		mode, err := ctr.New(bc, ctrSize)
		if err != nil {
			return nil, err
		}
		return mode, nil
	}
	return nil, notFound("Stream cipher", spec, provider)
}

// Returns a new instance of the hash function spec, eg. "SHA-256".
// See NewBlockCipher for provider.
func NewHash(spec, provider string) (algo.HashFunction, error) {
	if proto, ok := hashes.Get(spec, provider); ok {
		return proto.Clone(), nil
	}
	return nil, notFound("Hash function", spec, provider)
}

// Returns a new, unkeyed instance of the MAC spec, eg. "HMAC(SHA-256)".
// See NewBlockCipher for provider.
func NewMAC(spec, provider string) (algo.MAC, error) {
	if proto, ok := macs.Get(spec, provider); ok {
		return proto.Clone(), nil
	}

	name, err := ParseScanName(spec)
	if err != nil {
		return nil, err
	}
	if name.Algo == "HMAC" && name.ArgCount() == 1 && len(name.Modes) == 0 {
		h, err := NewHash(name.Args[0], provider)
		if err != nil {
			return nil, errs.Wrapf(err, errs.NotFound, "%s", spec)
		}
		return NewHMAC(h), nil
	}
	return nil, notFound("MAC", spec, provider)
}

// Registers a block cipher implementation.  requestedName becomes an alias
// of c.Name().  An earlier implementation of the same provider is
// replaced.
func AddBlockCipher(c algo.BlockCipher, requestedName, provider string) {
	log("Adding block cipher %s from provider %s", c.Name(), provider)
	blockCiphers.Add(c, requestedName, provider)
}

// See AddBlockCipher.
func AddStreamCipher(c algo.StreamCipher, requestedName, provider string) {
	log("Adding stream cipher %s from provider %s", c.Name(), provider)
	streamCiphers.Add(c, requestedName, provider)
}

// See AddBlockCipher.
func AddHash(h algo.HashFunction, requestedName, provider string) {
	log("Adding hash function %s from provider %s", h.Name(), provider)
	hashes.Add(h, requestedName, provider)
}

// See AddBlockCipher.
func AddMAC(m algo.MAC, requestedName, provider string) {
	log("Adding MAC %s from provider %s", m.Name(), provider)
	macs.Add(m, requestedName, provider)
}

// Makes provider the default for spec.  Pass an empty provider to go
// back to selection by weight.
func SetPreferredProvider(spec, provider string) {
	log("Preferred provider of %s set to %q", spec, provider)
	blockCiphers.SetPreferredProvider(spec, provider)
	streamCiphers.SetPreferredProvider(spec, provider)
	hashes.SetPreferredProvider(spec, provider)
	macs.SetPreferredProvider(spec, provider)
}

// Returns the providers that implement spec directly, in registration
// order.
func Providers(spec string) []string {
	var ret []string
	ret = append(ret, blockCiphers.ProvidersOf(spec)...)
	ret = append(ret, streamCiphers.ProvidersOf(spec)...)
	ret = append(ret, hashes.ProvidersOf(spec)...)
	ret = append(ret, macs.ProvidersOf(spec)...)
	return ret
}

// Kind of algorithm.
type Kind string

const (
	KindBlockCipher  Kind = "block cipher"
	KindStreamCipher Kind = "stream cipher"
	KindHash         Kind = "hash"
	KindMAC          Kind = "MAC"
)

// Describes a registered algorithm.
type AlgorithmInfo struct {
	Kind      Kind
	Name      string
	Providers []string
}

// Lists the registered algorithms sorted by kind and name.
func Algorithms() []AlgorithmInfo {
	var ret []AlgorithmInfo
	add := func(kind Kind, names []string, providersOf func(string) []string) {
		for _, name := range names {
			ret = append(ret, AlgorithmInfo{kind, name, providersOf(name)})
		}
	}
	add(KindBlockCipher, blockCiphers.Names(), blockCiphers.ProvidersOf)
	add(KindStreamCipher, streamCiphers.Names(), streamCiphers.ProvidersOf)
	add(KindHash, hashes.Names(), hashes.ProvidersOf)
	add(KindMAC, macs.Names(), macs.ProvidersOf)
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Kind != ret[j].Kind {
			return ret[i].Kind < ret[j].Kind
		}
		return ret[i].Name < ret[j].Name
	})
	return ret
}

// Drops every registered algorithm and provider preference and
// registers the built-in providers again.
func ResetProviders() {
	log("Resetting algorithm caches")
	blockCiphers.Reset()
	streamCiphers.Reset()
	hashes.Reset()
	macs.Reset()
	registerBuiltins()
}
