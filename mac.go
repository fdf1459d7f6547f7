package cryptocore

import (
	"crypto/hmac"
	"hash"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Longest HMAC key accepted.
const maxHMACKeyLength = 4096

// HMAC over an algo.HashFunction.  Implements algo.MAC.
type HMAC struct {
	proto algo.HashFunction // never written to
	mac   hash.Hash         // nil until keyed
}

// Returns an unkeyed HMAC over h.  h must not have been written to.
func NewHMAC(h algo.HashFunction) *HMAC {
	return &HMAC{proto: h}
}

func (m *HMAC) Name() string { return "HMAC(" + m.proto.Name() + ")" }
func (m *HMAC) Size() int     { return m.proto.Size() }
func (m *HMAC) BlockSize() int { return m.proto.BlockSize() }
func (m *HMAC) Clear()        { m.mac = nil }

func (m *HMAC) KeySpec() algo.KeyLengthSpec {
	return algo.KeyLengthSpec{Min: 0, Max: maxHMACKeyLength, Multiple: 1}
}

func (m *HMAC) Clone() algo.MAC {
	return NewHMAC(m.proto.Clone())
}

func (m *HMAC) SetKey(key []byte) error {
	if err := algo.CheckKeyLength(m.Name(), m.KeySpec(), key); err != nil {
		return err
	}
	m.mac = hmac.New(func() hash.Hash { return m.proto.Clone() }, key)
	return nil
}

func (m *HMAC) keyed() hash.Hash {
	if m.mac == nil {
		panic(errs.Errorf(errs.InvalidState, "%s: key not set", m.Name()))
	}
	return m.mac
}

func (m *HMAC) Write(p []byte) (int, error) { return m.keyed().Write(p) }
func (m *HMAC) Sum(b []byte) []byte         { return m.keyed().Sum(b) }
func (m *HMAC) Reset()                      { m.keyed().Reset() }
