// Package algo defines the capability interfaces of symmetric algorithms
// and the cache that maps algorithm names to provider implementations.
package algo

import (
	"crypto/cipher"
	"hash"

	"github.com/bwesterb/go-cryptocore/errs"
)

// Common interface of all algorithms.
type Algorithm interface {
	// Canonical name, eg. "AES-128" or "HMAC(SHA-256)".
	Name() string

	// Zeroes all key dependant state.
	Clear()
}

// Describes the acceptable key lengths of a keyed algorithm.
type KeyLengthSpec struct {
	Min      int // minimum length in bytes
	Max      int // maximum length in bytes
	Multiple int // the length must be a multiple of this
}

// Returns a KeyLengthSpec that only accepts keys of n bytes.
func FixedKeyLength(n int) KeyLengthSpec {
	return KeyLengthSpec{n, n, 1}
}

// Returns whether a key of n bytes is acceptable.
func (s KeyLengthSpec) Valid(n int) bool {
	mul := s.Multiple
	if mul == 0 {
		mul = 1
	}
	return n >= s.Min && n <= s.Max && n%mul == 0
}

// Checks the length of key against spec.  Returns an error of kind
// InvalidKeyLength for the algorithm name if it does not fit.
func CheckKeyLength(name string, spec KeyLengthSpec, key []byte) error {
	if !spec.Valid(len(key)) {
		return errs.Errorf(errs.InvalidKeyLength,
			"%s cannot accept a key of length %d", name, len(key))
	}
	return nil
}

// An algorithm that needs a key before use.
type SymmetricAlgorithm interface {
	Algorithm
	KeySpec() KeyLengthSpec

	// Sets the key.  Fails with InvalidKeyLength if KeySpec() does not
	// accept the length.
	SetKey(key []byte) error
}

type BlockCipher interface {
	SymmetricAlgorithm
	cipher.Block

	// Number of blocks the implementation prefers to process at once.
	ParallelBlocks() int

	// Returns an unkeyed instance of the same algorithm.
	Clone() BlockCipher
}

type StreamCipher interface {
	SymmetricAlgorithm
	cipher.Stream

	ValidIVLength(n int) bool
	SetIV(iv []byte) error

	// Returns an unkeyed instance of the same algorithm.
	Clone() StreamCipher
}

// Optionally implemented by stream ciphers that can jump to an offset
// in the keystream.
type Seeker interface {
	Seek(offset uint64) error
}

type HashFunction interface {
	Algorithm
	hash.Hash

	// Returns a copy of the hash, including its current state.
	Clone() HashFunction
}

// Message authentication code.
type MAC interface {
	SymmetricAlgorithm
	hash.Hash

	// Returns an unkeyed instance of the same algorithm.
	Clone() MAC
}

// Encrypts len(src)/BlockSize() consecutive blocks.
func EncryptBlocks(c cipher.Block, dst, src []byte) {
	bs := c.BlockSize()
	for i := 0; i+bs <= len(src); i += bs {
		c.Encrypt(dst[i:i+bs], src[i:i+bs])
	}
}

// Decrypts len(src)/BlockSize() consecutive blocks.
func DecryptBlocks(c cipher.Block, dst, src []byte) {
	bs := c.BlockSize()
	for i := 0; i+bs <= len(src); i += bs {
		c.Decrypt(dst[i:i+bs], src[i:i+bs])
	}
}

// Sets every byte of buf to zero.
func Zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
