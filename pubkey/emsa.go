package pubkey

import (
	"bytes"

	"github.com/bwesterb/go-cryptocore"
	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
)

// EMSA1 from IEEE 1363: the message is hashed and the digest truncated
// to the leftmost bits the key can sign.
type EMSA1 struct {
	hash algo.HashFunction
}

// Returns EMSA1 over the named hash function.
func NewEMSA1(hashName string) (*EMSA1, error) {
	h, err := cryptocore.NewHash(hashName, "")
	if err != nil {
		return nil, err
	}
	return &EMSA1{h}, nil
}

// Parses a padding specification of the form "EMSA1(SHA-256)".
func ParsePadding(padding string) (*EMSA1, error) {
	name, err := cryptocore.ParseScanName(padding)
	if err != nil {
		return nil, err
	}
	if name.Algo != "EMSA1" || name.ArgCount() != 1 {
		return nil, errs.Errorf(errs.NotFound, "Unsupported padding %s", padding)
	}
	return NewEMSA1(name.Args[0])
}

func (e *EMSA1) Name() string {
	return "EMSA1(" + e.hash.Name() + ")"
}

// Returns the name of the hash function.
func (e *EMSA1) HashName() string {
	return e.hash.Name()
}

// Adds data to the message.
func (e *EMSA1) Update(msg []byte) {
	e.hash.Write(msg)
}

// Returns the digest of the message and resets the hash.
func (e *EMSA1) RawData() []byte {
	ret := e.hash.Sum(nil)
	e.hash.Reset()
	return ret
}

// Truncates msg to its leftmost outputBits bits.
func emsa1Encoding(msg []byte, outputBits int) []byte {
	if 8*len(msg) <= outputBits {
		return append([]byte{}, msg...)
	}
	shift := 8*len(msg) - outputBits
	byteShift := shift / 8
	bitShift := uint(shift % 8)
	ret := append([]byte{}, msg[:len(msg)-byteShift]...)
	if bitShift != 0 {
		var carry byte
		for i := range ret {
			b := ret[i]
			ret[i] = (b >> bitShift) | carry
			carry = b << (8 - bitShift)
		}
	}
	return ret
}

// Encodes a digest for a key that signs outputBits bits.
func (e *EMSA1) EncodingOf(raw []byte, outputBits int) ([]byte, error) {
	if len(raw) != e.hash.Size() {
		return nil, errs.Errorf(errs.InvalidArgument,
			"%s: digest of %d bytes instead of %d", e.Name(), len(raw), e.hash.Size())
	}
	return emsa1Encoding(raw, outputBits), nil
}

// Checks whether coded is the encoding of the digest raw.  The encoding
// may have lost leading zero bytes on its way through an integer.
func (e *EMSA1) Verify(coded, raw []byte, keyBits int) bool {
	ours, err := e.EncodingOf(raw, keyBits)
	if err != nil {
		return false
	}
	if bytes.Equal(ours, coded) {
		return true
	}
	trimmed := bytes.TrimLeft(ours, "\x00")
	if len(trimmed) == len(ours) {
		return false
	}
	return bytes.Equal(trimmed, coded)
}
