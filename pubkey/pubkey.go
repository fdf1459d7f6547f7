// Package pubkey contains the interfaces shared by the public key
// algorithms, the EMSA1 signature encoding, signers and verifiers, and
// the SubjectPublicKeyInfo and PKCS#8 key encodings.
package pubkey

import (
	"io"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/internal/logging"
)

type PublicKey interface {
	// Name of the algorithm, eg. "DSA" or "ECDSA".
	Algorithm() string

	// Identifies the algorithm and its domain parameters.
	AlgorithmIdentifier() asn1.AlgorithmIdentifier

	// Contents of the subjectPublicKey BIT STRING.
	PublicBits() []byte

	// Number of integers a signature consists of.
	MessageParts() int

	// Length in bytes of each integer of a signature.
	MessagePartSize() int

	// Number of bits of the encoded message the signature operation uses.
	MaxInputBits() int

	// Checks the consistency of the key.  With strong set, expensive
	// checks such as primality tests are performed as well.
	CheckKey(rng io.Reader, strong bool) bool

	// Verifies the signature sig (the concatenated message parts) of the
	// encoded message msg.
	VerifyRaw(msg, sig []byte) bool
}

type PrivateKey interface {
	PublicKey

	// Contents of the privateKey OCTET STRING of PKCS#8.
	PrivateBits() []byte

	// Returns the public key.
	Public() PublicKey

	// Signs the encoded message msg.  Returns the concatenated message
	// parts.
	SignRaw(rng io.Reader, msg []byte) ([]byte, error)
}

// Encoding of signatures with more than one part.
type Format int

const (
	// Concatenation of the parts, each padded to MessagePartSize.
	IEEE1363 Format = iota

	// DER SEQUENCE of INTEGERs.
	DERSequence
)

func (f Format) String() string {
	if f == DERSequence {
		return "DER"
	}
	return "IEEE1363"
}

func log(format string, a ...interface{}) {
	logging.Logf(format, a...)
}
