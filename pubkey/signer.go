package pubkey

import (
	"bytes"
	"io"
	"strings"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Creates signatures with a private key.
type Signer struct {
	key    PrivateKey
	emsa   *EMSA1
	format Format
}

// Creates a signer for key using the given padding, eg. "EMSA1(SHA-256)".
func NewSigner(key PrivateKey, padding string, format Format) (*Signer, error) {
	emsa, err := ParsePadding(padding)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key, emsa: emsa, format: format}, nil
}

// Adds data to the message to be signed.
func (s *Signer) Update(msg []byte) {
	s.emsa.Update(msg)
}

// Signs the message passed to Update and resets the signer.
func (s *Signer) Signature(rng io.Reader) ([]byte, error) {
	encoded, err := s.emsa.EncodingOf(s.emsa.RawData(), s.key.MaxInputBits())
	if err != nil {
		return nil, err
	}
	plain, err := s.key.SignRaw(rng, encoded)
	if err != nil {
		return nil, err
	}

	// A faulty signature may leak the key.
	if !s.key.VerifyRaw(encoded, plain) {
		return nil, errs.Errorf(errs.InternalError,
			"%s signature failed self-test", s.key.Algorithm())
	}
	log("Signed with %s/%s", s.key.Algorithm(), s.emsa.Name())

	if s.format == IEEE1363 || s.key.MessageParts() == 1 {
		return plain, nil
	}
	return encodeDERSignature(plain, s.key.MessageParts())
}

// Signs msg.
func (s *Signer) SignMessage(rng io.Reader, msg []byte) ([]byte, error) {
	s.Update(msg)
	return s.Signature(rng)
}

func encodeDERSignature(plain []byte, parts int) ([]byte, error) {
	if len(plain)%parts != 0 {
		return nil, errs.Errorf(errs.InternalError,
			"signature of %d bytes does not split into %d parts", len(plain), parts)
	}
	size := len(plain) / parts
	e := asn1.NewEncoder()
	e.StartSequence()
	for i := 0; i < parts; i++ {
		e.EncodeBigInt(bigint.FromBytes(plain[i*size : (i+1)*size]))
	}
	e.EndCons()
	return e.Bytes()
}

func decodeDERSignature(sig []byte, parts, size int) ([]byte, error) {
	d := asn1.NewDecoder(sig)
	seq, err := d.StartSequence()
	if err != nil {
		return nil, err
	}
	var ret []byte
	count := 0
	for seq.MoreItems() {
		x, err := seq.DecodeBigInt()
		if err != nil {
			return nil, err
		}
		if x.IsNeg() {
			return nil, errs.Errorf(errs.DecodingError, "negative signature part")
		}
		buf, err := x.FillBytes(size)
		if err != nil {
			return nil, errs.Wrapf(err, errs.DecodingError, "signature part")
		}
		ret = append(ret, buf...)
		count++
	}
	if count != parts {
		return nil, errs.Errorf(errs.DecodingError,
			"signature has %d parts instead of %d", count, parts)
	}
	if _, err = seq.EndCons(); err != nil {
		return nil, err
	}
	if err = d.VerifyEnd(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Checks signatures with a public key.
type Verifier struct {
	key    PublicKey
	emsa   *EMSA1
	format Format
}

// Creates a verifier for key using the given padding.
func NewVerifier(key PublicKey, padding string, format Format) (*Verifier, error) {
	emsa, err := ParsePadding(padding)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key, emsa: emsa, format: format}, nil
}

// Adds data to the message to be verified.
func (v *Verifier) Update(msg []byte) {
	v.emsa.Update(msg)
}

// Checks sig against the message passed to Update and resets the
// verifier.  Malformed signatures are reported as invalid.
func (v *Verifier) Check(sig []byte) bool {
	raw := v.emsa.RawData()
	if v.format == DERSequence && v.key.MessageParts() > 1 {
		var err error
		sig, err = decodeDERSignature(sig, v.key.MessageParts(), v.key.MessagePartSize())
		if err != nil {
			log("Rejecting signature: %v", err)
			return false
		}
	}
	if len(sig) != v.key.MessageParts()*v.key.MessagePartSize() {
		return false
	}
	encoded, err := v.emsa.EncodingOf(raw, v.key.MaxInputBits())
	if err != nil {
		return false
	}
	return v.key.VerifyRaw(encoded, sig)
}

// Checks sig on msg.
func (v *Verifier) VerifyMessage(msg, sig []byte) bool {
	v.Update(msg)
	return v.Check(sig)
}

// Returns the AlgorithmIdentifier of signatures made by key with the
// given padding, eg. DSA/EMSA1(SHA-256).  Its parameters are absent.
func SignatureAlgorithm(key PublicKey, padding string) (asn1.AlgorithmIdentifier, error) {
	emsa, err := ParsePadding(padding)
	if err != nil {
		return asn1.AlgorithmIdentifier{}, err
	}
	return asn1.NewAlgorithmIdentifier(key.Algorithm()+"/"+emsa.Name(), nil, false)
}

// Splits the name of a signature AlgorithmIdentifier into the key
// algorithm and padding.
func ParseSignatureAlgorithm(id asn1.AlgorithmIdentifier) (algo, padding string, err error) {
	name, ok := asn1.NameOfOID(id.OID)
	if !ok {
		return "", "", errs.Errorf(errs.NotFound,
			"unknown signature algorithm %s", id.OID)
	}
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errs.Errorf(errs.DecodingError,
			"%s is not a signature algorithm", name)
	}
	return parts[0], parts[1], nil
}

// Checks the signature sig over msg made with the signature algorithm
// id.  The algorithm must match the key.  Signatures with more than one
// part are DER encoded.
func VerifyWithAlgorithm(key PublicKey, id asn1.AlgorithmIdentifier, msg, sig []byte) bool {
	algo, padding, err := ParseSignatureAlgorithm(id)
	if err != nil {
		log("Rejecting signature: %v", err)
		return false
	}
	if algo != key.Algorithm() {
		log("Rejecting %s signature for %s key", algo, key.Algorithm())
		return false
	}
	format := IEEE1363
	if key.MessageParts() >= 2 {
		format = DERSequence
	}
	v, err := NewVerifier(key, padding, format)
	if err != nil {
		log("Rejecting signature: %v", err)
		return false
	}
	return v.VerifyMessage(msg, sig)
}

// Signs msg with the signature algorithm SignatureAlgorithm(key, padding)
// describes.
func SignWithAlgorithm(rng io.Reader, key PrivateKey, padding string, msg []byte) (
	asn1.AlgorithmIdentifier, []byte, error) {
	id, err := SignatureAlgorithm(key, padding)
	if err != nil {
		return id, nil, err
	}
	format := IEEE1363
	if key.MessageParts() >= 2 {
		format = DERSequence
	}
	s, err := NewSigner(key, padding, format)
	if err != nil {
		return id, nil, err
	}
	sig, err := s.SignMessage(rng, msg)
	return id, sig, err
}

// Compares two public keys by their encodings.
func PublicKeysEqual(a, b PublicKey) bool {
	aid, bid := a.AlgorithmIdentifier(), b.AlgorithmIdentifier()
	return aid.Equal(&bid) && bytes.Equal(a.PublicBits(), b.PublicBits())
}
