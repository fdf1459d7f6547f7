package pubkey

import (
	"encoding/pem"
	"sync"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

const (
	PublicKeyLabel  = "PUBLIC KEY"
	PrivateKeyLabel = "PRIVATE KEY"
)

// Constructs a key from its AlgorithmIdentifier and encoded key bits.
type (
	PublicKeyLoader  func(id asn1.AlgorithmIdentifier, bits []byte) (PublicKey, error)
	PrivateKeyLoader func(id asn1.AlgorithmIdentifier, bits []byte) (PrivateKey, error)
)

type keyType struct {
	loadPublic  PublicKeyLoader
	loadPrivate PrivateKeyLoader
}

var (
	keyTypesLock sync.RWMutex
	keyTypes     = make(map[string]keyType)
)

// Registers the loaders of the key algorithm with the given name.  The
// name must have an OID registered in the asn1 package.
func RegisterKeyType(name string, pub PublicKeyLoader, priv PrivateKeyLoader) {
	keyTypesLock.Lock()
	defer keyTypesLock.Unlock()
	keyTypes[name] = keyType{pub, priv}
}

func lookupKeyType(id asn1.AlgorithmIdentifier) (string, keyType, error) {
	name, ok := asn1.NameOfOID(id.OID)
	if !ok {
		return "", keyType{}, errs.Errorf(errs.NotFound,
			"unknown key algorithm %s", id.OID)
	}
	keyTypesLock.RLock()
	defer keyTypesLock.RUnlock()
	kt, ok := keyTypes[name]
	if !ok {
		return "", keyType{}, errs.Errorf(errs.NotFound,
			"no loader for %s keys", name)
	}
	return name, kt, nil
}

// Encodes key as a SubjectPublicKeyInfo.
func EncodePublicKey(key PublicKey) ([]byte, error) {
	id := key.AlgorithmIdentifier()
	e := asn1.NewEncoder()
	e.StartSequence()
	e.Encode(&id)
	e.EncodeBitString(key.PublicBits())
	e.EndCons()
	return e.Bytes()
}

// Decodes a SubjectPublicKeyInfo.
func DecodePublicKey(der []byte) (PublicKey, error) {
	d := asn1.NewDecoder(der)
	var id asn1.AlgorithmIdentifier
	seq, err := d.StartSequence()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "SubjectPublicKeyInfo")
	}
	if err = seq.Decode(&id); err != nil {
		return nil, err
	}
	bits, err := seq.DecodeBitString()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "SubjectPublicKeyInfo")
	}
	if _, err = seq.EndCons(); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "SubjectPublicKeyInfo")
	}
	if err = d.VerifyEnd(); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "SubjectPublicKeyInfo")
	}

	name, kt, err := lookupKeyType(id)
	if err != nil {
		return nil, err
	}
	key, err := kt.loadPublic(id, bits)
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "%s public key", name)
	}
	return key, nil
}

// Encodes key as a PKCS#8 PrivateKeyInfo.
func EncodePrivateKey(key PrivateKey) ([]byte, error) {
	id := key.AlgorithmIdentifier()
	e := asn1.NewEncoder()
	e.StartSequence()
	e.EncodeInt(0)
	e.Encode(&id)
	e.EncodeOctetString(key.PrivateBits())
	e.EndCons()
	return e.Bytes()
}

// Decodes a PKCS#8 PrivateKeyInfo.
func DecodePrivateKey(der []byte) (PrivateKey, error) {
	d := asn1.NewDecoder(der)
	var id asn1.AlgorithmIdentifier
	seq, err := d.StartSequence()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PrivateKeyInfo")
	}
	version, err := seq.DecodeInt()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PrivateKeyInfo")
	}
	if version != 0 {
		return nil, errs.Errorf(errs.DecodingError,
			"PrivateKeyInfo: unknown version %d", version)
	}
	if err = seq.Decode(&id); err != nil {
		return nil, err
	}
	bits, err := seq.DecodeOctetString()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PrivateKeyInfo")
	}

	// Attributes are ignored.
	if _, err = seq.DecodeOptional(0, asn1.ContextSpecific|asn1.Constructed); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PrivateKeyInfo")
	}
	if _, err = seq.EndCons(); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PrivateKeyInfo")
	}
	if err = d.VerifyEnd(); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PrivateKeyInfo")
	}

	name, kt, err := lookupKeyType(id)
	if err != nil {
		return nil, err
	}
	key, err := kt.loadPrivate(id, bits)
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "%s private key", name)
	}
	return key, nil
}

// Wraps der in a PEM block with the given label.
func EncodePEM(der []byte, label string) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: label, Bytes: der})
}

// Extracts the first PEM block from data.  Its label must be one of
// labels.  Returns the contents and the label.
func DecodePEM(data []byte, labels ...string) ([]byte, string, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, "", errs.Errorf(errs.DecodingError, "PEM: no block found")
	}
	for _, label := range labels {
		if block.Type == label {
			return block.Bytes, label, nil
		}
	}
	return nil, "", errs.Errorf(errs.DecodingError,
		"PEM: unexpected label %s", block.Type)
}

// Returns the PEM encoded SubjectPublicKeyInfo of key.
func PublicKeyToPEM(key PublicKey) ([]byte, error) {
	der, err := EncodePublicKey(key)
	if err != nil {
		return nil, err
	}
	return EncodePEM(der, PublicKeyLabel), nil
}

// Returns the PEM encoded PKCS#8 encoding of key.
func PrivateKeyToPEM(key PrivateKey) ([]byte, error) {
	der, err := EncodePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return EncodePEM(der, PrivateKeyLabel), nil
}

// Decodes a public key encoded in PEM or in BER.
func LoadPublicKey(data []byte) (PublicKey, error) {
	if asn1.MaybeBER(firstByte(data)) {
		return DecodePublicKey(data)
	}
	der, _, err := DecodePEM(data, PublicKeyLabel)
	if err != nil {
		return nil, err
	}
	return DecodePublicKey(der)
}

// Decodes an unencrypted private key encoded in PEM or in BER.
func LoadPrivateKey(data []byte) (PrivateKey, error) {
	if asn1.MaybeBER(firstByte(data)) {
		return DecodePrivateKey(data)
	}
	der, _, err := DecodePEM(data, PrivateKeyLabel)
	if err != nil {
		return nil, err
	}
	return DecodePrivateKey(der)
}

func firstByte(data []byte) byte {
	if len(data) == 0 {
		return 0
	}
	return data[0]
}
