package pbe

import (
	"io"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

// PEM label for an encoded envelope.
const PEMLabel = "PBES2 ENCRYPTED DATA"

// Encrypts plaintext under password with fresh parameters and returns
//
//	SEQUENCE { AlgorithmIdentifier(PBE-PKCS5v20, params), OCTET STRING }
//
// cipherSpec may be empty for DefaultCipher.
func Seal(rng io.Reader, password string, plaintext []byte, cipherSpec string) (
	[]byte, error) {
	p, err := New(cipherSpec, "")
	if err != nil {
		return nil, err
	}
	if err = p.NewParams(rng); err != nil {
		return nil, err
	}
	if err = p.SetPassphrase(password); err != nil {
		return nil, err
	}
	ct, err := p.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	params, err := p.EncodeParams()
	if err != nil {
		return nil, err
	}
	id, err := asn1.NewAlgorithmIdentifier("PBE-PKCS5v20", params, false)
	if err != nil {
		return nil, err
	}

	e := asn1.NewEncoder()
	e.StartSequence()
	e.Encode(&id)
	e.EncodeOctetString(ct)
	e.EndCons()
	return e.Bytes()
}

// Decrypts an envelope produced by Seal.
func Open(password string, der []byte) ([]byte, error) {
	d := asn1.NewDecoder(der)
	seq, err := d.StartSequence()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PBES2 envelope")
	}
	var id asn1.AlgorithmIdentifier
	if err = seq.Decode(&id); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PBES2 envelope")
	}
	ct, err := seq.DecodeOctetString()
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PBES2 envelope")
	}
	if _, err = seq.EndCons(); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PBES2 envelope")
	}
	if err = d.VerifyEnd(); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "PBES2 envelope")
	}
	if id.Name() != "PBE-PKCS5v20" {
		return nil, errs.Errorf(errs.DecodingError,
			"PBES2 envelope: unsupported scheme %s", id.Name())
	}

	p, err := DecodeParams(id.Parameters)
	if err != nil {
		return nil, err
	}
	if err = p.SetPassphrase(password); err != nil {
		return nil, err
	}
	return p.Decrypt(ct)
}
