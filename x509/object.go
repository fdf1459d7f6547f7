// Package x509 implements the X.509 SIGNED object framework, names and
// name constraints, and PKCS#10 certificate requests.
package x509

import (
	"bytes"
	"encoding/pem"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/internal/logging"
	"github.com/bwesterb/go-cryptocore/pubkey"
)

func log(format string, a ...interface{}) {
	logging.Logf(format, a...)
}

// Encoding of an Object.
type Encoding int

const (
	Raw Encoding = iota
	PEM
)

// Decodes the to-be-signed part of an Object into a friendly view.
type TBSDecoder interface {
	DecodeTBS(tbs []byte) error
}

// A SIGNED object:
//
//	SEQUENCE { SEQUENCE { tbs }, AlgorithmIdentifier, BIT STRING }
type Object struct {
	labels    []string // accepted PEM labels, sorted
	preferred string   // label used for encoding

	tbs    []byte // contents of the tbs SEQUENCE
	sigAlg asn1.AlgorithmIdentifier
	sig    []byte

	decoder TBSDecoder
}

// Creates an empty object that accepts the given PEM labels, separated by
// "/".  The first label is used when encoding.
func NewObject(labels string, decoder TBSDecoder) *Object {
	o := &Object{decoder: decoder}
	o.labels = strings.Split(labels, "/")
	o.preferred = o.labels[0]
	sort.Strings(o.labels)
	return o
}

func (o *Object) acceptsLabel(label string) bool {
	i := sort.SearchStrings(o.labels, label)
	return i < len(o.labels) && o.labels[i] == label
}

// Decodes the object from PEM or BER.
func (o *Object) DecodeBytes(data []byte) error {
	if len(data) > 0 && asn1.MaybeBER(data[0]) && !bytes.HasPrefix(data, []byte("-----BEGIN")) {
		return o.decodeBER(data)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return errs.Errorf(errs.DecodingError,
			"%s decoding failed: neither BER nor PEM", o.preferred)
	}
	if !o.acceptsLabel(block.Type) {
		return errs.Errorf(errs.DecodingError, "Invalid PEM label: %s", block.Type)
	}
	return o.decodeBER(block.Bytes)
}

// Decodes the object from r.
func (o *Object) Decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "%s: reading", o.preferred)
	}
	return o.DecodeBytes(data)
}

// Decodes the object from the file at path.
func (o *Object) DecodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrapf(err, errs.NotFound, "%s: reading %s", o.preferred, path)
	}
	return o.DecodeBytes(data)
}

func (o *Object) decodeBER(der []byte) error {
	if err := o.decodeSigned(der); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "%s decoding failed", o.preferred)
	}
	if o.decoder != nil {
		if err := o.decoder.DecodeTBS(o.tbs); err != nil {
			return errs.Wrapf(err, errs.DecodingError, "%s decoding failed", o.preferred)
		}
	}
	return nil
}

func (o *Object) decodeSigned(der []byte) error {
	d := asn1.NewDecoder(der)
	outer, err := d.StartSequence()
	if err != nil {
		return err
	}
	tbs, err := outer.StartSequence()
	if err != nil {
		return err
	}
	o.tbs = tbs.RawBytes()
	if _, err = tbs.EndCons(); err != nil {
		return err
	}
	if err = outer.Decode(&o.sigAlg); err != nil {
		return err
	}
	if o.sig, err = outer.DecodeBitString(); err != nil {
		return err
	}
	if err = outer.VerifyEnd(); err != nil {
		return err
	}
	if _, err = outer.EndCons(); err != nil {
		return err
	}
	return d.VerifyEnd()
}

// Returns the DER encoding of the object.
func (o *Object) BER() []byte {
	e := asn1.NewEncoder()
	e.StartSequence()
	e.AddObject(asn1.Sequence, asn1.Universal|asn1.Constructed, o.tbs)
	e.Encode(&o.sigAlg)
	e.EncodeBitString(o.sig)
	e.EndCons()
	ret, err := e.Bytes()
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "Encoding %s", o.preferred))
	}
	return ret
}

// Encodes the object as DER or PEM.
func (o *Object) Encode(enc Encoding) []byte {
	if enc == PEM {
		return pem.EncodeToMemory(&pem.Block{Type: o.preferred, Bytes: o.BER()})
	}
	return o.BER()
}

// Returns the label used for PEM encoding.
func (o *Object) PEMLabel() string {
	return o.preferred
}

// Returns the signed data: the tbs SEQUENCE.
func (o *Object) TBSData() []byte {
	e := asn1.NewEncoder()
	e.AddObject(asn1.Sequence, asn1.Universal|asn1.Constructed, o.tbs)
	ret, _ := e.Bytes()
	return ret
}

// Returns the contents of the tbs SEQUENCE.
func (o *Object) TBSBits() []byte {
	return o.tbs
}

func (o *Object) SignatureAlgorithm() asn1.AlgorithmIdentifier {
	return o.sigAlg
}

func (o *Object) Signature() []byte {
	return o.sig
}

// Checks the signature with key.  Any failure, including an unknown or
// unsuitable signature algorithm, gives false.
func (o *Object) CheckSignature(key pubkey.PublicKey) bool {
	if key == nil {
		return false
	}
	ok := pubkey.VerifyWithAlgorithm(key, o.sigAlg, o.TBSData(), o.sig)
	if !ok {
		log("%s: signature by %s key does not verify", o.preferred, key.Algorithm())
	}
	return ok
}

// Signs tbs, a complete DER encoded tbs SEQUENCE, and returns the
// encoding of the resulting SIGNED object.
func MakeSigned(rng io.Reader, key pubkey.PrivateKey, padding string, tbs []byte) (
	[]byte, error) {
	sigAlg, sig, err := pubkey.SignWithAlgorithm(rng, key, padding, tbs)
	if err != nil {
		return nil, err
	}
	e := asn1.NewEncoder()
	e.StartSequence()
	e.RawBytes(tbs)
	e.Encode(&sigAlg)
	e.EncodeBitString(sig)
	e.EndCons()
	return e.Bytes()
}
