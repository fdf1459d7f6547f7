// Package asn1 implements a BER decoder and a DER encoder for the ASN.1
// structures used by X.509, PKCS#8, PBES2 and EAC card verifiable
// certificates.
//
// Unlike encoding/asn1 the decoder is driven by the caller, one object at
// a time, which allows high tag numbers, BER indefinite lengths and
// implicitly tagged application types.
package asn1

import (
	stdasn1 "encoding/asn1"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwesterb/go-cryptocore/errs"
)

// Class (and constructed bit) of an ASN.1 identifier octet.
type Class byte

const (
	Universal       Class = 0x00
	Constructed     Class = 0x20
	Application     Class = 0x40
	ContextSpecific Class = 0x80
	Private         Class = 0xC0

	classMask = 0xC0
)

// Tag number of an ASN.1 object.
type Tag uint32

const (
	Eoc             Tag = 0x00
	Boolean         Tag = 0x01
	Integer         Tag = 0x02
	BitString       Tag = 0x03
	OctetString     Tag = 0x04
	Null            Tag = 0x05
	ObjectID        Tag = 0x06
	Enumerated      Tag = 0x0A
	UTF8String      Tag = 0x0C
	Sequence        Tag = 0x10
	Set             Tag = 0x11
	NumericString   Tag = 0x12
	PrintableString Tag = 0x13
	T61String       Tag = 0x14
	IA5String       Tag = 0x16
	UTCTime         Tag = 0x17
	GeneralizedTime Tag = 0x18
	VisibleString   Tag = 0x1A
	UniversalString Tag = 0x1C
	BMPString       Tag = 0x1E

	// Returned by Decoder.PeekTag when there is nothing left to decode.
	NoObject Tag = 0xFFFFFFFF
)

// A decoded tag-length-value triple.
type Object struct {
	Tag   Tag
	Class Class // including the Constructed bit
	Value []byte
}

// Returns whether the object has the given tag and class.
func (o *Object) IsA(tag Tag, class Class) bool {
	return o.Tag == tag && o.Class == class
}

func (o *Object) IsConstructed() bool {
	return o.Class&Constructed != 0
}

func (o *Object) String() string {
	return fmt.Sprintf("%s %d (%d bytes)", o.Class, o.Tag, len(o.Value))
}

func (c Class) String() string {
	var ret string
	switch c & classMask {
	case Universal:
		ret = "UNIVERSAL"
	case Application:
		ret = "APPLICATION"
	case ContextSpecific:
		ret = "CONTEXT_SPECIFIC"
	case Private:
		ret = "PRIVATE"
	}
	if c&Constructed != 0 {
		ret += "/CONSTRUCTED"
	}
	return ret
}

// Returns whether the first byte of some input suggests it is raw BER
// (a SEQUENCE) rather than PEM text.
func MaybeBER(first byte) bool {
	return first == byte(Sequence)|byte(Constructed)
}

// An object identifier.
type OID []int

// Parses a dotted decimal OID such as "1.2.840.113549.1.5.13".
func ParseOID(s string) (OID, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, errs.Errorf(errs.InvalidArgument,
			"OID %q has fewer than two components", s)
	}
	ret := make(OID, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, errs.Wrapf(err, errs.InvalidArgument,
				"Invalid OID component %q", part)
		}
		ret[i] = int(v)
	}
	if ret[0] > 2 || (ret[0] < 2 && ret[1] >= 40) {
		return nil, errs.Errorf(errs.InvalidArgument, "Invalid OID arc %s", s)
	}
	return ret, nil
}

// Like ParseOID, but panics on error.  For tables of constants.
func MustParseOID(s string) OID {
	ret, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return ret
}

func (oid OID) String() string {
	return stdasn1.ObjectIdentifier(oid).String()
}

func (oid OID) Equal(other OID) bool {
	return stdasn1.ObjectIdentifier(oid).Equal(stdasn1.ObjectIdentifier(other))
}

// Anything that can be read from a Decoder.
type Decodable interface {
	DecodeFrom(d *Decoder) error
}

// Anything that can be written to an Encoder.
type Encodable interface {
	EncodeInto(e *Encoder)
}

// Encodes obj on its own.
func Marshal(obj Encodable) ([]byte, error) {
	enc := NewEncoder()
	obj.EncodeInto(enc)
	return enc.Bytes()
}

// Decodes obj from der, which must contain exactly one object.
func Unmarshal(der []byte, obj Decodable) error {
	dec := NewDecoder(der)
	if err := obj.DecodeFrom(dec); err != nil {
		return err
	}
	return dec.VerifyEnd()
}
