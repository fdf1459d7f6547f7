package asn1

import (
	stdasn1 "encoding/asn1"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Maximum nesting of indefinite length encodings.
const maxIndefDepth = 16

// Reads BER encoded objects one at a time.
//
// A Decoder for the contents of a constructed object is obtained with
// StartCons; EndCons checks it has been consumed and returns the parent.
type Decoder struct {
	data   []byte
	pushed *Object
	raw    []byte // encoding of pushed
	parent *Decoder
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func decodingError(format string, a ...interface{}) errs.Error {
	return errs.Errorf(errs.DecodingError, format, a...)
}

// Parses the object at the start of data.  Returns the object, its full
// encoding and the remaining input.
func readObject(data []byte, depth int) (obj Object, raw, rest []byte, err error) {
	if len(data) == 0 {
		err = decodingError("BER: unexpected end of data")
		return
	}
	b := data[0]
	obj.Class = Class(b & 0xE0)
	obj.Tag = Tag(b & 0x1F)
	pos := 1

	if obj.Tag == 0x1F {
		obj.Tag = 0
		for {
			if pos >= len(data) {
				err = decodingError("BER: long-form tag truncated")
				return
			}
			b = data[pos]
			pos++
			if obj.Tag == 0 && b == 0x80 {
				err = decodingError("BER: long-form tag has leading zeroes")
				return
			}
			if obj.Tag>>21 != 0 {
				err = decodingError("BER: tag number too large")
				return
			}
			obj.Tag = obj.Tag<<7 | Tag(b&0x7F)
			if b&0x80 == 0 {
				break
			}
		}
	}

	if pos >= len(data) {
		err = decodingError("BER: length field missing")
		return
	}
	lb := data[pos]
	pos++

	var length int
	switch {
	case lb < 0x80:
		length = int(lb)
	case lb == 0x80:
		if !obj.IsConstructed() {
			err = decodingError("BER: indefinite length on primitive object")
			return
		}
		if depth >= maxIndefDepth {
			err = decodingError("BER: nested indefinite lengths too deep")
			return
		}
		var n int
		n, err = findEOC(data[pos:], depth+1)
		if err != nil {
			return
		}
		obj.Value = data[pos : pos+n]
		raw = data[:pos+n+2]
		rest = data[pos+n+2:]
		return
	default:
		n := int(lb & 0x7F)
		if n > 4 {
			err = decodingError("BER: length field of %d bytes is too long", n)
			return
		}
		if pos+n > len(data) {
			err = decodingError("BER: length field truncated")
			return
		}
		for i := 0; i < n; i++ {
			length = length<<8 | int(data[pos+i])
		}
		pos += n
	}

	if length > len(data)-pos {
		err = decodingError("BER: value of %d bytes truncated to %d",
			length, len(data)-pos)
		return
	}
	obj.Value = data[pos : pos+length]
	raw = data[:pos+length]
	rest = data[pos+length:]
	return
}

// Returns the offset of the end-of-contents marker of an indefinite
// length encoding.
func findEOC(data []byte, depth int) (int, error) {
	offset := 0
	for {
		if len(data)-offset < 2 {
			return 0, decodingError("BER: missing end-of-contents")
		}
		if data[offset] == 0 && data[offset+1] == 0 {
			return offset, nil
		}
		_, _, rest, err := readObject(data[offset:], depth)
		if err != nil {
			return 0, err
		}
		offset = len(data) - len(rest)
	}
}

// Returns whether there is anything left to decode.
func (d *Decoder) MoreItems() bool {
	return d.pushed != nil || len(d.data) > 0
}

// Returns the next object.
func (d *Decoder) NextObject() (Object, error) {
	obj, _, err := d.next()
	return obj, err
}

func (d *Decoder) next() (Object, []byte, error) {
	if d.pushed != nil {
		obj, raw := *d.pushed, d.raw
		d.pushed, d.raw = nil, nil
		return obj, raw, nil
	}
	obj, raw, rest, err := readObject(d.data, 0)
	if err != nil {
		return obj, nil, err
	}
	d.data = rest
	return obj, raw, nil
}

// Like NextObject, but also returns the object's full encoding.
func (d *Decoder) NextRaw() (Object, []byte, error) {
	return d.next()
}

// Returns an object to the decoder.  Only a single object can be pushed
// back at a time.
func (d *Decoder) PushBack(obj Object, raw []byte) {
	if d.pushed != nil {
		panic(errs.Errorf(errs.InvalidState,
			"BER: cannot push back more than one object"))
	}
	d.pushed, d.raw = &obj, raw
}

// Returns the tag and class of the next object without consuming it.
// Returns NoObject if there is nothing left.
func (d *Decoder) PeekTag() (Tag, Class, error) {
	if !d.MoreItems() {
		return NoObject, Universal, nil
	}
	obj, raw, err := d.next()
	if err != nil {
		return NoObject, Universal, err
	}
	d.PushBack(obj, raw)
	return obj.Tag, obj.Class, nil
}

// Returns an error if there is data left.
func (d *Decoder) VerifyEnd() error {
	if !d.MoreItems() {
		return nil
	}
	return decodingError("BER: %d bytes of unexpected trailing data",
		len(d.raw)+len(d.data))
}

// Returns everything that is left, undecoded.
func (d *Decoder) RawBytes() []byte {
	ret := make([]byte, 0, len(d.raw)+len(d.data))
	ret = append(ret, d.raw...)
	ret = append(ret, d.data...)
	d.pushed, d.raw, d.data = nil, nil, nil
	return ret
}

// Reads the next object, which must have the given tag and class.
func (d *Decoder) Expect(tag Tag, class Class) (Object, error) {
	obj, err := d.NextObject()
	if err != nil {
		return obj, err
	}
	if !obj.IsA(tag, class) {
		return obj, decodingError("BER: expected %s %d, got %s %d",
			class, tag, obj.Class, obj.Tag)
	}
	return obj, nil
}

// Enters the constructed object with the given tag and class.  The
// returned Decoder reads its contents.
func (d *Decoder) StartCons(tag Tag, class Class) (*Decoder, error) {
	obj, err := d.Expect(tag, class|Constructed)
	if err != nil {
		return nil, err
	}
	return &Decoder{data: obj.Value, parent: d}, nil
}

// Shorthand for StartCons(Sequence, Universal).
func (d *Decoder) StartSequence() (*Decoder, error) {
	return d.StartCons(Sequence, Universal)
}

// Checks that the contents of the constructed object have been consumed
// and returns the decoder of the enclosing object.
func (d *Decoder) EndCons() (*Decoder, error) {
	if d.parent == nil {
		return nil, errs.Errorf(errs.InvalidState,
			"BER: EndCons called without StartCons")
	}
	if err := d.VerifyEnd(); err != nil {
		return nil, err
	}
	return d.parent, nil
}

// Decodes obj.
func (d *Decoder) Decode(obj Decodable) error {
	return obj.DecodeFrom(d)
}

// Returns the next object if it has the given tag and class and nil if
// it does not.
func (d *Decoder) DecodeOptional(tag Tag, class Class) (*Object, error) {
	t, c, err := d.PeekTag()
	if err != nil {
		return nil, err
	}
	if t != tag || c != class {
		return nil, nil
	}
	obj, err := d.NextObject()
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// Like StartCons, but returns nil if the next object is not of the
// requested type.
func (d *Decoder) StartOptionalCons(tag Tag, class Class) (*Decoder, error) {
	obj, err := d.DecodeOptional(tag, class|Constructed)
	if obj == nil || err != nil {
		return nil, err
	}
	return &Decoder{data: obj.Value, parent: d}, nil
}

// Wraps the contents of an implicitly tagged primitive in a universal
// header so that cryptobyte can parse them.
func reframe(tag cbasn1.Tag, contents []byte) *cryptobyte.String {
	var b cryptobyte.Builder
	b.AddASN1(tag, func(b *cryptobyte.Builder) {
		b.AddBytes(contents)
	})
	s := cryptobyte.String(b.BytesOrPanic())
	return &s
}

func (d *Decoder) DecodeInt() (int64, error) {
	return d.DecodeIntTagged(Integer, Universal)
}

func (d *Decoder) DecodeIntTagged(tag Tag, class Class) (int64, error) {
	obj, err := d.Expect(tag, class)
	if err != nil {
		return 0, err
	}
	var ret int64
	if !reframe(cbasn1.INTEGER, obj.Value).ReadASN1Integer(&ret) {
		return 0, decodingError("BER: invalid or oversized INTEGER")
	}
	return ret, nil
}

func (d *Decoder) DecodeBigInt() (bigint.Int, error) {
	return d.DecodeBigIntTagged(Integer, Universal)
}

func (d *Decoder) DecodeBigIntTagged(tag Tag, class Class) (bigint.Int, error) {
	obj, err := d.Expect(tag, class)
	if err != nil {
		return bigint.Int{}, err
	}
	ret := new(big.Int)
	if !reframe(cbasn1.INTEGER, obj.Value).ReadASN1Integer(ret) {
		return bigint.Int{}, decodingError("BER: invalid INTEGER")
	}
	return bigint.FromBig(ret), nil
}

func (d *Decoder) DecodeBool() (bool, error) {
	obj, err := d.Expect(Boolean, Universal)
	if err != nil {
		return false, err
	}
	var ret bool
	if !reframe(cbasn1.BOOLEAN, obj.Value).ReadASN1Boolean(&ret) {
		return false, decodingError("BER: invalid BOOLEAN")
	}
	return ret, nil
}

func (d *Decoder) DecodeOctetString() ([]byte, error) {
	return d.DecodeOctetStringTagged(OctetString, Universal)
}

func (d *Decoder) DecodeOctetStringTagged(tag Tag, class Class) ([]byte, error) {
	obj, err := d.Expect(tag, class)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, obj.Value...), nil
}

// Decodes a BIT STRING.  Unused trailing bits are dropped.
func (d *Decoder) DecodeBitString() ([]byte, error) {
	obj, err := d.Expect(BitString, Universal)
	if err != nil {
		return nil, err
	}
	if len(obj.Value) == 0 {
		return nil, decodingError("BER: BIT STRING without unused bits octet")
	}
	unused := obj.Value[0]
	if unused > 7 || (len(obj.Value) == 1 && unused != 0) {
		return nil, decodingError("BER: BIT STRING with %d unused bits", unused)
	}
	return append([]byte{}, obj.Value[1:]...), nil
}

func (d *Decoder) DecodeNull() error {
	obj, err := d.Expect(Null, Universal)
	if err != nil {
		return err
	}
	if len(obj.Value) != 0 {
		return decodingError("BER: NULL with contents")
	}
	return nil
}

func (d *Decoder) DecodeOID() (OID, error) {
	obj, err := d.Expect(ObjectID, Universal)
	if err != nil {
		return nil, err
	}
	var ret stdasn1.ObjectIdentifier
	if !reframe(cbasn1.OBJECT_IDENTIFIER, obj.Value).ReadASN1ObjectIdentifier(&ret) {
		return nil, decodingError("BER: invalid OBJECT IDENTIFIER")
	}
	return OID(ret), nil
}

// Decodes any of the universal string types.  Returns the value as UTF-8
// and the tag it was encoded with.
func (d *Decoder) DecodeString() (string, Tag, error) {
	obj, err := d.NextObject()
	if err != nil {
		return "", NoObject, err
	}
	if obj.Class != Universal || !IsStringType(obj.Tag) {
		return "", obj.Tag, decodingError("BER: expected a string, got %s %d",
			obj.Class, obj.Tag)
	}
	s, err := decodeString(obj.Value, obj.Tag)
	return s, obj.Tag, err
}

// Decodes an implicitly tagged string whose contents are interpreted as
// the universal string type as.
func (d *Decoder) DecodeStringTagged(tag Tag, class Class, as Tag) (string, error) {
	obj, err := d.Expect(tag, class)
	if err != nil {
		return "", err
	}
	return decodeString(obj.Value, as)
}
