package asn1

import (
	"bytes"
	stdasn1 "encoding/asn1"
	"sort"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Writes DER.  Constructed objects are opened with StartCons and closed
// with EndCons.  The first error is kept and returned by Bytes.
type Encoder struct {
	out   []byte
	stack []*construction
	err   error
}

type construction struct {
	tag      Tag
	class    Class
	contents []byte
	setItems [][]byte // encoded members of a SET, sorted on EndCons
	isSet    bool
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) setErr(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Records err to be returned by Bytes.  Only the first error is kept.
// Lets an Encodable reject a value it cannot represent.
func (e *Encoder) Fail(err error) {
	e.setErr(err)
}

// Returns the encoding.  Fails if there are unclosed constructions or if
// any value could not be encoded.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.stack) != 0 {
		return nil, errs.Errorf(errs.InvalidState,
			"DER: %d constructions still open", len(e.stack))
	}
	return e.out, nil
}

// Appends the identifier and length octets of an object.
func appendHeader(b []byte, tag Tag, class Class, length int) []byte {
	if tag < 0x1F {
		b = append(b, byte(class)|byte(tag))
	} else {
		b = append(b, byte(class)|0x1F)
		var tmp [5]byte
		n := 0
		for t := tag; ; t >>= 7 {
			tmp[n] = byte(t & 0x7F)
			n++
			if t < 0x80 {
				break
			}
		}
		for i := n - 1; i >= 0; i-- {
			v := tmp[i]
			if i > 0 {
				v |= 0x80
			}
			b = append(b, v)
		}
	}

	if length < 0x80 {
		return append(b, byte(length))
	}
	n := 0
	for l := length; l > 0; l >>= 8 {
		n++
	}
	b = append(b, 0x80|byte(n))
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(length>>(8*uint(i))))
	}
	return b
}

func (e *Encoder) emit(encoded []byte) {
	if len(e.stack) == 0 {
		e.out = append(e.out, encoded...)
		return
	}
	top := e.stack[len(e.stack)-1]
	if top.isSet {
		top.setItems = append(top.setItems, encoded)
	} else {
		top.contents = append(top.contents, encoded...)
	}
}

// Writes an object with the given tag, class and contents.
func (e *Encoder) AddObject(tag Tag, class Class, value []byte) {
	encoded := appendHeader(make([]byte, 0, len(value)+8), tag, class, len(value))
	e.emit(append(encoded, value...))
}

// Writes already encoded objects.
func (e *Encoder) RawBytes(der []byte) {
	if len(der) == 0 {
		return
	}
	e.emit(append([]byte{}, der...))
}

// Opens a constructed object.  Members of a universal SET are sorted
// as DER requires.
func (e *Encoder) StartCons(tag Tag, class Class) {
	e.stack = append(e.stack, &construction{
		tag:   tag,
		class: class | Constructed,
		isSet: tag == Set && class&classMask == Universal,
	})
}

// Shorthand for StartCons(Sequence, Universal).
func (e *Encoder) StartSequence() {
	e.StartCons(Sequence, Universal)
}

// Closes the innermost open constructed object.
func (e *Encoder) EndCons() {
	if len(e.stack) == 0 {
		e.setErr(errs.Errorf(errs.InvalidState,
			"DER: EndCons called without StartCons"))
		return
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	if top.isSet {
		sort.Slice(top.setItems, func(i, j int) bool {
			return bytes.Compare(top.setItems[i], top.setItems[j]) < 0
		})
		for _, item := range top.setItems {
			top.contents = append(top.contents, item...)
		}
	}
	e.AddObject(top.tag, top.class, top.contents)
}

// Encodes obj.
func (e *Encoder) Encode(obj Encodable) {
	obj.EncodeInto(e)
}

// Runs f on a cryptobyte.Builder and returns the contents of the single
// object of type tag that it produced.
func (e *Encoder) primitive(tag cbasn1.Tag, f func(b *cryptobyte.Builder)) ([]byte, bool) {
	var b cryptobyte.Builder
	f(&b)
	der, err := b.Bytes()
	if err != nil {
		e.setErr(errs.Wrapf(err, errs.InvalidArgument, "DER: cannot encode value"))
		return nil, false
	}
	s := cryptobyte.String(der)
	var contents cryptobyte.String
	if !s.ReadASN1(&contents, tag) {
		e.setErr(errs.Errorf(errs.InternalError, "DER: unexpected encoding"))
		return nil, false
	}
	return contents, true
}

func (e *Encoder) EncodeInt(v int64) {
	e.EncodeIntTagged(v, Integer, Universal)
}

func (e *Encoder) EncodeIntTagged(v int64, tag Tag, class Class) {
	contents, ok := e.primitive(cbasn1.INTEGER, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(v)
	})
	if ok {
		e.AddObject(tag, class, contents)
	}
}

func (e *Encoder) EncodeBigInt(x bigint.Int) {
	e.EncodeBigIntTagged(x, Integer, Universal)
}

func (e *Encoder) EncodeBigIntTagged(x bigint.Int, tag Tag, class Class) {
	contents, ok := e.primitive(cbasn1.INTEGER, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(x.Big())
	})
	if ok {
		e.AddObject(tag, class, contents)
	}
}

func (e *Encoder) EncodeBool(v bool) {
	contents, ok := e.primitive(cbasn1.BOOLEAN, func(b *cryptobyte.Builder) {
		b.AddASN1Boolean(v)
	})
	if ok {
		e.AddObject(Boolean, Universal, contents)
	}
}

func (e *Encoder) EncodeOctetString(v []byte) {
	e.AddObject(OctetString, Universal, v)
}

func (e *Encoder) EncodeOctetStringTagged(v []byte, tag Tag, class Class) {
	e.AddObject(tag, class, v)
}

// Encodes v as a BIT STRING without unused bits.
func (e *Encoder) EncodeBitString(v []byte) {
	e.AddObject(BitString, Universal, append([]byte{0}, v...))
}

func (e *Encoder) EncodeNull() {
	e.AddObject(Null, Universal, nil)
}

func (e *Encoder) EncodeOID(oid OID) {
	contents, ok := e.primitive(cbasn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(stdasn1.ObjectIdentifier(oid))
	})
	if ok {
		e.AddObject(ObjectID, Universal, contents)
	}
}

// Encodes s as the universal string type tag.
func (e *Encoder) EncodeString(s string, tag Tag) {
	e.EncodeStringTagged(s, tag, Universal, tag)
}

// Encodes s in the representation of the universal string type as, with
// the given (implicit) tag and class.
func (e *Encoder) EncodeStringTagged(s string, tag Tag, class Class, as Tag) {
	contents, ok := encodeString(s, as)
	if !ok {
		e.setErr(errs.Errorf(errs.InvalidArgument,
			"DER: %q cannot be encoded as string type %d", s, as))
		return
	}
	e.AddObject(tag, class, contents)
}
