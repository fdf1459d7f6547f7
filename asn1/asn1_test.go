package asn1

import (
	"encoding/hex"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"pgregory.net/rapid"

	"github.com/bwesterb/go-cryptocore/bigint"
	"github.com/bwesterb/go-cryptocore/errs"
)

func mustHex(s string) []byte {
	ret, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return ret
}

func TestHeaderEncoding(t *testing.T) {
	for _, tc := range []struct {
		tag    Tag
		class  Class
		length int
		expect string
	}{
		{Sequence, Universal | Constructed, 3, "3003"},
		{Integer, Universal, 127, "027f"},
		{OctetString, Universal, 128, "048180"},
		{OctetString, Universal, 0x1234, "04821234"},
		{0x24, Application, 6, "5f2406"},
		{0x25, Application, 6, "5f2506"},
		{0x4c, Application | Constructed, 0, "7f4c00"},
		{200, ContextSpecific, 1, "9f814801"},
	} {
		got := hex.EncodeToString(appendHeader(nil, tc.tag, tc.class, tc.length))
		assert.Check(t, is.Equal(got, tc.expect), "tag %d", tc.tag)
	}
}

func TestReadHighTag(t *testing.T) {
	dec := NewDecoder(mustHex("9f814801aa"))
	obj, err := dec.NextObject()
	assert.NilError(t, err)
	assert.Check(t, obj.IsA(200, ContextSpecific))
	assert.Check(t, is.DeepEqual(obj.Value, []byte{0xaa}))
	assert.Check(t, !dec.MoreItems())
}

func TestIndefiniteLength(t *testing.T) {
	// SEQUENCE (indefinite) { INTEGER 5, SEQUENCE (indefinite) { NULL } }
	data := mustHex("3080020105308005000000" + "0000" + "0401ff")
	dec := NewDecoder(data)
	seq, err := dec.StartSequence()
	assert.NilError(t, err)
	v, err := seq.DecodeInt()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(v, int64(5)))
	inner, err := seq.StartSequence()
	assert.NilError(t, err)
	assert.NilError(t, inner.DecodeNull())
	_, err = inner.EndCons()
	assert.NilError(t, err)
	_, err = seq.EndCons()
	assert.NilError(t, err)
	os, err := dec.DecodeOctetString()
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(os, []byte{0xff}))
}

func TestDecodingErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"truncated value", "0405aabb"},
		{"truncated length", "0482ff"},
		{"long length field", "0485ffffffffff"},
		{"indefinite primitive", "0480aa0000"},
		{"missing eoc", "3080020101"},
		{"truncated tag", "1f81"},
		{"leading zero tag", "1f8001aa"},
	} {
		_, err := NewDecoder(mustHex(tc.data)).NextObject()
		assert.Check(t, errs.Is(err, errs.DecodingError), tc.name)
	}

	_, err := NewDecoder(mustHex("020100")).DecodeOctetString()
	assert.Check(t, errs.Is(err, errs.DecodingError))

	// non-minimal INTEGER
	_, err = NewDecoder(mustHex("02020001")).DecodeInt()
	assert.Check(t, errs.Is(err, errs.DecodingError))

	err = Unmarshal(mustHex("050000"), nullValue{})
	assert.Check(t, errs.Is(err, errs.DecodingError))
}

type nullValue struct{}

func (nullValue) DecodeFrom(d *Decoder) error { return d.DecodeNull() }
func (nullValue) EncodeInto(e *Encoder)       { e.EncodeNull() }

func TestPrimitiveRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		i := rapid.Int64().Draw(t, "i")
		big := bigint.FromBytes(rapid.SliceOf(rapid.Byte()).Draw(t, "big"))
		if rapid.Bool().Draw(t, "neg") {
			big = big.Neg()
		}
		b := rapid.Bool().Draw(t, "b")
		os := rapid.SliceOf(rapid.Byte()).Draw(t, "os")
		oid := OID{rapid.IntRange(0, 2).Draw(t, "arc0"),
			rapid.IntRange(0, 39).Draw(t, "arc1"),
			rapid.IntRange(0, 1<<30).Draw(t, "arc2")}
		s := rapid.StringMatching(`[A-Za-z0-9 ]{0,40}`).Draw(t, "s")
		tag := Tag(rapid.IntRange(0, 1<<20).Draw(t, "tag"))

		enc := NewEncoder()
		enc.StartSequence()
		enc.EncodeInt(i)
		enc.EncodeBigInt(big)
		enc.EncodeBool(b)
		enc.EncodeOctetString(os)
		enc.EncodeOID(oid)
		enc.EncodeString(s, PrintableString)
		enc.EncodeIntTagged(i, tag, ContextSpecific)
		enc.EncodeBitString(os)
		enc.EndCons()
		der, err := enc.Bytes()
		if err != nil {
			t.Fatalf("Bytes(): %v", err)
		}

		seq, err := NewDecoder(der).StartSequence()
		if err != nil {
			t.Fatalf("StartSequence(): %v", err)
		}
		i2, err := seq.DecodeInt()
		if err != nil || i2 != i {
			t.Fatalf("DecodeInt(): %v %d", err, i2)
		}
		big2, err := seq.DecodeBigInt()
		if err != nil || !big2.Equal(big) {
			t.Fatalf("DecodeBigInt(): %v %v", err, big2)
		}
		b2, err := seq.DecodeBool()
		if err != nil || b2 != b {
			t.Fatalf("DecodeBool(): %v", err)
		}
		os2, err := seq.DecodeOctetString()
		if err != nil || string(os2) != string(os) {
			t.Fatalf("DecodeOctetString(): %v", err)
		}
		oid2, err := seq.DecodeOID()
		if err != nil || !oid2.Equal(oid) {
			t.Fatalf("DecodeOID(): %v %v", err, oid2)
		}
		s2, st, err := seq.DecodeString()
		if err != nil || s2 != s || st != PrintableString {
			t.Fatalf("DecodeString(): %v %q", err, s2)
		}
		i3, err := seq.DecodeIntTagged(tag, ContextSpecific)
		if err != nil || i3 != i {
			t.Fatalf("DecodeIntTagged(): %v", err)
		}
		bs, err := seq.DecodeBitString()
		if err != nil || string(bs) != string(os) {
			t.Fatalf("DecodeBitString(): %v", err)
		}
		if _, err = seq.EndCons(); err != nil {
			t.Fatalf("EndCons(): %v", err)
		}
	})
}

func TestKnownEncodings(t *testing.T) {
	enc := NewEncoder()
	enc.EncodeInt(-129)
	enc.EncodeBigInt(bigint.New(128))
	enc.EncodeOID(MustParseOID("1.2.840.113549.1.5.13"))
	enc.EncodeBool(true)
	enc.EncodeString("é", BMPString)
	der, err := enc.Bytes()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(hex.EncodeToString(der),
		"0202ff7f"+"02020080"+"06092a864886f70d01050d"+"0101ff"+"1e0200e9"))
}

func TestSetIsSorted(t *testing.T) {
	enc := NewEncoder()
	enc.StartCons(Set, Universal)
	enc.EncodeInt(3)
	enc.EncodeInt(1)
	enc.EncodeOctetString([]byte{0})
	enc.EncodeInt(2)
	enc.EndCons()
	der, err := enc.Bytes()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(hex.EncodeToString(der), "310c020101020102020103040100"))
}

func TestEncoderState(t *testing.T) {
	enc := NewEncoder()
	enc.StartSequence()
	_, err := enc.Bytes()
	assert.Check(t, errs.Is(err, errs.InvalidState))

	enc = NewEncoder()
	enc.EndCons()
	_, err = enc.Bytes()
	assert.Check(t, errs.Is(err, errs.InvalidState))

	enc = NewEncoder()
	enc.EncodeString("ü", PrintableString)
	_, err = enc.Bytes()
	assert.Check(t, errs.Is(err, errs.InvalidArgument))
}

func TestPeekAndOptional(t *testing.T) {
	enc := NewEncoder()
	enc.EncodeIntTagged(7, 0, ContextSpecific)
	enc.EncodeNull()
	der, err := enc.Bytes()
	assert.NilError(t, err)

	dec := NewDecoder(der)
	tag, class, err := dec.PeekTag()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(tag, Tag(0)))
	assert.Check(t, is.Equal(class, ContextSpecific))

	obj, err := dec.DecodeOptional(1, ContextSpecific)
	assert.NilError(t, err)
	assert.Check(t, obj == nil)
	v, err := dec.DecodeIntTagged(0, ContextSpecific)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(v, int64(7)))

	assert.Check(t, is.DeepEqual(dec.RawBytes(), []byte{5, 0}))
	tag, _, err = dec.PeekTag()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(tag, NoObject))
}

func TestOIDs(t *testing.T) {
	oid, err := OIDFromName("PBE-PKCS5v20")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(oid.String(), "1.2.840.113549.1.5.13"))
	assert.Check(t, is.Equal(oid.Name(), "PBE-PKCS5v20"))

	oid, err = OIDFromName("1.2.3.4")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(oid.Name(), "1.2.3.4"))

	_, err = OIDFromName("No-Such-Thing")
	assert.Check(t, errs.Is(err, errs.NotFound))

	_, err = ParseOID("3.1")
	assert.Check(t, errs.Is(err, errs.InvalidArgument))
	_, err = ParseOID("1.40.2")
	assert.Check(t, errs.Is(err, errs.InvalidArgument))
}

func TestAlgorithmIdentifier(t *testing.T) {
	withNull, err := NewAlgorithmIdentifier("SHA-256", nil, true)
	assert.NilError(t, err)
	without, err := NewAlgorithmIdentifier("SHA-256", nil, false)
	assert.NilError(t, err)
	assert.Check(t, withNull.Equal(&without))

	der, err := Marshal(&withNull)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(hex.EncodeToString(der),
		"300d06096086480165030402010500"))

	var decoded AlgorithmIdentifier
	assert.NilError(t, Unmarshal(der, &decoded))
	assert.Check(t, is.Equal(decoded.Name(), "SHA-256"))
	assert.Check(t, is.DeepEqual(decoded.Parameters, []byte{5, 0}))

	der, err = Marshal(&without)
	assert.NilError(t, err)
	assert.NilError(t, Unmarshal(der, &decoded))
	assert.Check(t, decoded.Parameters == nil)
}

func TestMaybeBER(t *testing.T) {
	assert.Check(t, MaybeBER(0x30))
	assert.Check(t, !MaybeBER('-'))
}

func TestStrings(t *testing.T) {
	for _, tc := range []struct {
		s   string
		tag Tag
	}{
		{"Hello", PrintableString},
		{"héllo wörld", UTF8String},
		{"héllo", T61String},
		{"日本", BMPString},
		{"𝄞", UniversalString},
		{"a@b.c", IA5String},
		{"12 34", NumericString},
	} {
		enc := NewEncoder()
		enc.EncodeString(tc.s, tc.tag)
		der, err := enc.Bytes()
		assert.NilError(t, err, tc.s)
		s, tag, err := NewDecoder(der).DecodeString()
		assert.NilError(t, err, tc.s)
		assert.Check(t, is.Equal(s, tc.s))
		assert.Check(t, is.Equal(tag, tc.tag))
	}
	assert.Check(t, is.Equal(ChooseStringType("Acme Ltd."), PrintableString))
	assert.Check(t, is.Equal(ChooseStringType("a@b"), UTF8String))
	assert.Check(t, IsLatin1([]byte("DEÄ")) == false)
	assert.Check(t, IsLatin1([]byte{'D', 'E', 0xC4}))
	assert.Check(t, !IsLatin1([]byte{'D', 0x85}))
}
