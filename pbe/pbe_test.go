package pbe

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
	"testing"

	"golang.org/x/crypto/pbkdf2"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"pgregory.net/rapid"

	"github.com/bwesterb/go-cryptocore"
	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

func testPBES2(cipherSpec, prf string, t *testing.T) *PBES2 {
	p, err := New(cipherSpec, prf)
	if err != nil {
		t.Fatalf("New(%s, %s): %v", cipherSpec, prf, err)
	}
	if err = p.NewParams(rand.Reader); err != nil {
		t.Fatalf("NewParams(): %v", err)
	}
	return p
}

func TestHelloWorld(t *testing.T) {
	cryptocore.SetLogger(t)
	defer cryptocore.SetLogger(nil)

	p := testPBES2("", "", t)
	assert.Check(t, is.Equal(p.Name(), "PBE-PKCS5v20(AES-256/CBC,HMAC(SHA-1))"))
	assert.Check(t, is.Equal(p.Iterations(), DefaultIterations))
	assert.Check(t, is.Len(p.Salt(), SaltSize))
	assert.NilError(t, p.SetPassphrase("hunter2"))
	ct, err := p.Encrypt([]byte("hello world"))
	if err != nil {
		t.Fatalf("Encrypt(): %v", err)
	}
	params, err := p.EncodeParams()
	if err != nil {
		t.Fatalf("EncodeParams(): %v", err)
	}

	q, err := DecodeParams(params)
	if err != nil {
		t.Fatalf("DecodeParams(): %v", err)
	}
	assert.Check(t, is.Equal(q.Name(), p.Name()))
	assert.NilError(t, q.SetPassphrase("hunter2"))
	pt, err := q.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt(): %v", err)
	}
	assert.Check(t, is.Equal(string(pt), "hello world"))
}

func testAgainstStdlib(prf string, newHash func() hash.Hash, t *testing.T) {
	p := testPBES2("AES-128/CBC", prf, t)
	assert.NilError(t, p.SetPassphrase("correct horse"))
	msg := []byte("sixteen byte msg and some more")
	ct, err := p.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt(): %v", err)
	}

	key := pbkdf2.Key([]byte("correct horse"), p.salt, DefaultIterations, 16, newHash)
	block, _ := aes.NewCipher(key)
	padded := append(append([]byte{}, msg...), bytes.Repeat([]byte{2}, 2)...)
	want := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, p.iv).CryptBlocks(want, padded)
	assert.Check(t, is.DeepEqual(ct, want))
}

func TestAgainstStdlib(t *testing.T) {
	testAgainstStdlib("", sha1.New, t)
	testAgainstStdlib("HMAC(SHA-256)", sha256.New, t)
}

func TestParamsRoundTrip(t *testing.T) {
	for _, c := range allowedCiphers {
		for prf := range allowedPRFs {
			p := testPBES2(c, prf, t)
			der, err := p.EncodeParams()
			if err != nil {
				t.Fatalf("EncodeParams(): %v", err)
			}
			q, err := DecodeParams(der)
			if err != nil {
				t.Fatalf("DecodeParams(%s): %v", p.Name(), err)
			}
			assert.Check(t, is.Equal(q.Name(), p.Name()))
			assert.Check(t, is.DeepEqual(q.salt, p.salt))
			assert.Check(t, is.DeepEqual(q.iv, p.iv))
			assert.Check(t, is.Equal(q.keyLength, p.keyLength))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.SliceOf(rapid.Byte()).Draw(t, "msg")
		c := rapid.SampledFrom(allowedCiphers).Draw(t, "cipher")
		der, err := Seal(rand.Reader, "pw", msg, c)
		if err != nil {
			t.Fatalf("Seal(): %v", err)
		}
		got, err := Open("pw", der)
		if err != nil {
			t.Fatalf("Open(): %v", err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("Open() = %x, want %x", got, msg)
		}
	})
}

func TestUnalignedCiphertext(t *testing.T) {
	for _, c := range []string{"AES-256", "TripleDES"} {
		p := testPBES2(c, "", t)
		assert.NilError(t, p.SetPassphrase("hunter2"))
		msg := bytes.Repeat([]byte("0123456789"), 10)
		ct, err := p.Encrypt(msg)
		assert.NilError(t, err)

		for shift := 1; shift < 16; shift++ {
			buf := make([]byte, len(ct)+shift)
			copy(buf[shift:], ct)
			got, err := p.Decrypt(buf[shift:])
			assert.NilError(t, err)
			assert.Check(t, is.DeepEqual(got, msg))
		}
	}
}

func TestWrongPassword(t *testing.T) {
	der, err := Seal(rand.Reader, "hunter2", []byte("hello world"), "")
	assert.NilError(t, err)
	got, err := Open("hunter3", der)
	assert.Check(t, err != nil || string(got) != "hello world")
}

func encodeParams(kdfOID, cipherOID string, t *testing.T) []byte {
	p := testPBES2("", "", t)
	der, _ := p.EncodeParams()
	d := asn1.NewDecoder(der)
	seq, _ := d.StartSequence()
	var kdfID, cipherID asn1.AlgorithmIdentifier
	assert.NilError(t, seq.Decode(&kdfID))
	assert.NilError(t, seq.Decode(&cipherID))
	if kdfOID != "" {
		kdfID.OID = asn1.MustParseOID(kdfOID)
	}
	if cipherOID != "" {
		cipherID.OID = asn1.MustParseOID(cipherOID)
	}
	e := asn1.NewEncoder()
	e.StartSequence()
	e.Encode(&kdfID)
	e.Encode(&cipherID)
	e.EndCons()
	ret, err := e.Bytes()
	assert.NilError(t, err)
	return ret
}

func TestDecodeErrors(t *testing.T) {
	asn1.RegisterOID(asn1.MustParseOID("2.16.840.1.101.3.4.1.46"), "AES-256/GCM")

	_, err := DecodeParams(encodeParams("1.2.840.113549.1.5.3", "", t))
	assert.Check(t, errs.Is(err, errs.DecodingError))
	assert.Check(t, is.Contains(err.Error(), "Unknown KDF"))

	_, err = DecodeParams(encodeParams("", "2.16.840.1.101.3.4.1.46", t))
	assert.Check(t, errs.Is(err, errs.DecodingError))
	assert.Check(t, is.Contains(err.Error(), "Don't know param format"))

	// Blowfish/CBC is a fine cipher, but not on the list
	asn1.RegisterOID(asn1.MustParseOID("1.3.6.1.4.1.3029.1.2"), "Blowfish/CBC")
	_, err = DecodeParams(encodeParams("", "1.3.6.1.4.1.3029.1.2", t))
	assert.Check(t, errs.Is(err, errs.DecodingError))

	_, err = DecodeParams(encodeParams("", "", t))
	assert.NilError(t, err)

	_, err = New("AES-256/CTR", "")
	assert.Check(t, errs.Is(err, errs.InvalidArgument))
	_, err = New("Blowfish", "")
	assert.Check(t, errs.Is(err, errs.InvalidArgument))
	_, err = New("", "HMAC(MD5)")
	assert.Check(t, errs.Is(err, errs.InvalidArgument))

	p := testPBES2("", "", t)
	_, err = p.Encrypt([]byte("x"))
	assert.Check(t, errs.Is(err, errs.InvalidState))
	assert.NilError(t, p.SetPassphrase("x"))
	_, err = p.Decrypt(make([]byte, 15))
	assert.Check(t, errs.Is(err, errs.DecodingError))
}
