package skipjack

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/bwesterb/go-cryptocore/errs"
	"pgregory.net/rapid"
)

func testVector(key, pt, ct string, t *testing.T) {
	k, _ := hex.DecodeString(key)
	p, _ := hex.DecodeString(pt)
	c, err := NewCipher(k)
	if err != nil {
		t.Fatalf("NewCipher(): %v", err)
	}
	out := make([]byte, BlockSize)
	c.Encrypt(out, p)
	if hex.EncodeToString(out) != ct {
		t.Fatalf("Encrypt(%s) is %x instead of %s", pt, out, ct)
	}
	c.Decrypt(out, out)
	if !bytes.Equal(out, p) {
		t.Fatalf("Decrypt(%s) is %x instead of %s", ct, out, pt)
	}
}

func TestVectors(t *testing.T) {
	// The test vector published with the algorithm specification
	testVector("00998877665544332211", "33221100ddccbbaa", "2587cae27a12d300", t)
	testVector("00010203040506070809", "0000000000000000", "ecdb03b4342acbb2", t)
	testVector("00010203040506070809", "0123456789abcdef", "ff81d268204c31ed", t)
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key")
		pt := rapid.SliceOfN(rapid.Byte(), BlockSize, BlockSize).Draw(t, "pt")
		c, err := NewCipher(key)
		if err != nil {
			t.Fatalf("NewCipher(): %v", err)
		}
		ct := make([]byte, BlockSize)
		c.Encrypt(ct, pt)
		back := make([]byte, BlockSize)
		c.Decrypt(back, ct)
		if !bytes.Equal(back, pt) {
			t.Fatalf("Decrypt(Encrypt(%x)) = %x", pt, back)
		}
	})
}

func TestKeyLength(t *testing.T) {
	c := New()
	if err := c.SetKey(make([]byte, 16)); !errs.Is(err, errs.InvalidKeyLength) {
		t.Fatalf("SetKey(16 bytes): %v", err)
	}
	if err := c.SetKey(make([]byte, KeySize)); err != nil {
		t.Fatalf("SetKey(): %v", err)
	}
	c.Clear()
	defer func() {
		if recover() == nil {
			t.Fatalf("Encrypt() after Clear() should panic")
		}
	}()
	c.Encrypt(make([]byte, BlockSize), make([]byte, BlockSize))
}
