package salsa20

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/bwesterb/go-cryptocore/errs"
	xsalsa "golang.org/x/crypto/salsa20"
	"pgregory.net/rapid"
)

func keystream(key, iv []byte, n int, t *testing.T) []byte {
	c, err := NewCipher(key, iv)
	if err != nil {
		t.Fatalf("NewCipher(): %v", err)
	}
	out := make([]byte, n)
	c.XORKeyStream(out, out)
	return out
}

func seq(n int) []byte {
	ret := make([]byte, n)
	for i := range ret {
		ret[i] = byte(i)
	}
	return ret
}

func TestVectors(t *testing.T) {
	key := make([]byte, 16)
	key[0] = 0x80
	ks := keystream(key, make([]byte, 8), 64, t)
	if hex.EncodeToString(ks) != "4dfa5e481da23ea09a31022050859936"+
		"da52fcee218005164f267cb65f5cfd7f2b4f97e0ff16924a52df269515110a07"+
		"f9e460bc65ef95da58f740b7d1dbb0aa" {
		t.Fatalf("128-bit key keystream is %x", ks)
	}

	key = make([]byte, 32)
	key[0] = 0x80
	ks = keystream(key, make([]byte, 8), 64, t)
	if hex.EncodeToString(ks) != "e3be8fdd8beca2e3ea8ef9475b29a6e7"+
		"003951e1097a5c38d23b7a5fad9f6844b22c97559e2723c7cbbd3fe4fc8d9a07"+
		"44652a83e72a9c461876af4d7ef1a117" {
		t.Fatalf("256-bit key keystream is %x", ks)
	}

	ks = keystream(seq(16), seq(8), 80, t)
	if hex.EncodeToString(ks[64:]) != "19877b0c04b6379f978b7af388d582c0" {
		t.Fatalf("second block is %x", ks[64:])
	}

	ks = keystream(seq(32), seq(24), 48, t)
	if hex.EncodeToString(ks) != "7cb660afdd9ec6468f57dd6d2433f934"+
		"28fd82cd7386c5471a24d8ad2a525b6e5eff384fc7caa210bb3c8f3e688f4a97" {
		t.Fatalf("XSalsa20 keystream is %x", ks)
	}
}

func TestAgainstXCrypto(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var key [32]byte
		copy(key[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key"))
		nonceLen := rapid.SampledFrom([]int{8, 24}).Draw(t, "nonceLen")
		nonce := rapid.SliceOfN(rapid.Byte(), nonceLen, nonceLen).Draw(t, "nonce")
		msg := rapid.SliceOfN(rapid.Byte(), 0, 300).Draw(t, "msg")

		want := make([]byte, len(msg))
		xsalsa.XORKeyStream(want, msg, nonce, &key)

		c, err := NewCipher(key[:], nonce)
		if err != nil {
			t.Fatalf("NewCipher(): %v", err)
		}
		got := make([]byte, len(msg))
		// process in irregular pieces to exercise the buffering
		split := rapid.IntRange(0, len(msg)).Draw(t, "split")
		c.XORKeyStream(got[:split], msg[:split])
		c.XORKeyStream(got[split:], msg[split:])
		if !bytes.Equal(got, want) {
			t.Fatalf("XORKeyStream mismatch")
		}
	})
}

// Keystream positions and buffers that are not word aligned.
func TestUnalignedBuffers(t *testing.T) {
	full := keystream(seq(32), seq(8), 200, t)
	for offset := 0; offset < 64; offset++ {
		c, _ := NewCipher(seq(32), seq(8))
		backing := make([]byte, 2*200+3)
		src := backing[1 : 1+200]
		dst := backing[200+3:]
		skip := make([]byte, offset)
		c.XORKeyStream(skip, skip)
		c.XORKeyStream(dst[:200-offset], src[:200-offset])
		if !bytes.Equal(dst[:200-offset], full[offset:]) {
			t.Fatalf("keystream mismatch at offset %d", offset)
		}
	}
}

func TestSeek(t *testing.T) {
	full := keystream(seq(32), seq(8), 1000, t)
	c, _ := NewCipher(seq(32), seq(8))
	for _, offset := range []uint64{0, 1, 63, 64, 65, 500, 999} {
		if err := c.Seek(offset); err != nil {
			t.Fatalf("Seek(): %v", err)
		}
		b := []byte{0}
		c.XORKeyStream(b, b)
		if b[0] != full[offset] {
			t.Fatalf("Seek(%d) gives %x instead of %x", offset, b[0], full[offset])
		}
	}
}

func TestCounterCarry(t *testing.T) {
	c, _ := NewCipher(seq(32), seq(8))
	c.Seek(0xffffffff*64 + 63)
	buf := make([]byte, 2)
	c.XORKeyStream(buf, buf)
	if c.state[8] != 1 || c.state[9] != 1 {
		t.Fatalf("counter did not carry: %x %x", c.state[8], c.state[9])
	}

	c2, _ := NewCipher(seq(32), seq(8))
	c2.Seek(0x100000000 * 64)
	want := []byte{0}
	c2.XORKeyStream(want, want)
	if buf[1] != want[0] {
		t.Fatalf("keystream after carry mismatch")
	}
}

func TestErrors(t *testing.T) {
	c := New()
	if err := c.SetKey(make([]byte, 20)); !errs.Is(err, errs.InvalidKeyLength) {
		t.Fatalf("SetKey(20 bytes): %v", err)
	}
	if err := c.SetIV(make([]byte, 8)); !errs.Is(err, errs.InvalidState) {
		t.Fatalf("SetIV() before SetKey(): %v", err)
	}
	c.SetKey(make([]byte, 16))
	if err := c.SetIV(make([]byte, 12)); !errs.Is(err, errs.InvalidIVLength) {
		t.Fatalf("SetIV(12 bytes): %v", err)
	}
}
