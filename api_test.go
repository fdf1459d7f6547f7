package cryptocore

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
)

func testHash(name, provider, in, expect string, t *testing.T) {
	h, err := NewHash(name, provider)
	if err != nil {
		t.Fatalf("NewHash(%s, %s): %v", name, provider, err)
	}
	h.Write([]byte(in))
	if got := hex.EncodeToString(h.Sum(nil)); got != expect {
		t.Fatalf("%s from %s gives %s instead of %s", name, provider, got, expect)
	}
}

func TestHashProviders(t *testing.T) {
	SetLogger(t)
	defer SetLogger(nil)

	for _, provider := range []string{"", ProviderBase, ProviderStdlib} {
		testHash("SHA-256", provider, "abc",
			"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", t)
	}
	testHash("SHA-160", "", "abc", "a9993e364706816aba3e25717850c26c9cd0d89d", t)
	testHash("SHA-3(512)", ProviderXCrypto, "",
		"a69f73cca23a9ac5c8b567dc185a756e97c982164fe25859e0d1dcc1475c80a6"+
			"15b2123af1f5f94c11e3e9402c3ac558f500199d95b6d3e301758586281dcd26", t)

	_, err := NewHash("SHA-256", ProviderXCrypto)
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("NewHash() from provider without SHA-256: %v", err)
	}
}

func TestPreferredProvider(t *testing.T) {
	SetLogger(t)
	defer SetLogger(nil)
	defer ResetProviders()

	h, _ := NewHash("SHA-256", "")
	if _, ok := h.(*hashAdapter); !ok {
		t.Fatalf("SHA-256 should default to the standard library")
	}
	SetPreferredProvider("SHA-256", ProviderBase)
	h, _ = NewHash("SHA-256", "")
	if _, ok := h.(*hashAdapter); ok {
		t.Fatalf("SHA-256 should come from the preferred provider")
	}
	SetPreferredProvider("SHA-256", "")
	h, _ = NewHash("SHA-256", "")
	if _, ok := h.(*hashAdapter); !ok {
		t.Fatalf("preference was not removed")
	}

	s, _ := NewStreamCipher("Salsa20", "")
	if _, ok := s.(*xcryptoSalsa20); ok {
		t.Fatalf("Salsa20 should default to the base provider")
	}
}

func TestFreshInstances(t *testing.T) {
	c1, err := NewBlockCipher("AES-128", "")
	if err != nil {
		t.Fatalf("NewBlockCipher(): %v", err)
	}
	c2, _ := NewBlockCipher("AES-128", "")
	c1.SetKey(make([]byte, 16))
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("unkeyed instance should panic")
			}
		}()
		c2.Encrypt(make([]byte, 16), make([]byte, 16))
	}()

	h1, _ := NewHash("SHA-1", "")
	h1.Write([]byte("garbage"))
	testHash("SHA-1", "", "abc", "a9993e364706816aba3e25717850c26c9cd0d89d", t)
}

func TestBlockCiphers(t *testing.T) {
	for _, info := range Algorithms() {
		if info.Kind != KindBlockCipher {
			continue
		}
		for _, provider := range info.Providers {
			c, err := NewBlockCipher(info.Name, provider)
			if err != nil {
				t.Fatalf("NewBlockCipher(%s, %s): %v", info.Name, provider, err)
			}
			testBlockCipherRoundTrip(c, t)
		}
	}
}

func testBlockCipherRoundTrip(c algo.BlockCipher, t *testing.T) {
	spec := c.KeySpec()
	for keyLen := spec.Min; keyLen <= spec.Max; keyLen += spec.Multiple {
		key := make([]byte, keyLen)
		for i := range key {
			key[i] = byte(3*i + keyLen)
		}
		if err := c.SetKey(key); err != nil {
			t.Fatalf("%s.SetKey(%d bytes): %v", c.Name(), keyLen, err)
		}
		pt := bytes.Repeat([]byte{0x5a}, c.BlockSize())
		ct := make([]byte, c.BlockSize())
		c.Encrypt(ct, pt)
		if bytes.Equal(ct, pt) {
			t.Fatalf("%s: ciphertext equals plaintext", c.Name())
		}
		c.Decrypt(ct, ct)
		if !bytes.Equal(ct, pt) {
			t.Fatalf("%s: decryption failed with %d byte key", c.Name(), keyLen)
		}
		if spec.Multiple == 0 {
			break
		}
	}
	err := c.SetKey(make([]byte, spec.Max+1))
	if !errs.Is(err, errs.InvalidKeyLength) {
		t.Fatalf("%s.SetKey() with too long key: %v", c.Name(), err)
	}
}

func TestTripleDESTwoKey(t *testing.T) {
	c, _ := NewBlockCipher("3DES", "")
	if c.Name() != "TripleDES" {
		t.Fatalf("3DES resolves to %s", c.Name())
	}
	k1 := []byte("01234567")
	k2 := []byte("89abcdef")
	c.SetKey(append(append([]byte{}, k1...), k2...))
	c3, _ := NewBlockCipher("TripleDES", "")
	c3.SetKey(append(append(append([]byte{}, k1...), k2...), k1...))
	a := make([]byte, 8)
	b := make([]byte, 8)
	c.Encrypt(a, []byte("plaintxt"))
	c3.Encrypt(b, []byte("plaintxt"))
	if !bytes.Equal(a, b) {
		t.Fatalf("two key TripleDES differs from K1K2K1")
	}
}

func TestStreamCipherProviders(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	iv := []byte("nonce123")
	var outputs [][]byte
	for _, provider := range []string{ProviderBase, ProviderXCrypto} {
		c, err := NewStreamCipher("Salsa20", provider)
		if err != nil {
			t.Fatalf("NewStreamCipher(): %v", err)
		}
		c.SetKey(key)
		c.SetIV(iv)
		out := make([]byte, 201)[1:]
		c.XORKeyStream(out[:37], out[:37])
		c.XORKeyStream(out[37:], out[37:])
		if s, ok := c.(algo.Seeker); ok {
			s.Seek(100)
			b := make([]byte, 1)
			c.XORKeyStream(b, b)
			if b[0] != out[100] {
				t.Fatalf("%s Seek(100) mismatch", provider)
			}
		}
		outputs = append(outputs, out)
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Fatalf("Salsa20 providers disagree")
	}

	// every position within a keystream block, into odd offset buffers
	for split := 0; split < 64; split++ {
		for i, provider := range []string{ProviderBase, ProviderXCrypto} {
			c, _ := NewStreamCipher("Salsa20", provider)
			c.SetKey(key)
			c.SetIV(iv)
			buf := make([]byte, 2*len(outputs[i])+3)
			src := buf[3 : 3+len(outputs[i])-split]
			dst := buf[3+len(src):]
			head := make([]byte, split)
			c.XORKeyStream(head, head)
			c.XORKeyStream(dst[:len(src)], src)
			if !bytes.Equal(dst[:len(src)], outputs[i][split:]) {
				t.Fatalf("%s keystream mismatch at offset %d", provider, split)
			}
		}
	}

	c, err := NewStreamCipher("XSalsa20", "")
	if err != nil || c.Name() != "Salsa20" || !c.ValidIVLength(24) {
		t.Fatalf("NewStreamCipher(XSalsa20): %v", err)
	}
}

func TestCTRFromFactory(t *testing.T) {
	c, err := NewStreamCipher("CTR-BE(AES-128)", "")
	if err != nil {
		t.Fatalf("NewStreamCipher(): %v", err)
	}
	if c.Name() != "CTR-BE(AES-128)" {
		t.Fatalf("Name() = %s", c.Name())
	}
	c, err = NewStreamCipher("CTR-BE(Skipjack,4)", ProviderBase)
	if err != nil || c.Name() != "CTR-BE(Skipjack,4)" {
		t.Fatalf("NewStreamCipher(CTR-BE(Skipjack,4)): %v", err)
	}

	for _, spec := range []string{"CTR-BE(AES-128,3)", "CTR-BE(AES-128,x)"} {
		if _, err = NewStreamCipher(spec, ""); !errs.Is(err, errs.InvalidArgument) {
			t.Fatalf("NewStreamCipher(%s): %v", spec, err)
		}
	}
	if _, err = NewStreamCipher("CTR-BE(Serpent)", ""); !errs.Is(err, errs.NotFound) {
		t.Fatalf("NewStreamCipher(CTR-BE(Serpent)): %v", err)
	}
	if _, err = NewStreamCipher("CTR-BE(Skipjack)", ProviderStdlib); !errs.Is(err, errs.NotFound) {
		t.Fatalf("CTR-BE over a missing provider: %v", err)
	}
}

func TestHMAC(t *testing.T) {
	m, err := NewMAC("HMAC(SHA-256)", "")
	if err != nil {
		t.Fatalf("NewMAC(): %v", err)
	}
	m.SetKey([]byte("Jefe"))
	m.Write([]byte("what do ya want for nothing?"))
	if hex.EncodeToString(m.Sum(nil)) != "5bdcc146bf60754e6a042426089575c7"+
		"5a003f089d2739839dec58b964ec3843" {
		t.Fatalf("HMAC(SHA-256) is %x", m.Sum(nil))
	}

	// the base SHA-256 must give the same result
	m2, _ := NewMAC("HMAC(SHA-256)", ProviderBase)
	m2.SetKey([]byte("Jefe"))
	m2.Write([]byte("what do ya want for nothing?"))
	if !bytes.Equal(m.Sum(nil), m2.Sum(nil)) {
		t.Fatalf("HMAC(SHA-256) providers disagree")
	}
	if m2.Name() != "HMAC(SHA-256)" || m2.Size() != 32 {
		t.Fatalf("HMAC name or size wrong")
	}

	m3 := m2.Clone()
	defer func() {
		if recover() == nil {
			t.Fatalf("unkeyed HMAC should panic")
		}
	}()
	m3.Write([]byte{1})
}

func TestMissingAlgorithms(t *testing.T) {
	if _, err := NewBlockCipher("Serpent", ""); !errs.Is(err, errs.NotFound) {
		t.Fatalf("NewBlockCipher(Serpent): %v", err)
	}
	if _, err := NewMAC("CMAC(AES-128)", ""); !errs.Is(err, errs.NotFound) {
		t.Fatalf("NewMAC(CMAC): %v", err)
	}
	if _, err := NewMAC("HMAC(SHA-256", ""); !errs.Is(err, errs.InvalidArgument) {
		t.Fatalf("NewMAC() with bad name: %v", err)
	}
}

func TestAlgorithmsAndProviders(t *testing.T) {
	found := false
	for _, info := range Algorithms() {
		if info.Kind == KindHash && info.Name == "SHA-256" {
			found = true
			if len(info.Providers) != 2 {
				t.Fatalf("SHA-256 providers: %v", info.Providers)
			}
		}
	}
	if !found {
		t.Fatalf("SHA-256 not listed")
	}
	if ps := Providers("AES-256"); len(ps) != 1 || ps[0] != ProviderStdlib {
		t.Fatalf("Providers(AES-256) = %v", ps)
	}
}

func TestSelfTest(t *testing.T) {
	SetLogger(t)
	defer SetLogger(nil)
	if err := SelfTest(0); err != nil {
		t.Fatalf("SelfTest(): %v", err)
	}
	if err := SelfTest(1); err != nil {
		t.Fatalf("SelfTest(1): %v", err)
	}
}

type brokenHash struct {
	algo.HashFunction
}

func (h *brokenHash) Sum(b []byte) []byte {
	return append(h.HashFunction.Sum(b), 0)
}

func (h *brokenHash) Clone() algo.HashFunction {
	return &brokenHash{h.HashFunction.Clone()}
}

func TestSelfTestDetectsBrokenProvider(t *testing.T) {
	defer ResetProviders()
	inner, _ := NewHash("SHA-1", "")
	AddHash(&brokenHash{inner}, "SHA-1", "broken")
	err := SelfTest(2)
	if !errs.Is(err, errs.InternalError) {
		t.Fatalf("SelfTest() with broken provider: %v", err)
	}
}
