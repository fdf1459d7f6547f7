package cryptocore

import (
	"bytes"
	"encoding/hex"
	"runtime"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/bwesterb/go-cryptocore/errs"
)

// Known answer test.  All values are hex encoded.
type katEntry struct {
	kind Kind
	name string
	key  string
	iv   string
	in   string
	out  string
}

const abc = "616263"

// Registry of known answer tests
var katRegistry = []katEntry{
	{KindBlockCipher, "AES-128", "000102030405060708090a0b0c0d0e0f", "",
		"00112233445566778899aabbccddeeff", "69c4e0d86a7b0430d8cdb78070b4c55a"},
	{KindBlockCipher, "DES", "133457799bbcdff1", "",
		"0123456789abcdef", "85e813540f0ab405"},
	{KindBlockCipher, "Skipjack", "00998877665544332211", "",
		"33221100ddccbbaa", "2587cae27a12d300"},

	{KindStreamCipher, "Salsa20",
		"80" + strings.Repeat("00", 31), "0000000000000000",
		strings.Repeat("00", 64),
		"e3be8fdd8beca2e3ea8ef9475b29a6e7003951e1097a5c38d23b7a5fad9f6844" +
			"b22c97559e2723c7cbbd3fe4fc8d9a0744652a83e72a9c461876af4d7ef1a117"},

	{KindHash, "MD5", "", "", abc, "900150983cd24fb0d6963f7d28e17f72"},
	{KindHash, "SHA-1", "", "", abc, "a9993e364706816aba3e25717850c26c9cd0d89d"},
	{KindHash, "SHA-224", "", "", abc,
		"23097d223405d8228642a477bda255b32aadbce4bda0b3f7e36c9da7"},
	{KindHash, "SHA-256", "", "", abc,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	{KindHash, "SHA-384", "", "", abc,
		"cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed" +
			"8086072ba1e7cc2358baeca134c825a7"},
	{KindHash, "SHA-512", "", "", abc,
		"ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a" +
			"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
	{KindHash, "SHA-3(256)", "", "", abc,
		"3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"},
	{KindHash, "RIPEMD-160", "", "", abc,
		"8eb208f7e05d987a9b044a8e98c6b087f15a0bfc"},
	{KindHash, "Whirlpool", "", "", abc,
		"4e2448a4c6f486bb16b6562c73b4020bf3043e3a731bce721ae1b303d97e6d4c" +
			"7181eebdb6c57e277d0e34957114cbd6c797fc9d95d8b582d225292076d4eef5"},

	{KindMAC, "HMAC(SHA-256)", "4a656665", "",
		"7768617420646f2079612077616e7420666f72206e6f7468696e673f",
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"},
}

func mustDecodeHex(s string) []byte {
	ret, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return ret
}

// Returns the providers an entry should be run against.
func (kat *katEntry) providers() []string {
	switch kat.kind {
	case KindBlockCipher:
		return blockCiphers.ProvidersOf(kat.name)
	case KindStreamCipher:
		return streamCiphers.ProvidersOf(kat.name)
	case KindHash:
		return hashes.ProvidersOf(kat.name)
	case KindMAC:
		if name, err := ParseScanName(kat.name); err == nil && name.Algo == "HMAC" {
			return hashes.ProvidersOf(name.Arg(0, ""))
		}
		return macs.ProvidersOf(kat.name)
	}
	return nil
}

// Computes the output of the known answer test for the given provider.
func (kat *katEntry) compute(provider string) ([]byte, error) {
	key := mustDecodeHex(kat.key)
	in := mustDecodeHex(kat.in)
	out := make([]byte, len(in))

	switch kat.kind {
	case KindBlockCipher:
		c, err := NewBlockCipher(kat.name, provider)
		if err != nil {
			return nil, err
		}
		if err = c.SetKey(key); err != nil {
			return nil, err
		}
		c.Encrypt(out, in)
		check := make([]byte, len(in))
		c.Decrypt(check, out)
		if !bytes.Equal(check, in) {
			return nil, errs.Errorf(errs.InternalError,
				"%s/%s: decryption does not invert encryption", kat.name, provider)
		}
	case KindStreamCipher:
		c, err := NewStreamCipher(kat.name, provider)
		if err != nil {
			return nil, err
		}
		if err = c.SetKey(key); err != nil {
			return nil, err
		}
		if err = c.SetIV(mustDecodeHex(kat.iv)); err != nil {
			return nil, err
		}
		c.XORKeyStream(out, in)
	case KindHash:
		h, err := NewHash(kat.name, provider)
		if err != nil {
			return nil, err
		}
		h.Write(in)
		out = h.Sum(nil)
	case KindMAC:
		m, err := NewMAC(kat.name, provider)
		if err != nil {
			return nil, err
		}
		if err = m.SetKey(key); err != nil {
			return nil, err
		}
		m.Write(in)
		out = m.Sum(nil)
	}
	return out, nil
}

func (kat *katEntry) run(provider string) error {
	got, err := kat.compute(provider)
	if err != nil {
		return errs.Wrapf(err, errs.InternalError,
			"Self test of %s from %s failed", kat.name, provider)
	}
	if hex.EncodeToString(got) != kat.out {
		return errs.Errorf(errs.InternalError,
			"Self test of %s from %s failed: got %x", kat.name, provider, got)
	}
	return nil
}

// Runs the known answer tests against every provider of the tested
// algorithms using the given number of goroutines (0 for one per CPU).
// Returns all failures.
func SelfTest(threads int) error {
	type job struct {
		kat      *katEntry
		provider string
	}
	var jobs []job
	for i := range katRegistry {
		for _, provider := range katRegistry[i].providers() {
			jobs = append(jobs, job{&katRegistry[i], provider})
		}
	}

	var result *multierror.Error
	var idx int
	wg := &sync.WaitGroup{}
	mux := &sync.Mutex{}
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go func() {
			for {
				mux.Lock()
				ourIdx := idx
				idx++
				mux.Unlock()
				if ourIdx >= len(jobs) {
					break
				}
				j := jobs[ourIdx]
				if err := j.kat.run(j.provider); err != nil {
					mux.Lock()
					result = multierror.Append(result, err)
					mux.Unlock()
				}
			}
			wg.Done()
		}()
	}
	wg.Wait() // wait for all workers to finish

	log("Self test ran %d known answer tests", len(jobs))
	return result.ErrorOrNil()
}
