package cryptocore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
	"golang.org/x/crypto/twofish"
	"golang.org/x/crypto/xtea"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/salsa20"
	"github.com/bwesterb/go-cryptocore/sha2"
	"github.com/bwesterb/go-cryptocore/skipjack"
	"github.com/bwesterb/go-cryptocore/whirlpool"
)

// Names of the built-in providers.
const (
	ProviderBase    = "base"
	ProviderStdlib  = "stdlib"
	ProviderXCrypto = "xcrypto"
)

// Entry in the registry of built-in block ciphers
type blockCipherEntry struct {
	name     string // name to register under; may be an alias
	provider string
	new      func() algo.BlockCipher
}

// Entry in the registry of built-in stream ciphers
type streamCipherEntry struct {
	name     string
	provider string
	new      func() algo.StreamCipher
}

// Entry in the registry of built-in hash functions
type hashEntry struct {
	name     string
	provider string
	new      func() algo.HashFunction
}

func stdBlockCipher(name string, spec algo.KeyLengthSpec, bs, parallel int,
	newFunc func(key []byte) (cipher.Block, error)) func() algo.BlockCipher {
	return func() algo.BlockCipher {
		return &blockCipherAdapter{
			name:     name,
			spec:     spec,
			bs:       bs,
			parallel: parallel,
			newFunc:  newFunc,
		}
	}
}

func stdHash(name string, newFunc func() hash.Hash) func() algo.HashFunction {
	return func() algo.HashFunction {
		return newHashAdapter(name, newFunc)
	}
}

// Two key TripleDES is three key TripleDES with K3 = K1.
func newTripleDES(key []byte) (cipher.Block, error) {
	if len(key) == 16 {
		key = append(append([]byte{}, key...), key[:8]...)
	}
	return des.NewTripleDESCipher(key)
}

// Registry of built-in block ciphers
var blockCipherRegistry = []blockCipherEntry{
	{"Skipjack", ProviderBase, func() algo.BlockCipher { return skipjack.New() }},

	{"AES-128", ProviderStdlib, stdBlockCipher("AES-128",
		algo.FixedKeyLength(16), aes.BlockSize, 4, aes.NewCipher)},
	{"AES-192", ProviderStdlib, stdBlockCipher("AES-192",
		algo.FixedKeyLength(24), aes.BlockSize, 4, aes.NewCipher)},
	{"AES-256", ProviderStdlib, stdBlockCipher("AES-256",
		algo.FixedKeyLength(32), aes.BlockSize, 4, aes.NewCipher)},
	{"DES", ProviderStdlib, stdBlockCipher("DES",
		algo.FixedKeyLength(8), des.BlockSize, 1, des.NewCipher)},
	{"TripleDES", ProviderStdlib, stdBlockCipher("TripleDES",
		algo.KeyLengthSpec{Min: 16, Max: 24, Multiple: 8}, des.BlockSize, 1,
		newTripleDES)},

	{"Blowfish", ProviderXCrypto, stdBlockCipher("Blowfish",
		algo.KeyLengthSpec{Min: 1, Max: 56, Multiple: 1}, blowfish.BlockSize, 1,
		func(key []byte) (cipher.Block, error) { return blowfish.NewCipher(key) })},
	{"Twofish", ProviderXCrypto, stdBlockCipher("Twofish",
		algo.KeyLengthSpec{Min: 16, Max: 32, Multiple: 8}, twofish.BlockSize, 1,
		func(key []byte) (cipher.Block, error) { return twofish.NewCipher(key) })},
	{"CAST-128", ProviderXCrypto, stdBlockCipher("CAST-128",
		algo.FixedKeyLength(cast5.KeySize), cast5.BlockSize, 1,
		func(key []byte) (cipher.Block, error) { return cast5.NewCipher(key) })},
	{"XTEA", ProviderXCrypto, stdBlockCipher("XTEA",
		algo.FixedKeyLength(16), xtea.BlockSize, 1,
		func(key []byte) (cipher.Block, error) { return xtea.NewCipher(key) })},
}

// Registry of built-in stream ciphers
var streamCipherRegistry = []streamCipherEntry{
	{"Salsa20", ProviderBase, func() algo.StreamCipher { return salsa20.New() }},
	{"Salsa20", ProviderXCrypto, func() algo.StreamCipher { return newXCryptoSalsa20() }},
}

// Registry of built-in hash functions
var hashRegistry = []hashEntry{
	{"SHA-224", ProviderBase, func() algo.HashFunction { return sha2.New224() }},
	{"SHA-256", ProviderBase, func() algo.HashFunction { return sha2.New256() }},
	{"Whirlpool", ProviderBase, func() algo.HashFunction { return whirlpool.New() }},

	{"MD5", ProviderStdlib, stdHash("MD5", md5.New)},
	{"SHA-1", ProviderStdlib, stdHash("SHA-1", sha1.New)},
	{"SHA-224", ProviderStdlib, stdHash("SHA-224", sha256.New224)},
	{"SHA-256", ProviderStdlib, stdHash("SHA-256", sha256.New)},
	{"SHA-384", ProviderStdlib, stdHash("SHA-384", sha512.New384)},
	{"SHA-512", ProviderStdlib, stdHash("SHA-512", sha512.New)},

	{"SHA-3(256)", ProviderXCrypto, stdHash("SHA-3(256)", sha3.New256)},
	{"SHA-3(512)", ProviderXCrypto, stdHash("SHA-3(512)", sha3.New512)},
	{"RIPEMD-160", ProviderXCrypto, stdHash("RIPEMD-160", ripemd160.New)},
}

// Alternative names of built-in algorithms
var aliasRegistry = map[string]string{
	"3DES":     "TripleDES",
	"SHA-160":  "SHA-1",
	"SHA1":     "SHA-1",
	"SHA256":   "SHA-256",
	"XSalsa20": "Salsa20",
}

var (
	blockCiphers  = algo.NewCache[algo.BlockCipher]()
	streamCiphers = algo.NewCache[algo.StreamCipher]()
	hashes        = algo.NewCache[algo.HashFunction]()
	macs          = algo.NewCache[algo.MAC]()
)

func init() {
	registerBuiltins()
}

func registerBuiltins() {
	for _, entry := range blockCipherRegistry {
		blockCiphers.Add(entry.new(), entry.name, entry.provider)
	}
	for _, entry := range streamCipherRegistry {
		streamCiphers.Add(entry.new(), entry.name, entry.provider)
	}
	for _, entry := range hashRegistry {
		hashes.Add(entry.new(), entry.name, entry.provider)
	}
	for alias, name := range aliasRegistry {
		blockCiphers.AddAlias(alias, name)
		streamCiphers.AddAlias(alias, name)
		hashes.AddAlias(alias, name)
	}
}
