// Package pbe implements PBES2 password based encryption: PBKDF2 key
// derivation followed by a block cipher in CBC mode.
package pbe

import (
	"hash"
	"io"
	"strings"

	"github.com/templexxx/xorsimd"
	"golang.org/x/crypto/pbkdf2"

	"github.com/bwesterb/go-cryptocore"
	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/internal/logging"
)

const (
	DefaultIterations = 2048
	SaltSize          = 8
	DefaultPRF        = "HMAC(SHA-1)"
	DefaultCipher     = "AES-256"
)

// Block ciphers that may be used with PBES2.
var allowedCiphers = []string{"DES", "TripleDES", "AES-128", "AES-192", "AES-256"}

// Supported PRFs and their hashes.
var allowedPRFs = map[string]string{
	"HMAC(SHA-1)":   "SHA-1",
	"HMAC(SHA-256)": "SHA-256",
	"HMAC(SHA-512)": "SHA-512",
}

func log(format string, a ...interface{}) {
	logging.Logf(format, a...)
}

// PBES2 with a particular cipher and PRF.
type PBES2 struct {
	cipherName string // eg. "AES-256"
	cipher     algo.BlockCipher
	prf        string // eg. "HMAC(SHA-1)"
	hashName   string

	salt       []byte
	iv         []byte
	iterations int
	keyLength  int
	keyed      bool
}

// Returns the name of an allowed cipher for spec, which is either a
// bare block cipher name or one with a "/CBC" suffix.
func cipherFromSpec(spec string) (string, error) {
	parts := strings.Split(spec, "/")
	if len(parts) > 2 || (len(parts) == 2 && parts[1] != "CBC") {
		return "", errs.Errorf(errs.InvalidArgument,
			"PBE-PKCS5 v2.0: only CBC mode is supported, not %s", spec)
	}
	for _, name := range allowedCiphers {
		if name == parts[0] {
			return name, nil
		}
	}
	return "", errs.Errorf(errs.InvalidArgument,
		"PBE-PKCS5 v2.0: cipher %s is not supported", parts[0])
}

// Creates a PBES2 instance for the given cipher (eg. "AES-256" or
// "AES-256/CBC") and PRF (eg. "HMAC(SHA-256)").  Empty strings select
// the defaults.  Call NewParams or use DecodeParams before use.
func New(cipherSpec, prfSpec string) (*PBES2, error) {
	if cipherSpec == "" {
		cipherSpec = DefaultCipher
	}
	if prfSpec == "" {
		prfSpec = DefaultPRF
	}
	name, err := cipherFromSpec(cipherSpec)
	if err != nil {
		return nil, err
	}
	hashName, ok := allowedPRFs[prfSpec]
	if !ok {
		return nil, errs.Errorf(errs.InvalidArgument,
			"PBE-PKCS5 v2.0: PRF %s is not supported", prfSpec)
	}
	bc, err := cryptocore.NewBlockCipher(name, "")
	if err != nil {
		return nil, err
	}
	if _, err = cryptocore.NewHash(hashName, ""); err != nil {
		return nil, err
	}
	return &PBES2{
		cipherName: name,
		cipher:     bc,
		prf:        prfSpec,
		hashName:   hashName,
	}, nil
}

// Picks fresh parameters: DefaultIterations, a random salt and IV and a
// key of the cipher's maximum key length.
func (p *PBES2) NewParams(rng io.Reader) error {
	p.iterations = DefaultIterations
	p.keyLength = p.cipher.KeySpec().Max
	p.salt = make([]byte, SaltSize)
	p.iv = make([]byte, p.cipher.BlockSize())
	if _, err := io.ReadFull(rng, p.salt); err != nil {
		return errs.Wrapf(err, errs.InternalError, "PBE-PKCS5 v2.0: reading salt")
	}
	if _, err := io.ReadFull(rng, p.iv); err != nil {
		return errs.Wrapf(err, errs.InternalError, "PBE-PKCS5 v2.0: reading IV")
	}
	p.keyed = false
	return nil
}

func (p *PBES2) Name() string {
	return "PBE-PKCS5v20(" + p.cipherName + "/CBC," + p.prf + ")"
}

func (p *PBES2) Iterations() int { return p.iterations }
func (p *PBES2) Salt() []byte    { return p.salt }

// Derives the cipher key from the passphrase.
func (p *PBES2) SetPassphrase(passphrase string) error {
	if p.salt == nil {
		return errs.Errorf(errs.InvalidState, "%s: parameters not set", p.Name())
	}
	proto, err := cryptocore.NewHash(p.hashName, "")
	if err != nil {
		return err
	}
	newHash := func() hash.Hash { return proto.Clone() }
	key := pbkdf2.Key([]byte(passphrase), p.salt, p.iterations, p.keyLength, newHash)
	defer algo.Zeroize(key)
	if err := p.cipher.SetKey(key); err != nil {
		return err
	}
	p.keyed = true
	return nil
}

// Encrypts plaintext in CBC mode with PKCS#7 padding.
func (p *PBES2) Encrypt(plaintext []byte) ([]byte, error) {
	if !p.keyed {
		return nil, errs.Errorf(errs.InvalidState, "%s: passphrase not set", p.Name())
	}
	bs := p.cipher.BlockSize()
	padLen := bs - len(plaintext)%bs
	out := make([]byte, len(plaintext)+padLen)
	copy(out, plaintext)
	for i := len(plaintext); i < len(out); i++ {
		out[i] = byte(padLen)
	}

	prev := p.iv
	for off := 0; off < len(out); off += bs {
		blk := out[off : off+bs]
		xorsimd.Bytes(blk, blk, prev)
		p.cipher.Encrypt(blk, blk)
		prev = blk
	}
	return out, nil
}

// Reverses Encrypt.  Fails with DecodingError on bad length or padding.
func (p *PBES2) Decrypt(ciphertext []byte) ([]byte, error) {
	if !p.keyed {
		return nil, errs.Errorf(errs.InvalidState, "%s: passphrase not set", p.Name())
	}
	bs := p.cipher.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, errs.Errorf(errs.DecodingError,
			"%s: ciphertext length %d is not a multiple of %d",
			p.Name(), len(ciphertext), bs)
	}
	out := make([]byte, len(ciphertext))
	prev := p.iv
	for off := 0; off < len(out); off += bs {
		p.cipher.Decrypt(out[off:off+bs], ciphertext[off:off+bs])
		xorsimd.Bytes(out[off:off+bs], out[off:off+bs], prev)
		prev = ciphertext[off : off+bs]
	}

	padLen := int(out[len(out)-1])
	if padLen == 0 || padLen > bs {
		return nil, errs.Errorf(errs.DecodingError, "%s: bad padding", p.Name())
	}
	for _, c := range out[len(out)-padLen:] {
		if int(c) != padLen {
			return nil, errs.Errorf(errs.DecodingError, "%s: bad padding", p.Name())
		}
	}
	return out[:len(out)-padLen], nil
}

// Encodes the parameters:
//
//	SEQUENCE {
//	  AlgorithmIdentifier(PBKDF2, SEQUENCE { salt, iterations, keyLength, prf? })
//	  AlgorithmIdentifier(cipher/CBC, OCTET STRING iv)
//	}
//
// The PRF is omitted if it is the default HMAC(SHA-1).
func (p *PBES2) EncodeInto(e *asn1.Encoder) {
	kdfParams := asn1.NewEncoder()
	kdfParams.StartSequence()
	kdfParams.EncodeOctetString(p.salt)
	kdfParams.EncodeInt(int64(p.iterations))
	kdfParams.EncodeInt(int64(p.keyLength))
	if p.prf != DefaultPRF {
		prfID, err := asn1.NewAlgorithmIdentifier(p.prf, nil, true)
		if err != nil {
			panic(errs.Wrapf(err, errs.InternalError, "%s", p.Name()))
		}
		kdfParams.Encode(&prfID)
	}
	kdfParams.EndCons()
	kdfDER, err := kdfParams.Bytes()
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "%s", p.Name()))
	}

	ivParams := asn1.NewEncoder()
	ivParams.EncodeOctetString(p.iv)
	ivDER, _ := ivParams.Bytes()

	kdfID, err := asn1.NewAlgorithmIdentifier("PKCS5.PBKDF2", kdfDER, false)
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "%s", p.Name()))
	}
	cipherID, err := asn1.NewAlgorithmIdentifier(p.cipherName+"/CBC", ivDER, false)
	if err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "%s", p.Name()))
	}

	e.StartSequence()
	e.Encode(&kdfID)
	e.Encode(&cipherID)
	e.EndCons()
}

// Returns the DER encoding of the parameters.
func (p *PBES2) EncodeParams() ([]byte, error) {
	if p.salt == nil {
		return nil, errs.Errorf(errs.InvalidState, "%s: parameters not set", p.Name())
	}
	return asn1.Marshal(p)
}

// Decodes parameters produced by EncodeParams.
func DecodeParams(der []byte) (*PBES2, error) {
	var p PBES2
	if err := asn1.Unmarshal(der, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *PBES2) DecodeFrom(d *asn1.Decoder) error {
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "PBE-PKCS5 v2.0 parameters")
	}
	var kdfID, cipherID asn1.AlgorithmIdentifier
	if err = seq.Decode(&kdfID); err != nil {
		return err
	}
	if err = seq.Decode(&cipherID); err != nil {
		return err
	}
	if _, err = seq.EndCons(); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "PBE-PKCS5 v2.0 parameters")
	}

	if kdfID.Name() != "PKCS5.PBKDF2" {
		return errs.Errorf(errs.DecodingError,
			"PBE-PKCS5 v2.0: Unknown KDF algorithm %s", kdfID.OID)
	}
	if err = p.decodeKDFParams(kdfID.Parameters); err != nil {
		return err
	}

	cipherName, err := cipherFromSpec(cipherID.Name())
	if err != nil || !strings.HasSuffix(cipherID.Name(), "/CBC") {
		return errs.Errorf(errs.DecodingError,
			"PBE-PKCS5 v2.0: Don't know param format for %s", cipherID.Name())
	}
	if err = asn1.Unmarshal(cipherID.Parameters, octetString{&p.iv}); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "PBE-PKCS5 v2.0: cipher parameters")
	}

	if p.cipher, err = cryptocore.NewBlockCipher(cipherName, ""); err != nil {
		return err
	}
	p.cipherName = cipherName
	if len(p.iv) != p.cipher.BlockSize() {
		return errs.Errorf(errs.DecodingError,
			"PBE-PKCS5 v2.0: IV of %d bytes for %s", len(p.iv), cipherName)
	}
	if p.keyLength == 0 {
		p.keyLength = p.cipher.KeySpec().Max
	}
	if !p.cipher.KeySpec().Valid(p.keyLength) {
		return errs.Errorf(errs.DecodingError,
			"PBE-PKCS5 v2.0: key length %d invalid for %s", p.keyLength, cipherName)
	}
	p.keyed = false
	log("PBES2: decoded %s, %d iterations", p.Name(), p.iterations)
	return nil
}

func (p *PBES2) decodeKDFParams(der []byte) error {
	d := asn1.NewDecoder(der)
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "PBKDF2 parameters")
	}
	if p.salt, err = seq.DecodeOctetString(); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "PBKDF2 salt")
	}
	iterations, err := seq.DecodeInt()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "PBKDF2 iterations")
	}
	if iterations <= 0 || iterations > 1<<24 {
		return errs.Errorf(errs.DecodingError, "PBKDF2: bad iteration count %d", iterations)
	}
	p.iterations = int(iterations)

	p.keyLength = 0
	if tag, class, _ := seq.PeekTag(); tag == asn1.Integer && class == asn1.Universal {
		keyLength, err := seq.DecodeInt()
		if err != nil {
			return errs.Wrapf(err, errs.DecodingError, "PBKDF2 key length")
		}
		if keyLength <= 0 || keyLength > 64 {
			return errs.Errorf(errs.DecodingError, "PBKDF2: bad key length %d", keyLength)
		}
		p.keyLength = int(keyLength)
	}

	p.prf = DefaultPRF
	if seq.MoreItems() {
		var prfID asn1.AlgorithmIdentifier
		if err = seq.Decode(&prfID); err != nil {
			return err
		}
		if _, ok := allowedPRFs[prfID.Name()]; !ok {
			return errs.Errorf(errs.DecodingError,
				"PBE-PKCS5 v2.0: Unknown PRF %s", prfID.Name())
		}
		p.prf = prfID.Name()
	}
	p.hashName = allowedPRFs[p.prf]
	if _, err = seq.EndCons(); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "PBKDF2 parameters")
	}
	return d.VerifyEnd()
}

type octetString struct {
	v *[]byte
}

func (o octetString) DecodeFrom(d *asn1.Decoder) (err error) {
	*o.v, err = d.DecodeOctetString()
	return err
}
