package x509

import (
	"io"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/pubkey"
)

// PEM labels of a PKCS#10 certificate request.
const RequestLabels = "CERTIFICATE REQUEST/NEW CERTIFICATE REQUEST"

var (
	oidChallengePassword = asn1.MustParseOID("1.2.840.113549.1.9.7")
	oidExtensionRequest  = asn1.MustParseOID("1.2.840.113549.1.9.14")
	oidSubjectAltName    = asn1.MustParseOID("2.5.29.17")
)

// Options for CreateCertificateRequest.
type RequestOptions struct {
	Subject           DN
	AltName           AlternativeName
	ChallengePassword string
	Padding           string // eg. "EMSA1(SHA-256)"
}

// A PKCS#10 certificate request.
type CertificateRequest struct {
	*Object

	version   int64
	subject   DN
	publicKey pubkey.PublicKey
	altName   AlternativeName
	challenge string
}

// Creates an empty request.  Fill it using Object.DecodeBytes and friends.
func NewCertificateRequest() *CertificateRequest {
	req := &CertificateRequest{}
	req.Object = NewObject(RequestLabels, req)
	return req
}

// Loads a certificate request from its PEM or BER encoding.
func ParseCertificateRequest(data []byte) (*CertificateRequest, error) {
	req := NewCertificateRequest()
	if err := req.DecodeBytes(data); err != nil {
		return nil, err
	}
	return req, nil
}

// Loads a certificate request from a file.
func LoadCertificateRequest(path string) (*CertificateRequest, error) {
	req := NewCertificateRequest()
	if err := req.DecodeFile(path); err != nil {
		return nil, err
	}
	return req, nil
}

// Creates and signs a certificate request for key.
func CreateCertificateRequest(rng io.Reader, key pubkey.PrivateKey,
	opts RequestOptions) (*CertificateRequest, error) {
	if opts.Padding == "" {
		opts.Padding = "EMSA1(SHA-256)"
	}
	spki, err := pubkey.EncodePublicKey(key.Public())
	if err != nil {
		return nil, err
	}

	e := asn1.NewEncoder()
	e.StartSequence()
	e.EncodeInt(0)
	e.Encode(&opts.Subject)
	e.RawBytes(spki)
	e.StartCons(0, asn1.ContextSpecific)
	if opts.ChallengePassword != "" {
		e.StartSequence()
		e.EncodeOID(oidChallengePassword)
		e.StartCons(asn1.Set, asn1.Universal)
		e.EncodeString(opts.ChallengePassword,
			asn1.ChooseStringType(opts.ChallengePassword))
		e.EndCons()
		e.EndCons()
	}
	if !opts.AltName.IsEmpty() {
		san, err := asn1.Marshal(&opts.AltName)
		if err != nil {
			return nil, err
		}
		e.StartSequence()
		e.EncodeOID(oidExtensionRequest)
		e.StartCons(asn1.Set, asn1.Universal)
		e.StartSequence()
		e.StartSequence()
		e.EncodeOID(oidSubjectAltName)
		e.EncodeOctetString(san)
		e.EndCons()
		e.EndCons()
		e.EndCons()
		e.EndCons()
	}
	e.EndCons()
	e.EndCons()
	tbs, err := e.Bytes()
	if err != nil {
		return nil, err
	}

	der, err := MakeSigned(rng, key, opts.Padding, tbs)
	if err != nil {
		return nil, err
	}
	return ParseCertificateRequest(der)
}

// Implements TBSDecoder.
func (req *CertificateRequest) DecodeTBS(tbs []byte) error {
	d := asn1.NewDecoder(tbs)
	var err error
	if req.version, err = d.DecodeInt(); err != nil {
		return err
	}
	if req.version != 0 {
		return errs.Errorf(errs.DecodingError,
			"Unknown version code in PKCS #10 request: %d", req.version)
	}
	req.subject = DN{}
	if err = d.Decode(&req.subject); err != nil {
		return err
	}
	_, spki, err := d.NextRaw()
	if err != nil {
		return err
	}
	if req.publicKey, err = pubkey.DecodePublicKey(spki); err != nil {
		return err
	}

	req.altName = AlternativeName{}
	req.challenge = ""
	attrs, err := d.StartOptionalCons(0, asn1.ContextSpecific)
	if err != nil {
		return err
	}
	if attrs == nil {
		return errs.Errorf(errs.DecodingError,
			"PKCS #10 request: missing attribute list")
	}
	for attrs.MoreItems() {
		if err = req.decodeAttribute(attrs); err != nil {
			return err
		}
	}
	if _, err = attrs.EndCons(); err != nil {
		return err
	}
	return d.VerifyEnd()
}

func (req *CertificateRequest) decodeAttribute(d *asn1.Decoder) error {
	attr, err := d.StartSequence()
	if err != nil {
		return err
	}
	oid, err := attr.DecodeOID()
	if err != nil {
		return err
	}
	values, err := attr.StartCons(asn1.Set, asn1.Universal)
	if err != nil {
		return err
	}
	switch {
	case oid.Equal(oidChallengePassword):
		if req.challenge, _, err = values.DecodeString(); err != nil {
			return err
		}
	case oid.Equal(oidExtensionRequest):
		if err = req.decodeExtensions(values); err != nil {
			return err
		}
	default:
		log("PKCS #10 request: ignoring attribute %s", oid.Name())
	}
	values.RawBytes()
	if _, err = values.EndCons(); err != nil {
		return err
	}
	return attr.VerifyEnd()
}

func (req *CertificateRequest) decodeExtensions(d *asn1.Decoder) error {
	exts, err := d.StartSequence()
	if err != nil {
		return err
	}
	for exts.MoreItems() {
		ext, err := exts.StartSequence()
		if err != nil {
			return err
		}
		oid, err := ext.DecodeOID()
		if err != nil {
			return err
		}
		if tag, _, _ := ext.PeekTag(); tag == asn1.Boolean {
			if _, err = ext.DecodeBool(); err != nil {
				return err
			}
		}
		value, err := ext.DecodeOctetString()
		if err != nil {
			return err
		}
		if err = ext.VerifyEnd(); err != nil {
			return err
		}
		if oid.Equal(oidSubjectAltName) {
			if err = asn1.Unmarshal(value, &req.altName); err != nil {
				return err
			}
		}
	}
	_, err = exts.EndCons()
	return err
}

func (req *CertificateRequest) Version() int64 { return req.version + 1 }

func (req *CertificateRequest) Subject() *DN { return &req.subject }

func (req *CertificateRequest) PublicKey() pubkey.PublicKey { return req.publicKey }

func (req *CertificateRequest) AltName() *AlternativeName { return &req.altName }

func (req *CertificateRequest) ChallengePassword() string { return req.challenge }

// Checks that the request is signed by the key it carries.
func (req *CertificateRequest) Verify() bool {
	return req.CheckSignature(req.publicKey)
}
