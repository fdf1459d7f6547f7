package asn1

import (
	"sync"

	"github.com/bwesterb/go-cryptocore/errs"
)

// Entry in the registry of named object identifiers
type oidEntry struct {
	name string // eg. "PBE-PKCS5v20" or "ECDSA/EMSA1(SHA-256)"
	oid  string // dotted decimal
}

// Registry of named object identifiers
var oidRegistry = []oidEntry{
	{"PBE-PKCS5v20", "1.2.840.113549.1.5.13"},
	{"PKCS5.PBKDF2", "1.2.840.113549.1.5.12"},

	{"HMAC(SHA-1)", "1.2.840.113549.2.7"},
	{"HMAC(SHA-224)", "1.2.840.113549.2.8"},
	{"HMAC(SHA-256)", "1.2.840.113549.2.9"},
	{"HMAC(SHA-384)", "1.2.840.113549.2.10"},
	{"HMAC(SHA-512)", "1.2.840.113549.2.11"},

	{"AES-128/CBC", "2.16.840.1.101.3.4.1.2"},
	{"AES-192/CBC", "2.16.840.1.101.3.4.1.22"},
	{"AES-256/CBC", "2.16.840.1.101.3.4.1.42"},
	{"DES/CBC", "1.3.14.3.2.7"},
	{"TripleDES/CBC", "1.2.840.113549.3.7"},

	{"MD5", "1.2.840.113549.2.5"},
	{"SHA-1", "1.3.14.3.2.26"},
	{"SHA-224", "2.16.840.1.101.3.4.2.4"},
	{"SHA-256", "2.16.840.1.101.3.4.2.1"},
	{"SHA-384", "2.16.840.1.101.3.4.2.2"},
	{"SHA-512", "2.16.840.1.101.3.4.2.3"},
	{"RIPEMD-160", "1.3.36.3.2.1"},
	{"Whirlpool", "1.0.10118.3.0.55"},

	{"DSA", "1.2.840.10040.4.1"},
	{"DSA/EMSA1(SHA-1)", "1.2.840.10040.4.3"},
	{"DSA/EMSA1(SHA-224)", "2.16.840.1.101.3.4.3.1"},
	{"DSA/EMSA1(SHA-256)", "2.16.840.1.101.3.4.3.2"},

	{"ECDSA", "1.2.840.10045.2.1"},
	{"ECDSA/EMSA1(SHA-1)", "1.2.840.10045.4.1"},
	{"ECDSA/EMSA1(SHA-224)", "1.2.840.10045.4.3.1"},
	{"ECDSA/EMSA1(SHA-256)", "1.2.840.10045.4.3.2"},
	{"ECDSA/EMSA1(SHA-384)", "1.2.840.10045.4.3.3"},
	{"ECDSA/EMSA1(SHA-512)", "1.2.840.10045.4.3.4"},

	{"ECGDSA", "1.3.36.3.3.2.5.2.1"},
	{"ECGDSA/EMSA1(RIPEMD-160)", "1.3.36.3.3.2.5.4.1"},
	{"ECGDSA/EMSA1(SHA-1)", "1.3.36.3.3.2.5.4.2"},
	{"ECGDSA/EMSA1(SHA-224)", "1.3.36.3.3.2.5.4.3"},
	{"ECGDSA/EMSA1(SHA-256)", "1.3.36.3.3.2.5.4.4"},
	{"ECGDSA/EMSA1(SHA-384)", "1.3.36.3.3.2.5.4.5"},
	{"ECGDSA/EMSA1(SHA-512)", "1.3.36.3.3.2.5.4.6"},

	{"secp224r1", "1.3.132.0.33"},
	{"secp256r1", "1.2.840.10045.3.1.7"},
	{"secp384r1", "1.3.132.0.34"},
	{"secp521r1", "1.3.132.0.35"},

	{"X520.CommonName", "2.5.4.3"},
	{"X520.Surname", "2.5.4.4"},
	{"X520.SerialNumber", "2.5.4.5"},
	{"X520.Country", "2.5.4.6"},
	{"X520.Locality", "2.5.4.7"},
	{"X520.State", "2.5.4.8"},
	{"X520.Organization", "2.5.4.10"},
	{"X520.OrganizationalUnit", "2.5.4.11"},
	{"PKCS9.EmailAddress", "1.2.840.113549.1.9.1"},
	{"PKCS9.ChallengePassword", "1.2.840.113549.1.9.7"},
	{"PKCS9.ExtensionRequest", "1.2.840.113549.1.9.14"},

	{"X509v3.KeyUsage", "2.5.29.15"},
	{"X509v3.SubjectAlternativeName", "2.5.29.17"},
	{"X509v3.BasicConstraints", "2.5.29.19"},
	{"X509v3.NameConstraints", "2.5.29.30"},
}

var (
	oidMux     sync.RWMutex
	oidNameLut map[string]OID    // name -> OID
	oidLut     map[string]string // dotted OID -> name
)

func init() {
	oidNameLut = make(map[string]OID)
	oidLut = make(map[string]string)
	for _, entry := range oidRegistry {
		RegisterOID(MustParseOID(entry.oid), entry.name)
	}
}

// Adds a name for oid.  Existing mappings are not overwritten.
func RegisterOID(oid OID, name string) {
	oidMux.Lock()
	defer oidMux.Unlock()
	if _, ok := oidNameLut[name]; !ok {
		oidNameLut[name] = oid
	}
	if _, ok := oidLut[oid.String()]; !ok {
		oidLut[oid.String()] = name
	}
}

// Returns the OID registered under name.  Dotted decimal strings are
// parsed as is.
func OIDFromName(name string) (OID, error) {
	oidMux.RLock()
	oid, ok := oidNameLut[name]
	oidMux.RUnlock()
	if ok {
		return oid, nil
	}
	if ret, err := ParseOID(name); err == nil {
		return ret, nil
	}
	return nil, errs.Errorf(errs.NotFound, "No OID registered for %s", name)
}

// Returns the name registered for oid.
func NameOfOID(oid OID) (string, bool) {
	oidMux.RLock()
	defer oidMux.RUnlock()
	name, ok := oidLut[oid.String()]
	return name, ok
}

// Returns the registered name of oid, or its dotted form.
func (oid OID) Name() string {
	if name, ok := NameOfOID(oid); ok {
		return name
	}
	return oid.String()
}
