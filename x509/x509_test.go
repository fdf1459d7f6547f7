package x509

import (
	"bytes"
	"crypto/rand"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/bwesterb/go-cryptocore"
	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/dsa"
	"github.com/bwesterb/go-cryptocore/ec"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/pubkey"
)

func testGeneralName(s string, t *testing.T) GeneralName {
	g, err := NewGeneralName(s)
	if err != nil {
		t.Fatalf("NewGeneralName(%q): %v", s, err)
	}
	return g
}

func testDN(s string, t *testing.T) *DN {
	dn, err := ParseDN(s)
	if err != nil {
		t.Fatalf("ParseDN(%q): %v", s, err)
	}
	return dn
}

func TestMatchesDNS(t *testing.T) {
	for _, tc := range []struct {
		constraint, name string
		want             bool
	}{
		{"example.com", "example.com", true},
		{"example.com", "www.example.com", true},
		{"example.com", "a.b.example.com", true},
		{"example.com", "badexample.com", false},
		{"example.com", "example.org", false},
		{"example.com", "com", false},
		{".example.com", "www.example.com", true},
		{".example.com", "example.com", false},
	} {
		g := testGeneralName("DNS:"+tc.constraint, t)
		assert.Check(t, is.Equal(g.MatchesDNS(tc.name), tc.want),
			"%s vs %s", tc.constraint, tc.name)
	}
}

func TestMatchesIP(t *testing.T) {
	g := testGeneralName("IP:192.168.0.0/255.255.0.0", t)
	assert.Check(t, g.MatchesIP("192.168.12.34"))
	assert.Check(t, !g.MatchesIP("192.169.0.1"))
	assert.Check(t, !g.MatchesIP("not an address"))
	assert.Check(t, !GeneralName{typ: IP, name: "10.0.0.1"}.MatchesIP("10.0.0.1"))
}

func TestMatchesDN(t *testing.T) {
	g := testGeneralName(`DN:O="Example",C="NL"`, t)
	assert.Check(t, g.MatchesDN(`CN="Alice",O="Example",C="NL"`))
	assert.Check(t, !g.MatchesDN(`CN="Alice",O="Other",C="NL"`))
	assert.Check(t, !g.MatchesDN(`CN="Alice"`))
}

func TestGeneralNameErrors(t *testing.T) {
	for _, s := range []string{
		"example.com",
		"FOO:bar",
		"IP:not-an-address",
		"IP:10.0.0.0",
		"IP:10.0.0.0/255.0.0",
		"IP:10.0.0.0/255.0.0.0/8",
		"IP:::1/ffff::",
		"DN:no equals sign",
	} {
		_, err := NewGeneralName(s)
		assert.Check(t, errs.Is(err, errs.InvalidArgument), "%s: %v", s, err)
	}

	// names built without validation must not encode as a default
	for _, g := range []GeneralName{
		{typ: IP, name: "not-an-address"},
		{typ: DirName, name: "no equals sign"},
		{typ: "FOO", name: "bar"},
	} {
		_, err := asn1.Marshal(NewGeneralSubtree(g))
		assert.Check(t, errs.Is(err, errs.InvalidArgument), "%s: %v", g, err)
	}

	// [7] with a 32 byte IPv6 address and mask
	e := asn1.NewEncoder()
	e.AddObject(tagIP, asn1.ContextSpecific, make([]byte, 32))
	der, _ := e.Bytes()
	var g GeneralName
	err := asn1.Unmarshal(der, &g)
	assert.Check(t, errs.Is(err, errs.DecodingError))
	assert.Check(t, is.Contains(err.Error(), "Unsupported IPv6 name constraint"))

	// [3] x400Address is not supported
	e = asn1.NewEncoder()
	e.AddObject(3, asn1.ContextSpecific, []byte{1})
	der, _ = e.Bytes()
	err = asn1.Unmarshal(der, &g)
	assert.Check(t, is.Contains(err.Error(), "Found unknown GeneralName type"))
}

func TestGeneralSubtreeRoundTrip(t *testing.T) {
	for _, s := range []string{
		"DNS:example.com",
		"RFC822:alice@example.com",
		"URI:https://example.com/",
		"IP:10.0.0.0/255.0.0.0",
		`DN:CN="Alice",O="Example"`,
	} {
		st := NewGeneralSubtree(testGeneralName(s, t))
		der, err := asn1.Marshal(st)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", s, err)
		}
		var got GeneralSubtree
		if err = asn1.Unmarshal(der, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", s, err)
		}
		assert.Check(t, is.Equal(got.String(), st.String()))
		assert.Check(t, is.Equal(got.Maximum, math.MaxInt))
	}
}

func TestGeneralSubtreeMinimum(t *testing.T) {
	e := asn1.NewEncoder()
	e.StartSequence()
	testGeneralName("DNS:example.com", t).EncodeInto(e)
	e.EncodeIntTagged(1, 0, asn1.ContextSpecific)
	e.EndCons()
	der, _ := e.Bytes()

	var st GeneralSubtree
	err := asn1.Unmarshal(der, &st)
	assert.Check(t, errs.Is(err, errs.DecodingError))
}

func TestNameConstraints(t *testing.T) {
	nc := NameConstraints{
		Permitted: []GeneralSubtree{
			NewGeneralSubtree(testGeneralName("DNS:example.com", t)),
		},
		Excluded: []GeneralSubtree{
			NewGeneralSubtree(testGeneralName("DNS:secret.example.com", t)),
			NewGeneralSubtree(testGeneralName("IP:10.0.0.0/255.0.0.0", t)),
		},
	}
	der, err := asn1.Marshal(&nc)
	if err != nil {
		t.Fatalf("Marshal(): %v", err)
	}
	var got NameConstraints
	if err = asn1.Unmarshal(der, &got); err != nil {
		t.Fatalf("Unmarshal(): %v", err)
	}
	assert.Check(t, is.Len(got.Permitted, 1))
	assert.Check(t, is.Len(got.Excluded, 2))

	subject := testDN(`CN="www.example.com"`, t)
	assert.Check(t, got.Permits(subject, nil))
	assert.Check(t, got.Permits(subject, &AlternativeName{
		DNS: []string{"www.example.com", "mail.example.com"}}))
	assert.Check(t, !got.Permits(subject, &AlternativeName{
		DNS: []string{"www.example.com", "www.example.org"}}))
	assert.Check(t, !got.Permits(subject, &AlternativeName{
		DNS: []string{"db.secret.example.com"}}))
	assert.Check(t, !got.Permits(subject, &AlternativeName{
		DNS: []string{"www.example.com"}, IP: []string{"10.1.2.3"}}))
	assert.Check(t, !got.Permits(testDN(`CN="www.example.org"`, t), nil))

	empty, _ := asn1.Marshal(&NameConstraints{})
	err = asn1.Unmarshal(empty, &got)
	assert.Check(t, errs.Is(err, errs.DecodingError))
}

func TestDN(t *testing.T) {
	dn := testDN(`CN="Alice \"A\" Smith",O=Example,C="NL",emailAddress="alice@example.com"`, t)
	assert.Check(t, is.DeepEqual(dn.Get("CN"), []string{`Alice "A" Smith`}))
	assert.Check(t, is.DeepEqual(dn.Get("X520.Organization"), []string{"Example"}))
	assert.Check(t, is.Equal(dn.String(),
		`CN="Alice \"A\" Smith",O="Example",C="NL",emailAddress="alice@example.com"`))

	der, err := asn1.Marshal(dn)
	if err != nil {
		t.Fatalf("Marshal(): %v", err)
	}
	var got DN
	if err = asn1.Unmarshal(der, &got); err != nil {
		t.Fatalf("Unmarshal(): %v", err)
	}
	assert.Check(t, got.Equal(dn))
	assert.Check(t, got.Matches(testDN("C=NL", t)))

	_, err = ParseDN(`CN="unterminated`)
	assert.Check(t, errs.Is(err, errs.InvalidArgument))
	_, err = ParseDN("NoSuchAttribute=x")
	assert.Check(t, err != nil)
}

func TestAlternativeName(t *testing.T) {
	an := AlternativeName{
		Email: []string{"alice@example.com"},
		DNS:   []string{"example.com", "www.example.com"},
		URI:   []string{"https://example.com/"},
		IP:    []string{"192.0.2.1"},
		DN:    testDN(`CN="Alice"`, t),
	}
	der, err := asn1.Marshal(&an)
	if err != nil {
		t.Fatalf("Marshal(): %v", err)
	}
	var got AlternativeName
	if err = asn1.Unmarshal(der, &got); err != nil {
		t.Fatalf("Unmarshal(): %v", err)
	}
	assert.Check(t, is.DeepEqual(got.DNS, an.DNS))
	assert.Check(t, is.DeepEqual(got.Email, an.Email))
	assert.Check(t, is.DeepEqual(got.URI, an.URI))
	assert.Check(t, is.DeepEqual(got.IP, an.IP))
	assert.Check(t, got.DN != nil && got.DN.Equal(an.DN))
}

func testSigners(t *testing.T) map[string]pubkey.PrivateKey {
	group, err := dsa.NamedGroup("dsa/cryptocore-1024")
	if err != nil {
		t.Fatalf("NamedGroup(): %v", err)
	}
	dsaKey, err := dsa.GenerateKey(rand.Reader, group)
	if err != nil {
		t.Fatalf("dsa.GenerateKey(): %v", err)
	}
	domain, err := ec.DomainByName("secp256r1")
	if err != nil {
		t.Fatalf("DomainByName(): %v", err)
	}
	ecdsaKey, err := ec.GenerateKey(rand.Reader, ec.ECDSA, domain)
	if err != nil {
		t.Fatalf("ec.GenerateKey(): %v", err)
	}
	ecgdsaKey, err := ec.GenerateKey(rand.Reader, ec.ECGDSA, domain)
	if err != nil {
		t.Fatalf("ec.GenerateKey(): %v", err)
	}
	return map[string]pubkey.PrivateKey{
		"DSA":    dsaKey,
		"ECDSA":  ecdsaKey,
		"ECGDSA": ecgdsaKey,
	}
}

func TestCertificateRequest(t *testing.T) {
	cryptocore.SetLogger(t)
	defer cryptocore.SetLogger(nil)

	opts := RequestOptions{
		Subject:           *testDN(`CN="www.example.com",O="Example"`, t),
		AltName:           AlternativeName{DNS: []string{"www.example.com"}},
		ChallengePassword: "hunter2",
	}
	for name, key := range testSigners(t) {
		req, err := CreateCertificateRequest(rand.Reader, key, opts)
		if err != nil {
			t.Fatalf("%s: CreateCertificateRequest(): %v", name, err)
		}
		assert.Check(t, req.Verify(), name)
		assert.Check(t, is.Equal(req.Version(), int64(1)))
		assert.Check(t, req.Subject().Equal(&opts.Subject))
		assert.Check(t, is.DeepEqual(req.AltName().DNS, opts.AltName.DNS))
		assert.Check(t, is.Equal(req.ChallengePassword(), "hunter2"))
		assert.Check(t, pubkey.PublicKeysEqual(req.PublicKey(), key.Public()))

		algo, padding, err := pubkey.ParseSignatureAlgorithm(req.SignatureAlgorithm())
		assert.NilError(t, err)
		assert.Check(t, is.Equal(algo, name))
		assert.Check(t, is.Equal(padding, "EMSA1(SHA-256)"))

		// PEM and BER encodings decode to the same object
		pemData := req.Encode(PEM)
		assert.Check(t, bytes.HasPrefix(pemData, []byte("-----BEGIN CERTIFICATE REQUEST-----")))
		again, err := ParseCertificateRequest(pemData)
		if err != nil {
			t.Fatalf("%s: ParseCertificateRequest(): %v", name, err)
		}
		assert.Check(t, cmp.Equal(again.Encode(Raw), req.Encode(Raw)))
		assert.Check(t, again.Verify())

		// A flipped bit in the signed data breaks the signature
		der := req.Encode(Raw)
		tampered := append([]byte{}, der...)
		idx := bytes.Index(tampered, []byte("www.example.com"))
		tampered[idx] ^= 1
		bad, err := ParseCertificateRequest(tampered)
		if err != nil {
			t.Fatalf("%s: ParseCertificateRequest(tampered): %v", name, err)
		}
		assert.Check(t, !bad.Verify(), name)
	}
}

func TestObjectLabels(t *testing.T) {
	key := testSigners(t)["ECDSA"]
	req, err := CreateCertificateRequest(rand.Reader, key, RequestOptions{
		Subject: *testDN("CN=test", t),
	})
	if err != nil {
		t.Fatalf("CreateCertificateRequest(): %v", err)
	}
	der := req.Encode(Raw)

	alt := pubkey.EncodePEM(der, "NEW CERTIFICATE REQUEST")
	_, err = ParseCertificateRequest(alt)
	assert.NilError(t, err)

	wrong := pubkey.EncodePEM(der, "CERTIFICATE")
	_, err = ParseCertificateRequest(wrong)
	assert.Check(t, errs.Is(err, errs.DecodingError))
	assert.Check(t, is.Contains(err.Error(), "Invalid PEM label"))

	_, err = ParseCertificateRequest(der[:len(der)-3])
	assert.Check(t, errs.Is(err, errs.DecodingError))
	assert.Check(t, is.Contains(err.Error(), "CERTIFICATE REQUEST decoding failed"))

	_, err = ParseCertificateRequest([]byte("garbage"))
	assert.Check(t, errs.Is(err, errs.DecodingError))

	// A valid SIGNED object whose signature does not match
	obj := NewObject("CERTIFICATE REQUEST", nil)
	assert.NilError(t, obj.DecodeBytes(der))
	assert.Check(t, is.Equal(obj.PEMLabel(), "CERTIFICATE REQUEST"))
	assert.Check(t, !obj.CheckSignature(testSigners(t)["ECDSA"].Public()))
	assert.Check(t, !obj.CheckSignature(nil))
}

func TestLoadCertificateRequest(t *testing.T) {
	key := testSigners(t)["DSA"]
	req, err := CreateCertificateRequest(rand.Reader, key, RequestOptions{
		Subject: *testDN("CN=file", t),
	})
	if err != nil {
		t.Fatalf("CreateCertificateRequest(): %v", err)
	}
	path := filepath.Join(t.TempDir(), "req.pem")
	if err = os.WriteFile(path, req.Encode(PEM), 0o600); err != nil {
		t.Fatalf("WriteFile(): %v", err)
	}
	got, err := LoadCertificateRequest(path)
	if err != nil {
		t.Fatalf("LoadCertificateRequest(): %v", err)
	}
	assert.Check(t, got.Verify())
	assert.Check(t, is.Equal(got.Subject().String(), `CN="file"`))

	got = NewCertificateRequest()
	assert.NilError(t, got.Decode(strings.NewReader(string(req.Encode(PEM)))))

	_, err = LoadCertificateRequest(filepath.Join(t.TempDir(), "missing"))
	assert.Check(t, errs.Is(err, errs.NotFound))
}

func TestStore(t *testing.T) {
	key := testSigners(t)["ECDSA"]
	store := NewStore()
	var keys []uint64
	for _, cn := range []string{"a", "b"} {
		req, err := CreateCertificateRequest(rand.Reader, key, RequestOptions{
			Subject: *testDN("CN="+cn, t),
		})
		if err != nil {
			t.Fatalf("CreateCertificateRequest(): %v", err)
		}
		loaded, err := store.Load(req.Encode(PEM))
		if err != nil {
			t.Fatalf("Load(): %v", err)
		}
		assert.Check(t, !store.Add(loaded.Object))
		keys = append(keys, StoreKey(loaded.Object))
	}
	assert.Check(t, is.Equal(store.Len(), 2))
	assert.Check(t, is.Len(store.All(), 2))

	obj, err := store.Get(keys[1])
	assert.NilError(t, err)
	assert.Check(t, is.Equal(StoreKey(obj), keys[1]))

	_, err = store.Get(keys[0] ^ keys[1] ^ 1)
	assert.Check(t, errs.Is(err, errs.NotFound))
}

// Objects whose hashes collide are told apart by their encoding.
func TestStoreCollision(t *testing.T) {
	key := testSigners(t)["ECDSA"]
	store := NewStore()
	store.key = func(*Object) uint64 { return 42 }
	var objs []*Object
	for _, cn := range []string{"a", "b"} {
		req, err := CreateCertificateRequest(rand.Reader, key, RequestOptions{
			Subject: *testDN("CN="+cn, t),
		})
		if err != nil {
			t.Fatalf("CreateCertificateRequest(): %v", err)
		}
		assert.Check(t, store.Add(req.Object))
		objs = append(objs, req.Object)
	}
	assert.Check(t, !store.Add(objs[1]))
	assert.Check(t, is.Equal(store.Len(), 2))
	all := store.All()
	assert.Assert(t, is.Len(all, 2))
	assert.Check(t, all[0] == objs[0] && all[1] == objs[1])

	obj, err := store.Get(42)
	assert.NilError(t, err)
	assert.Check(t, obj == objs[0])
}
