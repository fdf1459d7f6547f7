package x509

import (
	"strings"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Short forms of attribute names as used in the string form of a DN.
var dnShortNames = []struct{ short, long string }{
	{"CN", "X520.CommonName"},
	{"SN", "X520.Surname"},
	{"serialNumber", "X520.SerialNumber"},
	{"C", "X520.Country"},
	{"L", "X520.Locality"},
	{"ST", "X520.State"},
	{"O", "X520.Organization"},
	{"OU", "X520.OrganizationalUnit"},
	{"emailAddress", "PKCS9.EmailAddress"},
}

// Resolves a short form, OID name or dotted OID to an OID.
func attributeOID(typ string) (asn1.OID, error) {
	for _, n := range dnShortNames {
		if n.short == typ {
			return asn1.OIDFromName(n.long)
		}
	}
	return asn1.OIDFromName(typ)
}

// Returns the short form of oid if there is one and its name otherwise.
func attributeShortName(oid asn1.OID) string {
	name := oid.Name()
	for _, n := range dnShortNames {
		if n.long == name {
			return n.short
		}
	}
	return name
}

// String type an attribute value is encoded with.
func attributeStringType(oid asn1.OID, value string) asn1.Tag {
	switch oid.Name() {
	case "X520.Country", "X520.SerialNumber":
		return asn1.PrintableString
	case "PKCS9.EmailAddress":
		return asn1.IA5String
	}
	return asn1.ChooseStringType(value)
}

type Attribute struct {
	Type  asn1.OID
	Value string
}

// A distinguished name: an ordered list of attributes.
type DN struct {
	attrs []Attribute
}

// Adds an attribute.  typ is a short form such as "CN", an OID name
// such as "X520.CommonName" or a dotted OID.
func (dn *DN) Add(typ, value string) error {
	oid, err := attributeOID(typ)
	if err != nil {
		return err
	}
	dn.attrs = append(dn.attrs, Attribute{oid, value})
	return nil
}

// Returns the values of the attributes of the given type.
func (dn *DN) Get(typ string) []string {
	oid, err := attributeOID(typ)
	if err != nil {
		return nil
	}
	var ret []string
	for _, a := range dn.attrs {
		if a.Type.Equal(oid) {
			ret = append(ret, a.Value)
		}
	}
	return ret
}

func (dn *DN) Attributes() []Attribute {
	return append([]Attribute{}, dn.attrs...)
}

func (dn *DN) IsEmpty() bool {
	return len(dn.attrs) == 0
}

func (dn *DN) Equal(other *DN) bool {
	if len(dn.attrs) != len(other.attrs) {
		return false
	}
	for i, a := range dn.attrs {
		b := other.attrs[i]
		if !a.Type.Equal(b.Type) || a.Value != b.Value {
			return false
		}
	}
	return true
}

// Checks whether dn satisfies the constraint: every attribute type of
// the constraint that dn carries must have the same (first) value, and
// there must be at least one such type.
func (dn *DN) Matches(constraint *DN) bool {
	tries := 0
	for _, c := range constraint.attrs {
		for _, a := range dn.attrs {
			if a.Type.Equal(c.Type) {
				tries++
				if a.Value != c.Value {
					return false
				}
				break
			}
		}
	}
	return tries > 0
}

// Formats the DN as CN="Alice",O="Example".
func (dn *DN) String() string {
	var sb strings.Builder
	for i, a := range dn.attrs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(attributeShortName(a.Type))
		sb.WriteString("=\"")
		for _, c := range a.Value {
			if c == '\\' || c == '"' {
				sb.WriteByte('\\')
			}
			sb.WriteRune(c)
		}
		sb.WriteByte('"')
	}
	return sb.String()
}

// Parses the string form produced by DN.String.  Values may also be
// unquoted, in which case they end at the next comma.
func ParseDN(s string) (*DN, error) {
	dn := &DN{}
	for len(s) > 0 {
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, errs.Errorf(errs.InvalidArgument, "Malformed DN %q", s)
		}
		typ := strings.TrimSpace(s[:eq])
		s = s[eq+1:]

		var value strings.Builder
		if strings.HasPrefix(s, "\"") {
			i, closed := 1, false
			for ; i < len(s); i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				} else if s[i] == '"' {
					closed = true
					break
				}
				value.WriteByte(s[i])
			}
			if !closed {
				return nil, errs.Errorf(errs.InvalidArgument, "Unterminated value in DN")
			}
			s = s[i+1:]
		} else {
			end := strings.IndexByte(s, ',')
			if end < 0 {
				end = len(s)
			}
			value.WriteString(strings.TrimSpace(s[:end]))
			s = s[end:]
		}

		if err := dn.Add(typ, value.String()); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if len(s) > 0 {
			if s[0] != ',' {
				return nil, errs.Errorf(errs.InvalidArgument, "Malformed DN: expected ','")
			}
			s = strings.TrimSpace(s[1:])
		}
	}
	return dn, nil
}

// Encodes the DN as a SEQUENCE of single-attribute RDNs.
func (dn *DN) EncodeInto(e *asn1.Encoder) {
	e.StartSequence()
	for _, a := range dn.attrs {
		e.StartCons(asn1.Set, asn1.Universal)
		e.StartSequence()
		e.EncodeOID(a.Type)
		e.EncodeString(a.Value, attributeStringType(a.Type, a.Value))
		e.EndCons()
		e.EndCons()
	}
	e.EndCons()
}

func (dn *DN) DecodeFrom(d *asn1.Decoder) error {
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "X509_DN")
	}
	dn.attrs = nil
	for seq.MoreItems() {
		rdn, err := seq.StartCons(asn1.Set, asn1.Universal)
		if err != nil {
			return errs.Wrapf(err, errs.DecodingError, "X509_DN")
		}
		for rdn.MoreItems() {
			atv, err := rdn.StartSequence()
			if err != nil {
				return errs.Wrapf(err, errs.DecodingError, "X509_DN")
			}
			oid, err := atv.DecodeOID()
			if err != nil {
				return errs.Wrapf(err, errs.DecodingError, "X509_DN")
			}
			value, _, err := atv.DecodeString()
			if err != nil {
				return errs.Wrapf(err, errs.DecodingError, "X509_DN")
			}
			if _, err = atv.EndCons(); err != nil {
				return errs.Wrapf(err, errs.DecodingError, "X509_DN")
			}
			dn.attrs = append(dn.attrs, Attribute{oid, value})
		}
		if _, err = rdn.EndCons(); err != nil {
			return errs.Wrapf(err, errs.DecodingError, "X509_DN")
		}
	}
	_, err = seq.EndCons()
	return err
}
