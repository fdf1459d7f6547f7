package x509

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strings"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

// GeneralName types.
const (
	RFC822  = "RFC822"
	DNS     = "DNS"
	URI     = "URI"
	DirName = "DN"
	IP      = "IP"
)

// Result of matching a GeneralName against the names of a subject.
type MatchResult int

const (
	// All names of the relevant type match.
	All MatchResult = iota

	// Some, but not all, names match.
	Some

	// No name matches.
	None

	// The subject has no names of the relevant type.
	NotFound

	// Matching is not implemented for this type.
	UnknownType
)

func (r MatchResult) String() string {
	switch r {
	case All:
		return "All"
	case Some:
		return "Some"
	case None:
		return "None"
	case NotFound:
		return "NotFound"
	}
	return "UnknownType"
}

// A name of a name constraint: a type (RFC822, DNS, URI, DN or IP) and
// a name.  IP names have the form "192.168.0.0/255.255.0.0".
type GeneralName struct {
	typ  string
	name string
}

// Parses "TYPE:name", eg. "DNS:example.com".
func NewGeneralName(s string) (GeneralName, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return GeneralName{}, errs.Errorf(errs.InvalidArgument,
			"Failed to decode name constraint %q", s)
	}
	g := GeneralName{typ: s[:i], name: s[i+1:]}
	if err := g.check(); err != nil {
		return GeneralName{}, errs.Wrapf(err, errs.InvalidArgument,
			"Failed to decode name constraint %q", s)
	}
	return g, nil
}

func (g GeneralName) Type() string   { return g.typ }
func (g GeneralName) Name() string   { return g.name }
func (g GeneralName) String() string { return g.typ + ":" + g.name }

// Checks that the name can be encoded as its type.
func (g GeneralName) check() error {
	switch g.typ {
	case RFC822, DNS, URI:
		return nil
	case DirName:
		_, err := ParseDN(g.name)
		return err
	case IP:
		_, _, err := parseIPv4Range(g.name)
		return err
	}
	return errs.Errorf(errs.InvalidArgument, "Unknown GeneralName type %q", g.typ)
}

func parseIPv4(s string) (uint32, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil || strings.Contains(s, ":") {
		return 0, errs.Errorf(errs.DecodingError, "Invalid IPv4 address %q", s)
	}
	return binary.BigEndian.Uint32(ip), nil
}

// Parses "network/mask".
func parseIPv4Range(s string) (network, mask uint32, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, errs.Errorf(errs.DecodingError,
			"Invalid IPv4 range %q: want network/mask", s)
	}
	if network, err = parseIPv4(parts[0]); err != nil {
		return 0, 0, err
	}
	if mask, err = parseIPv4(parts[1]); err != nil {
		return 0, 0, err
	}
	return network, mask, nil
}

func formatIPv4(b []byte) string {
	return net.IP(b).String()
}

// Invalid names make the encoder fail rather than encode a default.
func (g GeneralName) EncodeInto(e *asn1.Encoder) {
	switch g.typ {
	case RFC822:
		e.EncodeStringTagged(g.name, tagRFC822, asn1.ContextSpecific, asn1.IA5String)
	case DNS:
		e.EncodeStringTagged(g.name, tagDNS, asn1.ContextSpecific, asn1.IA5String)
	case URI:
		e.EncodeStringTagged(g.name, tagURI, asn1.ContextSpecific, asn1.IA5String)
	case DirName:
		dn, err := ParseDN(g.name)
		if err != nil {
			e.Fail(errs.Wrapf(err, errs.InvalidArgument, "GeneralName %s", g))
			return
		}
		e.StartCons(tagDirName, asn1.ContextSpecific)
		dn.EncodeInto(e)
		e.EndCons()
	case IP:
		network, mask, err := parseIPv4Range(g.name)
		if err != nil {
			e.Fail(errs.Wrapf(err, errs.InvalidArgument, "GeneralName %s", g))
			return
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint32(buf, network)
		binary.BigEndian.PutUint32(buf[4:], mask)
		e.AddObject(tagIP, asn1.ContextSpecific, buf)
	default:
		e.Fail(errs.Errorf(errs.InvalidArgument,
			"Unknown GeneralName type %q", g.typ))
	}
}

func (g *GeneralName) DecodeFrom(d *asn1.Decoder) error {
	obj, err := d.NextObject()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "GeneralName")
	}
	if obj.Class&^asn1.Constructed != asn1.ContextSpecific {
		return errs.Errorf(errs.DecodingError, "Invalid class tag while decoding GeneralName")
	}

	switch obj.Tag {
	case tagRFC822, tagDNS, tagURI:
		g.name = asn1.Latin1ToUTF8(obj.Value)
		g.typ = map[asn1.Tag]string{tagRFC822: RFC822, tagDNS: DNS, tagURI: URI}[obj.Tag]
	case tagDirName:
		if !obj.IsConstructed() {
			return errs.Errorf(errs.DecodingError, "GeneralName: primitive directoryName")
		}
		var dn DN
		if err := asn1.Unmarshal(obj.Value, &dn); err != nil {
			return errs.Wrapf(err, errs.DecodingError, "GeneralName")
		}
		g.typ, g.name = DirName, dn.String()
	case tagIP:
		switch len(obj.Value) {
		case 8:
			g.typ = IP
			g.name = formatIPv4(obj.Value[:4]) + "/" + formatIPv4(obj.Value[4:])
		case 32:
			return errs.Errorf(errs.DecodingError, "Unsupported IPv6 name constraint")
		default:
			return errs.Errorf(errs.DecodingError,
				"Invalid IP name constraint size %d", len(obj.Value))
		}
	default:
		return errs.Errorf(errs.DecodingError, "Found unknown GeneralName type %d", obj.Tag)
	}
	return nil
}

// Checks whether the DNS name n lies within this DNS constraint.  A
// constraint matches itself and its subdomains.
func (g GeneralName) MatchesDNS(n string) bool {
	switch {
	case len(n) == len(g.name):
		return n == g.name
	case len(n) < len(g.name):
		return false
	}
	constr := g.name
	if !strings.HasPrefix(constr, ".") {
		constr = "." + constr
	}
	return strings.HasSuffix(n, constr)
}

// Checks whether the IPv4 address ip lies within this IP constraint.
func (g GeneralName) MatchesIP(ip string) bool {
	addr, err := parseIPv4(ip)
	if err != nil {
		return false
	}
	network, mask, err := parseIPv4Range(g.name)
	if err != nil {
		return false
	}
	return addr&mask == network
}

// Checks whether the DN in string form n satisfies this DN constraint.
func (g GeneralName) MatchesDN(n string) bool {
	dn, err := ParseDN(n)
	if err != nil {
		return false
	}
	constraint, err := ParseDN(g.name)
	if err != nil {
		return false
	}
	return dn.Matches(constraint)
}

// Matches the constraint against the names of a subject.  DNS
// constraints apply to the DNS alternative names, or the common names
// if there are none.
func (g GeneralName) Matches(subject *DN, alt *AlternativeName) MatchResult {
	if alt == nil {
		alt = &AlternativeName{}
	}
	var names []string
	var match func(string) bool
	switch g.typ {
	case DNS:
		match = g.MatchesDNS
		names = alt.DNS
		if len(names) == 0 && subject != nil {
			names = subject.Get("CN")
		}
	case DirName:
		match = g.MatchesDN
		if subject != nil && !subject.IsEmpty() {
			names = append(names, subject.String())
		}
		if alt.DN != nil && !alt.DN.IsEmpty() {
			names = append(names, alt.DN.String())
		}
	case IP:
		match = g.MatchesIP
		names = alt.IP
	default:
		return UnknownType
	}
	if len(names) == 0 {
		return NotFound
	}

	some, all := false, true
	for _, n := range names {
		m := match(n)
		some = some || m
		all = all && m
	}
	switch {
	case all:
		return All
	case some:
		return Some
	}
	return None
}

// A subtree of a name constraint.  The minimum is always 0 and the
// maximum unbounded.
type GeneralSubtree struct {
	Base    GeneralName
	Minimum int
	Maximum int
}

func NewGeneralSubtree(base GeneralName) GeneralSubtree {
	return GeneralSubtree{Base: base, Minimum: 0, Maximum: math.MaxInt}
}

func (s GeneralSubtree) String() string {
	return fmt.Sprintf("%d,%d,%s", s.Minimum, s.Maximum, s.Base)
}

// Encodes SEQUENCE { base }: the minimum has its default value and the
// maximum is absent.
func (s GeneralSubtree) EncodeInto(e *asn1.Encoder) {
	e.StartSequence()
	s.Base.EncodeInto(e)
	e.EndCons()
}

func (s *GeneralSubtree) DecodeFrom(d *asn1.Decoder) error {
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "GeneralSubtree")
	}
	if err = s.Base.DecodeFrom(seq); err != nil {
		return err
	}
	s.Minimum = 0
	if tag, class, _ := seq.PeekTag(); tag == 0 && class == asn1.ContextSpecific {
		min, err := seq.DecodeIntTagged(0, asn1.ContextSpecific)
		if err != nil {
			return errs.Wrapf(err, errs.DecodingError, "GeneralSubtree")
		}
		if min != 0 {
			return errs.Errorf(errs.DecodingError, "GeneralSubtree minimum must be 0")
		}
	}
	if _, err = seq.DecodeOptional(1, asn1.ContextSpecific); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "GeneralSubtree")
	}
	s.Maximum = math.MaxInt
	_, err = seq.EndCons()
	return err
}

// The nameConstraints extension.
type NameConstraints struct {
	Permitted []GeneralSubtree
	Excluded  []GeneralSubtree
}

func (nc *NameConstraints) EncodeInto(e *asn1.Encoder) {
	e.StartSequence()
	for i, list := range [][]GeneralSubtree{nc.Permitted, nc.Excluded} {
		if len(list) == 0 {
			continue
		}
		e.StartCons(asn1.Tag(i), asn1.ContextSpecific)
		for _, s := range list {
			s.EncodeInto(e)
		}
		e.EndCons()
	}
	e.EndCons()
}

func (nc *NameConstraints) DecodeFrom(d *asn1.Decoder) error {
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "NameConstraints")
	}
	*nc = NameConstraints{}
	for i, list := range []*[]GeneralSubtree{&nc.Permitted, &nc.Excluded} {
		cons, err := seq.StartOptionalCons(asn1.Tag(i), asn1.ContextSpecific)
		if err != nil {
			return errs.Wrapf(err, errs.DecodingError, "NameConstraints")
		}
		if cons == nil {
			continue
		}
		for cons.MoreItems() {
			var s GeneralSubtree
			if err = s.DecodeFrom(cons); err != nil {
				return err
			}
			*list = append(*list, s)
		}
	}
	if _, err = seq.EndCons(); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "NameConstraints")
	}
	if len(nc.Permitted) == 0 && len(nc.Excluded) == 0 {
		return errs.Errorf(errs.DecodingError, "Empty NameConstraints extension")
	}
	return nil
}

// Checks the names of a subject against the constraints.  A permitted
// subtree accepts a subject if all of its names of the subtree's type
// match or if it has none; the subject must be accepted by some
// permitted subtree and partially matched by none.  No name may match
// an excluded subtree.
func (nc *NameConstraints) Permits(subject *DN, alt *AlternativeName) bool {
	if len(nc.Permitted) > 0 {
		accepted, partial := false, false
		for _, s := range nc.Permitted {
			switch s.Base.Matches(subject, alt) {
			case All, NotFound:
				accepted = true
			case Some:
				partial = true
			}
		}
		if !accepted || partial {
			return false
		}
	}
	for _, s := range nc.Excluded {
		switch s.Base.Matches(subject, alt) {
		case All, Some:
			return false
		}
	}
	return true
}
