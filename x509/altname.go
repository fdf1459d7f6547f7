package x509

import (
	"net"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

// GeneralName tag numbers.
const (
	tagRFC822  asn1.Tag = 1
	tagDNS     asn1.Tag = 2
	tagDirName asn1.Tag = 4
	tagURI     asn1.Tag = 6
	tagIP      asn1.Tag = 7
)

// The subjectAltName extension.
type AlternativeName struct {
	Email []string
	DNS   []string
	URI   []string
	IP    []string // IPv4 addresses in dotted form
	DN    *DN      // directoryName
}

func (an *AlternativeName) IsEmpty() bool {
	return len(an.Email)+len(an.DNS)+len(an.URI)+len(an.IP) == 0 &&
		(an.DN == nil || an.DN.IsEmpty())
}

// Returns the values of the given GeneralName type: RFC822, DNS, URI
// or IP.
func (an *AlternativeName) Get(typ string) []string {
	switch typ {
	case RFC822:
		return an.Email
	case DNS:
		return an.DNS
	case URI:
		return an.URI
	case IP:
		return an.IP
	}
	return nil
}

func (an *AlternativeName) EncodeInto(e *asn1.Encoder) {
	e.StartSequence()
	for _, s := range an.Email {
		e.EncodeStringTagged(s, tagRFC822, asn1.ContextSpecific, asn1.IA5String)
	}
	for _, s := range an.DNS {
		e.EncodeStringTagged(s, tagDNS, asn1.ContextSpecific, asn1.IA5String)
	}
	if an.DN != nil && !an.DN.IsEmpty() {
		e.StartCons(tagDirName, asn1.ContextSpecific)
		an.DN.EncodeInto(e)
		e.EndCons()
	}
	for _, s := range an.URI {
		e.EncodeStringTagged(s, tagURI, asn1.ContextSpecific, asn1.IA5String)
	}
	for _, s := range an.IP {
		ip := net.ParseIP(s).To4()
		if ip == nil {
			e.AddObject(tagIP, asn1.ContextSpecific, nil)
			continue
		}
		e.AddObject(tagIP, asn1.ContextSpecific, ip)
	}
	e.EndCons()
}

// Decodes the extension.  Name types other than the supported ones are
// skipped.
func (an *AlternativeName) DecodeFrom(d *asn1.Decoder) error {
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "AlternativeName")
	}
	*an = AlternativeName{}
	for seq.MoreItems() {
		obj, err := seq.NextObject()
		if err != nil {
			return errs.Wrapf(err, errs.DecodingError, "AlternativeName")
		}
		if obj.Class&^asn1.Constructed != asn1.ContextSpecific {
			return errs.Errorf(errs.DecodingError,
				"AlternativeName: unexpected %s %d", obj.Class, obj.Tag)
		}
		switch obj.Tag {
		case tagRFC822:
			an.Email = append(an.Email, asn1.Latin1ToUTF8(obj.Value))
		case tagDNS:
			an.DNS = append(an.DNS, asn1.Latin1ToUTF8(obj.Value))
		case tagURI:
			an.URI = append(an.URI, asn1.Latin1ToUTF8(obj.Value))
		case tagIP:
			if len(obj.Value) == 4 {
				an.IP = append(an.IP, net.IP(obj.Value).String())
			}
		case tagDirName:
			var dn DN
			if err := asn1.Unmarshal(obj.Value, &dn); err != nil {
				return errs.Wrapf(err, errs.DecodingError, "AlternativeName")
			}
			an.DN = &dn
		}
	}
	_, err = seq.EndCons()
	return err
}
