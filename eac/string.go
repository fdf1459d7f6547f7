package eac

import (
	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Application tags of the two EAC strings.
const (
	CAR asn1.Tag = 2  // certification authority reference
	CHR asn1.Tag = 32 // certificate holder reference
)

// An ISO-8859-1 string with an application tag, such as a certification
// authority or certificate holder reference.
type String struct {
	latin1 []byte
	tag    asn1.Tag
}

// Creates a string with the given tag from UTF-8.  Fails unless s
// consists of ISO-8859-1 graphic characters.
func NewString(s string, tag asn1.Tag) (String, error) {
	latin1, ok := asn1.UTF8ToLatin1(s)
	if !ok || !asn1.IsLatin1(latin1) {
		return String{}, errs.Errorf(errs.InvalidArgument,
			"EAC string %q contains illegal characters", s)
	}
	return String{latin1, tag}, nil
}

func NewCAR(s string) (String, error) { return NewString(s, CAR) }
func NewCHR(s string) (String, error) { return NewString(s, CHR) }

// Returns an empty string that decodes objects with the given tag.
func EmptyString(tag asn1.Tag) String {
	return String{tag: tag}
}

// Returns the value as UTF-8.
func (s *String) Value() string {
	return asn1.Latin1ToUTF8(s.latin1)
}

func (s String) String() string {
	return s.Value()
}

func (s *String) Tag() asn1.Tag {
	return s.tag
}

// Compares value and tag.
func (s *String) Equal(other *String) bool {
	return s.tag == other.tag && string(s.latin1) == string(other.latin1)
}

func (s *String) EncodeInto(e *asn1.Encoder) {
	e.AddObject(s.tag, asn1.Application, s.latin1)
}

// Decodes the string.  The object must carry the tag of s.
func (s *String) DecodeFrom(d *asn1.Decoder) error {
	obj, err := d.NextObject()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "EAC string decoding failed")
	}
	if !obj.IsA(s.tag, asn1.Application) {
		return errs.Errorf(errs.DecodingError,
			"EAC string tag mismatch: expected %d, got %s %d",
			s.tag, obj.Class, obj.Tag)
	}
	if !asn1.IsLatin1(obj.Value) {
		return errs.Errorf(errs.DecodingError,
			"EAC string contains illegal characters")
	}
	s.latin1 = append([]byte{}, obj.Value...)
	return nil
}
