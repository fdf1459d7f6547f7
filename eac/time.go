// Package eac contains the date and string types of EAC card verifiable
// certificates (BSI TR-03110).
package eac

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwesterb/go-cryptocore/asn1"
	"github.com/bwesterb/go-cryptocore/errs"
)

// Application tags of the two EAC dates.
const (
	EffectiveDate  asn1.Tag = 37 // certificate effective date (CED)
	ExpirationDate asn1.Tag = 36 // certificate expiration date (CEXD)
)

// A calendar date between 2000-01-01 and 2099-12-31 as encoded in card
// verifiable certificates: six octets holding the decimal digits of
// YYMMDD, one digit per octet.
type Time struct {
	year, month, day int
	tag              asn1.Tag
}

func NewTime(year, month, day int, tag asn1.Tag) (Time, error) {
	t := Time{year, month, day, tag}
	if !t.valid() {
		return Time{}, errs.Errorf(errs.InvalidArgument,
			"Invalid EAC date %04d/%02d/%02d", year, month, day)
	}
	return t, nil
}

// Returns today's date (UTC).
func Now(tag asn1.Tag) Time {
	now := time.Now().UTC()
	return Time{now.Year(), int(now.Month()), now.Day(), tag}
}

// Returns the date of t (UTC).
func FromTime(t time.Time, tag asn1.Tag) (Time, error) {
	t = t.UTC()
	return NewTime(t.Year(), int(t.Month()), t.Day(), tag)
}

func (t *Time) valid() bool {
	return t.year >= 2000 && t.year <= 2099 &&
		t.month >= 1 && t.month <= 12 &&
		t.day >= 1 && t.day <= 31
}

// Sets the date from "YYYYMMDD" or three numbers separated by '/', '-'
// or spaces, eg. "2008/12/31".  An empty string unsets the date.
func (t *Time) SetTo(s string) error {
	if s == "" {
		t.year, t.month, t.day = 0, 0, 0
		return nil
	}
	var parts []string
	if len(s) == 8 && !strings.ContainsAny(s, "/- ") {
		parts = []string{s[:4], s[4:6], s[6:]}
	} else {
		parts = strings.FieldsFunc(s, func(r rune) bool {
			return r == '/' || r == '-' || r == ' '
		})
	}
	if len(parts) != 3 {
		return errs.Errorf(errs.InvalidArgument, "Invalid EAC date %q", s)
	}
	var vals [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return errs.Wrapf(err, errs.InvalidArgument, "Invalid EAC date %q", s)
		}
		vals[i] = v
	}
	n := Time{vals[0], vals[1], vals[2], t.tag}
	if !n.valid() {
		return errs.Errorf(errs.InvalidArgument, "Invalid EAC date %q", s)
	}
	*t = n
	return nil
}

// Returns whether the date has been set.
func (t *Time) IsSet() bool {
	return t.year != 0
}

func (t *Time) Year() int      { return t.year }
func (t *Time) Month() int     { return t.month }
func (t *Time) Day() int       { return t.day }
func (t *Time) Tag() asn1.Tag  { return t.tag }

// Returns the date as "YYYY/MM/DD".
func (t *Time) Readable() string {
	return fmt.Sprintf("%04d/%02d/%02d", t.year, t.month, t.day)
}

// Returns the date as "YYYYMMDD".
func (t Time) String() string {
	return fmt.Sprintf("%04d%02d%02d", t.year, t.month, t.day)
}

// Returns -1, 0 or 1 if t is before, equal to or after other.  The tag
// is not compared.
func (t *Time) Cmp(other *Time) int {
	for _, d := range [3]int{
		t.year - other.year,
		t.month - other.month,
		t.day - other.day,
	} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

func (t *Time) Equal(other *Time) bool  { return t.Cmp(other) == 0 }
func (t *Time) Before(other *Time) bool { return t.Cmp(other) < 0 }
func (t *Time) After(other *Time) bool  { return t.Cmp(other) > 0 }

// Moves the date n years forward.  The day is not adjusted.
func (t *Time) AddYears(n int) {
	t.year += n
}

// Moves the date n months forward.
func (t *Time) AddMonths(n int) {
	months := t.month - 1 + n
	t.year += months / 12
	t.month = months%12 + 1
}

// Returns the six octets of the encoding.
func (t *Time) encoded() []byte {
	ret := make([]byte, 6)
	for i, v := range [3]int{t.year - 2000, t.month, t.day} {
		ret[2*i] = byte(v / 10)
		ret[2*i+1] = byte(v % 10)
	}
	return ret
}

func decodeTwoDigits(b1, b2 byte) (int, error) {
	if b1 > 9 || b2 > 9 {
		return 0, errs.Errorf(errs.DecodingError,
			"EAC date digit out of range: %d%d", b1, b2)
	}
	return int(b1)*10 + int(b2), nil
}

func (t *Time) EncodeInto(e *asn1.Encoder) {
	e.AddObject(t.tag, asn1.Application, t.encoded())
}

// Decodes the date.  The object must carry the tag of t.
func (t *Time) DecodeFrom(d *asn1.Decoder) error {
	obj, err := d.NextObject()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "EAC date decoding failed")
	}
	if !obj.IsA(t.tag, asn1.Application) {
		return errs.Errorf(errs.DecodingError,
			"EAC date tag mismatch: expected %d, got %s %d",
			t.tag, obj.Class, obj.Tag)
	}
	if len(obj.Value) != 6 {
		return errs.Errorf(errs.DecodingError,
			"EAC date decoding failed: %d octets instead of 6", len(obj.Value))
	}
	var vals [3]int
	for i := range vals {
		vals[i], err = decodeTwoDigits(obj.Value[2*i], obj.Value[2*i+1])
		if err != nil {
			return errs.Wrapf(err, errs.DecodingError, "EAC date decoding failed")
		}
	}
	n := Time{vals[0] + 2000, vals[1], vals[2], t.tag}
	if !n.valid() {
		return errs.Errorf(errs.DecodingError,
			"EAC date decoding failed: invalid date %s", n.Readable())
	}
	*t = n
	return nil
}
