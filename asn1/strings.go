package asn1

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Returns whether tag is one of the universal string types.
func IsStringType(tag Tag) bool {
	switch tag {
	case UTF8String, NumericString, PrintableString, T61String,
		IA5String, VisibleString, UniversalString, BMPString:
		return true
	}
	return false
}

const printableChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"0123456789 '()+,-./:=?"

func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(printableChars, s[i]) < 0 {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && s[i] != ' ' {
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Returns whether b consists only of ISO-8859-1 graphic characters.
func IsLatin1(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || (c >= 0x7F && c < 0xA0) {
			return false
		}
	}
	return true
}

// Converts ISO-8859-1 to UTF-8.
func Latin1ToUTF8(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// Converts UTF-8 to ISO-8859-1.  Returns false if s contains characters
// outside of ISO-8859-1.
func UTF8ToLatin1(s string) ([]byte, bool) {
	ret := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		ret = append(ret, byte(r))
	}
	return ret, true
}

func decodeString(b []byte, tag Tag) (string, error) {
	switch tag {
	case UTF8String:
		if !utf8.Valid(b) {
			return "", decodingError("BER: invalid UTF-8 in UTF8String")
		}
		return string(b), nil
	case PrintableString:
		if !isPrintable(string(b)) {
			return "", decodingError("BER: invalid character in PrintableString")
		}
		return string(b), nil
	case NumericString:
		if !isNumeric(string(b)) {
			return "", decodingError("BER: invalid character in NumericString")
		}
		return string(b), nil
	case IA5String, VisibleString:
		if !isASCII(string(b)) {
			return "", decodingError("BER: non-ASCII character in string")
		}
		return string(b), nil
	case T61String:
		return Latin1ToUTF8(b), nil
	case BMPString:
		if len(b)%2 != 0 {
			return "", decodingError("BER: BMPString of odd length")
		}
		units := make([]uint16, len(b)/2)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(b[2*i:])
		}
		return string(utf16.Decode(units)), nil
	case UniversalString:
		if len(b)%4 != 0 {
			return "", decodingError("BER: UniversalString of invalid length")
		}
		var sb strings.Builder
		for i := 0; i < len(b); i += 4 {
			r := rune(binary.BigEndian.Uint32(b[i:]))
			if !utf8.ValidRune(r) {
				return "", decodingError("BER: invalid character in UniversalString")
			}
			sb.WriteRune(r)
		}
		return sb.String(), nil
	}
	return "", decodingError("BER: %d is not a string type", tag)
}

func encodeString(s string, tag Tag) ([]byte, bool) {
	switch tag {
	case UTF8String:
		return []byte(s), utf8.ValidString(s)
	case PrintableString:
		return []byte(s), isPrintable(s)
	case NumericString:
		return []byte(s), isNumeric(s)
	case IA5String, VisibleString:
		return []byte(s), isASCII(s)
	case T61String:
		return UTF8ToLatin1(s)
	case BMPString:
		units := utf16.Encode([]rune(s))
		ret := make([]byte, 2*len(units))
		for i, u := range units {
			binary.BigEndian.PutUint16(ret[2*i:], u)
		}
		return ret, true
	case UniversalString:
		runes := []rune(s)
		ret := make([]byte, 4*len(runes))
		for i, r := range runes {
			binary.BigEndian.PutUint32(ret[4*i:], uint32(r))
		}
		return ret, true
	}
	return nil, false
}

// Picks the most restrictive string type that can hold s.
func ChooseStringType(s string) Tag {
	if isPrintable(s) {
		return PrintableString
	}
	return UTF8String
}
