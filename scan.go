package cryptocore

import (
	"strconv"
	"strings"

	"github.com/bwesterb/go-cryptocore/errs"
)

// A parsed algorithm specification such as "HMAC(SHA-256)",
// "CTR-BE(AES-128,8)" or "AES-256/CBC/PKCS7".
type ScanName struct {
	orig  string
	Algo  string   // eg. "CTR-BE"
	Args  []string // eg. ["AES-128", "8"]
	Modes []string // eg. ["CBC", "PKCS7"]
}

// Splits s on sep, except within parentheses.
func splitTopLevel(s string, sep byte) ([]string, bool) {
	var ret []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case sep:
			if depth == 0 {
				ret = append(ret, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	return append(ret, s[start:]), true
}

func ParseScanName(s string) (*ScanName, error) {
	bad := func() (*ScanName, error) {
		return nil, errs.Errorf(errs.InvalidArgument, "Bad algorithm name %q", s)
	}
	parts, ok := splitTopLevel(s, '/')
	if !ok || parts[0] == "" {
		return bad()
	}
	ret := &ScanName{orig: s, Modes: parts[1:]}
	for _, mode := range ret.Modes {
		if mode == "" {
			return bad()
		}
	}

	spec := parts[0]
	open := strings.IndexByte(spec, '(')
	if open < 0 {
		if strings.IndexByte(spec, ')') >= 0 {
			return bad()
		}
		ret.Algo = spec
		return ret, nil
	}
	if open == 0 || spec[len(spec)-1] != ')' {
		return bad()
	}
	ret.Algo = spec[:open]
	args, ok := splitTopLevel(spec[open+1:len(spec)-1], ',')
	if !ok {
		return bad()
	}
	for _, arg := range args {
		if arg == "" {
			return bad()
		}
	}
	ret.Args = args
	return ret, nil
}

func (n *ScanName) String() string {
	return n.orig
}

func (n *ScanName) ArgCount() int {
	return len(n.Args)
}

// Returns the i-th argument, or def if there are not that many.
func (n *ScanName) Arg(i int, def string) string {
	if i >= len(n.Args) {
		return def
	}
	return n.Args[i]
}

// Returns the i-th argument as integer, or def if there are not that many.
func (n *ScanName) ArgInt(i int, def int) (int, error) {
	if i >= len(n.Args) {
		return def, nil
	}
	ret, err := strconv.Atoi(n.Args[i])
	if err != nil {
		return 0, errs.Wrapf(err, errs.InvalidArgument,
			"%s: argument %d is not a number", n.orig, i+1)
	}
	return ret, nil
}
