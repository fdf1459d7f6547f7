package asn1

import (
	"bytes"

	"github.com/bwesterb/go-cryptocore/errs"
)

// Encoding of NULL.
var nullParams = []byte{byte(Null), 0}

// An X.509 AlgorithmIdentifier.
type AlgorithmIdentifier struct {
	OID OID

	// Encoding of the parameters; nil if absent.
	Parameters []byte
}

// Looks up the OID registered for name.  If useNull is set, the
// parameters are an explicit NULL.
func NewAlgorithmIdentifier(name string, params []byte, useNull bool) (
	AlgorithmIdentifier, error) {
	oid, err := OIDFromName(name)
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	if params == nil && useNull {
		params = nullParams
	}
	return AlgorithmIdentifier{OID: oid, Parameters: params}, nil
}

// Returns whether the parameters are absent or NULL.
func (a *AlgorithmIdentifier) ParametersAreNullOrEmpty() bool {
	return len(a.Parameters) == 0 || bytes.Equal(a.Parameters, nullParams)
}

// Compares OID and parameters.  Absent and NULL parameters are equal.
func (a *AlgorithmIdentifier) Equal(other *AlgorithmIdentifier) bool {
	if !a.OID.Equal(other.OID) {
		return false
	}
	if a.ParametersAreNullOrEmpty() && other.ParametersAreNullOrEmpty() {
		return true
	}
	return bytes.Equal(a.Parameters, other.Parameters)
}

func (a *AlgorithmIdentifier) Name() string {
	return a.OID.Name()
}

func (a *AlgorithmIdentifier) EncodeInto(e *Encoder) {
	e.StartSequence()
	e.EncodeOID(a.OID)
	e.RawBytes(a.Parameters)
	e.EndCons()
}

func (a *AlgorithmIdentifier) DecodeFrom(d *Decoder) error {
	seq, err := d.StartSequence()
	if err != nil {
		return errs.Wrapf(err, errs.DecodingError, "AlgorithmIdentifier")
	}
	if a.OID, err = seq.DecodeOID(); err != nil {
		return errs.Wrapf(err, errs.DecodingError, "AlgorithmIdentifier")
	}
	a.Parameters = seq.RawBytes()
	if len(a.Parameters) == 0 {
		a.Parameters = nil
	}
	return nil
}
