// Package rng implements HMAC_RNG, a random number generator built from
// an extractor MAC and a PRF MAC (Krawczyk's HKDF construction), and
// the entropy sources that seed it.
package rng

import (
	"encoding/binary"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/bwesterb/go-cryptocore"
	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
	"github.com/bwesterb/go-cryptocore/internal/logging"
)

const (
	DefaultExtractor = "HMAC(SHA-512)"
	DefaultPRF       = "HMAC(SHA-256)"
	DefaultPollBits  = 256
)

// Constant keys used before the first reseed.  No output is produced
// until then, so their values do not matter.
var (
	initialPRFKey   = []byte("cryptocore HMAC_RNG PRF")
	initialXTSLabel = []byte("cryptocore HMAC_RNG XTS")
)

func log(format string, a ...interface{}) {
	logging.Logf(format, a...)
}

type Options struct {
	// Entropy to collect on the initial reseed.  Zero means
	// DefaultPollBits.
	PollBits int

	// Also seed from (and refresh) this file if set.
	SeedFile string
}

// HMAC_RNG.  Safe for concurrent use.
type HMACRNG struct {
	mux       sync.Mutex
	extractor algo.MAC
	prf       algo.MAC
	sources   []Source

	k       []byte // PRF feedback
	counter uint32
	seeded  bool
}

// Creates an unseeded HMAC_RNG.  The PRF must accept keys as long as
// the extractor's output and vice versa.
func NewHMACRNG(extractor, prf algo.MAC) (*HMACRNG, error) {
	if !prf.KeySpec().Valid(extractor.Size()) || !extractor.KeySpec().Valid(prf.Size()) {
		return nil, errs.Errorf(errs.InvalidArgument,
			"HMAC_RNG: Bad algo combination %s and %s", extractor.Name(), prf.Name())
	}
	r := &HMACRNG{extractor: extractor, prf: prf}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

// Creates an unseeded HMAC_RNG with the default MACs.
func NewDefault() (*HMACRNG, error) {
	extractor, err := cryptocore.NewMAC(DefaultExtractor, "")
	if err != nil {
		return nil, err
	}
	prf, err := cryptocore.NewMAC(DefaultPRF, "")
	if err != nil {
		return nil, err
	}
	return NewHMACRNG(extractor, prf)
}

// Creates an HMAC_RNG with the default MACs seeded from the system and,
// if configured, a seed file.
func NewAutoSeeded(opts Options) (*HMACRNG, error) {
	r, err := NewDefault()
	if err != nil {
		return nil, err
	}
	r.AddEntropySource(&SystemSource{})
	if opts.SeedFile != "" {
		src, err := NewSeedFileSource(opts.SeedFile)
		if err != nil {
			return nil, err
		}
		r.AddEntropySource(src)
	}
	pollBits := opts.PollBits
	if pollBits <= 0 {
		pollBits = DefaultPollBits
	}
	if err := r.Reseed(pollBits); err != nil {
		log("HMAC_RNG: some entropy sources failed: %v", err)
	}
	if !r.IsSeeded() {
		return nil, errs.Errorf(errs.PRNGUnseeded,
			"%s: could not gather %d bits of entropy", r.Name(), pollBits)
	}
	return r, nil
}

func (r *HMACRNG) init() error {
	r.k = nil
	r.counter = 0
	r.seeded = false
	if err := r.prf.SetKey(initialPRFKey); err != nil {
		return err
	}
	r.prf.Write(initialXTSLabel)
	xts := r.prf.Sum(nil)
	r.prf.Reset()
	return r.extractor.SetKey(xts)
}

// K = PRF(K || label || counter); counter++
func (r *HMACRNG) hmacPRF(label string) {
	var ctr [4]byte
	binary.BigEndian.PutUint32(ctr[:], r.counter)
	r.prf.Write(r.k)
	r.prf.Write([]byte(label))
	r.prf.Write(ctr[:])
	k := r.prf.Sum(nil)
	r.prf.Reset()
	algo.Zeroize(r.k)
	r.k = k
	r.counter++
}

func (r *HMACRNG) Name() string {
	return "HMAC_RNG(" + r.extractor.Name() + "," + r.prf.Name() + ")"
}

func (r *HMACRNG) IsSeeded() bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.seeded
}

func (r *HMACRNG) AddEntropySource(src Source) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.sources = append(r.sources, src)
}

// Fills out with random bytes.  Fails with PRNGUnseeded until the RNG
// has been seeded.
func (r *HMACRNG) Randomize(out []byte) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if !r.seeded {
		return errs.Errorf(errs.PRNGUnseeded, "%s", r.Name())
	}
	for len(out) > 0 {
		r.hmacPRF("rng")
		n := copy(out, r.k)
		out = out[n:]
	}
	return nil
}

// Implements io.Reader.
func (r *HMACRNG) Read(p []byte) (int, error) {
	if err := r.Randomize(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Polls the entropy sources for pollBits bits of entropy and rekeys.
// Errors of individual sources are collected and returned, but do not
// stop the reseed.  The RNG counts as seeded only if a positive goal
// was reached.
func (r *HMACRNG) Reseed(pollBits int) error {
	return r.reseedWithInput(pollBits, nil)
}

// Mixes input into the state.  The RNG counts as seeded afterwards.
func (r *HMACRNG) AddEntropy(input []byte) error {
	return r.reseedWithInput(0, input)
}

func (r *HMACRNG) reseedWithInput(pollBits int, input []byte) error {
	r.mux.Lock()

	var result *multierror.Error
	acc := newAccumulator(r.extractor, pollBits)
	if len(r.sources) > 0 {
		for attempt := 0; !acc.GoalAchieved() && attempt < pollBits; attempt++ {
			src := r.sources[attempt%len(r.sources)]
			if err := src.Poll(acc); err != nil {
				result = multierror.Append(result, errs.Wrapf(err,
					errs.InternalError, "entropy source %s", src.Name()))
			}
		}
	}
	if len(input) > 0 {
		acc.Add(input, 1)
	}

	// Feed the current state forward so a bad poll cannot undo an
	// earlier good one.
	r.hmacPRF("rng")
	r.extractor.Write(r.k)
	r.hmacPRF("reseed")
	r.extractor.Write(r.k)

	prk := r.extractor.Sum(nil)
	err := r.prf.SetKey(prk)
	algo.Zeroize(prk)
	if err != nil {
		r.mux.Unlock()
		return errs.Wrapf(err, errs.InternalError, "%s: rekeying PRF", r.Name())
	}
	r.hmacPRF("xts")
	if err = r.extractor.SetKey(r.k); err != nil {
		r.mux.Unlock()
		return errs.Wrapf(err, errs.InternalError, "%s: rekeying extractor", r.Name())
	}

	algo.Zeroize(r.k)
	r.k = nil
	r.counter = 0
	if len(input) > 0 || (pollBits > 0 && acc.BitsCollected() >= pollBits) {
		r.seeded = true
	}
	log("%s: reseeded with %d bits (goal %d), seeded=%v",
		r.Name(), acc.BitsCollected(), pollBits, r.seeded)

	var refreshers []Refresher
	if r.seeded {
		for _, src := range r.sources {
			if rf, ok := src.(Refresher); ok {
				refreshers = append(refreshers, rf)
			}
		}
	}
	r.mux.Unlock()

	for _, rf := range refreshers {
		if err := rf.Refresh(r); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Forgets all state.  The RNG has to be reseeded before further use.
func (r *HMACRNG) Clear() {
	r.mux.Lock()
	defer r.mux.Unlock()
	algo.Zeroize(r.k)
	r.extractor.Clear()
	r.prf.Clear()
	if err := r.init(); err != nil {
		panic(errs.Wrapf(err, errs.InternalError, "%s: Clear", r.Name()))
	}
}
