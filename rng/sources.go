package rng

import (
	"crypto/rand"
	"io"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"

	"github.com/bwesterb/go-cryptocore/algo"
	"github.com/bwesterb/go-cryptocore/errs"
)

// A source of entropy polled on reseed.
type Source interface {
	Name() string
	Poll(acc *Accumulator) error
}

// Implemented by sources that want to store fresh output of the RNG
// after it has been reseeded.
type Refresher interface {
	Refresh(rng io.Reader) error
}

// Polls the operating system's random number generator.
type SystemSource struct {
	// Read from instead of crypto/rand if set.
	Reader io.Reader
}

func (s *SystemSource) Name() string { return "system" }

func (s *SystemSource) Poll(acc *Accumulator) error {
	r := s.Reader
	if r == nil {
		r = rand.Reader
	}
	n := (acc.RemainingBits() + 7) / 8
	if n < 16 {
		n = 16
	}
	if n > 256 {
		n = 256
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return errs.Wrapf(err, errs.InternalError, "system entropy source")
	}
	acc.Add(buf, 8)
	algo.Zeroize(buf)
	return nil
}

const (
	SeedFileSize        = 64
	seedFileBitsPerByte = 4
)

// Reads a seed file written by a previous process.  The file is guarded
// by a lockfile next to it and replaced with fresh output after each
// reseed.  A missing file is not an error.
type SeedFileSource struct {
	path string
	lock lockfile.Lockfile
}

func NewSeedFileSource(path string) (*SeedFileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errs.Wrapf(err, errs.InvalidArgument,
			"Could not turn %s into an absolute path", path)
	}
	lock, err := lockfile.New(abs + ".lock")
	if err != nil {
		return nil, errs.Wrapf(err, errs.InvalidArgument,
			"Failed to create lockfile %s.lock", abs)
	}
	return &SeedFileSource{path: abs, lock: lock}, nil
}

func (s *SeedFileSource) Name() string { return "seedfile(" + s.path + ")" }

func (s *SeedFileSource) withLock(f func() error) error {
	if err := s.lock.TryLock(); err != nil {
		return errs.Wrapf(err, errs.InvalidState, "%s is locked", s.path)
	}
	defer s.lock.Unlock()
	return f()
}

func (s *SeedFileSource) Poll(acc *Accumulator) error {
	return s.withLock(func() error {
		buf, err := os.ReadFile(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errs.Wrapf(err, errs.InternalError, "reading seed file %s", s.path)
		}
		if len(buf) > SeedFileSize {
			buf = buf[:SeedFileSize]
		}
		acc.Add(buf, seedFileBitsPerByte)
		algo.Zeroize(buf)
		return nil
	})
}

// Replaces the seed file with SeedFileSize bytes from rng.
func (s *SeedFileSource) Refresh(rng io.Reader) error {
	return s.withLock(func() error {
		buf := make([]byte, SeedFileSize)
		defer algo.Zeroize(buf)
		if _, err := io.ReadFull(rng, buf); err != nil {
			return err
		}
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, buf, 0o600); err != nil {
			return errs.Wrapf(err, errs.InternalError, "writing seed file %s", tmp)
		}
		if err := os.Rename(tmp, s.path); err != nil {
			return errs.Wrapf(err, errs.InternalError, "replacing seed file %s", s.path)
		}
		log("HMAC_RNG: refreshed seed file %s", s.path)
		return nil
	})
}
