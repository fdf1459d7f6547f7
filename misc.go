// Package cryptocore is the front end of the algorithm factory.  It keeps
// a cache of algorithm implementations per provider and hands out fresh
// instances by name:
//
//	c, err := cryptocore.NewBlockCipher("AES-128", "")
//	h, err := cryptocore.NewHash("SHA-256", "")
//	s, err := cryptocore.NewStreamCipher("CTR-BE(Skipjack,4)", "base")
//	m, err := cryptocore.NewMAC("HMAC(Whirlpool)", "")
//
// Three providers are built in: "base" (the implementations of this
// module), "stdlib" (the Go standard library) and "xcrypto"
// (golang.org/x/crypto).  Others can be added with AddBlockCipher and
// friends.
package cryptocore

import (
	"github.com/bwesterb/go-cryptocore/internal/logging"
)

type Logger = logging.Logger

// Enables logging to log package.  For more flexibility, see SetLogger().
func EnableLogging() {
	logging.EnableStdlib()
}

// Enables logging.  Disable logging by passing nil.
//
// Use EnableLogging if you want to log to the log package.  The logger is
// shared by all cryptocore packages.
func SetLogger(logger Logger) {
	logging.Set(logger)
}

func log(format string, a ...interface{}) {
	logging.Logf(format, a...)
}
