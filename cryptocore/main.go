package main

import (
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/bwesterb/go-cryptocore"
	"github.com/bwesterb/go-cryptocore/dsa"
	"github.com/bwesterb/go-cryptocore/ec"
	"github.com/bwesterb/go-cryptocore/pbe"
	"github.com/bwesterb/go-cryptocore/pubkey"
	"github.com/bwesterb/go-cryptocore/rng"
)

// Loaded by setup before any command runs.
var config cryptocore.Config

// Routes the library log into logrus at debug level.
type logrusLogger struct{}

func (logrusLogger) Logf(format string, a ...interface{}) {
	logrus.Debugf(format, a...)
}

func setLogLevel(level string) error {
	if level == "" {
		level = config.Log.Level
	}
	if level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "Unable to parse logging level %s", level)
	}
	logrus.SetLevel(lvl)
	return nil
}

func setup(c *cli.Context) error {
	if path := c.GlobalString("config"); path != "" {
		cfg, err := cryptocore.LoadConfig(path)
		if err != nil {
			return errors.Wrap(err, "loading configuration")
		}
		config = *cfg
	}
	if err := setLogLevel(c.GlobalString("log-level")); err != nil {
		return err
	}
	cryptocore.SetLogger(logrusLogger{})

	if config.Providers == nil {
		config.Providers = make(map[string]string)
	}
	for _, pref := range c.GlobalStringSlice("provider") {
		parts := strings.SplitN(pref, "=", 2)
		if len(parts) != 2 {
			return errors.Errorf("--provider expects ALG=PROVIDER, not %s", pref)
		}
		config.Providers[parts[0]] = parts[1]
	}
	config.Apply()
	return nil
}

func newRNG(seedFile string) (*rng.HMACRNG, error) {
	opts := rng.Options{
		PollBits: config.RNG.PollBits,
		SeedFile: config.RNG.SeedFile,
	}
	if seedFile != "" {
		opts.SeedFile = seedFile
	}
	r, err := rng.NewAutoSeeded(opts)
	if err != nil {
		return nil, errors.Wrap(err, "seeding RNG")
	}
	return r, nil
}

// Reads the file named by the first argument, or stdin.
func readInput(c *cli.Context) ([]byte, error) {
	if c.NArg() == 0 || c.Args().First() == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(c.Args().First())
	return data, errors.Wrap(err, "reading input")
}

func cmdAlgs(c *cli.Context) error {
	for _, info := range cryptocore.Algorithms() {
		fmt.Printf("%-14s %-24s %s\n", info.Kind, info.Name,
			strings.Join(info.Providers, ","))
	}
	return nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return errors.Wrapf(err, "reading %s", path)
}

func cmdHash(c *cli.Context) error {
	h, err := cryptocore.NewHash(c.String("alg"), c.String("provider"))
	if err != nil {
		return errors.Wrap(err, "hash")
	}
	files := []string(c.Args())
	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, path := range files {
		h.Reset()
		if path == "-" {
			if _, err := io.Copy(h, os.Stdin); err != nil {
				return errors.Wrap(err, "reading stdin")
			}
		} else if err := hashFile(h, path); err != nil {
			return err
		}
		fmt.Printf("%x  %s\n", h.Sum(nil), path)
	}
	return nil
}

func cmdRand(c *cli.Context) error {
	r, err := newRNG(c.String("seed-file"))
	if err != nil {
		return err
	}
	buf := make([]byte, c.Int("bytes"))
	if _, err = r.Read(buf); err != nil {
		return errors.Wrap(err, "generating")
	}
	if c.Bool("hex") {
		fmt.Println(hex.EncodeToString(buf))
		return nil
	}
	_, err = os.Stdout.Write(buf)
	return err
}

func cmdEncrypt(c *cli.Context) error {
	if c.String("password") == "" {
		return errors.New("--password is required")
	}
	data, err := readInput(c)
	if err != nil {
		return err
	}
	r, err := newRNG("")
	if err != nil {
		return err
	}
	der, err := pbe.Seal(r, c.String("password"), data, c.String("cipher"))
	if err != nil {
		return errors.Wrap(err, "encrypting")
	}
	return pem.Encode(os.Stdout, &pem.Block{Type: pbe.PEMLabel, Bytes: der})
}

func cmdDecrypt(c *cli.Context) error {
	if c.String("password") == "" {
		return errors.New("--password is required")
	}
	data, err := readInput(c)
	if err != nil {
		return err
	}
	der, _, err := pubkey.DecodePEM(data, pbe.PEMLabel)
	if err != nil {
		return errors.Wrap(err, "decoding envelope")
	}
	pt, err := pbe.Open(c.String("password"), der)
	if err != nil {
		return errors.Wrap(err, "decrypting")
	}
	_, err = os.Stdout.Write(pt)
	return err
}

func generateKey(r io.Reader, alg, group string) (pubkey.PrivateKey, error) {
	switch alg {
	case dsa.Algorithm:
		if group == "" {
			group = "dsa/cryptocore-2048"
		}
		g, err := dsa.NamedGroup(group)
		if err != nil {
			return nil, err
		}
		return dsa.GenerateKey(r, g)
	case ec.ECDSA.String(), ec.ECGDSA.String():
		if group == "" {
			group = "secp256r1"
		}
		domain, err := ec.DomainByName(group)
		if err != nil {
			return nil, err
		}
		scheme := ec.ECDSA
		if alg == ec.ECGDSA.String() {
			scheme = ec.ECGDSA
		}
		return ec.GenerateKey(r, scheme, domain)
	}
	return nil, errors.Errorf("unknown algorithm %s", alg)
}

func cmdKeygen(c *cli.Context) error {
	r, err := newRNG("")
	if err != nil {
		return err
	}
	key, err := generateKey(r, c.String("alg"), c.String("group"))
	if err != nil {
		return errors.Wrap(err, "generating key")
	}
	logrus.Infof("Generated %s key of %d bytes", key.Algorithm(), len(key.PrivateBits()))
	out, err := pubkey.PrivateKeyToPEM(key)
	if err != nil {
		return errors.Wrap(err, "encoding key")
	}
	if path := c.String("pub"); path != "" {
		pub, err := pubkey.PublicKeyToPEM(key.Public())
		if err != nil {
			return errors.Wrap(err, "encoding public key")
		}
		if err = os.WriteFile(path, pub, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
	}
	_, err = os.Stdout.Write(out)
	return err
}

func cmdSign(c *cli.Context) error {
	keyData, err := os.ReadFile(c.String("key"))
	if err != nil {
		return errors.Wrap(err, "reading key")
	}
	key, err := pubkey.LoadPrivateKey(keyData)
	if err != nil {
		return errors.Wrap(err, "loading key")
	}
	data, err := readInput(c)
	if err != nil {
		return err
	}
	r, err := newRNG("")
	if err != nil {
		return err
	}
	signer, err := pubkey.NewSigner(key, c.String("padding"), pubkey.DERSequence)
	if err != nil {
		return errors.Wrap(err, "creating signer")
	}
	sig, err := signer.SignMessage(r, data)
	if err != nil {
		return errors.Wrap(err, "signing")
	}
	fmt.Println(hex.EncodeToString(sig))
	return nil
}

func loadPublicKey(path string) (pubkey.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading key")
	}
	if key, err := pubkey.LoadPublicKey(data); err == nil {
		return key, nil
	}
	priv, err := pubkey.LoadPrivateKey(data)
	if err != nil {
		return nil, errors.Wrap(err, "loading key")
	}
	return priv.Public(), nil
}

func cmdVerify(c *cli.Context) error {
	key, err := loadPublicKey(c.String("key"))
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(c.String("signature"))
	if err != nil {
		return errors.Wrap(err, "decoding signature")
	}
	data, err := readInput(c)
	if err != nil {
		return err
	}
	verifier, err := pubkey.NewVerifier(key, c.String("padding"), pubkey.DERSequence)
	if err != nil {
		return errors.Wrap(err, "creating verifier")
	}
	if !verifier.VerifyMessage(data, sig) {
		return cli.NewExitError("signature invalid", 1)
	}
	fmt.Println("signature ok")
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "cryptocore"
	app.Usage = "hash, encrypt and sign with the cryptocore algorithms"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "TOML configuration file",
		},
		cli.StringFlag{
			Name:  "log-level, l",
			Usage: "debug, info, warn or error",
		},
		cli.StringSliceFlag{
			Name:  "provider, p",
			Usage: "preferred provider as ALG=PROVIDER, eg. AES-128=base",
		},
	}
	app.Before = setup

	paddingFlag := cli.StringFlag{
		Name:  "padding",
		Value: "EMSA1(SHA-256)",
		Usage: "signature padding",
	}

	app.Commands = []cli.Command{
		{
			Name:   "algs",
			Usage:  "List algorithms and their providers",
			Action: cmdAlgs,
		},
		{
			Name:      "hash",
			Usage:     "Hash files",
			ArgsUsage: "[FILE...]",
			Action:    cmdHash,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "alg, a", Value: "SHA-256", Usage: "hash function"},
				cli.StringFlag{Name: "provider", Usage: "only use this provider"},
			},
		},
		{
			Name:   "rand",
			Usage:  "Generate random bytes",
			Action: cmdRand,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "bytes, n", Value: 32, Usage: "number of bytes"},
				cli.StringFlag{Name: "seed-file", Usage: "seed file to read and refresh"},
				cli.BoolFlag{Name: "hex", Usage: "print as hex"},
			},
		},
		{
			Name:      "encrypt",
			Usage:     "Encrypt a file with a password",
			ArgsUsage: "[FILE]",
			Action:    cmdEncrypt,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "password", Usage: "password"},
				cli.StringFlag{Name: "cipher", Value: pbe.DefaultCipher, Usage: "block cipher"},
			},
		},
		{
			Name:      "decrypt",
			Usage:     "Decrypt a file encrypted with encrypt",
			ArgsUsage: "[FILE]",
			Action:    cmdDecrypt,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "password", Usage: "password"},
			},
		},
		{
			Name:   "keygen",
			Usage:  "Generate a private key",
			Action: cmdKeygen,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "alg, a", Value: "ECDSA", Usage: "DSA, ECDSA or ECGDSA"},
				cli.StringFlag{Name: "group, g", Usage: "DSA group or curve name"},
				cli.StringFlag{Name: "pub", Usage: "also write the public key to this file"},
			},
		},
		{
			Name:      "sign",
			Usage:     "Sign a file",
			ArgsUsage: "[FILE]",
			Action:    cmdSign,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "key, k", Usage: "private key file"},
				paddingFlag,
			},
		},
		{
			Name:      "verify",
			Usage:     "Verify a signature made with sign",
			ArgsUsage: "[FILE]",
			Action:    cmdVerify,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "key, k", Usage: "public or private key file"},
				cli.StringFlag{Name: "signature, s", Usage: "signature in hex"},
				paddingFlag,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
