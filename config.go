package cryptocore

import (
	"os"

	"github.com/pelletier/go-toml"

	"github.com/bwesterb/go-cryptocore/errs"
)

// Configuration file, in TOML:
//
//	[providers]
//	"AES-128" = "base"
//	Salsa20   = "xcrypto"
//
//	[rng]
//	poll_bits = 256
//	seed_file = "/var/lib/cryptocore/seed"
//
//	[log]
//	level = "debug"
type Config struct {
	// Preferred provider per algorithm.
	Providers map[string]string `toml:"providers"`

	RNG RNGConfig `toml:"rng"`
	Log LogConfig `toml:"log"`
}

type RNGConfig struct {
	// Bits of entropy to collect when reseeding; 0 for the default.
	PollBits int `toml:"poll_bits"`

	// File to read additional seed material from and write it back to.
	SeedFile string `toml:"seed_file"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "Failed to parse configuration")
	}
	if cfg.RNG.PollBits < 0 {
		return nil, errs.Errorf(errs.InvalidArgument,
			"rng.poll_bits must not be negative")
	}
	return &cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, errs.NotFound, "%s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errs.Wrapf(err, errs.DecodingError, "%s", path)
	}
	return cfg, nil
}

// Sets the preferred providers of the configuration.
func (cfg *Config) Apply() {
	for spec, provider := range cfg.Providers {
		SetPreferredProvider(spec, provider)
	}
}

// Serializes the configuration to TOML.
func (cfg *Config) Marshal() ([]byte, error) {
	ret, err := toml.Marshal(*cfg)
	if err != nil {
		return nil, errs.Wrapf(err, errs.InvalidArgument, "Failed to encode configuration")
	}
	return ret, nil
}
