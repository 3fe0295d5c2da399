package mpc

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/veil-ml/veil/internal/tensor"
)

// PartyConfig declares one participating party.
type PartyConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Config declares a static party set and optional per-type ring overrides
// for a coordinator deployment.
type Config struct {
	Parties []PartyConfig `yaml:"parties"`

	// RingBits overrides the ring size for a payload type, keyed by the
	// type name and holding the ring's bit width.
	RingBits map[string]int `yaml:"ring_bits,omitempty"`
}

// LoadConfig reads and validates a coordinator configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig parses and validates YAML configuration bytes.
func ParseConfig(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Parties) < 2 {
		return nil, fmt.Errorf("config: need at least 2 parties, got %d", len(cfg.Parties))
	}
	seen := make(map[string]bool, len(cfg.Parties))
	for i, p := range cfg.Parties {
		if p.Address == "" {
			return nil, fmt.Errorf("config: party %d (%q) has no address", i, p.Name)
		}
		if seen[p.Address] {
			return nil, fmt.Errorf("config: duplicate party address %q", p.Address)
		}
		seen[p.Address] = true
	}
	for name, bits := range cfg.RingBits {
		if _, ok := tensor.ParseDataType(name); !ok {
			return nil, fmt.Errorf("config: ring override for unknown type %q", name)
		}
		if bits < 1 || bits > 256 {
			return nil, fmt.Errorf("config: ring width %d for %q out of range", bits, name)
		}
	}
	return &cfg, nil
}

// StaticParty is a configured party with a fixed address.
type StaticParty struct {
	Name string
	Addr string
}

// Address implements Party.
func (p StaticParty) Address() string { return p.Addr }

// PartyList returns the configured parties in declaration order.
func (c *Config) PartyList() []Party {
	out := make([]Party, len(c.Parties))
	for i, p := range c.Parties {
		out[i] = StaticParty{Name: p.Name, Addr: p.Address}
	}
	return out
}

// Ring returns the ring size for a payload type, honoring any configured
// override before falling back to the built-in table.
func (c *Config) Ring(dt tensor.DataType) *big.Int {
	if bits, ok := c.RingBits[dt.String()]; ok {
		return new(big.Int).Lsh(big.NewInt(1), uint(bits))
	}
	return RingSize(dt)
}
