package internal

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config carries the heap tuning knobs. Zero fields take defaults.
type Config struct {
	// EdenBytes is the capacity of each new-generation semispace.
	EdenBytes uintptr `yaml:"eden-bytes"`
	// OldBytes is the capacity of each old-generation semispace.
	OldBytes uintptr `yaml:"old-bytes"`
	// PromotionAge is the number of scavenges an object survives before it
	// tenures into the old generation.
	PromotionAge uint8 `yaml:"promotion-age"`
}

const (
	defaultEdenBytes    = 1 << 20
	defaultOldBytes     = 8 << 20
	defaultPromotionAge = 2
)

func (c Config) withDefaults() Config {
	if c.EdenBytes == 0 {
		c.EdenBytes = defaultEdenBytes
	}
	if c.OldBytes == 0 {
		c.OldBytes = defaultOldBytes
	}
	if c.PromotionAge == 0 {
		c.PromotionAge = defaultPromotionAge
	}
	c.EdenBytes = alignWord(c.EdenBytes)
	c.OldBytes = alignWord(c.OldBytes)
	return c
}

// ConfigFromEnvironment loads the heap configuration named by the
// GSELF_HEAP_CONFIG environment variable, or the defaults if it is unset.
// An unreadable or malformed file is an error; a missing variable is not.
func ConfigFromEnvironment() (Config, error) {
	var c Config
	path := os.Getenv("GSELF_HEAP_CONFIG")
	if path == "" {
		return c.withDefaults(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c.withDefaults(), nil
}
