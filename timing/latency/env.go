package latency

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of the environment variables that override
// TimingConfig fields.
const EnvPrefix = "MSISIM_"

// ApplyEnv loads the given .env files (or ./.env if none is given) into the
// process environment and applies every MSISIM_* variable to the config.
// A missing default .env file is not an error.
func (c *TimingConfig) ApplyEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	ints := map[string]*int{
		"NUM_CORES":               &c.NumCores,
		"LINE_SIZE":               &c.LineSize,
		"L1_SIZE":                 &c.L1Size,
		"L1_ASSOCIATIVITY":        &c.L1Associativity,
		"DIRECTORY_SIZE":          &c.DirectorySize,
		"DIRECTORY_ASSOCIATIVITY": &c.DirectoryAssociativity,
		"LINK_BYTES_PER_CYCLE":    &c.LinkBytesPerCycle,
		"ISSUE_WINDOW":            &c.IssueWindow,
	}
	for name, field := range ints {
		value, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}

		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*field = v
	}

	cycles := map[string]*uint64{
		"L1_HIT_LATENCY":        &c.L1HitLatency,
		"DIRECTORY_HIT_LATENCY": &c.DirectoryHitLatency,
		"MEMORY_LATENCY":        &c.MemoryLatency,
		"LINK_LATENCY":          &c.LinkLatency,
	}
	for name, field := range cycles {
		value, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}

		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*field = v
	}

	if value, ok := os.LookupEnv(EnvPrefix + "FREQUENCY_GHZ"); ok {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %sFREQUENCY_GHZ: %w", EnvPrefix, err)
		}
		c.FrequencyGHz = v
	}

	return nil
}
