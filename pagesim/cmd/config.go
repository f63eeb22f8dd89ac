package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultEnvFile = ".env"

// envVars lists the environment variables that fill flags the user did not
// set.
var envVars = map[string]string{
	"addr-length": "PAGESIM_ADDR_LENGTH",
	"block-size":  "PAGESIM_BLOCK_SIZE",
	"seed":        "PAGESIM_SEED",
	"log-level":   "PAGESIM_LOG_LEVEL",
}

type config struct {
	AddrLength int
	BlockSize  int
	Seed       uint64
	LogLevel   string
	EnvFile    string

	logger *slog.Logger
}

func (c *config) registerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.IntVar(&c.AddrLength, "addr-length", 4,
		"number of hex digits of an address, including 2 offset digits")
	flags.IntVar(&c.BlockSize, "block-size", 4,
		"number of bytes stored at each logical address")
	flags.Uint64Var(&c.Seed, "seed", 0,
		"seed of the address and frame generator, 0 for crypto randomness")
	flags.StringVar(&c.LogLevel, "log-level", "warn",
		"log level: debug, info, warn or error")
	flags.StringVar(&c.EnvFile, "env-file", defaultEnvFile,
		"file of PAGESIM_* variables used as flag defaults")
}

// load reads the env file, fills unset flags from the environment and sets up
// the logger.
func (c *config) load(cmd *cobra.Command) error {
	flags := cmd.Flags()

	err := c.loadEnvFile(flags.Changed("env-file"))
	if err != nil {
		return err
	}

	err = applyEnv(flags)
	if err != nil {
		return err
	}

	c.logger, err = newLogger(cmd.ErrOrStderr(), c.LogLevel)
	if err != nil {
		return err
	}

	slog.SetDefault(c.logger)

	return c.validate()
}

func (c *config) loadEnvFile(explicit bool) error {
	_, err := os.Stat(c.EnvFile)
	if err != nil && !explicit {
		return nil
	}

	return errors.Wrapf(godotenv.Load(c.EnvFile),
		"cannot load env file %s", c.EnvFile)
}

func applyEnv(flags *pflag.FlagSet) error {
	for name, envVar := range envVars {
		if flags.Changed(name) {
			continue
		}

		value, ok := os.LookupEnv(envVar)
		if !ok {
			continue
		}

		err := flags.Set(name, value)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", envVar)
		}
	}

	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level

	err := l.UnmarshalText([]byte(level))
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: l,
	})), nil
}

func (c *config) validate() error {
	_, err := vm.NewAddressFormat(c.AddrLength)
	if err != nil {
		return err
	}

	if c.BlockSize < 1 {
		return errors.Wrapf(vm.ErrInvalidBlockSize,
			"block size %d", c.BlockSize)
	}

	return nil
}

func (c *config) newPagingUnit(name string) *mmu.Comp {
	builder := mmu.MakeBuilder().
		WithAddrLength(c.AddrLength).
		WithBlockSize(c.BlockSize)

	if c.Seed != 0 {
		builder = builder.WithRandSource(vm.NewSeededRandSource(c.Seed))
	}

	return builder.Build(name)
}
