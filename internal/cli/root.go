package cli

import (
	"burnindex"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Backend    string
	Path       string
	InMemory   bool
	LogLevel   string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the burnindex CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "burnindex",
		Short: "Burn ledger with newest-first history and a ranked leaderboard",
		Long: `burnindex records token burns in an ordered key/value store and answers
history and leaderboard queries with prefix scans alone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return errors.Newf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := zapcore.ParseLevel(opts.LogLevel); err != nil {
				return errors.Wrapf(err, "invalid log level %q", opts.LogLevel)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (pebble|badger|leveldb)")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "store directory")
	cmd.PersistentFlags().BoolVar(&opts.InMemory, "in-memory", false, "use a throwaway in-memory store")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewBurnCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewLeaderboardCommand(opts))
	cmd.AddCommand(NewAddressCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig resolves the file, environment and flag layers, flags last.
func (o *RootOptions) loadConfig() (burnindex.Config, error) {
	cfg, err := burnindex.LoadConfig(o.ConfigPath)
	if err != nil {
		return burnindex.Config{}, err
	}
	if o.Backend != "" {
		cfg.Store.Backend = o.Backend
	}
	if o.Path != "" {
		cfg.Store.Path = o.Path
	}
	if o.InMemory {
		cfg.Store.InMemory = true
	}
	return cfg, cfg.Validate()
}

func (o *RootOptions) newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(o.LogLevel)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if o.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(cmd.ErrOrStderr()), level)
	return zap.New(core), nil
}

// session is an opened store with a Burner over it.
type session struct {
	cfg    burnindex.Config
	burner *burnindex.Burner
	sink   *burnindex.HoldingSink
	logger *zap.Logger
}

func (s *session) Close() error {
	_ = s.logger.Sync()
	return s.burner.Store().Close()
}

func (o *RootOptions) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger, err := o.newLogger(cmd)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}
	burner, sink, err := burnindex.Open(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	burner.SetLogger(logger.With(zap.String("backend", cfg.Store.Backend)))
	logger.Debug("Opened store",
		zap.String("backend", cfg.Store.Backend),
		zap.String("path", cfg.Store.Path),
		zap.Bool("in_memory", cfg.Store.InMemory))
	return &session{cfg: cfg, burner: burner, sink: sink, logger: logger}, nil
}

// requireInitialized turns an uninitialized store into a command error with a hint.
func requireInitialized(b *burnindex.Burner) error {
	ok, err := b.IsInitialized()
	if err != nil {
		return err
	}
	if !ok {
		return WrapExitError(ExitCommandError, "store is not initialized (run 'burnindex init')",
			errors.WithStack(burnindex.ErrNotInitialized))
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
