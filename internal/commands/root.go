// Package commands wires the CLI: the root command serves the JSON-RPC
// backend on stdin/stdout, and the subcommands are one-shot debugging views
// of the same data.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngalaiko/ledger-desktop/internal/buildinfo"
	"github.com/ngalaiko/ledger-desktop/internal/server"
	"github.com/ngalaiko/ledger-desktop/internal/store"
)

// NewRootCommand creates the root CLI command with all subcommands
// registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "ledger-desktop",
		Short:   "JSON-RPC backend for a ledger journal viewer",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "configuration file (default: the user config dir)")
	flags.StringVar(&opts.binary, "ledger", "", "ledger binary to run (overrides config)")
	flags.StringVarP(&opts.file, "file", "f", "", "journal file (overrides config)")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level in development format")

	rootCmd.AddCommand(newTransactionsCommand(opts))
	rootCmd.AddCommand(newAccountsCommand(opts))

	return rootCmd
}

// runServe speaks JSON-RPC on stdin/stdout until the peer hangs up. All
// logging goes to stderr; stdout belongs to the protocol.
func runServe(cmd *cobra.Command, opts *options) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	handle, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = handle.Close() }()

	st := store.New(store.SessionLoader{Handle: handle}, logger)
	srv := server.New(st, handle, logger)
	logger.Info("serving",
		zap.String("journal", cfg.Ledger.File),
		zap.String("ledger", cfg.Ledger.Path))
	return srv.Run(cmd.Context(), stdrwc{})
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	return nil
}
