package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTransactionsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "transactions [query...]",
		Short: "Dump the decoded journal to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			scanner, err := handle.Transactions(cmd.Context(), args...)
			if err != nil {
				return err
			}
			defer scanner.Close()

			w := cmd.OutOrStdout()
			for scanner.Scan() {
				tx := scanner.Transaction()
				fmt.Fprintf(w, "%s %s\n", tx.Date.Format("2006-01-02"), tx.Description)
				for _, p := range tx.Postings {
					fmt.Fprintf(w, "    %-40s %s\n", p.Account, p.Amount)
				}
			}
			return scanner.Err()
		},
	}
}
