package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ngalaiko/ledger-desktop/internal/accounts"
	"github.com/ngalaiko/ledger-desktop/internal/store"
)

func newAccountsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Print the account tree with rolled-up balances",
		Args:  cobra.NoArgs,
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

			st := store.New(store.SessionLoader{Handle: handle}, logger)
			if err := st.Reload(cmd.Context()); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			root := st.Accounts().Root()
			printAccounts(w, root, 0)
			fmt.Fprintf(w, "%s\n%-24s %s\n", strings.Repeat("-", 40), "total", balanceString(root.Balance))
			return nil
		},
	}
}

func printAccounts(w io.Writer, node *accounts.Node, depth int) {
	if depth > 0 {
		indent := strings.Repeat("  ", depth-1)
		fmt.Fprintf(w, "%-24s %s\n", indent+node.Account.Leaf(), balanceString(node.Balance))
	}
	for _, child := range node.Children {
		printAccounts(w, child, depth+1)
	}
}

func balanceString(balance accounts.Balance) string {
	parts := make([]string, 0, len(balance))
	for _, commodity := range balance.Commodities() {
		parts = append(parts, fmt.Sprintf("%s %s", balance.Get(commodity), commodity))
	}
	return strings.Join(parts, ", ")
}
