package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngalaiko/ledger-desktop/internal/accounts"
)

func testTx(t *testing.T, date string, postings ...Posting) Transaction {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return Transaction{Date: day, Description: "test", Postings: postings}
}

func testPosting(t *testing.T, account, amount string) Posting {
	t.Helper()
	parsed, err := ParseAmount(amount)
	require.NoError(t, err)
	return Posting{Account: accounts.Parse(account), Amount: parsed}
}

func TestFilterByAccount(t *testing.T) {
	txns := []Transaction{
		testTx(t, "2025-01-01",
			testPosting(t, "expenses:food", "50 USD"),
			testPosting(t, "assets:cash", "-50 USD"),
		),
		testTx(t, "2025-01-02",
			testPosting(t, "expenses:rent", "900 USD"),
			testPosting(t, "assets:bank:checking", "-900 USD"),
		),
		testTx(t, "2025-01-03",
			testPosting(t, "income:salary", "-3000 USD"),
			testPosting(t, "assets:bank:checking", "3000 USD"),
		),
	}

	t.Run("parent keeps descendants", func(t *testing.T) {
		filtered := FilterByAccount(txns, accounts.Parse("assets"))
		require.Len(t, filtered, 3)
		for _, tx := range filtered {
			require.Len(t, tx.Postings, 1)
			assert.Equal(t, "assets", tx.Postings[0].Account.Segments[0])
		}
	})

	t.Run("exact account", func(t *testing.T) {
		filtered := FilterByAccount(txns, accounts.Parse("assets:bank:checking"))
		require.Len(t, filtered, 2)
		assert.Equal(t, "2025-01-02", filtered[0].Date.Format("2006-01-02"))
		assert.Equal(t, "2025-01-03", filtered[1].Date.Format("2006-01-02"))
	})

	t.Run("no matches", func(t *testing.T) {
		assert.Empty(t, FilterByAccount(txns, accounts.Parse("liabilities")))
	})

	t.Run("originals untouched", func(t *testing.T) {
		FilterByAccount(txns, accounts.Parse("assets"))
		require.Len(t, txns[0].Postings, 2)
	})
}
