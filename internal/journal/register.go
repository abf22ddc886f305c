package journal

import "github.com/ngalaiko/ledger-desktop/internal/accounts"

// FilterByAccount keeps the transactions touching account or any of its
// descendants. Kept transactions carry only the matching postings.
func FilterByAccount(txns []Transaction, account accounts.Account) []Transaction {
	var out []Transaction
	for _, tx := range txns {
		var matched []Posting
		for _, p := range tx.Postings {
			if account.Equal(p.Account) || account.IsParentOf(p.Account) {
				matched = append(matched, p)
			}
		}
		if len(matched) == 0 {
			continue
		}
		tx.Postings = matched
		out = append(out, tx)
	}
	return out
}
