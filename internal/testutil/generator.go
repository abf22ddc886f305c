package testutil

import (
	"fmt"
	"strings"
)

var accounts = []string{
	"expenses:food:groceries",
	"expenses:food:restaurants",
	"expenses:transport:fuel",
	"expenses:utilities:electricity",
	"expenses:utilities:water",
	"assets:bank:checking",
	"assets:bank:savings",
	"assets:cash",
	"liabilities:credit:visa",
	"income:salary",
}

var commodities = []string{"SEK", "EUR", "USDT"}

// GenerateDump builds a synthetic dump in the emacs layout: one outer list
// whose children are transaction forms. Every fifth transaction carries a
// lot price and a settlement date, every tenth a posting note, so decoders
// see each shape.
func GenerateDump(numTransactions int) string {
	var sb strings.Builder

	sb.WriteString("(")
	line := 1
	for i := range numTransactions {
		year := 2020 + (i / 365)
		month := (i/30)%12 + 1
		day := i%28 + 1

		fromAcc := accounts[i%len(accounts)]
		toAcc := accounts[(i+1)%len(accounts)]
		commodity := commodities[i%len(commodities)]
		cents := (i%1000 + 1) * 10

		from := fmt.Sprintf("%d.%02d %s", cents/100, cents%100, commodity)
		to := "-" + from
		if i%5 == 0 {
			to = fmt.Sprintf("%s {1.10 SEK} [%04d/%02d/%02d]", to, year, month, day)
		}

		fmt.Fprintf(&sb, "(\"/home/user/finance/main.ledger\" %d \"%04d-%02d-%02d\" nil \"Payee %d\"\n",
			line, year, month, day, i)
		if i%10 == 0 {
			fmt.Fprintf(&sb, "  (%d %q %q nil %q)\n", line+1, fromAcc, from, fmt.Sprintf(" note %d", i))
		} else {
			fmt.Fprintf(&sb, "  (%d %q %q nil)\n", line+1, fromAcc, from)
		}
		fmt.Fprintf(&sb, "  (%d %q %q nil))\n", line+2, toAcc, to)

		line += 5
	}
	sb.WriteString(")\n")

	return sb.String()
}

// GenerateDumpLines returns the same dump split the way a session reads it,
// one line at a time.
func GenerateDumpLines(numTransactions int) []string {
	return strings.Split(strings.TrimSuffix(GenerateDump(numTransactions), "\n"), "\n")
}
