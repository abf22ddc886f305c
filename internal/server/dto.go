package server

import (
	"github.com/ngalaiko/ledger-desktop/internal/accounts"
	"github.com/ngalaiko/ledger-desktop/internal/journal"
)

const dateLayout = "2006-01-02"

// Wire types. Decimals travel as strings so no precision is lost in
// transit; dates travel as YYYY-MM-DD.

type Transaction struct {
	File        string    `json:"file"`
	Line        int64     `json:"line"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Postings    []Posting `json:"postings"`
}

type Posting struct {
	Account string `json:"account"`
	Amount  Amount `json:"amount"`
	Note    string `json:"note,omitempty"`
}

type Amount struct {
	Quantity  string  `json:"quantity"`
	Commodity string  `json:"commodity,omitempty"`
	Price     *Amount `json:"price,omitempty"`
	Date      string  `json:"date,omitempty"`
}

type Account struct {
	Name     string            `json:"name"`
	Balances map[string]string `json:"balances"`
	Children []Account         `json:"children,omitempty"`
}

type BalancePoint struct {
	Date     string            `json:"date"`
	Balances map[string]string `json:"balances"`
}

type Series struct {
	Commodities []string       `json:"commodities"`
	Points      []BalancePoint `json:"points"`
}

type LoadResult struct {
	Transactions int `json:"transactions"`
	Accounts     int `json:"accounts"`
}

type CommandResult struct {
	Lines []string `json:"lines"`
}

type AccountRef struct {
	Account string `json:"account"`
}

type Failure struct {
	Error string `json:"error"`
}

func transactionDTO(tx journal.Transaction) Transaction {
	out := Transaction{
		File:        tx.File,
		Line:        tx.Line,
		Date:        tx.Date.Format(dateLayout),
		Description: tx.Description,
		Postings:    make([]Posting, 0, len(tx.Postings)),
	}
	for _, p := range tx.Postings {
		out.Postings = append(out.Postings, Posting{
			Account: p.Account.String(),
			Amount:  amountDTO(p.Amount),
			Note:    p.Note,
		})
	}
	return out
}

func amountDTO(a journal.Amount) Amount {
	out := Amount{
		Quantity:  a.Quantity.String(),
		Commodity: a.Commodity,
	}
	if a.Price != nil {
		price := amountDTO(*a.Price)
		out.Price = &price
	}
	if a.Date != nil {
		out.Date = a.Date.Format(dateLayout)
	}
	return out
}

func accountDTO(node *accounts.Node) Account {
	out := Account{
		Name:     node.Account.String(),
		Balances: make(map[string]string, len(node.Balance)),
	}
	for _, commodity := range node.Balance.Commodities() {
		out.Balances[commodity] = node.Balance.Get(commodity).String()
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, accountDTO(child))
	}
	return out
}

func seriesDTO(points []journal.BalancePoint, commodities []string) Series {
	out := Series{Commodities: commodities}
	for _, p := range points {
		balances := make(map[string]string, len(p.Balances))
		for commodity, quantity := range p.Balances {
			balances[commodity] = quantity.String()
		}
		out.Points = append(out.Points, BalancePoint{
			Date:     p.Date.Format(dateLayout),
			Balances: balances,
		})
	}
	return out
}
