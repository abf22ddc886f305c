package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"

	"github.com/ngalaiko/ledger-desktop/internal/accounts"
	"github.com/ngalaiko/ledger-desktop/internal/journal"
	"github.com/ngalaiko/ledger-desktop/internal/store"
)

type fakeLoader struct {
	txns []*journal.Transaction
	err  error
}

func (l *fakeLoader) Transactions(context.Context) (store.Scanner, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &sliceScanner{txns: l.txns}, nil
}

type sliceScanner struct {
	txns []*journal.Transaction
	i    int
	cur  *journal.Transaction
}

func (s *sliceScanner) Scan() bool {
	if s.i >= len(s.txns) {
		return false
	}
	s.cur = s.txns[s.i]
	s.i++
	return true
}

func (s *sliceScanner) Transaction() *journal.Transaction { return s.cur }
func (s *sliceScanner) Err() error                        { return nil }
func (s *sliceScanner) Close()                            {}

type fakeCommander struct {
	lines []string
	err   error
	got   []string
}

func (c *fakeCommander) Command(_ context.Context, command string) ([]string, error) {
	c.got = append(c.got, command)
	return c.lines, c.err
}

func mustPosting(t *testing.T, account, amount string) journal.Posting {
	t.Helper()
	a, err := journal.ParseAmount(amount)
	require.NoError(t, err)
	return journal.Posting{Account: accounts.Parse(account), Amount: a}
}

func mustTx(t *testing.T, date, description string, postings ...journal.Posting) *journal.Transaction {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return &journal.Transaction{
		File:        "/home/user/finance/2025.ledger",
		Line:        1,
		Date:        d,
		Description: description,
		Postings:    postings,
	}
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(&fakeLoader{txns: []*journal.Transaction{
		mustTx(t, "2025-01-02", "Lunch",
			mustPosting(t, "expenses:food", "100 USD"),
			mustPosting(t, "assets:cash", "-100 USD")),
		mustTx(t, "2025-01-03", "Top up",
			mustPosting(t, "assets:cash", "50 USD"),
			mustPosting(t, "assets:bank", "-50 USD")),
	}}, nil)
}

// call drives the handler the way a connection would and captures the reply.
func call(t *testing.T, s *Server, method string, params interface{}) (json.RawMessage, error) {
	t.Helper()
	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), method, params)
	require.NoError(t, err)

	var result json.RawMessage
	var replyErr error
	replied := false
	err = s.handle(context.Background(), func(_ context.Context, res interface{}, err error) error {
		require.False(t, replied, "handler replied twice")
		replied = true
		replyErr = err
		if err == nil && res != nil {
			data, mErr := json.Marshal(res)
			require.NoError(t, mErr)
			result = data
		}
		return nil
	}, req)
	require.NoError(t, err)
	require.True(t, replied, "handler never replied")
	return result, replyErr
}

func TestServer_Load(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)

	raw, err := call(t, s, methodLoad, nil)
	require.NoError(t, err)

	var result LoadResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 2, result.Transactions)
	assert.Equal(t, 3, result.Accounts)
}

func TestServer_LoadFailure(t *testing.T) {
	loadErr := errors.New("ledger: session closed")
	s := New(store.New(&fakeLoader{err: loadErr}, nil), &fakeCommander{}, nil)

	_, err := call(t, s, methodLoad, nil)
	assert.ErrorIs(t, err, loadErr)
}

func TestServer_Transactions(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)
	_, err := call(t, s, methodLoad, nil)
	require.NoError(t, err)

	raw, err := call(t, s, methodTransactions, AccountRef{Account: "assets"})
	require.NoError(t, err)

	var txns []Transaction
	require.NoError(t, json.Unmarshal(raw, &txns))
	require.Len(t, txns, 2)
	assert.Equal(t, "2025-01-02", txns[0].Date)
	require.Len(t, txns[0].Postings, 1)
	assert.Equal(t, "assets:cash", txns[0].Postings[0].Account)
	assert.Equal(t, "-100", txns[0].Postings[0].Amount.Quantity)
	assert.Equal(t, "USD", txns[0].Postings[0].Amount.Commodity)

	raw, err = call(t, s, methodTransactions, nil)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &txns))
	require.Len(t, txns, 2)
	assert.Len(t, txns[0].Postings, 2)
}

func TestServer_Accounts(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)
	_, err := call(t, s, methodLoad, nil)
	require.NoError(t, err)

	raw, err := call(t, s, methodAccounts, nil)
	require.NoError(t, err)

	var root Account
	require.NoError(t, json.Unmarshal(raw, &root))
	assert.Empty(t, root.Name)
	assert.Equal(t, "0", root.Balances["USD"])
	require.Len(t, root.Children, 2)
	assert.Equal(t, "expenses", root.Children[0].Name)
	assets := root.Children[1]
	assert.Equal(t, "assets", assets.Name)
	assert.Equal(t, "-100", assets.Balances["USD"])
	require.Len(t, assets.Children, 2)
	assert.Equal(t, "assets:cash", assets.Children[0].Name)
	assert.Equal(t, "-50", assets.Children[0].Balances["USD"])
}

func TestServer_Balances(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)
	_, err := call(t, s, methodLoad, nil)
	require.NoError(t, err)

	raw, err := call(t, s, methodBalances, AccountRef{Account: "assets"})
	require.NoError(t, err)

	var series Series
	require.NoError(t, json.Unmarshal(raw, &series))
	assert.Equal(t, []string{"USD"}, series.Commodities)
	require.Len(t, series.Points, 2)
	assert.Equal(t, "2025-01-02", series.Points[0].Date)
	assert.Equal(t, "-100", series.Points[0].Balances["USD"])
	assert.Equal(t, "-100", series.Points[1].Balances["USD"])
}

func TestServer_Command(t *testing.T) {
	commander := &fakeCommander{lines: []string{"assets  100 USD"}}
	s := New(testStore(t), commander, nil)

	raw, err := call(t, s, methodCommand, map[string]string{"command": "bal assets"})
	require.NoError(t, err)

	var result CommandResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, []string{"assets  100 USD"}, result.Lines)
	assert.Equal(t, []string{"bal assets"}, commander.got)
}

func TestServer_CommandRequired(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)

	_, err := call(t, s, methodCommand, map[string]string{})
	assert.ErrorIs(t, err, jsonrpc2.ErrInvalidParams)
}

func TestServer_CommandFailure(t *testing.T) {
	cmdErr := errors.New("command failed")
	s := New(testStore(t), &fakeCommander{err: cmdErr}, nil)

	_, err := call(t, s, methodCommand, map[string]string{"command": "bogus"})
	assert.ErrorIs(t, err, cmdErr)
}

func TestServer_BadParams(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)

	_, err := call(t, s, methodTransactions, map[string]int{"account": 5})
	assert.ErrorIs(t, err, jsonrpc2.ErrParse)
}

func TestServer_UnknownMethod(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)

	_, err := call(t, s, "ledger/unknown", nil)
	assert.ErrorIs(t, err, jsonrpc2.ErrMethodNotFound)
}

func TestServer_ShutdownGatesRequests(t *testing.T) {
	s := New(testStore(t), &fakeCommander{}, nil)

	_, err := call(t, s, methodShutdown, nil)
	require.NoError(t, err)

	_, err = call(t, s, methodTransactions, nil)
	assert.ErrorIs(t, err, jsonrpc2.ErrInvalidRequest)

	_, err = call(t, s, methodExit, nil)
	assert.NoError(t, err)
}

func TestTransactionDTO(t *testing.T) {
	amount, err := journal.ParseAmount("194.21240000 USDT {9.5256 SEK} [2025/09/17]")
	require.NoError(t, err)
	tx := journal.Transaction{
		File:        "/home/user/finance/2025.ledger",
		Line:        42,
		Date:        time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC),
		Description: "Swap",
		Postings: []journal.Posting{
			{Account: accounts.Parse("assets:crypto"), Amount: amount, Note: " lot 3"},
		},
	}

	dto := transactionDTO(tx)
	assert.Equal(t, "2025-09-17", dto.Date)
	require.Len(t, dto.Postings, 1)
	p := dto.Postings[0]
	assert.Equal(t, "assets:crypto", p.Account)
	assert.Equal(t, "194.2124", p.Amount.Quantity)
	assert.Equal(t, "USDT", p.Amount.Commodity)
	require.NotNil(t, p.Amount.Price)
	assert.Equal(t, "9.5256", p.Amount.Price.Quantity)
	assert.Equal(t, "SEK", p.Amount.Price.Commodity)
	assert.Equal(t, "2025-09-17", p.Amount.Date)
	assert.Equal(t, " lot 3", p.Note)

	plain := mustTx(t, "2025-01-02", "Plain", mustPosting(t, "assets", "1 USD"))
	data, err := json.Marshal(transactionDTO(*plain))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"note"`)
	assert.NotContains(t, string(data), `"price"`)
}
