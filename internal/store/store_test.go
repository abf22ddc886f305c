package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngalaiko/ledger-desktop/internal/accounts"
	"github.com/ngalaiko/ledger-desktop/internal/journal"
)

type fakeLoader struct {
	txns    []*journal.Transaction
	scanErr error
	loadErr error
}

func (l *fakeLoader) Transactions(context.Context) (Scanner, error) {
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	return &sliceScanner{txns: l.txns, scanErr: l.scanErr}, nil
}

type sliceScanner struct {
	txns    []*journal.Transaction
	scanErr error
	i       int
	cur     *journal.Transaction
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
func (s *sliceScanner) Err() error                        { return s.scanErr }
func (s *sliceScanner) Close()                            {}

type recorder struct {
	events []Event
}

func (r *recorder) record(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	kinds := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
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

func testJournal(t *testing.T) []*journal.Transaction {
	t.Helper()
	return []*journal.Transaction{
		mustTx(t, "2025-01-02", "Lunch",
			mustPosting(t, "expenses:food", "100 USD"),
			mustPosting(t, "assets:cash", "-100 USD")),
		mustTx(t, "2025-01-03", "Top up",
			mustPosting(t, "assets:cash", "50 USD"),
			mustPosting(t, "assets:bank", "-50 USD")),
	}
}

func TestStore_Reload(t *testing.T) {
	s := New(&fakeLoader{txns: testJournal(t)}, nil)
	rec := &recorder{}
	s.Subscribe(rec.record)

	require.NoError(t, s.Reload(context.Background()))

	assert.Equal(t, []EventKind{
		Reset,
		AccountAdded, AccountAdded, TransactionAdded,
		AccountAdded, TransactionAdded,
		Loaded,
	}, rec.kinds())

	loaded := rec.events[len(rec.events)-1]
	assert.Equal(t, 2, loaded.Transactions)
	assert.Equal(t, 3, loaded.Accounts)

	txns := s.Transactions()
	require.Len(t, txns, 2)
	assert.Equal(t, "Lunch", txns[0].Description)
	assert.Equal(t, "Top up", txns[1].Description)

	node, ok := s.Lookup(accounts.Parse("assets"))
	require.True(t, ok)
	assert.True(t, node.Balance.Get("USD").Equal(decimal.RequireFromString("-100")))
	assert.True(t, s.Accounts().Root().Balance.Get("USD").IsZero())
	require.NoError(t, s.Err())

	gotTxns, gotAccounts := s.Stats()
	assert.Equal(t, 2, gotTxns)
	assert.Equal(t, 3, gotAccounts)
}

func TestStore_ReloadReplacesState(t *testing.T) {
	loader := &fakeLoader{txns: []*journal.Transaction{
		mustTx(t, "2025-01-02", "Old", mustPosting(t, "misc:old", "1 USD")),
	}}
	s := New(loader, nil)
	require.NoError(t, s.Reload(context.Background()))

	loader.txns = []*journal.Transaction{
		mustTx(t, "2025-02-03", "New", mustPosting(t, "misc:new", "2 USD")),
	}
	require.NoError(t, s.Reload(context.Background()))

	txns := s.Transactions()
	require.Len(t, txns, 1)
	assert.Equal(t, "New", txns[0].Description)

	_, ok := s.Lookup(accounts.Parse("misc:old"))
	assert.False(t, ok)
}

func TestStore_LoaderError(t *testing.T) {
	loadErr := errors.New("session closed")
	s := New(&fakeLoader{loadErr: loadErr}, nil)
	rec := &recorder{}
	s.Subscribe(rec.record)

	err := s.Reload(context.Background())
	assert.ErrorIs(t, err, loadErr)
	assert.ErrorIs(t, s.Err(), loadErr)
	assert.Equal(t, []EventKind{Reset, Failed}, rec.kinds())
}

func TestStore_ScanErrorKeepsPartialData(t *testing.T) {
	scanErr := errors.New("decode transaction: bad form")
	loader := &fakeLoader{
		txns: []*journal.Transaction{
			mustTx(t, "2025-01-02", "Good", mustPosting(t, "assets:cash", "1 USD")),
		},
		scanErr: scanErr,
	}
	s := New(loader, nil)
	rec := &recorder{}
	s.Subscribe(rec.record)

	err := s.Reload(context.Background())
	assert.ErrorIs(t, err, scanErr)
	assert.ErrorIs(t, s.Err(), scanErr)
	assert.Len(t, s.Transactions(), 1)
	assert.Equal(t, Failed, rec.kinds()[len(rec.kinds())-1])

	// A clean reload recovers.
	loader.scanErr = nil
	require.NoError(t, s.Reload(context.Background()))
	require.NoError(t, s.Err())
}

func TestStore_Register(t *testing.T) {
	s := New(&fakeLoader{txns: testJournal(t)}, nil)
	require.NoError(t, s.Reload(context.Background()))

	assets := s.Register(accounts.Parse("assets"))
	require.Len(t, assets, 2)
	require.Len(t, assets[0].Postings, 1)
	assert.Equal(t, "assets:cash", assets[0].Postings[0].Account.String())
	require.Len(t, assets[1].Postings, 2)

	all := s.Register(accounts.Account{})
	require.Len(t, all, 2)
	assert.Len(t, all[0].Postings, 2)

	none := s.Register(accounts.Parse("liabilities"))
	assert.Empty(t, none)
}

func TestStore_DailyBalances(t *testing.T) {
	s := New(&fakeLoader{txns: testJournal(t)}, nil)
	require.NoError(t, s.Reload(context.Background()))

	points, commodities := s.DailyBalances(accounts.Parse("assets"))
	assert.Equal(t, []string{"USD"}, commodities)
	require.Len(t, points, 2)
	assert.True(t, points[0].Balances["USD"].Equal(decimal.RequireFromString("-100")))
	assert.True(t, points[1].Balances["USD"].Equal(decimal.RequireFromString("-100")))
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New(&fakeLoader{txns: testJournal(t)}, nil)
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.record)
	unsubscribe()

	require.NoError(t, s.Reload(context.Background()))
	assert.Empty(t, rec.events)
}

func TestStore_AccountsCopyIsIndependent(t *testing.T) {
	s := New(&fakeLoader{txns: testJournal(t)}, nil)
	require.NoError(t, s.Reload(context.Background()))

	tree := s.Accounts()
	tree.AddAmount(accounts.Parse("assets:cash"), "USD", decimal.RequireFromString("1000"))

	fresh := s.Accounts()
	node, ok := fresh.Lookup(accounts.Parse("assets:cash"))
	require.True(t, ok)
	assert.True(t, node.Balance.Get("USD").Equal(decimal.RequireFromString("-50")))
}
