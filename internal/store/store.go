// Package store caches the decoded journal between reloads and tells
// subscribers about every change, so views can redraw incrementally instead
// of waiting for a full load.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ngalaiko/ledger-desktop/internal/accounts"
	"github.com/ngalaiko/ledger-desktop/internal/journal"
	"github.com/ngalaiko/ledger-desktop/internal/ledger"
)

// Scanner is one pass over the journal's transactions.
type Scanner interface {
	Scan() bool
	Transaction() *journal.Transaction
	Err() error
	Close()
}

// Loader produces a fresh journal scan for every reload.
type Loader interface {
	Transactions(ctx context.Context) (Scanner, error)
}

// SessionLoader reads the journal through a live ledger session.
type SessionLoader struct {
	Handle *ledger.Handle
	// Query narrows the dump, like extra command line arguments would.
	Query []string
}

func (l SessionLoader) Transactions(ctx context.Context) (Scanner, error) {
	return l.Handle.Transactions(ctx, l.Query...)
}

type EventKind int

const (
	Reset EventKind = iota
	AccountAdded
	TransactionAdded
	Loaded
	Failed
)

func (k EventKind) String() string {
	names := []string{"Reset", "AccountAdded", "TransactionAdded", "Loaded", "Failed"}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Event describes one store change. Only the fields relevant to the kind
// are set.
type Event struct {
	Kind         EventKind
	Account      accounts.Account
	Transaction  *journal.Transaction
	Transactions int
	Accounts     int
	Err          error
}

// Store holds the journal of one session. Reads always see a consistent
// snapshot; a reload in progress publishes its rows as they decode.
type Store struct {
	loader Loader
	logger *zap.Logger

	// Serializes reloads so two never interleave their events.
	reloadMu sync.Mutex

	mu           sync.RWMutex
	txns         []journal.Transaction
	tree         *accounts.Tree
	accountCount int
	err          error

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

func New(loader Loader, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		loader: loader,
		logger: logger,
		tree:   accounts.NewTree(),
		subs:   make(map[int]func(Event)),
	}
}

// Reload drops the journal and streams it back in from the loader. Partial
// data stays visible if the scan dies halfway; Err reports what happened.
func (s *Store) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.mu.Lock()
	s.txns = nil
	s.tree.Clear()
	s.accountCount = 0
	s.err = nil
	s.mu.Unlock()
	s.notify(Event{Kind: Reset})

	scanner, err := s.loader.Transactions(ctx)
	if err != nil {
		return s.fail(err)
	}
	defer scanner.Close()

	for scanner.Scan() {
		tx := scanner.Transaction()
		s.mu.Lock()
		var added []accounts.Account
		for _, p := range tx.Postings {
			if s.tree.AddAccount(p.Account) {
				added = append(added, p.Account)
				s.accountCount++
			}
			s.tree.AddAmount(p.Account, p.Amount.Commodity, p.Amount.Quantity)
		}
		s.txns = append(s.txns, *tx)
		s.mu.Unlock()

		for _, a := range added {
			s.notify(Event{Kind: AccountAdded, Account: a})
		}
		s.notify(Event{Kind: TransactionAdded, Transaction: tx})
	}
	if err := scanner.Err(); err != nil {
		return s.fail(err)
	}

	s.mu.RLock()
	loaded := Event{Kind: Loaded, Transactions: len(s.txns), Accounts: s.accountCount}
	s.mu.RUnlock()
	s.logger.Info("journal loaded",
		zap.Int("transactions", loaded.Transactions),
		zap.Int("accounts", loaded.Accounts))
	s.notify(loaded)
	return nil
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Warn("journal load failed", zap.Error(err))
	s.notify(Event{Kind: Failed, Err: err})
	return err
}

// Transactions returns the journal in load order.
func (s *Store) Transactions() []journal.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]journal.Transaction(nil), s.txns...)
}

// Register returns the transactions touching account or its descendants,
// trimmed to the matching postings. The zero Account matches everything.
func (s *Store) Register(account accounts.Account) []journal.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return journal.FilterByAccount(s.txns, account)
}

// Accounts returns a copy of the account tree.
func (s *Store) Accounts() *accounts.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Clone()
}

// Lookup returns a copy of one account's subtree.
func (s *Store) Lookup(account accounts.Account) (*accounts.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.tree.Lookup(account)
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

// DailyBalances charts the running balance of account, day by day. The zero
// Account charts the whole journal.
func (s *Store) DailyBalances(account accounts.Account) ([]journal.BalancePoint, []string) {
	s.mu.RLock()
	txns := journal.FilterByAccount(s.txns, account)
	s.mu.RUnlock()
	return journal.DailyBalances(txns)
}

// Stats returns how many transactions and distinct posting accounts are
// loaded.
func (s *Store) Stats() (transactions, accounts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txns), s.accountCount
}

// Err returns the failure of the most recent reload, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Subscribe registers fn for every future event. Events of one reload
// arrive in order; fn runs on the reloading goroutine and must not block.
// The returned function cancels the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
