// Package server exposes the journal store over JSON-RPC 2.0. The shell
// talks to it on stdin/stdout; store changes stream out as notifications so
// views update while a load is still running.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/ngalaiko/ledger-desktop/internal/accounts"
	"github.com/ngalaiko/ledger-desktop/internal/store"
)

const (
	methodLoad         = "ledger/load"
	methodTransactions = "ledger/transactions"
	methodAccounts     = "ledger/accounts"
	methodBalances     = "ledger/balances"
	methodCommand      = "ledger/command"
	methodShutdown     = "shutdown"
	methodExit         = "exit"

	notifyReset            = "ledger/didReset"
	notifyAccountAdded     = "ledger/didAddAccount"
	notifyTransactionAdded = "ledger/didAddTransaction"
	notifyLoaded           = "ledger/didLoad"
	notifyFailed           = "ledger/didFail"
)

// Commander runs one raw REPL command and returns its stdout.
type Commander interface {
	Command(ctx context.Context, command string) ([]string, error)
}

type Server struct {
	store     *store.Store
	commander Commander
	logger    *zap.Logger

	mu       sync.Mutex
	conn     jsonrpc2.Conn
	stopping bool
}

func New(st *store.Store, commander Commander, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: st, commander: commander, logger: logger}
}

// Run serves the connection until the peer disconnects or asks to exit.
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	unsubscribe := s.store.Subscribe(func(ev store.Event) {
		s.notifyEvent(ctx, ev)
	})
	defer unsubscribe()

	conn.Go(ctx, s.handle)
	<-conn.Done()

	err := conn.Err()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Debug("request", zap.String("method", req.Method()))

	if s.isStopping() && req.Method() != methodExit {
		return reply(ctx, nil, fmt.Errorf("%w: server is shutting down", jsonrpc2.ErrInvalidRequest))
	}

	switch req.Method() {
	case methodLoad:
		return s.handleLoad(ctx, reply)
	case methodTransactions:
		return s.handleTransactions(ctx, reply, req)
	case methodAccounts:
		return s.handleAccounts(ctx, reply)
	case methodBalances:
		return s.handleBalances(ctx, reply, req)
	case methodCommand:
		return s.handleCommand(ctx, reply, req)
	case methodShutdown:
		s.setStopping()
		return reply(ctx, nil, nil)
	case methodExit:
		err := reply(ctx, nil, nil)
		s.closeConn()
		return err
	default:
		return reply(ctx, nil, fmt.Errorf("%w: %q", jsonrpc2.ErrMethodNotFound, req.Method()))
	}
}

func (s *Server) handleLoad(ctx context.Context, reply jsonrpc2.Replier) error {
	if err := s.store.Reload(ctx); err != nil {
		return reply(ctx, nil, err)
	}
	transactions, accountCount := s.store.Stats()
	return reply(ctx, LoadResult{Transactions: transactions, Accounts: accountCount}, nil)
}

func (s *Server) handleTransactions(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params AccountRef
	if err := unmarshalParams(req, &params); err != nil {
		return reply(ctx, nil, err)
	}
	txns := s.store.Register(accounts.Parse(params.Account))
	out := make([]Transaction, 0, len(txns))
	for _, tx := range txns {
		out = append(out, transactionDTO(tx))
	}
	return reply(ctx, out, nil)
}

func (s *Server) handleAccounts(ctx context.Context, reply jsonrpc2.Replier) error {
	tree := s.store.Accounts()
	return reply(ctx, accountDTO(tree.Root()), nil)
}

func (s *Server) handleBalances(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params AccountRef
	if err := unmarshalParams(req, &params); err != nil {
		return reply(ctx, nil, err)
	}
	points, commodities := s.store.DailyBalances(accounts.Parse(params.Account))
	return reply(ctx, seriesDTO(points, commodities), nil)
}

func (s *Server) handleCommand(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params struct {
		Command string `json:"command"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return reply(ctx, nil, err)
	}
	if params.Command == "" {
		return reply(ctx, nil, fmt.Errorf("%w: command is required", jsonrpc2.ErrInvalidParams))
	}
	lines, err := s.commander.Command(ctx, params.Command)
	if err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, CommandResult{Lines: lines}, nil)
}

func unmarshalParams(req jsonrpc2.Request, v interface{}) error {
	if len(req.Params()) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err)
	}
	return nil
}

func (s *Server) notifyEvent(ctx context.Context, ev store.Event) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	var err error
	switch ev.Kind {
	case store.Reset:
		err = conn.Notify(ctx, notifyReset, nil)
	case store.AccountAdded:
		err = conn.Notify(ctx, notifyAccountAdded, AccountRef{Account: ev.Account.String()})
	case store.TransactionAdded:
		err = conn.Notify(ctx, notifyTransactionAdded, transactionDTO(*ev.Transaction))
	case store.Loaded:
		err = conn.Notify(ctx, notifyLoaded, LoadResult{Transactions: ev.Transactions, Accounts: ev.Accounts})
	case store.Failed:
		err = conn.Notify(ctx, notifyFailed, Failure{Error: ev.Err.Error()})
	}
	if err != nil {
		s.logger.Warn("notify failed", zap.Stringer("event", ev.Kind), zap.Error(err))
	}
}

func (s *Server) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *Server) setStopping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
}

func (s *Server) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
