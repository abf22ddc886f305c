package accounts

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance maps commodity -> total. Commodities never mix.
type Balance map[string]decimal.Decimal

func (b Balance) Add(commodity string, quantity decimal.Decimal) {
	b[commodity] = b[commodity].Add(quantity)
}

func (b Balance) Get(commodity string) decimal.Decimal {
	return b[commodity]
}

func (b Balance) Commodities() []string {
	commodities := make([]string, 0, len(b))
	for commodity := range b {
		commodities = append(commodities, commodity)
	}
	sort.Strings(commodities)
	return commodities
}

func (b Balance) Clone() Balance {
	clone := make(Balance, len(b))
	for commodity, quantity := range b {
		clone[commodity] = quantity
	}
	return clone
}

// Node is one account in the tree. Its balance covers the whole subtree,
// so intermediate accounts roll up their descendants. Children keep
// first-seen order.
type Node struct {
	Account  Account
	Balance  Balance
	Children []*Node
}

func newNode(a Account) *Node {
	return &Node{Account: a, Balance: make(Balance)}
}

func (n *Node) child(leaf string) *Node {
	for _, c := range n.Children {
		if c.Account.Leaf() == leaf {
			return c
		}
	}
	return nil
}

func (n *Node) Clone() *Node {
	clone := &Node{Account: n.Account, Balance: n.Balance.Clone()}
	for _, c := range n.Children {
		clone.Children = append(clone.Children, c.Clone())
	}
	return clone
}

// Tree aggregates account balances. The root node has an empty account and
// holds the grand total.
type Tree struct {
	root *Node
}

func NewTree() *Tree {
	return &Tree{root: newNode(Account{})}
}

func (t *Tree) Root() *Node {
	return t.root
}

// AddAccount inserts every missing node along the path. It reports whether
// any node was created; repeating an account is a no-op.
func (t *Tree) AddAccount(a Account) bool {
	created := false
	node := t.root
	for depth := 1; depth <= len(a.Segments); depth++ {
		leaf := a.Segments[depth-1]
		child := node.child(leaf)
		if child == nil {
			child = newNode(Account{Segments: a.Segments[:depth]})
			node.Children = append(node.Children, child)
			created = true
		}
		node = child
	}
	return created
}

// AddAmount adds quantity into the root and every node down to the account,
// creating missing nodes on the way.
func (t *Tree) AddAmount(a Account, commodity string, quantity decimal.Decimal) {
	t.AddAccount(a)
	node := t.root
	node.Balance.Add(commodity, quantity)
	for _, segment := range a.Segments {
		node = node.child(segment)
		node.Balance.Add(commodity, quantity)
	}
}

func (t *Tree) Lookup(a Account) (*Node, bool) {
	node := t.root
	for _, segment := range a.Segments {
		if node = node.child(segment); node == nil {
			return nil, false
		}
	}
	return node, true
}

func (t *Tree) Clear() {
	t.root = newNode(Account{})
}

func (t *Tree) Clone() *Tree {
	return &Tree{root: t.root.Clone()}
}
