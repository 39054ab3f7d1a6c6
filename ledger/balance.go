/*
balance.go - Balance reconciliation

PURPOSE:

	The Reconciler is the only component that writes Account.Balance. It turns
	a transaction's Effect into signed per-account deltas:

	  expense:  account    -= amount
	  income:   account    += amount
	  transfer: account    -= amount
	            toAccount  += amount

	Reverse applies the negated deltas, so Apply followed by Reverse restores
	balances exactly.

UNIT OF WORK:

	Apply and Reverse run on the caller's Queries and never open their own
	transaction. A transfer's debit and credit therefore commit or roll back
	together with whatever the caller is doing.

DRIFT REPAIR:

	Recalculate rebuilds a balance from history:
	  initial + income - expense + transfer-in - transfer-out (non-void only)
	It is not on the normal write path.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/pocket-ledger/money"
)

// Effect is everything needed to move balances for one transaction.
type Effect struct {
	Type        TxType
	Amount      money.Cents
	AccountID   string
	ToAccountID *string
}

type delta struct {
	accountID string
	amount    money.Cents
}

func (e Effect) deltas() []delta {
	switch e.Type {
	case TxExpense:
		return []delta{{e.AccountID, -e.Amount}}
	case TxIncome:
		return []delta{{e.AccountID, e.Amount}}
	case TxTransfer:
		d := []delta{{e.AccountID, -e.Amount}}
		if e.ToAccountID != nil {
			d = append(d, delta{*e.ToAccountID, e.Amount})
		}
		return d
	}
	return nil
}

// Reconciler applies and reverses balance effects.
type Reconciler struct {
	Now func() time.Time
}

func NewReconciler() *Reconciler {
	return &Reconciler{Now: time.Now}
}

// Apply moves balances by the effect's deltas.
func (r *Reconciler) Apply(ctx context.Context, q Queries, e Effect) error {
	return r.move(ctx, q, e, 1)
}

// Reverse moves balances by the negated deltas.
func (r *Reconciler) Reverse(ctx context.Context, q Queries, e Effect) error {
	return r.move(ctx, q, e, -1)
}

func (r *Reconciler) move(ctx context.Context, q Queries, e Effect, sign money.Cents) error {
	now := r.Now()
	for _, d := range e.deltas() {
		if err := q.AdjustAccountBalance(ctx, d.accountID, sign*d.amount, now); err != nil {
			return fmt.Errorf("adjust balance of %s: %w", d.accountID, err)
		}
	}
	return nil
}

// Recalculate recomputes accountID's balance from its transaction history,
// persists it and returns it.
func (r *Reconciler) Recalculate(ctx context.Context, q Queries, accountID string) (money.Cents, error) {
	acct, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, &NotFoundError{Kind: "account", ID: accountID}
	}

	totals, err := q.AccountTotals(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("sum transactions of %s: %w", accountID, err)
	}

	balance := acct.InitialBalance + totals.Net()
	if err := q.SetAccountBalance(ctx, accountID, balance, r.Now()); err != nil {
		return 0, err
	}
	return balance, nil
}
