/*
transactions.go - Transaction lifecycle

PURPOSE:

	Orchestrates create/update/void/delete of a transaction together with its
	balance effect. Every operation validates first, then performs all writes
	inside one unit of work so a failure leaves rows and balances untouched.

STATE MACHINE:

	{none} --Create--> active --Update--> active
	                   active --Void----> voided
	                   active --Delete--> deleted
	                   voided --Delete--> deleted   (no second reversal)

COMPOSITION:

	Create/Update/Void/Delete open their own unit of work. CreateWithBalance and
	the *InTx variants run on a caller-supplied Queries; the recurrence
	scheduler uses CreateWithBalance so the materialized transaction and the
	template's schedule update commit together.
*/
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/pocket-ledger/money"
)

// =============================================================================
// INPUTS
// =============================================================================

// CreateTransactionInput describes a new transaction. Date defaults to now.
type CreateTransactionInput struct {
	Type        TxType
	Amount      money.Cents
	CategoryID  string
	AccountID   string
	ToAccountID *string
	Note        string
	Date        *time.Time
	Tags        []string
	Attachments []string
	RecurringID *string
}

// UpdateTransactionInput is a patch; nil fields are left unchanged.
// ToAccountID pointing at "" clears the transfer target. When the merged type
// is not a transfer and ToAccountID is nil, the old target is dropped.
type UpdateTransactionInput struct {
	Type        *TxType
	Amount      *money.Cents
	CategoryID  *string
	AccountID   *string
	ToAccountID *string
	Note        *string
	Date        *time.Time
	Tags        *[]string
	Attachments *[]string
}

// =============================================================================
// SERVICE
// =============================================================================

// TransactionService owns the transaction lifecycle.
type TransactionService struct {
	Store      Store
	Reconciler *Reconciler
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

func NewTransactionService(store Store, logger *slog.Logger) *TransactionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionService{
		Store:      store,
		Reconciler: NewReconciler(),
		Logger:     logger,
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
}

// Get returns a transaction or a *NotFoundError.
func (s *TransactionService) Get(ctx context.Context, id string) (*Transaction, error) {
	return getTransaction(ctx, s.Store, id)
}

// List returns transactions matching f, newest first.
func (s *TransactionService) List(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	return s.Store.ListTransactions(ctx, f)
}

// Create inserts a transaction and applies its balance effect atomically.
func (s *TransactionService) Create(ctx context.Context, in CreateTransactionInput) (*Transaction, error) {
	var created *Transaction
	err := s.Store.WithTx(ctx, func(q Queries) error {
		var err error
		created, err = s.CreateWithBalance(ctx, q, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateWithBalance is Create on an externally managed unit of work.
func (s *TransactionService) CreateWithBalance(ctx context.Context, q Queries, in CreateTransactionInput) (*Transaction, error) {
	now := s.Now()
	t := Transaction{
		ID:          s.NewID(),
		Type:        in.Type,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
		ToAccountID: nonEmpty(in.ToAccountID),
		Note:        in.Note,
		Date:        now,
		Tags:        NormalizeTags(in.Tags),
		Attachments: slices.Clone(in.Attachments),
		RecurringID: nonEmpty(in.RecurringID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Date != nil {
		t.Date = *in.Date
	}

	if err := ValidateTransaction(ctx, q, t); err != nil {
		return nil, err
	}
	if err := q.InsertTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if err := s.Reconciler.Apply(ctx, q, t.Effect()); err != nil {
		return nil, err
	}

	s.Logger.Debug("transaction created", "id", t.ID, "type", t.Type, "amount", t.Amount, "account", t.AccountID)
	return &t, nil
}

// Update merges in into transaction id, swapping the old balance effect for
// the new one atomically.
func (s *TransactionService) Update(ctx context.Context, id string, in UpdateTransactionInput) (*Transaction, error) {
	var updated *Transaction
	err := s.Store.WithTx(ctx, func(q Queries) error {
		var err error
		updated, err = s.UpdateInTx(ctx, q, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateInTx is Update on an externally managed unit of work.
func (s *TransactionService) UpdateInTx(ctx context.Context, q Queries, id string, in UpdateTransactionInput) (*Transaction, error) {
	orig, err := getTransaction(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if orig.IsVoid {
		return nil, errVoided(id, "update")
	}

	merged := mergeTransaction(*orig, in)
	if err := ValidateTransaction(ctx, q, merged); err != nil {
		return nil, err
	}
	merged.UpdatedAt = s.Now()

	if err := s.Reconciler.Reverse(ctx, q, orig.Effect()); err != nil {
		return nil, err
	}
	if err := q.UpdateTransaction(ctx, merged); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if err := s.Reconciler.Apply(ctx, q, merged.Effect()); err != nil {
		return nil, err
	}

	s.Logger.Debug("transaction updated", "id", id, "type", merged.Type, "amount", merged.Amount)
	return &merged, nil
}

// Void reverses the balance effect of transaction id and marks it void.
// Voiding twice fails with a *StateError and moves no balance.
func (s *TransactionService) Void(ctx context.Context, id string) (*Transaction, error) {
	var voided *Transaction
	err := s.Store.WithTx(ctx, func(q Queries) error {
		var err error
		voided, err = s.VoidInTx(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}

// VoidInTx is Void on an externally managed unit of work.
func (s *TransactionService) VoidInTx(ctx context.Context, q Queries, id string) (*Transaction, error) {
	t, err := getTransaction(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if t.IsVoid {
		return nil, &StateError{ID: id, Message: fmt.Sprintf("transaction %s is already voided", id)}
	}

	if err := s.Reconciler.Reverse(ctx, q, t.Effect()); err != nil {
		return nil, err
	}
	t.IsVoid = true
	t.UpdatedAt = s.Now()
	if err := q.UpdateTransaction(ctx, *t); err != nil {
		return nil, fmt.Errorf("void transaction: %w", err)
	}

	s.Logger.Debug("transaction voided", "id", id)
	return t, nil
}

// Delete removes transaction id, reversing its effect unless already voided.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(q Queries) error {
		return s.DeleteInTx(ctx, q, id)
	})
}

// DeleteInTx is Delete on an externally managed unit of work.
func (s *TransactionService) DeleteInTx(ctx context.Context, q Queries, id string) error {
	t, err := getTransaction(ctx, q, id)
	if err != nil {
		return err
	}
	if !t.IsVoid {
		if err := s.Reconciler.Reverse(ctx, q, t.Effect()); err != nil {
			return err
		}
	}
	if err := q.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.Logger.Debug("transaction deleted", "id", id, "was_void", t.IsVoid)
	return nil
}

// RecalculateAccountBalance rebuilds an account balance from history.
func (s *TransactionService) RecalculateAccountBalance(ctx context.Context, accountID string) (money.Cents, error) {
	var balance money.Cents
	err := s.Store.WithTx(ctx, func(q Queries) error {
		var err error
		balance, err = s.Reconciler.Recalculate(ctx, q, accountID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.Logger.Info("account balance recalculated", "account", accountID, "balance", balance)
	return balance, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateTransaction checks t's cross-field rules and that the accounts and
// category it references exist and agree on type. Recurring templates are
// validated through it as well.
func ValidateTransaction(ctx context.Context, q Queries, t Transaction) error {
	if err := validateShape(t.Type, t.Amount, t.AccountID, t.ToAccountID, t.CategoryID); err != nil {
		return err
	}
	return validateReferences(ctx, q, t.Type, t.AccountID, t.ToAccountID, t.CategoryID)
}

// validateShape checks the cross-field rules that need no lookups.
func validateShape(typ TxType, amount money.Cents, accountID string, toAccountID *string, categoryID string) error {
	if !typ.Valid() {
		return invalid("type", "unknown transaction type %q", typ)
	}
	if amount <= 0 {
		return invalid("amount", "must be positive, got %d", amount)
	}
	if accountID == "" {
		return invalid("accountId", "is required")
	}
	if categoryID == "" {
		return invalid("categoryId", "is required")
	}
	if typ == TxTransfer {
		if toAccountID == nil {
			return invalid("toAccountId", "is required for transfers")
		}
		if *toAccountID == accountID {
			return invalid("toAccountId", "must differ from accountId")
		}
	} else if toAccountID != nil {
		return invalid("toAccountId", "is only allowed for transfers")
	}
	return nil
}

// validateReferences checks that referenced rows exist and agree on type.
func validateReferences(ctx context.Context, q Queries, typ TxType, accountID string, toAccountID *string, categoryID string) error {
	ids := []string{accountID}
	if toAccountID != nil {
		ids = append(ids, *toAccountID)
	}
	for _, id := range ids {
		a, err := q.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return &NotFoundError{Kind: "account", ID: id}
		}
	}

	c, err := q.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if c == nil {
		return &NotFoundError{Kind: "category", ID: categoryID}
	}
	if c.Type != typ {
		return invalid("categoryId", "category %s is %s, transaction is %s", c.ID, c.Type, typ)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func getTransaction(ctx context.Context, q Queries, id string) (*Transaction, error) {
	t, err := q.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &NotFoundError{Kind: "transaction", ID: id}
	}
	return t, nil
}

func mergeTransaction(t Transaction, in UpdateTransactionInput) Transaction {
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Amount != nil {
		t.Amount = *in.Amount
	}
	if in.CategoryID != nil {
		t.CategoryID = *in.CategoryID
	}
	if in.AccountID != nil {
		t.AccountID = *in.AccountID
	}
	switch {
	case in.ToAccountID != nil:
		t.ToAccountID = nonEmpty(in.ToAccountID)
	case t.Type != TxTransfer:
		t.ToAccountID = nil
	}
	if in.Note != nil {
		t.Note = *in.Note
	}
	if in.Date != nil {
		t.Date = *in.Date
	}
	if in.Tags != nil {
		t.Tags = NormalizeTags(*in.Tags)
	}
	if in.Attachments != nil {
		t.Attachments = slices.Clone(*in.Attachments)
	}
	return t
}

// NormalizeTags trims tags, drops empties and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
