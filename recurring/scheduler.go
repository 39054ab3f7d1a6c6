/*
scheduler.go - Recurring template execution

PURPOSE:

	Finds templates whose NextExecuteAt has arrived, materializes one
	transaction per template and advances the schedule. Also owns template
	CRUD, skipping and (re)activation.

EXECUTION:

	Each template runs in its own unit of work: the transaction insert, its
	balance effect and the template's LastExecutedAt/NextExecuteAt update
	commit together or not at all. A failure is recorded in that template's
	ExecutionResult and the batch moves on.

	The materialized transaction is dated at the start of today, carries the
	template ID in RecurringID and in its tags.

MISSED OCCURRENCES:

	Not backfilled. A template that was due several times while the process
	was down produces one transaction and jumps to the next future date.

SEE ALSO:
  - schedule.go: NextExecuteDate
  - ledger/transactions.go: CreateWithBalance
  - api/runner.go: periodic invocation of ExecuteAllDue
*/
package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/pocket-ledger/calendar"
	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
)

// ExecutionResult reports the outcome of running one template.
type ExecutionResult struct {
	TemplateID    string
	TransactionID *string
	Success       bool
	Error         string
}

// Scheduler executes recurring templates against the ledger.
type Scheduler struct {
	Store        ledger.Store
	Transactions *ledger.TransactionService
	Logger       *slog.Logger
	Now          func() time.Time
	NewID        func() string
}

func NewScheduler(store ledger.Store, txs *ledger.TransactionService, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Store:        store,
		Transactions: txs,
		Logger:       logger,
		Now:          time.Now,
		NewID:        uuid.NewString,
	}
}

// =============================================================================
// DUE DETECTION & EXECUTION
// =============================================================================

// Due returns active templates due today whose end date has not passed.
func (s *Scheduler) Due(ctx context.Context) ([]ledger.RecurringTransaction, error) {
	today := calendar.StartOfDay(s.Now())
	candidates, err := s.Store.ListRecurringDue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list due templates: %w", err)
	}
	due := candidates[:0]
	for _, r := range candidates {
		if !expired(r, today) {
			due = append(due, r)
		}
	}
	return due, nil
}

// ExecuteAllDue runs every due template in order. Templates past their end
// date are deactivated instead. Only a failure to list templates is returned
// as an error; per-template failures are reported in the results.
func (s *Scheduler) ExecuteAllDue(ctx context.Context) ([]ExecutionResult, error) {
	today := calendar.StartOfDay(s.Now())
	candidates, err := s.Store.ListRecurringDue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list due templates: %w", err)
	}

	results := make([]ExecutionResult, 0, len(candidates))
	for _, r := range candidates {
		if expired(r, today) {
			if err := s.deactivate(ctx, r); err != nil {
				s.Logger.Error("failed to deactivate expired template", "template", r.ID, "error", err)
			}
			continue
		}
		results = append(results, s.execute(ctx, r.ID))
	}

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	s.Logger.Info("recurring batch finished", "executed", len(results)-failed, "failed", failed)
	return results, nil
}

// ManualExecute runs template id now regardless of its schedule. Lookup
// failures are returned as errors; execution failures land in the result.
func (s *Scheduler) ManualExecute(ctx context.Context, id string) (ExecutionResult, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return ExecutionResult{}, err
	}
	return s.execute(ctx, id), nil
}

func (s *Scheduler) execute(ctx context.Context, id string) ExecutionResult {
	res := ExecutionResult{TemplateID: id}
	now := s.Now()
	today := calendar.StartOfDay(now)

	err := s.Store.WithTx(ctx, func(q ledger.Queries) error {
		r, err := getTemplate(ctx, q, id)
		if err != nil {
			return err
		}

		tx, err := s.Transactions.CreateWithBalance(ctx, q, ledger.CreateTransactionInput{
			Type:        r.Type,
			Amount:      r.Amount,
			CategoryID:  r.CategoryID,
			AccountID:   r.AccountID,
			ToAccountID: r.ToAccountID,
			Note:        r.Note,
			Date:        &today,
			Tags:        append(slices.Clone(r.Tags), r.ID),
			RecurringID: &r.ID,
		})
		if err != nil {
			return err
		}

		r.LastExecutedAt = &now
		r.NextExecuteAt = NextExecuteDate(ScheduleOf(*r), &now, now)
		r.UpdatedAt = now
		if err := q.UpdateRecurring(ctx, *r); err != nil {
			return fmt.Errorf("advance template: %w", err)
		}
		res.TransactionID = &tx.ID
		return nil
	})
	if err != nil {
		res.TransactionID = nil
		res.Error = err.Error()
		s.Logger.Warn("recurring template failed", "template", id, "error", err)
		return res
	}

	res.Success = true
	s.Logger.Info("recurring template executed", "template", id, "transaction", *res.TransactionID)
	return res
}

// Skip moves template id past its pending occurrence without creating a
// transaction. LastExecutedAt is left as is. When the pending occurrence is
// already due, the new date is at least tomorrow.
func (s *Scheduler) Skip(ctx context.Context, id string) (*ledger.RecurringTransaction, error) {
	var skipped *ledger.RecurringTransaction
	err := s.Store.WithTx(ctx, func(q ledger.Queries) error {
		r, err := getTemplate(ctx, q, id)
		if err != nil {
			return err
		}
		if !r.IsActive {
			return &ledger.StateError{ID: id, Message: fmt.Sprintf("recurring template %s is inactive", id)}
		}

		now := s.Now()
		floor := now
		if !r.NextExecuteAt.After(calendar.StartOfDay(now)) {
			floor = calendar.AddDays(now, 1)
		}
		pending := r.NextExecuteAt
		r.NextExecuteAt = NextExecuteDate(ScheduleOf(*r), &pending, floor)
		r.UpdatedAt = now
		if err := q.UpdateRecurring(ctx, *r); err != nil {
			return err
		}
		skipped = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("recurring occurrence skipped", "template", id, "next", skipped.NextExecuteAt.Format(time.DateOnly))
	return skipped, nil
}

// SetActive pauses or resumes template id. Resuming recomputes NextExecuteAt
// as if the template had never run, starting no earlier than today.
func (s *Scheduler) SetActive(ctx context.Context, id string, active bool) (*ledger.RecurringTransaction, error) {
	var updated *ledger.RecurringTransaction
	err := s.Store.WithTx(ctx, func(q ledger.Queries) error {
		r, err := getTemplate(ctx, q, id)
		if err != nil {
			return err
		}

		now := s.Now()
		if active && !r.IsActive {
			sched := ScheduleOf(*r)
			sched.StartDate = calendar.MaxTime(r.StartDate, calendar.StartOfDay(now))
			r.NextExecuteAt = NextExecuteDate(sched, nil, now)
		}
		r.IsActive = active
		r.UpdatedAt = now
		if err := q.UpdateRecurring(ctx, *r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Scheduler) deactivate(ctx context.Context, r ledger.RecurringTransaction) error {
	r.IsActive = false
	r.UpdatedAt = s.Now()
	if err := s.Store.UpdateRecurring(ctx, r); err != nil {
		return err
	}
	s.Logger.Info("recurring template expired", "template", r.ID, "end_date", r.EndDate.Format(time.DateOnly))
	return nil
}

// expired reports whether r's end date lies before today.
func expired(r ledger.RecurringTransaction, today time.Time) bool {
	return r.EndDate != nil && calendar.StartOfDay(*r.EndDate).Before(today)
}

// =============================================================================
// TEMPLATE CRUD
// =============================================================================

// TemplateInput describes a new template. StartDate defaults to today.
type TemplateInput struct {
	Name        string
	Type        ledger.TxType
	Amount      money.Cents
	CategoryID  string
	AccountID   string
	ToAccountID *string
	Note        string
	Tags        []string
	Frequency   ledger.Frequency
	DayOfMonth  *int
	DayOfWeek   *int
	StartDate   *time.Time
	EndDate     *time.Time
}

// TemplatePatch is a partial update; nil fields are left unchanged.
// DayOfMonth 0 and DayOfWeek -1 clear the anchor day, ToAccountID "" clears
// the transfer target and ClearEndDate removes the end date.
type TemplatePatch struct {
	Name         *string
	Type         *ledger.TxType
	Amount       *money.Cents
	CategoryID   *string
	AccountID    *string
	ToAccountID  *string
	Note         *string
	Tags         *[]string
	Frequency    *ledger.Frequency
	DayOfMonth   *int
	DayOfWeek    *int
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
}

func (s *Scheduler) Get(ctx context.Context, id string) (*ledger.RecurringTransaction, error) {
	return getTemplate(ctx, s.Store, id)
}

func (s *Scheduler) List(ctx context.Context, activeOnly bool) ([]ledger.RecurringTransaction, error) {
	return s.Store.ListRecurring(ctx, activeOnly)
}

// Create validates and stores a new active template.
func (s *Scheduler) Create(ctx context.Context, in TemplateInput) (*ledger.RecurringTransaction, error) {
	now := s.Now()
	r := ledger.RecurringTransaction{
		ID:          s.NewID(),
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
		ToAccountID: nonEmpty(in.ToAccountID),
		Note:        in.Note,
		Tags:        ledger.NormalizeTags(in.Tags),
		Frequency:   in.Frequency,
		DayOfMonth:  in.DayOfMonth,
		DayOfWeek:   in.DayOfWeek,
		StartDate:   calendar.StartOfDay(now),
		EndDate:     in.EndDate,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.StartDate != nil {
		r.StartDate = *in.StartDate
	}
	r.NextExecuteAt = NextExecuteDate(ScheduleOf(r), nil, now)

	err := s.Store.WithTx(ctx, func(q ledger.Queries) error {
		if err := validateTemplate(ctx, q, r); err != nil {
			return err
		}
		return q.InsertRecurring(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("recurring template created", "template", r.ID, "frequency", r.Frequency, "next", r.NextExecuteAt.Format(time.DateOnly))
	return &r, nil
}

// Update applies p to template id. NextExecuteAt is recomputed when the
// frequency, anchor day or start date changes; a template that never ran is
// rescheduled from today rather than from its start date.
func (s *Scheduler) Update(ctx context.Context, id string, p TemplatePatch) (*ledger.RecurringTransaction, error) {
	var updated *ledger.RecurringTransaction
	err := s.Store.WithTx(ctx, func(q ledger.Queries) error {
		orig, err := getTemplate(ctx, q, id)
		if err != nil {
			return err
		}

		r := mergeTemplate(*orig, p)
		if err := validateTemplate(ctx, q, r); err != nil {
			return err
		}
		now := s.Now()
		if scheduleChanged(*orig, r) {
			sched := ScheduleOf(r)
			if r.LastExecutedAt == nil {
				sched.StartDate = calendar.MaxTime(r.StartDate, calendar.StartOfDay(now))
			}
			r.NextExecuteAt = NextExecuteDate(sched, r.LastExecutedAt, now)
		}
		r.UpdatedAt = now
		if err := q.UpdateRecurring(ctx, r); err != nil {
			return err
		}
		updated = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes template id. Transactions it produced are kept and lose
// their RecurringID.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteRecurring(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("recurring template deleted", "template", id)
	return nil
}

func mergeTemplate(r ledger.RecurringTransaction, p TemplatePatch) ledger.RecurringTransaction {
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		r.CategoryID = *p.CategoryID
	}
	if p.AccountID != nil {
		r.AccountID = *p.AccountID
	}
	switch {
	case p.ToAccountID != nil:
		r.ToAccountID = nonEmpty(p.ToAccountID)
	case r.Type != ledger.TxTransfer:
		r.ToAccountID = nil
	}
	if p.Note != nil {
		r.Note = *p.Note
	}
	if p.Tags != nil {
		r.Tags = ledger.NormalizeTags(*p.Tags)
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.DayOfMonth != nil {
		r.DayOfMonth = optionalDay(*p.DayOfMonth, 0)
	}
	if p.DayOfWeek != nil {
		r.DayOfWeek = optionalDay(*p.DayOfWeek, -1)
	}
	if p.StartDate != nil {
		r.StartDate = *p.StartDate
	}
	switch {
	case p.ClearEndDate:
		r.EndDate = nil
	case p.EndDate != nil:
		r.EndDate = p.EndDate
	}
	return r
}

func scheduleChanged(a, b ledger.RecurringTransaction) bool {
	return a.Frequency != b.Frequency ||
		!a.StartDate.Equal(b.StartDate) ||
		!equalDay(a.DayOfMonth, b.DayOfMonth) ||
		!equalDay(a.DayOfWeek, b.DayOfWeek)
}

func validateTemplate(ctx context.Context, q ledger.Queries, r ledger.RecurringTransaction) error {
	if r.Name == "" {
		return &ledger.ValidationError{Field: "name", Message: "is required"}
	}
	if !r.Frequency.Valid() {
		return &ledger.ValidationError{Field: "frequency", Message: fmt.Sprintf("unknown frequency %q", r.Frequency)}
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return &ledger.ValidationError{Field: "dayOfMonth", Message: "must be between 1 and 31"}
	}
	if r.DayOfWeek != nil && (*r.DayOfWeek < 0 || *r.DayOfWeek > 6) {
		return &ledger.ValidationError{Field: "dayOfWeek", Message: "must be between 0 (Sunday) and 6"}
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return &ledger.ValidationError{Field: "endDate", Message: "must not precede startDate"}
	}
	return ledger.ValidateTransaction(ctx, q, ledger.Transaction{
		Type:        r.Type,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		AccountID:   r.AccountID,
		ToAccountID: r.ToAccountID,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func getTemplate(ctx context.Context, q ledger.Queries, id string) (*ledger.RecurringTransaction, error) {
	r, err := q.GetRecurring(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &ledger.NotFoundError{Kind: "recurring", ID: id}
	}
	return r, nil
}

func optionalDay(v, unset int) *int {
	if v == unset {
		return nil
	}
	return &v
}

func equalDay(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
