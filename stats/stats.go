/*
Package stats answers read-only reporting questions over the ledger.

Transfers move money between the user's own accounts and are excluded from
income/expense figures. Voided transactions never count.

SEE ALSO:
  - calendar/period.go: PeriodsInRange drives Trend
  - store/sqlite/transactions.go: SumByType and SumByCategory
*/
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/pocket-ledger/calendar"
	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
)

// Reader computes aggregates. It never writes.
type Reader struct {
	Store ledger.Queries
}

func NewReader(store ledger.Queries) *Reader {
	return &Reader{Store: store}
}

// =============================================================================
// SUMMARY & TREND
// =============================================================================

type Summary struct {
	From    time.Time
	To      time.Time
	Income  money.Cents
	Expense money.Cents
	Net     money.Cents
	Count   int
}

// Summary totals income and expense dated within [from, to].
func (r *Reader) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	sum := Summary{From: from, To: to}
	for _, typ := range []ledger.TxType{ledger.TxIncome, ledger.TxExpense} {
		rows, err := r.Store.SumByCategory(ctx, ledger.TransactionFilter{From: &from, To: &to, Type: typ})
		if err != nil {
			return Summary{}, fmt.Errorf("sum %s: %w", typ, err)
		}
		for _, row := range rows {
			if typ == ledger.TxIncome {
				sum.Income += row.Total
			} else {
				sum.Expense += row.Total
			}
			sum.Count += row.Count
		}
	}
	sum.Net = sum.Income - sum.Expense
	return sum, nil
}

type TrendPoint struct {
	Period  calendar.Period
	Income  money.Cents
	Expense money.Cents
	Net     money.Cents
}

// Trend splits [from, to] into periods of size g and totals each one.
func (r *Reader) Trend(ctx context.Context, from, to time.Time, g calendar.Granularity) ([]TrendPoint, error) {
	var points []TrendPoint
	for p := range calendar.PeriodsInRange(from, to, g) {
		sums, err := r.Store.SumByType(ctx, ledger.TransactionFilter{From: &p.Start, To: &p.End})
		if err != nil {
			return nil, fmt.Errorf("sum period %s: %w", p.Label, err)
		}
		points = append(points, TrendPoint{
			Period:  p,
			Income:  sums[ledger.TxIncome],
			Expense: sums[ledger.TxExpense],
			Net:     sums[ledger.TxIncome] - sums[ledger.TxExpense],
		})
	}
	return points, nil
}

// =============================================================================
// CATEGORY BREAKDOWN
// =============================================================================

type CategoryShare struct {
	CategoryID string
	Name       string
	Total      money.Cents
	Count      int
	Percentage float64
}

type Breakdown struct {
	Type   ledger.TxType
	Total  money.Cents
	Shares []CategoryShare // largest first
}

// CategoryBreakdown totals transactions of typ per category within [from, to].
func (r *Reader) CategoryBreakdown(ctx context.Context, typ ledger.TxType, from, to time.Time) (Breakdown, error) {
	if !typ.Valid() {
		return Breakdown{}, &ledger.ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", typ)}
	}
	rows, err := r.Store.SumByCategory(ctx, ledger.TransactionFilter{From: &from, To: &to, Type: typ})
	if err != nil {
		return Breakdown{}, fmt.Errorf("sum by category: %w", err)
	}
	categories, err := r.Store.ListCategories(ctx, typ)
	if err != nil {
		return Breakdown{}, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	b := Breakdown{Type: typ, Shares: make([]CategoryShare, 0, len(rows))}
	for _, row := range rows {
		b.Total += row.Total
	}
	for _, row := range rows {
		b.Shares = append(b.Shares, CategoryShare{
			CategoryID: row.CategoryID,
			Name:       names[row.CategoryID],
			Total:      row.Total,
			Count:      row.Count,
			Percentage: money.Percentage(row.Total, b.Total),
		})
	}
	return b, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

type BudgetProgress struct {
	Budget     ledger.Budget
	Window     calendar.Period
	Spent      money.Cents
	Remaining  money.Cents // negative when over budget
	Percentage float64
	Alert      bool
}

// BudgetProgress reports spending against budget id for the period that
// contains today.
func (r *Reader) BudgetProgress(ctx context.Context, id string, today time.Time) (*BudgetProgress, error) {
	b, err := r.Store.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &ledger.NotFoundError{Kind: "budget", ID: id}
	}
	return r.progress(ctx, *b, today)
}

// ActiveBudgetProgress reports every active budget.
func (r *Reader) ActiveBudgetProgress(ctx context.Context, today time.Time) ([]BudgetProgress, error) {
	budgets, err := r.Store.ListBudgets(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p, err := r.progress(ctx, b, today)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *Reader) progress(ctx context.Context, b ledger.Budget, today time.Time) (*BudgetProgress, error) {
	g := calendar.Month
	if b.Period == ledger.BudgetYearly {
		g = calendar.Year
	}
	window := g.PeriodOf(today)
	window.Start = calendar.MaxTime(window.Start, calendar.StartOfDay(b.StartDate))
	if b.EndDate != nil {
		window.End = calendar.MinTime(window.End, calendar.EndOfDay(*b.EndDate))
	}

	p := &BudgetProgress{Budget: b, Window: window}
	if window.Start.After(window.End) {
		p.Remaining = b.Amount
		return p, nil
	}

	sums, err := r.Store.SumByType(ctx, ledger.TransactionFilter{
		From:       &window.Start,
		To:         &window.End,
		Type:       ledger.TxExpense,
		CategoryID: ledger.Deref(b.CategoryID),
		AccountID:  ledger.Deref(b.AccountID),
	})
	if err != nil {
		return nil, fmt.Errorf("sum budget %s: %w", b.ID, err)
	}

	p.Spent = sums[ledger.TxExpense]
	p.Remaining = b.Amount - p.Spent
	p.Percentage = money.Percentage(p.Spent, b.Amount)
	p.Alert = p.Percentage >= float64(b.AlertThreshold)
	return p, nil
}
