/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication, decoupling the ledger
	model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:

	Amounts travel as integer minor units ("amount": 1234). Responses also carry
	a formatted string ("amount_display": "$12.34"). Requests may send
	"amount_display": "12.34" instead of "amount".

DATES:

	Requests accept "2006-01-02" (local midnight) or RFC 3339. Responses use
	RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
	"github.com/warp/pocket-ledger/recurring"
	"github.com/warp/pocket-ledger/stats"
)

// =============================================================================
// ACCOUNTS & CATEGORIES
// =============================================================================

type AccountDTO struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Type                  string      `json:"type"`
	Currency              string      `json:"currency"`
	Balance               money.Cents `json:"balance"`
	BalanceDisplay        string      `json:"balance_display"`
	InitialBalance        money.Cents `json:"initial_balance"`
	InitialBalanceDisplay string      `json:"initial_balance_display"`
	Icon                  string      `json:"icon,omitempty"`
	Color                 string      `json:"color,omitempty"`
	IsArchived            bool        `json:"is_archived"`
	SortOrder             int         `json:"sort_order"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

type CreateAccountRequest struct {
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	Currency       string      `json:"currency"`
	InitialBalance money.Cents `json:"initial_balance"`
	Icon           string      `json:"icon"`
	Color          string      `json:"color"`
	SortOrder      int         `json:"sort_order"`
}

type UpdateAccountRequest struct {
	Name       *string `json:"name"`
	Type       *string `json:"type"`
	Currency   *string `json:"currency"`
	Icon       *string `json:"icon"`
	Color      *string `json:"color"`
	SortOrder  *int    `json:"sort_order"`
	IsArchived *bool   `json:"is_archived"`
}

type RecalculateDTO struct {
	AccountID      string      `json:"account_id"`
	Balance        money.Cents `json:"balance"`
	BalanceDisplay string      `json:"balance_display"`
}

type CategoryDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Icon       string  `json:"icon,omitempty"`
	Color      string  `json:"color,omitempty"`
	ParentID   *string `json:"parent_id,omitempty"`
	IsSystem   bool    `json:"is_system"`
	IsArchived bool    `json:"is_archived"`
	SortOrder  int     `json:"sort_order"`
}

type CreateCategoryRequest struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Icon      string  `json:"icon"`
	Color     string  `json:"color"`
	ParentID  *string `json:"parent_id"`
	SortOrder int     `json:"sort_order"`
}

type UpdateCategoryRequest struct {
	Name       *string `json:"name"`
	Icon       *string `json:"icon"`
	Color      *string `json:"color"`
	ParentID   *string `json:"parent_id"`
	SortOrder  *int    `json:"sort_order"`
	IsArchived *bool   `json:"is_archived"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:                    a.ID,
		Name:                  a.Name,
		Type:                  string(a.Type),
		Currency:              a.Currency,
		Balance:               a.Balance,
		BalanceDisplay:        money.Format(a.Balance, a.Currency),
		InitialBalance:        a.InitialBalance,
		InitialBalanceDisplay: money.Format(a.InitialBalance, a.Currency),
		Icon:                  a.Icon,
		Color:                 a.Color,
		IsArchived:            a.IsArchived,
		SortOrder:             a.SortOrder,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

func toCategoryDTO(c ledger.Category) CategoryDTO {
	return CategoryDTO{
		ID:         c.ID,
		Name:       c.Name,
		Type:       string(c.Type),
		Icon:       c.Icon,
		Color:      c.Color,
		ParentID:   c.ParentID,
		IsSystem:   c.IsSystem,
		IsArchived: c.IsArchived,
		SortOrder:  c.SortOrder,
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Amount        money.Cents `json:"amount"`
	AmountDisplay string      `json:"amount_display"`
	CategoryID    string      `json:"category_id"`
	AccountID     string      `json:"account_id"`
	ToAccountID   *string     `json:"to_account_id,omitempty"`
	Note          string      `json:"note,omitempty"`
	Date          time.Time   `json:"date"`
	Tags          []string    `json:"tags"`
	Attachments   []string    `json:"attachments"`
	RecurringID   *string     `json:"recurring_id,omitempty"`
	IsVoid        bool        `json:"is_void"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type CreateTransactionRequest struct {
	Type          string      `json:"type"`
	Amount        money.Cents `json:"amount"`
	AmountDisplay string      `json:"amount_display"`
	CategoryID    string      `json:"category_id"`
	AccountID     string      `json:"account_id"`
	ToAccountID   *string     `json:"to_account_id"`
	Note          string      `json:"note"`
	Date          string      `json:"date"`
	Tags          []string    `json:"tags"`
	Attachments   []string    `json:"attachments"`
}

type UpdateTransactionRequest struct {
	Type          *string      `json:"type"`
	Amount        *money.Cents `json:"amount"`
	AmountDisplay *string      `json:"amount_display"`
	CategoryID    *string      `json:"category_id"`
	AccountID     *string      `json:"account_id"`
	ToAccountID   *string      `json:"to_account_id"`
	Note          *string      `json:"note"`
	Date          *string      `json:"date"`
	Tags          *[]string    `json:"tags"`
	Attachments   *[]string    `json:"attachments"`
}

func (h *Handler) toTransactionDTO(t ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		AmountDisplay: money.Format(t.Amount, h.Currency),
		CategoryID:    t.CategoryID,
		AccountID:     t.AccountID,
		ToAccountID:   t.ToAccountID,
		Note:          t.Note,
		Date:          t.Date,
		Tags:          nonNil(t.Tags),
		Attachments:   nonNil(t.Attachments),
		RecurringID:   t.RecurringID,
		IsVoid:        t.IsVoid,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (req CreateTransactionRequest) toInput() (ledger.CreateTransactionInput, error) {
	amount, err := requestAmount(req.Amount, req.AmountDisplay)
	if err != nil {
		return ledger.CreateTransactionInput{}, err
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return ledger.CreateTransactionInput{}, err
	}
	return ledger.CreateTransactionInput{
		Type:        ledger.TxType(req.Type),
		Amount:      amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		Note:        req.Note,
		Date:        date,
		Tags:        req.Tags,
		Attachments: req.Attachments,
	}, nil
}

func (req UpdateTransactionRequest) toInput() (ledger.UpdateTransactionInput, error) {
	in := ledger.UpdateTransactionInput{
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		Note:        req.Note,
		Tags:        req.Tags,
		Attachments: req.Attachments,
	}
	if req.Type != nil {
		typ := ledger.TxType(*req.Type)
		in.Type = &typ
	}
	if req.Amount == nil && req.AmountDisplay != nil {
		amount, err := requestAmount(0, *req.AmountDisplay)
		if err != nil {
			return in, err
		}
		in.Amount = &amount
	}
	if req.Date != nil {
		date, err := parseOptionalDate("date", *req.Date)
		if err != nil {
			return in, err
		}
		in.Date = date
	}
	return in, nil
}

// =============================================================================
// RECURRING
// =============================================================================

type RecurringDTO struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	Amount         money.Cents `json:"amount"`
	AmountDisplay  string      `json:"amount_display"`
	CategoryID     string      `json:"category_id"`
	AccountID      string      `json:"account_id"`
	ToAccountID    *string     `json:"to_account_id,omitempty"`
	Note           string      `json:"note,omitempty"`
	Tags           []string    `json:"tags"`
	Frequency      string      `json:"frequency"`
	DayOfMonth     *int        `json:"day_of_month,omitempty"`
	DayOfWeek      *int        `json:"day_of_week,omitempty"`
	StartDate      time.Time   `json:"start_date"`
	EndDate        *time.Time  `json:"end_date,omitempty"`
	LastExecutedAt *time.Time  `json:"last_executed_at,omitempty"`
	NextExecuteAt  time.Time   `json:"next_execute_at"`
	IsActive       bool        `json:"is_active"`
}

type CreateRecurringRequest struct {
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	Amount        money.Cents `json:"amount"`
	AmountDisplay string      `json:"amount_display"`
	CategoryID    string      `json:"category_id"`
	AccountID     string      `json:"account_id"`
	ToAccountID   *string     `json:"to_account_id"`
	Note          string      `json:"note"`
	Tags          []string    `json:"tags"`
	Frequency     string      `json:"frequency"`
	DayOfMonth    *int        `json:"day_of_month"`
	DayOfWeek     *int        `json:"day_of_week"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date"`
}

// UpdateRecurringRequest clears day_of_month with 0, day_of_week with -1 and
// end_date with "".
type UpdateRecurringRequest struct {
	Name        *string      `json:"name"`
	Type        *string      `json:"type"`
	Amount      *money.Cents `json:"amount"`
	CategoryID  *string      `json:"category_id"`
	AccountID   *string      `json:"account_id"`
	ToAccountID *string      `json:"to_account_id"`
	Note        *string      `json:"note"`
	Tags        *[]string    `json:"tags"`
	Frequency   *string      `json:"frequency"`
	DayOfMonth  *int         `json:"day_of_month"`
	DayOfWeek   *int         `json:"day_of_week"`
	StartDate   *string      `json:"start_date"`
	EndDate     *string      `json:"end_date"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

type ExecutionResultDTO struct {
	TemplateID    string  `json:"template_id"`
	TransactionID *string `json:"transaction_id,omitempty"`
	Success       bool    `json:"success"`
	Error         string  `json:"error,omitempty"`
}

type RunnerStatusDTO struct {
	Interval    string               `json:"interval"`
	LastRun     *time.Time           `json:"last_run,omitempty"`
	NextRun     *time.Time           `json:"next_run,omitempty"`
	LastResults []ExecutionResultDTO `json:"last_results"`
}

func (h *Handler) toRecurringDTO(r ledger.RecurringTransaction) RecurringDTO {
	return RecurringDTO{
		ID:             r.ID,
		Name:           r.Name,
		Type:           string(r.Type),
		Amount:         r.Amount,
		AmountDisplay:  money.Format(r.Amount, h.Currency),
		CategoryID:     r.CategoryID,
		AccountID:      r.AccountID,
		ToAccountID:    r.ToAccountID,
		Note:           r.Note,
		Tags:           nonNil(r.Tags),
		Frequency:      string(r.Frequency),
		DayOfMonth:     r.DayOfMonth,
		DayOfWeek:      r.DayOfWeek,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		LastExecutedAt: r.LastExecutedAt,
		NextExecuteAt:  r.NextExecuteAt,
		IsActive:       r.IsActive,
	}
}

func toExecutionResultDTOs(results []recurring.ExecutionResult) []ExecutionResultDTO {
	dtos := make([]ExecutionResultDTO, len(results))
	for i, r := range results {
		dtos[i] = ExecutionResultDTO{
			TemplateID:    r.TemplateID,
			TransactionID: r.TransactionID,
			Success:       r.Success,
			Error:         r.Error,
		}
	}
	return dtos
}

func (req CreateRecurringRequest) toInput() (recurring.TemplateInput, error) {
	amount, err := requestAmount(req.Amount, req.AmountDisplay)
	if err != nil {
		return recurring.TemplateInput{}, err
	}
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		return recurring.TemplateInput{}, err
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		return recurring.TemplateInput{}, err
	}
	return recurring.TemplateInput{
		Name:        req.Name,
		Type:        ledger.TxType(req.Type),
		Amount:      amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		Note:        req.Note,
		Tags:        req.Tags,
		Frequency:   ledger.Frequency(req.Frequency),
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   req.DayOfWeek,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func (req UpdateRecurringRequest) toPatch() (recurring.TemplatePatch, error) {
	p := recurring.TemplatePatch{
		Name:        req.Name,
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		Note:        req.Note,
		Tags:        req.Tags,
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   req.DayOfWeek,
	}
	if req.Type != nil {
		typ := ledger.TxType(*req.Type)
		p.Type = &typ
	}
	if req.Frequency != nil {
		f := ledger.Frequency(*req.Frequency)
		p.Frequency = &f
	}
	if req.StartDate != nil {
		start, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &start
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			p.ClearEndDate = true
		} else {
			end, err := parseDate("end_date", *req.EndDate)
			if err != nil {
				return p, err
			}
			p.EndDate = &end
		}
	}
	return p, nil
}

// =============================================================================
// BUDGETS & STATS
// =============================================================================

type BudgetDTO struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	CategoryID     *string     `json:"category_id,omitempty"`
	AccountID      *string     `json:"account_id,omitempty"`
	Amount         money.Cents `json:"amount"`
	AmountDisplay  string      `json:"amount_display"`
	Period         string      `json:"period"`
	StartDate      time.Time   `json:"start_date"`
	EndDate        *time.Time  `json:"end_date,omitempty"`
	AlertThreshold int         `json:"alert_threshold"`
	IsActive       bool        `json:"is_active"`
}

type CreateBudgetRequest struct {
	Name           string      `json:"name"`
	CategoryID     *string     `json:"category_id"`
	AccountID      *string     `json:"account_id"`
	Amount         money.Cents `json:"amount"`
	AmountDisplay  string      `json:"amount_display"`
	Period         string      `json:"period"`
	StartDate      string      `json:"start_date"`
	EndDate        string      `json:"end_date"`
	AlertThreshold int         `json:"alert_threshold"`
}

type BudgetProgressDTO struct {
	Budget           BudgetDTO   `json:"budget"`
	PeriodLabel      string      `json:"period_label"`
	PeriodStart      time.Time   `json:"period_start"`
	PeriodEnd        time.Time   `json:"period_end"`
	Spent            money.Cents `json:"spent"`
	SpentDisplay     string      `json:"spent_display"`
	Remaining        money.Cents `json:"remaining"`
	RemainingDisplay string      `json:"remaining_display"`
	Percentage       float64     `json:"percentage"`
	Alert            bool        `json:"alert"`
}

type SummaryDTO struct {
	From           time.Time   `json:"from"`
	To             time.Time   `json:"to"`
	Income         money.Cents `json:"income"`
	Expense        money.Cents `json:"expense"`
	Net            money.Cents `json:"net"`
	NetDisplay     string      `json:"net_display"`
	Count          int         `json:"count"`
	IncomeDisplay  string      `json:"income_display"`
	ExpenseDisplay string      `json:"expense_display"`
}

type TrendPointDTO struct {
	Label   string      `json:"label"`
	Start   time.Time   `json:"start"`
	End     time.Time   `json:"end"`
	Income  money.Cents `json:"income"`
	Expense money.Cents `json:"expense"`
	Net     money.Cents `json:"net"`
}

type CategoryShareDTO struct {
	CategoryID string      `json:"category_id"`
	Name       string      `json:"name"`
	Total      money.Cents `json:"total"`
	Count      int         `json:"count"`
	Percentage float64     `json:"percentage"`
}

type BreakdownDTO struct {
	Type   string             `json:"type"`
	Total  money.Cents        `json:"total"`
	Shares []CategoryShareDTO `json:"shares"`
}

func (h *Handler) toBudgetDTO(b ledger.Budget) BudgetDTO {
	return BudgetDTO{
		ID:             b.ID,
		Name:           b.Name,
		CategoryID:     b.CategoryID,
		AccountID:      b.AccountID,
		Amount:         b.Amount,
		AmountDisplay:  money.Format(b.Amount, h.Currency),
		Period:         string(b.Period),
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		AlertThreshold: b.AlertThreshold,
		IsActive:       b.IsActive,
	}
}

func (h *Handler) toBudgetProgressDTO(p stats.BudgetProgress) BudgetProgressDTO {
	return BudgetProgressDTO{
		Budget:           h.toBudgetDTO(p.Budget),
		PeriodLabel:      p.Window.Label,
		PeriodStart:      p.Window.Start,
		PeriodEnd:        p.Window.End,
		Spent:            p.Spent,
		SpentDisplay:     money.Format(p.Spent, h.Currency),
		Remaining:        p.Remaining,
		RemainingDisplay: money.Format(p.Remaining, h.Currency),
		Percentage:       p.Percentage,
		Alert:            p.Alert,
	}
}

func (req CreateBudgetRequest) toInput() (ledger.CreateBudgetInput, error) {
	amount, err := requestAmount(req.Amount, req.AmountDisplay)
	if err != nil {
		return ledger.CreateBudgetInput{}, err
	}
	in := ledger.CreateBudgetInput{
		Name:           req.Name,
		CategoryID:     req.CategoryID,
		AccountID:      req.AccountID,
		Amount:         amount,
		Period:         ledger.BudgetPeriod(req.Period),
		AlertThreshold: req.AlertThreshold,
	}
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		return in, err
	}
	if start != nil {
		in.StartDate = *start
	}
	if in.EndDate, err = parseOptionalDate("end_date", req.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// requestAmount prefers explicit minor units and falls back to a display string.
func requestAmount(cents money.Cents, display string) (money.Cents, error) {
	if cents != 0 || display == "" {
		return cents, nil
	}
	amount, err := money.ParseDisplay(display)
	if err != nil {
		return 0, &ledger.ValidationError{Field: "amount_display", Message: err.Error()}
	}
	return amount, nil
}

func parseDate(field, s string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &ledger.ValidationError{Field: field, Message: fmt.Sprintf("invalid date %q", s)}
	}
	return t, nil
}

func parseOptionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
