package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/pocket-ledger/calendar"
	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
)

// =============================================================================
// BUDGET HANDLERS
// =============================================================================
//
//   GET    /api/budgets                   List (?active=true)
//   POST   /api/budgets                   Create
//   GET    /api/budgets/progress          Progress of every active budget (?date=)
//   DELETE /api/budgets/{id}              Delete
//   POST   /api/budgets/{id}/active       {"active": bool}
//   GET    /api/budgets/{id}/progress     Progress for the period containing ?date=

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	budgets, err := h.Catalog.ListBudgets(r.Context(), activeOnly)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = h.toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	b, err := h.Catalog.CreateBudget(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toBudgetDTO(*b))
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteBudget(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetBudgetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.Catalog.SetBudgetActive(r.Context(), chi.URLParam(r, "id"), req.Active)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toBudgetDTO(*b))
}

func (h *Handler) BudgetProgress(w http.ResponseWriter, r *http.Request) {
	day, err := h.queryDay(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	p, err := h.Stats.BudgetProgress(r.Context(), chi.URLParam(r, "id"), day)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toBudgetProgressDTO(*p))
}

func (h *Handler) AllBudgetProgress(w http.ResponseWriter, r *http.Request) {
	day, err := h.queryDay(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	progress, err := h.Stats.ActiveBudgetProgress(r.Context(), day)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]BudgetProgressDTO, len(progress))
	for i, p := range progress {
		dtos[i] = h.toBudgetProgressDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STATS HANDLERS
// =============================================================================
//
//   GET /api/stats/summary?from=&to=
//   GET /api/stats/trend?from=&to=&granularity=day|week|month|year
//   GET /api/stats/categories?type=expense&from=&to=
//
// from/to default to the current month.

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.queryRange(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	s, err := h.Stats.Summary(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		From:           s.From,
		To:             s.To,
		Income:         s.Income,
		Expense:        s.Expense,
		Net:            s.Net,
		Count:          s.Count,
		IncomeDisplay:  money.Format(s.Income, h.Currency),
		ExpenseDisplay: money.Format(s.Expense, h.Currency),
		NetDisplay:     money.Format(s.Net, h.Currency),
	})
}

func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.queryRange(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	g := calendar.Month
	if s := r.URL.Query().Get("granularity"); s != "" {
		if g, err = calendar.ParseGranularity(s); err != nil {
			h.writeDomainError(w, r, &ledger.ValidationError{Field: "granularity", Message: err.Error()})
			return
		}
	}

	points, err := h.Stats.Trend(r.Context(), from, to, g)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = TrendPointDTO{
			Label:   p.Period.Label,
			Start:   p.Period.Start,
			End:     p.Period.End,
			Income:  p.Income,
			Expense: p.Expense,
			Net:     p.Net,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.queryRange(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	typ := ledger.TxExpense
	if s := r.URL.Query().Get("type"); s != "" {
		typ = ledger.TxType(s)
	}

	b, err := h.Stats.CategoryBreakdown(r.Context(), typ, from, to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dto := BreakdownDTO{Type: string(b.Type), Total: b.Total, Shares: make([]CategoryShareDTO, len(b.Shares))}
	for i, s := range b.Shares {
		dto.Shares[i] = CategoryShareDTO{
			CategoryID: s.CategoryID,
			Name:       s.Name,
			Total:      s.Total,
			Count:      s.Count,
			Percentage: s.Percentage,
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// queryRange reads ?from=&to=. A date-only "to" covers that whole day.
func (h *Handler) queryRange(r *http.Request) (time.Time, time.Time, error) {
	now := h.Now()
	from, to := calendar.StartOfMonth(now), calendar.EndOfMonth(now)
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		t, err := parseDate("from", s)
		if err != nil {
			return from, to, err
		}
		from = t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate("to", s)
		if err != nil {
			return from, to, err
		}
		if len(s) == len(time.DateOnly) {
			t = calendar.EndOfDay(t)
		}
		to = t
	}
	if to.Before(from) {
		return from, to, &ledger.ValidationError{Field: "to", Message: "must not precede from"}
	}
	return from, to, nil
}

func (h *Handler) queryDay(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return h.Now(), nil
	}
	return parseDate("date", s)
}
