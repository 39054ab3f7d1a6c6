/*
handlers.go - HTTP API handlers for the ledger

PURPOSE:

	Exposes the ledger services via a JSON API. Handles HTTP request/response
	and JSON serialization and delegates everything else to the services.

ENDPOINTS:

	Accounts:
	  GET    /api/accounts                      List (?include_archived=true)
	  POST   /api/accounts                      Create
	  GET    /api/accounts/{id}                 Get
	  PUT    /api/accounts/{id}                 Patch
	  DELETE /api/accounts/{id}                 Delete (unused accounts only)
	  POST   /api/accounts/{id}/recalculate     Rebuild balance from history

	Categories:
	  GET    /api/categories                    List (?type=expense)
	  POST   /api/categories                    Create
	  GET    /api/categories/{id}               Get
	  PUT    /api/categories/{id}               Patch
	  DELETE /api/categories/{id}               Delete

	Transactions:
	  GET    /api/transactions                  List with filters
	  POST   /api/transactions                  Create
	  GET    /api/transactions/{id}             Get
	  PUT    /api/transactions/{id}             Patch
	  DELETE /api/transactions/{id}             Delete
	  POST   /api/transactions/{id}/void        Void

	Recurring, budgets and stats: see recurring_handlers.go, reports.go.

ERROR HANDLING:
  - 400: ledger.ValidationError, malformed JSON or query parameters
  - 404: ledger.NotFoundError
  - 409: ledger.StateError
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
	"github.com/warp/pocket-ledger/recurring"
	"github.com/warp/pocket-ledger/stats"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        ledger.Store
	Catalog      *ledger.CatalogService
	Transactions *ledger.TransactionService
	Scheduler    *recurring.Scheduler
	Stats        *stats.Reader
	Runner       *RecurringRunner

	// Currency used to format amounts that are not tied to an account.
	Currency string
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewHandler wires the services around store. The runner is created with no
// interval; callers set RecurringRunner.Interval before Start.
func NewHandler(store ledger.Store, currency string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	txs := ledger.NewTransactionService(store, logger)
	sched := recurring.NewScheduler(store, txs, logger)
	return &Handler{
		Store:        store,
		Catalog:      ledger.NewCatalogService(store, logger),
		Transactions: txs,
		Scheduler:    sched,
		Stats:        stats.NewReader(store),
		Runner:       NewRecurringRunner(sched, 0, logger),
		Currency:     currency,
		Logger:       logger,
		Now:          time.Now,
	}
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"currency": h.Currency,
		"time":     h.Now().Format(time.RFC3339),
	})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns open accounts, or all with ?include_archived=true.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	includeArchived, err := queryBool(r, "include_archived")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	accounts, err := h.Catalog.ListAccounts(r.Context(), includeArchived)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.Catalog.CreateAccount(r.Context(), ledger.CreateAccountInput{
		Name:           req.Name,
		Type:           ledger.AccountType(req.Type),
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
		Icon:           req.Icon,
		Color:          req.Color,
		SortOrder:      req.SortOrder,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*a))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Catalog.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*a))
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := ledger.UpdateAccountInput{
		Name:      req.Name,
		Currency:  req.Currency,
		Icon:      req.Icon,
		Color:     req.Color,
		SortOrder: req.SortOrder,
	}
	if req.Type != nil {
		typ := ledger.AccountType(*req.Type)
		in.Type = &typ
	}

	a, err := h.Catalog.UpdateAccount(ctx, id, in)
	if err == nil && req.IsArchived != nil {
		a, err = h.Catalog.SetAccountArchived(ctx, id, *req.IsArchived)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*a))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecalculateBalance rebuilds an account balance from its transactions.
// POST /api/accounts/{id}/recalculate
func (h *Handler) RecalculateBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	balance, err := h.Transactions.RecalculateAccountBalance(ctx, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	a, err := h.Catalog.GetAccount(ctx, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecalculateDTO{
		AccountID:      id,
		Balance:        balance,
		BalanceDisplay: money.Format(balance, a.Currency),
	})
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	typ := ledger.TxType(r.URL.Query().Get("type"))
	if typ != "" && !typ.Valid() {
		h.writeDomainError(w, r, &ledger.ValidationError{Field: "type", Message: fmt.Sprintf("unknown type %q", typ)})
		return
	}
	categories, err := h.Catalog.ListCategories(r.Context(), typ)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.Catalog.CreateCategory(r.Context(), ledger.CreateCategoryInput{
		Name:      req.Name,
		Type:      ledger.TxType(req.Type),
		Icon:      req.Icon,
		Color:     req.Color,
		ParentID:  req.ParentID,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(*c))
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.Catalog.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*c))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req UpdateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.Catalog.UpdateCategory(r.Context(), chi.URLParam(r, "id"), ledger.UpdateCategoryInput{
		Name:       req.Name,
		Icon:       req.Icon,
		Color:      req.Color,
		ParentID:   req.ParentID,
		SortOrder:  req.SortOrder,
		IsArchived: req.IsArchived,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*c))
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns transactions newest first.
// GET /api/transactions?from=&to=&account_id=&category_id=&type=&recurring_id=&include_void=&limit=&offset=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	txs, err := h.Transactions.List(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = h.toTransactionDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	t, err := h.Transactions.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toTransactionDTO(*t))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Transactions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toTransactionDTO(*t))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	t, err := h.Transactions.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toTransactionDTO(*t))
}

// VoidTransaction reverses a transaction's balance effect and keeps the row.
// POST /api/transactions/{id}/void
func (h *Handler) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Transactions.Void(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toTransactionDTO(*t))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Transactions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func transactionFilter(r *http.Request) (ledger.TransactionFilter, error) {
	q := r.URL.Query()
	f := ledger.TransactionFilter{
		AccountID:   q.Get("account_id"),
		CategoryID:  q.Get("category_id"),
		Type:        ledger.TxType(q.Get("type")),
		RecurringID: q.Get("recurring_id"),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, &ledger.ValidationError{Field: "type", Message: fmt.Sprintf("unknown type %q", f.Type)}
	}

	var err error
	if f.From, err = parseOptionalDate("from", q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseOptionalDate("to", q.Get("to")); err != nil {
		return f, err
	}
	if f.IncludeVoid, err = queryBool(r, "include_void"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the ledger error taxonomy onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ledger.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.Logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// decodeJSON decodes the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	return true
}

func queryBool(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, &ledger.ValidationError{Field: key, Message: fmt.Sprintf("invalid boolean %q", s)}
	}
	return v, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, &ledger.ValidationError{Field: key, Message: fmt.Sprintf("invalid non-negative integer %q", s)}
	}
	return v, nil
}
