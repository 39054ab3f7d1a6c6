package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/pocket-ledger/money"
)

// CatalogService manages accounts, categories and budgets: the rows that
// transactions reference. It never touches balances after creation.
type CatalogService struct {
	Store  Store
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

func NewCatalogService(store Store, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{Store: store, Logger: logger, Now: time.Now, NewID: uuid.NewString}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

type CreateAccountInput struct {
	Name           string
	Type           AccountType
	Currency       string
	InitialBalance money.Cents
	Icon           string
	Color          string
	SortOrder      int
}

type UpdateAccountInput struct {
	Name      *string
	Type      *AccountType
	Currency  *string
	Icon      *string
	Color     *string
	SortOrder *int
}

// CreateAccount opens an account whose balance starts at InitialBalance.
func (s *CatalogService) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if in.Type == "" {
		in.Type = AccountOther
	}
	if !in.Type.Valid() {
		return nil, invalid("type", "unknown account type %q", in.Type)
	}
	if in.Currency == "" {
		in.Currency = money.DefaultCurrency
	}

	now := s.Now()
	a := Account{
		ID:             s.NewID(),
		Name:           strings.TrimSpace(in.Name),
		Type:           in.Type,
		Currency:       strings.ToUpper(in.Currency),
		Balance:        in.InitialBalance,
		InitialBalance: in.InitialBalance,
		Icon:           in.Icon,
		Color:          in.Color,
		SortOrder:      in.SortOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.InsertAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	s.Logger.Info("account created", "id", a.ID, "name", a.Name, "initial_balance", a.InitialBalance)
	return &a, nil
}

func (s *CatalogService) GetAccount(ctx context.Context, id string) (*Account, error) {
	a, err := s.Store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Kind: "account", ID: id}
	}
	return a, nil
}

func (s *CatalogService) ListAccounts(ctx context.Context, includeArchived bool) ([]Account, error) {
	return s.Store.ListAccounts(ctx, includeArchived)
}

// UpdateAccount edits descriptive fields. Balances are out of reach here.
func (s *CatalogService) UpdateAccount(ctx context.Context, id string, in UpdateAccountInput) (*Account, error) {
	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalid("name", "is required")
		}
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, invalid("type", "unknown account type %q", *in.Type)
		}
		a.Type = *in.Type
	}
	if in.Currency != nil {
		a.Currency = strings.ToUpper(*in.Currency)
	}
	if in.Icon != nil {
		a.Icon = *in.Icon
	}
	if in.Color != nil {
		a.Color = *in.Color
	}
	if in.SortOrder != nil {
		a.SortOrder = *in.SortOrder
	}
	a.UpdatedAt = s.Now()
	if err := s.Store.UpdateAccount(ctx, *a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetAccountArchived archives or restores an account.
func (s *CatalogService) SetAccountArchived(ctx context.Context, id string, archived bool) (*Account, error) {
	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	a.IsArchived = archived
	a.UpdatedAt = s.Now()
	if err := s.Store.UpdateAccount(ctx, *a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount removes an account nothing references. Accounts with
// history must be archived instead.
func (s *CatalogService) DeleteAccount(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(q Queries) error {
		n, err := q.CountAccountReferences(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &StateError{ID: id, Message: fmt.Sprintf("account %s has %d transactions or templates; archive it instead", id, n)}
		}
		return q.DeleteAccount(ctx, id)
	})
}

// =============================================================================
// CATEGORIES
// =============================================================================

type CreateCategoryInput struct {
	Name      string
	Type      TxType
	Icon      string
	Color     string
	ParentID  *string
	SortOrder int
}

// UpdateCategoryInput cannot change Type. ParentID pointing at "" detaches.
type UpdateCategoryInput struct {
	Name       *string
	Icon       *string
	Color      *string
	ParentID   *string
	SortOrder  *int
	IsArchived *bool
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if !in.Type.Valid() {
		return nil, invalid("type", "unknown category type %q", in.Type)
	}
	parentID := nonEmpty(in.ParentID)
	if err := s.checkParent(ctx, "", in.Type, parentID); err != nil {
		return nil, err
	}

	now := s.Now()
	c := Category{
		ID:        s.NewID(),
		Name:      strings.TrimSpace(in.Name),
		Type:      in.Type,
		Icon:      in.Icon,
		Color:     in.Color,
		ParentID:  parentID,
		SortOrder: in.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.InsertCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (*Category, error) {
	c, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Kind: "category", ID: id}
	}
	return c, nil
}

// ListCategories returns categories of typ, or all when typ is empty.
func (s *CatalogService) ListCategories(ctx context.Context, typ TxType) ([]Category, error) {
	return s.Store.ListCategories(ctx, typ)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in UpdateCategoryInput) (*Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalid("name", "is required")
		}
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.ParentID != nil {
		if c.IsSystem {
			return nil, &StateError{ID: id, Message: fmt.Sprintf("system category %s cannot be reparented", id)}
		}
		parentID := nonEmpty(in.ParentID)
		if err := s.checkParent(ctx, id, c.Type, parentID); err != nil {
			return nil, err
		}
		c.ParentID = parentID
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.IsArchived != nil {
		c.IsArchived = *in.IsArchived
	}
	c.UpdatedAt = s.Now()
	if err := s.Store.UpdateCategory(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes an unused, non-system category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(q Queries) error {
		c, err := q.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return &NotFoundError{Kind: "category", ID: id}
		}
		if c.IsSystem {
			return &StateError{ID: id, Message: fmt.Sprintf("system category %s cannot be deleted", id)}
		}
		n, err := q.CountCategoryReferences(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &StateError{ID: id, Message: fmt.Sprintf("category %s is referenced %d times; archive it instead", id, n)}
		}
		return q.DeleteCategory(ctx, id)
	})
}

func (s *CatalogService) checkParent(ctx context.Context, id string, typ TxType, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return invalid("parentId", "a category cannot be its own parent")
	}
	p, err := s.Store.GetCategory(ctx, *parentID)
	if err != nil {
		return err
	}
	if p == nil {
		return &NotFoundError{Kind: "category", ID: *parentID}
	}
	if p.Type != typ {
		return invalid("parentId", "parent %s is %s, category is %s", p.ID, p.Type, typ)
	}
	return nil
}

// =============================================================================
// BUDGETS
// =============================================================================

type CreateBudgetInput struct {
	Name           string
	CategoryID     *string
	AccountID      *string
	Amount         money.Cents
	Period         BudgetPeriod
	StartDate      time.Time
	EndDate        *time.Time
	AlertThreshold int
}

func (s *CatalogService) CreateBudget(ctx context.Context, in CreateBudgetInput) (*Budget, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if in.Amount <= 0 {
		return nil, invalid("amount", "must be positive, got %d", in.Amount)
	}
	if in.Period == "" {
		in.Period = BudgetMonthly
	}
	if !in.Period.Valid() {
		return nil, invalid("period", "unknown budget period %q", in.Period)
	}
	if in.AlertThreshold == 0 {
		in.AlertThreshold = 80
	}
	if in.AlertThreshold < 0 || in.AlertThreshold > 100 {
		return nil, invalid("alertThreshold", "must be between 0 and 100")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, invalid("endDate", "must not precede startDate")
	}

	now := s.Now()
	if in.StartDate.IsZero() {
		in.StartDate = now
	}
	b := Budget{
		ID:             s.NewID(),
		Name:           strings.TrimSpace(in.Name),
		CategoryID:     nonEmpty(in.CategoryID),
		AccountID:      nonEmpty(in.AccountID),
		Amount:         in.Amount,
		Period:         in.Period,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		AlertThreshold: in.AlertThreshold,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.InsertBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("insert budget: %w", err)
	}
	return &b, nil
}

func (s *CatalogService) ListBudgets(ctx context.Context, activeOnly bool) ([]Budget, error) {
	return s.Store.ListBudgets(ctx, activeOnly)
}

// SetBudgetActive toggles whether a budget is tracked.
func (s *CatalogService) SetBudgetActive(ctx context.Context, id string, active bool) (*Budget, error) {
	b, err := s.Store.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &NotFoundError{Kind: "budget", ID: id}
	}
	b.IsActive = active
	b.UpdatedAt = s.Now()
	if err := s.Store.UpdateBudget(ctx, *b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *CatalogService) DeleteBudget(ctx context.Context, id string) error {
	return s.Store.DeleteBudget(ctx, id)
}
