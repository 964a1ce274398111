package accounts

import (
	"context"
	"fmt"

	"github.com/campusledger/campusledger/internal/shared"
)

// Catalog validates and resolves GL account codes. It is the leaf dependency
// of every ledger write path.
type Catalog struct {
	repo Repository
}

// NewCatalog constructs a Catalog.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Resolve fetches an account by code.
func (c *Catalog) Resolve(ctx context.Context, code string) (Account, error) {
	if code == "" {
		return Account{}, shared.Validationf("accounts: code required")
	}
	return c.repo.GetByCode(ctx, code)
}

// ValidateLineAccounts checks that every referenced account exists and is
// active. The same account may appear on multiple lines (split allocations),
// so duplicates are only resolved once. The first offending code is named in
// the returned error.
func (c *Catalog) ValidateLineAccounts(ctx context.Context, codes []string) error {
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		acct, err := c.repo.GetByCode(ctx, code)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.Validationf("accounts: unknown GL account %s", code)
			}
			return err
		}
		if !acct.IsActive {
			return shared.Validationf("accounts: GL account %s is inactive", code)
		}
	}
	return nil
}

// List returns the full chart of accounts.
func (c *Catalog) List(ctx context.Context) ([]Account, error) {
	return c.repo.List(ctx)
}

// Deactivate soft-disables an account. Referenced accounts are never hard
// deleted; history keeps pointing at them.
func (c *Catalog) Deactivate(ctx context.Context, code string) error {
	return c.repo.SetActive(ctx, code, false)
}

// Seed installs or refreshes the configured chart of accounts. Normal
// balance defaults from the account type when unset.
func (c *Catalog) Seed(ctx context.Context, list []Account) error {
	for _, a := range list {
		if a.Code == "" || a.Name == "" {
			return shared.Validationf("accounts: seed entry requires code and name")
		}
		switch a.Type {
		case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		default:
			return shared.Validationf("accounts: seed entry %s has unknown type %q", a.Code, a.Type)
		}
		if a.NormalBalance == "" {
			a.NormalBalance = DefaultNormalBalance(a.Type)
		}
		a.IsActive = true
		if _, err := c.repo.Upsert(ctx, a); err != nil {
			return fmt.Errorf("accounts: seed %s: %w", a.Code, err)
		}
	}
	return nil
}
