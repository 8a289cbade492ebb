package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/store"
)

// AccountRepo implements store.AccountRepository with sqlx.
type AccountRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewAccountRepo returns a new AccountRepo.
func NewAccountRepo(db *sqlx.DB, clk clock.Clock) *AccountRepo {
	return &AccountRepo{db: db, clock: clk}
}

func (r *AccountRepo) Create(ctx context.Context, a *store.Account) error {
	now := r.clock.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, email, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Username, a.Email, a.Balance, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUsernameTaken
		}
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*store.Account, error) {
	var a store.Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM accounts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, store.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting account by id: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*store.Account, error) {
	var a store.Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM accounts WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", username, store.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting account by username: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]store.Account, error) {
	var accounts []store.Account
	err := r.db.SelectContext(ctx, &accounts, `SELECT * FROM accounts ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepo) Credit(ctx context.Context, id string, amount float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = $2 WHERE id = $3`,
		amount, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("crediting account: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, store.ErrAccountNotFound)
	}
	return nil
}

func (r *AccountRepo) Debit(ctx context.Context, id string, amount float64) error {
	// The balance guard lives in the WHERE clause so concurrent debits
	// cannot race a balance negative.
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $1, updated_at = $2
		 WHERE id = $3 AND balance >= $1`,
		amount, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("debiting account: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return store.ErrInsufficientFunds
	}
	return nil
}

func (r *AccountRepo) AddItem(ctx context.Context, accountID, itemID string, kind store.ItemKind) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO account_items (account_id, item_id, kind, created_at)
		 VALUES ($1, $2, $3, $4)`,
		accountID, itemID, kind, r.clock.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording %s item: %w", kind, err)
	}
	return nil
}

func (r *AccountRepo) Items(ctx context.Context, accountID string, kind store.ItemKind) ([]string, error) {
	var items []string
	err := r.db.SelectContext(ctx, &items,
		`SELECT item_id FROM account_items
		 WHERE account_id = $1 AND kind = $2 ORDER BY created_at ASC, id ASC`,
		accountID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s items: %w", kind, err)
	}
	return items, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	var s sqlStater
	if errors.As(err, &s) {
		return s.SQLState() == "23505"
	}
	return false
}
