package store

import (
	"context"
	"errors"
	"time"
)

// Errors returned by repositories.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Account represents a registered marketplace account.
type Account struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Balance   float64   `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ItemKind classifies an item reference on an account.
type ItemKind string

const (
	// ItemBid marks an item the account has bid on.
	ItemBid ItemKind = "bid"
	// ItemOwned marks an item the account won at auction.
	ItemOwned ItemKind = "owned"
	// ItemSold marks an item the account sold at auction.
	ItemSold ItemKind = "sold"
)

// AccountRepository defines account persistence operations. Debit fails with
// ErrInsufficientFunds rather than driving a balance negative.
type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Credit(ctx context.Context, id string, amount float64) error
	Debit(ctx context.Context, id string, amount float64) error
	AddItem(ctx context.Context, accountID, itemID string, kind ItemKind) error
	Items(ctx context.Context, accountID string, kind ItemKind) ([]string, error)
}
