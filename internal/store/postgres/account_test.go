package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/store"
	"github.com/jensholdgaard/auction-house/internal/store/postgres"
)

func testClock() *clock.Mock {
	return clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestAccountRepo_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewAccountRepo(db, testClock())
	ctx := context.Background()

	a := &store.Account{ID: "ID1000", Username: "alice", Email: "alice@example.com", Balance: 1000}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "ID1000")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Username != "alice" || got.Balance != 1000 {
		t.Errorf("got %+v, want username=alice balance=1000", got)
	}

	byName, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if byName.ID != "ID1000" {
		t.Errorf("GetByUsername id = %q, want %q", byName.ID, "ID1000")
	}
}

func TestAccountRepo_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewAccountRepo(db, testClock())
	ctx := context.Background()

	if err := repo.Create(ctx, &store.Account{ID: "ID1000", Username: "bob", Email: "b@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &store.Account{ID: "ID1001", Username: "bob", Email: "b2@example.com"})
	if !errors.Is(err, store.ErrUsernameTaken) {
		t.Errorf("Create duplicate username error = %v, want ErrUsernameTaken", err)
	}
}

func TestAccountRepo_GetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewAccountRepo(db, testClock())

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("GetByID error = %v, want ErrAccountNotFound", err)
	}
}

func TestAccountRepo_CreditDebit(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewAccountRepo(db, testClock())
	ctx := context.Background()

	if err := repo.Create(ctx, &store.Account{ID: "ID1000", Username: "carol", Email: "c@example.com", Balance: 100}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Credit(ctx, "ID1000", 50); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := repo.Debit(ctx, "ID1000", 120); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	got, err := repo.GetByID(ctx, "ID1000")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Balance != 30 {
		t.Errorf("balance = %.2f, want 30", got.Balance)
	}

	// Draining past the balance must fail without changing it.
	if err := repo.Debit(ctx, "ID1000", 31); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Errorf("Debit overdraw error = %v, want ErrInsufficientFunds", err)
	}
	got, _ = repo.GetByID(ctx, "ID1000")
	if got.Balance != 30 {
		t.Errorf("balance after failed debit = %.2f, want 30", got.Balance)
	}
}

func TestAccountRepo_Items(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewAccountRepo(db, testClock())
	ctx := context.Background()

	if err := repo.Create(ctx, &store.Account{ID: "ID1000", Username: "dave", Email: "d@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.AddItem(ctx, "ID1000", "ID2000", store.ItemBid); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := repo.AddItem(ctx, "ID1000", "ID2000", store.ItemOwned); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := repo.AddItem(ctx, "ID1000", "ID2001", store.ItemBid); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	bids, err := repo.Items(ctx, "ID1000", store.ItemBid)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(bids) != 2 || bids[0] != "ID2000" || bids[1] != "ID2001" {
		t.Errorf("bid items = %v, want [ID2000 ID2001]", bids)
	}

	owned, err := repo.Items(ctx, "ID1000", store.ItemOwned)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(owned) != 1 {
		t.Errorf("owned items = %v, want one entry", owned)
	}
}
