package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/store"
)

// AccountRepo implements store.AccountRepository with in-process maps.
type AccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*store.Account
	items    map[string]map[store.ItemKind][]string
	clock    clock.Clock
}

// NewAccountRepo returns an empty AccountRepo.
func NewAccountRepo(clk clock.Clock) *AccountRepo {
	return &AccountRepo{
		accounts: make(map[string]*store.Account),
		items:    make(map[string]map[store.ItemKind][]string),
		clock:    clk,
	}
}

func (r *AccountRepo) Create(_ context.Context, a *store.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return store.ErrUsernameTaken
		}
	}

	now := r.clock.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, id string) (*store.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, store.ErrAccountNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepo) GetByUsername(_ context.Context, username string) (*store.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("account %q: %w", username, store.ErrAccountNotFound)
}

func (r *AccountRepo) List(_ context.Context) ([]store.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]store.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *AccountRepo) Credit(_ context.Context, id string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, store.ErrAccountNotFound)
	}
	a.Balance += amount
	a.UpdatedAt = r.clock.Now()
	return nil
}

func (r *AccountRepo) Debit(_ context.Context, id string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, store.ErrAccountNotFound)
	}
	if a.Balance < amount {
		return store.ErrInsufficientFunds
	}
	a.Balance -= amount
	a.UpdatedAt = r.clock.Now()
	return nil
}

func (r *AccountRepo) AddItem(_ context.Context, accountID, itemID string, kind store.ItemKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, store.ErrAccountNotFound)
	}
	if r.items[accountID] == nil {
		r.items[accountID] = make(map[store.ItemKind][]string)
	}
	r.items[accountID][kind] = append(r.items[accountID][kind], itemID)
	return nil
}

func (r *AccountRepo) Items(_ context.Context, accountID string, kind store.ItemKind) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.accounts[accountID]; !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, store.ErrAccountNotFound)
	}
	items := r.items[accountID][kind]
	out := make([]string, len(items))
	copy(out, items)
	return out, nil
}
