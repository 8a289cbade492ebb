// Package account manages marketplace accounts: registration, balances and
// the settlement side effects applied when an auction closes sold.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auction-house/internal/event"
	"github.com/jensholdgaard/auction-house/internal/ids"
	"github.com/jensholdgaard/auction-house/internal/store"
)

// Manager handles account operations. It implements the auction core's
// settlement interface.
type Manager struct {
	accounts store.AccountRepository
	events   event.Store
	ids      ids.Generator
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewManager returns a new account Manager.
func NewManager(accounts store.AccountRepository, events event.Store, gen ids.Generator, logger *slog.Logger, tp trace.TracerProvider) *Manager {
	return &Manager{
		accounts: accounts,
		events:   events,
		ids:      gen,
		logger:   logger,
		tracer:   tp.Tracer("github.com/jensholdgaard/auction-house/internal/account"),
	}
}

// Register creates a new account with the given opening balance. Usernames
// are unique across the marketplace.
func (m *Manager) Register(ctx context.Context, username, email string, openingBalance float64) (*store.Account, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Register",
		trace.WithAttributes(attribute.String("username", username)),
	)
	defer span.End()

	a := &store.Account{
		ID:       m.ids.NewID(),
		Username: username,
		Email:    email,
		Balance:  openingBalance,
	}
	if err := m.accounts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	data, _ := json.Marshal(event.AccountRegisteredData{
		Username:       username,
		Email:          email,
		OpeningBalance: openingBalance,
	})
	evt := event.Event{
		AggregateID: a.ID,
		Type:        event.AccountRegistered,
		Data:        data,
		Version:     1,
	}
	if err := m.events.Append(ctx, evt); err != nil {
		m.logger.ErrorContext(ctx, "failed to append account registered event", slog.Any("error", err))
	}

	m.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", a.ID),
		slog.String("username", username),
	)
	return a, nil
}

// Get returns an account by id.
func (m *Manager) Get(ctx context.Context, id string) (*store.Account, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Get")
	defer span.End()

	return m.accounts.GetByID(ctx, id)
}

// GetByUsername returns an account by username. The interactive layer uses
// it to resolve a login name to the identity passed on every core call.
func (m *Manager) GetByUsername(ctx context.Context, username string) (*store.Account, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.GetByUsername")
	defer span.End()

	return m.accounts.GetByUsername(ctx, username)
}

// List returns all accounts.
func (m *Manager) List(ctx context.Context) ([]store.Account, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.List")
	defer span.End()

	return m.accounts.List(ctx)
}

// Credit adds funds to an account and records a balance event.
func (m *Manager) Credit(ctx context.Context, accountID string, amount float64, reason string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Credit",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.Float64("amount", amount),
		),
	)
	defer span.End()

	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %.2f", amount)
	}
	if err := m.accounts.Credit(ctx, accountID, amount); err != nil {
		return fmt.Errorf("crediting account: %w", err)
	}

	m.appendBalanceEvent(ctx, event.BalanceCredited, accountID, amount, reason)

	m.logger.InfoContext(ctx, "balance credited",
		slog.String("account_id", accountID),
		slog.Float64("amount", amount),
		slog.String("reason", reason),
	)
	return nil
}

// Debit removes funds from an account and records a balance event. It fails
// with store.ErrInsufficientFunds rather than driving the balance negative.
func (m *Manager) Debit(ctx context.Context, accountID string, amount float64, reason string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Debit",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.Float64("amount", amount),
		),
	)
	defer span.End()

	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %.2f", amount)
	}
	if err := m.accounts.Debit(ctx, accountID, amount); err != nil {
		return fmt.Errorf("debiting account: %w", err)
	}

	m.appendBalanceEvent(ctx, event.BalanceDebited, accountID, amount, reason)

	m.logger.InfoContext(ctx, "balance debited",
		slog.String("account_id", accountID),
		slog.Float64("amount", amount),
		slog.String("reason", reason),
	)
	return nil
}

// RecordOwnership marks an item as owned by the account.
func (m *Manager) RecordOwnership(ctx context.Context, accountID, itemID string) error {
	return m.accounts.AddItem(ctx, accountID, itemID, store.ItemOwned)
}

// RecordSale marks an item as sold by the account.
func (m *Manager) RecordSale(ctx context.Context, accountID, itemID string) error {
	return m.accounts.AddItem(ctx, accountID, itemID, store.ItemSold)
}

// Profile summarizes an account for display.
type Profile struct {
	Account    store.Account
	BidsPlaced int
	ItemsOwned int
	ItemsSold  int
}

// GetProfile assembles the display profile for an account.
func (m *Manager) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.GetProfile",
		trace.WithAttributes(attribute.String("account.id", accountID)),
	)
	defer span.End()

	a, err := m.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	p := &Profile{Account: *a}
	for _, c := range []struct {
		kind store.ItemKind
		dst  *int
	}{
		{store.ItemBid, &p.BidsPlaced},
		{store.ItemOwned, &p.ItemsOwned},
		{store.ItemSold, &p.ItemsSold},
	} {
		items, err := m.accounts.Items(ctx, accountID, c.kind)
		if err != nil {
			return nil, fmt.Errorf("listing %s items: %w", c.kind, err)
		}
		*c.dst = len(items)
	}
	return p, nil
}

func (m *Manager) appendBalanceEvent(ctx context.Context, t event.Type, accountID string, amount float64, reason string) {
	data, _ := json.Marshal(event.BalanceChangeData{
		AccountID: accountID,
		Amount:    amount,
		Reason:    reason,
	})
	evt := event.Event{
		AggregateID: accountID,
		Type:        t,
		Data:        data,
		Version:     0,
	}
	if err := m.events.Append(ctx, evt); err != nil {
		m.logger.ErrorContext(ctx, "failed to append balance event", slog.Any("error", err))
	}
}
