package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/event"
	"github.com/jensholdgaard/auction-house/internal/ids"
	"github.com/jensholdgaard/auction-house/internal/store"
)

// Settler applies the settlement side effects of a sold auction. It is
// implemented by the account layer; the auction core only decides when the
// transfer happens, never how balances are stored.
type Settler interface {
	Debit(ctx context.Context, accountID string, amount float64, reason string) error
	Credit(ctx context.Context, accountID string, amount float64, reason string) error
	RecordOwnership(ctx context.Context, accountID, itemID string) error
	RecordSale(ctx context.Context, accountID, itemID string) error
}

// Manager is the keyed registry of auctions and the composition point for
// admission pre-checks and settlement. Auctions stay registered for the
// process lifetime, including after close, so history remains queryable.
type Manager struct {
	mu       sync.RWMutex
	auctions map[string]*Auction

	events   event.Store
	accounts store.AccountRepository
	settler  Settler
	ids      ids.Generator
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    clock.Clock
}

// NewManager creates a new auction Manager.
func NewManager(events event.Store, accounts store.AccountRepository, settler Settler, gen ids.Generator, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		auctions: make(map[string]*Auction),
		events:   events,
		accounts: accounts,
		settler:  settler,
		ids:      gen,
		logger:   logger,
		tracer:   tp.Tracer("github.com/jensholdgaard/auction-house/internal/auction"),
		clock:    clk,
	}
}

// CreateAuction opens a new timed auction for sellerID and registers it.
func (m *Manager) CreateAuction(ctx context.Context, sellerID, name, description string, startingPrice, reservePrice float64, duration time.Duration) (*Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateAuction",
		trace.WithAttributes(
			attribute.String("item.name", name),
			attribute.String("seller.id", sellerID),
		),
	)
	defer span.End()

	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", duration)
	}
	if startingPrice <= 0 {
		return nil, fmt.Errorf("starting price must be positive, got %.2f", startingPrice)
	}
	if reservePrice < 0 {
		return nil, fmt.Errorf("reserve price must not be negative, got %.2f", reservePrice)
	}
	if _, err := m.accounts.GetByID(ctx, sellerID); err != nil {
		return nil, fmt.Errorf("looking up seller: %w", err)
	}

	id := m.ids.NewID()
	item := NewItem(id, name, description, startingPrice, reservePrice, sellerID, m.clock.Now(), duration)
	a := New(item, m.clock)

	if err := m.events.Append(ctx, a.PendingEvents()...); err != nil {
		return nil, fmt.Errorf("persisting auction created events: %w", err)
	}

	m.mu.Lock()
	if _, exists := m.auctions[id]; exists {
		m.mu.Unlock()
		// The id source guarantees uniqueness; a collision means the
		// generator contract is broken, not a normal caller mistake.
		m.logger.ErrorContext(ctx, "id collision while registering auction",
			slog.String("item_id", id),
		)
		return nil, fmt.Errorf("registering auction %s: %w", id, ErrDuplicateID)
	}
	m.auctions[id] = a
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "auction created",
		slog.String("item_id", id),
		slog.String("item", name),
		slog.String("seller_id", sellerID),
		slog.Float64("starting_price", startingPrice),
	)
	return a, nil
}

// PlaceBid verifies the bidder's balance covers the amount, then submits it
// to the auction. The balance check happens here, before admission; the
// Auction itself trusts it has been gated.
func (m *Manager) PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) error {
	ctx, span := m.tracer.Start(ctx, "Manager.PlaceBid",
		trace.WithAttributes(
			attribute.String("item.id", itemID),
			attribute.String("bidder.id", bidderID),
			attribute.Float64("bid.amount", amount),
		),
	)
	defer span.End()

	a, err := m.Get(ctx, itemID)
	if err != nil {
		return err
	}

	acct, err := m.accounts.GetByID(ctx, bidderID)
	if err != nil {
		return fmt.Errorf("looking up bidder: %w", err)
	}
	if acct.Balance < amount {
		return ErrInsufficientFunds
	}

	if err := a.PlaceBid(ctx, bidderID, amount); err != nil {
		return err
	}

	if err := m.events.Append(ctx, a.PendingEvents()...); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist bid event", slog.Any("error", err))
	}
	if err := m.accounts.AddItem(ctx, bidderID, itemID, store.ItemBid); err != nil {
		m.logger.ErrorContext(ctx, "failed to record bid history", slog.Any("error", err))
	}

	return nil
}

// EndAuction closes an auction and, when the item sold, applies settlement
// through the Settler: debit the winner, transfer ownership, credit the
// seller, record the sale. Ownership is never transferred unless the debit
// succeeded; any settlement failure is returned and the outcome is not
// reported as sold.
func (m *Manager) EndAuction(ctx context.Context, itemID string) (Outcome, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.EndAuction",
		trace.WithAttributes(attribute.String("item.id", itemID)),
	)
	defer span.End()

	a, err := m.Get(ctx, itemID)
	if err != nil {
		return Outcome{}, err
	}

	out, err := a.End(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if appendErr := m.events.Append(ctx, a.PendingEvents()...); appendErr != nil {
		m.logger.ErrorContext(ctx, "failed to persist close event", slog.Any("error", appendErr))
	}

	if out.Status == StatusSold {
		if err := m.settle(ctx, itemID, out); err != nil {
			m.logger.ErrorContext(ctx, "settlement failed",
				slog.String("item_id", itemID),
				slog.String("winner_id", out.WinnerID),
				slog.Float64("price", out.Price),
				slog.Any("error", err),
			)
			return Outcome{}, fmt.Errorf("settling auction %s: %w", itemID, err)
		}
	}

	m.logger.InfoContext(ctx, "auction ended",
		slog.String("item_id", itemID),
		slog.String("outcome", string(out.Status)),
	)
	return out, nil
}

func (m *Manager) settle(ctx context.Context, itemID string, out Outcome) error {
	sellerID := func() string {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.auctions[itemID].Item().SellerID
	}()

	if err := m.settler.Debit(ctx, out.WinnerID, out.Price, "auction won: "+itemID); err != nil {
		return fmt.Errorf("debiting winner: %w", err)
	}
	if err := m.settler.RecordOwnership(ctx, out.WinnerID, itemID); err != nil {
		return fmt.Errorf("transferring ownership: %w", err)
	}
	if err := m.settler.Credit(ctx, sellerID, out.Price, "auction sold: "+itemID); err != nil {
		return fmt.Errorf("crediting seller: %w", err)
	}
	if err := m.settler.RecordSale(ctx, sellerID, itemID); err != nil {
		return fmt.Errorf("recording sale: %w", err)
	}
	return nil
}

// Get returns the auction registered under itemID.
func (m *Manager) Get(ctx context.Context, itemID string) (*Auction, error) {
	m.mu.RLock()
	a, ok := m.auctions[itemID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", itemID, ErrNotFound)
	}
	return a, nil
}

// Active returns the auctions that currently admit bids. The filter is
// evaluated live against the clock, not cached.
func (m *Manager) Active(ctx context.Context) []*Auction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*Auction
	for _, a := range m.auctions {
		if a.IsActive() {
			active = append(active, a)
		}
	}
	return active
}

// ReplayAuction reconstructs an auction from stored events.
func (m *Manager) ReplayAuction(ctx context.Context, itemID string) (*Auction, error) {
	events, err := m.events.Load(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	return Replay(events, m.clock)
}

// RecoverAuctions replays every auction from the event store into the
// in-memory registry. Used at startup so that auction history and any
// still-open auctions survive a restart.
func (m *Manager) RecoverAuctions(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.RecoverAuctions")
	defer span.End()

	created, err := m.events.LoadByType(ctx, event.AuctionCreated)
	if err != nil {
		return 0, fmt.Errorf("loading auction created events: %w", err)
	}

	seen := make(map[string]struct{}, len(created))
	var idList []string
	for _, e := range created {
		if _, ok := seen[e.AggregateID]; !ok {
			seen[e.AggregateID] = struct{}{}
			idList = append(idList, e.AggregateID)
		}
	}

	recovered := 0
	for _, id := range idList {
		a, replayErr := m.ReplayAuction(ctx, id)
		if replayErr != nil {
			m.logger.WarnContext(ctx, "failed to replay auction during recovery",
				slog.String("item_id", id),
				slog.Any("error", replayErr),
			)
			continue
		}

		m.mu.Lock()
		m.auctions[id] = a
		m.mu.Unlock()
		recovered++
	}

	m.logger.InfoContext(ctx, "auction recovery complete",
		slog.Int("total_created", len(idList)),
		slog.Int("recovered", recovered),
	)
	return recovered, nil
}

// IsRejection reports whether err is an ordinary rejection that should be
// shown to the caller and retried explicitly, as opposed to a fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAuctionClosed) ||
		errors.Is(err, ErrBelowStartingPrice) ||
		errors.Is(err, ErrBelowCurrentBid) ||
		errors.Is(err, ErrSelfBid) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyClosed)
}
