package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/jensholdgaard/auction-house/internal/auction")

// Errors returned by auction operations.
var (
	ErrAuctionClosed      = errors.New("auction is closed")
	ErrBelowStartingPrice = errors.New("bid must be above the starting price")
	ErrBelowCurrentBid    = errors.New("bid must be above the current highest bid")
	ErrSelfBid            = errors.New("sellers cannot bid on their own item")
	ErrAlreadyClosed      = errors.New("auction already closed")
	ErrNotFound           = errors.New("auction not found")
	ErrDuplicateID        = errors.New("auction id already registered")
	ErrInsufficientFunds  = errors.New("insufficient balance")
)

// Status classifies how a closed auction resolved.
type Status string

const (
	StatusSold                Status = "sold"
	StatusUnsoldNoBids        Status = "unsold_no_bids"
	StatusUnsoldReserveNotMet Status = "unsold_reserve_not_met"
)

// Outcome is the settlement decision computed when an auction closes.
// WinnerID and Price are only set when Status is StatusSold.
type Outcome struct {
	Status   Status
	WinnerID string
	Price    float64
}

// Auction is the aggregate root for a single item auction. It owns the item,
// the insertion-ordered history of accepted bids and the current best bid.
// It is safe for concurrent use; PlaceBid and End are serialized per
// instance.
type Auction struct {
	mu sync.RWMutex

	item          Item
	bids          []Bid
	best          *Bid
	bidderHighest map[string]float64
	outcome       *Outcome

	version int
	events  []event.Event
	clock   clock.Clock
}

// New creates an open auction for item and records a created event.
func New(item Item, clk clock.Clock) *Auction {
	a := &Auction{
		item:          item,
		bidderHighest: make(map[string]float64),
		clock:         clk,
	}

	data, _ := json.Marshal(event.AuctionCreatedData{
		ItemName:      item.Name,
		Description:   item.Description,
		StartingPrice: item.StartingPrice,
		ReservePrice:  item.ReservePrice,
		SellerID:      item.SellerID,
		Duration:      item.EndTime.Sub(item.StartTime),
	})
	a.recordEvent(event.AuctionCreated, data)
	return a
}

// IsActive reports whether the auction still admits bids: the item has not
// been closed and its end time has not passed. Expiry freezes bidding
// immediately but does not close the auction; settlement waits for an
// explicit End call.
func (a *Auction) IsActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.isActive()
}

func (a *Auction) isActive() bool {
	return a.item.Active && !a.item.IsExpired(a.clock.Now())
}

// PlaceBid validates and records a bid. Validation runs in a fixed order and
// fully precedes any mutation, so a rejected bid leaves no trace.
func (a *Auction) PlaceBid(ctx context.Context, bidderID string, amount float64) error {
	ctx, span := tracer.Start(ctx, "Auction.PlaceBid",
		trace.WithAttributes(
			attribute.String("item.id", a.item.ID),
			attribute.String("bidder.id", bidderID),
			attribute.Float64("bid.amount", amount),
		),
	)
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isActive() {
		return ErrAuctionClosed
	}
	if amount <= a.item.StartingPrice {
		return ErrBelowStartingPrice
	}
	if a.best != nil && amount <= a.best.Amount {
		return ErrBelowCurrentBid
	}
	if bidderID == a.item.SellerID {
		return ErrSelfBid
	}

	bid := Bid{
		BidderID: bidderID,
		Amount:   amount,
		Time:     a.clock.Now(),
		ItemID:   a.item.ID,
	}
	a.bids = append(a.bids, bid)
	if a.best == nil || bid.Outranks(*a.best) {
		a.best = &bid
	}
	if amount > a.bidderHighest[bidderID] {
		a.bidderHighest[bidderID] = amount
	}

	data, _ := json.Marshal(event.BidPlacedData{
		BidderID: bidderID,
		Amount:   amount,
	})
	a.recordEvent(event.AuctionBidPlaced, data)

	slog.InfoContext(ctx, "bid accepted",
		slog.String("item_id", a.item.ID),
		slog.String("bidder_id", bidderID),
		slog.Float64("amount", amount),
	)
	return nil
}

// End closes the auction and computes the settlement outcome. The auction is
// marked inactive irreversibly. Closing an already-closed auction is a no-op
// reported as ErrAlreadyClosed. End itself is pure apart from the state flip;
// applying the settlement side effects is the caller's step.
func (a *Auction) End(ctx context.Context) (Outcome, error) {
	_, span := tracer.Start(ctx, "Auction.End",
		trace.WithAttributes(attribute.String("item.id", a.item.ID)),
	)
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.item.Active {
		return Outcome{}, ErrAlreadyClosed
	}

	a.item.Active = false
	out := a.computeOutcome()
	a.outcome = &out

	data, _ := json.Marshal(event.AuctionClosedData{
		Outcome:  string(out.Status),
		WinnerID: out.WinnerID,
		Price:    out.Price,
	})
	a.recordEvent(event.AuctionClosed, data)

	return out, nil
}

func (a *Auction) computeOutcome() Outcome {
	if a.best == nil {
		return Outcome{Status: StatusUnsoldNoBids}
	}
	if a.best.Amount < a.item.ReservePrice {
		return Outcome{Status: StatusUnsoldReserveNotMet}
	}
	return Outcome{
		Status:   StatusSold,
		WinnerID: a.best.BidderID,
		Price:    a.best.Amount,
	}
}

// Item returns a copy of the auctioned item.
func (a *Auction) Item() Item {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.item
}

// CurrentPrice returns the best bid's amount, or the starting price if no
// bid has been accepted yet.
func (a *Auction) CurrentPrice() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentPrice()
}

func (a *Auction) currentPrice() float64 {
	if a.best == nil {
		return a.item.StartingPrice
	}
	return a.best.Amount
}

// ReserveMet reports whether the current price covers the reserve.
func (a *Auction) ReserveMet() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentPrice() >= a.item.ReservePrice
}

// BestBid returns a copy of the current best bid, or nil if there are no
// bids.
func (a *Auction) BestBid() *Bid {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.best == nil {
		return nil
	}
	bid := *a.best
	return &bid
}

// History returns the accepted bids in acceptance order.
func (a *Auction) History() []Bid {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Bid, len(a.bids))
	copy(out, a.bids)
	return out
}

// BidderHighest returns the highest amount each bidder has had accepted.
// Display only; admission compares against the best bid, not this map.
func (a *Auction) BidderHighest() map[string]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]float64, len(a.bidderHighest))
	for k, v := range a.bidderHighest {
		out[k] = v
	}
	return out
}

// Outcome returns the close outcome, or false if the auction is still open.
func (a *Auction) Outcome() (Outcome, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.outcome == nil {
		return Outcome{}, false
	}
	return *a.outcome, true
}

// RemainingSeconds returns the whole seconds left before expiry.
func (a *Auction) RemainingSeconds() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.item.RemainingSeconds(a.clock.Now())
}

// PendingEvents returns uncommitted events and clears the buffer.
func (a *Auction) PendingEvents() []event.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := a.events
	a.events = nil
	return events
}

func (a *Auction) recordEvent(t event.Type, data json.RawMessage) {
	a.version++
	a.events = append(a.events, event.Event{
		AggregateID: a.item.ID,
		Type:        t,
		Data:        data,
		Version:     a.version,
	})
}

// Replay reconstructs an auction from its event history. The created event's
// stored timestamp anchors the item's time window.
func Replay(events []event.Event, clk clock.Clock) (*Auction, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to replay")
	}

	a := &Auction{
		bidderHighest: make(map[string]float64),
		clock:         clk,
	}
	for _, e := range events {
		switch e.Type {
		case event.AuctionCreated:
			var d event.AuctionCreatedData
			if err := json.Unmarshal(e.Data, &d); err != nil {
				return nil, fmt.Errorf("unmarshalling created event: %w", err)
			}
			a.item = Item{
				ID:            e.AggregateID,
				Name:          d.ItemName,
				Description:   d.Description,
				StartingPrice: d.StartingPrice,
				ReservePrice:  d.ReservePrice,
				SellerID:      d.SellerID,
				StartTime:     e.CreatedAt,
				EndTime:       e.CreatedAt.Add(d.Duration),
				Active:        true,
			}

		case event.AuctionBidPlaced:
			var d event.BidPlacedData
			if err := json.Unmarshal(e.Data, &d); err != nil {
				return nil, fmt.Errorf("unmarshalling bid event: %w", err)
			}
			bid := Bid{
				BidderID: d.BidderID,
				Amount:   d.Amount,
				Time:     e.CreatedAt,
				ItemID:   e.AggregateID,
			}
			a.bids = append(a.bids, bid)
			if a.best == nil || bid.Outranks(*a.best) {
				a.best = &bid
			}
			if d.Amount > a.bidderHighest[d.BidderID] {
				a.bidderHighest[d.BidderID] = d.Amount
			}

		case event.AuctionClosed:
			var d event.AuctionClosedData
			if err := json.Unmarshal(e.Data, &d); err != nil {
				return nil, fmt.Errorf("unmarshalling closed event: %w", err)
			}
			a.item.Active = false
			a.outcome = &Outcome{
				Status:   Status(d.Outcome),
				WinnerID: d.WinnerID,
				Price:    d.Price,
			}
		}
		a.version = e.Version
	}
	return a, nil
}
