package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	AuctionCreated   Type = "auction.created"
	AuctionBidPlaced Type = "auction.bid_placed"
	AuctionClosed    Type = "auction.closed"

	AccountRegistered Type = "account.registered"
	BalanceCredited   Type = "balance.credited"
	BalanceDebited    Type = "balance.debited"
)

// Event represents a single domain event.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// AuctionCreatedData is the payload for AuctionCreated events.
type AuctionCreatedData struct {
	ItemName      string        `json:"item_name"`
	Description   string        `json:"description"`
	StartingPrice float64       `json:"starting_price"`
	ReservePrice  float64       `json:"reserve_price"`
	SellerID      string        `json:"seller_id"`
	Duration      time.Duration `json:"duration"`
}

// BidPlacedData is the payload for AuctionBidPlaced events.
type BidPlacedData struct {
	BidderID string  `json:"bidder_id"`
	Amount   float64 `json:"amount"`
}

// AuctionClosedData is the payload for AuctionClosed events. Outcome is one
// of "sold", "unsold_no_bids" or "unsold_reserve_not_met"; WinnerID and
// Price are only set when the item sold.
type AuctionClosedData struct {
	Outcome  string  `json:"outcome"`
	WinnerID string  `json:"winner_id,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// AccountRegisteredData is the payload for AccountRegistered events.
type AccountRegisteredData struct {
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	OpeningBalance float64 `json:"opening_balance"`
}

// BalanceChangeData is the payload for BalanceCredited and BalanceDebited
// events. Amount is always positive; the event type carries the direction.
type BalanceChangeData struct {
	AccountID string  `json:"account_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}
