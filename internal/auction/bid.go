package auction

import "time"

// Bid is a single accepted bid. Bids are created only inside
// Auction.PlaceBid and never mutated afterwards; the full history is
// retained for the life of the auction.
type Bid struct {
	BidderID string
	Amount   float64
	Time     time.Time
	ItemID   string
}

// Outranks reports whether b beats other under the auction ordering:
// higher amount wins, and among equal amounts the earlier bid wins.
// Accepted histories are strictly increasing so the tie branch is never
// reached through PlaceBid, but the comparator keeps deterministic
// earliest-wins semantics should equal amounts ever be ingested.
func (b Bid) Outranks(other Bid) bool {
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.Time.Before(other.Time)
}
