package auction

import "time"

// Item describes the thing being sold plus its time window. It is created
// once when an auction opens and is immutable afterwards, except for Active
// which only the owning Auction clears at close.
type Item struct {
	ID            string
	Name          string
	Description   string
	StartingPrice float64
	ReservePrice  float64
	SellerID      string
	StartTime     time.Time
	EndTime       time.Time
	Active        bool
}

// NewItem builds an Item whose window runs from start to start+duration.
// Validation of startingPrice and duration is the creator's responsibility
// (see Manager.CreateAuction); NewItem itself stays thin.
func NewItem(id, name, description string, startingPrice, reservePrice float64, sellerID string, start time.Time, duration time.Duration) Item {
	return Item{
		ID:            id,
		Name:          name,
		Description:   description,
		StartingPrice: startingPrice,
		ReservePrice:  reservePrice,
		SellerID:      sellerID,
		StartTime:     start,
		EndTime:       start.Add(duration),
		Active:        true,
	}
}

// IsExpired reports whether now is past the item's end time.
func (i Item) IsExpired(now time.Time) bool {
	return now.After(i.EndTime)
}

// RemainingSeconds returns the whole seconds left until the end time,
// never negative.
func (i Item) RemainingSeconds(now time.Time) int {
	remaining := int(i.EndTime.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}
