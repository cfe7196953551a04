package domain

import (
	"sync"
	"time"
)

// Lot is a single auction item. Bid state is guarded by the lot's own mutex;
// membership in the live set is guarded by the engine.
type Lot struct {
	Code        string
	Name        string
	Description string
	Creator     string
	ClosesAt    time.Time

	mu            sync.Mutex
	currentBid    float64
	currentBidder string
	interested    []string
	interestedSet map[string]struct{}
	finalized     bool
}

func NewLot(code, name, description string, startingPrice float64, closesAt time.Time, creator string) *Lot {
	return &Lot{
		Code:          code,
		Name:          name,
		Description:   description,
		Creator:       creator,
		ClosesAt:      closesAt,
		currentBid:    startingPrice,
		interested:    []string{creator},
		interestedSet: map[string]struct{}{creator: {}},
	}
}

// PlaceBid applies the acceptance rule: a bid must exceed the current bid,
// except the first one, which may equal the starting price. On acceptance
// it returns the interested parties (bidder included) to notify.
func (l *Lot) PlaceBid(bidder string, amount float64) (bool, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.finalized {
		return false, nil
	}
	if !(amount > l.currentBid || (amount >= l.currentBid && l.currentBidder == "")) {
		return false, nil
	}

	l.currentBid = amount
	l.currentBidder = bidder
	if _, ok := l.interestedSet[bidder]; !ok {
		l.interestedSet[bidder] = struct{}{}
		l.interested = append(l.interested, bidder)
	}

	return true, l.recipients()
}

// Finalize marks the lot closed. It reports false if the lot was already
// finalized, so callers emit the outcome at most once.
func (l *Lot) Finalize() (LotSnapshot, []string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.finalized {
		return LotSnapshot{}, nil, false
	}
	l.finalized = true
	return l.snapshot(), l.recipients(), true
}

func (l *Lot) Snapshot() LotSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

func (l *Lot) Expired(now time.Time) bool {
	return !l.ClosesAt.After(now)
}

func (l *Lot) InterestedParties() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recipients()
}

func (l *Lot) snapshot() LotSnapshot {
	return LotSnapshot{
		Code:          l.Code,
		Name:          l.Name,
		Description:   l.Description,
		CurrentBid:    l.currentBid,
		CurrentBidder: l.currentBidder,
		ClosesAt:      l.ClosesAt,
		ClosesAtText:  l.ClosesAt.Format(DisplayTimeLayout),
	}
}

func (l *Lot) recipients() []string {
	out := make([]string, len(l.interested))
	copy(out, l.interested)
	return out
}
