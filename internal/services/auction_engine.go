package services

import (
	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuctionEngine owns the registry and the live set of lots.
//
// Locking: mu guards membership of the live set. Bids hold the read lock
// plus the lot's own mutex, so bids on different lots run in parallel while
// removal (write lock) waits for every in-flight bid. Events are dispatched
// only after all locks are released.
type AuctionEngine struct {
	registry   *Registry
	dispatcher *Dispatcher
	log        logger.Logger
	now        func() time.Time

	mu    sync.RWMutex
	lots  map[string]*domain.Lot
	order []string
}

type EngineOption func(*AuctionEngine)

// WithClock replaces time.Now as the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *AuctionEngine) {
		e.now = now
	}
}

func NewAuctionEngine(registry *Registry, dispatcher *Dispatcher, log logger.Logger, opts ...EngineOption) *AuctionEngine {
	e := &AuctionEngine{
		registry:   registry,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
		lots:       make(map[string]*domain.Lot),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *AuctionEngine) Register(identity string) domain.RegisterResult {
	result := e.registry.Register(identity)
	e.log.Info("Register bidder", "identity", identity, "result", result.String())
	return result
}

func (e *AuctionEngine) CreateLot(ctx context.Context, code, name, description string, startingPrice float64,
	durationSeconds int64, creator string) (domain.CreateLotResult, error) {
	if durationSeconds < 0 || durationSeconds > domain.MaxLotDurationSeconds {
		return 0, fmt.Errorf("create lot %s: %w", code, domain.ErrInvalidDuration)
	}
	if startingPrice < 0 {
		return 0, fmt.Errorf("create lot %s: %w", code, domain.ErrInvalidPrice)
	}
	if !e.registry.Contains(creator) {
		e.log.Debug("Lot creation rejected", "lot_code", code, "creator", creator, "reason", domain.CreatorNotRegistered.String())
		return domain.CreatorNotRegistered, nil
	}

	now := e.now()
	lot := domain.NewLot(code, name, description, startingPrice, now.Add(time.Duration(durationSeconds)*time.Second), creator)

	e.mu.Lock()
	if _, exists := e.lots[code]; exists {
		e.mu.Unlock()
		e.log.Debug("Lot creation rejected", "lot_code", code, "creator", creator, "reason", domain.DuplicateCode.String())
		return domain.DuplicateCode, nil
	}
	e.lots[code] = lot
	e.order = append(e.order, code)
	e.mu.Unlock()

	e.log.Info("Lot created", "lot_code", code, "creator", creator, "starting_price", startingPrice, "closes_at", lot.ClosesAt)

	e.dispatch(ctx, &domain.AuctionEvent{
		ID:         uuid.NewString(),
		Type:       domain.LotCreated,
		LotCode:    code,
		Bidder:     creator,
		Amount:     startingPrice,
		Message:    fmt.Sprintf("New lot %s (%s) open for bids from %.2f until %s", code, name, startingPrice, lot.ClosesAt.Format(domain.DisplayTimeLayout)),
		Recipients: e.registry.Identities(),
		Timestamp:  now,
	})

	return domain.CreateLotSuccess, nil
}

func (e *AuctionEngine) PlaceBid(ctx context.Context, bidder, code string, amount float64) domain.BidResult {
	if !e.registry.Contains(bidder) {
		e.log.Debug("Bid rejected", "lot_code", code, "bidder", bidder, "reason", domain.BidderNotRegistered.String())
		return domain.BidderNotRegistered
	}

	e.mu.RLock()
	lot, exists := e.lots[code]
	if !exists {
		e.mu.RUnlock()
		e.log.Debug("Bid rejected", "lot_code", code, "bidder", bidder, "reason", domain.LotNotFound.String())
		return domain.LotNotFound
	}
	accepted, recipients := lot.PlaceBid(bidder, amount)
	e.mu.RUnlock()

	if !accepted {
		e.log.Debug("Bid rejected", "lot_code", code, "bidder", bidder, "amount", amount, "reason", domain.RejectedLowValue.String())
		return domain.RejectedLowValue
	}

	e.log.Info("Bid accepted", "lot_code", code, "bidder", bidder, "amount", amount)

	e.dispatch(ctx, &domain.AuctionEvent{
		ID:         uuid.NewString(),
		Type:       domain.NewBid,
		LotCode:    code,
		Bidder:     bidder,
		Amount:     amount,
		Message:    fmt.Sprintf("New bid of %.2f by %s on lot %s (%s)", amount, bidder, code, lot.Name),
		Recipients: recipients,
		Timestamp:  e.now(),
	})

	return domain.BidSuccess
}

// RemoveLot finalizes and removes a lot regardless of its closing time.
func (e *AuctionEngine) RemoveLot(ctx context.Context, code string) bool {
	return e.removeLot(ctx, code, false)
}

// RemoveExpiredLot finalizes and removes a lot only if its closing time has passed.
func (e *AuctionEngine) RemoveExpiredLot(ctx context.Context, code string) bool {
	return e.removeLot(ctx, code, true)
}

func (e *AuctionEngine) removeLot(ctx context.Context, code string, onlyExpired bool) bool {
	e.mu.Lock()
	lot, exists := e.lots[code]
	if !exists || (onlyExpired && !lot.Expired(e.now())) {
		e.mu.Unlock()
		return false
	}
	e.deleteLocked(code)
	snapshot, recipients, finalized := lot.Finalize()
	e.mu.Unlock()

	if finalized {
		e.log.Info("Lot removed", "lot_code", code, "expired_only", onlyExpired)
		e.dispatchFinalized(ctx, snapshot, recipients)
	}
	return true
}

// FinalizeExpired closes every lot whose closing time has passed in one
// critical section and then notifies their interested parties.
func (e *AuctionEngine) FinalizeExpired(ctx context.Context) ([]domain.LotSnapshot, error) {
	type closed struct {
		snapshot   domain.LotSnapshot
		recipients []string
	}

	now := e.now()
	var done []closed

	e.mu.Lock()
	for _, code := range append([]string(nil), e.order...) {
		lot := e.lots[code]
		if !lot.Expired(now) {
			continue
		}
		e.deleteLocked(code)
		if snapshot, recipients, ok := lot.Finalize(); ok {
			done = append(done, closed{snapshot: snapshot, recipients: recipients})
		}
	}
	e.mu.Unlock()

	snapshots := make([]domain.LotSnapshot, 0, len(done))
	for _, c := range done {
		e.log.Info("Lot expired", "lot_code", c.snapshot.Code, "winner", c.snapshot.CurrentBidder, "amount", c.snapshot.CurrentBid)
		e.dispatchFinalized(ctx, c.snapshot, c.recipients)
		snapshots = append(snapshots, c.snapshot)
	}
	return snapshots, nil
}

func (e *AuctionEngine) ListLots() []domain.LotSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshots := make([]domain.LotSnapshot, 0, len(e.order))
	for _, code := range e.order {
		snapshots = append(snapshots, e.lots[code].Snapshot())
	}
	return snapshots
}

func (e *AuctionEngine) GetLot(code string) (domain.LotSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	lot, exists := e.lots[code]
	if !exists {
		return domain.LotSnapshot{}, false
	}
	return lot.Snapshot(), true
}

// deleteLocked must be called with mu held for writing.
func (e *AuctionEngine) deleteLocked(code string) {
	delete(e.lots, code)
	for i, c := range e.order {
		if c == code {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// dispatch runs after the operation has taken effect, so delivery must not
// be cut short when the caller's context is cancelled.
func (e *AuctionEngine) dispatch(ctx context.Context, event *domain.AuctionEvent) {
	e.dispatcher.Dispatch(context.WithoutCancel(ctx), event)
}

func (e *AuctionEngine) dispatchFinalized(ctx context.Context, snapshot domain.LotSnapshot, recipients []string) {
	message := fmt.Sprintf("Lot %s (%s) closed with no bids", snapshot.Code, snapshot.Name)
	if snapshot.CurrentBidder != "" {
		message = fmt.Sprintf("Lot %s (%s) closed. Winner: %s with %.2f",
			snapshot.Code, snapshot.Name, snapshot.CurrentBidder, snapshot.CurrentBid)
	}

	e.dispatch(ctx, &domain.AuctionEvent{
		ID:         uuid.NewString(),
		Type:       domain.LotFinalized,
		LotCode:    snapshot.Code,
		Bidder:     snapshot.CurrentBidder,
		Amount:     snapshot.CurrentBid,
		Message:    message,
		Recipients: recipients,
		Timestamp:  e.now(),
	})
}
