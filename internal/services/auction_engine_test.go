package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuctionEngine_Scenario(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	assert.Equal(t, domain.Registered, f.engine.Register("alice"))
	assert.Equal(t, domain.Registered, f.engine.Register("bob"))

	result, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 3600, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CreateLotSuccess, result)

	assert.Equal(t, domain.BidSuccess, f.engine.PlaceBid(ctx, "bob", "L1", 100))
	assert.Equal(t, domain.RejectedLowValue, f.engine.PlaceBid(ctx, "bob", "L1", 100))
	assert.Equal(t, domain.BidSuccess, f.engine.PlaceBid(ctx, "alice", "L1", 150))

	lots := f.engine.ListLots()
	require.Len(t, lots, 1)
	assert.Equal(t, "L1", lots[0].Code)
	assert.Equal(t, 150.0, lots[0].CurrentBid)
	assert.Equal(t, "alice", lots[0].CurrentBidder)
}

func TestAuctionEngine_UnregisteredBidder(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 3600, "alice")
	require.NoError(t, err)

	assert.Equal(t, domain.BidderNotRegistered, f.engine.PlaceBid(ctx, "carol", "L1", 200))

	lot, ok := f.engine.GetLot("L1")
	require.True(t, ok)
	assert.Equal(t, 100.0, lot.CurrentBid)
	assert.Equal(t, "", lot.CurrentBidder)
	assert.Empty(t, f.notifier.ofType(domain.NewBid))
}

func TestAuctionEngine_CreateLot(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	result, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 60, "ghost")
	require.NoError(t, err)
	assert.Equal(t, domain.CreatorNotRegistered, result)
	assert.Empty(t, f.engine.ListLots())

	f.engine.Register("alice")
	f.engine.Register("bob")
	f.engine.Register("carol")

	result, err = f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 60, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CreateLotSuccess, result)
	require.Equal(t, domain.BidSuccess, f.engine.PlaceBid(ctx, "bob", "L1", 120))

	result, err = f.engine.CreateLot(ctx, "L1", "Other", "glass", 5, 10, "carol")
	require.NoError(t, err)
	assert.Equal(t, domain.DuplicateCode, result)

	lots := f.engine.ListLots()
	require.Len(t, lots, 1)
	assert.Equal(t, "Vase", lots[0].Name)
	assert.Equal(t, 120.0, lots[0].CurrentBid)
	assert.Equal(t, "bob", lots[0].CurrentBidder)
	assert.Equal(t, f.clock.Now().Add(60*time.Second), lots[0].ClosesAt)
	assert.Equal(t, lots[0].ClosesAt.Format(domain.DisplayTimeLayout), lots[0].ClosesAtText)
}

func TestAuctionEngine_CreateLotInvalidArguments(t *testing.T) {
	f := newEngineFixture()
	f.engine.Register("alice")

	_, err := f.engine.CreateLot(context.Background(), "L1", "Vase", "", 100, -1, "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = f.engine.CreateLot(context.Background(), "L1", "Vase", "", -5, 10, "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = f.engine.CreateLot(context.Background(), "L1", "Vase", "", 100, 10_000_000_000, "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	assert.Empty(t, f.engine.ListLots())
}

func TestAuctionEngine_LongestDurationStaysOpen(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")

	result, err := f.engine.CreateLot(ctx, "L1", "Vase", "", 100, domain.MaxLotDurationSeconds, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.CreateLotSuccess, result)

	lot, ok := f.engine.GetLot("L1")
	require.True(t, ok)
	assert.True(t, lot.ClosesAt.After(f.clock.Now()))

	finalized, err := f.engine.FinalizeExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, finalized)
	assert.Len(t, f.engine.ListLots(), 1)
}

func TestAuctionEngine_DeliveryOutlivesCallerContext(t *testing.T) {
	f := newEngineFixture()
	f.engine.Register("alice")
	f.engine.Register("bob")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "", 100, 3600, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.BidSuccess, f.engine.PlaceBid(ctx, "bob", "L1", 120))
	assert.True(t, f.engine.RemoveLot(ctx, "L1"))

	assert.Len(t, f.notifier.ofType(domain.LotCreated), 2)
	assert.Equal(t, []string{"alice", "bob"}, recipientsOf(f.notifier.ofType(domain.NewBid)))

	final := f.notifier.ofType(domain.LotFinalized)
	assert.ElementsMatch(t, []string{"alice", "bob"}, recipientsOf(final))
	assert.Len(t, f.recorder.events, 3)
}

func TestAuctionEngine_LotCreatedIsBroadcast(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	f.engine.Register("bob")
	f.engine.Register("carol")

	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 60, "alice")
	require.NoError(t, err)

	created := f.notifier.ofType(domain.LotCreated)
	assert.Equal(t, []string{"alice", "bob", "carol"}, recipientsOf(created))
	assert.Equal(t, "L1", created[0].Notification.LotCode)
}

func TestAuctionEngine_NewBidGoesToInterestedParties(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		f.engine.Register(id)
	}
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 60, "alice")
	require.NoError(t, err)

	f.engine.PlaceBid(ctx, "bob", "L1", 110)
	assert.Equal(t, []string{"alice", "bob"}, recipientsOf(f.notifier.ofType(domain.NewBid)))

	f.engine.PlaceBid(ctx, "carol", "L1", 105)
	assert.Len(t, f.notifier.ofType(domain.NewBid), 2, "rejected bids emit nothing")

	f.engine.PlaceBid(ctx, "carol", "L1", 130)
	assert.Equal(t, []string{"alice", "bob", "alice", "bob", "carol"}, recipientsOf(f.notifier.ofType(domain.NewBid)))
}

func TestAuctionEngine_PlaceBidUnknownLot(t *testing.T) {
	f := newEngineFixture()
	f.engine.Register("bob")

	assert.Equal(t, domain.LotNotFound, f.engine.PlaceBid(context.Background(), "bob", "missing", 10))
}

func TestAuctionEngine_BidsAreMonotonic(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	f.engine.Register("bob")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 50, 60, "alice")
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	last := 50.0
	for i := 0; i < 500; i++ {
		f.engine.PlaceBid(ctx, "bob", "L1", float64(rng.Intn(1000)))
		lot, _ := f.engine.GetLot("L1")
		assert.GreaterOrEqual(t, lot.CurrentBid, last)
		last = lot.CurrentBid
	}
}

func TestAuctionEngine_StrictlyHigherBidAlwaysAccepted(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	f.engine.Register("bob")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 10, 60, "alice")
	require.NoError(t, err)

	for amount := 10.5; amount < 20; amount += 0.5 {
		assert.Equal(t, domain.BidSuccess, f.engine.PlaceBid(ctx, "bob", "L1", amount))
	}
}

func TestAuctionEngine_ConcurrentBidsKeepMaximum(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 1, 60, "alice")
	require.NoError(t, err)

	const bidders = 200
	for i := 0; i < bidders; i++ {
		f.engine.Register(fmt.Sprintf("bidder-%d", i))
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			f.engine.PlaceBid(ctx, fmt.Sprintf("bidder-%d", i), "L1", float64(10+i))
		}(i)
	}
	close(start)
	wg.Wait()

	lot, ok := f.engine.GetLot("L1")
	require.True(t, ok)
	assert.Equal(t, float64(10+bidders-1), lot.CurrentBid)
	assert.Equal(t, fmt.Sprintf("bidder-%d", bidders-1), lot.CurrentBidder)
}

func TestAuctionEngine_ConcurrentEqualBidsOnlyOneWins(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 60, "alice")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		f.engine.Register(fmt.Sprintf("bidder-%d", i))
	}

	var wg sync.WaitGroup
	results := make(chan domain.BidResult, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- f.engine.PlaceBid(ctx, fmt.Sprintf("bidder-%d", i), "L1", 100)
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for r := range results {
		if r == domain.BidSuccess {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestAuctionEngine_RemoveLot(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	f.engine.Register("bob")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 3600, "alice")
	require.NoError(t, err)
	f.engine.PlaceBid(ctx, "bob", "L1", 120)

	assert.True(t, f.engine.RemoveLot(ctx, "L1"))
	assert.False(t, f.engine.RemoveLot(ctx, "L1"))
	assert.Empty(t, f.engine.ListLots())
	assert.Equal(t, domain.LotNotFound, f.engine.PlaceBid(ctx, "bob", "L1", 500))

	finalized := f.notifier.ofType(domain.LotFinalized)
	assert.Equal(t, []string{"alice", "bob"}, recipientsOf(finalized))
	assert.Contains(t, finalized[0].Notification.Message, "Winner: bob with 120.00")
}

func TestAuctionEngine_RecreateAfterRemoval(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	f.engine.Register("bob")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 3600, "alice")
	require.NoError(t, err)
	f.engine.PlaceBid(ctx, "bob", "L1", 300)
	require.True(t, f.engine.RemoveLot(ctx, "L1"))

	result, err := f.engine.CreateLot(ctx, "L1", "Lamp", "brass", 10, 3600, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CreateLotSuccess, result)

	lot, ok := f.engine.GetLot("L1")
	require.True(t, ok)
	assert.Equal(t, "Lamp", lot.Name)
	assert.Equal(t, 10.0, lot.CurrentBid)
	assert.Equal(t, "", lot.CurrentBidder)
}

func TestAuctionEngine_RemoveExpiredLot(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 30, "alice")
	require.NoError(t, err)

	assert.False(t, f.engine.RemoveExpiredLot(ctx, "L1"))
	assert.Len(t, f.engine.ListLots(), 1)

	f.clock.Advance(30 * time.Second)
	assert.True(t, f.engine.RemoveExpiredLot(ctx, "L1"))
	assert.Empty(t, f.engine.ListLots())

	finalized := f.notifier.ofType(domain.LotFinalized)
	require.Len(t, finalized, 1)
	assert.Contains(t, finalized[0].Notification.Message, "closed with no bids")
}

func TestAuctionEngine_FinalizeExpired(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	f.engine.Register("bob")
	_, err := f.engine.CreateLot(ctx, "short", "Vase", "ceramic", 100, 10, "alice")
	require.NoError(t, err)
	_, err = f.engine.CreateLot(ctx, "long", "Lamp", "brass", 50, 100, "alice")
	require.NoError(t, err)
	f.engine.PlaceBid(ctx, "bob", "short", 150)

	f.clock.Advance(9 * time.Second)
	finalized, err := f.engine.FinalizeExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, finalized, "nothing closes before closesAt")

	f.clock.Advance(time.Second)
	finalized, err = f.engine.FinalizeExpired(ctx)
	require.NoError(t, err)
	require.Len(t, finalized, 1)
	assert.Equal(t, "short", finalized[0].Code)
	assert.Equal(t, "bob", finalized[0].CurrentBidder)

	finalized, err = f.engine.FinalizeExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, finalized)

	lots := f.engine.ListLots()
	require.Len(t, lots, 1)
	assert.Equal(t, "long", lots[0].Code)
	assert.Equal(t, []string{"alice", "bob"}, recipientsOf(f.notifier.ofType(domain.LotFinalized)))
}

func TestAuctionEngine_ListLotsInsertionOrder(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.engine.Register("alice")
	for _, code := range []string{"c", "a", "b"} {
		_, err := f.engine.CreateLot(ctx, code, code, "", 1, 60, "alice")
		require.NoError(t, err)
	}
	f.engine.RemoveLot(ctx, "a")
	_, err := f.engine.CreateLot(ctx, "a", "a", "", 1, 60, "alice")
	require.NoError(t, err)

	var codes []string
	for _, lot := range f.engine.ListLots() {
		codes = append(codes, lot.Code)
	}
	assert.Equal(t, []string{"c", "b", "a"}, codes)
}

func TestAuctionEngine_BidRacingFinalization(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newEngineFixture()
		ctx := context.Background()
		f.engine.Register("alice")
		f.engine.Register("bob")
		_, err := f.engine.CreateLot(ctx, "L1", "Vase", "ceramic", 100, 10, "alice")
		require.NoError(t, err)
		f.clock.Advance(10 * time.Second)

		var wg sync.WaitGroup
		var bidResult domain.BidResult
		wg.Add(2)
		go func() {
			defer wg.Done()
			bidResult = f.engine.PlaceBid(ctx, "bob", "L1", 200)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.engine.FinalizeExpired(ctx)
		}()
		wg.Wait()

		finalized := f.notifier.ofType(domain.LotFinalized)
		switch bidResult {
		case domain.BidSuccess:
			// the bid landed first and must be in the outcome
			require.NotEmpty(t, finalized)
			assert.Contains(t, finalized[0].Notification.Message, "Winner: bob with 200.00")
		case domain.LotNotFound:
			require.NotEmpty(t, finalized)
			assert.Contains(t, finalized[0].Notification.Message, "no bids")
		default:
			t.Fatalf("unexpected bid result %s", bidResult)
		}
	}
}
