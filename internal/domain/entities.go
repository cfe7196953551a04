package domain

import (
	"errors"
	"math"
	"time"
)

// DisplayTimeLayout renders closesAt as DD/MM/YYYY HH:MM:SS.
const DisplayTimeLayout = "02/01/2006 15:04:05"

// MaxLotDurationSeconds is the longest lot duration that still fits in a time.Duration.
const MaxLotDurationSeconds = int64(math.MaxInt64 / int64(time.Second))

var (
	ErrInvalidDuration = errors.New("lot duration must be between 0 and 9223372036 seconds")
	ErrInvalidPrice    = errors.New("starting price must not be negative")
)

type LotSnapshot struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CurrentBid    float64   `json:"current_bid"`
	CurrentBidder string    `json:"current_bidder"`
	ClosesAt      time.Time `json:"-"`
	ClosesAtText  string    `json:"closes_at"`
}

type RegisterResult int

const (
	Registered RegisterResult = iota
	AlreadyRegistered
)

func (r RegisterResult) String() string {
	switch r {
	case Registered:
		return "registered"
	case AlreadyRegistered:
		return "already_registered"
	default:
		return "unknown"
	}
}

type CreateLotResult int

const (
	CreateLotSuccess CreateLotResult = iota
	CreatorNotRegistered
	DuplicateCode
)

func (r CreateLotResult) String() string {
	switch r {
	case CreateLotSuccess:
		return "success"
	case CreatorNotRegistered:
		return "creator_not_registered"
	case DuplicateCode:
		return "duplicate_code"
	default:
		return "unknown"
	}
}

type BidResult int

const (
	BidSuccess BidResult = iota
	BidderNotRegistered
	LotNotFound
	RejectedLowValue
)

func (r BidResult) String() string {
	switch r {
	case BidSuccess:
		return "success"
	case BidderNotRegistered:
		return "bidder_not_registered"
	case LotNotFound:
		return "lot_not_found"
	case RejectedLowValue:
		return "rejected_low_value"
	default:
		return "unknown"
	}
}

type EventType string

const (
	LotCreated   EventType = "lot_created"
	NewBid       EventType = "new_bid"
	LotFinalized EventType = "lot_finalized"
)

// AuctionEvent is one state change together with everyone entitled to hear about it.
type AuctionEvent struct {
	ID         string
	Type       EventType
	LotCode    string
	Bidder     string
	Amount     float64
	Message    string
	Recipients []string
	Timestamp  time.Time
}

func (e *AuctionEvent) Notification() *Notification {
	return &Notification{
		EventID:   e.ID,
		Type:      e.Type,
		LotCode:   e.LotCode,
		Message:   e.Message,
		Timestamp: e.Timestamp,
	}
}

// Notification is what a single recipient receives for an AuctionEvent.
type Notification struct {
	EventID   string    `json:"event_id"`
	Type      EventType `json:"type"`
	LotCode   string    `json:"lot_code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
