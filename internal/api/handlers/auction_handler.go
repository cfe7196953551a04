package handlers

import (
	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// AuctionEngine is the operation surface the handlers drive.
type AuctionEngine interface {
	Register(identity string) domain.RegisterResult
	CreateLot(ctx context.Context, code, name, description string, startingPrice float64,
		durationSeconds int64, creator string) (domain.CreateLotResult, error)
	PlaceBid(ctx context.Context, bidder, code string, amount float64) domain.BidResult
	RemoveLot(ctx context.Context, code string) bool
	RemoveExpiredLot(ctx context.Context, code string) bool
	ListLots() []domain.LotSnapshot
}

type AuctionHandler struct {
	engine  AuctionEngine
	history domain.EventHistory
	log     logger.Logger
}

type CreateLotRequest struct {
	Code          *string  `json:"code"`
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	StartingPrice *float64 `json:"starting_price"`
	Duration      *float64 `json:"duration"`
	Creator       *string  `json:"creator"`
}

type PlaceBidRequest struct {
	Bidder *string  `json:"bidder"`
	Code   *string  `json:"code"`
	Amount *float64 `json:"amount"`
}

type MessageResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

var errSchema = map[string]string{"error": "schema error"}

// NewAuctionHandler builds the handlers; history may be nil when event
// history is not configured.
func NewAuctionHandler(engine AuctionEngine, history domain.EventHistory, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		engine:  engine,
		history: history,
		log:     log,
	}
}

func (h *AuctionHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/bidders/:identity", h.RegisterBidder)
	api.POST("/lots", h.CreateLot)
	api.GET("/lots", h.ListLots)
	api.DELETE("/lots/:code", h.RemoveLot)
	api.GET("/lots/:code/history", h.LotHistory)
	api.POST("/bids", h.PlaceBid)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-engine",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
}

func (h *AuctionHandler) RegisterBidder(c echo.Context) error {
	identity := c.Param("identity")
	if identity == "" {
		return c.JSON(http.StatusBadRequest, errSchema)
	}

	result := h.engine.Register(identity)
	if result == domain.AlreadyRegistered {
		return c.JSON(http.StatusBadRequest, MessageResponse{Result: result.String(), Message: "Bidder already registered"})
	}
	return c.JSON(http.StatusOK, MessageResponse{Result: result.String(), Message: "Bidder registered successfully"})
}

func (h *AuctionHandler) CreateLot(c echo.Context) error {
	var req CreateLotRequest
	if err := c.Bind(&req); err != nil {
		h.log.Debug("Failed to bind create lot request", "error", err)
		return c.JSON(http.StatusBadRequest, errSchema)
	}
	if req.Code == nil || req.Name == nil || req.Description == nil ||
		req.StartingPrice == nil || req.Duration == nil || req.Creator == nil {
		return c.JSON(http.StatusBadRequest, errSchema)
	}

	// Fractional seconds round up so a lot never closes early
	if *req.Duration < 0 || math.Ceil(*req.Duration) > float64(domain.MaxLotDurationSeconds) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": domain.ErrInvalidDuration.Error()})
	}
	durationSeconds := int64(math.Ceil(*req.Duration))

	result, err := h.engine.CreateLot(c.Request().Context(), *req.Code, *req.Name, *req.Description,
		*req.StartingPrice, durationSeconds, *req.Creator)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDuration) || errors.Is(err, domain.ErrInvalidPrice) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error("Failed to create lot", "lot_code", *req.Code, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create lot"})
	}

	switch result {
	case domain.CreatorNotRegistered:
		return c.JSON(http.StatusBadRequest, MessageResponse{Result: result.String(), Message: "Bidder not registered"})
	case domain.DuplicateCode:
		return c.JSON(http.StatusBadRequest, MessageResponse{Result: result.String(), Message: "Lot already registered"})
	default:
		return c.JSON(http.StatusOK, MessageResponse{Result: result.String(), Message: "Lot registered successfully"})
	}
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		h.log.Debug("Failed to bind bid request", "error", err)
		return c.JSON(http.StatusBadRequest, errSchema)
	}
	if req.Bidder == nil || req.Code == nil || req.Amount == nil {
		return c.JSON(http.StatusBadRequest, errSchema)
	}

	result := h.engine.PlaceBid(c.Request().Context(), *req.Bidder, *req.Code, *req.Amount)
	switch result {
	case domain.BidderNotRegistered:
		return c.JSON(http.StatusBadRequest, MessageResponse{Result: result.String(), Message: "Bidder not registered"})
	case domain.RejectedLowValue:
		return c.JSON(http.StatusBadRequest, MessageResponse{Result: result.String(), Message: "Bid not accepted. Value lower than the current bid"})
	case domain.LotNotFound:
		return c.JSON(http.StatusBadRequest, MessageResponse{Result: result.String(), Message: "Lot not found"})
	default:
		return c.JSON(http.StatusOK, MessageResponse{Result: result.String(), Message: "Bid placed successfully"})
	}
}

func (h *AuctionHandler) ListLots(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.ListLots())
}

// RemoveLot finalizes a lot out of band. With ?expired=true the lot is only
// removed once its closing time has passed.
func (h *AuctionHandler) RemoveLot(c echo.Context) error {
	code := c.Param("code")
	ctx := c.Request().Context()

	var removed bool
	if c.QueryParam("expired") == "true" {
		removed = h.engine.RemoveExpiredLot(ctx, code)
	} else {
		removed = h.engine.RemoveLot(ctx, code)
	}

	if !removed {
		return c.JSON(http.StatusNotFound, MessageResponse{Result: domain.LotNotFound.String(), Message: "Lot not found"})
	}
	return c.JSON(http.StatusOK, MessageResponse{Result: "removed", Message: "Lot finalized"})
}

func (h *AuctionHandler) LotHistory(c echo.Context) error {
	if h.history == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "event history disabled"})
	}

	code := c.Param("code")
	events, err := h.history.GetLotHistory(c.Request().Context(), code)
	if err != nil {
		h.log.Error("Failed to load lot history", "lot_code", code, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
	}

	type historyEntry struct {
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		Bidder    string    `json:"bidder"`
		Amount    float64   `json:"amount"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}
	entries := make([]historyEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, historyEntry{
			ID:        e.ID,
			Type:      string(e.Type),
			Bidder:    e.Bidder,
			Amount:    e.Amount,
			Message:   e.Message,
			Timestamp: e.Timestamp,
		})
	}
	return c.JSON(http.StatusOK, entries)
}
