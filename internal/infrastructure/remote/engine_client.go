package remote

import (
	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// EngineClient finalizes expired lots on an auction-service over HTTP so a
// sweeper can run in a separate process. The service stays the single owner
// of the live set: it re-checks expiry before removing.
type EngineClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	log        logger.Logger
}

func NewEngineClient(baseURL string, httpClient *http.Client, log logger.Logger) *EngineClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &EngineClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		now:        time.Now,
		log:        log,
	}
}

func (c *EngineClient) ListLots(ctx context.Context) ([]domain.LotSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/lots", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list lots: unexpected status %d", resp.StatusCode)
	}

	var lots []domain.LotSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&lots); err != nil {
		return nil, fmt.Errorf("decode lots: %w", err)
	}

	for i := range lots {
		closesAt, err := time.ParseInLocation(domain.DisplayTimeLayout, lots[i].ClosesAtText, time.Local)
		if err != nil {
			return nil, fmt.Errorf("lot %s: bad closes_at %q: %w", lots[i].Code, lots[i].ClosesAtText, err)
		}
		lots[i].ClosesAt = closesAt
	}
	return lots, nil
}

// RemoveExpiredLot asks the service to finalize code if it has expired.
// It reports false when the lot was already gone or not yet expired.
func (c *EngineClient) RemoveExpiredLot(ctx context.Context, code string) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/lots/%s?expired=true", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("remove lot %s: %w", code, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("remove lot %s: unexpected status %d", code, resp.StatusCode)
	}
}

// FinalizeExpired lists lots and removes each expired one. A failure on one
// lot does not stop the others; all failures are returned together.
func (c *EngineClient) FinalizeExpired(ctx context.Context) ([]domain.LotSnapshot, error) {
	lots, err := c.ListLots(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	var finalized []domain.LotSnapshot
	var errs error
	for _, lot := range lots {
		if lot.ClosesAt.After(now) {
			continue
		}

		removed, err := c.RemoveExpiredLot(ctx, lot.Code)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if removed {
			finalized = append(finalized, lot)
		} else {
			c.log.Debug("Lot already finalized or not yet expired", "lot_code", lot.Code)
		}
	}
	return finalized, errs
}
