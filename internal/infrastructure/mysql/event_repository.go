package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auction-engine/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLEventRepository keeps an append-only history of auction events.
// It is an audit trail; live lot state is never rebuilt from it.
type MySQLEventRepository struct {
	db *sql.DB
}

func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

func (r *MySQLEventRepository) RecordEvent(ctx context.Context, event *domain.AuctionEvent) error {
	query := `
        INSERT INTO auction_events (id, event_type, lot_code, bidder, amount, message, recipients, occurred_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.ID, string(event.Type), event.LotCode, event.Bidder, event.Amount,
		event.Message, len(event.Recipients), event.Timestamp, time.Now())
	if err != nil {
		return fmt.Errorf("record event %s: %w", event.ID, err)
	}
	return nil
}

func (r *MySQLEventRepository) GetLotHistory(ctx context.Context, lotCode string) ([]*domain.AuctionEvent, error) {
	query := `
        SELECT id, event_type, lot_code, bidder, amount, message, occurred_at
        FROM auction_events
        WHERE lot_code = ?
        ORDER BY occurred_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, lotCode)
	if err != nil {
		return nil, fmt.Errorf("query history for lot %s: %w", lotCode, err)
	}
	defer rows.Close()

	var events []*domain.AuctionEvent
	for rows.Next() {
		var event domain.AuctionEvent
		var eventType string

		err := rows.Scan(&event.ID, &eventType, &event.LotCode, &event.Bidder,
			&event.Amount, &event.Message, &event.Timestamp)
		if err != nil {
			return nil, err
		}

		event.Type = domain.EventType(eventType)
		events = append(events, &event)
	}

	return events, rows.Err()
}
