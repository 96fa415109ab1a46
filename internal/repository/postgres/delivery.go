package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// DeliveryRepository implements notification.DeliveryRepository
type DeliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository creates a new delivery log repository
func NewDeliveryRepository(db *sql.DB) notification.DeliveryRepository {
	return &DeliveryRepository{db: db}
}

const deliveryColumns = `id, event_id, destination_id, medium, status, payload, error_message, retry_count, sent_at, created_at`

// Create records a delivery attempt
func (r *DeliveryRepository) Create(ctx context.Context, d *notification.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, d.EventID, d.DestinationID, string(d.Medium), string(d.Status), payloadText(d.Payload),
		d.ErrorMessage, d.RetryCount, d.SentAt, d.CreatedAt)
	if err != nil {
		return errors.DatabaseError("Failed to create delivery", err)
	}
	return nil
}

// Update stores the outcome of a delivery attempt
func (r *DeliveryRepository) Update(ctx context.Context, d *notification.Delivery) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE deliveries SET status = $1, error_message = $2, retry_count = $3, sent_at = $4
		WHERE id = $5
	`, string(d.Status), d.ErrorMessage, d.RetryCount, d.SentAt, d.ID)
	if err != nil {
		return errors.DatabaseError("Failed to update delivery", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound("Delivery")
	}
	return nil
}

// ListByEvent returns every delivery recorded for the event
func (r *DeliveryRepository) ListByEvent(ctx context.Context, eventID int64) ([]*notification.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deliveryColumns+` FROM deliveries WHERE event_id = $1 ORDER BY destination_id
	`, eventID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list deliveries", err)
	}
	return collectDeliveries(rows)
}

// ListRetryable returns failed deliveries with fewer than maxRetries retries
func (r *DeliveryRepository) ListRetryable(ctx context.Context, maxRetries, limit int) ([]*notification.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deliveryColumns+` FROM deliveries
		WHERE status = $1 AND retry_count < $2
		ORDER BY created_at
		LIMIT $3
	`, string(notification.DeliveryStatusFailed), maxRetries, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list retryable deliveries", err)
	}
	return collectDeliveries(rows)
}

func collectDeliveries(rows *sql.Rows) ([]*notification.Delivery, error) {
	defer rows.Close()

	var deliveries []*notification.Delivery
	for rows.Next() {
		var d notification.Delivery
		var medium, status string
		var payload []byte
		var sentAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.EventID, &d.DestinationID, &medium, &status, &payload,
			&d.ErrorMessage, &d.RetryCount, &sentAt, &d.CreatedAt); err != nil {
			return nil, errors.DatabaseError("Failed to scan delivery", err)
		}
		d.Medium = notification.Medium(medium)
		d.Status = notification.DeliveryStatus(status)
		if len(payload) > 0 {
			d.Payload = json.RawMessage(payload)
		}
		if sentAt.Valid {
			t := sentAt.Time
			d.SentAt = &t
		}
		deliveries = append(deliveries, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate deliveries", err)
	}
	return deliveries, nil
}

func payloadText(raw json.RawMessage) sql.NullString {
	return sql.NullString{String: string(raw), Valid: len(raw) > 0}
}
